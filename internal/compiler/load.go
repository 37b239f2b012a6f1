package compiler

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/qset/internal/meta"
)

// LoadMode controls how errors are handled during model loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the results of loading models from a directory.
type LoadResult struct {
	Models    []meta.Model
	CUEValue  cue.Value // The raw CUE value for additional processing
	FileCount int       // Number of CUE files found
}

// LoadError represents an error that occurred during model loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Load error codes.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
)

// LoadDir loads and compiles the CUE model declarations under dir. Models
// live under the top-level "model" struct, keyed by name.
// If mode is LoadModeFailFast, returns on first error.
// If mode is LoadModeCollectAll, collects all errors.
func LoadDir(dir string, mode LoadMode) (*LoadResult, []error) {
	var errs []error

	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("models directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing models directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}

	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	result := &LoadResult{
		CUEValue:  value,
		FileCount: len(cueFiles),
	}

	modelsVal := value.LookupPath(cue.ParsePath("model"))
	if modelsVal.Exists() {
		iter, iterErr := modelsVal.Fields()
		if iterErr != nil {
			errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating models: %v", iterErr)})
			return result, errs
		}
		for iter.Next() {
			m, compileErr := CompileModel(iter.Value())
			if compileErr != nil {
				errs = append(errs, convertCompileError(compileErr, "model."+iter.Label()))
				if mode == LoadModeFailFast {
					return result, errs
				}
				continue
			}
			result.Models = append(result.Models, *m)
		}
	}

	if len(result.Models) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: "no models found"})
	}

	return result, errs
}

// LoadRegistry loads every model under dir, validates them together and
// returns a registry holding them. All load and validation errors are
// joined into the returned error.
func LoadRegistry(dir string) (*meta.Registry, error) {
	result, errs := LoadDir(dir, LoadModeCollectAll)
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if verrs := Validate(result.Models); len(verrs) > 0 {
		joined := make([]error, len(verrs))
		for i, v := range verrs {
			joined[i] = v
		}
		return nil, errors.Join(joined...)
	}

	reg, err := meta.NewRegistry(result.Models...)
	if err != nil {
		return nil, err
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return reg, nil
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch field {
	case "fields":
		return ErrModelNoFields
	case "primary_key":
		return ErrModelPrimaryKey
	case "model", "table":
		return ErrInvalidName
	case "type":
		return ErrInvalidFieldType
	default:
		return ErrCodeGeneric
	}
}
