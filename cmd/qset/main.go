// Command qset queries SQL tables through lazy query-sets.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/qset/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err != nil {
		// Commands that failed through the output formatter already
		// reported the error.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) || exitErr.Err == nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
	}
	os.Exit(cli.GetExitCode(err))
}
