package querysql

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/qset/internal/ir"
	"github.com/roach88/qset/internal/meta"
	"github.com/roach88/qset/internal/queryir"
)

// Registry is the model metadata the compiler reads. *meta.Registry
// implements it.
type Registry interface {
	Model(name string) (meta.Model, error)
	DependentsOf(name string) ([]meta.Relation, error)
}

// Compiler turns specs into statements for one dialect.
//
// CRITICAL: values are always bound as parameters, never interpolated.
type Compiler struct {
	Dialect  Dialect
	Registry Registry
}

// New creates a Compiler.
func New(d Dialect, r Registry) *Compiler {
	return &Compiler{Dialect: d, Registry: r}
}

// Statement is compiled SQL text plus its bound parameters in placeholder
// order.
type Statement struct {
	SQL    string
	Params []any
}

// String renders the statement for logs.
func (s Statement) String() string {
	if len(s.Params) == 0 {
		return s.SQL
	}
	return fmt.Sprintf("%s %v", s.SQL, s.Params)
}

// Fingerprint returns a content hash of the text and parameters.
func (s Statement) Fingerprint() (string, error) {
	params := s.Params
	if params == nil {
		params = []any{}
	}
	return ir.Fingerprint(ir.DomainStatement, map[string]any{"sql": s.SQL, "params": params})
}

// Fragment is a compiled condition on its own.
type Fragment struct {
	Where  string // boolean expression
	Joins  string // JOIN clauses the expression depends on; "" when none
	Params []any
}

// builder accumulates parameters and joins for one statement rooted at one
// model. Text must be generated left to right so that numbered
// placeholders match parameter order.
type builder struct {
	d       Dialect
	reg     Registry
	root    meta.Model
	rootRef string
	params  []any
	joins   []*join
	byPath  map[string]*join
}

type join struct {
	path   string
	ref    string // quoted alias
	model  meta.Model
	from   string // quoted ref of the table holding the foreign key
	column string // foreign-key column on from
	outer  bool
}

func (c *Compiler) newBuilder(model string) (*builder, error) {
	if c.Dialect == nil || c.Registry == nil {
		return nil, errors.New("querysql: compiler needs a dialect and a registry")
	}
	m, err := c.Registry.Model(model)
	if err != nil {
		return nil, err
	}
	return &builder{
		d:       c.Dialect,
		reg:     c.Registry,
		root:    m,
		rootRef: c.Dialect.Quote(m.Table),
		byPath:  make(map[string]*join),
	}, nil
}

// fork returns a builder with the same root and parameters but no joins,
// for a subquery. The caller must copy params back with adopt.
func (b *builder) fork() *builder {
	return &builder{
		d:       b.d,
		reg:     b.reg,
		root:    b.root,
		rootRef: b.rootRef,
		params:  b.params,
		byPath:  make(map[string]*join),
	}
}

func (b *builder) adopt(sub *builder) {
	b.params = sub.params
}

func (b *builder) bind(v any) string {
	b.params = append(b.params, v)
	return b.d.Placeholder(len(b.params))
}

func (b *builder) col(ref, column string) string {
	return ref + "." + b.d.Quote(column)
}

func (b *builder) fieldError(path, format string, args ...any) error {
	return &FieldError{Model: b.root.Name, Path: path, Message: fmt.Sprintf(format, args...)}
}

// resolve returns the qualified column for a field path, registering the
// joins the path crosses. outer requests LEFT OUTER joins.
func (b *builder) resolve(path string, outer bool) (string, meta.Field, error) {
	segs := strings.Split(path, "__")
	m, ref := b.root, b.rootRef
	var parent *join

	for i, seg := range segs[:len(segs)-1] {
		f, ok := m.Field(seg)
		if !ok {
			return "", meta.Field{}, b.fieldError(path, "%s has no field %q", m.Name, seg)
		}
		if !f.IsRelation() {
			return "", meta.Field{}, b.fieldError(path, "%s.%s is not a relation", m.Name, seg)
		}
		target, err := b.reg.Model(f.ForeignKey)
		if err != nil {
			return "", meta.Field{}, b.fieldError(path, "%v", err)
		}
		parent = b.join(strings.Join(segs[:i+1], "__"), parent, f, target, outer)
		m, ref = target, parent.ref
	}

	last := segs[len(segs)-1]
	f, ok := m.Field(last)
	if !ok {
		return "", meta.Field{}, b.fieldError(path, "%s has no field %q", m.Name, last)
	}
	return b.col(ref, f.Column), f, nil
}

// join registers (or reuses) the join for a relation path. A join becomes
// LEFT OUTER when requested, when its foreign key is nullable, or when its
// parent join is outer; once outer it stays outer.
func (b *builder) join(path string, parent *join, fk meta.Field, target meta.Model, outer bool) *join {
	outer = outer || fk.Nullable || (parent != nil && parent.outer)
	if j, ok := b.byPath[path]; ok {
		j.outer = j.outer || outer
		return j
	}
	from := b.rootRef
	if parent != nil {
		from = parent.ref
	}
	j := &join{
		path:   path,
		ref:    b.d.Quote("T" + strconv.Itoa(len(b.joins))),
		model:  target,
		from:   from,
		column: fk.Column,
		outer:  outer,
	}
	b.joins = append(b.joins, j)
	b.byPath[path] = j
	return j
}

func (b *builder) joinClauses() string {
	var sb strings.Builder
	for _, j := range b.joins {
		if j.outer {
			sb.WriteString(" LEFT OUTER JOIN ")
		} else {
			sb.WriteString(" INNER JOIN ")
		}
		sb.WriteString(b.d.Quote(j.model.Table))
		sb.WriteString(" AS ")
		sb.WriteString(j.ref)
		sb.WriteString(" ON ")
		sb.WriteString(b.col(j.ref, j.model.PrimaryKeyColumn()))
		sb.WriteString(" = ")
		sb.WriteString(b.col(j.from, j.column))
	}
	return sb.String()
}

func (b *builder) from() string {
	return b.rootRef + b.joinClauses()
}

// where compiles the WHERE clause with a leading space, or "" for All.
func (b *builder) where(p queryir.Predicate) (string, error) {
	if queryir.IsAll(p) {
		return "", nil
	}
	cond, err := b.predicate(p)
	if err != nil {
		return "", err
	}
	return " WHERE " + cond, nil
}

// predicate compiles a tree. And and Or are always parenthesised so the
// output never depends on operator precedence.
func (b *builder) predicate(p queryir.Predicate) (string, error) {
	switch n := p.(type) {
	case nil, queryir.All:
		return "1 = 1", nil
	case queryir.Empty:
		return "1 = 0", nil
	case queryir.Comparison:
		return b.comparison(n)
	case queryir.Not:
		inner, err := b.predicate(n.Inner)
		if err != nil {
			return "", err
		}
		if strings.HasPrefix(inner, "(") {
			return "NOT " + inner, nil
		}
		return "NOT (" + inner + ")", nil
	case queryir.And:
		return b.binary(n.Left, "AND", n.Right)
	case queryir.Or:
		return b.binary(n.Left, "OR", n.Right)
	default:
		return "", fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func (b *builder) binary(left queryir.Predicate, op string, right queryir.Predicate) (string, error) {
	l, err := b.predicate(left)
	if err != nil {
		return "", err
	}
	r, err := b.predicate(right)
	if err != nil {
		return "", err
	}
	return "(" + l + " " + op + " " + r + ")", nil
}

func (b *builder) comparison(c queryir.Comparison) (string, error) {
	col, _, err := b.resolve(c.Field, false)
	if err != nil {
		return "", err
	}
	malformed := func(msg string) error {
		return &queryir.PredicateError{Field: c.Field, Operator: c.Op, Message: msg}
	}

	switch c.Op {
	case queryir.OpEq:
		if c.Value == nil {
			return col + " IS NULL", nil
		}
		return col + " = " + b.bind(c.Value), nil

	case queryir.OpNotEq:
		if c.Value == nil {
			return col + " IS NOT NULL", nil
		}
		return col + " <> " + b.bind(c.Value), nil

	case queryir.OpLt, queryir.OpLte, queryir.OpGt, queryir.OpGte:
		return col + " " + string(c.Op) + " " + b.bind(c.Value), nil

	case queryir.OpIsNull, queryir.OpIsNotNull:
		return col + " " + string(c.Op), nil

	case queryir.OpIn:
		list, ok := c.Value.([]any)
		if !ok {
			return "", malformed("IN value is not a list")
		}
		if len(list) == 0 {
			return "1 = 0", nil
		}
		phs := make([]string, len(list))
		for i, v := range list {
			phs[i] = b.bind(v)
		}
		return col + " IN (" + strings.Join(phs, ", ") + ")", nil

	case queryir.OpRange:
		list, ok := c.Value.([]any)
		if !ok || len(list) != 2 {
			return "", malformed("RANGE value is not a pair")
		}
		low := b.bind(list[0])
		high := b.bind(list[1])
		return col + " BETWEEN " + low + " AND " + high, nil
	}

	s, ok := c.Value.(string)
	if !ok {
		return "", malformed(fmt.Sprintf("requires a string, got %T", c.Value))
	}
	var pattern string
	switch c.Op {
	case queryir.OpLike, queryir.OpILike:
		pattern = s
	case queryir.OpIExact:
		pattern = escapeLike(s)
	case queryir.OpStartsWith, queryir.OpIStartsWith:
		pattern = escapeLike(s) + "%"
	case queryir.OpEndsWith, queryir.OpIEndsWith:
		pattern = "%" + escapeLike(s)
	case queryir.OpContains, queryir.OpIContains:
		pattern = "%" + escapeLike(s) + "%"
	default:
		return "", malformed("unsupported operator")
	}
	return b.d.Like(col, b.bind(pattern), c.Op.CaseInsensitive()), nil
}

// orderBy compiles the ORDER BY clause with a leading space. Relation
// paths join the same way filters do, so ordering never promotes an
// existing join. Paged
// statements get the primary key as a final tiebreaker so consecutive
// pages never overlap.
func (b *builder) orderBy(keys []queryir.OrderKey, paged bool) (string, error) {
	parts := make([]string, 0, len(keys)+1)
	hasPK := false
	for _, k := range keys {
		col, _, err := b.resolve(k.Field, false)
		if err != nil {
			return "", err
		}
		if k.Field == b.root.PrimaryKey {
			hasPK = true
		}
		dir := " ASC"
		if k.Desc {
			dir = " DESC"
		}
		parts = append(parts, col+dir)
	}
	if paged && !hasPK {
		parts = append(parts, b.col(b.rootRef, b.root.PrimaryKeyColumn())+" ASC")
	}
	if len(parts) == 0 {
		return "", nil
	}
	return " ORDER BY " + strings.Join(parts, ", "), nil
}

func (b *builder) window(spec queryir.Spec) string {
	length, bounded := spec.Length()
	w := b.d.LimitOffset(spec.Offset(), length, bounded)
	if w == "" {
		return ""
	}
	return " " + w
}

func (b *builder) columns(m meta.Model, ref string) []string {
	cols := make([]string, len(m.Fields))
	for i, f := range m.Fields {
		cols[i] = b.col(ref, f.Column)
	}
	return cols
}

// selectFrom assembles SELECT list FROM ... WHERE ... ORDER BY ... LIMIT.
// The WHERE clause is compiled before ORDER BY so that its joins are
// numbered first; neither adds parameters after the other.
func (b *builder) selectFrom(list []string, spec queryir.Spec, ordered bool) (string, error) {
	where, err := b.where(spec.Where())
	if err != nil {
		return "", err
	}
	window := b.window(spec)
	order := ""
	if ordered {
		order, err = b.orderBy(spec.Order(), window != "")
		if err != nil {
			return "", err
		}
	}
	return "SELECT " + strings.Join(list, ", ") + " FROM " + b.from() + where + order + window, nil
}

// needsJoin reports whether p references a relation path.
func needsJoin(p queryir.Predicate) bool {
	for _, f := range queryir.Fields(p) {
		if strings.Contains(f, "__") {
			return true
		}
	}
	return false
}

// keys compiles a subquery selecting the primary keys of the rows spec
// matches. Windowed or joined specs select through a derived table so the
// subquery may carry LIMIT and may read the table being modified.
func (b *builder) keys(spec queryir.Spec) (string, error) {
	_, bounded := spec.Length()
	pk := b.col(b.rootRef, b.root.PrimaryKeyColumn())

	if !bounded && spec.Offset() == 0 && !needsJoin(spec.Where()) {
		where, err := b.where(spec.Where())
		if err != nil {
			return "", err
		}
		return "SELECT " + pk + " FROM " + b.rootRef + where, nil
	}

	sub := b.fork()
	inner, err := sub.selectFrom([]string{pk + " AS " + b.d.Quote("qset_pk")}, spec, true)
	if err != nil {
		return "", err
	}
	b.adopt(sub)
	return "SELECT " + b.d.Quote("qset_pk") + " FROM (" + inner + ") AS " + b.d.Quote("qset_sub"), nil
}

// selection compiles the WHERE clause of an UPDATE or DELETE on the root
// table: the bare predicate when possible, a primary-key subquery when the
// spec is windowed or crosses relations.
func (b *builder) selection(spec queryir.Spec) (string, error) {
	_, bounded := spec.Length()
	if !bounded && spec.Offset() == 0 && !needsJoin(spec.Where()) {
		return b.where(spec.Where())
	}
	keys, err := b.keys(spec)
	if err != nil {
		return "", err
	}
	return " WHERE " + b.col(b.rootRef, b.root.PrimaryKeyColumn()) + " IN (" + keys + ")", nil
}
