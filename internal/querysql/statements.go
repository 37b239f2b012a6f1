package querysql

import (
	"maps"
	"slices"
	"strings"

	"github.com/roach88/qset/internal/meta"
	"github.com/roach88/qset/internal/queryir"
)

// RelatedModel is one model fetched by a SelectRelated query. Its columns
// follow the root model's columns, in the order Related returns.
type RelatedModel struct {
	// Path is the chain of foreign-key fields from the root model.
	Path  []string
	Model meta.Model

	ref string
}

// Field returns the foreign-key field that leads to this model from its
// parent.
func (r RelatedModel) Field() string { return r.Path[len(r.Path)-1] }

// Select compiles the row query for spec: every field of the model in
// declaration order, followed by the fields of each related model when
// spec.Related() is set.
func (c *Compiler) Select(model string, spec queryir.Spec) (Statement, error) {
	b, err := c.newBuilder(model)
	if err != nil {
		return Statement{}, err
	}

	cols := b.columns(b.root, b.rootRef)
	if spec.Related() {
		related, err := b.related()
		if err != nil {
			return Statement{}, err
		}
		for _, r := range related {
			cols = append(cols, b.columns(r.Model, r.ref)...)
		}
	}

	sql, err := b.selectFrom(cols, spec, true)
	if err != nil {
		return Statement{}, err
	}
	return Statement{SQL: sql, Params: b.params}, nil
}

// Related returns the models a SelectRelated query on model joins, in
// column order: a depth-first walk over foreign keys in declaration order,
// each parent before its children. A relation back to a model already on
// the current path is not followed.
func (c *Compiler) Related(model string) ([]RelatedModel, error) {
	b, err := c.newBuilder(model)
	if err != nil {
		return nil, err
	}
	return b.related()
}

func (b *builder) related() ([]RelatedModel, error) {
	var out []RelatedModel

	var walk func(m meta.Model, parent *join, path []string, seen map[string]bool) error
	walk = func(m meta.Model, parent *join, path []string, seen map[string]bool) error {
		for _, f := range m.Fields {
			if !f.IsRelation() || seen[f.ForeignKey] {
				continue
			}
			target, err := b.reg.Model(f.ForeignKey)
			if err != nil {
				return b.fieldError(strings.Join(append(slices.Clone(path), f.Name), "__"), "%v", err)
			}
			p := append(slices.Clone(path), f.Name)
			j := b.join(strings.Join(p, "__"), parent, f, target, true)
			out = append(out, RelatedModel{Path: p, Model: target, ref: j.ref})

			next := maps.Clone(seen)
			next[target.Name] = true
			if err := walk(target, j, p, next); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(b.root, nil, nil, map[string]bool{b.root.Name: true}); err != nil {
		return nil, err
	}
	return out, nil
}

// Count compiles SELECT COUNT(*) over the spec's predicate. Ordering and
// window do not affect it; callers apply the window arithmetically.
func (c *Compiler) Count(model string, spec queryir.Spec) (Statement, error) {
	b, err := c.newBuilder(model)
	if err != nil {
		return Statement{}, err
	}
	sql, err := b.selectFrom([]string{"COUNT(*)"}, queryir.NewSpec().Filter(spec.Where()), false)
	if err != nil {
		return Statement{}, err
	}
	return Statement{SQL: sql, Params: b.params}, nil
}

// Exists compiles a query returning at most one row when the spec's window
// holds at least one row.
func (c *Compiler) Exists(model string, spec queryir.Spec) (Statement, error) {
	b, err := c.newBuilder(model)
	if err != nil {
		return Statement{}, err
	}
	sql, err := b.selectFrom([]string{"1"}, spec.Limit(0, 1), false)
	if err != nil {
		return Statement{}, err
	}
	return Statement{SQL: sql, Params: b.params}, nil
}

// Values compiles a projection of fields (all model fields when empty).
// Fields may be relation paths; the relations are joined LEFT OUTER so
// that a NULL foreign key yields NULL values instead of dropping the row.
func (c *Compiler) Values(model string, spec queryir.Spec, fields []string) (Statement, error) {
	b, err := c.newBuilder(model)
	if err != nil {
		return Statement{}, err
	}
	if len(fields) == 0 {
		fields = b.root.FieldNames()
	}

	cols := make([]string, len(fields))
	for i, f := range fields {
		col, _, err := b.resolve(f, true)
		if err != nil {
			return Statement{}, err
		}
		cols[i] = col
	}

	sql, err := b.selectFrom(cols, spec, true)
	if err != nil {
		return Statement{}, err
	}
	return Statement{SQL: sql, Params: b.params}, nil
}

// Update compiles an UPDATE assigning values (field name → new value) to
// the rows spec selects. Assignments are emitted in field-name order.
// Only the model's own fields can be assigned.
func (c *Compiler) Update(model string, spec queryir.Spec, values map[string]any) (Statement, error) {
	if len(values) == 0 {
		return Statement{}, ErrEmptyUpdate
	}
	b, err := c.newBuilder(model)
	if err != nil {
		return Statement{}, err
	}

	names := slices.Sorted(maps.Keys(values))
	sets := make([]string, len(names))
	for i, name := range names {
		f, ok := b.root.Field(name)
		if !ok {
			return Statement{}, b.fieldError(name, "%s has no field %q", b.root.Name, name)
		}
		sets[i] = b.d.Quote(f.Column) + " = " + b.bind(values[name])
	}

	where, err := b.selection(spec)
	if err != nil {
		return Statement{}, err
	}
	return Statement{
		SQL:    "UPDATE " + b.rootRef + " SET " + strings.Join(sets, ", ") + where,
		Params: b.params,
	}, nil
}

// Delete compiles the statements that remove the rows spec selects, one
// per affected table. Rows of dependent models (foreign keys pointing at
// a deleted row, transitively) are deleted first, deepest first; the root
// table's statement is last. A model with foreign keys to itself loses
// the whole subtree under each deleted row, collected with a recursive
// key query. Other dependency cycles are cut where a model would reappear
// on its own path.
func (c *Compiler) Delete(model string, spec queryir.Spec) ([]Statement, error) {
	root, err := c.deleteRoot(model, spec)
	if err != nil {
		return nil, err
	}

	var out []Statement
	if err := c.cascade(model, spec, nil, map[string]bool{model: true}, &out); err != nil {
		return nil, err
	}
	return append(out, root), nil
}

func (c *Compiler) deleteRoot(model string, spec queryir.Spec) (Statement, error) {
	b, err := c.newBuilder(model)
	if err != nil {
		return Statement{}, err
	}
	self, err := b.selfRelations(b.root)
	if err != nil {
		return Statement{}, err
	}
	if len(self) == 0 {
		where, err := b.selection(spec)
		if err != nil {
			return Statement{}, err
		}
		return Statement{SQL: "DELETE FROM " + b.rootRef + where, Params: b.params}, nil
	}

	keys, err := b.keys(spec)
	if err != nil {
		return Statement{}, err
	}
	pk := b.col(b.rootRef, b.root.PrimaryKeyColumn())
	return Statement{
		SQL:    "DELETE FROM " + b.rootRef + " WHERE " + pk + " IN (" + b.subtree(b.root, self, keys) + ")",
		Params: b.params,
	}, nil
}

// cascade appends the delete statements for everything depending on the
// last model of chain (the root model when chain is empty).
func (c *Compiler) cascade(root string, spec queryir.Spec, chain []meta.Relation, seen map[string]bool, out *[]Statement) error {
	target := root
	if len(chain) > 0 {
		target = chain[len(chain)-1].Model
	}
	deps, err := c.Registry.DependentsOf(target)
	if err != nil {
		return err
	}

	for _, dep := range deps {
		if seen[dep.Model] {
			continue
		}
		next := append(slices.Clone(chain), dep)
		nextSeen := maps.Clone(seen)
		nextSeen[dep.Model] = true

		if err := c.cascade(root, spec, next, nextSeen, out); err != nil {
			return err
		}
		stmt, err := c.deleteDependent(root, spec, next)
		if err != nil {
			return err
		}
		*out = append(*out, stmt)
	}
	return nil
}

// deleteDependent compiles
//
//	DELETE FROM dep WHERE dep.fk IN (SELECT parent.pk FROM parent WHERE parent.fk IN (... root keys ...))
func (c *Compiler) deleteDependent(root string, spec queryir.Spec, chain []meta.Relation) (Statement, error) {
	b, err := c.newBuilder(root)
	if err != nil {
		return Statement{}, err
	}
	keys, err := b.keys(spec)
	if err != nil {
		return Statement{}, err
	}
	if keys, err = b.widen(b.root, keys); err != nil {
		return Statement{}, err
	}

	for _, rel := range chain[:len(chain)-1] {
		m, err := c.Registry.Model(rel.Model)
		if err != nil {
			return Statement{}, err
		}
		ref := b.d.Quote(m.Table)
		keys = "SELECT " + b.col(ref, m.PrimaryKeyColumn()) + " FROM " + ref +
			" WHERE " + b.col(ref, rel.Column) + " IN (" + keys + ")"
		if keys, err = b.widen(m, keys); err != nil {
			return Statement{}, err
		}
	}

	last := chain[len(chain)-1]
	m, err := c.Registry.Model(last.Model)
	if err != nil {
		return Statement{}, err
	}
	ref := b.d.Quote(m.Table)
	self, err := b.selfRelations(m)
	if err != nil {
		return Statement{}, err
	}
	if len(self) == 0 {
		return Statement{
			SQL:    "DELETE FROM " + ref + " WHERE " + b.col(ref, last.Column) + " IN (" + keys + ")",
			Params: b.params,
		}, nil
	}

	pk := b.col(ref, m.PrimaryKeyColumn())
	direct := "SELECT " + pk + " FROM " + ref + " WHERE " + b.col(ref, last.Column) + " IN (" + keys + ")"
	return Statement{
		SQL:    "DELETE FROM " + ref + " WHERE " + pk + " IN (" + b.subtree(m, self, direct) + ")",
		Params: b.params,
	}, nil
}

// selfRelations returns the foreign keys of m that reference m.
func (b *builder) selfRelations(m meta.Model) ([]meta.Relation, error) {
	deps, err := b.reg.DependentsOf(m.Name)
	if err != nil {
		return nil, err
	}
	var self []meta.Relation
	for _, dep := range deps {
		if dep.Model == m.Name {
			self = append(self, dep)
		}
	}
	return self, nil
}

// widen returns keys, or the subtree they root when m references itself.
func (b *builder) widen(m meta.Model, keys string) (string, error) {
	self, err := b.selfRelations(m)
	if err != nil || len(self) == 0 {
		return keys, err
	}
	return b.subtree(m, self, keys), nil
}

// subtree compiles the keys of the rows in keys plus every row reachable
// from them through the self-references rels:
//
//	SELECT qset_pk FROM (WITH RECURSIVE tree(qset_pk) AS (
//	    SELECT * FROM (keys) UNION SELECT m.pk FROM m, tree WHERE m.fk = tree.qset_pk
//	) SELECT qset_pk FROM tree) AS keys
//
// UNION stops on cyclic data. The derived table lets MySQL read the table
// it deletes from.
func (b *builder) subtree(m meta.Model, rels []meta.Relation, keys string) string {
	ref := b.d.Quote(m.Table)
	tree := b.d.Quote("qset_" + m.Table + "_tree")
	pk := b.d.Quote("qset_pk")

	links := make([]string, len(rels))
	for i, rel := range rels {
		links[i] = b.col(ref, rel.Column) + " = " + tree + "." + pk
	}
	return "SELECT " + pk + " FROM (WITH RECURSIVE " + tree + "(" + pk + ") AS (" +
		"SELECT * FROM (" + keys + ") AS " + b.d.Quote("qset_seed") +
		" UNION SELECT " + b.col(ref, m.PrimaryKeyColumn()) + " FROM " + ref + ", " + tree +
		" WHERE " + strings.Join(links, " OR ") +
		") SELECT " + pk + " FROM " + tree + ") AS " + b.d.Quote("qset_"+m.Table+"_keys")
}

// Where compiles a predicate on its own, with placeholders numbered from 1.
func (c *Compiler) Where(model string, p queryir.Predicate) (Fragment, error) {
	b, err := c.newBuilder(model)
	if err != nil {
		return Fragment{}, err
	}
	cond, err := b.predicate(p)
	if err != nil {
		return Fragment{}, err
	}
	return Fragment{Where: cond, Joins: strings.TrimPrefix(b.joinClauses(), " "), Params: b.params}, nil
}
