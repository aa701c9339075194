package engine

import (
	"github.com/google/btree"
)

type ColumnKind int

const (
	// ColText is a free-text column, stored trimmed.
	ColText ColumnKind = iota
	// ColPrice is a non-negative float column.
	ColPrice
	// ColRefValue references another table by column value.
	ColRefValue
	// ColRefID references another table by surrogate identifier.
	ColRefID
)

type Column struct {
	Name string
	Kind ColumnKind
	// RefTable is the logical name of the referenced table (ref kinds only).
	RefTable string
	// RefColumn is the referenced column for ColRefValue.
	RefColumn string
}

// TableSchema describes one logical table. Immutable after startup.
type TableSchema struct {
	Name     string
	SQLName  string
	Columns  []Column // writable columns, in validation order
	SortBy   []string // canonical list order, id breaks ties
	ReadOnly bool
	// Seed rows inserted when the table is created empty (read-only tables).
	Seed []RowValues
}

func (s *TableSchema) FindColumn(name string) *Column {
	for i := range s.Columns {
		if s.Columns[i].Name == name {
			return &s.Columns[i]
		}
	}
	return nil
}

// refersTo reports whether any column keeps an id reference into table.
func (s *TableSchema) refersTo(table string) bool {
	for i := range s.Columns {
		if s.Columns[i].Kind == ColRefID && s.Columns[i].RefTable == table {
			return true
		}
	}
	return false
}

func (s *TableSchema) ColumnNames() []string {
	names := make([]string, 0, len(s.Columns))
	for _, c := range s.Columns {
		names = append(names, c.Name)
	}
	return names
}

func (s *TableSchema) Less(than btree.Item) bool {
	return s.Name < than.(*TableSchema).Name
}

// Registry holds every table schema, ordered by logical name.
// Read-only, populated once at process start.
type Registry struct {
	tree *btree.BTree
}

func NewRegistry(schemas []*TableSchema) *Registry {
	tree := btree.New(8)
	for _, s := range schemas {
		if old := tree.ReplaceOrInsert(s); old != nil {
			panic("duplicate table schema: " + s.Name)
		}
	}
	return &Registry{tree: tree}
}

func (r *Registry) Lookup(name string) (*TableSchema, bool) {
	item := r.tree.Get(&TableSchema{Name: name})
	if item == nil {
		return nil, false
	}
	return item.(*TableSchema), true
}

// All returns every schema in logical-name order.
func (r *Registry) All() []*TableSchema {
	schemas := make([]*TableSchema, 0, r.tree.Len())
	r.tree.Ascend(func(i btree.Item) bool {
		schemas = append(schemas, i.(*TableSchema))
		return true
	})
	return schemas
}

// DefaultRegistry describes the priced option tables of the quoting backend.
func DefaultRegistry() *Registry {
	return NewRegistry([]*TableSchema{
		{
			Name:    "engine",
			SQLName: "engine_options",
			Columns: []Column{
				{Name: "category", Kind: ColText},
				{Name: "model", Kind: ColText},
				{Name: "price", Kind: ColPrice},
			},
			SortBy: []string{"category", "model"},
		},
		{
			Name:    "generator",
			SQLName: "generator_options",
			Columns: []Column{
				{Name: "category", Kind: ColText},
				{Name: "power", Kind: ColText},
				{Name: "price", Kind: ColPrice},
			},
			SortBy: []string{"category", "power"},
		},
		{
			Name:    "radiator",
			SQLName: "radiator_options",
			Columns: []Column{
				{Name: "name", Kind: ColText},
				{Name: "price", Kind: ColPrice},
			},
			SortBy: []string{"name"},
		},
		{
			Name:    "control",
			SQLName: "control_options",
			Columns: []Column{
				{Name: "name", Kind: ColText},
				{Name: "price", Kind: ColPrice},
			},
			SortBy: []string{"name"},
		},
		{
			Name:    "base",
			SQLName: "base_options",
			Columns: []Column{
				{Name: "name", Kind: ColText},
				{Name: "price", Kind: ColPrice},
			},
			SortBy: []string{"name"},
		},
		{
			Name:    "color",
			SQLName: "color_options",
			Columns: []Column{
				{Name: "name", Kind: ColText},
				{Name: "price", Kind: ColPrice},
			},
			SortBy: []string{"name"},
		},
		{
			Name:    "frequency",
			SQLName: "frequency_options",
			Columns: []Column{
				{Name: "value", Kind: ColText},
			},
			SortBy:   []string{"value"},
			ReadOnly: true,
			Seed: []RowValues{
				{"value": "50hz"},
				{"value": "60hz"},
			},
		},
		{
			Name:    "accessory",
			SQLName: "accessory_options",
			Columns: []Column{
				{Name: "name", Kind: ColText},
				{Name: "frequency", Kind: ColRefValue, RefTable: "frequency", RefColumn: "value"},
				{Name: "price", Kind: ColPrice},
			},
			SortBy: []string{"name"},
		},
		{
			Name:    "genaccessory",
			SQLName: "generator_accessories",
			Columns: []Column{
				{Name: "generator_id", Kind: ColRefID, RefTable: "generator"},
				{Name: "name", Kind: ColText},
				{Name: "price", Kind: ColPrice},
			},
			SortBy: []string{"name"},
		},
	})
}
