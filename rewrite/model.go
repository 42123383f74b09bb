package rewrite

// ColumnDef is one column definition parsed out of a CREATE TABLE body or an
// ALTER TABLE column clause.
type ColumnDef struct {
	Name          string // as written, after backtick removal
	DataType      string // lower-cased base type e.g. "bigint", "varchar"
	Args          string // text inside the type parentheses e.g. "20", "10,2"
	Unsigned      bool
	NotNull       bool
	Default       string // raw DEFAULT expression, empty when absent
	AutoIncrement bool
	Collation     string // explicit COLLATE, empty when the table default applies
	Attrs         string // remaining attribute text, rewritten
}

// KeyPart is one column of a key, with its MySQL prefix length if any.
type KeyPart struct {
	Name   string
	Prefix string
}

// KeyDef is a secondary key clause of a CREATE TABLE body.
type KeyDef struct {
	Name    string
	Unique  bool
	Kind    string // "", "FULLTEXT" or "SPATIAL"
	Columns []KeyPart
}

// TableDef holds what the DDL rewriter learned about a created table.
type TableDef struct {
	Name        string
	Columns     []ColumnDef
	PrimaryKey  []string
	Keys        []KeyDef
	DroppedKeys []KeyDef // FULLTEXT and SPATIAL keys PostgreSQL has no plain index for
	Collation   string   // table default collation from the table options
}
