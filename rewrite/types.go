package rewrite

import "strings"

// TypeOptions controls the non-lossless type coercions.
type TypeOptions struct {
	TinyInt1AsBoolean bool // tinyint(1) -> boolean instead of smallint
	JSONAsJSONB       bool // json -> jsonb
	EnumCheck         bool // enum columns get a CHECK (col IN (...)) constraint
}

// MapType returns the PostgreSQL type for a MySQL column definition. The
// result depends only on the base type, its arguments, and the auto-increment
// flag; UNSIGNED is dropped without widening. Unknown types pass through.
func MapType(col ColumnDef, opts TypeOptions) string {
	dt := strings.ToLower(strings.Join(strings.Fields(col.DataType), " "))
	args := strings.Join(strings.Fields(col.Args), "")

	if col.AutoIncrement {
		if dt == "bigint" {
			return "bigserial"
		}
		return "serial"
	}

	switch dt {
	case "tinyint":
		if args == "1" && opts.TinyInt1AsBoolean {
			return "boolean"
		}
		return "smallint"
	case "smallint", "year":
		return "smallint"
	case "mediumint":
		return "integer"
	case "int":
		return "int"
	case "integer":
		return "integer"
	case "bigint":
		return "bigint"
	case "float":
		return "real"
	case "double", "double precision", "real":
		return "double precision"
	case "decimal", "numeric", "dec", "fixed":
		return withArgs("numeric", args)
	case "char", "varchar":
		return withArgs(dt, args)
	case "tinytext", "text", "mediumtext", "longtext":
		return "text"
	case "binary", "varbinary", "tinyblob", "blob", "mediumblob", "longblob":
		return "bytea"
	case "datetime", "timestamp":
		return withArgs("timestamp", args)
	case "time":
		return withArgs("time", args)
	case "date":
		return "date"
	case "enum", "set":
		return "text"
	case "json":
		if opts.JSONAsJSONB {
			return "jsonb"
		}
		return "json"
	case "bool", "boolean":
		return "boolean"
	default:
		return withArgs(col.DataType, col.Args)
	}
}

func withArgs(name, args string) string {
	if args == "" {
		return name
	}
	return name + "(" + args + ")"
}

// isTemporalType reports whether a MySQL type carries a zero-date default.
func isTemporalType(dt string) bool {
	switch strings.ToLower(dt) {
	case "datetime", "timestamp", "date":
		return true
	}
	return false
}

// isZeroDate reports whether a literal body is the MySQL zero-date sentinel.
func isZeroDate(body string) bool {
	return strings.HasPrefix(body, "0000-00-00")
}
