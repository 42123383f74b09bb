package rewrite

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapType(t *testing.T) {
	tests := []struct {
		name string
		col  ColumnDef
		opts TypeOptions
		want string
	}{
		{name: "bigint unsigned", col: ColumnDef{DataType: "bigint", Args: "20", Unsigned: true}, want: "bigint"},
		{name: "int", col: ColumnDef{DataType: "int", Args: "11"}, want: "int"},
		{name: "mediumint", col: ColumnDef{DataType: "mediumint", Args: "9"}, want: "integer"},
		{name: "tinyint", col: ColumnDef{DataType: "tinyint", Args: "4"}, want: "smallint"},
		{name: "tinyint(1) default", col: ColumnDef{DataType: "tinyint", Args: "1"}, want: "smallint"},
		{name: "tinyint(1) as boolean", col: ColumnDef{DataType: "tinyint", Args: "1"}, opts: TypeOptions{TinyInt1AsBoolean: true}, want: "boolean"},
		{name: "smallint", col: ColumnDef{DataType: "smallint", Args: "5"}, want: "smallint"},
		{name: "auto increment bigint", col: ColumnDef{DataType: "bigint", Args: "20", Unsigned: true, AutoIncrement: true}, want: "bigserial"},
		{name: "auto increment int", col: ColumnDef{DataType: "int", Args: "11", AutoIncrement: true}, want: "serial"},
		{name: "longtext", col: ColumnDef{DataType: "longtext"}, want: "text"},
		{name: "mediumtext", col: ColumnDef{DataType: "mediumtext"}, want: "text"},
		{name: "tinytext", col: ColumnDef{DataType: "tinytext"}, want: "text"},
		{name: "varchar", col: ColumnDef{DataType: "varchar", Args: "255"}, want: "varchar(255)"},
		{name: "char", col: ColumnDef{DataType: "char", Args: "32"}, want: "char(32)"},
		{name: "datetime", col: ColumnDef{DataType: "datetime"}, want: "timestamp"},
		{name: "datetime precision", col: ColumnDef{DataType: "datetime", Args: "6"}, want: "timestamp(6)"},
		{name: "decimal", col: ColumnDef{DataType: "decimal", Args: "10, 2"}, want: "numeric(10,2)"},
		{name: "double", col: ColumnDef{DataType: "double"}, want: "double precision"},
		{name: "float", col: ColumnDef{DataType: "float"}, want: "real"},
		{name: "blob", col: ColumnDef{DataType: "longblob"}, want: "bytea"},
		{name: "varbinary", col: ColumnDef{DataType: "varbinary", Args: "16"}, want: "bytea"},
		{name: "enum", col: ColumnDef{DataType: "enum", Args: "__pglit0__,__pglit1__"}, want: "text"},
		{name: "year", col: ColumnDef{DataType: "year", Args: "4"}, want: "smallint"},
		{name: "json", col: ColumnDef{DataType: "json"}, want: "json"},
		{name: "json as jsonb", col: ColumnDef{DataType: "json"}, opts: TypeOptions{JSONAsJSONB: true}, want: "jsonb"},
		{name: "unknown passes through", col: ColumnDef{DataType: "geometry"}, want: "geometry"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MapType(tt.col, tt.opts))
		})
	}
}

func TestMapTypeIgnoresCaseAndWhitespace(t *testing.T) {
	variants := []ColumnDef{
		{DataType: "BIGINT", Args: "20"},
		{DataType: "  bigint ", Args: " 20 "},
		{DataType: "BigInt", Args: "20", Unsigned: true},
	}
	for _, col := range variants {
		assert.Equal(t, "bigint", MapType(col, TypeOptions{}))
	}
	assert.Equal(t, "double precision", MapType(ColumnDef{DataType: "DOUBLE   PRECISION"}, TypeOptions{}))
}
