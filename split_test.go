package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitStatements(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want []string
	}{
		{
			"single statement",
			"SELECT 1",
			[]string{"SELECT 1"},
		},
		{
			"two statements",
			"SELECT 1; SELECT 2;",
			[]string{"SELECT 1", "SELECT 2"},
		},
		{
			"empty statements skipped",
			"SELECT 1;; ;SELECT 2;",
			[]string{"SELECT 1", "SELECT 2"},
		},
		{
			"semicolon inside quotes",
			"SELECT 'a;b', \"c;d\", `e;f`; SELECT 2",
			[]string{"SELECT 'a;b', \"c;d\", `e;f`", "SELECT 2"},
		},
		{
			"backslash escaped quote",
			`INSERT INTO t VALUES ('it\'s; fine'); SELECT 2`,
			[]string{`INSERT INTO t VALUES ('it\'s; fine')`, "SELECT 2"},
		},
		{
			"doubled quote",
			"SELECT 'it''s;'; SELECT 2",
			[]string{"SELECT 'it''s;'", "SELECT 2"},
		},
		{
			"comments dropped",
			"-- header; comment\nSELECT 1; # trailing; comment\n/* block; */SELECT 2;",
			[]string{"SELECT 1", "SELECT 2"},
		},
		{
			"double dash without space is an operator",
			"SELECT 1--1;",
			[]string{"SELECT 1--1"},
		},
		{
			"mysqldump conditional comments",
			"/*!40101 SET NAMES utf8mb4 */;\nCREATE TABLE t (a int);",
			[]string{"CREATE TABLE t (a int)"},
		},
		{
			"delimiter directive",
			"DELIMITER ;;\nCREATE TRIGGER tr BEFORE INSERT ON t FOR EACH ROW BEGIN SET NEW.a = 1; END ;;\nDELIMITER ;\nSELECT 1;",
			[]string{"CREATE TRIGGER tr BEFORE INSERT ON t FOR EACH ROW BEGIN SET NEW.a = 1; END", "SELECT 1"},
		},
		{
			"unterminated quote keeps the rest",
			"SELECT 1; SELECT 'oops;",
			[]string{"SELECT 1", "SELECT 'oops;"},
		},
		{
			"empty input",
			"",
			nil,
		},
		{
			"only whitespace",
			"   \n\t  ",
			nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitStatements(tt.sql))
		})
	}
}
