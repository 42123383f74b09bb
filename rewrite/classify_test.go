package rewrite

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		sql  string
		want Kind
	}{
		{"SELECT 1", KindSelect},
		{"  select * from t", KindSelect},
		{"(SELECT a FROM t) UNION (SELECT a FROM u)", KindSelect},
		{"/* hint */ SELECT 1", KindSelect},
		{"-- note\nSELECT 1", KindSelect},
		{"# note\nDELETE FROM t", KindDelete},
		{"INSERT INTO t VALUES (1)", KindInsert},
		{"insert ignore into t values (1)", KindInsert},
		{"REPLACE INTO t (a) VALUES (1)", KindReplace},
		{"UPDATE t SET a = 1", KindUpdate},
		{"DELETE FROM t", KindDelete},
		{"CREATE TABLE t (a int)", KindCreateTable},
		{"CREATE TEMPORARY TABLE t (a int)", KindCreateTable},
		{"CREATE INDEX i ON t (a)", KindOther},
		{"ALTER TABLE t ADD COLUMN a int", KindAlterTable},
		{"SHOW TABLES", KindOther},
		{"'SELECT' AS x", KindOther},
		{"", KindOther},
		{"/* unterminated", KindOther},
	}

	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.sql))
		})
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "SELECT", KindSelect.String())
	assert.Equal(t, "CREATE_TABLE", KindCreateTable.String())
	assert.Equal(t, "ALTER_TABLE", KindAlterTable.String())
	assert.Equal(t, "OTHER", Kind(99).String())
}
