package rewrite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShield(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		want   string
		bodies []string
	}{
		{
			name:   "single and double quotes",
			in:     `SELECT 'a', "b" FROM t`,
			want:   `SELECT __pglit0__, __pglit1__ FROM t`,
			bodies: []string{"a", "b"},
		},
		{
			name:   "doubled quote escape",
			in:     `SELECT 'it''s' FROM t`,
			want:   `SELECT __pglit0__ FROM t`,
			bodies: []string{"it''s"},
		},
		{
			name:   "backslash escape",
			in:     `SELECT 'it\'s', 1`,
			want:   `SELECT __pglit0__, 1`,
			bodies: []string{`it\'s`},
		},
		{
			name:   "keywords inside literal",
			in:     `UPDATE t SET v = 'LIMIT 1, 2 ORDER BY x' WHERE id = 1`,
			want:   `UPDATE t SET v = __pglit0__ WHERE id = 1`,
			bodies: []string{"LIMIT 1, 2 ORDER BY x"},
		},
		{
			name:   "quote inside backticks",
			in:     "SELECT `it's` FROM t",
			want:   "SELECT `it's` FROM t",
			bodies: nil,
		},
		{
			name:   "multi-line literal",
			in:     "INSERT INTO t VALUES ('a\nb')",
			want:   "INSERT INTO t VALUES (__pglit0__)",
			bodies: []string{"a\nb"},
		},
		{
			name:   "unterminated literal runs to end",
			in:     `SELECT 'abc FROM t`,
			want:   `SELECT __pglit0__`,
			bodies: []string{"abc FROM t"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, lits := shield(tt.in)
			assert.Equal(t, tt.want, got)
			require.Len(t, lits.lits, len(tt.bodies))
			for i, body := range tt.bodies {
				assert.Equal(t, body, lits.lits[i].body())
			}
		})
	}
}

func TestRestoreRoundTrip(t *testing.T) {
	inputs := []string{
		`SELECT * FROM wp_options WHERE option_name = 'siteurl'`,
		`SELECT "a", 'b''c', 'd\'e' FROM t`,
		"SELECT `weird'name` FROM t WHERE x = 'y'",
		`SELECT 'unterminated`,
		`SELECT __pglit7__ FROM t WHERE a = 'b'`,
		``,
	}
	for _, in := range inputs {
		shielded, lits := shield(in)
		assert.Equal(t, in, restore(shielded, lits), "input %q", in)
	}
}

func TestRestoreLeavesUnknownTokens(t *testing.T) {
	lits := &literalTable{}
	tok := lits.add('\'', "'x'")
	assert.Equal(t, "'x' __pglit9__ __pglit", restore(tok+" __pglit9__ __pglit", lits))
}

func TestLiteralTableReplace(t *testing.T) {
	lits := &literalTable{}
	tok := lits.add('"', `"a"`)
	lits.replace(tok, literal{quote: '\'', text: "'a'"})

	l, ok := lits.lookup(tok)
	require.True(t, ok)
	assert.Equal(t, byte('\''), l.quote)
	assert.Equal(t, "a", l.body())

	_, ok = lits.lookup("__pglit5__")
	assert.False(t, ok)

	var empty *literalTable
	_, ok = empty.lookup(tok)
	assert.False(t, ok)
}
