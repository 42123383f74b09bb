package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderByForeignKeys(t *testing.T) {
	tests := []struct {
		name   string
		tables []string
		deps   map[string][]string
		want   []string
	}{
		{
			name:   "no dependencies keeps order",
			tables: []string{"a", "b", "c"},
			want:   []string{"a", "b", "c"},
		},
		{
			name:   "referenced table first",
			tables: []string{"comments", "posts", "users"},
			deps: map[string][]string{
				"comments": {"posts", "users"},
				"posts":    {"users"},
			},
			want: []string{"users", "posts", "comments"},
		},
		{
			name:   "cycle is broken at the first table",
			tables: []string{"a", "b"},
			deps: map[string][]string{
				"a": {"b"},
				"b": {"a"},
			},
			want: []string{"b", "a"},
		},
		{
			name:   "unknown references ignored",
			tables: []string{"a"},
			deps:   map[string][]string{"a": {"elsewhere"}},
			want:   []string{"a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, orderByForeignKeys(tt.tables, tt.deps))
		})
	}
}

func TestQuoteMySQLIdent(t *testing.T) {
	assert.Equal(t, "`wp_posts`", quoteMySQLIdent("wp_posts"))
	assert.Equal(t, "`my``table`", quoteMySQLIdent("my`table"))
}
