package rewrite

import (
	"strings"
	"sync"
)

// TableKey is a primary or unique key known for a table.
type TableKey struct {
	Name    string
	Columns []string
	Primary bool
}

// KeyCatalog records the primary and unique keys of tables so upserts can
// pick a conflict target. It is safe for concurrent use.
type KeyCatalog struct {
	mu     sync.RWMutex
	tables map[string][]TableKey
}

func NewKeyCatalog() *KeyCatalog {
	return &KeyCatalog{tables: make(map[string][]TableKey)}
}

// Register adds a key to table. A primary key is kept ahead of unique keys;
// a key with the same column list as an existing one is ignored.
func (c *KeyCatalog) Register(table string, key TableKey) {
	if c == nil || len(key.Columns) == 0 {
		return
	}
	name := catalogName(table)
	key.Columns = normalizeColumns(key.Columns)

	c.mu.Lock()
	defer c.mu.Unlock()
	keys := c.tables[name]
	for _, k := range keys {
		if sameColumns(k.Columns, key.Columns) {
			return
		}
	}
	if key.Primary {
		keys = append([]TableKey{key}, keys...)
	} else {
		keys = append(keys, key)
	}
	c.tables[name] = keys
}

// SetTable replaces everything known about table.
func (c *KeyCatalog) SetTable(table string, keys []TableKey) {
	if c == nil {
		return
	}
	name := catalogName(table)
	var kept []TableKey
	for _, k := range keys {
		if len(k.Columns) == 0 {
			continue
		}
		k.Columns = normalizeColumns(k.Columns)
		if k.Primary {
			kept = append([]TableKey{k}, kept...)
		} else {
			kept = append(kept, k)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(kept) == 0 {
		delete(c.tables, name)
		return
	}
	c.tables[name] = kept
}

// Keys returns a copy of the keys known for table, primary first.
func (c *KeyCatalog) Keys(table string) []TableKey {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := c.tables[catalogName(table)]
	out := make([]TableKey, len(keys))
	for i, k := range keys {
		k.Columns = append([]string(nil), k.Columns...)
		out[i] = k
	}
	return out
}

// Len returns the number of tables with at least one key.
func (c *KeyCatalog) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tables)
}

// ConflictTarget returns the columns of the first key of table whose columns
// are all present in cols, in key order. It returns nil when no key fits.
func (c *KeyCatalog) ConflictTarget(table string, cols []string) []string {
	if c == nil {
		return nil
	}
	present := make(map[string]bool, len(cols))
	for _, col := range normalizeColumns(cols) {
		present[col] = true
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, k := range c.tables[catalogName(table)] {
		ok := true
		for _, col := range k.Columns {
			if !present[col] {
				ok = false
				break
			}
		}
		if ok {
			return append([]string(nil), k.Columns...)
		}
	}
	return nil
}

// catalogName reduces a possibly schema-qualified, possibly quoted table name
// to the lower-case bare table name.
func catalogName(table string) string {
	if i := strings.LastIndexByte(table, '.'); i >= 0 {
		table = table[i+1:]
	}
	return unquoteName(table)
}

func unquoteName(name string) string {
	name = strings.TrimSpace(name)
	if len(name) >= 2 {
		switch {
		case name[0] == '"' && name[len(name)-1] == '"',
			name[0] == '`' && name[len(name)-1] == '`':
			name = name[1 : len(name)-1]
		}
	}
	return strings.ToLower(name)
}

func normalizeColumns(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = unquoteName(c)
	}
	return out
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
