package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Limetric/pgshim/rewrite"
)

// keyWarnings reports keys the rewritten DDL cannot reproduce exactly.
func keyWarnings(def rewrite.TableDef) []string {
	var warnings []string
	for _, k := range def.DroppedKeys {
		warnings = append(warnings,
			fmt.Sprintf("%s.%s: %s index dropped; create a GIN or GiST index by hand", def.Name, k.Name, k.Kind))
	}
	for _, k := range def.Keys {
		for _, p := range k.Columns {
			if p.Prefix == "" {
				continue
			}
			reason := "index covers the full column"
			if k.Unique {
				reason = "uniqueness now applies to the full value"
			}
			warnings = append(warnings,
				fmt.Sprintf("%s.%s: prefix length %s on %s ignored; %s", def.Name, k.Name, p.Prefix, p.Name, reason))
		}
	}
	return warnings
}

// collectSchemaWarnings reports index and collation differences across the
// exported tables. Case-insensitive (_ci) collations become case-sensitive
// comparisons in PostgreSQL, which matters most for unique keys.
func collectSchemaWarnings(defs []rewrite.TableDef) []string {
	var warnings []string
	ciCounts := make(map[string]int)
	ciUniqueRefs := make(map[string][]string)

	for _, def := range defs {
		warnings = append(warnings, keyWarnings(def)...)

		uniqueCols := make(map[string]bool)
		for _, c := range def.PrimaryKey {
			uniqueCols[strings.ToLower(c)] = true
		}
		for _, k := range def.Keys {
			if k.Unique {
				for _, p := range k.Columns {
					uniqueCols[strings.ToLower(p.Name)] = true
				}
			}
		}

		for _, col := range def.Columns {
			if !isTextType(col.DataType) {
				continue
			}
			coll := col.Collation
			if coll == "" {
				coll = def.Collation
			}
			if !strings.HasSuffix(strings.ToLower(coll), "_ci") {
				continue
			}
			ciCounts[coll]++
			name := strings.ToLower(strings.Trim(col.Name, `"`))
			if uniqueCols[name] {
				ciUniqueRefs[coll] = append(ciUniqueRefs[coll], def.Name+"."+name)
			}
		}
	}

	for _, coll := range sortedKeys(ciCounts) {
		warnings = append(warnings, fmt.Sprintf(
			"%d column(s) use %s (case-insensitive); PostgreSQL text comparisons are case-sensitive by default",
			ciCounts[coll], coll))
		if refs := ciUniqueRefs[coll]; len(refs) > 0 {
			warnings = append(warnings, fmt.Sprintf(
				"unique keys on %s columns may now admit values differing only in case: %s",
				coll, strings.Join(refs, ", ")))
		}
	}
	return warnings
}

func isTextType(dataType string) bool {
	switch dataType {
	case "char", "varchar", "tinytext", "text", "mediumtext", "longtext", "enum", "set":
		return true
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
