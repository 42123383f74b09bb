package rewrite

import (
	"regexp"
	"strings"
)

// reservedWords are identifiers that must be quoted to be used as table or
// column names in PostgreSQL: the reserved keywords, the type names MySQL
// schemas commonly use as column names, and the words that would otherwise
// be read as a MySQL key clause inside CREATE TABLE.
var reservedWords = map[string]bool{
	"all": true, "analyse": true, "analyze": true, "and": true, "any": true,
	"array": true, "as": true, "asc": true, "authorization": true, "between": true,
	"binary": true, "both": true, "case": true, "cast": true, "check": true,
	"collate": true, "column": true, "constraint": true, "create": true, "cross": true,
	"current_date": true, "current_role": true, "current_time": true,
	"current_timestamp": true, "current_user": true, "default": true, "deferrable": true,
	"desc": true, "distinct": true, "do": true, "else": true, "end": true, "except": true,
	"false": true, "fetch": true, "for": true, "foreign": true, "freeze": true,
	"from": true, "full": true, "grant": true, "group": true, "having": true,
	"ilike": true, "in": true, "initially": true, "inner": true, "intersect": true,
	"into": true, "is": true, "isnull": true, "join": true, "lateral": true,
	"leading": true, "left": true, "like": true, "limit": true, "localtime": true,
	"localtimestamp": true, "natural": true, "not": true, "notnull": true, "null": true,
	"offset": true, "on": true, "only": true, "or": true, "order": true, "outer": true,
	"overlaps": true, "placing": true, "primary": true, "references": true,
	"returning": true, "right": true, "select": true, "session_user": true,
	"similar": true, "some": true, "symmetric": true, "table": true, "then": true,
	"to": true, "trailing": true, "true": true, "union": true, "unique": true,
	"user": true, "using": true, "variadic": true, "verbose": true, "when": true,
	"where": true, "window": true, "with": true,
	"date": true, "time": true, "timestamp": true,
	"key": true, "index": true,
}

// caseSensitiveIdents are legacy mixed-case column names that the host
// schema creates quoted, so every reference has to keep its exact case.
var caseSensitiveIdents = map[string]bool{
	"ID": true,
}

// needsQuoting reports whether name cannot be written as a bare PostgreSQL
// identifier. Upper case is allowed: it folds to the same lower-case name.
func needsQuoting(name string) bool {
	if name == "" {
		return true
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_':
		case i > 0 && (c >= '0' && c <= '9' || c == '$'):
		default:
			return true
		}
	}
	return false
}

// quoteIdent returns a PostgreSQL-safe rendering of a bare identifier.
// Reserved words are quoted in lower case, matching what the bare word would
// have folded to.
func quoteIdent(name string) string {
	switch {
	case caseSensitiveIdents[name], needsQuoting(name):
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	case reservedWords[strings.ToLower(name)]:
		return `"` + strings.ToLower(name) + `"`
	}
	return name
}

// normalizeName renders a single name token as it should appear in the
// output. Double-quoted names and shielded literals are kept as written.
func normalizeName(name string) string {
	if name == "" || strings.HasPrefix(name, `"`) || isPlaceholder(name) {
		return name
	}
	if strings.Contains(name, ".") && !strings.Contains(name, `"`) {
		parts := strings.Split(name, ".")
		for i, p := range parts {
			parts[i] = quoteIdent(p)
		}
		return strings.Join(parts, ".")
	}
	return quoteIdent(name)
}

// bareName strips quoting from a name token and lower-cases it unless the
// name was quoted, for comparisons between names.
func bareName(name string, lits *literalTable) string {
	if l, ok := lits.lookup(name); ok {
		return l.body()
	}
	if len(name) >= 2 && name[0] == '"' && name[len(name)-1] == '"' {
		return name[1 : len(name)-1]
	}
	return strings.ToLower(name)
}

var backtickRe = regexp.MustCompile("`([^`]*)`")

// replaceBackticks turns every `name` into a bare or double-quoted name.
func replaceBackticks(s string) string {
	if !strings.Contains(s, "`") {
		return s
	}
	return backtickRe.ReplaceAllStringFunc(s, func(m string) string {
		return quoteIdent(m[1 : len(m)-1])
	})
}

// bareIdentRe finds unquoted names that need quoting outside DDL. Other
// reserved words are keywords when bare in MySQL input and stay untouched.
var bareIdentRe = regexp.MustCompile(`(?i)\b(id|date|time|timestamp)\b`)

// quoteBareIdentifiers quotes the case-significant ID column and the
// type-named columns date, time and timestamp wherever they are used as
// names rather than as syntax.
func quoteBareIdentifiers(s string) string {
	locs := bareIdentRe.FindAllStringIndex(s, -1)
	if len(locs) == 0 {
		return s
	}

	var b strings.Builder
	last := 0
	for _, loc := range locs {
		word := s[loc[0]:loc[1]]
		name, ok := bareIdentName(s, loc[0], loc[1], word)
		if !ok {
			continue
		}
		b.WriteString(s[last:loc[0]])
		b.WriteString(`"` + name + `"`)
		last = loc[1]
	}
	b.WriteString(s[last:])
	return b.String()
}

func bareIdentName(s string, start, end int, word string) (string, bool) {
	lower := strings.ToLower(word)
	if lower == "id" {
		if !caseSensitiveIdents[word] {
			return "", false
		}
	}
	if start > 0 && s[start-1] == '"' || end < len(s) && s[end] == '"' {
		return "", false
	}

	before := strings.TrimRight(s[:start], " \t\r\n")
	if strings.HasSuffix(before, "::") {
		return "", false
	}
	after := strings.TrimLeft(s[end:], " \t\r\n")
	if strings.HasPrefix(after, "(") || strings.HasPrefix(after, litPrefix) {
		return "", false
	}

	if lower != "id" {
		switch strings.ToUpper(lastWord(before)) {
		case "AS", "AT":
			return "", false
		}
		switch strings.ToUpper(firstWord(after)) {
		case "ZONE", "WITH", "WITHOUT":
			return "", false
		}
		return lower, true
	}
	return word, true
}

func lastWord(s string) string {
	i := len(s)
	for i > 0 && isWordByte(s[i-1]) {
		i--
	}
	return s[i:]
}

func firstWord(s string) string {
	i := 0
	for i < len(s) && isWordByte(s[i]) {
		i++
	}
	return s[:i]
}

func isWordByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_'
}
