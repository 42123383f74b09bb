package rewrite

import (
	"strings"
)

// Kind is the statement class that selects a rule chain.
type Kind int

const (
	KindOther Kind = iota
	KindSelect
	KindInsert
	KindReplace
	KindUpdate
	KindDelete
	KindCreateTable
	KindAlterTable
)

func (k Kind) String() string {
	switch k {
	case KindSelect:
		return "SELECT"
	case KindInsert:
		return "INSERT"
	case KindReplace:
		return "REPLACE"
	case KindUpdate:
		return "UPDATE"
	case KindDelete:
		return "DELETE"
	case KindCreateTable:
		return "CREATE_TABLE"
	case KindAlterTable:
		return "ALTER_TABLE"
	default:
		return "OTHER"
	}
}

// Classify returns the Kind of sql from its leading keywords.
func Classify(sql string) Kind {
	shielded, _ := shield(sql)
	return classify(shielded)
}

func classify(sql string) Kind {
	words := leadingWords(skipLeadingComments(sql), 3)
	if len(words) == 0 {
		return KindOther
	}

	switch words[0] {
	case "SELECT", "(SELECT":
		return KindSelect
	case "INSERT":
		return KindInsert
	case "REPLACE":
		return KindReplace
	case "UPDATE":
		return KindUpdate
	case "DELETE":
		return KindDelete
	case "CREATE":
		if len(words) > 1 && words[1] == "TABLE" {
			return KindCreateTable
		}
		if len(words) > 2 && words[1] == "TEMPORARY" && words[2] == "TABLE" {
			return KindCreateTable
		}
	case "ALTER":
		if len(words) > 1 && words[1] == "TABLE" {
			return KindAlterTable
		}
	}
	return KindOther
}

// skipLeadingComments drops whitespace and /* */, -- and # comments from the
// front of sql.
func skipLeadingComments(sql string) string {
	for {
		sql = strings.TrimLeft(sql, " \t\r\n")
		switch {
		case strings.HasPrefix(sql, "/*"):
			end := strings.Index(sql[2:], "*/")
			if end < 0 {
				return ""
			}
			sql = sql[end+4:]
		case strings.HasPrefix(sql, "--"), strings.HasPrefix(sql, "#"):
			end := strings.IndexByte(sql, '\n')
			if end < 0 {
				return ""
			}
			sql = sql[end+1:]
		default:
			return sql
		}
	}
}

// leadingWords returns up to n upper-cased whitespace-separated words.
func leadingWords(sql string, n int) []string {
	fields := strings.Fields(sql)
	if len(fields) > n {
		fields = fields[:n]
	}
	words := make([]string, len(fields))
	for i, f := range fields {
		words[i] = strings.ToUpper(f)
	}
	return words
}
