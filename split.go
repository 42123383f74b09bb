package main

import "strings"

// splitStatements splits MySQL script text into statements. It honours
// quotes and backticks (with backslash and doubled-quote escapes), drops
// -- , # and /* */ comments, and follows DELIMITER directives as written
// by mysqldump.
func splitStatements(sql string) []string {
	var stmts []string
	var current strings.Builder
	delim := ";"
	blank := true

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			stmts = append(stmts, s)
		}
		current.Reset()
		blank = true
	}

	for i := 0; i < len(sql); i++ {
		c := sql[i]

		if blank && atLineStart(sql, i) && hasPrefixFold(sql[i:], "DELIMITER ") {
			end := strings.IndexByte(sql[i:], '\n')
			if end < 0 {
				end = len(sql) - i
			}
			if d := strings.TrimSpace(sql[i+len("DELIMITER ") : i+end]); d != "" {
				delim = d
			}
			current.Reset()
			i += end
			continue
		}

		switch {
		case c == '\'' || c == '"' || c == '`':
			end := quotedEnd(sql, i)
			current.WriteString(sql[i : end+1])
			blank = false
			i = end
		case c == '#' || (c == '-' && isDashComment(sql, i)):
			end := strings.IndexByte(sql[i:], '\n')
			if end < 0 {
				i = len(sql)
				continue
			}
			current.WriteByte('\n')
			i += end
		case c == '/' && i+1 < len(sql) && sql[i+1] == '*':
			end := strings.Index(sql[i+2:], "*/")
			if end < 0 {
				i = len(sql)
				continue
			}
			current.WriteByte(' ')
			i += end + 3
		case strings.HasPrefix(sql[i:], delim):
			flush()
			i += len(delim) - 1
		default:
			current.WriteByte(c)
			if c != ' ' && c != '\t' && c != '\n' && c != '\r' {
				blank = false
			}
		}
	}

	flush()
	return stmts
}

// quotedEnd returns the index of the byte closing the quote opened at i,
// or the last index when the quote is never closed.
func quotedEnd(sql string, i int) int {
	q := sql[i]
	for j := i + 1; j < len(sql); j++ {
		switch sql[j] {
		case '\\':
			if q != '`' {
				j++
			}
		case q:
			if j+1 < len(sql) && sql[j+1] == q {
				j++
				continue
			}
			return j
		}
	}
	return len(sql) - 1
}

// isDashComment reports whether "--" at i starts a comment. MySQL requires
// whitespace (or end of input) after the dashes.
func isDashComment(sql string, i int) bool {
	if i+1 >= len(sql) || sql[i+1] != '-' {
		return false
	}
	if i+2 == len(sql) {
		return true
	}
	switch sql[i+2] {
	case ' ', '\t', '\n', '\r':
		return true
	}
	return false
}

func atLineStart(sql string, i int) bool {
	for j := i - 1; j >= 0; j-- {
		switch sql[j] {
		case '\n':
			return true
		case ' ', '\t', '\r':
		default:
			return false
		}
	}
	return true
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
