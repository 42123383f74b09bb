package rewrite

import (
	"regexp"
	"strings"
)

// All scanning helpers work on shielded text, so parentheses and commas
// inside string literals never reach them.

// parenDepths returns the parenthesis depth in effect before every byte of s.
func parenDepths(s string) []int {
	d := make([]int, len(s)+1)
	depth := 0
	for i := 0; i < len(s); i++ {
		d[i] = depth
		switch s[i] {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		}
	}
	d[len(s)] = depth
	return d
}

// findTopLevel returns the location of the first match of re at depth 0
// starting at offset from, or nil.
func findTopLevel(s string, re *regexp.Regexp, from int) []int {
	if from > len(s) {
		return nil
	}
	depths := parenDepths(s)
	for _, loc := range re.FindAllStringIndex(s[from:], -1) {
		if depths[from+loc[0]] == 0 {
			return []int{from + loc[0], from + loc[1]}
		}
	}
	return nil
}

// firstTopLevel returns the smallest start offset of any of res at depth 0
// after from, or len(s) when none match.
func firstTopLevel(s string, from int, res ...*regexp.Regexp) int {
	end := len(s)
	for _, re := range res {
		if loc := findTopLevel(s, re, from); loc != nil && loc[0] < end {
			end = loc[0]
		}
	}
	return end
}

// matchParen returns the offset of the ')' closing the '(' at open, or -1.
func matchParen(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitTopLevel splits s on commas at depth 0. Whitespace around the parts
// is preserved.
func splitTopLevel(s string) []string {
	var parts []string
	depth, last := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[last:i])
				last = i + 1
			}
		}
	}
	return append(parts, s[last:])
}

// mapItems applies fn to the trimmed content of every top-level comma
// separated item of list, keeping the surrounding whitespace.
func mapItems(list string, fn func(item string) string) string {
	parts := splitTopLevel(list)
	for i, p := range parts {
		lead, core, trail := splitSpace(p)
		parts[i] = lead + fn(core) + trail
	}
	return strings.Join(parts, ",")
}

// splitSpace separates leading and trailing whitespace from s.
func splitSpace(s string) (lead, core, trail string) {
	core = strings.TrimLeft(s, " \t\r\n")
	lead = s[:len(s)-len(core)]
	trimmed := strings.TrimRight(core, " \t\r\n")
	trail = core[len(trimmed):]
	return lead, trimmed, trail
}

// trimStatementEnd strips trailing whitespace and semicolons and reports
// whether a semicolon was present.
func trimStatementEnd(s string) (string, bool) {
	trimmed := strings.TrimRight(s, " \t\r\n;")
	return trimmed, strings.Contains(s[len(trimmed):], ";")
}

var (
	selectHeadRe = regexp.MustCompile(`(?is)^\s*SELECT\s+(?:(?:DISTINCT|DISTINCTROW|ALL|HIGH_PRIORITY|STRAIGHT_JOIN|SQL_NO_CACHE|SQL_CACHE|SQL_SMALL_RESULT|SQL_BIG_RESULT|SQL_BUFFER_RESULT)\s+)*`)
	fromRe       = regexp.MustCompile(`(?i)\bFROM\b`)
	whereRe      = regexp.MustCompile(`(?i)\bWHERE\b`)
	groupByRe    = regexp.MustCompile(`(?i)\bGROUP\s+BY\b`)
	havingRe     = regexp.MustCompile(`(?i)\bHAVING\b`)
	orderByRe    = regexp.MustCompile(`(?i)\bORDER\s+BY\b`)
	limitRe      = regexp.MustCompile(`(?i)\bLIMIT\b`)
	offsetRe     = regexp.MustCompile(`(?i)\bOFFSET\b`)
	forUpdateRe  = regexp.MustCompile(`(?i)\bFOR\s+(UPDATE|SHARE)\b`)
	distinctRe   = regexp.MustCompile(`(?is)^\s*SELECT\s+DISTINCT\b`)
	returningRe  = regexp.MustCompile(`(?i)\bRETURNING\b`)
)

// selectList returns the bounds of the top-level select list of a SELECT.
func selectList(s string) (start, end int, ok bool) {
	head := selectHeadRe.FindStringIndex(s)
	if head == nil {
		return 0, 0, false
	}
	end = len(s)
	if loc := findTopLevel(s, fromRe, head[1]); loc != nil {
		end = loc[0]
	}
	return head[1], end, true
}

// hasTopLevelFrom reports whether a SELECT reads from a table.
func hasTopLevelFrom(s string) bool {
	_, end, ok := selectList(s)
	return ok && end < len(s)
}

var plainColumnRe = regexp.MustCompile(`^(?:[A-Za-z_][\w$]*|"[^"]+")(?:\.(?:[A-Za-z_][\w$]*|"[^"]+"))*$`)

// isPlainColumn reports whether item is a bare or qualified column name.
func isPlainColumn(item string) bool {
	if !plainColumnRe.MatchString(item) || strings.Contains(item, litPrefix) {
		return false
	}
	switch strings.ToUpper(item) {
	case "NULL", "TRUE", "FALSE", "CURRENT_TIMESTAMP", "CURRENT_DATE", "CURRENT_TIME", "NOW":
		return false
	}
	return true
}
