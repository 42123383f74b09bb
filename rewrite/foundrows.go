package rewrite

import (
	"regexp"
	"strings"
)

var foundRowsRe = regexp.MustCompile(`(?i)^\s*SELECT\s+FOUND_ROWS\s*\(\s*\)\s*;?\s*$`)

// isFoundRowsLookup reports whether a shielded statement asks for the row
// count of the previous query.
func isFoundRowsLookup(s string) bool {
	return foundRowsRe.MatchString(s)
}

// foundRowsQuery builds the count query standing in for FOUND_ROWS() from
// the last main query. The result is still MySQL dialect and shielded with
// the returned table.
func foundRowsQuery(last string) (string, *literalTable) {
	if strings.TrimSpace(last) == "" {
		return "SELECT 0", nil
	}
	s, lits := shield(last)
	s, _ = trimStatementEnd(stripCalcFoundRows(s))

	_, listEnd, ok := selectList(s)
	if !ok || listEnd == len(s) {
		return "SELECT 0", nil
	}
	cut := firstTopLevel(s, listEnd, orderByRe, limitRe, offsetRe, forUpdateRe)
	s = strings.TrimRight(s[:cut], " \t\r\n")

	if distinctRe.MatchString(s) || findTopLevel(s, groupByRe, listEnd) != nil || findTopLevel(s, havingRe, listEnd) != nil {
		return "SELECT COUNT(*) FROM (" + strings.TrimSpace(s) + ") AS found_rows", lits
	}
	return "SELECT COUNT(*) " + s[listEnd:], lits
}
