package rewrite

import (
	"regexp"
	"strconv"
	"strings"
)

var showTablesRe = regexp.MustCompile(`(?is)^\s*SHOW\s+(?:FULL\s+)?TABLES(?:\s+(?:FROM|IN)\s+\S+)?(?:\s+LIKE\s+(` + litPattern + `))?\s*(;?)\s*$`)

func isShowTables(st *statement) bool {
	return showTablesRe.MatchString(st.sql)
}

func rewriteShowTables(st *statement) {
	m := showTablesRe.FindStringSubmatch(st.sql)
	out := "SELECT tablename FROM pg_catalog.pg_tables WHERE schemaname = current_schema()"
	if m[1] != "" {
		singleQuote(st.lits, m[1])
		out += " AND tablename LIKE " + m[1]
	}
	st.sql = out + m[2]
}

var calcFoundRowsRe = regexp.MustCompile(`(?i)\s*\bSQL_CALC_FOUND_ROWS\b`)

func stripCalcFoundRows(s string) string {
	return calcFoundRowsRe.ReplaceAllString(s, "")
}

var likeRe = regexp.MustCompile(`(?i)\bLIKE\b`)

func likeToILike(s string) string {
	return likeRe.ReplaceAllString(s, "ILIKE")
}

var (
	notRegexpRe = regexp.MustCompile(`(?i)\bNOT\s+(?:REGEXP|RLIKE)\b`)
	regexpRe    = regexp.MustCompile(`(?i)\b(?:REGEXP|RLIKE)\b`)
)

func regexpToTilde(s string) string {
	s = notRegexpRe.ReplaceAllString(s, "!~")
	return regexpRe.ReplaceAllString(s, "~")
}

var patternOperandRe = regexp.MustCompile(`(?i)(?:!?~|\bILIKE)\s*(` + litPattern + `)`)

// singleQuotePatterns turns double-quoted pattern operands into single-quoted
// literals, since PostgreSQL reads double quotes as identifiers.
func singleQuotePatterns(st *statement) {
	for _, m := range patternOperandRe.FindAllStringSubmatch(st.sql, -1) {
		singleQuote(st.lits, m[1])
	}
}

func singleQuote(lits *literalTable, token string) {
	l, ok := lits.lookup(token)
	if !ok || l.quote != '"' {
		return
	}
	body := l.body()
	body = strings.ReplaceAll(body, `\"`, `"`)
	body = strings.ReplaceAll(body, `""`, `"`)
	body = strings.ReplaceAll(body, `'`, `''`)
	lits.replace(token, literal{quote: '\'', text: "'" + body + "'"})
}

var (
	substringIndexRe = regexp.MustCompile(`(?i)\bSUBSTRING_INDEX\s*\(`)
	utcTimestampRe   = regexp.MustCompile(`(?i)\bUTC_TIMESTAMP\s*\(\s*\)`)
	ifnullRe         = regexp.MustCompile(`(?i)\bIFNULL\s*\(`)
	randRe           = regexp.MustCompile(`(?i)\bRAND\s*\(\s*\)`)
	unixTimestampRe  = regexp.MustCompile(`(?i)\bUNIX_TIMESTAMP\s*\(`)
)

func rewriteFunctions(s string) string {
	s = substringIndexRe.ReplaceAllString(s, "split_part(")
	s = utcTimestampRe.ReplaceAllString(s, "CURRENT_TIMESTAMP AT TIME ZONE 'UTC'")
	s = ifnullRe.ReplaceAllString(s, "COALESCE(")
	s = randRe.ReplaceAllString(s, "RANDOM()")
	return rewriteCalls(s, unixTimestampRe, func(arg string) string {
		if strings.TrimSpace(arg) == "" {
			return "extract(epoch from now())::bigint"
		}
		return "extract(epoch from " + strings.TrimSpace(arg) + ")::bigint"
	})
}

// rewriteCalls replaces every call matched by re (which must end at the
// opening parenthesis) with fn applied to the call's argument text.
func rewriteCalls(s string, re *regexp.Regexp, fn func(arg string) string) string {
	var b strings.Builder
	last := 0
	for {
		loc := re.FindStringIndex(s[last:])
		if loc == nil {
			break
		}
		start, open := last+loc[0], last+loc[1]-1
		closing := matchParen(s, open)
		if closing < 0 {
			break
		}
		b.WriteString(s[last:start])
		b.WriteString(fn(s[open+1 : closing]))
		last = closing + 1
	}
	if last == 0 {
		return s
	}
	b.WriteString(s[last:])
	return b.String()
}

var dateCallRe = regexp.MustCompile(`(?i)\bDATE\s*\(`)

// castDateCalls rewrites DATE(x) in the filtering and ordering clauses to a
// ::date cast. The select list keeps its DATE() calls.
func castDateCalls(s string) string {
	from := firstTopLevel(s, 0, whereRe, groupByRe, havingRe, orderByRe)
	if from == len(s) {
		return s
	}
	return s[:from] + rewriteCalls(s[from:], dateCallRe, func(arg string) string {
		arg = strings.TrimSpace(arg)
		if isPlainColumn(arg) {
			return arg + "::date"
		}
		return "(" + arg + ")::date"
	})
}

var plusZeroRe = regexp.MustCompile(`([\w."]+)\s*\+\s*0([^\w.]|$)`)

// castOrderByPlusZero rewrites the MySQL numeric sort idiom col+0.
func castOrderByPlusZero(s string) string {
	loc := findTopLevel(s, orderByRe, 0)
	if loc == nil {
		return s
	}
	return s[:loc[1]] + plusZeroRe.ReplaceAllString(s[loc[1]:], "CAST(${1} AS INTEGER)${2}")
}

var (
	orderItemRe   = regexp.MustCompile(`(?is)^(` + litPattern + `)(\s+(?:ASC|DESC))?$`)
	identLiteral  = regexp.MustCompile(`^[A-Za-z_][\w$]*(?:\.[A-Za-z_][\w$]*)?$`)
	selectStarRe  = regexp.MustCompile(`(?:^|\.)\*$`)
	orderByTailRe = []*regexp.Regexp{limitRe, offsetRe, forUpdateRe}
)

// unquoteOrderByLiteral turns ORDER BY 'col' into ORDER BY col and makes sure
// col is in the select list.
func unquoteOrderByLiteral(st *statement) {
	s := st.sql
	loc := findTopLevel(s, orderByRe, 0)
	if loc == nil {
		return
	}
	end := firstTopLevel(s, loc[1], orderByTailRe...)

	var added []string
	list := mapItems(s[loc[1]:end], func(item string) string {
		m := orderItemRe.FindStringSubmatch(item)
		if m == nil {
			return item
		}
		l, _ := st.lits.lookup(m[1])
		name := l.body()
		if !identLiteral.MatchString(name) {
			return item
		}
		name = normalizeName(name)
		added = append(added, name)
		return name + m[2]
	})
	if len(added) == 0 {
		return
	}
	s = s[:loc[1]] + list + s[end:]
	st.sql = appendToSelectList(s, added)
}

// appendToSelectList adds cols to the select list unless they are already
// selected or the list is a star.
func appendToSelectList(s string, cols []string) string {
	start, end, ok := selectList(s)
	if !ok {
		return s
	}
	present := make(map[string]bool)
	for _, item := range splitTopLevel(s[start:end]) {
		item = strings.TrimSpace(item)
		if selectStarRe.MatchString(item) {
			return s
		}
		present[strings.ToLower(item)] = true
	}

	list := strings.TrimRight(s[start:end], " \t\r\n")
	trail := s[start+len(list) : end]
	for _, col := range cols {
		if present[strings.ToLower(col)] {
			continue
		}
		present[strings.ToLower(col)] = true
		list += ", " + col
	}
	return s[:start] + list + trail + s[end:]
}

var limitCommaRe = regexp.MustCompile(`(?i)\bLIMIT\s+(\d+|%d|\?)\s*,\s*(\d+|%d|\?)`)

func limitToOffset(s string) string {
	return limitCommaRe.ReplaceAllString(s, "LIMIT ${2} OFFSET ${1}")
}

var dmlLimitRe = regexp.MustCompile(`(?i)\s+LIMIT\s+(?:\d+|%d|\?)\s*(;?)\s*$`)

// stripDMLLimit removes LIMIT from UPDATE and DELETE, which PostgreSQL lacks.
func stripDMLLimit(s string) string {
	return dmlLimitRe.ReplaceAllString(s, "$1")
}

var countCallRe = regexp.MustCompile(`(?i)^COUNT\s*\(`)

// aliasCountsAndGroup names every unaliased COUNT(expr) as countN and, when
// the query mixes such counts with plain columns and has no GROUP BY, groups
// by those columns. COUNT(*) is neither aliased nor a reason to group.
func aliasCountsAndGroup(s string) string {
	start, end, ok := selectList(s)
	if !ok {
		return s
	}

	n := 0
	var plain []string
	list := mapItems(s[start:end], func(item string) string {
		if isPlainColumn(item) {
			plain = append(plain, item)
			return item
		}
		loc := countCallRe.FindStringIndex(item)
		if loc == nil || matchParen(item, loc[1]-1) != len(item)-1 {
			return item
		}
		if strings.TrimSpace(item[loc[1]:len(item)-1]) == "*" {
			return item
		}
		alias := "count" + strconv.Itoa(n)
		n++
		return item + " AS " + alias
	})
	if n == 0 {
		return s
	}
	s = s[:start] + list + s[end:]
	end = start + len(list)

	if len(plain) == 0 || findTopLevel(s, groupByRe, end) != nil {
		return s
	}
	groupBy := "GROUP BY " + strings.Join(plain, ", ")

	at := firstTopLevel(s, end, havingRe, orderByRe, limitRe, offsetRe, forUpdateRe)
	if at == len(s) {
		body, hadSemicolon := trimStatementEnd(s)
		s = body + " " + groupBy
		if hadSemicolon {
			s += ";"
		}
		return s
	}
	head := strings.TrimRight(s[:at], " \t\r\n")
	return head + " " + groupBy + " " + s[at:]
}

var litTokenRe = regexp.MustCompile(litPattern)

// replaceZeroDates swaps the MySQL zero-date sentinel for the epoch in
// literals PostgreSQL would reject as out of range.
func replaceZeroDates(st *statement) {
	for _, token := range litTokenRe.FindAllString(st.sql, -1) {
		l, ok := st.lits.lookup(token)
		if !ok || l.quote != '\'' {
			continue
		}
		switch l.body() {
		case "0000-00-00 00:00:00":
			st.lits.replace(token, literal{quote: '\'', text: "'1970-01-01 00:00:00'"})
		case "0000-00-00":
			st.lits.replace(token, literal{quote: '\'', text: "'1970-01-01'"})
		}
	}
}
