package rewrite

import (
	"regexp"
	"strings"

	"go.uber.org/zap"
)

var (
	insertRe      = regexp.MustCompile(`(?is)^(\s*INSERT\s+)(?:(?:LOW_PRIORITY|DELAYED|HIGH_PRIORITY)\s+)?(IGNORE\s+)?(INTO\s+)?([^\s(]+)\s*`)
	replaceHeadRe = regexp.MustCompile(`(?is)^(\s*)REPLACE\s+(?:(?:LOW_PRIORITY|DELAYED)\s+)?(?:INTO\s+)?`)
	onDuplicateRe = regexp.MustCompile(`(?is)\bON\s+DUPLICATE\s+KEY\s+UPDATE\b`)
	onConflictRe  = regexp.MustCompile(`(?i)\bON\s+CONFLICT\b`)
	assignmentRe  = regexp.MustCompile(`(?s)^([^\s=]+)\s*=\s*(.*)$`)
	valuesRefRe   = regexp.MustCompile(`(?i)\bVALUES\s*\(\s*([^\s()]+)\s*\)`)
	selfOpRe      = regexp.MustCompile(`(?s)^([^\s+\-*/]+)\s*([-+*/])\s*(.*)$`)
)

// insert is the head of a parsed INSERT statement.
type insert struct {
	table   string   // as rendered
	columns []string // as rendered, nil when the statement has no column list
	ignore  []int    // location of IGNORE, nil when absent
}

// parseInsert reads the table and column list of a shielded INSERT.
func parseInsert(s string) (insert, bool) {
	m := insertRe.FindStringSubmatchIndex(s)
	if m == nil {
		return insert{}, false
	}
	ins := insert{table: s[m[8]:m[9]]}
	if m[4] >= 0 {
		ins.ignore = []int{m[4], m[5]}
	}
	if m[1] < len(s) && s[m[1]] == '(' {
		closing := matchParen(s, m[1])
		if closing < 0 {
			return insert{}, false
		}
		list := s[m[1]+1 : closing]
		if !selectHeadRe.MatchString(list) {
			for _, c := range splitTopLevel(list) {
				ins.columns = append(ins.columns, normalizeName(strings.TrimSpace(c)))
			}
		}
	}
	return ins, true
}

// withoutIgnore drops the IGNORE modifier from s.
func (ins insert) withoutIgnore(s string) string {
	if ins.ignore == nil {
		return s
	}
	return s[:ins.ignore[0]] + s[ins.ignore[1]:]
}

// conflictTarget picks the columns identifying an existing row: the first
// known key covered by the insert columns, else the first insert column.
func conflictTarget(catalog *KeyCatalog, ins insert, lits *literalTable) []string {
	if len(ins.columns) == 0 {
		if keys := catalog.Keys(bareName(lastSegment(ins.table), lits)); len(keys) > 0 {
			out := make([]string, len(keys[0].Columns))
			for i, c := range keys[0].Columns {
				out[i] = quoteIdent(c)
			}
			return out
		}
		return nil
	}

	bare := make([]string, len(ins.columns))
	for i, c := range ins.columns {
		bare[i] = bareName(c, lits)
	}
	target := catalog.ConflictTarget(bareName(lastSegment(ins.table), lits), bare)
	if len(target) == 0 {
		return ins.columns[:1]
	}
	out := make([]string, 0, len(target))
	for _, t := range target {
		for i, b := range bare {
			if strings.EqualFold(b, t) {
				out = append(out, ins.columns[i])
				break
			}
		}
	}
	return out
}

func hasOnDuplicate(st *statement) bool {
	return findTopLevel(st.sql, onDuplicateRe, 0) != nil
}

// applyOnDuplicate rewrites INSERT ... ON DUPLICATE KEY UPDATE into an
// ON CONFLICT upsert. VALUES(col) references become EXCLUDED.col.
func applyOnDuplicate(st *statement) {
	ins, ok := parseInsert(st.sql)
	if !ok {
		return
	}
	s := ins.withoutIgnore(st.sql)
	loc := findTopLevel(s, onDuplicateRe, 0)
	if loc == nil {
		return
	}
	head := strings.TrimRight(s[:loc[0]], " \t\r\n")
	assignments, hadSemicolon := trimStatementEnd(s[loc[1]:])

	var sets []string
	for _, a := range splitTopLevel(assignments) {
		a = strings.TrimSpace(a)
		m := assignmentRe.FindStringSubmatch(a)
		if m == nil {
			sets = append(sets, a)
			continue
		}
		col := normalizeName(m[1])
		sets = append(sets, col+" = "+excludedExpr(col, strings.TrimSpace(m[2]), st.lits))
	}

	target := conflictTarget(st.catalog, ins, st.lits)
	var b strings.Builder
	b.WriteString(head)
	if len(target) == 0 {
		st.log.Debug("no conflict target, update dropped", zap.String("table", ins.table), zap.Strings("set", sets))
		b.WriteString(" ON CONFLICT DO NOTHING")
	} else {
		b.WriteString(" ON CONFLICT (")
		b.WriteString(strings.Join(target, ", "))
		b.WriteString(") DO UPDATE SET ")
		b.WriteString(strings.Join(sets, ", "))
	}
	b.WriteString(" RETURNING *")
	if hadSemicolon {
		b.WriteString(";")
	}
	st.sql = b.String()
}

// excludedExpr rewrites the right-hand side of an ON DUPLICATE KEY UPDATE
// assignment to col.
func excludedExpr(col, expr string, lits *literalTable) string {
	expr = valuesRefRe.ReplaceAllStringFunc(expr, func(m string) string {
		return "EXCLUDED." + normalizeName(valuesRefRe.FindStringSubmatch(m)[1])
	})
	if m := selfOpRe.FindStringSubmatch(expr); m != nil && bareName(normalizeName(m[1]), lits) == bareName(col, lits) {
		return "EXCLUDED." + col + " " + m[2] + " " + m[3]
	}
	return expr
}

func isInsertIgnore(st *statement) bool {
	ins, ok := parseInsert(st.sql)
	return ok && ins.ignore != nil && !onConflictRe.MatchString(st.sql)
}

func applyInsertIgnore(st *statement) {
	ins, _ := parseInsert(st.sql)
	body, hadSemicolon := trimStatementEnd(ins.withoutIgnore(st.sql))
	st.sql = body + " ON CONFLICT DO NOTHING RETURNING *"
	if hadSemicolon {
		st.sql += ";"
	}
}

// applyReplaceInto rewrites REPLACE as an INSERT that overwrites the row
// sharing the first listed column.
func applyReplaceInto(st *statement) {
	m := replaceHeadRe.FindStringSubmatchIndex(st.sql)
	if m == nil {
		return
	}
	s := st.sql[m[2]:m[3]] + "INSERT INTO " + st.sql[m[1]:]
	ins, ok := parseInsert(s)
	if !ok {
		return
	}
	body, hadSemicolon := trimStatementEnd(s)

	var b strings.Builder
	b.WriteString(body)
	switch len(ins.columns) {
	case 0:
		b.WriteString(" ON CONFLICT DO NOTHING")
	case 1:
		b.WriteString(" ON CONFLICT (" + ins.columns[0] + ") DO NOTHING")
	default:
		sets := make([]string, 0, len(ins.columns)-1)
		for _, c := range ins.columns[1:] {
			sets = append(sets, c+" = EXCLUDED."+c)
		}
		b.WriteString(" ON CONFLICT (" + ins.columns[0] + ") DO UPDATE SET " + strings.Join(sets, ", "))
	}
	b.WriteString(" RETURNING *")
	if hadSemicolon {
		b.WriteString(";")
	}
	st.sql = b.String()
}

func needsReturning(st *statement) bool {
	return !returningRe.MatchString(st.sql)
}

func appendReturning(st *statement) {
	body, hadSemicolon := trimStatementEnd(st.sql)
	st.sql = body + " RETURNING *"
	if hadSemicolon {
		st.sql += ";"
	}
}
