package rewrite

import "go.uber.org/zap"

// statement is the unit a rule chain works on. sql is the shielded text and is
// rewritten in place; literals are only restored once every rule has run.
type statement struct {
	kind    Kind
	sql     string
	lits    *literalTable
	catalog *KeyCatalog
	types   TypeOptions
	log     *zap.Logger
}

type kindSet uint16

func kinds(ks ...Kind) kindSet {
	var s kindSet
	for _, k := range ks {
		s |= 1 << uint(k)
	}
	return s
}

func (s kindSet) has(k Kind) bool {
	return s&(1<<uint(k)) != 0
}

var (
	allKinds  = kinds(KindOther, KindSelect, KindInsert, KindReplace, KindUpdate, KindDelete, KindCreateTable, KindAlterTable)
	dmlKinds  = kinds(KindSelect, KindInsert, KindReplace, KindUpdate, KindDelete)
	// exprKinds also covers fragments and statements the classifier does
	// not name, which may still carry MySQL operators.
	exprKinds = dmlKinds | kinds(KindOther)
)

// rule is one rewrite pass: it runs when the statement kind is in kinds and
// when (if set) reports true.
type rule struct {
	name  string
	kinds kindSet
	when  func(st *statement) bool
	apply func(st *statement)
}

func (r rule) applies(st *statement) bool {
	if !r.kinds.has(st.kind) {
		return false
	}
	return r.when == nil || r.when(st)
}

func runRules(rules []rule, st *statement) {
	for _, r := range rules {
		if r.applies(st) {
			r.apply(st)
		}
	}
}

// replaceRule builds a rule from a plain text transformation.
func replaceRule(name string, ks kindSet, fn func(string) string) rule {
	return rule{
		name:  name,
		kinds: ks,
		apply: func(st *statement) { st.sql = fn(st.sql) },
	}
}

// defaultRules is the ordered chain shared by every Rewriter.
func defaultRules() []rule {
	return []rule{
		replaceRule("backticks", allKinds, replaceBackticks),
		{name: "show-tables", kinds: kinds(KindOther), when: isShowTables, apply: rewriteShowTables},
		{name: "create-table", kinds: kinds(KindCreateTable), apply: applyCreateTable},
		{name: "alter-table", kinds: kinds(KindAlterTable), apply: applyAlterTable},
		replaceRule("sql-calc-found-rows", kinds(KindSelect), stripCalcFoundRows),
		replaceRule("like", exprKinds, likeToILike),
		replaceRule("regexp", exprKinds, regexpToTilde),
		{name: "pattern-literals", kinds: exprKinds, apply: singleQuotePatterns},
		replaceRule("functions", dmlKinds, rewriteFunctions),
		replaceRule("date-cast", kinds(KindSelect, KindUpdate, KindDelete), castDateCalls),
		replaceRule("order-by-int-cast", kinds(KindSelect), castOrderByPlusZero),
		{name: "order-by-literal", kinds: kinds(KindSelect), apply: unquoteOrderByLiteral},
		replaceRule("limit-offset", kinds(KindSelect), limitToOffset),
		replaceRule("dml-limit", kinds(KindUpdate, KindDelete), stripDMLLimit),
		replaceRule("count-group-by", kinds(KindSelect), aliasCountsAndGroup),
		{name: "zero-date", kinds: dmlKinds, apply: replaceZeroDates},
		{name: "on-duplicate-key", kinds: kinds(KindInsert), when: hasOnDuplicate, apply: applyOnDuplicate},
		{name: "insert-ignore", kinds: kinds(KindInsert), when: isInsertIgnore, apply: applyInsertIgnore},
		{name: "replace-into", kinds: kinds(KindReplace), apply: applyReplaceInto},
		{name: "returning", kinds: kinds(KindInsert), when: needsReturning, apply: appendReturning},
		replaceRule("bare-identifiers", exprKinds, quoteBareIdentifiers),
	}
}
