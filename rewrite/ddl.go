package rewrite

import (
	"regexp"
	"strings"

	"go.uber.org/zap"
)

var (
	createTableRe = regexp.MustCompile(`(?is)^(\s*)CREATE\s+(TEMPORARY\s+)?TABLE\s+(?:IF\s+NOT\s+EXISTS\s+)?([^\s(]+)\s*\(`)
	primaryKeyRe  = regexp.MustCompile(`(?is)^(?:CONSTRAINT(?:\s+[^\s(]+)?\s+)?PRIMARY\s+KEY\b\s*(?:[^\s(]+\s*)?\(`)
	keyClauseRe   = regexp.MustCompile(`(?is)^(?:CONSTRAINT(?:\s+([^\s(]+))?\s+)?(?:(UNIQUE|FULLTEXT|SPATIAL)\b\s*)?(?:(KEY|INDEX)\b\s*)?([^\s(]*)\s*\(`)
	constraintRe  = regexp.MustCompile(`(?i)^(?:CONSTRAINT|FOREIGN|CHECK)\b`)
	columnRe      = regexp.MustCompile(`(?is)^("(?:[^"]|"")*"|\S+)\s+([a-z]+(?:\s+(?:precision|varying))?)\b\s*(?:\(([^)]*)\))?(.*)$`)
	keyPartRe     = regexp.MustCompile(`(?is)^(\S+?)\s*(?:\(\s*(\d+)\s*\))?(?:\s+(ASC|DESC))?$`)

	unsignedRe      = regexp.MustCompile(`(?i)\s*\b(?:UNSIGNED|SIGNED)\b`)
	zerofillRe      = regexp.MustCompile(`(?i)\s*\bZEROFILL\b`)
	charsetRe       = regexp.MustCompile(`(?i)\s*\b(?:CHARACTER\s+SET|CHARSET)\s*=?\s*\w+`)
	collateRe       = regexp.MustCompile(`(?i)\s*\bCOLLATE\s*=?\s*(\w+)`)
	onUpdateRe      = regexp.MustCompile(`(?i)\s*\bON\s+UPDATE\s+(?:CURRENT_TIMESTAMP|NOW)(?:\s*\(\s*\d*\s*\))?`)
	columnCommentRe = regexp.MustCompile(`(?i)\s*\bCOMMENT\s+` + litPattern)
	autoIncRe       = regexp.MustCompile(`(?i)\s*\bAUTO_INCREMENT\b`)
	notNullRe       = regexp.MustCompile(`(?i)\s*\bNOT\s+NULL\b`)
	nullRe          = regexp.MustCompile(`(?i)^\s*NULL\b`)
	defaultRe       = regexp.MustCompile(`(?i)\bDEFAULT\s+(` + litPattern + `|[^\s,]+)`)
	inlinePrimaryRe = regexp.MustCompile(`(?i)\bPRIMARY\s+KEY\b`)
	inlineUniqueRe  = regexp.MustCompile(`(?i)\bUNIQUE(?:\s+KEY)?\b`)
	positionRe      = regexp.MustCompile(`(?i)\s*\b(?:FIRST|AFTER\s+\S+)\s*$`)

	tableOptionRe = regexp.MustCompile(`(?i)\s*\b(?:DEFAULT\s+)?(?:ENGINE|TYPE|AUTO_INCREMENT|CHARACTER\s+SET|CHARSET|COLLATE|ROW_FORMAT|COMMENT|KEY_BLOCK_SIZE|PACK_KEYS|CHECKSUM|DELAY_KEY_WRITE|STATS_\w+|AVG_ROW_LENGTH|MAX_ROWS|MIN_ROWS)\b\s*=?\s*(?:` + litPattern + `|[\w.]+)`)
)

// litPattern matches one shielded literal token.
const litPattern = litPrefix + `\d+` + litSuffix

func applyCreateTable(st *statement) {
	out, def, ok := rewriteCreateTable(st.sql, st.lits, st.types, st.log)
	if !ok {
		return
	}
	st.sql = out
	st.catalog.SetTable(bareName(def.Name, st.lits), tableKeys(def))
}

// ParseCreateTable reads a MySQL CREATE TABLE statement without rewriting it.
// Defaults and attributes come back in their PostgreSQL form.
func ParseCreateTable(sql string) (TableDef, bool) {
	shielded, lits := shield(sql)
	if classify(shielded) != KindCreateTable {
		return TableDef{}, false
	}
	_, def, ok := rewriteCreateTable(replaceBackticks(shielded), lits, TypeOptions{}, nil)
	if !ok {
		return TableDef{}, false
	}
	for i := range def.Columns {
		def.Columns[i].Default = restore(def.Columns[i].Default, lits)
		def.Columns[i].Attrs = restore(def.Columns[i].Attrs, lits)
	}
	return def, true
}

// tableKeys lists the keys of def usable as a conflict target.
func tableKeys(def TableDef) []TableKey {
	var keys []TableKey
	if len(def.PrimaryKey) > 0 {
		keys = append(keys, TableKey{Name: "PRIMARY", Columns: def.PrimaryKey, Primary: true})
	}
	for _, k := range def.Keys {
		if !k.Unique {
			continue
		}
		cols := make([]string, len(k.Columns))
		for i, c := range k.Columns {
			cols[i] = c.Name
		}
		keys = append(keys, TableKey{Name: k.Name, Columns: cols})
	}
	return keys
}

// rewriteCreateTable rewrites a shielded CREATE TABLE statement. Secondary
// keys are pulled out of the body and emitted as CREATE INDEX statements.
func rewriteCreateTable(sql string, lits *literalTable, opts TypeOptions, log *zap.Logger) (string, TableDef, bool) {
	if log == nil {
		log = zap.NewNop()
	}
	m := createTableRe.FindStringSubmatchIndex(sql)
	if m == nil {
		return sql, TableDef{}, false
	}
	open := m[1] - 1
	closing := matchParen(sql, open)
	if closing < 0 {
		return sql, TableDef{}, false
	}

	lead := sql[m[2]:m[3]]
	temporary := m[4] >= 0
	table := normalizeName(sql[m[6]:m[7]])
	body := sql[open+1 : closing]
	tail := sql[closing+1:]

	def := TableDef{Name: table}
	tableBare := bareName(lastSegment(table), lits)

	var kept []string
	var indexes []string
	for _, raw := range splitTopLevel(body) {
		itemLead, item, _ := splitSpace(raw)
		if item == "" {
			continue
		}

		if loc := primaryKeyRe.FindStringIndex(item); loc != nil {
			parts, rendered := keyColumns(item, loc[1]-1, lits)
			for _, p := range parts {
				def.PrimaryKey = append(def.PrimaryKey, p.Name)
			}
			kept = append(kept, itemLead+"PRIMARY KEY ("+rendered+")")
			continue
		}

		if km := keyClauseRe.FindStringSubmatchIndex(item); km != nil && (km[4] >= 0 || km[6] >= 0) {
			key, rendered := parseKeyClause(item, km, lits)
			if key.Kind != "" {
				log.Debug("dropping key", zap.String("table", tableBare), zap.String("kind", key.Kind), zap.String("key", key.Name))
				def.DroppedKeys = append(def.DroppedKeys, key)
				continue
			}
			def.Keys = append(def.Keys, key)
			indexes = append(indexes, createIndexSQL(table, tableBare, key, rendered)+";")
			continue
		}

		if constraintRe.MatchString(item) {
			kept = append(kept, itemLead+item)
			continue
		}

		col, rendered, ok := rewriteColumn(item, lits, opts, false)
		if !ok {
			kept = append(kept, itemLead+item)
			continue
		}
		def.Columns = append(def.Columns, col)
		if inlinePrimaryRe.MatchString(col.Attrs) {
			def.PrimaryKey = []string{bareName(col.Name, lits)}
		} else if inlineUniqueRe.MatchString(col.Attrs) {
			def.Keys = append(def.Keys, KeyDef{
				Name:    bareName(col.Name, lits),
				Unique:  true,
				Columns: []KeyPart{{Name: bareName(col.Name, lits)}},
			})
		}
		kept = append(kept, itemLead+rendered)
	}

	trimmedBody := strings.TrimRight(body, " \t\r\n")
	bodyTrail := body[len(trimmedBody):]

	if cm := collateRe.FindStringSubmatch(tail); cm != nil {
		def.Collation = cm[1]
	}
	leftover, _ := trimStatementEnd(tableOptionRe.ReplaceAllString(tail, ""))

	var b strings.Builder
	b.WriteString(lead)
	b.WriteString("CREATE ")
	if temporary {
		b.WriteString("TEMPORARY ")
	}
	b.WriteString("TABLE IF NOT EXISTS ")
	b.WriteString(table)
	b.WriteString(" (")
	b.WriteString(strings.Join(kept, ","))
	b.WriteString(bodyTrail)
	b.WriteString(")")
	b.WriteString(leftover)
	b.WriteString(";")
	for _, idx := range indexes {
		b.WriteString("\n")
		b.WriteString(idx)
	}
	return b.String(), def, true
}

// parseKeyClause reads a [UNIQUE|FULLTEXT|SPATIAL] KEY|INDEX clause matched by
// keyClauseRe and returns the key with its rendered column list.
func parseKeyClause(item string, km []int, lits *literalTable) (KeyDef, string) {
	var key KeyDef
	if km[4] >= 0 {
		switch kind := strings.ToUpper(item[km[4]:km[5]]); kind {
		case "UNIQUE":
			key.Unique = true
		default:
			key.Kind = kind
		}
	}
	if km[8] < km[9] {
		key.Name = item[km[8]:km[9]]
	} else if km[2] >= 0 {
		key.Name = item[km[2]:km[3]]
	}

	parts, rendered := keyColumns(item, km[1]-1, lits)
	key.Columns = parts
	if key.Name == "" && len(parts) > 0 {
		key.Name = parts[0].Name
	}
	key.Name = bareName(key.Name, lits)
	return key, rendered
}

// keyColumns parses the parenthesised column list opening at open. It returns
// the bare column names and the list rendered for PostgreSQL, with prefix
// lengths removed.
func keyColumns(item string, open int, lits *literalTable) ([]KeyPart, string) {
	closing := matchParen(item, open)
	if closing < 0 {
		closing = len(item)
	}
	list := item[open+1 : closing]

	var parts []KeyPart
	rendered := mapItems(list, func(col string) string {
		m := keyPartRe.FindStringSubmatch(col)
		if m == nil {
			return col
		}
		parts = append(parts, KeyPart{Name: bareName(m[1], lits), Prefix: m[2]})
		out := normalizeName(m[1])
		if m[3] != "" {
			out += " " + strings.ToUpper(m[3])
		}
		return out
	})
	return parts, rendered
}

func createIndexSQL(table, tableBare string, key KeyDef, cols string) string {
	var b strings.Builder
	b.WriteString("CREATE ")
	if key.Unique {
		b.WriteString("UNIQUE ")
	}
	b.WriteString("INDEX IF NOT EXISTS ")
	b.WriteString(quoteIdent(indexName(tableBare, key.Name)))
	b.WriteString(" ON ")
	b.WriteString(table)
	b.WriteString(" (")
	b.WriteString(strings.TrimSpace(cols))
	b.WriteString(")")
	return b.String()
}

// indexName derives the schema-wide index name for a table-local MySQL key.
func indexName(tableBare, keyName string) string {
	return tableBare + "_" + keyName
}

func lastSegment(name string) string {
	depth := false
	for i := len(name) - 1; i >= 0; i-- {
		switch name[i] {
		case '"':
			depth = !depth
		case '.':
			if !depth {
				return name[i+1:]
			}
		}
	}
	return name
}

// rewriteColumn rewrites one column definition. With alter set the column is
// being changed in place, so auto-increment maps to the plain integer type.
func rewriteColumn(item string, lits *literalTable, opts TypeOptions, alter bool) (ColumnDef, string, bool) {
	m := columnRe.FindStringSubmatch(item)
	if m == nil {
		return ColumnDef{}, item, false
	}
	col := ColumnDef{
		Name:     normalizeName(m[1]),
		DataType: strings.ToLower(strings.Join(strings.Fields(m[2]), " ")),
		Args:     m[3],
	}
	attrs := m[4]

	if unsignedRe.MatchString(attrs) {
		col.Unsigned = strings.Contains(strings.ToUpper(attrs), "UNSIGNED")
		attrs = unsignedRe.ReplaceAllString(attrs, "")
	}
	if cm := collateRe.FindStringSubmatch(attrs); cm != nil {
		col.Collation = cm[1]
	}
	for _, re := range []*regexp.Regexp{zerofillRe, charsetRe, collateRe, onUpdateRe, columnCommentRe} {
		attrs = re.ReplaceAllString(attrs, "")
	}
	if autoIncRe.MatchString(attrs) {
		col.AutoIncrement = true
		attrs = autoIncRe.ReplaceAllString(attrs, "")
	}
	col.NotNull = notNullRe.MatchString(attrs)
	if col.AutoIncrement {
		attrs = notNullRe.ReplaceAllString(attrs, "")
		attrs = nullRe.ReplaceAllString(attrs, "")
	}
	if dm := defaultRe.FindStringSubmatchIndex(attrs); dm != nil {
		col.Default = attrs[dm[2]:dm[3]]
	}

	mapCol := col
	if alter {
		mapCol.AutoIncrement = false
	}
	pgType := MapType(mapCol, opts)

	if col.Default != "" {
		if d, ok := pgDefault(col, pgType, lits); ok {
			attrs = defaultRe.ReplaceAllLiteralString(attrs, "DEFAULT "+d)
			col.Default = d
		}
	}
	if opts.EnumCheck && col.DataType == "enum" && col.Args != "" {
		attrs += " CHECK (" + col.Name + " IN (" + col.Args + "))"
	}

	col.Attrs = strings.Join(strings.Fields(attrs), " ")
	rendered := col.Name + " " + pgType
	if col.Attrs != "" {
		rendered += " " + col.Attrs
	}
	return col, rendered, true
}

// pgDefault converts a MySQL default that PostgreSQL would reject.
func pgDefault(col ColumnDef, pgType string, lits *literalTable) (string, bool) {
	value := col.Default
	if l, ok := lits.lookup(value); ok {
		value = l.body()
		if isTemporalType(col.DataType) && isZeroDate(value) {
			if col.DataType == "date" {
				return "CURRENT_DATE", true
			}
			return "now()", true
		}
	}
	if pgType == "boolean" {
		switch value {
		case "0":
			return "false", true
		case "1":
			return "true", true
		}
	}
	return "", false
}

var (
	alterTableRe = regexp.MustCompile(`(?is)^(\s*)ALTER\s+TABLE\s+([^\s(]+)\s+`)
	addRe        = regexp.MustCompile(`(?is)^ADD\s+`)
	addColumnRe  = regexp.MustCompile(`(?is)^ADD\s+(?:COLUMN\s+)?`)
	addPrimaryRe = regexp.MustCompile(`(?is)^ADD\s+(?:CONSTRAINT(?:\s+[^\s(]+)?\s+)?PRIMARY\s+KEY\b\s*(?:[^\s(]+\s*)?\(`)
	modifyRe     = regexp.MustCompile(`(?is)^MODIFY\s+(?:COLUMN\s+)?`)
	changeRe     = regexp.MustCompile(`(?is)^CHANGE\s+(?:COLUMN\s+)?(\S+)\s+`)
	dropIndexRe  = regexp.MustCompile(`(?is)^DROP\s+(?:INDEX|KEY)\s+(\S+)$`)
)

func applyAlterTable(st *statement) {
	if out, ok := rewriteAlterTable(st.sql, st.lits, st.types, st.catalog); ok {
		st.sql = out
	}
}

// rewriteAlterTable rewrites the ALTER TABLE specifications PostgreSQL spells
// differently. Index changes and renames become separate statements.
func rewriteAlterTable(sql string, lits *literalTable, opts TypeOptions, catalog *KeyCatalog) (string, bool) {
	m := alterTableRe.FindStringSubmatchIndex(sql)
	if m == nil {
		return sql, false
	}
	lead := sql[m[2]:m[3]]
	table := normalizeName(sql[m[4]:m[5]])
	tableBare := bareName(lastSegment(table), lits)
	specs, hadSemicolon := trimStatementEnd(sql[m[1]:])

	var before, alters, after []string
	for _, raw := range splitTopLevel(specs) {
		_, spec, _ := splitSpace(raw)
		if spec == "" {
			continue
		}

		switch {
		case addPrimaryRe.MatchString(spec):
			loc := addPrimaryRe.FindStringIndex(spec)
			parts, rendered := keyColumns(spec, loc[1]-1, lits)
			cols := make([]string, len(parts))
			for i, p := range parts {
				cols[i] = p.Name
			}
			catalog.Register(tableBare, TableKey{Name: "PRIMARY", Columns: cols, Primary: true})
			alters = append(alters, "ADD PRIMARY KEY ("+rendered+")")

		case addRe.MatchString(spec) && isKeyClause(spec[len(addRe.FindString(spec)):]):
			rest := spec[len(addRe.FindString(spec)):]
			km := keyClauseRe.FindStringSubmatchIndex(rest)
			key, rendered := parseKeyClause(rest, km, lits)
			if key.Kind != "" {
				continue
			}
			if key.Unique {
				cols := make([]string, len(key.Columns))
				for i, c := range key.Columns {
					cols[i] = c.Name
				}
				catalog.Register(tableBare, TableKey{Name: key.Name, Columns: cols})
			}
			after = append(after, createIndexSQL(table, tableBare, key, rendered))

		case addRe.MatchString(spec) && constraintRe.MatchString(spec[len(addRe.FindString(spec)):]):
			alters = append(alters, spec)

		case addColumnRe.MatchString(spec):
			def := positionRe.ReplaceAllString(spec[len(addColumnRe.FindString(spec)):], "")
			if _, rendered, ok := rewriteColumn(def, lits, opts, false); ok {
				alters = append(alters, "ADD COLUMN "+rendered)
			} else {
				alters = append(alters, spec)
			}

		case modifyRe.MatchString(spec):
			def := positionRe.ReplaceAllString(spec[len(modifyRe.FindString(spec)):], "")
			alters = append(alters, alterColumn(def, lits, opts, spec)...)

		case changeRe.MatchString(spec):
			cm := changeRe.FindStringSubmatch(spec)
			oldName := normalizeName(cm[1])
			def := positionRe.ReplaceAllString(spec[len(cm[0]):], "")
			if col, _, ok := rewriteColumn(def, lits, opts, true); ok && bareName(col.Name, lits) != bareName(oldName, lits) {
				before = append(before, "ALTER TABLE "+table+" RENAME COLUMN "+oldName+" TO "+col.Name)
			}
			alters = append(alters, alterColumn(def, lits, opts, spec)...)

		case dropIndexRe.MatchString(spec):
			name := bareName(normalizeName(dropIndexRe.FindStringSubmatch(spec)[1]), lits)
			after = append(after, "DROP INDEX IF EXISTS "+quoteIdent(indexName(tableBare, name)))

		default:
			alters = append(alters, spec)
		}
	}

	var stmts []string
	stmts = append(stmts, before...)
	if len(alters) > 0 {
		stmts = append(stmts, "ALTER TABLE "+table+" "+strings.Join(alters, ", "))
	}
	stmts = append(stmts, after...)
	if len(stmts) == 0 {
		return sql, false
	}

	out := lead + strings.Join(stmts, ";\n")
	if hadSemicolon {
		out += ";"
	}
	return out, true
}

func isKeyClause(s string) bool {
	km := keyClauseRe.FindStringSubmatchIndex(s)
	return km != nil && (km[4] >= 0 || km[6] >= 0)
}

// alterColumn turns a MySQL column redefinition into ALTER COLUMN actions.
func alterColumn(def string, lits *literalTable, opts TypeOptions, original string) []string {
	col, _, ok := rewriteColumn(def, lits, opts, true)
	if !ok {
		return []string{original}
	}
	mapCol := col
	mapCol.AutoIncrement = false
	pgType := MapType(mapCol, opts)

	name := col.Name
	actions := []string{"ALTER COLUMN " + name + " TYPE " + pgType}
	if col.NotNull || col.AutoIncrement {
		actions = append(actions, "ALTER COLUMN "+name+" SET NOT NULL")
	} else {
		actions = append(actions, "ALTER COLUMN "+name+" DROP NOT NULL")
	}
	if col.Default != "" && !col.AutoIncrement {
		actions = append(actions, "ALTER COLUMN "+name+" SET DEFAULT "+col.Default)
	}
	return actions
}
