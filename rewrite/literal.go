package rewrite

import (
	"strconv"
	"strings"
)

// Placeholders are word-shaped so that \b-anchored patterns treat them as a
// single opaque token.
const (
	litPrefix = "__pglit"
	litSuffix = "__"
)

type literal struct {
	quote byte   // ' or "
	text  string // full literal including delimiters
}

// body returns the literal content without delimiters.
func (l literal) body() string {
	if len(l.text) >= 2 && l.text[len(l.text)-1] == l.quote {
		return l.text[1 : len(l.text)-1]
	}
	return l.text[1:]
}

// literalTable holds the literals pulled out of one statement.
type literalTable struct {
	lits []literal
}

func (t *literalTable) add(quote byte, text string) string {
	t.lits = append(t.lits, literal{quote: quote, text: text})
	return placeholder(len(t.lits) - 1)
}

func placeholder(n int) string {
	return litPrefix + strconv.Itoa(n) + litSuffix
}

// lookup resolves a placeholder token back to its literal.
func (t *literalTable) lookup(token string) (literal, bool) {
	n, ok := placeholderIndex(token)
	if !ok || t == nil || n >= len(t.lits) {
		return literal{}, false
	}
	return t.lits[n], true
}

// replace swaps the literal behind a placeholder token.
func (t *literalTable) replace(token string, l literal) {
	n, ok := placeholderIndex(token)
	if !ok || t == nil || n >= len(t.lits) {
		return
	}
	t.lits[n] = l
}

func placeholderIndex(token string) (int, bool) {
	if !strings.HasPrefix(token, litPrefix) || !strings.HasSuffix(token, litSuffix) {
		return 0, false
	}
	digits := token[len(litPrefix) : len(token)-len(litSuffix)]
	if digits == "" {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func isPlaceholder(token string) bool {
	_, ok := placeholderIndex(token)
	return ok
}

// shield replaces every single- and double-quoted literal with a placeholder.
// Backtick-quoted identifiers are copied through untouched so quotes inside
// them do not open a literal. An unterminated literal runs to the end of the
// input.
func shield(sql string) (string, *literalTable) {
	t := &literalTable{}
	var b strings.Builder
	b.Grow(len(sql))

	for i := 0; i < len(sql); i++ {
		c := sql[i]
		switch c {
		case '\'', '"':
			end := scanQuoted(sql, i)
			b.WriteString(t.add(c, sql[i:end]))
			i = end - 1
		case '`':
			end := strings.IndexByte(sql[i+1:], '`')
			if end < 0 {
				b.WriteString(sql[i:])
				return b.String(), t
			}
			b.WriteString(sql[i : i+end+2])
			i += end + 1
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), t
}

// scanQuoted returns the offset just past the literal opening at start.
// Doubled delimiters and backslash escapes stay inside the literal.
func scanQuoted(sql string, start int) int {
	q := sql[start]
	for i := start + 1; i < len(sql); i++ {
		switch sql[i] {
		case '\\':
			i++
		case q:
			if i+1 < len(sql) && sql[i+1] == q {
				i++
				continue
			}
			return i + 1
		}
	}
	return len(sql)
}

// restore puts the shielded literals back. Tokens that look like placeholders
// but do not resolve are left as they are.
func restore(shielded string, t *literalTable) string {
	if t == nil || len(t.lits) == 0 {
		return shielded
	}
	var b strings.Builder
	b.Grow(len(shielded))

	rest := shielded
	for {
		i := strings.Index(rest, litPrefix)
		if i < 0 {
			b.WriteString(rest)
			break
		}
		b.WriteString(rest[:i])
		rest = rest[i:]

		j := len(litPrefix)
		for j < len(rest) && rest[j] >= '0' && rest[j] <= '9' {
			j++
		}
		if j > len(litPrefix) && strings.HasPrefix(rest[j:], litSuffix) {
			token := rest[:j+len(litSuffix)]
			if l, ok := t.lookup(token); ok {
				b.WriteString(l.text)
				rest = rest[len(token):]
				continue
			}
		}
		b.WriteString(litPrefix)
		rest = rest[len(litPrefix):]
	}
	return b.String()
}
