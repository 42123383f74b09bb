// Package rewrite translates MySQL-dialect SQL statements into PostgreSQL.
//
// A statement goes through the literal shield, is classified by its leading
// keywords, runs through the rule chain for its kind and has its literals
// restored. Rewriting never fails: anything the rules do not recognise is
// passed through unchanged.
package rewrite

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// Session carries the state that spans statements of one request: the last
// main query, which a later SELECT FOUND_ROWS() counts. A Session is not safe
// for concurrent use.
type Session struct {
	lastQuery string
}

func NewSession() *Session {
	return &Session{}
}

// LastQuery returns the raw text of the last SELECT that read from a table.
func (s *Session) LastQuery() string {
	if s == nil {
		return ""
	}
	return s.lastQuery
}

// Reset forgets the last main query.
func (s *Session) Reset() {
	if s != nil {
		s.lastQuery = ""
	}
}

func (s *Session) remember(sql string) {
	if s != nil {
		s.lastQuery = sql
	}
}

// Rewriter holds a rule chain and the state shared by every statement it
// rewrites. It is safe for concurrent use.
type Rewriter struct {
	rules   []rule
	catalog *KeyCatalog
	memo    *lru.Cache[string, string]
	log     *zap.Logger
	types   TypeOptions
}

type Option func(*Rewriter)

// WithLogger makes the Rewriter log every statement at debug level.
func WithLogger(log *zap.Logger) Option {
	return func(r *Rewriter) {
		if log != nil {
			r.log = log
		}
	}
}

// WithMemo caches up to size rewritten statements. Statements whose rewrite
// depends on the key catalog or the session are never cached.
func WithMemo(size int) Option {
	return func(r *Rewriter) {
		if size <= 0 {
			r.memo = nil
			return
		}
		memo, err := lru.New[string, string](size)
		if err != nil {
			r.log.Warn("rewrite memo disabled", zap.Error(err))
			return
		}
		r.memo = memo
	}
}

// WithCatalog shares a key catalog between Rewriters or seeds one up front.
func WithCatalog(c *KeyCatalog) Option {
	return func(r *Rewriter) {
		if c != nil {
			r.catalog = c
		}
	}
}

func WithTypeOptions(opts TypeOptions) Option {
	return func(r *Rewriter) {
		r.types = opts
	}
}

func New(opts ...Option) *Rewriter {
	r := &Rewriter{
		rules:   defaultRules(),
		catalog: NewKeyCatalog(),
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Catalog returns the key catalog used for upsert conflict targets.
func (r *Rewriter) Catalog() *KeyCatalog {
	return r.catalog
}

var defaultRewriter = New()

// Rewrite rewrites sql with a Rewriter using the default options.
func Rewrite(sess *Session, sql string) string {
	return defaultRewriter.Rewrite(sess, sql)
}

// Rewrite returns the PostgreSQL form of one MySQL statement. A SELECT that
// reads from a table is remembered in sess for a later FOUND_ROWS() lookup;
// sess may be nil when no such lookup will follow.
func (r *Rewriter) Rewrite(sess *Session, sql string) (out string) {
	start := time.Now()
	kind := KindOther
	defer func() {
		if p := recover(); p != nil {
			r.log.Warn("rewrite failed, passing statement through", zap.Any("panic", p), zap.String("in", sql))
			out = sql
		}
		if ce := r.log.Check(zap.DebugLevel, "rewrite"); ce != nil {
			ce.Write(
				zap.Stringer("kind", kind),
				zap.String("in", sql),
				zap.String("out", out),
				zap.Duration("elapsed", time.Since(start)),
			)
		}
	}()

	shielded, lits := shield(sql)
	kind = classify(shielded)

	if kind == KindSelect {
		if isFoundRowsLookup(shielded) {
			q, qlits := foundRowsQuery(sess.LastQuery())
			return r.run(KindSelect, q, qlits)
		}
		if hasTopLevelFrom(shielded) {
			sess.remember(sql)
		}
	}

	if r.memo != nil && memoizable(kind) {
		if cached, ok := r.memo.Get(sql); ok {
			return cached
		}
		out = r.run(kind, shielded, lits)
		r.memo.Add(sql, out)
		return out
	}
	return r.run(kind, shielded, lits)
}

func (r *Rewriter) run(kind Kind, shielded string, lits *literalTable) string {
	st := &statement{
		kind:    kind,
		sql:     shielded,
		lits:    lits,
		catalog: r.catalog,
		types:   r.types,
		log:     r.log,
	}
	runRules(r.rules, st)
	return restore(st.sql, st.lits)
}

// memoizable reports whether statements of kind rewrite the same way every
// time. DDL feeds the key catalog and inserts read it.
func memoizable(kind Kind) bool {
	switch kind {
	case KindSelect, KindUpdate, KindDelete, KindOther:
		return true
	}
	return false
}

// MemoLen returns the number of cached rewrites.
func (r *Rewriter) MemoLen() int {
	if r.memo == nil {
		return 0
	}
	return r.memo.Len()
}
