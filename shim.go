package main

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/Limetric/pgshim/rewrite"
)

// shim ties one rewriter session to a command: every statement a command
// handles is rewritten through the same Session and noted in the journal.
type shim struct {
	rw      *rewrite.Rewriter
	sess    *rewrite.Session
	journal *journal
	log     *zap.Logger
	command string
}

func newShim(cfg *ShimConfig, log *zap.Logger, j *journal, command string) *shim {
	opts := []rewrite.Option{rewrite.WithLogger(log.Named("rewrite"))}
	catalog := rewrite.NewKeyCatalog()
	if cfg != nil {
		cfg.seedCatalog(catalog)
		opts = append(opts,
			rewrite.WithMemo(cfg.Rewrite.MemoSize),
			rewrite.WithTypeOptions(cfg.typeOptions()),
		)
	}
	opts = append(opts, rewrite.WithCatalog(catalog))

	return &shim{
		rw:      rewrite.New(opts...),
		sess:    rewrite.NewSession(),
		journal: j,
		log:     log,
		command: command,
	}
}

func (s *shim) catalog() *rewrite.KeyCatalog {
	return s.rw.Catalog()
}

func (s *shim) rewrite(sql string) string {
	return s.rw.Rewrite(s.sess, sql)
}

// note journals one statement. execErr is the error PostgreSQL returned, if
// the statement was executed. Journal failures are logged, never returned.
func (s *shim) note(ctx context.Context, in, out string, execErr error) {
	if s.journal == nil {
		return
	}
	e := journalEntry{
		Command: s.command,
		Kind:    rewrite.Classify(in).String(),
		Input:   in,
		Output:  out,
	}
	if execErr != nil {
		e.Error = execErr.Error()
	}
	if err := s.journal.record(ctx, e); err != nil {
		s.log.Warn("journal write failed", zap.Error(err))
	}
}

// terminate makes a rewritten statement runnable as part of a psql script.
func terminate(sql string) string {
	sql = strings.TrimSpace(sql)
	if sql == "" || strings.HasSuffix(sql, ";") {
		return sql
	}
	return sql + ";"
}
