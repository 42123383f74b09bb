package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

type statementExecutor interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type replayStats struct {
	Files      int
	Statements int
	Failed     int
}

// replayFiles reads each SQL file, rewrites every statement through one
// session and executes the result. With replay.on_error "continue" failures are
// logged and counted; otherwise the first failure is returned. A nil exec
// rewrites without executing.
func replayFiles(ctx context.Context, exec statementExecutor, cfg *ShimConfig, s *shim, files []string) (replayStats, error) {
	var stats replayStats
	if len(files) == 0 {
		return stats, nil
	}
	s.log.Sugar().Infof("  replaying %d files...", len(files))

	for _, f := range files {
		path := cfg.resolvePath(f)
		data, err := os.ReadFile(path)
		if err != nil {
			return stats, fmt.Errorf("replay: read %s: %w", f, err)
		}

		stmts := splitStatements(string(data))
		s.log.Sugar().Infof("    %s: %d statements", f, len(stmts))
		stats.Files++

		for i, stmt := range stmts {
			out := s.rewrite(stmt)
			stats.Statements++
			if exec == nil {
				s.note(ctx, stmt, out, nil)
				continue
			}

			_, execErr := exec.Exec(ctx, out)
			s.note(ctx, stmt, out, execErr)
			if execErr == nil {
				continue
			}
			stats.Failed++
			if cfg.Replay.OnError != "continue" {
				return stats, fmt.Errorf("replay: %s: statement %d: %w\nSQL: %s", f, i+1, execErr, out)
			}
			s.log.Warn("statement failed",
				zap.String("file", f),
				zap.Int("statement", i+1),
				zap.String("sql", out),
				zap.Error(execErr),
			)
		}
	}
	return stats, nil
}
