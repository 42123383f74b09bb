package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func writeSQL(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestReplayFiles(t *testing.T) {
	dir := t.TempDir()
	writeSQL(t, dir, "schema.sql", "CREATE TABLE `wp_statistics_visit` (\n"+
		"  `ID` bigint(20) NOT NULL AUTO_INCREMENT,\n"+
		"  `last_counter` date NOT NULL,\n"+
		"  `visit` int(10) NOT NULL,\n"+
		"  PRIMARY KEY (`ID`),\n"+
		"  UNIQUE KEY `unique_date` (`last_counter`)\n"+
		") ENGINE=InnoDB;\n")
	writeSQL(t, dir, "data.sql", "-- visits\n"+
		"INSERT INTO `wp_statistics_visit` (last_counter, visit) VALUES ('2024-04-10', 1) ON DUPLICATE KEY UPDATE visit = visit + 1;\n"+
		"SELECT SQL_CALC_FOUND_ROWS * FROM wp_statistics_visit LIMIT 0, 5;\n"+
		"SELECT FOUND_ROWS();\n")

	cfg := &ShimConfig{configDir: dir, Replay: ReplayConfig{OnError: "stop"}}
	exec := &fakeExec{}
	s := newShim(cfg, zap.NewNop(), nil, "replay")

	stats, err := replayFiles(context.Background(), exec, cfg, s, []string{"schema.sql", "data.sql"})
	require.NoError(t, err)
	assert.Equal(t, replayStats{Files: 2, Statements: 4}, stats)

	require.Len(t, exec.execCalls, 4)
	assert.Equal(t, "CREATE TABLE IF NOT EXISTS wp_statistics_visit (\n"+
		"  \"ID\" bigserial,\n"+
		"  last_counter date NOT NULL,\n"+
		"  visit int NOT NULL,\n"+
		"  PRIMARY KEY (\"ID\")\n"+
		");\n"+
		"CREATE UNIQUE INDEX IF NOT EXISTS wp_statistics_visit_unique_date ON wp_statistics_visit (last_counter);", exec.execCalls[0])
	assert.Equal(t, "INSERT INTO wp_statistics_visit (last_counter, visit) VALUES ('2024-04-10', 1) "+
		"ON CONFLICT (last_counter) DO UPDATE SET visit = EXCLUDED.visit + 1 RETURNING *", exec.execCalls[1])
	assert.Equal(t, "SELECT * FROM wp_statistics_visit LIMIT 5 OFFSET 0", exec.execCalls[2])
	assert.Equal(t, "SELECT COUNT(*) FROM wp_statistics_visit", exec.execCalls[3])
}

func TestReplayFiles_StopsAtFirstError(t *testing.T) {
	dir := t.TempDir()
	writeSQL(t, dir, "a.sql", "DELETE FROM t LIMIT 1; SELECT 1; SELECT 2;")

	cfg := &ShimConfig{configDir: dir, Replay: ReplayConfig{OnError: "stop"}}
	exec := &fakeExec{execErrByStmt: map[string]error{"SELECT 1": errors.New("boom")}}

	stats, err := replayFiles(context.Background(), exec, cfg, newShim(cfg, zap.NewNop(), nil, "replay"), []string{"a.sql"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a.sql: statement 2: boom")
	assert.Contains(t, err.Error(), "SQL: SELECT 1")
	assert.Equal(t, []string{"DELETE FROM t", "SELECT 1"}, exec.execCalls)
	assert.Equal(t, 1, stats.Failed)
}

func TestReplayFiles_ContinueOnError(t *testing.T) {
	dir := t.TempDir()
	writeSQL(t, dir, "a.sql", "SELECT 1; SELECT 2;")

	core, logs := observer.New(zap.WarnLevel)
	cfg := &ShimConfig{configDir: dir, Replay: ReplayConfig{OnError: "continue"}}
	exec := &fakeExec{execErrByStmt: map[string]error{"SELECT 1": errors.New("boom")}}

	stats, err := replayFiles(context.Background(), exec, cfg, newShim(cfg, zap.New(core), nil, "replay"), []string{"a.sql"})
	require.NoError(t, err)
	assert.Equal(t, replayStats{Files: 1, Statements: 2, Failed: 1}, stats)
	assert.Len(t, exec.execCalls, 2)
	assert.Equal(t, 1, logs.FilterMessage("statement failed").Len())
}

func TestReplayFiles_DryRunJournals(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeSQL(t, dir, "a.sql", "SELECT a FROM t LIMIT 0, 20;")

	j, err := openJournal(ctx, filepath.Join(dir, "journal.db"))
	require.NoError(t, err)
	defer j.Close()

	cfg := &ShimConfig{configDir: dir}
	stats, err := replayFiles(ctx, nil, cfg, newShim(cfg, zap.NewNop(), j, "replay"), []string{"a.sql"})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Statements)

	entries, err := j.recent(ctx, 5)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "replay", entries[0].Command)
	assert.Equal(t, "SELECT", entries[0].Kind)
	assert.Equal(t, "SELECT a FROM t LIMIT 20 OFFSET 0", entries[0].Output)
}

func TestReplayFiles_MissingFile(t *testing.T) {
	cfg := &ShimConfig{configDir: t.TempDir()}
	_, err := replayFiles(context.Background(), &fakeExec{}, cfg, newShim(cfg, zap.NewNop(), nil, "replay"), []string{"nope.sql"})
	assert.ErrorContains(t, err, "replay: read nope.sql")
}
