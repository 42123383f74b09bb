package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Limetric/pgshim/rewrite"
)

var (
	configPath string
	logJSON    bool
	debugLog   bool
	dryRun     bool
	applyDDL   bool
	journalMax int
)

var rootCmd = &cobra.Command{
	Use:           "pgshim",
	Short:         "MySQL to PostgreSQL statement rewriter",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var rewriteCmd = &cobra.Command{
	Use:   "rewrite [file.sql]",
	Short: "Rewrite MySQL statements from a file or stdin and print the PostgreSQL form",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRewriteCmd,
}

var replayCmd = &cobra.Command{
	Use:   "replay [config.toml]",
	Short: "Rewrite the configured SQL files and execute them against PostgreSQL",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runReplayCmd,
}

var schemaCmd = &cobra.Command{
	Use:   "schema [config.toml]",
	Short: "Export MySQL table definitions as PostgreSQL DDL",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSchemaCmd,
}

var journalCmd = &cobra.Command{
	Use:   "journal [config.toml]",
	Short: "Show the most recent journaled rewrites",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runJournalCmd,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the pgshim version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), versionString())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to pgshim TOML config file")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "log in JSON instead of console format")
	rootCmd.PersistentFlags().BoolVar(&debugLog, "debug", false, "log every rewritten statement")

	replayCmd.Flags().BoolVar(&dryRun, "dry-run", false, "rewrite without connecting to PostgreSQL")
	schemaCmd.Flags().BoolVar(&applyDDL, "apply", false, "execute the rewritten DDL against the target instead of printing it")
	journalCmd.Flags().IntVar(&journalMax, "limit", 20, "number of entries to show")

	rootCmd.AddCommand(rewriteCmd, replayCmd, schemaCmd, journalCmd, versionCmd)
	rootCmd.Version = versionString()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// resolveConfig loads the config named by the positional arg or --config.
// The positional arg takes precedence.
func resolveConfig(args []string, required bool) (*ShimConfig, error) {
	cfgPath := configPath
	if len(args) > 0 {
		cfgPath = args[0]
	}
	if cfgPath == "" {
		if required {
			return nil, fmt.Errorf("config file required: pgshim <command> <config.toml> or --config <config.toml>")
		}
		return nil, nil
	}
	return loadConfig(cfgPath)
}

func openConfiguredJournal(ctx context.Context, cfg *ShimConfig) (*journal, error) {
	if cfg == nil || cfg.Journal.Path == "" {
		return nil, nil
	}
	return openJournal(ctx, cfg.resolvePath(cfg.Journal.Path))
}

func runRewriteCmd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := newLogger(logJSON, debugLog)
	defer log.Sync()

	cfg, err := resolveConfig(nil, false)
	if err != nil {
		return err
	}
	j, err := openConfiguredJournal(ctx, cfg)
	if err != nil {
		return err
	}
	defer j.Close()

	in := cmd.InOrStdin()
	if len(args) > 0 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		in = f
	}

	return rewriteStream(ctx, in, cmd.OutOrStdout(), newShim(cfg, log, j, "rewrite"))
}

// rewriteStream rewrites every statement read from r through one session and
// writes them to w as a psql script.
func rewriteStream(ctx context.Context, r io.Reader, w io.Writer, s *shim) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	bw := bufio.NewWriter(w)
	for i, stmt := range splitStatements(string(data)) {
		out := s.rewrite(stmt)
		s.note(ctx, stmt, out, nil)
		if i > 0 {
			bw.WriteString("\n")
		}
		bw.WriteString(terminate(out))
		bw.WriteString("\n")
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func runReplayCmd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := newLogger(logJSON, debugLog)
	defer log.Sync()
	sugar := log.Sugar()

	cfg, err := resolveConfig(args, true)
	if err != nil {
		return err
	}
	if dryRun {
		cfg.Replay.DryRun = true
	}
	if len(cfg.Replay.Files) == 0 {
		return fmt.Errorf("replay.files is empty")
	}

	start := time.Now()
	sugar.Infof("pgshim replay: %d files, on_error=%s dry_run=%t", len(cfg.Replay.Files), cfg.Replay.OnError, cfg.Replay.DryRun)

	j, err := openConfiguredJournal(ctx, cfg)
	if err != nil {
		return err
	}
	defer j.Close()

	s := newShim(cfg, log, j, "replay")

	var exec statementExecutor
	if !cfg.Replay.DryRun {
		if err := cfg.requireTarget(); err != nil {
			return err
		}
		sugar.Infof("connecting to PostgreSQL...")
		pool, err := connectPostgres(ctx, cfg.Target.DSN, cfg.Target.Schema, 1)
		if err != nil {
			return err
		}
		defer pool.Close()

		if cfg.Target.Schema != "" {
			sugar.Infof("preparing schema '%s'...", cfg.Target.Schema)
			if err := prepareTargetSchema(ctx, pool, cfg.Target.Schema, cfg.Target.OnSchemaExists); err != nil {
				return err
			}
		}
		if cfg.Replay.SeedKeys {
			n, err := seedCatalogFromPostgres(ctx, pool, cfg.Target.Schema, s.catalog())
			if err != nil {
				return fmt.Errorf("seed key catalog: %w", err)
			}
			sugar.Infof("  loaded %d unique keys from target", n)
		}
		exec = pool
	}

	stats, err := replayFiles(ctx, exec, cfg, s, cfg.Replay.Files)
	if err != nil {
		return err
	}
	sugar.Infof("replay completed in %s: %d statements, %d failed",
		time.Since(start).Round(time.Millisecond), stats.Statements, stats.Failed)
	if stats.Failed > 0 {
		return fmt.Errorf("replay: %d of %d statements failed", stats.Failed, stats.Statements)
	}
	return nil
}

func runSchemaCmd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := newLogger(logJSON, debugLog)
	defer log.Sync()
	sugar := log.Sugar()

	cfg, err := resolveConfig(args, true)
	if err != nil {
		return err
	}
	if err := cfg.requireSource(); err != nil {
		return err
	}
	if applyDDL {
		if err := cfg.requireTarget(); err != nil {
			return err
		}
	}

	start := time.Now()
	sugar.Infof("connecting to MySQL...")
	db, err := openMySQL(ctx, cfg.Source.DSN, cfg.Source.Charset, cfg.Workers)
	if err != nil {
		return err
	}
	defer db.Close()

	dbName, err := extractMySQLDBName(cfg.Source.DSN)
	if err != nil {
		return err
	}

	sugar.Infof("reading MySQL schema '%s'...", dbName)
	tables, err := listMySQLTables(ctx, db, dbName)
	if err != nil {
		return fmt.Errorf("list tables: %w", err)
	}
	deps, err := listMySQLForeignKeyDeps(ctx, db, dbName)
	if err != nil {
		return fmt.Errorf("list foreign keys: %w", err)
	}
	tables = orderByForeignKeys(tables, deps)
	sugar.Infof("found %d tables, fetching definitions with %d workers", len(tables), cfg.Workers)

	ddls, err := fetchCreateStatements(ctx, db, tables, cfg.Workers)
	if err != nil {
		return err
	}

	defs := make([]rewrite.TableDef, 0, len(ddls))
	for _, d := range ddls {
		if def, ok := rewrite.ParseCreateTable(d.Create); ok {
			defs = append(defs, def)
		}
	}
	if warnings := collectSchemaWarnings(defs); len(warnings) > 0 {
		sugar.Infof("compatibility report: %d item(s) may require manual handling", len(warnings))
		for _, w := range warnings {
			sugar.Warnf("  %s", w)
		}
	}

	j, err := openConfiguredJournal(ctx, cfg)
	if err != nil {
		return err
	}
	defer j.Close()
	s := newShim(cfg, log, j, "schema")

	if !applyDDL {
		w := bufio.NewWriter(cmd.OutOrStdout())
		for _, d := range ddls {
			out := s.rewrite(d.Create)
			s.note(ctx, d.Create, out, nil)
			fmt.Fprintf(w, "-- %s\n%s\n\n", d.Name, terminate(out))
		}
		return w.Flush()
	}

	sugar.Infof("connecting to PostgreSQL...")
	pool, err := connectPostgres(ctx, cfg.Target.DSN, cfg.Target.Schema, 1)
	if err != nil {
		return err
	}
	defer pool.Close()
	if cfg.Target.Schema != "" {
		sugar.Infof("preparing schema '%s'...", cfg.Target.Schema)
		if err := prepareTargetSchema(ctx, pool, cfg.Target.Schema, cfg.Target.OnSchemaExists); err != nil {
			return err
		}
	}

	for _, d := range ddls {
		out := s.rewrite(d.Create)
		sugar.Infof("  creating %s", d.Name)
		_, execErr := pool.Exec(ctx, out)
		s.note(ctx, d.Create, out, execErr)
		if execErr != nil {
			return fmt.Errorf("create table %s: %w\nSQL: %s", d.Name, execErr, out)
		}
	}
	sugar.Infof("schema applied in %s", time.Since(start).Round(time.Millisecond))
	return nil
}

func runJournalCmd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := resolveConfig(args, true)
	if err != nil {
		return err
	}
	if cfg.Journal.Path == "" {
		return fmt.Errorf("journal.path is not set")
	}
	j, err := openConfiguredJournal(ctx, cfg)
	if err != nil {
		return err
	}
	defer j.Close()

	entries, err := j.recent(ctx, journalMax)
	if err != nil {
		return err
	}
	return printJournal(cmd.OutOrStdout(), entries)
}

func printJournal(w io.Writer, entries []journalEntry) error {
	bw := bufio.NewWriter(w)
	for _, e := range entries {
		fmt.Fprintf(bw, "%s  %-7s %s\n", e.CreatedAt.UTC().Format(time.DateTime), e.Kind, e.Command)
		fmt.Fprintf(bw, "  in:  %s\n", oneLine(e.Input))
		fmt.Fprintf(bw, "  out: %s\n", oneLine(e.Output))
		if e.Error != "" {
			fmt.Fprintf(bw, "  err: %s\n", e.Error)
		}
	}
	return bw.Flush()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
