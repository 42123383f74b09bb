package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/Limetric/pgshim/rewrite"
)

// ShimConfig holds the TOML-driven configuration shared by the replay and schema commands.
type ShimConfig struct {
	Source  SourceConfig  `toml:"source"`
	Target  TargetConfig  `toml:"target"`
	Workers int           `toml:"workers"`
	Replay  ReplayConfig  `toml:"replay"`
	Rewrite RewriteConfig `toml:"rewrite"`
	Journal JournalConfig `toml:"journal"`
	Keys    []KeyConfig   `toml:"keys"`

	// configDir is the directory containing the TOML file, used to resolve relative paths.
	configDir string
}

// SourceConfig identifies the MySQL database whose schema is exported.
type SourceConfig struct {
	DSN     string `toml:"dsn"`
	Charset string `toml:"charset"` // character set for the MySQL connection (default: "utf8mb4")
}

type TargetConfig struct {
	DSN            string `toml:"dsn"`
	Schema         string `toml:"schema"`
	OnSchemaExists string `toml:"on_schema_exists"` // reuse|error|recreate
}

type ReplayConfig struct {
	Files    []string `toml:"files"`
	OnError  string   `toml:"on_error"` // stop|continue
	DryRun   bool     `toml:"dry_run"`
	SeedKeys bool     `toml:"seed_keys"`
}

// RewriteConfig controls the rewriter itself.
type RewriteConfig struct {
	MemoSize          int  `toml:"memo_size"`
	EnumCheck         bool `toml:"enum_check"`
	JSONAsJSONB       bool `toml:"json_as_jsonb"`
	TinyInt1AsBoolean bool `toml:"tinyint1_as_boolean"`
}

type JournalConfig struct {
	Path string `toml:"path"`
}

// KeyConfig seeds a unique key the rewriter cannot learn from CREATE TABLE.
type KeyConfig struct {
	Table   string   `toml:"table"`
	Name    string   `toml:"name"`
	Columns []string `toml:"columns"`
	Primary bool     `toml:"primary"`
}

// loadConfig reads a TOML config file and returns a ShimConfig with defaults applied.
func loadConfig(path string) (*ShimConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := ShimConfig{
		Target: TargetConfig{
			OnSchemaExists: "reuse",
		},
		Replay: ReplayConfig{
			OnError:  "stop",
			SeedKeys: true,
		},
		Rewrite: RewriteConfig{
			MemoSize: 1024,
		},
	}
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if unknown := md.Undecoded(); len(unknown) > 0 {
		keys := make([]string, len(unknown))
		for i, k := range unknown {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	cfg.configDir = filepath.Dir(absPath)

	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers()
	}
	if cfg.Source.Charset == "" {
		cfg.Source.Charset = "utf8mb4"
	}
	cfg.Target.Schema = strings.TrimSpace(cfg.Target.Schema)

	if cfg.Target.OnSchemaExists == "" {
		cfg.Target.OnSchemaExists = "reuse"
	}
	switch cfg.Target.OnSchemaExists {
	case "reuse", "error", "recreate":
	default:
		return nil, fmt.Errorf("target.on_schema_exists must be one of: reuse, error, recreate")
	}

	if cfg.Replay.OnError == "" {
		cfg.Replay.OnError = "stop"
	}
	switch cfg.Replay.OnError {
	case "stop", "continue":
	default:
		return nil, fmt.Errorf("replay.on_error must be one of: stop, continue")
	}
	if cfg.Rewrite.MemoSize < 0 {
		return nil, fmt.Errorf("rewrite.memo_size must not be negative")
	}

	for i, k := range cfg.Keys {
		if strings.TrimSpace(k.Table) == "" {
			return nil, fmt.Errorf("keys[%d]: table is required", i)
		}
		if len(k.Columns) == 0 {
			return nil, fmt.Errorf("keys[%d]: columns are required", i)
		}
	}

	return &cfg, nil
}

// resolvePath resolves a path relative to the config file directory.
func (c *ShimConfig) resolvePath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.configDir, p)
}

// typeOptions maps the [rewrite] section onto the rewriter's type mapping knobs.
func (c *ShimConfig) typeOptions() rewrite.TypeOptions {
	return rewrite.TypeOptions{
		TinyInt1AsBoolean: c.Rewrite.TinyInt1AsBoolean,
		JSONAsJSONB:       c.Rewrite.JSONAsJSONB,
		EnumCheck:         c.Rewrite.EnumCheck,
	}
}

// seedCatalog registers the configured [[keys]] entries.
func (c *ShimConfig) seedCatalog(catalog *rewrite.KeyCatalog) {
	for _, k := range c.Keys {
		catalog.Register(k.Table, rewrite.TableKey{
			Name:    k.Name,
			Columns: k.Columns,
			Primary: k.Primary,
		})
	}
}

// requireSource checks the settings needed to read from MySQL.
func (c *ShimConfig) requireSource() error {
	if c.Source.DSN == "" {
		return fmt.Errorf("source.dsn is required")
	}
	return nil
}

// requireTarget checks the settings needed to write to PostgreSQL.
func (c *ShimConfig) requireTarget() error {
	if c.Target.DSN == "" {
		return fmt.Errorf("target.dsn is required")
	}
	return nil
}

func defaultWorkers() int {
	n := runtime.NumCPU()
	if n < 1 {
		return 1
	}
	if n > 8 {
		return 8
	}
	return n
}
