package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Limetric/pgshim/rewrite"
)

type schemaExecutor interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type keyQueryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// connectPostgres opens the target pool. When schema is set every connection
// resolves unqualified names there first.
func connectPostgres(ctx context.Context, dsn, schema string, maxConns int) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if schema != "" {
		cfg.ConnConfig.RuntimeParams["search_path"] = pgIdent(schema)
	}
	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

func prepareTargetSchema(ctx context.Context, exec schemaExecutor, schema, onSchemaExists string) error {
	switch onSchemaExists {
	case "reuse":
		if _, err := exec.Exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", pgIdent(schema))); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	case "recreate":
		if _, err := exec.Exec(ctx, fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", pgIdent(schema))); err != nil {
			return fmt.Errorf("drop schema: %w", err)
		}
		if _, err := exec.Exec(ctx, fmt.Sprintf("CREATE SCHEMA %s", pgIdent(schema))); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	case "error":
		var exists bool
		if err := exec.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM pg_namespace WHERE nspname = $1)", schema).Scan(&exists); err != nil {
			return fmt.Errorf("check schema existence: %w", err)
		}
		if exists {
			return fmt.Errorf("schema %q already exists in target database (on_schema_exists=error)", schema)
		}
		if _, err := exec.Exec(ctx, fmt.Sprintf("CREATE SCHEMA %s", pgIdent(schema))); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	default:
		return fmt.Errorf("unsupported on_schema_exists value %q", onSchemaExists)
	}
	return nil
}

// uniqueKeysQuery lists primary and unique indexes over plain columns,
// primary keys first.
const uniqueKeysQuery = `
SELECT c.relname, i.relname, ix.indisprimary,
       array_agg(a.attname::text ORDER BY k.ord)
FROM pg_index ix
JOIN pg_class c ON c.oid = ix.indrelid
JOIN pg_class i ON i.oid = ix.indexrelid
JOIN pg_namespace n ON n.oid = c.relnamespace
CROSS JOIN LATERAL unnest(ix.indkey::int2[]) WITH ORDINALITY AS k(attnum, ord)
JOIN pg_attribute a ON a.attrelid = c.oid AND a.attnum = k.attnum
WHERE (ix.indisunique OR ix.indisprimary)
  AND ix.indpred IS NULL
  AND 0 <> ALL (ix.indkey::int2[])
  AND n.nspname = COALESCE(NULLIF($1, ''), current_schema())
GROUP BY c.relname, i.relname, ix.indisprimary
ORDER BY c.relname, ix.indisprimary DESC, i.relname`

// seedCatalogFromPostgres registers every unique key already present in the
// target schema so upserts against existing tables get a real conflict target.
func seedCatalogFromPostgres(ctx context.Context, q keyQueryer, schema string, catalog *rewrite.KeyCatalog) (int, error) {
	rows, err := q.Query(ctx, uniqueKeysQuery, schema)
	if err != nil {
		return 0, fmt.Errorf("query unique keys: %w", err)
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		var (
			table, index string
			primary      bool
			columns      []string
		)
		if err := rows.Scan(&table, &index, &primary, &columns); err != nil {
			return n, fmt.Errorf("scan unique key: %w", err)
		}
		catalog.Register(table, rewrite.TableKey{Name: index, Columns: columns, Primary: primary})
		n++
	}
	if err := rows.Err(); err != nil {
		return n, fmt.Errorf("read unique keys: %w", err)
	}
	return n, nil
}

func pgIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
