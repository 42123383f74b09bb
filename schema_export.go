package main

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
)

// tableDDL is one MySQL table with its SHOW CREATE TABLE text.
type tableDDL struct {
	Name   string
	Create string
}

func listMySQLTables(ctx context.Context, db *sql.DB, dbName string) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES
		 WHERE TABLE_SCHEMA = ? AND TABLE_TYPE = 'BASE TABLE'
		 ORDER BY TABLE_NAME`,
		dbName,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// listMySQLForeignKeyDeps maps each table to the tables its foreign keys reference.
func listMySQLForeignKeyDeps(ctx context.Context, db *sql.DB, dbName string) (map[string][]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT DISTINCT TABLE_NAME, REFERENCED_TABLE_NAME
		 FROM INFORMATION_SCHEMA.KEY_COLUMN_USAGE
		 WHERE TABLE_SCHEMA = ? AND REFERENCED_TABLE_SCHEMA = ? AND REFERENCED_TABLE_NAME IS NOT NULL
		 ORDER BY TABLE_NAME, REFERENCED_TABLE_NAME`,
		dbName, dbName,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	deps := map[string][]string{}
	for rows.Next() {
		var table, ref string
		if err := rows.Scan(&table, &ref); err != nil {
			return nil, err
		}
		if table != ref {
			deps[table] = append(deps[table], ref)
		}
	}
	return deps, rows.Err()
}

// fetchCreateStatements runs SHOW CREATE TABLE for every table with at most
// workers queries in flight. Results keep the order of tables.
func fetchCreateStatements(ctx context.Context, db *sql.DB, tables []string, workers int) ([]tableDDL, error) {
	out := make([]tableDDL, len(tables))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, name := range tables {
		g.Go(func() error {
			var table, create string
			q := "SHOW CREATE TABLE " + quoteMySQLIdent(name)
			if err := db.QueryRowContext(ctx, q).Scan(&table, &create); err != nil {
				return fmt.Errorf("show create table %s: %w", name, err)
			}
			out[i] = tableDDL{Name: name, Create: create}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// orderByForeignKeys returns tables with every referenced table ahead of the
// tables that reference it. A cycle is broken where it is first entered.
func orderByForeignKeys(tables []string, deps map[string][]string) []string {
	known := make(map[string]bool, len(tables))
	for _, t := range tables {
		known[t] = true
	}

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(tables))
	ordered := make([]string, 0, len(tables))

	var visit func(string)
	visit = func(t string) {
		if state[t] != unvisited {
			return
		}
		state[t] = visiting
		for _, ref := range deps[t] {
			if known[ref] {
				visit(ref)
			}
		}
		state[t] = done
		ordered = append(ordered, t)
	}
	for _, t := range tables {
		visit(t)
	}
	return ordered
}

func quoteMySQLIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
