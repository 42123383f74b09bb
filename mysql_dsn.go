package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

// mysqlDSNWithReadOptions normalises a user DSN for schema export: UTC times,
// client-side interpolation and the configured connection charset.
func mysqlDSNWithReadOptions(baseDSN, charset string) (string, error) {
	cfg, err := mysql.ParseDSN(baseDSN)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.InterpolateParams = true
	cfg.Loc = time.UTC
	if charset != "" {
		if err := cfg.Apply(mysql.Charset(charset, "")); err != nil {
			return "", fmt.Errorf("set mysql charset: %w", err)
		}
	}
	return cfg.FormatDSN(), nil
}

// extractMySQLDBName returns the schema named by the DSN.
func extractMySQLDBName(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	if cfg.DBName == "" {
		return "", fmt.Errorf("cannot extract database name from DSN: empty name")
	}
	return cfg.DBName, nil
}

// openMySQL connects to the source database and verifies the connection.
func openMySQL(ctx context.Context, dsn, charset string, workers int) (*sql.DB, error) {
	readDSN, err := mysqlDSNWithReadOptions(dsn, charset)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("mysql", readDSN)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db.SetMaxOpenConns(workers)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	return db, nil
}
