//go:build integration

package main

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/Limetric/pgshim/rewrite"
)

const intSchema = "pgshim_inttest"

func targetPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	pgDSN := os.Getenv("POSTGRES_DSN")
	if pgDSN == "" {
		t.Skip("POSTGRES_DSN env var required")
	}
	ctx := context.Background()

	admin, err := connectPostgres(ctx, pgDSN, "", 1)
	require.NoError(t, err)
	require.NoError(t, prepareTargetSchema(ctx, admin, intSchema, "recreate"))
	admin.Close()

	pool, err := connectPostgres(ctx, pgDSN, intSchema, 2)
	require.NoError(t, err)
	t.Cleanup(func() {
		pool.Exec(context.Background(), `DROP SCHEMA IF EXISTS "`+intSchema+`" CASCADE`)
		pool.Close()
	})
	return pool
}

func TestIntegration_ReplayUpserts(t *testing.T) {
	pool := targetPool(t)
	ctx := context.Background()

	dir := t.TempDir()
	writeSQL(t, dir, "schema.sql", "CREATE TABLE `wp_options` (\n"+
		"  `option_id` bigint(20) unsigned NOT NULL AUTO_INCREMENT,\n"+
		"  `option_name` varchar(191) NOT NULL DEFAULT '',\n"+
		"  `option_value` longtext NOT NULL,\n"+
		"  `autoload` varchar(20) NOT NULL DEFAULT 'yes',\n"+
		"  PRIMARY KEY (`option_id`),\n"+
		"  UNIQUE KEY `option_name` (`option_name`),\n"+
		"  KEY `autoload` (`autoload`)\n"+
		") ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;\n")
	writeSQL(t, dir, "data.sql", ""+
		"INSERT INTO `wp_options` (`option_name`, `option_value`, `autoload`) VALUES ('siteurl', 'http://a', 'yes') "+
		"ON DUPLICATE KEY UPDATE `option_name` = VALUES(`option_name`), `option_value` = VALUES(`option_value`), `autoload` = VALUES(`autoload`);\n"+
		"INSERT INTO `wp_options` (`option_name`, `option_value`, `autoload`) VALUES ('siteurl', 'http://b', 'yes') "+
		"ON DUPLICATE KEY UPDATE `option_name` = VALUES(`option_name`), `option_value` = VALUES(`option_value`), `autoload` = VALUES(`autoload`);\n"+
		"INSERT IGNORE INTO wp_options (option_name, option_value) VALUES ('siteurl', 'http://c');\n"+
		"UPDATE wp_options SET autoload = 'no' WHERE option_name LIKE 'SITE%' LIMIT 1;\n")

	cfg := &ShimConfig{configDir: dir, Replay: ReplayConfig{OnError: "stop"}}
	s := newShim(cfg, zaptest.NewLogger(t), nil, "replay")

	stats, err := replayFiles(ctx, pool, cfg, s, []string{"schema.sql", "data.sql"})
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Statements)

	var value, autoload string
	var count int
	require.NoError(t, pool.QueryRow(ctx, `SELECT option_value, autoload FROM wp_options WHERE option_name = 'siteurl'`).Scan(&value, &autoload))
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM wp_options`).Scan(&count))
	assert.Equal(t, "http://b", value)
	assert.Equal(t, "no", autoload)
	assert.Equal(t, 1, count)

	catalog := rewrite.NewKeyCatalog()
	n, err := seedCatalogFromPostgres(ctx, pool, intSchema, catalog)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"option_name"}, catalog.ConflictTarget("wp_options", []string{"option_name", "option_value"}))
	assert.Equal(t, []string{"option_id"}, catalog.Keys("wp_options")[0].Columns)
}

func TestIntegration_SchemaExport(t *testing.T) {
	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		t.Skip("MYSQL_DSN env var required")
	}
	pool := targetPool(t)
	ctx := context.Background()

	seed, err := sql.Open("mysql", mysqlDSN+"?multiStatements=true")
	require.NoError(t, err)
	_, err = seed.ExecContext(ctx, `
DROP TABLE IF EXISTS wp_comments, wp_posts;
CREATE TABLE wp_posts (
  ID bigint(20) unsigned NOT NULL AUTO_INCREMENT,
  post_date datetime NOT NULL DEFAULT '2000-01-01 00:00:00',
  post_title text NOT NULL,
  post_status varchar(20) NOT NULL DEFAULT 'publish',
  PRIMARY KEY (ID),
  KEY type_status_date (post_status, post_date, ID)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
CREATE TABLE wp_comments (
  comment_ID bigint(20) unsigned NOT NULL AUTO_INCREMENT,
  comment_post_ID bigint(20) unsigned NOT NULL DEFAULT '0',
  comment_content text NOT NULL,
  PRIMARY KEY (comment_ID),
  CONSTRAINT fk_post FOREIGN KEY (comment_post_ID) REFERENCES wp_posts (ID)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`)
	require.NoError(t, err)
	seed.Close()

	db, err := openMySQL(ctx, mysqlDSN, "utf8mb4", 2)
	require.NoError(t, err)
	defer db.Close()

	dbName, err := extractMySQLDBName(mysqlDSN)
	require.NoError(t, err)
	tables, err := listMySQLTables(ctx, db, dbName)
	require.NoError(t, err)
	deps, err := listMySQLForeignKeyDeps(ctx, db, dbName)
	require.NoError(t, err)
	tables = orderByForeignKeys(tables, deps)
	assert.Less(t, indexOf(tables, "wp_posts"), indexOf(tables, "wp_comments"))

	ddls, err := fetchCreateStatements(ctx, db, tables, 2)
	require.NoError(t, err)
	require.Len(t, ddls, len(tables))

	s := newShim(&ShimConfig{}, zap.NewNop(), nil, "schema")
	for _, d := range ddls {
		if d.Name != "wp_posts" && d.Name != "wp_comments" {
			continue
		}
		_, err := pool.Exec(ctx, s.rewrite(d.Create))
		require.NoError(t, err, "table %s", d.Name)
	}

	_, err = pool.Exec(ctx, s.rewrite("INSERT INTO wp_posts (post_title) VALUES ('hello')"))
	require.NoError(t, err)
	var found int
	require.NoError(t, pool.QueryRow(ctx, s.rewrite("SELECT SQL_CALC_FOUND_ROWS ID FROM wp_posts LIMIT 0, 1")).Scan(&found))
	var total int
	require.NoError(t, pool.QueryRow(ctx, s.rewrite("SELECT FOUND_ROWS()")).Scan(&total))
	assert.Equal(t, 1, total)
}

func indexOf(list []string, want string) int {
	for i, s := range list {
		if s == want {
			return i
		}
	}
	return -1
}
