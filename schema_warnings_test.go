package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Limetric/pgshim/rewrite"
)

func TestCollectSchemaWarnings(t *testing.T) {
	posts, ok := rewrite.ParseCreateTable("CREATE TABLE `wp_posts` (\n" +
		"  `ID` bigint(20) unsigned NOT NULL AUTO_INCREMENT,\n" +
		"  `post_name` varchar(200) NOT NULL DEFAULT '',\n" +
		"  `post_content` longtext NOT NULL,\n" +
		"  `guid` varchar(255) COLLATE utf8mb4_bin NOT NULL DEFAULT '',\n" +
		"  PRIMARY KEY (`ID`),\n" +
		"  KEY `post_name` (`post_name`(191)),\n" +
		"  FULLTEXT KEY `content` (`post_content`)\n" +
		") ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_520_ci")
	require.True(t, ok)
	options, ok := rewrite.ParseCreateTable("CREATE TABLE `wp_options` (\n" +
		"  `option_id` bigint(20) unsigned NOT NULL AUTO_INCREMENT,\n" +
		"  `option_name` varchar(191) COLLATE utf8mb4_unicode_ci NOT NULL DEFAULT '',\n" +
		"  PRIMARY KEY (`option_id`),\n" +
		"  UNIQUE KEY `option_name` (`option_name`)\n" +
		") ENGINE=InnoDB DEFAULT CHARSET=utf8mb4")
	require.True(t, ok)

	got := collectSchemaWarnings([]rewrite.TableDef{posts, options})
	assert.Equal(t, []string{
		"wp_posts.content: FULLTEXT index dropped; create a GIN or GiST index by hand",
		"wp_posts.post_name: prefix length 191 on post_name ignored; index covers the full column",
		"2 column(s) use utf8mb4_unicode_520_ci (case-insensitive); PostgreSQL text comparisons are case-sensitive by default",
		"1 column(s) use utf8mb4_unicode_ci (case-insensitive); PostgreSQL text comparisons are case-sensitive by default",
		"unique keys on utf8mb4_unicode_ci columns may now admit values differing only in case: wp_options.option_name",
	}, got)
}

func TestKeyWarningsUniquePrefix(t *testing.T) {
	def := rewrite.TableDef{
		Name: "t",
		Keys: []rewrite.KeyDef{{
			Name:    "slug",
			Unique:  true,
			Columns: []rewrite.KeyPart{{Name: "slug", Prefix: "50"}},
		}},
	}
	assert.Equal(t, []string{"t.slug: prefix length 50 on slug ignored; uniqueness now applies to the full value"}, keyWarnings(def))
}

func TestCollectSchemaWarningsNone(t *testing.T) {
	def, ok := rewrite.ParseCreateTable("CREATE TABLE t (id int NOT NULL, PRIMARY KEY (id))")
	require.True(t, ok)
	assert.Empty(t, collectSchemaWarnings([]rewrite.TableDef{def}))
}
