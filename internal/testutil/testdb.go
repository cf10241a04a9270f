// Package testutil gives integration tests a throwaway Postgres schema.
package testutil

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"reusability-token/internal/config"
)

var schemaNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresDSN creates a fresh schema on TEST_POSTGRES_DSN and returns a DSN
// scoped to it. The schema is dropped when the test ends. Tests are skipped
// when no database is configured.
func PostgresDSN(t *testing.T) string {
	t.Helper()
	cfg, err := config.LoadTest()
	if err != nil {
		t.Skipf("skip test db: %v", err)
	}
	schema := fmt.Sprintf("test_%d", time.Now().UnixNano())
	if err := execSchemaDDL(cfg.PostgresDSN, "CREATE SCHEMA %s", schema); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	t.Cleanup(func() {
		_ = execSchemaDDL(cfg.PostgresDSN, "DROP SCHEMA %s CASCADE", schema)
	})
	return withSearchPath(cfg.PostgresDSN, schema)
}

func execSchemaDDL(dsn, format, schema string) error {
	if !schemaNamePattern.MatchString(schema) {
		return fmt.Errorf("schema %q does not match required pattern", schema)
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return err
	}
	defer pool.Close()
	_, err = pool.Exec(ctx, fmt.Sprintf(format, pgx.Identifier{schema}.Sanitize()))
	return err
}

func withSearchPath(dsn, schema string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "search_path=" + url.QueryEscape(schema)
}
