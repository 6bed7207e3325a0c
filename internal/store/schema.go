package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
)

//go:embed schema.sql
var schemaSQL string

// initSchema executes the embedded DDL one statement at a time, since the
// MySQL driver rejects multi-statement scripts by default. It is idempotent.
func initSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range splitStatements(schemaSQL) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: schema exec failed: %w", err)
		}
	}
	return nil
}

// splitStatements splits a SQL script on semicolons, dropping empty and
// comment-only fragments.
func splitStatements(script string) []string {
	raw := strings.Split(script, ";")
	stmts := make([]string, 0, len(raw))
	for _, s := range raw {
		trimmed := strings.TrimSpace(s)
		if trimmed == "" || isCommentOnly(trimmed) {
			continue
		}
		stmts = append(stmts, trimmed)
	}
	return stmts
}

func isCommentOnly(s string) bool {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "--") {
			return false
		}
	}
	return true
}
