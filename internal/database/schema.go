package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// ApplySchema creates the timetable tables for the given driver.  It is
// idempotent: statements failing because the object already exists are
// ignored.
func ApplySchema(db *sql.DB, driver string) error {
	if db == nil {
		return fmt.Errorf("sql db is required")
	}
	content, err := schemaFS.ReadFile("schema/" + driver + ".sql")
	if err != nil {
		return fmt.Errorf("no schema for driver %q: %w", driver, err)
	}
	ctx := context.Background()
	for _, stmt := range splitStatements(string(content)) {
		if _, err := db.ExecContext(ctx, stmt); err != nil && !isAlreadyExists(err) {
			return fmt.Errorf("exec schema statement: %w", err)
		}
	}
	return nil
}

// splitStatements splits a schema file on the semicolons ending its
// statements.  The schema files contain no semicolons inside literals.
func splitStatements(content string) []string {
	var out []string
	for _, part := range strings.Split(content, ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

func isAlreadyExists(err error) bool {
	value := strings.ToLower(err.Error())
	return strings.Contains(value, "already exists") || strings.Contains(value, "duplicate key name")
}
