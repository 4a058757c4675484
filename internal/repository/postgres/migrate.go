package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema/schema.sql
var schemaSQL string

// Migrate creates the prefixed tables and indexes if they do not exist
func Migrate(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	ddl := strings.NewReplacer(
		"{{nodes}}", tables.Nodes,
		"{{quizzes}}", tables.Quizzes,
	).Replace(schemaSQL)

	if _, err := pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
