package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"coursedrive/internal/domain"
	"coursedrive/internal/domain/models/drive"
	repoDrive "coursedrive/internal/domain/repositories/drive"
)

const nodeColumns = `id::text, kind, title, thumbnail, parent_id::text, created_by, is_draft, is_trash,
	tags, description, data, created_at, updated_at`

// Same shape as nodeColumns with the payload left out
const nodeSummaryColumns = `id::text, kind, title, thumbnail, parent_id::text, created_by, is_draft, is_trash,
	tags, description, NULL::jsonb, created_at, updated_at`

// Books before contents, then byte order of titles
const listingOrder = `ORDER BY (kind = 'content'), title COLLATE "C", id`

// PostgresNodeRepository implements the NodeRepository interface
type PostgresNodeRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewNodeRepository creates a new node repository
func NewNodeRepository(config *RepositoryConfig) repoDrive.NodeRepository {
	return &PostgresNodeRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create inserts a node. When the node has a parent, the parent row is share-locked
// for the rest of the transaction so a concurrent permanent delete cannot slip in.
func (r *PostgresNodeRepository) Create(ctx context.Context, node *drive.Node) error {
	if node.ParentID != nil {
		if err := checkID("parentId", *node.ParentID); err != nil {
			return err
		}
	}
	if node.Tags == nil {
		node.Tags = []string{}
	}

	return execTx(ctx, r.pool, r.logger, func(ctx context.Context) error {
		db := GetExecutor(ctx, r.pool)

		if node.ParentID != nil {
			lockQuery := fmt.Sprintf(`
				SELECT 1 FROM %s
				WHERE id = $1 AND created_by = $2 AND kind = 'book'
				FOR SHARE
			`, r.tables.Nodes)
			var one int
			if err := db.QueryRow(ctx, lockQuery, *node.ParentID, node.CreatedBy).Scan(&one); err != nil {
				if IsPgNoRowsError(err) {
					return fmt.Errorf("book %s: %w", *node.ParentID, domain.ErrNotFound)
				}
				return fmt.Errorf("lock parent: %w", err)
			}
		}

		query := fmt.Sprintf(`
			INSERT INTO %s (kind, title, thumbnail, parent_id, created_by, is_draft, is_trash,
				tags, description, data, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING id::text, created_at, updated_at
		`, r.tables.Nodes)

		now := time.Now()
		if node.CreatedAt.IsZero() {
			node.CreatedAt = now
		}
		if node.UpdatedAt.IsZero() {
			node.UpdatedAt = node.CreatedAt
		}

		err := db.QueryRow(ctx, query,
			node.Kind,
			node.Title,
			node.Thumbnail,
			node.ParentID,
			node.CreatedBy,
			node.IsDraft,
			node.IsTrash,
			node.Tags,
			node.Description,
			jsonArg(node.Data),
			node.CreatedAt,
			node.UpdatedAt,
		).Scan(&node.ID, &node.CreatedAt, &node.UpdatedAt)
		if err != nil {
			return fmt.Errorf("create %s: %w", node.Kind, err)
		}
		return nil
	})
}

// GetByID retrieves a node by ID
func (r *PostgresNodeRepository) GetByID(ctx context.Context, id, ownerID string) (*drive.Node, error) {
	if err := checkID("id", id); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = $1 AND created_by = $2
	`, nodeColumns, r.tables.Nodes)

	db := GetExecutor(ctx, r.pool)
	node, err := scanNode(db.QueryRow(ctx, query, id, ownerID))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("node %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get node: %w", err)
	}
	return node, nil
}

// Ancestors walks parent pointers from id towards the root in one recursive query.
// The path array stops the recursion on the first repeated id.
func (r *PostgresNodeRepository) Ancestors(ctx context.Context, id, ownerID string, limit int) ([]drive.Node, error) {
	if err := checkID("id", id); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		WITH RECURSIVE ancestry AS (
			SELECT n.*, 1 AS depth, ARRAY[n.id] AS path, false AS cycle
			FROM %s n
			WHERE n.id = $1 AND n.created_by = $2
			UNION ALL
			SELECT p.*, a.depth + 1, a.path || p.id, p.id = ANY(a.path)
			FROM %s p
			JOIN ancestry a ON p.id = a.parent_id
			WHERE p.created_by = $2 AND NOT a.cycle AND a.depth < $3
		)
		SELECT %s, cycle
		FROM ancestry
		ORDER BY depth
	`, r.tables.Nodes, r.tables.Nodes, nodeColumns)

	db := GetExecutor(ctx, r.pool)
	rows, err := db.Query(ctx, query, id, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("get ancestors: %w", err)
	}
	defer rows.Close()

	var chain []drive.Node
	for rows.Next() {
		var cycle bool
		node, err := scanNode(rows, &cycle)
		if err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		if cycle {
			return nil, fmt.Errorf("%w: tree cycle detected at %s", domain.ErrTreeCorrupted, node.ID)
		}
		chain = append(chain, *node)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ancestors: %w", err)
	}
	if len(chain) == 0 {
		return nil, fmt.Errorf("node %s: %w", id, domain.ErrNotFound)
	}
	return chain, nil
}

// ListChildren lists the non-trashed children of a parent
func (r *PostgresNodeRepository) ListChildren(ctx context.Context, parentID *string, ownerID string) ([]drive.Node, error) {
	var query string
	var args []any

	if parentID == nil {
		query = fmt.Sprintf(`
			SELECT %s
			FROM %s
			WHERE created_by = $1 AND parent_id IS NULL AND NOT is_trash
			%s
		`, nodeColumns, r.tables.Nodes, listingOrder)
		args = append(args, ownerID)
	} else {
		if err := checkID("parentId", *parentID); err != nil {
			return nil, err
		}
		query = fmt.Sprintf(`
			SELECT %s
			FROM %s
			WHERE created_by = $1 AND parent_id = $2 AND NOT is_trash
			%s
		`, nodeColumns, r.tables.Nodes, listingOrder)
		args = append(args, ownerID, *parentID)
	}

	db := GetExecutor(ctx, r.pool)
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	return collectNodes(rows)
}

// CountChildren counts the non-trashed children of each parent
func (r *PostgresNodeRepository) CountChildren(ctx context.Context, parentIDs []string, ownerID string) (map[string]int64, error) {
	counts := make(map[string]int64, len(parentIDs))
	if len(parentIDs) == 0 {
		return counts, nil
	}
	for _, id := range parentIDs {
		if err := checkID("parentId", id); err != nil {
			return nil, err
		}
	}

	query := fmt.Sprintf(`
		SELECT parent_id::text, count(*)
		FROM %s
		WHERE created_by = $1 AND parent_id = ANY($2::text[]::uuid[]) AND NOT is_trash
		GROUP BY parent_id
	`, r.tables.Nodes)

	db := GetExecutor(ctx, r.pool)
	rows, err := db.Query(ctx, query, ownerID, parentIDs)
	if err != nil {
		return nil, fmt.Errorf("count children: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var parentID string
		var n int64
		if err := rows.Scan(&parentID, &n); err != nil {
			return nil, fmt.Errorf("scan child count: %w", err)
		}
		counts[parentID] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate child counts: %w", err)
	}
	return counts, nil
}

// Update applies a patch to a node of the given kind
func (r *PostgresNodeRepository) Update(ctx context.Context, id, ownerID string, kind drive.Kind, patch *drive.Patch, updatedAt time.Time) (*drive.Node, error) {
	if err := checkID("id", id); err != nil {
		return nil, err
	}

	sets := []string{"updated_at = $1"}
	args := []any{updatedAt}
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Thumbnail != nil {
		add("thumbnail", *patch.Thumbnail)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.Data != nil {
		add("data", jsonArg(patch.Data))
	}
	if patch.IsDraft != nil {
		add("is_draft", *patch.IsDraft)
	}
	if patch.Tags != nil {
		tags := *patch.Tags
		if tags == nil {
			tags = []string{}
		}
		add("tags", tags)
	}

	args = append(args, id, ownerID, kind)
	n := len(args)
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s
		WHERE id = $%d AND created_by = $%d AND kind = $%d
		RETURNING %s
	`, r.tables.Nodes, strings.Join(sets, ", "), n-2, n-1, n, nodeColumns)

	db := GetExecutor(ctx, r.pool)
	node, err := scanNode(db.QueryRow(ctx, query, args...))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("update %s: %w", kind, err)
	}
	return node, nil
}

// SetTrash sets or clears the soft-delete flag
func (r *PostgresNodeRepository) SetTrash(ctx context.Context, id, ownerID string, kind drive.Kind, trash bool, updatedAt time.Time) (*drive.Node, error) {
	if err := checkID("id", id); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET is_trash = $1, updated_at = $2
		WHERE id = $3 AND created_by = $4 AND kind = $5
		RETURNING %s
	`, r.tables.Nodes, nodeColumns)

	db := GetExecutor(ctx, r.pool)
	node, err := scanNode(db.QueryRow(ctx, query, trash, updatedAt, id, ownerID, kind))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("set trash: %w", err)
	}
	return node, nil
}

// DeleteIfEmpty removes a node that has no non-trashed children. The node row is
// locked before counting, which waits out any insert holding a share lock on it.
func (r *PostgresNodeRepository) DeleteIfEmpty(ctx context.Context, id, ownerID string, kind drive.Kind) error {
	if err := checkID("id", id); err != nil {
		return err
	}

	return execTx(ctx, r.pool, r.logger, func(ctx context.Context) error {
		db := GetExecutor(ctx, r.pool)

		lockQuery := fmt.Sprintf(`
			SELECT 1 FROM %s
			WHERE id = $1 AND created_by = $2 AND kind = $3
			FOR UPDATE
		`, r.tables.Nodes)
		var one int
		if err := db.QueryRow(ctx, lockQuery, id, ownerID, kind).Scan(&one); err != nil {
			if IsPgNoRowsError(err) {
				return fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
			}
			return fmt.Errorf("lock %s: %w", kind, err)
		}

		countQuery := fmt.Sprintf(`
			SELECT count(*) FROM %s
			WHERE parent_id = $1 AND created_by = $2 AND NOT is_trash
		`, r.tables.Nodes)
		var children int64
		if err := db.QueryRow(ctx, countQuery, id, ownerID).Scan(&children); err != nil {
			return fmt.Errorf("count children: %w", err)
		}
		if children > 0 {
			return &domain.NotEmptyError{ID: id, Children: children}
		}

		deleteQuery := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Nodes)
		if _, err := db.Exec(ctx, deleteQuery, id); err != nil {
			return fmt.Errorf("delete %s: %w", kind, err)
		}
		return nil
	})
}

// GetAllByOwner retrieves every node of a user without payloads
func (r *PostgresNodeRepository) GetAllByOwner(ctx context.Context, ownerID string) ([]drive.Node, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE created_by = $1
		%s
	`, nodeSummaryColumns, r.tables.Nodes, listingOrder)

	db := GetExecutor(ctx, r.pool)
	rows, err := db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	return collectNodes(rows)
}

// scanNode reads nodeColumns followed by any extra destinations
func scanNode(row pgx.Row, extra ...any) (*drive.Node, error) {
	var node drive.Node
	var data []byte
	dest := []any{
		&node.ID,
		&node.Kind,
		&node.Title,
		&node.Thumbnail,
		&node.ParentID,
		&node.CreatedBy,
		&node.IsDraft,
		&node.IsTrash,
		&node.Tags,
		&node.Description,
		&data,
		&node.CreatedAt,
		&node.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	if len(data) > 0 {
		node.Data = data
	}
	if len(node.Tags) == 0 {
		node.Tags = nil
	}
	return &node, nil
}

func collectNodes(rows pgx.Rows) ([]drive.Node, error) {
	defer rows.Close()

	var nodes []drive.Node
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		nodes = append(nodes, *node)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nodes: %w", err)
	}
	return nodes, nil
}

// jsonArg passes raw JSON as text so a nil payload is stored as NULL
func jsonArg(raw []byte) any {
	if raw == nil {
		return nil
	}
	return string(raw)
}
