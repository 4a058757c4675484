package drive

import (
	"context"
	"time"

	"coursedrive/internal/domain/models/drive"
)

// NodeRepository defines data access operations for drive nodes.
// Every method is scoped by the owning user; a node owned by someone else
// is indistinguishable from a missing one (domain.ErrNotFound).
type NodeRepository interface {
	// Create inserts a node and fills in its ID and timestamps
	Create(ctx context.Context, node *drive.Node) error

	// GetByID retrieves a node by ID regardless of its trash flag
	GetByID(ctx context.Context, id, ownerID string) (*drive.Node, error)

	// Ancestors returns the node with the given id followed by its ancestors, nearest
	// first. The walk stops after limit nodes or at a parent that no longer exists.
	// Returns domain.ErrNotFound when the node itself is missing and
	// domain.ErrTreeCorrupted when the parent chain revisits a node.
	Ancestors(ctx context.Context, id, ownerID string, limit int) ([]drive.Node, error)

	// ListChildren lists the non-trashed children of a parent (nil = root),
	// books first then contents, each ordered by title
	ListChildren(ctx context.Context, parentID *string, ownerID string) ([]drive.Node, error)

	// CountChildren counts the non-trashed children of each given parent
	CountChildren(ctx context.Context, parentIDs []string, ownerID string) (map[string]int64, error)

	// Update applies a whitelisted patch to the node with the given ID and kind
	Update(ctx context.Context, id, ownerID string, kind drive.Kind, patch *drive.Patch, updatedAt time.Time) (*drive.Node, error)

	// SetTrash sets or clears the soft-delete flag
	SetTrash(ctx context.Context, id, ownerID string, kind drive.Kind, trash bool, updatedAt time.Time) (*drive.Node, error)

	// DeleteIfEmpty removes a node only when it has no non-trashed children.
	// The check and the delete are atomic. Returns *domain.NotEmptyError when
	// children exist and domain.ErrNotFound when the node does not.
	DeleteIfEmpty(ctx context.Context, id, ownerID string, kind drive.Kind) error

	// GetAllByOwner retrieves every node of a user (flat list, payloads omitted)
	GetAllByOwner(ctx context.Context, ownerID string) ([]drive.Node, error)
}
