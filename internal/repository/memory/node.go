package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"coursedrive/internal/domain"
	"coursedrive/internal/domain/models/drive"
	repoDrive "coursedrive/internal/domain/repositories/drive"
)

// NodeRepository implements the NodeRepository interface over a Store
type NodeRepository struct {
	store *Store
}

// NewNodeRepository creates a new node repository
func NewNodeRepository(store *Store) repoDrive.NodeRepository {
	return &NodeRepository{store: store}
}

// Create inserts a node. A parent must be a book of the same owner.
func (r *NodeRepository) Create(ctx context.Context, node *drive.Node) error {
	if node.ParentID != nil {
		if err := checkID("parentId", *node.ParentID); err != nil {
			return err
		}
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if node.ParentID != nil {
		if _, err := r.lookup(*node.ParentID, node.CreatedBy, drive.KindBook); err != nil {
			return err
		}
	}

	node.ID = newID()
	if node.CreatedAt.IsZero() {
		node.CreatedAt = time.Now()
	}
	if node.UpdatedAt.IsZero() {
		node.UpdatedAt = node.CreatedAt
	}
	r.store.nodes[node.ID] = cloneNode(node)
	return nil
}

// GetByID retrieves a node by ID
func (r *NodeRepository) GetByID(ctx context.Context, id, ownerID string) (*drive.Node, error) {
	if err := checkID("id", id); err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	n, ok := r.store.nodes[id]
	if !ok || n.CreatedBy != ownerID {
		return nil, fmt.Errorf("node %s: %w", id, domain.ErrNotFound)
	}
	return cloneNode(n), nil
}

// Ancestors walks parent pointers from id towards the root
func (r *NodeRepository) Ancestors(ctx context.Context, id, ownerID string, limit int) ([]drive.Node, error) {
	if err := checkID("id", id); err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var chain []drive.Node
	visited := make(map[string]struct{})
	currentID := id
	for len(chain) < limit {
		n, ok := r.store.nodes[currentID]
		if !ok || n.CreatedBy != ownerID {
			if len(chain) == 0 {
				return nil, fmt.Errorf("node %s: %w", id, domain.ErrNotFound)
			}
			break
		}
		if _, seen := visited[currentID]; seen {
			return nil, fmt.Errorf("%w: tree cycle detected at %s", domain.ErrTreeCorrupted, currentID)
		}
		visited[currentID] = struct{}{}
		chain = append(chain, *cloneNode(n))

		if n.ParentID == nil {
			break
		}
		currentID = *n.ParentID
	}
	return chain, nil
}

// ListChildren lists the non-trashed children of a parent
func (r *NodeRepository) ListChildren(ctx context.Context, parentID *string, ownerID string) ([]drive.Node, error) {
	if parentID != nil {
		if err := checkID("parentId", *parentID); err != nil {
			return nil, err
		}
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var nodes []drive.Node
	for _, n := range r.store.nodes {
		if n.CreatedBy != ownerID || n.IsTrash || !sameParent(n.ParentID, parentID) {
			continue
		}
		nodes = append(nodes, *cloneNode(n))
	}
	sortListing(nodes)
	return nodes, nil
}

// CountChildren counts the non-trashed children of each parent
func (r *NodeRepository) CountChildren(ctx context.Context, parentIDs []string, ownerID string) (map[string]int64, error) {
	wanted := make(map[string]struct{}, len(parentIDs))
	for _, id := range parentIDs {
		wanted[id] = struct{}{}
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	counts := make(map[string]int64, len(parentIDs))
	for _, n := range r.store.nodes {
		if n.CreatedBy != ownerID || n.IsTrash || n.ParentID == nil {
			continue
		}
		if _, ok := wanted[*n.ParentID]; ok {
			counts[*n.ParentID]++
		}
	}
	return counts, nil
}

// Update applies a patch to a node of the given kind
func (r *NodeRepository) Update(ctx context.Context, id, ownerID string, kind drive.Kind, patch *drive.Patch, updatedAt time.Time) (*drive.Node, error) {
	if err := checkID("id", id); err != nil {
		return nil, err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	n, err := r.lookup(id, ownerID, kind)
	if err != nil {
		return nil, err
	}
	patch.Apply(n)
	n.UpdatedAt = updatedAt
	return cloneNode(n), nil
}

// SetTrash sets or clears the soft-delete flag
func (r *NodeRepository) SetTrash(ctx context.Context, id, ownerID string, kind drive.Kind, trash bool, updatedAt time.Time) (*drive.Node, error) {
	if err := checkID("id", id); err != nil {
		return nil, err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	n, err := r.lookup(id, ownerID, kind)
	if err != nil {
		return nil, err
	}
	n.IsTrash = trash
	n.UpdatedAt = updatedAt
	return cloneNode(n), nil
}

// DeleteIfEmpty removes a node that has no non-trashed children
func (r *NodeRepository) DeleteIfEmpty(ctx context.Context, id, ownerID string, kind drive.Kind) error {
	if err := checkID("id", id); err != nil {
		return err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, err := r.lookup(id, ownerID, kind); err != nil {
		return err
	}

	var children int64
	for _, n := range r.store.nodes {
		if n.CreatedBy == ownerID && !n.IsTrash && n.ParentID != nil && *n.ParentID == id {
			children++
		}
	}
	if children > 0 {
		return &domain.NotEmptyError{ID: id, Children: children}
	}

	delete(r.store.nodes, id)
	return nil
}

// GetAllByOwner retrieves every node of a user without payloads
func (r *NodeRepository) GetAllByOwner(ctx context.Context, ownerID string) ([]drive.Node, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var nodes []drive.Node
	for _, n := range r.store.nodes {
		if n.CreatedBy != ownerID {
			continue
		}
		c := cloneNode(n)
		c.Data = nil
		nodes = append(nodes, *c)
	}
	sortListing(nodes)
	return nodes, nil
}

// lookup must be called with the lock held
func (r *NodeRepository) lookup(id, ownerID string, kind drive.Kind) (*drive.Node, error) {
	n, ok := r.store.nodes[id]
	if !ok || n.CreatedBy != ownerID || n.Kind != kind {
		return nil, fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
	}
	return n, nil
}

func sameParent(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// sortListing orders books before contents, then by title, then by id
func sortListing(nodes []drive.Node) {
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Kind != nodes[j].Kind {
			return nodes[i].Kind == drive.KindBook
		}
		if c := strings.Compare(nodes[i].Title, nodes[j].Title); c != 0 {
			return c < 0
		}
		return nodes[i].ID < nodes[j].ID
	})
}
