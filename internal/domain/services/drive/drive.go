package drive

import (
	"context"
	"encoding/json"

	"coursedrive/internal/datatable"
	"coursedrive/internal/domain/models/drive"
)

// DriveService handles the drive tree business logic
type DriveService interface {
	// List returns the live children of a parent (nil = root) and the breadcrumb trail to it
	List(ctx context.Context, userID string, parentID *string) (*drive.Listing, error)

	// SidebarItems returns the live children of a parent annotated with hasChildren
	SidebarItems(ctx context.Context, userID string, parentID *string) ([]drive.SidebarItem, error)

	// Get returns a node by ID even when trashed
	Get(ctx context.Context, userID, id string) (*drive.NodeDetail, error)

	// Create creates a new book or content
	Create(ctx context.Context, req *CreateRequest) (*drive.Node, error)

	// Update applies the whitelisted fields of req.Data
	Update(ctx context.Context, req *UpdateRequest) (*drive.Node, error)

	// Delete trashes or permanently removes a node
	Delete(ctx context.Context, req *DeleteRequest) error

	// Restore clears the trash flag of a node
	Restore(ctx context.Context, userID, id string) (*drive.Node, error)

	// Tree builds the nested tree of all live nodes of a user
	Tree(ctx context.Context, userID string) (*drive.TreeNode, error)

	// Table runs the data table pipeline over all nodes of a user
	Table(ctx context.Context, userID string, state datatable.State) (*datatable.Page, error)
}

// DeleteMode selects between soft and hard deletion
type DeleteMode string

const (
	DeleteModeTrash     DeleteMode = "trash"
	DeleteModePermanent DeleteMode = "permanent"
)

// CreateRequest represents a node creation request
type CreateRequest struct {
	UserID      string          `json:"-"`
	Type        drive.Kind      `json:"type"`
	Title       string          `json:"title"`
	ParentID    *string         `json:"parentId,omitempty"` // null or "null" for root
	Thumbnail   *string         `json:"thumbnail,omitempty"`
	Description *string         `json:"description,omitempty"` // books only
	Data        json.RawMessage `json:"data,omitempty"`        // contents only
	Tags        []string        `json:"tags,omitempty"`
}

// UpdateRequest represents a node update request. Only whitelisted keys of Data are used.
type UpdateRequest struct {
	UserID string                     `json:"-"`
	ID     string                     `json:"id"`
	Type   drive.Kind                 `json:"type"`
	Data   map[string]json.RawMessage `json:"data"`
}

// DeleteRequest represents a node deletion request
type DeleteRequest struct {
	UserID string     `json:"-"`
	ID     string     `json:"id"`
	Type   drive.Kind `json:"type"`
	Mode   DeleteMode `json:"mode,omitempty"` // default permanent
}
