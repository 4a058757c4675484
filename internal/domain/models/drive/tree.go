package drive

import "time"

// Listing is the response of a single-level drive query
type Listing struct {
	Items       []Node       `json:"items"`
	Breadcrumbs []Breadcrumb `json:"breadcrumbs"`
}

// SidebarItem is a drive node annotated with whether it has live children
type SidebarItem struct {
	Node
	HasChildren bool `json:"hasChildren"`
}

// NodeDetail is a direct id lookup result; trashed nodes are still returned
type NodeDetail struct {
	Node
	EffectivelyTrashed bool         `json:"effectivelyTrashed"`
	Breadcrumbs        []Breadcrumb `json:"breadcrumbs"`
}

// TreeNode represents the root of the drive tree
type TreeNode struct {
	Books    []*BookTreeNode   `json:"books"`
	Contents []ContentTreeNode `json:"contents"`
}

// BookTreeNode represents a book in the tree with nested children
type BookTreeNode struct {
	ID        string            `json:"_id"`
	Title     string            `json:"title"`
	ParentID  *string           `json:"parentId"`
	IsDraft   bool              `json:"isDraft"`
	CreatedAt time.Time         `json:"createdAt"`
	Books     []*BookTreeNode   `json:"books"` // Pointers for proper nesting
	Contents  []ContentTreeNode `json:"contents"`
}

// ContentTreeNode represents a content in the tree (metadata only, no payload)
type ContentTreeNode struct {
	ID        string    `json:"_id"`
	Title     string    `json:"title"`
	ParentID  *string   `json:"parentId"`
	IsDraft   bool      `json:"isDraft"`
	UpdatedAt time.Time `json:"updatedAt"`
}
