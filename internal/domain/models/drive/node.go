package drive

import (
	"encoding/json"
	"time"
)

// Kind discriminates the two node variants stored in the drive
type Kind string

const (
	// KindBook is a folder node that can hold other books and contents
	KindBook Kind = "book"
	// KindContent is a leaf document carrying an opaque editor payload
	KindContent Kind = "content"
)

// Valid reports whether k is a known node kind
func (k Kind) Valid() bool {
	return k == KindBook || k == KindContent
}

// Node is a single entry in a user's drive. Books and contents share this shape;
// Description is only meaningful for books and Data only for contents.
type Node struct {
	ID          string          `json:"_id"`
	Kind        Kind            `json:"type"`
	Title       string          `json:"title"`
	Thumbnail   string          `json:"thumbnail"`
	ParentID    *string         `json:"parentId"` // NULL = root level
	CreatedBy   string          `json:"createdBy"`
	IsDraft     bool            `json:"isDraft"`
	IsTrash     bool            `json:"isTrash"`
	Tags        []string        `json:"tags,omitempty"`
	Description *string         `json:"description,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// IsRoot returns true if the node lives at the root level
func (n *Node) IsRoot() bool {
	return n.ParentID == nil
}

// Breadcrumb is one step of the path from the root to a listed parent
type Breadcrumb struct {
	ID    string `json:"_id"`
	Title string `json:"title"`
}

// RootBreadcrumb is the synthetic first entry of every breadcrumb trail
var RootBreadcrumb = Breadcrumb{ID: "root", Title: "Home"}

// Patch holds the whitelisted mutable fields of a node. Nil means "leave unchanged".
type Patch struct {
	Title       *string
	Thumbnail   *string
	Description *string
	Data        json.RawMessage
	IsDraft     *bool
	Tags        *[]string
}

// Empty reports whether the patch would change nothing
func (p *Patch) Empty() bool {
	return p.Title == nil && p.Thumbnail == nil && p.Description == nil &&
		p.Data == nil && p.IsDraft == nil && p.Tags == nil
}

// Apply copies the set fields of the patch onto n
func (p *Patch) Apply(n *Node) {
	if p.Title != nil {
		n.Title = *p.Title
	}
	if p.Thumbnail != nil {
		n.Thumbnail = *p.Thumbnail
	}
	if p.Description != nil {
		desc := *p.Description
		n.Description = &desc
	}
	if p.Data != nil {
		n.Data = p.Data
	}
	if p.IsDraft != nil {
		n.IsDraft = *p.IsDraft
	}
	if p.Tags != nil {
		n.Tags = append([]string(nil), (*p.Tags)...)
	}
}
