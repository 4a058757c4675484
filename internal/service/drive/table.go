package drive

import (
	"context"

	"coursedrive/internal/datatable"
	models "coursedrive/internal/domain/models/drive"
)

// Row statuses of the drive table
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusTrashed   = "trashed"
)

// TableColumns describes the drive table
func TableColumns() []datatable.Column {
	return []datatable.Column{
		{Key: "title", Label: "Title", Sortable: true, Filter: &datatable.FilterConfig{Type: datatable.FilterAlphabetical}},
		{Key: "type", Label: "Type"},
		{Key: "status", Label: "Status", Filter: &datatable.FilterConfig{
			Type:    datatable.FilterStatus,
			Options: []string{StatusDraft, StatusPublished, StatusTrashed},
		}},
		{Key: "updatedAt", Label: "Updated", Sortable: true, Filter: &datatable.FilterConfig{Type: datatable.FilterDate}},
		{Key: "tags", Label: "Tags", Sortable: true, Filter: &datatable.FilterConfig{Type: datatable.FilterNumber}},
	}
}

// Table runs the data table pipeline over every node of a user, trashed ones included
func (s *driveService) Table(ctx context.Context, userID string, state datatable.State) (*datatable.Page, error) {
	nodes, err := s.nodeRepo.GetAllByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}

	rows := make([]datatable.Row, 0, len(nodes))
	for _, n := range nodes {
		rows = append(rows, tableRow(n))
	}

	return datatable.Apply(rows, TableColumns(), state, s.opts.TablePageSize), nil
}

func tableRow(n models.Node) datatable.Row {
	status := StatusPublished
	switch {
	case n.IsTrash:
		status = StatusTrashed
	case n.IsDraft:
		status = StatusDraft
	}

	var parentID any
	if n.ParentID != nil {
		parentID = *n.ParentID
	}

	tagNames := n.Tags
	if tagNames == nil {
		tagNames = []string{}
	}

	return datatable.Row{
		"_id":       n.ID,
		"title":     n.Title,
		"type":      string(n.Kind),
		"status":    status,
		"updatedAt": n.UpdatedAt,
		"tags":      len(n.Tags),
		"tagNames":  tagNames,
		"parentId":  parentID,
	}
}
