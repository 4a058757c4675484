package drive

import (
	"context"

	models "coursedrive/internal/domain/models/drive"
)

// Tree builds the nested tree of a user's live nodes. Trashed nodes are left out,
// and so is everything below them.
func (s *driveService) Tree(ctx context.Context, userID string) (*models.TreeNode, error) {
	// Books first, each kind ordered by title
	allNodes, err := s.nodeRepo.GetAllByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}

	bookMap := make(map[string]*models.BookTreeNode)
	var rootBookIDs []string

	// First pass: create all book nodes
	for _, n := range allNodes {
		if n.Kind != models.KindBook || n.IsTrash {
			continue
		}
		bookMap[n.ID] = &models.BookTreeNode{
			ID:        n.ID,
			Title:     n.Title,
			ParentID:  n.ParentID,
			IsDraft:   n.IsDraft,
			CreatedAt: n.CreatedAt,
			Books:     []*models.BookTreeNode{},
			Contents:  []models.ContentTreeNode{},
		}
	}

	// Second pass: nest books by connecting children to parents
	for _, n := range allNodes {
		node, ok := bookMap[n.ID]
		if !ok {
			continue
		}
		if n.ParentID == nil {
			rootBookIDs = append(rootBookIDs, n.ID)
		} else if parent, exists := bookMap[*n.ParentID]; exists {
			parent.Books = append(parent.Books, node)
		}
	}

	// Third pass: add contents to their books
	rootContents := make([]models.ContentTreeNode, 0)
	for _, n := range allNodes {
		if n.Kind != models.KindContent || n.IsTrash {
			continue
		}
		contentNode := models.ContentTreeNode{
			ID:        n.ID,
			Title:     n.Title,
			ParentID:  n.ParentID,
			IsDraft:   n.IsDraft,
			UpdatedAt: n.UpdatedAt,
		}
		if n.ParentID == nil {
			rootContents = append(rootContents, contentNode)
		} else if parent, exists := bookMap[*n.ParentID]; exists {
			parent.Contents = append(parent.Contents, contentNode)
		}
	}

	rootBooks := make([]*models.BookTreeNode, 0, len(rootBookIDs))
	for _, id := range rootBookIDs {
		rootBooks = append(rootBooks, bookMap[id])
	}

	// Books reachable from the root only; a cycle leaves its members unreachable
	tree := &models.TreeNode{
		Books:    rootBooks,
		Contents: rootContents,
	}

	s.logger.Info("drive tree built",
		"user_id", userID,
		"node_count", len(allNodes),
		"live_book_count", len(bookMap),
	)

	return tree, nil
}
