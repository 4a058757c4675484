package drive

import (
	"context"
	"errors"
	"fmt"

	"coursedrive/internal/domain"
	models "coursedrive/internal/domain/models/drive"
)

// ancestry returns the node with the given id followed by its ancestors up to the root.
//
// The walk is bounded by MaxTreeDepth, so a chain deeper than the cap or one that
// loops back on itself yields domain.ErrTreeCorrupted. An ancestor that no longer
// exists ends the walk as if the root had been reached.
func (s *driveService) ancestry(ctx context.Context, userID, id string) ([]models.Node, error) {
	chain, err := s.nodeRepo.Ancestors(ctx, id, userID, s.opts.MaxTreeDepth+1)
	if err != nil {
		if errors.Is(err, domain.ErrTreeCorrupted) {
			s.logger.Error("tree cycle detected", "node_id", id, "user_id", userID, "error", err)
		}
		return nil, err
	}
	if len(chain) > s.opts.MaxTreeDepth {
		s.logger.Error("tree too deep", "node_id", id, "max_depth", s.opts.MaxTreeDepth, "user_id", userID)
		return nil, fmt.Errorf("%w: tree too deep (more than %d levels)", domain.ErrTreeCorrupted, s.opts.MaxTreeDepth)
	}

	if last := chain[len(chain)-1]; last.ParentID != nil {
		s.logger.Warn("dangling parent reference", "node_id", last.ID, "parent_id", *last.ParentID)
	}
	return chain, nil
}

// liveBook resolves id to a book that is not effectively trashed and returns its ancestry.
// Contents, trashed books and books below a trashed ancestor are reported as not found.
func (s *driveService) liveBook(ctx context.Context, userID, id string) ([]models.Node, error) {
	chain, err := s.ancestry(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if chain[0].Kind != models.KindBook {
		return nil, fmt.Errorf("book %s: %w", id, domain.ErrNotFound)
	}
	if effectivelyTrashed(chain) {
		return nil, fmt.Errorf("book %s is in the trash: %w", id, domain.ErrNotFound)
	}
	return chain, nil
}

func effectivelyTrashed(chain []models.Node) bool {
	for _, n := range chain {
		if n.IsTrash {
			return true
		}
	}
	return false
}

// trail converts an ancestry chain (nearest first) into breadcrumbs from the root
func trail(chain []models.Node) []models.Breadcrumb {
	crumbs := make([]models.Breadcrumb, 0, len(chain)+1)
	crumbs = append(crumbs, models.RootBreadcrumb)
	for i := len(chain) - 1; i >= 0; i-- {
		crumbs = append(crumbs, models.Breadcrumb{ID: chain[i].ID, Title: chain[i].Title})
	}
	return crumbs
}
