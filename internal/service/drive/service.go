package drive

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"coursedrive/internal/config"
	"coursedrive/internal/domain"
	models "coursedrive/internal/domain/models/drive"
	"coursedrive/internal/domain/repositories"
	driveRepo "coursedrive/internal/domain/repositories/drive"
	driveSvc "coursedrive/internal/domain/services/drive"
)

// Options tunes the drive service
type Options struct {
	DefaultThumbnail string
	MaxTreeDepth     int
	TablePageSize    int
}

func (o Options) withDefaults() Options {
	if o.DefaultThumbnail == "" {
		o.DefaultThumbnail = config.DefaultThumbnail
	}
	if o.MaxTreeDepth <= 0 {
		o.MaxTreeDepth = config.DefaultMaxTreeDepth
	}
	if o.TablePageSize <= 0 {
		o.TablePageSize = config.DefaultTablePageSize
	}
	return o
}

type driveService struct {
	nodeRepo  driveRepo.NodeRepository
	quizRepo  repositories.QuizRepository
	txManager repositories.TransactionManager
	opts      Options
	logger    *slog.Logger
	now       func() time.Time
}

// NewDriveService creates a new drive service
func NewDriveService(
	nodeRepo driveRepo.NodeRepository,
	quizRepo repositories.QuizRepository,
	txManager repositories.TransactionManager,
	opts Options,
	logger *slog.Logger,
) driveSvc.DriveService {
	return &driveService{
		nodeRepo:  nodeRepo,
		quizRepo:  quizRepo,
		txManager: txManager,
		opts:      opts.withDefaults(),
		logger:    logger,
		now:       time.Now,
	}
}

// List returns the live children of a parent and the breadcrumb trail to it
func (s *driveService) List(ctx context.Context, userID string, parentID *string) (*models.Listing, error) {
	parentID = NormalizeParentID(parentID)

	breadcrumbs := []models.Breadcrumb{models.RootBreadcrumb}
	if parentID != nil {
		chain, err := s.liveBook(ctx, userID, *parentID)
		if err != nil {
			return nil, err
		}
		breadcrumbs = trail(chain)
	}

	items, err := s.nodeRepo.ListChildren(ctx, parentID, userID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.Node{}
	}

	return &models.Listing{Items: items, Breadcrumbs: breadcrumbs}, nil
}

// SidebarItems returns the live children of a parent annotated with hasChildren
func (s *driveService) SidebarItems(ctx context.Context, userID string, parentID *string) ([]models.SidebarItem, error) {
	parentID = NormalizeParentID(parentID)

	if parentID != nil {
		if _, err := s.liveBook(ctx, userID, *parentID); err != nil {
			return nil, err
		}
	}

	children, err := s.nodeRepo.ListChildren(ctx, parentID, userID)
	if err != nil {
		return nil, err
	}

	var bookIDs []string
	for _, child := range children {
		if child.Kind == models.KindBook {
			bookIDs = append(bookIDs, child.ID)
		}
	}

	counts, err := s.nodeRepo.CountChildren(ctx, bookIDs, userID)
	if err != nil {
		return nil, err
	}

	items := make([]models.SidebarItem, 0, len(children))
	for _, child := range children {
		items = append(items, models.SidebarItem{
			Node:        child,
			HasChildren: child.Kind == models.KindBook && counts[child.ID] > 0,
		})
	}
	return items, nil
}

// Get returns a node by ID, including trashed ones
func (s *driveService) Get(ctx context.Context, userID, id string) (*models.NodeDetail, error) {
	chain, err := s.ancestry(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	return &models.NodeDetail{
		Node:               chain[0],
		EffectivelyTrashed: effectivelyTrashed(chain),
		Breadcrumbs:        trail(chain[1:]),
	}, nil
}

// Create creates a new book or content
func (s *driveService) Create(ctx context.Context, req *driveSvc.CreateRequest) (*models.Node, error) {
	req.ParentID = NormalizeParentID(req.ParentID)
	req.Title = strings.TrimSpace(req.Title)

	if err := s.validateCreateRequest(req); err != nil {
		return nil, err
	}

	if req.ParentID != nil {
		chain, err := s.liveBook(ctx, req.UserID, *req.ParentID)
		if err != nil {
			return nil, err
		}
		// The new node sits one level below its parent's chain
		if len(chain) >= s.opts.MaxTreeDepth {
			return nil, fmt.Errorf("%w: parentId: nesting is limited to %d levels", domain.ErrValidation, s.opts.MaxTreeDepth)
		}
	}

	now := s.now()
	node := &models.Node{
		Kind:      req.Type,
		Title:     req.Title,
		Thumbnail: s.opts.DefaultThumbnail,
		ParentID:  req.ParentID,
		CreatedBy: req.UserID,
		IsDraft:   true,
		IsTrash:   false,
		Tags:      req.Tags,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.Thumbnail != nil && strings.TrimSpace(*req.Thumbnail) != "" {
		node.Thumbnail = strings.TrimSpace(*req.Thumbnail)
	}
	switch req.Type {
	case models.KindBook:
		node.Description = req.Description
	case models.KindContent:
		node.Data = req.Data
	}

	if err := s.nodeRepo.Create(ctx, node); err != nil {
		return nil, err
	}

	s.logger.Info("node created",
		"id", node.ID,
		"type", node.Kind,
		"title", node.Title,
		"parent_id", node.ParentID,
		"user_id", req.UserID,
	)

	return node, nil
}

// Update applies the whitelisted fields of req.Data
func (s *driveService) Update(ctx context.Context, req *driveSvc.UpdateRequest) (*models.Node, error) {
	if err := validateTarget(req.ID, req.Type); err != nil {
		return nil, err
	}

	patch, err := s.buildPatch(req.Type, req.Data)
	if err != nil {
		return nil, err
	}

	node, err := s.nodeRepo.Update(ctx, req.ID, req.UserID, req.Type, patch, s.now())
	if err != nil {
		return nil, err
	}

	s.logger.Info("node updated", "id", node.ID, "type", node.Kind, "user_id", req.UserID)
	return node, nil
}

// Delete trashes or permanently removes a node
func (s *driveService) Delete(ctx context.Context, req *driveSvc.DeleteRequest) error {
	if err := validateTarget(req.ID, req.Type); err != nil {
		return err
	}

	switch req.Mode {
	case "", driveSvc.DeleteModePermanent:
	case driveSvc.DeleteModeTrash:
		if _, err := s.nodeRepo.SetTrash(ctx, req.ID, req.UserID, req.Type, true, s.now()); err != nil {
			return err
		}
		s.logger.Info("node trashed", "id", req.ID, "type", req.Type, "user_id", req.UserID)
		return nil
	default:
		return fmt.Errorf("%w: mode must be %q or %q", domain.ErrValidation,
			driveSvc.DeleteModeTrash, driveSvc.DeleteModePermanent)
	}

	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		if err := s.nodeRepo.DeleteIfEmpty(ctx, req.ID, req.UserID, req.Type); err != nil {
			return err
		}
		if req.Type == models.KindContent {
			return s.quizRepo.DeleteByContentID(ctx, req.ID, req.UserID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("node deleted", "id", req.ID, "type", req.Type, "user_id", req.UserID)
	return nil
}

// Restore clears the trash flag of a node
func (s *driveService) Restore(ctx context.Context, userID, id string) (*models.Node, error) {
	node, err := s.nodeRepo.GetByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if !node.IsTrash {
		return node, nil
	}

	restored, err := s.nodeRepo.SetTrash(ctx, id, userID, node.Kind, false, s.now())
	if err != nil {
		return nil, err
	}

	s.logger.Info("node restored", "id", id, "type", node.Kind, "user_id", userID)
	return restored, nil
}

// NormalizeParentID maps the root spellings (absent, "", "null", "root") to nil
func NormalizeParentID(parentID *string) *string {
	if parentID == nil {
		return nil
	}
	switch strings.TrimSpace(*parentID) {
	case "", "null", "root":
		return nil
	}
	id := strings.TrimSpace(*parentID)
	return &id
}
