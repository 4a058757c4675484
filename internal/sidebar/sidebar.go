// Package sidebar implements the recursive, lazily expanding drive sidebar.
//
// Each mounted level fetches its own children and goes loading → (error | loaded).
// Expanding a book that has children mounts a child level one deeper; collapsing
// unmounts it, so expanding again refetches. Search filters every mounted level's
// loaded items by title and never reaches levels that are not mounted.
package sidebar

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"coursedrive/internal/config"
	"coursedrive/internal/domain"
	models "coursedrive/internal/domain/models/drive"
)

// Fetcher loads one level of the drive. A nil parentID is the root.
type Fetcher interface {
	SidebarItems(ctx context.Context, parentID *string) ([]models.SidebarItem, error)
}

// Status is the load state of a mounted level
type Status int

const (
	StatusLoading Status = iota
	StatusError
	StatusLoaded
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusError:
		return "error"
	case StatusLoaded:
		return "loaded"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Target is the part of a row that was activated
type Target int

const (
	// TargetRow is the row body: opens the book page or the content
	TargetRow Target = iota
	// TargetChevron is the expand control of a book row
	TargetChevron
)

// Options configures a Sidebar
type Options struct {
	// MaxDepth caps how many levels can be mounted; defaults to config.DefaultMaxTreeDepth
	MaxDepth int
	// Mobile closes the sidebar after a content is opened
	Mobile bool
	// OnNavigate is called with the route of every navigation
	OnNavigate func(path string)
	Logger     *slog.Logger
}

// Row is one visible line of the sidebar. Item is nil for the placeholder row
// of a level that is loading or failed.
type Row struct {
	Item     *models.SidebarItem
	Depth    int
	Expanded bool
	Status   Status
	Err      error
	ParentID *string
}

type level struct {
	parentID *string
	depth    int
	status   Status
	err      error
	items    []models.SidebarItem
	expanded map[string]bool
	children map[string]*level
	gen      uint64
}

// Sidebar is the state of a sidebar. It is safe for concurrent use; fetches run
// without holding the lock and results for levels that were remounted are dropped.
type Sidebar struct {
	mu      sync.Mutex
	fetcher Fetcher
	opts    Options
	logger  *slog.Logger

	root   *level
	search string
	open   bool
	path   string
	gen    uint64
}

// New creates a sidebar. Nothing is fetched until Mount is called.
func New(fetcher Fetcher, opts Options) *Sidebar {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = config.DefaultMaxTreeDepth
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Sidebar{
		fetcher: fetcher,
		opts:    opts,
		logger:  logger,
		open:    true,
	}
}

// Mount (re)mounts the top level at parentID and loads it. All expansion state is reset.
func (s *Sidebar) Mount(ctx context.Context, parentID *string) error {
	s.mu.Lock()
	s.root = s.newLevel(parentID, 0)
	lvl, gen := s.root, s.root.gen
	s.mu.Unlock()

	return s.fetch(ctx, lvl, gen)
}

// Retry refetches the mounted level listing parentID
func (s *Sidebar) Retry(ctx context.Context, parentID *string) error {
	s.mu.Lock()
	lvl := s.findLevel(s.root, parentID)
	if lvl == nil {
		s.mu.Unlock()
		return fmt.Errorf("level %s is not mounted: %w", describeParent(parentID), domain.ErrNotFound)
	}
	s.gen++
	lvl.gen = s.gen
	lvl.status = StatusLoading
	lvl.err = nil
	gen := lvl.gen
	s.mu.Unlock()

	return s.fetch(ctx, lvl, gen)
}

// Toggle expands or collapses a visible book. Expanding a book with children
// mounts and loads its level; collapsing unmounts it.
func (s *Sidebar) Toggle(ctx context.Context, bookID string) error {
	s.mu.Lock()
	lvl, item := s.findItem(s.root, bookID)
	if item == nil {
		s.mu.Unlock()
		return fmt.Errorf("book %s is not in the sidebar: %w", bookID, domain.ErrNotFound)
	}
	if item.Kind != models.KindBook {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s is not a book", domain.ErrValidation, bookID)
	}

	if lvl.expanded[bookID] {
		delete(lvl.expanded, bookID)
		delete(lvl.children, bookID)
		s.mu.Unlock()
		return nil
	}

	lvl.expanded[bookID] = true
	if !item.HasChildren {
		s.mu.Unlock()
		return nil
	}
	if lvl.depth+1 >= s.opts.MaxDepth {
		s.logger.Warn("sidebar depth cap reached", "book_id", bookID, "max_depth", s.opts.MaxDepth)
		s.mu.Unlock()
		return nil
	}

	id := bookID
	child := s.newLevel(&id, lvl.depth+1)
	lvl.children[bookID] = child
	gen := child.gen
	s.mu.Unlock()

	return s.fetch(ctx, child, gen)
}

// Expanded reports whether a book is expanded in its level
func (s *Sidebar) Expanded(bookID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	lvl, _ := s.findItem(s.root, bookID)
	return lvl != nil && lvl.expanded[bookID]
}

// Activate handles a click on a row and returns the route navigated to, if any.
// A content opens /content/<id> and closes a mobile sidebar; a book row body opens
// /book/<id>; a book chevron toggles the book.
func (s *Sidebar) Activate(ctx context.Context, id string, target Target) (string, error) {
	s.mu.Lock()
	_, item := s.findItem(s.root, id)
	if item == nil {
		s.mu.Unlock()
		return "", fmt.Errorf("item %s is not in the sidebar: %w", id, domain.ErrNotFound)
	}
	kind := item.Kind
	s.mu.Unlock()

	switch {
	case kind == models.KindContent:
		s.navigate("/content/"+id, s.opts.Mobile)
		return "/content/" + id, nil
	case target == TargetChevron:
		return "", s.Toggle(ctx, id)
	default:
		s.navigate("/book/"+id, false)
		return "/book/" + id, nil
	}
}

func (s *Sidebar) navigate(path string, closeSidebar bool) {
	s.mu.Lock()
	s.path = path
	if closeSidebar {
		s.open = false
	}
	s.mu.Unlock()

	if s.opts.OnNavigate != nil {
		s.opts.OnNavigate(path)
	}
}

// SetSearch sets the title filter applied to every mounted level
func (s *Sidebar) SetSearch(query string) {
	s.mu.Lock()
	s.search = query
	s.mu.Unlock()
}

// Search returns the current title filter
func (s *Sidebar) Search() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.search
}

// Open reports whether the sidebar is shown
func (s *Sidebar) Open() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// SetOpen shows or hides the sidebar
func (s *Sidebar) SetOpen(open bool) {
	s.mu.Lock()
	s.open = open
	s.mu.Unlock()
}

// Path returns the route of the last navigation
func (s *Sidebar) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

// Rows flattens the mounted levels into the visible rows, depth first
func (s *Sidebar) Rows() []Row {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows []Row
	if s.root != nil {
		rows = s.appendRows(rows, s.root, strings.ToLower(strings.TrimSpace(s.search)))
	}
	return rows
}

func (s *Sidebar) appendRows(rows []Row, lvl *level, search string) []Row {
	switch lvl.status {
	case StatusLoading, StatusError:
		return append(rows, Row{Depth: lvl.depth, Status: lvl.status, Err: lvl.err, ParentID: lvl.parentID})
	}

	for i := range lvl.items {
		item := lvl.items[i]
		if search != "" && !strings.Contains(strings.ToLower(item.Title), search) {
			continue
		}
		rows = append(rows, Row{
			Item:     &item,
			Depth:    lvl.depth,
			Expanded: lvl.expanded[item.ID],
			Status:   StatusLoaded,
			ParentID: lvl.parentID,
		})
		if child, ok := lvl.children[item.ID]; ok {
			rows = s.appendRows(rows, child, search)
		}
	}
	return rows
}

func (s *Sidebar) newLevel(parentID *string, depth int) *level {
	s.gen++
	return &level{
		parentID: parentID,
		depth:    depth,
		status:   StatusLoading,
		expanded: make(map[string]bool),
		children: make(map[string]*level),
		gen:      s.gen,
	}
}

func (s *Sidebar) fetch(ctx context.Context, lvl *level, gen uint64) error {
	items, err := s.fetcher.SidebarItems(ctx, lvl.parentID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if lvl.gen != gen {
		return nil
	}
	if err != nil {
		lvl.status = StatusError
		lvl.err = err
		s.logger.Error("failed to load sidebar level", "parent_id", describeParent(lvl.parentID), "error", err)
		return err
	}

	lvl.status = StatusLoaded
	lvl.err = nil
	lvl.items = items
	return nil
}

// findItem returns the mounted level holding id and the item itself
func (s *Sidebar) findItem(lvl *level, id string) (*level, *models.SidebarItem) {
	if lvl == nil {
		return nil, nil
	}
	for i := range lvl.items {
		if lvl.items[i].ID == id {
			return lvl, &lvl.items[i]
		}
	}
	for _, child := range lvl.children {
		if found, item := s.findItem(child, id); found != nil {
			return found, item
		}
	}
	return nil, nil
}

func (s *Sidebar) findLevel(lvl *level, parentID *string) *level {
	if lvl == nil {
		return nil
	}
	if describeParent(lvl.parentID) == describeParent(parentID) {
		return lvl
	}
	for _, child := range lvl.children {
		if found := s.findLevel(child, parentID); found != nil {
			return found
		}
	}
	return nil
}

func describeParent(parentID *string) string {
	if parentID == nil {
		return "root"
	}
	return *parentID
}
