package sidebar

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursedrive/internal/domain"
	models "coursedrive/internal/domain/models/drive"
)

// fakeFetcher serves levels from a map keyed by parent id ("" is the root)
type fakeFetcher struct {
	mu     sync.Mutex
	levels map[string][]models.SidebarItem
	fail   map[string]error
	calls  map[string]int
	gate   chan struct{}
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		levels: map[string][]models.SidebarItem{},
		fail:   map[string]error{},
		calls:  map[string]int{},
	}
}

func (f *fakeFetcher) SidebarItems(ctx context.Context, parentID *string) ([]models.SidebarItem, error) {
	key := ""
	if parentID != nil {
		key = *parentID
	}

	f.mu.Lock()
	f.calls[key]++
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[key]; err != nil {
		return nil, err
	}
	return append([]models.SidebarItem(nil), f.levels[key]...), nil
}

func (f *fakeFetcher) callCount(parent string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[parent]
}

func book(id, title string, hasChildren bool) models.SidebarItem {
	return models.SidebarItem{Node: models.Node{ID: id, Kind: models.KindBook, Title: title}, HasChildren: hasChildren}
}

func content(id, title string) models.SidebarItem {
	return models.SidebarItem{Node: models.Node{ID: id, Kind: models.KindContent, Title: title}}
}

// courseFetcher is a small drive: Algebra/{Linear/{Slopes}, Lesson 1}, Empty, Welcome
func courseFetcher() *fakeFetcher {
	f := newFakeFetcher()
	f.levels[""] = []models.SidebarItem{
		book("algebra", "Algebra", true),
		book("empty", "Empty", false),
		content("welcome", "Welcome"),
	}
	f.levels["algebra"] = []models.SidebarItem{
		book("linear", "Linear equations", true),
		content("lesson-1", "Lesson 1"),
	}
	f.levels["linear"] = []models.SidebarItem{
		content("slopes", "Slopes"),
	}
	return f
}

func titles(rows []Row) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		if r.Item == nil {
			out = append(out, "<"+r.Status.String()+">")
			continue
		}
		out = append(out, r.Item.Title)
	}
	return out
}

func TestSidebar_MountLoadsRoot(t *testing.T) {
	f := courseFetcher()
	s := New(f, Options{})

	assert.Empty(t, s.Rows(), "nothing before mount")

	require.NoError(t, s.Mount(context.Background(), nil))

	rows := s.Rows()
	assert.Equal(t, []string{"Algebra", "Empty", "Welcome"}, titles(rows))
	for _, r := range rows {
		assert.Equal(t, 0, r.Depth)
		assert.Equal(t, StatusLoaded, r.Status)
		assert.Nil(t, r.ParentID)
	}
	assert.Equal(t, 1, f.callCount(""))
}

func TestSidebar_ExpandCollapseRefetches(t *testing.T) {
	f := courseFetcher()
	s := New(f, Options{})
	ctx := context.Background()
	require.NoError(t, s.Mount(ctx, nil))

	require.NoError(t, s.Toggle(ctx, "algebra"))
	assert.True(t, s.Expanded("algebra"))
	assert.Equal(t, []string{"Algebra", "Linear equations", "Lesson 1", "Empty", "Welcome"}, titles(s.Rows()))
	assert.Equal(t, 1, s.Rows()[1].Depth)

	require.NoError(t, s.Toggle(ctx, "linear"))
	assert.Equal(t, []string{"Algebra", "Linear equations", "Slopes", "Lesson 1", "Empty", "Welcome"}, titles(s.Rows()))
	assert.Equal(t, 2, s.Rows()[2].Depth)

	// Collapsing unmounts the whole subtree, including the expanded grandchild
	require.NoError(t, s.Toggle(ctx, "algebra"))
	assert.False(t, s.Expanded("algebra"))
	assert.False(t, s.Expanded("linear"))
	assert.Equal(t, []string{"Algebra", "Empty", "Welcome"}, titles(s.Rows()))

	f.mu.Lock()
	f.levels["algebra"] = append(f.levels["algebra"], content("lesson-2", "Lesson 2"))
	f.mu.Unlock()

	require.NoError(t, s.Toggle(ctx, "algebra"))
	assert.Equal(t, 2, f.callCount("algebra"), "re-expanding refetches")
	assert.Equal(t, []string{"Algebra", "Linear equations", "Lesson 1", "Lesson 2", "Empty", "Welcome"}, titles(s.Rows()))
	assert.False(t, s.Expanded("linear"), "expansion is not remembered across remounts")
}

func TestSidebar_BookWithoutChildrenMountsNothing(t *testing.T) {
	f := courseFetcher()
	s := New(f, Options{})
	ctx := context.Background()
	require.NoError(t, s.Mount(ctx, nil))

	require.NoError(t, s.Toggle(ctx, "empty"))
	assert.True(t, s.Expanded("empty"))
	assert.Equal(t, 0, f.callCount("empty"))
	assert.Equal(t, []string{"Algebra", "Empty", "Welcome"}, titles(s.Rows()))

	require.NoError(t, s.Toggle(ctx, "empty"))
	assert.False(t, s.Expanded("empty"))
}

func TestSidebar_ToggleErrors(t *testing.T) {
	s := New(courseFetcher(), Options{})
	ctx := context.Background()
	require.NoError(t, s.Mount(ctx, nil))

	err := s.Toggle(ctx, "slopes")
	assert.ErrorIs(t, err, domain.ErrNotFound, "items of unmounted levels are unknown")

	err = s.Toggle(ctx, "welcome")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSidebar_SearchIsLocalToMountedLevels(t *testing.T) {
	f := courseFetcher()
	s := New(f, Options{})
	ctx := context.Background()
	require.NoError(t, s.Mount(ctx, nil))

	s.SetSearch("SLOPES")
	assert.Empty(t, s.Rows(), "search never reaches unexpanded levels")
	assert.Equal(t, 0, f.callCount("linear"))

	s.SetSearch("al")
	assert.Equal(t, []string{"Algebra"}, titles(s.Rows()))

	require.NoError(t, s.Toggle(ctx, "algebra"))
	s.SetSearch("e")
	assert.Equal(t, []string{"Algebra", "Linear equations", "Lesson 1", "Empty", "Welcome"}, titles(s.Rows()))

	s.SetSearch("lesson")
	assert.Empty(t, s.Rows(), "children are only shown under a matching parent")

	s.SetSearch("")
	assert.Len(t, s.Rows(), 5)
	assert.Equal(t, "", s.Search())
}

func TestSidebar_LevelErrorAndRetry(t *testing.T) {
	f := courseFetcher()
	boom := errors.New("connection refused")
	f.fail["algebra"] = boom

	s := New(f, Options{})
	ctx := context.Background()
	require.NoError(t, s.Mount(ctx, nil))

	err := s.Toggle(ctx, "algebra")
	assert.ErrorIs(t, err, boom)

	rows := s.Rows()
	require.Len(t, rows, 4)
	assert.Nil(t, rows[1].Item)
	assert.Equal(t, StatusError, rows[1].Status)
	assert.Equal(t, boom, rows[1].Err)
	require.NotNil(t, rows[1].ParentID)
	assert.Equal(t, "algebra", *rows[1].ParentID)

	f.mu.Lock()
	delete(f.fail, "algebra")
	f.mu.Unlock()

	parent := "algebra"
	require.NoError(t, s.Retry(ctx, &parent))
	assert.Equal(t, []string{"Algebra", "Linear equations", "Lesson 1", "Empty", "Welcome"}, titles(s.Rows()))

	missing := "linear"
	assert.ErrorIs(t, s.Retry(ctx, &missing), domain.ErrNotFound)
}

func TestSidebar_RootError(t *testing.T) {
	f := newFakeFetcher()
	f.fail[""] = errors.New("401 unauthorized")
	s := New(f, Options{})

	require.Error(t, s.Mount(context.Background(), nil))
	rows := s.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, StatusError, rows[0].Status)
}

func TestSidebar_Activate(t *testing.T) {
	tests := []struct {
		name     string
		mobile   bool
		id       string
		target   Target
		wantPath string
		wantOpen bool
	}{
		{name: "content on desktop", id: "welcome", target: TargetRow, wantPath: "/content/welcome", wantOpen: true},
		{name: "content on mobile closes", mobile: true, id: "welcome", target: TargetRow, wantPath: "/content/welcome", wantOpen: false},
		{name: "content chevron still opens", id: "welcome", target: TargetChevron, wantPath: "/content/welcome", wantOpen: true},
		{name: "book row opens the book page", mobile: true, id: "algebra", target: TargetRow, wantPath: "/book/algebra", wantOpen: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var navigated []string
			s := New(courseFetcher(), Options{
				Mobile:     tt.mobile,
				OnNavigate: func(path string) { navigated = append(navigated, path) },
			})
			ctx := context.Background()
			require.NoError(t, s.Mount(ctx, nil))

			path, err := s.Activate(ctx, tt.id, tt.target)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPath, path)
			assert.Equal(t, tt.wantPath, s.Path())
			assert.Equal(t, []string{tt.wantPath}, navigated)
			assert.Equal(t, tt.wantOpen, s.Open())
			assert.False(t, s.Expanded(tt.id))
		})
	}
}

func TestSidebar_ActivateChevronToggles(t *testing.T) {
	s := New(courseFetcher(), Options{})
	ctx := context.Background()
	require.NoError(t, s.Mount(ctx, nil))

	path, err := s.Activate(ctx, "algebra", TargetChevron)
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Empty(t, s.Path())
	assert.True(t, s.Expanded("algebra"))

	path, err = s.Activate(ctx, "lesson-1", TargetRow)
	require.NoError(t, err)
	assert.Equal(t, "/content/lesson-1", path)

	_, err = s.Activate(ctx, "slopes", TargetRow)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSidebar_MaxDepth(t *testing.T) {
	f := courseFetcher()
	s := New(f, Options{MaxDepth: 2})
	ctx := context.Background()
	require.NoError(t, s.Mount(ctx, nil))

	require.NoError(t, s.Toggle(ctx, "algebra"))
	require.NoError(t, s.Toggle(ctx, "linear"))

	assert.True(t, s.Expanded("linear"))
	assert.Equal(t, 0, f.callCount("linear"), "no level is mounted past the cap")
	assert.Equal(t, []string{"Algebra", "Linear equations", "Lesson 1", "Empty", "Welcome"}, titles(s.Rows()))
}

func TestSidebar_CollapseDuringFetchDropsResult(t *testing.T) {
	f := courseFetcher()
	s := New(f, Options{})
	ctx := context.Background()
	require.NoError(t, s.Mount(ctx, nil))

	gate := make(chan struct{})
	f.mu.Lock()
	f.gate = gate
	f.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- s.Toggle(ctx, "algebra") }()

	require.Eventually(t, func() bool { return f.callCount("algebra") == 1 }, testTimeout, testTick)
	assert.Equal(t, []string{"Algebra", "<loading>", "Empty", "Welcome"}, titles(s.Rows()))

	require.NoError(t, s.Toggle(ctx, "algebra"))
	close(gate)
	require.NoError(t, <-done)

	assert.False(t, s.Expanded("algebra"))
	assert.Equal(t, []string{"Algebra", "Empty", "Welcome"}, titles(s.Rows()))
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "loading", StatusLoading.String())
	assert.Equal(t, "error", StatusError.String())
	assert.Equal(t, "loaded", StatusLoaded.String())
	assert.Equal(t, "Status(9)", Status(9).String())
}

const (
	testTimeout = 2 * time.Second
	testTick    = 5 * time.Millisecond
)
