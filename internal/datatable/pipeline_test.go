package datatable

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testColumns() []Column {
	return []Column{
		{Key: "name", Label: "Name", Sortable: true, Filter: &FilterConfig{Type: FilterAlphabetical}},
		{Key: "status", Label: "Status", Filter: &FilterConfig{Type: FilterStatus, Options: []string{"active", "inactive"}}},
		{Key: "joined", Label: "Joined", Sortable: true, Filter: &FilterConfig{Type: FilterDate}},
		{Key: "score", Label: "Score", Sortable: true, Filter: &FilterConfig{Type: FilterNumber}},
	}
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		panic(err)
	}
	return t
}

func testRows() []Row {
	return []Row{
		{"id": 1, "name": "Carol", "status": "active", "joined": day("2024-03-01 09:00"), "score": 72},
		{"id": 2, "name": "alice", "status": "inactive", "joined": day("2024-01-15 23:30"), "score": 95},
		{"id": 3, "name": "Bob", "status": "active", "joined": day("2024-02-10 00:00"), "score": 40.5},
		{"id": 4, "name": "Dave", "status": "pending", "joined": day("2024-03-01 23:59"), "score": 88},
		{"id": 5, "name": "Anna", "status": "active", "joined": day("2023-12-31 12:00"), "score": 60},
	}
}

func ids(rows []Row) []int {
	out := make([]int, len(rows))
	for i, r := range rows {
		out[i] = r["id"].(int)
	}
	return out
}

func f(v float64) *float64 { return &v }

func tp(t time.Time) *time.Time { return &t }

func TestProcess(t *testing.T) {
	tests := []struct {
		name  string
		state State
		want  []int
	}{
		{
			name:  "no filters keeps input order",
			state: State{},
			want:  []int{1, 2, 3, 4, 5},
		},
		{
			name:  "search is case-insensitive across all fields",
			state: State{Search: "ACTIVE"},
			want:  []int{1, 2, 3, 5}, // "inactive" contains "active"
		},
		{
			name:  "search matches numbers",
			state: State{Search: "40.5"},
			want:  []int{3},
		},
		{
			name:  "status set filter",
			state: State{Statuses: []string{"inactive", "pending"}},
			want:  []int{2, 4},
		},
		{
			name:  "date range is inclusive of whole days",
			state: State{DateFrom: tp(day("2024-02-10 18:00")), DateTo: tp(day("2024-03-01 00:00"))},
			want:  []int{1, 3, 4},
		},
		{
			name:  "number range inclusive",
			state: State{Min: f(60), Max: f(88)},
			want:  []int{1, 4, 5},
		},
		{
			name:  "header sort ascending numbers",
			state: State{SortKey: "score", SortDir: SortAsc},
			want:  []int{3, 5, 1, 4, 2},
		},
		{
			name:  "header sort descending dates",
			state: State{SortKey: "joined", SortDir: SortDesc},
			want:  []int{4, 1, 3, 2, 5},
		},
		{
			name:  "unknown or unsortable sort key is ignored",
			state: State{SortKey: "status", SortDir: SortAsc},
			want:  []int{1, 2, 3, 4, 5},
		},
		{
			name:  "alphabetical prefix filter",
			state: State{AlphaPrefix: "a"},
			want:  []int{2, 5},
		},
		{
			name:  "alphabetical sort overrides header sort",
			state: State{SortKey: "score", SortDir: SortDesc, AlphaOrder: SortAsc},
			want:  []int{2, 5, 3, 1, 4},
		},
		{
			name:  "stages combine",
			state: State{Statuses: []string{"active"}, Min: f(50), SortKey: "name", SortDir: SortAsc},
			want:  []int{5, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Process(testRows(), testColumns(), tt.state)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestProcess_FirstColumnOfTypeWins(t *testing.T) {
	columns := []Column{
		{Key: "status", Filter: &FilterConfig{Type: FilterStatus}},
		{Key: "name", Filter: &FilterConfig{Type: FilterStatus}},
	}

	got := Process(testRows(), columns, State{Statuses: []string{"pending"}})
	assert.Equal(t, []int{4}, ids(got))
}

func TestProcess_DoesNotMutateInput(t *testing.T) {
	rows := testRows()
	Process(rows, testColumns(), State{SortKey: "score", SortDir: SortDesc})
	assert.Equal(t, []int{1, 2, 3, 4, 5}, ids(rows))
}

func TestApply_Deterministic(t *testing.T) {
	state := State{Search: "a", SortKey: "joined", SortDir: SortAsc, Page: 1}
	first := Apply(testRows(), testColumns(), state, 2)
	second := Apply(testRows(), testColumns(), state, 2)
	assert.Equal(t, first, second)
}

func makeRows(n int) []Row {
	rows := make([]Row, n)
	for i := range rows {
		rows[i] = Row{"id": i, "name": fmt.Sprintf("row %02d", i)}
	}
	return rows
}

func TestPaginate(t *testing.T) {
	rows := makeRows(25)

	page1 := Apply(rows, nil, State{Page: 1}, 10)
	page3 := Apply(rows, nil, State{Page: 3}, 10)

	assert.Len(t, page1.Rows, 10)
	assert.Len(t, page3.Rows, 5)
	assert.Equal(t, 3, page1.TotalPages)
	assert.Equal(t, 25, page1.Total)
}

func TestPaginate_NoGapsOrRepeats(t *testing.T) {
	rows := makeRows(23)
	state := State{SortKey: "name", SortDir: SortDesc}
	columns := []Column{{Key: "name", Sortable: true}}
	full := Process(rows, columns, state)

	var seen []int
	for page := 1; page <= 3; page++ {
		state.Page = page
		p := Apply(rows, columns, state, 10)
		seen = append(seen, ids(p.Rows)...)
	}
	require.Len(t, seen, len(full))
	assert.Equal(t, ids(full), seen)
}

func TestPaginate_ClampsPage(t *testing.T) {
	tests := []struct {
		name     string
		rows     int
		page     int
		wantPage int
		wantRows int
	}{
		{name: "page below one", rows: 5, page: 0, wantPage: 1, wantRows: 5},
		{name: "page past the end", rows: 25, page: 9, wantPage: 3, wantRows: 5},
		{name: "empty input has one page", rows: 0, page: 2, wantPage: 1, wantRows: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Paginate(makeRows(tt.rows), tt.page, 10)
			assert.Equal(t, tt.wantPage, p.Page)
			assert.Len(t, p.Rows, tt.wantRows)
			assert.GreaterOrEqual(t, p.TotalPages, 1)
		})
	}
}

func TestSortDirection_Toggle(t *testing.T) {
	assert.Equal(t, SortAsc, SortDirection("").Toggle())
	assert.Equal(t, SortDesc, SortAsc.Toggle())
	assert.Equal(t, SortAsc, SortDesc.Toggle())
}
