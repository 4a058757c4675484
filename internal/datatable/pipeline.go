package datatable

import (
	"sort"
	"strings"
	"time"
)

// DefaultPageSize is used when Apply is called with a non-positive page size
const DefaultPageSize = 10

// State is the user-controlled configuration of the pipeline
type State struct {
	Search      string        `json:"search,omitempty"`
	Statuses    []string      `json:"statuses,omitempty"`
	DateFrom    *time.Time    `json:"dateFrom,omitempty"`
	DateTo      *time.Time    `json:"dateTo,omitempty"`
	Min         *float64      `json:"min,omitempty"`
	Max         *float64      `json:"max,omitempty"`
	SortKey     string        `json:"sortKey,omitempty"`
	SortDir     SortDirection `json:"sortDir,omitempty"`
	AlphaOrder  SortDirection `json:"alphaOrder,omitempty"`
	AlphaPrefix string        `json:"alphaPrefix,omitempty"`
	Page        int           `json:"page,omitempty"`
}

// Page is one page of the filtered and sorted rows
type Page struct {
	Rows       []Row `json:"rows"`
	Total      int   `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalPages int   `json:"totalPages"`
}

// Apply runs the full pipeline and returns the requested page. It never
// mutates rows; the same input and state always yield the same page.
func Apply(rows []Row, columns []Column, state State, pageSize int) *Page {
	return Paginate(Process(rows, columns, state), state.Page, pageSize)
}

// Process filters and sorts rows without paginating. Stages run in a fixed order:
// search, status, date range, number range, header sort, alphabetical sort/prefix.
// The alphabetical stage runs last, so when both sorts are set it decides the order.
func Process(rows []Row, columns []Column, state State) []Row {
	out := make([]Row, 0, len(rows))
	search := strings.ToLower(strings.TrimSpace(state.Search))

	statusCol := findColumn(columns, FilterStatus)
	dateCol := findColumn(columns, FilterDate)
	numberCol := findColumn(columns, FilterNumber)
	alphaCol := findColumn(columns, FilterAlphabetical)

	statuses := make(map[string]struct{}, len(state.Statuses))
	for _, s := range state.Statuses {
		statuses[s] = struct{}{}
	}

	var from, to time.Time
	if state.DateFrom != nil {
		from = startOfDay(*state.DateFrom)
	}
	if state.DateTo != nil {
		to = endOfDay(*state.DateTo)
	}

	prefix := strings.ToLower(state.AlphaPrefix)

	for _, row := range rows {
		if search != "" && !matchesSearch(row, search) {
			continue
		}
		if statusCol != nil && len(statuses) > 0 {
			if _, ok := statuses[formatValue(row[statusCol.Key])]; !ok {
				continue
			}
		}
		if dateCol != nil && (state.DateFrom != nil || state.DateTo != nil) {
			t, ok := toTime(row[dateCol.Key])
			if !ok {
				continue
			}
			if state.DateFrom != nil && t.Before(from) {
				continue
			}
			if state.DateTo != nil && t.After(to) {
				continue
			}
		}
		if numberCol != nil && (state.Min != nil || state.Max != nil) {
			n, ok := toFloat(row[numberCol.Key])
			if !ok {
				continue
			}
			if state.Min != nil && n < *state.Min {
				continue
			}
			if state.Max != nil && n > *state.Max {
				continue
			}
		}
		if alphaCol != nil && prefix != "" {
			if !strings.HasPrefix(strings.ToLower(formatValue(row[alphaCol.Key])), prefix) {
				continue
			}
		}
		out = append(out, row)
	}

	if col := findSortable(columns, state.SortKey); col != nil {
		key := col.Key
		desc := state.SortDir == SortDesc
		sort.SliceStable(out, func(i, j int) bool {
			c := compareValues(out[i][key], out[j][key])
			if desc {
				return c > 0
			}
			return c < 0
		})
	}

	if alphaCol != nil && state.AlphaOrder != "" {
		key := alphaCol.Key
		desc := state.AlphaOrder == SortDesc
		sort.SliceStable(out, func(i, j int) bool {
			c := strings.Compare(
				strings.ToLower(formatValue(out[i][key])),
				strings.ToLower(formatValue(out[j][key])),
			)
			if desc {
				return c > 0
			}
			return c < 0
		})
	}

	return out
}

// Paginate slices rows into a page. Page numbers start at 1 and are clamped
// into [1, TotalPages]; an empty input still has one (empty) page.
func Paginate(rows []Row, page, pageSize int) *Page {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	total := len(rows)
	totalPages := (total + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if end > total {
		end = total
	}

	pageRows := make([]Row, 0, end-start)
	pageRows = append(pageRows, rows[start:end]...)

	return &Page{
		Rows:       pageRows,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}

func matchesSearch(row Row, search string) bool {
	for _, v := range row {
		if strings.Contains(strings.ToLower(formatValue(v)), search) {
			return true
		}
	}
	return false
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}
