// Package datatable implements an in-memory filter, sort and paginate pipeline
// over caller-supplied rows, driven by column metadata.
package datatable

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FilterType identifies which pipeline stage a column feeds
type FilterType string

const (
	FilterStatus       FilterType = "status"
	FilterDate         FilterType = "date"
	FilterNumber       FilterType = "number"
	FilterAlphabetical FilterType = "alphabetical"
)

// SortDirection is the direction of a header or alphabetical sort
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Toggle flips the direction; an unset direction becomes ascending
func (d SortDirection) Toggle() SortDirection {
	if d == SortAsc {
		return SortDesc
	}
	return SortAsc
}

// FilterConfig marks a column as the source of one filter stage
type FilterConfig struct {
	Type    FilterType `json:"type"`
	Options []string   `json:"options,omitempty"` // status values offered to the user
}

// Column describes one field of the rows
type Column struct {
	Key      string        `json:"key"`
	Label    string        `json:"label"`
	Sortable bool          `json:"sortable"`
	Filter   *FilterConfig `json:"filterConfig,omitempty"`
}

// Row is one record keyed by column key
type Row map[string]any

// findColumn returns the first column declaring the given filter type.
// Later columns with the same type are ignored.
func findColumn(columns []Column, t FilterType) *Column {
	for i := range columns {
		if columns[i].Filter != nil && columns[i].Filter.Type == t {
			return &columns[i]
		}
	}
	return nil
}

func findSortable(columns []Column, key string) *Column {
	for i := range columns {
		if columns[i].Key == key && columns[i].Sortable {
			return &columns[i]
		}
	}
	return nil
}

// formatValue renders a cell for free-text search
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case time.Time:
		return x.Format("2006-01-02")
	case []string:
		return strings.Join(x, " ")
	default:
		return fmt.Sprint(x)
	}
}

// toFloat converts numeric cells; numeric strings are accepted
func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// toTime converts date cells; RFC 3339 and YYYY-MM-DD strings are accepted
func toTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, !x.IsZero()
	case *time.Time:
		if x == nil {
			return time.Time{}, false
		}
		return *x, !x.IsZero()
	case string:
		if t, err := time.Parse(time.RFC3339, x); err == nil {
			return t, true
		}
		if t, err := time.Parse("2006-01-02", x); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// compareValues orders two cells: nil first, then numbers, times, bools and
// finally case-insensitive strings
func compareValues(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}

	if fa, ok := toFloatStrict(a); ok {
		if fb, ok := toFloatStrict(b); ok {
			return compareFloat(fa, fb)
		}
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb)
		}
	}
	if ba, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			switch {
			case ba == bb:
				return 0
			case !ba:
				return -1
			default:
				return 1
			}
		}
	}

	sa, sb := strings.ToLower(formatValue(a)), strings.ToLower(formatValue(b))
	return strings.Compare(sa, sb)
}

// toFloatStrict is toFloat without string parsing, so "10" and "9" sort as text
func toFloatStrict(v any) (float64, bool) {
	if _, isString := v.(string); isString {
		return 0, false
	}
	return toFloat(v)
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
