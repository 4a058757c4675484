package datatable

import (
	"errors"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ParseQuery reads a State from URL query parameters:
//
//	search, status (repeatable or comma separated), dateFrom, dateTo,
//	min, max, sortKey, sortDir, alphaOrder, alphaPrefix, page
//
// Dates accept YYYY-MM-DD or RFC 3339. Malformed values are reported per key.
func ParseQuery(q url.Values) (State, error) {
	state := State{
		Search:      q.Get("search"),
		SortKey:     q.Get("sortKey"),
		AlphaPrefix: q.Get("alphaPrefix"),
	}
	errs := validation.Errors{}

	for _, v := range q["status"] {
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				state.Statuses = append(state.Statuses, s)
			}
		}
	}

	state.DateFrom, errs["dateFrom"] = parseDate(q.Get("dateFrom"))
	state.DateTo, errs["dateTo"] = parseDate(q.Get("dateTo"))
	state.Min, errs["min"] = parseNumber(q.Get("min"))
	state.Max, errs["max"] = parseNumber(q.Get("max"))
	state.SortDir, errs["sortDir"] = parseDirection(q.Get("sortDir"))
	state.AlphaOrder, errs["alphaOrder"] = parseDirection(q.Get("alphaOrder"))

	if raw := q.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			errs["page"] = errors.New("must be an integer")
		}
		state.Page = page
	}

	if state.SortKey != "" && state.SortDir == "" {
		state.SortDir = SortAsc
	}

	return state, errs.Filter()
}

func parseDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, errors.New("must be a date (YYYY-MM-DD)")
}

func parseNumber(raw string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return nil, errors.New("must be a number")
	}
	return &n, nil
}

func parseDirection(raw string) (SortDirection, error) {
	switch d := SortDirection(strings.ToLower(raw)); d {
	case "", SortAsc, SortDesc:
		return d, nil
	}
	return "", errors.New(`must be "asc" or "desc"`)
}
