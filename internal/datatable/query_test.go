package datatable

import (
	"errors"
	"net/url"
	"testing"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuery(t *testing.T) {
	q, err := url.ParseQuery("search=alg&status=draft,published&status=trashed&dateFrom=2024-01-01" +
		"&dateTo=2024-02-01T10:00:00Z&min=1&max=2.5&sortKey=title&alphaOrder=DESC&alphaPrefix=a&page=3")
	require.NoError(t, err)

	state, err := ParseQuery(q)
	require.NoError(t, err)

	assert.Equal(t, "alg", state.Search)
	assert.Equal(t, []string{"draft", "published", "trashed"}, state.Statuses)
	require.NotNil(t, state.DateFrom)
	assert.Equal(t, "2024-01-01", state.DateFrom.Format("2006-01-02"))
	require.NotNil(t, state.DateTo)
	assert.Equal(t, 10, state.DateTo.Hour())
	assert.Equal(t, 1.0, *state.Min)
	assert.Equal(t, 2.5, *state.Max)
	assert.Equal(t, "title", state.SortKey)
	assert.Equal(t, SortAsc, state.SortDir, "sort key without direction sorts ascending")
	assert.Equal(t, SortDesc, state.AlphaOrder)
	assert.Equal(t, "a", state.AlphaPrefix)
	assert.Equal(t, 3, state.Page)
}

func TestParseQuery_Empty(t *testing.T) {
	state, err := ParseQuery(url.Values{})
	require.NoError(t, err)
	assert.Equal(t, State{}, state)
}

func TestParseQuery_Errors(t *testing.T) {
	q, err := url.ParseQuery("dateFrom=yesterday&min=lots&sortDir=up&page=two")
	require.NoError(t, err)

	_, err = ParseQuery(q)
	var verrs validation.Errors
	require.True(t, errors.As(err, &verrs))
	assert.Len(t, verrs, 4)
	for _, key := range []string{"dateFrom", "min", "sortDir", "page"} {
		assert.Contains(t, verrs, key)
	}
}

func TestParseQuery_NonFiniteNumbers(t *testing.T) {
	for _, raw := range []string{"NaN", "nan", "Inf", "-Inf", "+Infinity", "1e999"} {
		t.Run(raw, func(t *testing.T) {
			_, err := ParseQuery(url.Values{"min": {raw}, "max": {raw}})
			var verrs validation.Errors
			require.True(t, errors.As(err, &verrs))
			assert.Contains(t, verrs, "min")
			assert.Contains(t, verrs, "max")
		})
	}
}
