package view

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ops-console-backend/internal/model"
)

type item struct {
	ID      int64
	Name    string
	Rank    *int64
	Status  model.Status
	Created time.Time
}

func ptr[V any](v V) *V { return &v }

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

var itemTable = &Table[item]{
	Columns: []Column[item]{
		{Key: "id", Header: "ID", Kind: Numeric, Value: func(i item) any { return i.ID }},
		{Key: "name", Header: "Name", Kind: Text, Value: func(i item) any { return i.Name }},
		{Key: "rank", Header: "Rank", Kind: Numeric, Value: func(i item) any { return i.Rank }},
		{Key: "created_at", Header: "Created", Kind: Date, Value: func(i item) any { return i.Created }},
	},
	DefaultSort: "id",
	Search:      func(i item) []string { return []string{Format(i.ID), i.Name} },
	Status:      func(i item) model.Status { return i.Status },
}

func items() []item {
	return []item{
		{ID: 3, Name: "Érica", Rank: ptr[int64](2), Status: model.StatusActive, Created: base.Add(2 * time.Hour)},
		{ID: 1, Name: "bruno", Rank: nil, Status: model.StatusInactive, Created: base},
		{ID: 12, Name: "Ana", Rank: ptr[int64](10), Status: model.StatusActive, Created: base.Add(time.Hour)},
		{ID: 4, Name: "carla", Rank: ptr[int64](2), Status: model.StatusActive, Created: base.Add(3 * time.Hour)},
	}
}

func ids(rows []item) []int64 {
	out := make([]int64, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}

func TestDerive(t *testing.T) {
	testCases := []struct {
		name  string
		query Query
		want  []int64
	}{
		{name: "default sort is id ascending", query: Query{}, want: []int64{1, 3, 4, 12}},
		{name: "numeric not lexical", query: Query{SortBy: "id", Desc: true}, want: []int64{12, 4, 3, 1}},
		{name: "text uses collation", query: Query{SortBy: "name"}, want: []int64{12, 1, 4, 3}},
		{name: "date", query: Query{SortBy: "created_at"}, want: []int64{1, 12, 3, 4}},
		{name: "nil numbers first and ties stay stable", query: Query{SortBy: "rank"}, want: []int64{1, 3, 4, 12}},
		{name: "status filter", query: Query{Status: FilterInactive}, want: []int64{1}},
		{name: "all is a no-op", query: Query{Status: FilterAll}, want: []int64{1, 3, 4, 12}},
		{name: "search is case-insensitive", query: Query{Search: "  ANA "}, want: []int64{12}},
		{name: "search matches id text", query: Query{Search: "12"}, want: []int64{12}},
		{name: "blank search is ignored", query: Query{Search: "   "}, want: []int64{1, 3, 4, 12}},
		{name: "unknown column falls back to default", query: Query{SortBy: "bogus"}, want: []int64{1, 3, 4, 12}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := itemTable.Derive(items(), tc.query, "pt-BR")
			assert.Equal(t, tc.want, ids(got))
		})
	}
}

func TestDeriveIsPure(t *testing.T) {
	rows := items()
	before := items()
	q := Query{Search: "a", Status: FilterActive, SortBy: "name", Desc: true}

	first := itemTable.Derive(rows, q, "pt-BR")
	second := itemTable.Derive(rows, q, "pt-BR")

	assert.Equal(t, first, second)
	assert.Equal(t, before, rows, "input must not be reordered")
}

func TestDeriveWithoutStatusIgnoresFilter(t *testing.T) {
	table := &Table[item]{
		Columns:     itemTable.Columns,
		DefaultSort: "id",
	}
	got := table.Derive(items(), Query{Status: FilterActive}, "en")
	assert.Len(t, got, 4)
}

func TestQueryClick(t *testing.T) {
	q := Query{SortBy: "id"}

	q = q.Click("id")
	assert.Equal(t, Query{SortBy: "id", Desc: true}, q)

	q = q.Click("id")
	assert.Equal(t, Query{SortBy: "id", Desc: false}, q)

	q = q.Click("name").Click("name").Click("created_at")
	assert.Equal(t, Query{SortBy: "created_at", Desc: false}, q)
}

func TestParseQuery(t *testing.T) {
	v := url.Values{"q": {"solda"}, "status": {"active"}, "sort": {"name"}, "dir": {"DESC"}}
	q := ParseQuery(v)
	assert.Equal(t, Query{Search: "solda", Status: "active", SortBy: "name", Desc: true}, q)
	assert.Equal(t, "dir=desc&q=solda&sort=name&status=active", q.Values().Encode())
}
