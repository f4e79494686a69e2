package view

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"ops-console-backend/internal/model"
)

// ColumnKind selects how a column compares.
type ColumnKind int

const (
	Text ColumnKind = iota
	Numeric
	Date
)

// Column is one sortable, exportable column of a table.
type Column[T any] struct {
	Key    string
	Header string
	Kind   ColumnKind
	// Value returns int64, float64, time.Time, string or a pointer to one
	// of those. A nil pointer is an empty cell.
	Value func(T) any
}

// Table describes how rows of T are searched, filtered and sorted.
type Table[T any] struct {
	Columns     []Column[T]
	DefaultSort string
	// Search returns the texts matched by the search box.
	Search func(T) []string
	// Status is nil for kinds without a status.
	Status func(T) model.Status
}

// Status filter values.
const (
	FilterAll      = "all"
	FilterActive   = "active"
	FilterInactive = "inactive"
)

// Query is the state of the table controls.
type Query struct {
	Search string `json:"q"`
	Status string `json:"status"`
	SortBy string `json:"sort"`
	Desc   bool   `json:"desc"`
}

// Click returns the query after a click on the header of column: the same
// column flips direction, a new one starts ascending.
func (q Query) Click(column string) Query {
	if q.SortBy == column {
		q.Desc = !q.Desc
		return q
	}
	q.SortBy = column
	q.Desc = false
	return q
}

// ParseQuery reads q, status, sort and dir from URL values.
func ParseQuery(v url.Values) Query {
	return Query{
		Search: v.Get("q"),
		Status: v.Get("status"),
		SortBy: v.Get("sort"),
		Desc:   strings.EqualFold(v.Get("dir"), "desc"),
	}
}

// Values encodes q back into URL values, omitting defaults.
func (q Query) Values() url.Values {
	v := url.Values{}
	if q.Search != "" {
		v.Set("q", q.Search)
	}
	if q.Status != "" && q.Status != FilterAll {
		v.Set("status", q.Status)
	}
	if q.SortBy != "" {
		v.Set("sort", q.SortBy)
	}
	if q.Desc {
		v.Set("dir", "desc")
	}
	return v
}

// Column returns the column with key, or false.
func (t *Table[T]) Column(key string) (Column[T], bool) {
	for _, c := range t.Columns {
		if c.Key == key {
			return c, true
		}
	}
	return Column[T]{}, false
}

// Derive filters and sorts rows. It never modifies rows and returns a new
// slice; identical inputs always give identical output.
func (t *Table[T]) Derive(rows []T, q Query, locale string) []T {
	needle := strings.ToLower(strings.TrimSpace(q.Search))

	out := make([]T, 0, len(rows))
	for _, row := range rows {
		if !t.matchStatus(row, q.Status) {
			continue
		}
		if needle != "" && !t.matchSearch(row, needle) {
			continue
		}
		out = append(out, row)
	}

	col, ok := t.Column(q.SortBy)
	if !ok {
		col, ok = t.Column(t.DefaultSort)
	}
	if !ok {
		return out
	}

	// Collators keep internal buffers and are not safe to share.
	cmp := comparator[T](col, collate.New(language.Make(locale)))
	sort.SliceStable(out, func(i, j int) bool {
		c := cmp(out[i], out[j])
		if q.Desc {
			return c > 0
		}
		return c < 0
	})
	return out
}

func (t *Table[T]) matchStatus(row T, filter string) bool {
	if filter == "" || filter == FilterAll || t.Status == nil {
		return true
	}
	return string(t.Status(row)) == filter
}

func (t *Table[T]) matchSearch(row T, needle string) bool {
	if t.Search == nil {
		return true
	}
	for _, s := range t.Search(row) {
		if strings.Contains(strings.ToLower(s), needle) {
			return true
		}
	}
	return false
}

func comparator[T any](col Column[T], coll *collate.Collator) func(a, b T) int {
	switch col.Kind {
	case Numeric:
		return func(a, b T) int {
			return compareNumbers(number(col.Value(a)), number(col.Value(b)))
		}
	case Date:
		return func(a, b T) int {
			return instant(col.Value(a)).Compare(instant(col.Value(b)))
		}
	default:
		return func(a, b T) int {
			return coll.CompareString(Format(col.Value(a)), Format(col.Value(b)))
		}
	}
}

func compareNumbers(a, b *float64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	case *a < *b:
		return -1
	case *a > *b:
		return 1
	}
	return 0
}

func number(v any) *float64 {
	var f float64
	switch n := v.(type) {
	case int64:
		f = float64(n)
	case *int64:
		if n == nil {
			return nil
		}
		f = float64(*n)
	case int:
		f = float64(n)
	case float64:
		f = n
	case *float64:
		if n == nil {
			return nil
		}
		f = *n
	default:
		return nil
	}
	return &f
}

func instant(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case *time.Time:
		if t != nil {
			return *t
		}
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err == nil {
			return parsed
		}
	}
	return time.Time{}
}

// Format renders a column value as display text. Nil pointers render empty.
func Format(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case *string:
		if x == nil {
			return ""
		}
		return *x
	case model.Status:
		return string(x)
	case time.Time:
		return x.Format(time.RFC3339)
	case *int64:
		if x == nil {
			return ""
		}
		return fmt.Sprint(*x)
	case *float64:
		if x == nil {
			return ""
		}
		return fmt.Sprint(*x)
	default:
		return fmt.Sprint(x)
	}
}
