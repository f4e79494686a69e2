package store

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Table is the persistence gateway for one entity kind. It is the only
// writer of canonical rows for that kind.
type Table[T any] struct {
	db    *gorm.DB
	kind  string
	log   *zap.Logger
	order clause.OrderByColumn
	joins []join[T]
	seq   *sequence[T]

	// seqMissing is sticky: once set it stays set for the process lifetime.
	seqMissing atomic.Bool
}

type join[T any] struct {
	assoc string
	fill  func(*T)
}

type sequence[T any] struct {
	column   string
	fallback clause.OrderByColumn
	assign   func(*T, int64)
}

// Option configures a Table.
type Option[T any] func(*Table[T])

// OrderBy sets the list ordering column.
func OrderBy[T any](column string, desc bool) Option[T] {
	return func(t *Table[T]) {
		t.order = orderColumn(column, desc)
	}
}

// SequenceOrder orders the list by a display-sequence column. When the column
// is absent the list falls back to ascending fallbackColumn and assign is
// called with the 1-based position of each row.
func SequenceOrder[T any](column, fallbackColumn string, assign func(*T, int64)) Option[T] {
	return func(t *Table[T]) {
		t.order = orderColumn(column, false)
		t.seq = &sequence[T]{
			column:   column,
			fallback: orderColumn(fallbackColumn, false),
			assign:   assign,
		}
	}
}

// Join loads a belongs-to association in the list query with a LEFT JOIN and
// lets fill copy the related fields onto the row.
func Join[T any](assoc string, fill func(*T)) Option[T] {
	return func(t *Table[T]) {
		t.joins = append(t.joins, join[T]{assoc: assoc, fill: fill})
	}
}

func orderColumn(column string, desc bool) clause.OrderByColumn {
	return clause.OrderByColumn{
		Column: clause.Column{Table: clause.CurrentTable, Name: column},
		Desc:   desc,
	}
}

// NewTable creates a gateway for the table backing T.
func NewTable[T any](db *gorm.DB, kind string, log *zap.Logger, opts ...Option[T]) *Table[T] {
	t := &Table[T]{
		db:    db,
		kind:  kind,
		log:   log,
		order: orderColumn("id", false),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Kind returns the entity kind this gateway serves.
func (t *Table[T]) Kind() string { return t.kind }

// NegotiateOrdering checks the schema for the display-sequence column and
// seeds the fallback flag. It is a no-op for tables without one.
func (t *Table[T]) NegotiateOrdering() bool {
	if t.seq == nil {
		return true
	}
	present := t.db.Migrator().HasColumn(new(T), t.seq.column)
	if !present {
		t.markSequenceMissing()
	}
	return present
}

// SequenceFallback reports whether the list has downgraded to fallback ordering.
func (t *Table[T]) SequenceFallback() bool {
	return t.seqMissing.Load()
}

func (t *Table[T]) markSequenceMissing() {
	if t.seqMissing.CompareAndSwap(false, true) {
		t.log.Warn("sequence column missing; falling back to creation order",
			zap.String("kind", t.kind),
			zap.String("column", t.seq.column),
		)
	}
}

// List returns every row in the kind's ordering, with joined names filled in.
func (t *Table[T]) List(ctx context.Context) ([]T, error) {
	if t.seq != nil && !t.seqMissing.Load() {
		rows, err := t.list(ctx, false)
		if err == nil {
			return rows, nil
		}
		if !IsUndefinedColumn(err) {
			return nil, &StorageError{Op: "list", Kind: t.kind, Err: err}
		}
		t.markSequenceMissing()
	}

	rows, err := t.list(ctx, t.seq != nil)
	if err != nil {
		return nil, &StorageError{Op: "list", Kind: t.kind, Err: err}
	}
	return rows, nil
}

func (t *Table[T]) list(ctx context.Context, fallback bool) ([]T, error) {
	q := t.db.WithContext(ctx)
	for _, j := range t.joins {
		q = q.Joins(j.assoc)
	}
	if fallback {
		q = q.Omit(t.seq.column).Order(t.seq.fallback)
	} else {
		q = q.Order(t.order)
	}

	var rows []T
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		for _, j := range t.joins {
			j.fill(&rows[i])
		}
		if fallback {
			t.seq.assign(&rows[i], int64(i+1))
		}
	}
	return rows, nil
}

// Insert writes a new row. The server assigns id and timestamps.
func (t *Table[T]) Insert(ctx context.Context, row *T) error {
	if err := t.db.WithContext(ctx).Omit(clause.Associations).Create(row).Error; err != nil {
		return &StorageError{Op: "insert", Kind: t.kind, Err: err}
	}
	return nil
}

// Update applies a partial column update to one row.
func (t *Table[T]) Update(ctx context.Context, id int64, updates map[string]any) error {
	res := t.db.WithContext(ctx).Model(new(T)).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return &StorageError{Op: "update", Kind: t.kind, ID: id, Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return &NotFoundError{Kind: t.kind, ID: id}
	}
	return nil
}

// Delete hard-deletes one row.
func (t *Table[T]) Delete(ctx context.Context, id int64) error {
	res := t.db.WithContext(ctx).Delete(new(T), id)
	if res.Error != nil {
		return &StorageError{Op: "delete", Kind: t.kind, ID: id, Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return &NotFoundError{Kind: t.kind, ID: id}
	}
	return nil
}

// GetField reads a single column of one row. Only that field of the returned
// value is populated.
func (t *Table[T]) GetField(ctx context.Context, id int64, field string) (T, error) {
	var row T
	err := t.db.WithContext(ctx).Model(new(T)).Select(field).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return row, &NotFoundError{Kind: t.kind, ID: id}
	}
	if err != nil {
		return row, &StorageError{Op: fmt.Sprintf("read %s", field), Kind: t.kind, ID: id, Err: err}
	}
	return row, nil
}
