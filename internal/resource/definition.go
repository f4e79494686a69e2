package resource

import (
	"ops-console-backend/internal/model"
	"ops-console-backend/internal/store"
	"ops-console-backend/internal/view"
)

// Definition is everything the generic CRUD pattern needs to know about one
// entity kind.
type Definition[T any] struct {
	// Kind names the table, the URL segment and the metric label.
	Kind string
	// Label is the singular display name.
	Label string
	// Tag addresses the cached list.
	Tag string

	NewInput func() Input[T]
	NewPatch func() Patch[T]

	ID    func(T) int64
	SetID func(*T, int64)

	// Status and SetStatus are nil for kinds without status.
	Status    func(T) model.Status
	SetStatus func(*T, model.Status)

	// Gateway configures ordering and joins of the list query.
	Gateway []store.Option[T]
	View    *view.Table[T]
}

// Toggleable reports whether the kind has a status to flip.
func (d *Definition[T]) Toggleable() bool {
	return d.Status != nil && d.SetStatus != nil
}
