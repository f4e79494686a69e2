package resource

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"ops-console-backend/internal/cache"
	"ops-console-backend/internal/metrics"
	"ops-console-backend/internal/model"
	"ops-console-backend/internal/store"
)

// Mutation actions, as reported in metrics and change events.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionToggle = "toggle"
	ActionDelete = "delete"
)

// Input is a create payload for T.
type Input[T any] interface {
	// Normalize trims and defaults fields before validation.
	Normalize()
	// Model builds the row to insert from a validated payload.
	Model() T
}

// Patch is a partial update for T.
type Patch[T any] interface {
	Normalize()
	// Updates returns the changed columns keyed by column name.
	Updates() map[string]any
	// Apply copies the changed fields onto row.
	Apply(row *T)
}

// Gateway is the persistence surface the executor writes through.
type Gateway[T any] interface {
	List(ctx context.Context) ([]T, error)
	Insert(ctx context.Context, row *T) error
	Update(ctx context.Context, id int64, updates map[string]any) error
	Delete(ctx context.Context, id int64) error
	GetField(ctx context.Context, id int64, field string) (T, error)
}

// ChangeEvent is emitted after every successful mutation.
type ChangeEvent struct {
	Kind   string `json:"kind"`
	Label  string `json:"label"`
	ID     int64  `json:"id"`
	Action string `json:"action"`
}

// Notifier receives change events. Notify must not block.
type Notifier interface {
	Notify(ev ChangeEvent)
}

// Service is the mutation executor and cached list for one kind.
type Service[T any] struct {
	def    *Definition[T]
	gw     Gateway[T]
	tags   *cache.Tags
	reader *cache.Reader[[]T]
	log    *zap.Logger
	notify Notifier
}

// NewService wires def to its gateway and tag cache.
func NewService[T any](def *Definition[T], gw Gateway[T], tags *cache.Tags, log *zap.Logger) *Service[T] {
	log = log.With(zap.String("kind", def.Kind))
	return &Service[T]{
		def:    def,
		gw:     gw,
		tags:   tags,
		reader: cache.NewReader(tags, def.Tag, gw.List, log),
		log:    log,
	}
}

// SetNotifier registers the receiver of change events.
func (s *Service[T]) SetNotifier(n Notifier) { s.notify = n }

// Definition returns the kind definition.
func (s *Service[T]) Definition() *Definition[T] { return s.def }

// List returns the cached list of rows.
func (s *Service[T]) List(ctx context.Context) ([]T, error) {
	return s.reader.Get(ctx)
}

// Create validates in and inserts one row. The returned row carries the
// server-assigned id and timestamps.
func (s *Service[T]) Create(ctx context.Context, in Input[T]) (T, error) {
	var zero T
	in.Normalize()
	if err := Check(s.def.Kind, in); err != nil {
		s.count(ActionCreate, "invalid")
		return zero, err
	}

	row := in.Model()
	if err := s.gw.Insert(ctx, &row); err != nil {
		return zero, s.failed(ActionCreate, 0, err)
	}
	s.done(ctx, ActionCreate, s.def.ID(row))
	return row, nil
}

// Update validates p and writes its fields to row id.
func (s *Service[T]) Update(ctx context.Context, id int64, p Patch[T]) error {
	p.Normalize()
	if err := Check(s.def.Kind, p); err != nil {
		s.count(ActionUpdate, "invalid")
		return err
	}
	updates := p.Updates()
	if len(updates) == 0 {
		s.count(ActionUpdate, "invalid")
		return &ValidationError{Kind: s.def.Kind, Fields: []FieldError{{Rule: "required", Message: "no fields to update"}}}
	}

	if err := s.gw.Update(ctx, id, updates); err != nil {
		return s.failed(ActionUpdate, id, err)
	}
	s.done(ctx, ActionUpdate, id)
	return nil
}

// Toggle flips the status of row id and returns the new status. The read and
// the write are separate statements; a concurrent toggle in between is lost.
func (s *Service[T]) Toggle(ctx context.Context, id int64) (model.Status, error) {
	if !s.def.Toggleable() {
		return "", fmt.Errorf("toggle %s: %w", s.def.Kind, ErrUnsupported)
	}

	current, err := s.gw.GetField(ctx, id, "status")
	if err != nil {
		return "", s.failed(ActionToggle, id, err)
	}
	next := s.def.Status(current).Flip()
	if err := s.gw.Update(ctx, id, map[string]any{"status": next}); err != nil {
		return "", s.failed(ActionToggle, id, err)
	}
	s.done(ctx, ActionToggle, id)
	return next, nil
}

// Delete removes row id.
func (s *Service[T]) Delete(ctx context.Context, id int64) error {
	if err := s.gw.Delete(ctx, id); err != nil {
		return s.failed(ActionDelete, id, err)
	}
	s.done(ctx, ActionDelete, id)
	return nil
}

func (s *Service[T]) count(action, result string) {
	metrics.Mutations.WithLabelValues(s.def.Kind, action, result).Inc()
}

func (s *Service[T]) failed(action string, id int64, err error) error {
	result := "error"
	if store.IsNotFound(err) {
		result = "not_found"
	}
	s.count(action, result)
	s.log.Error("mutation failed", zap.String("action", action), zap.Int64("id", id), zap.Error(err))
	return err
}

// done invalidates the kind's tag once and announces the change. A failed
// invalidation does not undo the write.
func (s *Service[T]) done(ctx context.Context, action string, id int64) {
	s.count(action, "ok")
	if err := s.tags.Invalidate(ctx, s.def.Tag); err != nil {
		s.log.Error("cache invalidation failed", zap.String("tag", s.def.Tag), zap.Error(err))
	}
	s.log.Info("mutation applied", zap.String("action", action), zap.Int64("id", id))
	if s.notify != nil {
		s.notify.Notify(ChangeEvent{Kind: s.def.Kind, Label: s.def.Label, ID: id, Action: action})
	}
}
