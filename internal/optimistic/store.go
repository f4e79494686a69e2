package optimistic

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"ops-console-backend/internal/model"
	"ops-console-backend/internal/resource"
)

// Backend is the mutation surface the store speaks to: the executor itself
// in-process, or an API client.
type Backend[T any] interface {
	List(ctx context.Context) ([]T, error)
	Create(ctx context.Context, in resource.Input[T]) (T, error)
	Update(ctx context.Context, id int64, p resource.Patch[T]) error
	Toggle(ctx context.Context, id int64) (model.Status, error)
	Delete(ctx context.Context, id int64) error
}

// Notifier surfaces transient messages to the user.
type Notifier interface {
	Success(msg string)
	Failure(msg string, err error)
	Syncing()
}

// Overlay is the optimistic status shown for a toggled row.
type Overlay struct {
	Status  model.Status
	Loading bool
}

// Options tunes timing. Zero values take the defaults.
type Options struct {
	// ToggleGrace keeps a settled toggle overlay visible so a refresh can land.
	ToggleGrace time.Duration
	// SyncWindow coalesces "syncing" notices.
	SyncWindow time.Duration

	Now   func() time.Time
	After func(d time.Duration, f func())
}

func (o *Options) defaults() {
	if o.ToggleGrace <= 0 {
		o.ToggleGrace = 800 * time.Millisecond
	}
	if o.SyncWindow <= 0 {
		o.SyncWindow = 1500 * time.Millisecond
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.After == nil {
		o.After = func(d time.Duration, f func()) { time.AfterFunc(d, f) }
	}
}

// Pending actions reported by Busy.
const (
	BusyNone   = ""
	BusyToggle = "toggle"
	BusyDelete = "delete"
)

// Store is a client-side mirror of one kind's list. Mutations are applied
// locally first; a failure reverts the whole row set to the last server
// snapshot.
type Store[T any] struct {
	def      *resource.Definition[T]
	backend  Backend[T]
	notifier Notifier
	log      *zap.Logger
	opts     Options

	mu       sync.Mutex
	rows     []T
	snapshot []T
	overlay  map[int64]Overlay
	// overlayTurn is the toggle that owns each overlay; timers and failures
	// of an older toggle leave a newer overlay alone.
	overlayTurn map[int64]uint64
	toggles     uint64
	busy        map[int64]string
	formBusy    bool
	nextTemp    int64
	lastSync    time.Time

	// requested and applied order refreshes so a late response for an older
	// request never replaces a newer one.
	requested uint64
	applied   uint64
	inflight  sync.WaitGroup
}

// New creates an empty store. Call Load to seed it.
func New[T any](def *resource.Definition[T], backend Backend[T], notifier Notifier, log *zap.Logger, opts Options) *Store[T] {
	opts.defaults()
	return &Store[T]{
		def:         def,
		backend:     backend,
		notifier:    notifier,
		log:         log.With(zap.String("kind", def.Kind)),
		opts:        opts,
		overlay:     make(map[int64]Overlay),
		overlayTurn: make(map[int64]uint64),
		busy:        make(map[int64]string),
	}
}

// Load fetches the server list and makes it both the rows and the snapshot.
func (s *Store[T]) Load(ctx context.Context) error {
	s.mu.Lock()
	s.requested++
	gen := s.requested
	s.mu.Unlock()

	rows, err := s.backend.List(ctx)
	if err != nil {
		return err
	}
	s.accept(gen, rows)
	return nil
}

// Rows returns the displayed rows, with toggle overlays applied.
func (s *Store[T]) Rows() []T {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := slices.Clone(s.rows)
	if s.def.SetStatus == nil {
		return out
	}
	for i := range out {
		if ov, ok := s.overlay[s.def.ID(out[i])]; ok {
			s.def.SetStatus(&out[i], ov.Status)
		}
	}
	return out
}

// Snapshot returns the last server-confirmed rows.
func (s *Store[T]) Snapshot() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.snapshot)
}

// Overlay returns the optimistic toggle state of row id.
func (s *Store[T]) Overlay(id int64) (Overlay, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ov, ok := s.overlay[id]
	return ov, ok
}

// Busy returns the pending row action for id, or BusyNone.
func (s *Store[T]) Busy(id int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy[id]
}

// FormBusy reports whether a create or update is in flight.
func (s *Store[T]) FormBusy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.formBusy
}

// Wait blocks until every refresh started so far has finished.
func (s *Store[T]) Wait() { s.inflight.Wait() }

// Create appends a placeholder row and submits in. On failure the rows revert
// and the error is returned so a form can stay open.
func (s *Store[T]) Create(ctx context.Context, in resource.Input[T]) error {
	in.Normalize()
	s.mu.Lock()
	row := in.Model()
	s.nextTemp--
	s.def.SetID(&row, s.nextTemp)
	s.rows = append(s.rows, row)
	s.formBusy = true
	s.mu.Unlock()

	_, err := s.backend.Create(ctx, in)
	s.mu.Lock()
	s.formBusy = false
	s.mu.Unlock()
	if err != nil {
		return s.fail(fmt.Sprintf("Failed to save %s", strings.ToLower(s.def.Label)), err)
	}
	s.succeed(ctx, fmt.Sprintf("%s created", s.def.Label))
	return nil
}

// Update applies p to row id locally and submits it.
func (s *Store[T]) Update(ctx context.Context, id int64, p resource.Patch[T]) error {
	p.Normalize()
	s.mu.Lock()
	if i := s.index(id); i >= 0 {
		p.Apply(&s.rows[i])
	}
	s.formBusy = true
	s.mu.Unlock()

	err := s.backend.Update(ctx, id, p)
	s.mu.Lock()
	s.formBusy = false
	s.mu.Unlock()
	if err != nil {
		return s.fail(fmt.Sprintf("Failed to save %s", strings.ToLower(s.def.Label)), err)
	}
	s.succeed(ctx, fmt.Sprintf("%s updated", s.def.Label))
	return nil
}

// Toggle flips the displayed status of row id and marks it loading. After
// success the overlay stays for the grace period, then drops.
func (s *Store[T]) Toggle(ctx context.Context, id int64) error {
	if !s.def.Toggleable() {
		return fmt.Errorf("toggle %s: %w", s.def.Kind, resource.ErrUnsupported)
	}

	s.mu.Lock()
	i := s.index(id)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%s %d is not loaded", s.def.Kind, id)
	}
	next := s.def.Status(s.rows[i]).Flip()
	s.def.SetStatus(&s.rows[i], next)
	s.overlay[id] = Overlay{Status: next, Loading: true}
	s.toggles++
	turn := s.toggles
	s.overlayTurn[id] = turn
	s.busy[id] = BusyToggle
	s.mu.Unlock()

	_, err := s.backend.Toggle(ctx, id)
	s.mu.Lock()
	delete(s.busy, id)
	if err != nil {
		s.dropOverlay(id, turn)
		s.mu.Unlock()
		return s.fail(fmt.Sprintf("Failed to toggle %s", strings.ToLower(s.def.Label)), err)
	}
	if s.overlayTurn[id] == turn {
		s.overlay[id] = Overlay{Status: next, Loading: false}
	}
	s.mu.Unlock()

	s.opts.After(s.opts.ToggleGrace, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.dropOverlay(id, turn)
	})

	msg := fmt.Sprintf("%s activated", s.def.Label)
	if next == model.StatusInactive {
		msg = fmt.Sprintf("%s deactivated", s.def.Label)
	}
	s.succeed(ctx, msg)
	return nil
}

// Delete removes row id locally and submits the delete.
func (s *Store[T]) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	if i := s.index(id); i >= 0 {
		s.rows = slices.Delete(s.rows, i, i+1)
	}
	s.busy[id] = BusyDelete
	s.mu.Unlock()

	err := s.backend.Delete(ctx, id)
	s.mu.Lock()
	delete(s.busy, id)
	s.mu.Unlock()
	if err != nil {
		return s.fail(fmt.Sprintf("Failed to remove %s", strings.ToLower(s.def.Label)), err)
	}
	s.succeed(ctx, fmt.Sprintf("%s removed", s.def.Label))
	return nil
}

// dropOverlay removes the overlay of id if toggle turn still owns it. Callers
// hold s.mu.
func (s *Store[T]) dropOverlay(id int64, turn uint64) {
	if s.overlayTurn[id] != turn {
		return
	}
	delete(s.overlay, id)
	delete(s.overlayTurn, id)
}

func (s *Store[T]) index(id int64) int {
	return slices.IndexFunc(s.rows, func(r T) bool { return s.def.ID(r) == id })
}

// fail reverts to the last server snapshot and reports err.
func (s *Store[T]) fail(msg string, err error) error {
	s.mu.Lock()
	s.rows = slices.Clone(s.snapshot)
	s.mu.Unlock()
	s.notifier.Failure(msg, err)
	return err
}

func (s *Store[T]) succeed(ctx context.Context, msg string) {
	s.notifier.Success(msg)

	s.mu.Lock()
	now := s.opts.Now()
	show := s.lastSync.IsZero() || now.Sub(s.lastSync) >= s.opts.SyncWindow
	if show {
		s.lastSync = now
	}
	s.requested++
	gen := s.requested
	s.mu.Unlock()

	if show {
		s.notifier.Syncing()
	}
	s.refresh(context.WithoutCancel(ctx), gen)
}

func (s *Store[T]) refresh(ctx context.Context, gen uint64) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		rows, err := s.backend.List(ctx)
		if err != nil {
			s.log.Warn("refresh failed", zap.Error(err))
			return
		}
		s.accept(gen, rows)
	}()
}

// accept installs a server list unless a newer one is already in place.
func (s *Store[T]) accept(gen uint64, rows []T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen <= s.applied {
		return
	}
	s.applied = gen
	s.rows = slices.Clone(rows)
	s.snapshot = slices.Clone(rows)
}
