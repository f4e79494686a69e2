package optimistic

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ops-console-backend/internal/model"
	"ops-console-backend/internal/resource"
)

// memBackend is an in-memory server for operators.
type memBackend struct {
	mu     sync.Mutex
	rows   map[int64]model.Operator
	nextID int64
	err    error
	// during runs inside every mutation, before it completes.
	during func()
}

func newMemBackend(rows ...model.Operator) *memBackend {
	b := &memBackend{rows: map[int64]model.Operator{}, nextID: 10}
	for _, r := range rows {
		b.rows[r.ID] = r
	}
	return b
}

func (b *memBackend) hook() error {
	if b.during != nil {
		b.during()
	}
	return b.err
}

func (b *memBackend) List(context.Context) ([]model.Operator, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]model.Operator, 0, len(b.rows))
	for _, r := range b.rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (b *memBackend) Create(_ context.Context, in resource.Input[model.Operator]) (model.Operator, error) {
	if err := b.hook(); err != nil {
		return model.Operator{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	row := in.Model()
	b.nextID++
	row.ID = b.nextID
	b.rows[row.ID] = row
	return row, nil
}

func (b *memBackend) Update(_ context.Context, id int64, p resource.Patch[model.Operator]) error {
	if err := b.hook(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	row := b.rows[id]
	p.Apply(&row)
	b.rows[id] = row
	return nil
}

func (b *memBackend) Toggle(_ context.Context, id int64) (model.Status, error) {
	if err := b.hook(); err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	row := b.rows[id]
	row.Status = row.Status.Flip()
	b.rows[id] = row
	return row.Status, nil
}

func (b *memBackend) Delete(_ context.Context, id int64) error {
	if err := b.hook(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.rows, id)
	return nil
}

type recorder struct {
	mu       sync.Mutex
	success  []string
	failures []string
	syncing  int
}

func (r *recorder) Success(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.success = append(r.success, msg)
}

func (r *recorder) Failure(msg string, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, msg)
}

func (r *recorder) Syncing() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.syncing++
}

// fakeClock drives Now and collects timers instead of running them.
type fakeClock struct {
	now    time.Time
	timers []func()
}

func (c *fakeClock) options() Options {
	return Options{
		Now:   func() time.Time { return c.now },
		After: func(_ time.Duration, f func()) { c.timers = append(c.timers, f) },
	}
}

func (c *fakeClock) fire() {
	timers := c.timers
	c.timers = nil
	for _, f := range timers {
		f()
	}
}

func seed() []model.Operator {
	return []model.Operator{
		{ID: 1, Name: "Ana Souza", PIN: "1111", Status: model.StatusActive},
		{ID: 2, Name: "Bruno Dias", PIN: "2222", Status: model.StatusInactive},
	}
}

func newStore(t *testing.T, backend *memBackend, clock *fakeClock) (*Store[model.Operator], *recorder) {
	t.Helper()
	rec := &recorder{}
	s := New(resource.Operator, backend, rec, zap.NewNop(), clock.options())
	require.NoError(t, s.Load(context.Background()))
	return s, rec
}

func TestRevertOnFailure(t *testing.T) {
	boom := errors.New("permission denied")
	name := "Renamed"

	testCases := []struct {
		name   string
		mutate func(s *Store[model.Operator]) error
	}{
		{name: "create", mutate: func(s *Store[model.Operator]) error {
			return s.Create(context.Background(), &resource.OperatorInput{Name: "Joana Lima", PIN: "1234"})
		}},
		{name: "update", mutate: func(s *Store[model.Operator]) error {
			return s.Update(context.Background(), 1, &resource.OperatorPatch{Name: &name})
		}},
		{name: "toggle", mutate: func(s *Store[model.Operator]) error {
			return s.Toggle(context.Background(), 1)
		}},
		{name: "delete", mutate: func(s *Store[model.Operator]) error {
			return s.Delete(context.Background(), 2)
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			backend := newMemBackend(seed()...)
			s, rec := newStore(t, backend, &fakeClock{now: time.Now()})
			before := s.Rows()

			var during []model.Operator
			backend.during = func() { during = s.Rows() }
			backend.err = boom

			err := tc.mutate(s)
			s.Wait()

			assert.ErrorIs(t, err, boom)
			assert.NotEqual(t, before, during, "optimistic change must be visible while pending")
			assert.Equal(t, before, s.Rows())
			_, hasOverlay := s.Overlay(1)
			assert.False(t, hasOverlay)
			assert.Equal(t, BusyNone, s.Busy(1))
			assert.False(t, s.FormBusy())
			assert.Len(t, rec.failures, 1)
			assert.Empty(t, rec.success)
			assert.Zero(t, rec.syncing)
		})
	}
}

func TestCreateShowsPlaceholderThenReconciles(t *testing.T) {
	backend := newMemBackend(seed()...)
	s, rec := newStore(t, backend, &fakeClock{now: time.Now()})

	var placeholder model.Operator
	backend.during = func() {
		rows := s.Rows()
		placeholder = rows[len(rows)-1]
		assert.True(t, s.FormBusy())
	}

	require.NoError(t, s.Create(context.Background(), &resource.OperatorInput{Name: " Joana Lima ", PIN: "1234"}))
	s.Wait()

	assert.Less(t, placeholder.ID, int64(0))
	assert.Equal(t, "Joana Lima", placeholder.Name)

	rows := s.Rows()
	require.Len(t, rows, 3)
	assert.Equal(t, int64(11), rows[2].ID)
	assert.Equal(t, rows, s.Snapshot())
	assert.Equal(t, []string{"Operator created"}, rec.success)
	assert.Equal(t, 1, rec.syncing)
}

func TestToggleOverlayLifecycle(t *testing.T) {
	backend := newMemBackend(seed()...)
	clock := &fakeClock{now: time.Now()}
	s, rec := newStore(t, backend, clock)

	backend.during = func() {
		ov, ok := s.Overlay(1)
		assert.True(t, ok)
		assert.Equal(t, Overlay{Status: model.StatusInactive, Loading: true}, ov)
		assert.Equal(t, BusyToggle, s.Busy(1))
	}

	require.NoError(t, s.Toggle(context.Background(), 1))
	s.Wait()

	ov, ok := s.Overlay(1)
	require.True(t, ok, "overlay stays during the grace period")
	assert.Equal(t, Overlay{Status: model.StatusInactive, Loading: false}, ov)
	assert.Equal(t, model.StatusInactive, s.Rows()[0].Status)

	clock.fire()
	_, ok = s.Overlay(1)
	assert.False(t, ok)
	assert.Equal(t, model.StatusInactive, s.Rows()[0].Status)
	assert.Equal(t, []string{"Operator deactivated"}, rec.success)
}

func TestEarlierGraceTimerKeepsNewerOverlay(t *testing.T) {
	backend := newMemBackend(seed()...)
	clock := &fakeClock{now: time.Now()}
	s, _ := newStore(t, backend, clock)
	ctx := context.Background()

	require.NoError(t, s.Toggle(ctx, 1))
	s.Wait()
	require.NoError(t, s.Toggle(ctx, 1))
	s.Wait()
	require.Len(t, clock.timers, 2)

	// The first toggle's grace period ends while the second is still showing.
	first := clock.timers[0]
	clock.timers = clock.timers[1:]
	first()

	ov, ok := s.Overlay(1)
	require.True(t, ok)
	assert.Equal(t, Overlay{Status: model.StatusActive, Loading: false}, ov)

	clock.fire()
	_, ok = s.Overlay(1)
	assert.False(t, ok)
	assert.Equal(t, model.StatusActive, s.Rows()[0].Status)
}

func TestSyncNoticeIsCoalesced(t *testing.T) {
	backend := newMemBackend(seed()...)
	clock := &fakeClock{now: time.Now()}
	s, rec := newStore(t, backend, clock)
	ctx := context.Background()

	require.NoError(t, s.Toggle(ctx, 1))
	clock.now = clock.now.Add(500 * time.Millisecond)
	require.NoError(t, s.Toggle(ctx, 2))
	clock.now = clock.now.Add(500 * time.Millisecond)
	require.NoError(t, s.Delete(ctx, 2))
	s.Wait()
	assert.Equal(t, 1, rec.syncing)
	assert.Len(t, rec.success, 3)

	clock.now = clock.now.Add(2 * time.Second)
	require.NoError(t, s.Toggle(ctx, 1))
	s.Wait()
	assert.Equal(t, 2, rec.syncing)
}

func TestStaleRefreshIsIgnored(t *testing.T) {
	s := New(resource.Operator, newMemBackend(), &recorder{}, zap.NewNop(), Options{})
	newer := []model.Operator{{ID: 1, Name: "new"}}
	older := []model.Operator{{ID: 1, Name: "old"}}

	s.accept(2, newer)
	s.accept(1, older)

	assert.Equal(t, newer, s.Rows())
}

func TestToggleUnsupportedKind(t *testing.T) {
	s := New[model.EquipmentType](resource.EquipmentType, nil, &recorder{}, zap.NewNop(), Options{})
	err := s.Toggle(context.Background(), 1)
	assert.ErrorIs(t, err, resource.ErrUnsupported)
}
