package resource

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ops-console-backend/internal/cache"
	"ops-console-backend/internal/model"
	"ops-console-backend/internal/store"
)

type updateCall struct {
	id      int64
	updates map[string]any
}

// fakeGateway records every call and keeps rows in memory.
type fakeGateway[T any] struct {
	def *Definition[T]

	rows     map[int64]T
	nextID   int64
	inserted []T
	updated  []updateCall
	deleted  []int64
	reads    []string
	lists    int
	err      error
}

func newFakeGateway[T any](def *Definition[T], rows ...T) *fakeGateway[T] {
	g := &fakeGateway[T]{def: def, rows: map[int64]T{}, nextID: 100}
	for _, r := range rows {
		g.rows[def.ID(r)] = r
	}
	return g
}

func (g *fakeGateway[T]) List(context.Context) ([]T, error) {
	g.lists++
	if g.err != nil {
		return nil, g.err
	}
	out := make([]T, 0, len(g.rows))
	for _, r := range g.rows {
		out = append(out, r)
	}
	return out, nil
}

func (g *fakeGateway[T]) Insert(_ context.Context, row *T) error {
	g.inserted = append(g.inserted, *row)
	if g.err != nil {
		return g.err
	}
	g.nextID++
	g.def.SetID(row, g.nextID)
	g.rows[g.nextID] = *row
	return nil
}

func (g *fakeGateway[T]) Update(_ context.Context, id int64, updates map[string]any) error {
	g.updated = append(g.updated, updateCall{id: id, updates: updates})
	if g.err != nil {
		return g.err
	}
	row, ok := g.rows[id]
	if !ok {
		return &store.NotFoundError{Kind: g.def.Kind, ID: id}
	}
	if s, ok := updates["status"].(model.Status); ok {
		g.def.SetStatus(&row, s)
	}
	g.rows[id] = row
	return nil
}

func (g *fakeGateway[T]) Delete(_ context.Context, id int64) error {
	g.deleted = append(g.deleted, id)
	if g.err != nil {
		return g.err
	}
	delete(g.rows, id)
	return nil
}

func (g *fakeGateway[T]) GetField(_ context.Context, id int64, field string) (T, error) {
	g.reads = append(g.reads, field)
	row, ok := g.rows[id]
	if !ok {
		var zero T
		return zero, &store.NotFoundError{Kind: g.def.Kind, ID: id}
	}
	return row, nil
}

// spyStore counts invalidations reaching the tag store.
type spyStore struct {
	*cache.MemoryStore
	mu      sync.Mutex
	deletes [][]string
}

func (s *spyStore) Delete(ctx context.Context, tags ...string) error {
	s.mu.Lock()
	s.deletes = append(s.deletes, tags)
	s.mu.Unlock()
	return s.MemoryStore.Delete(ctx, tags...)
}

type recordingNotifier struct{ events []ChangeEvent }

func (r *recordingNotifier) Notify(ev ChangeEvent) { r.events = append(r.events, ev) }

func newOperatorService(t *testing.T, rows ...model.Operator) (*Service[model.Operator], *fakeGateway[model.Operator], *spyStore) {
	t.Helper()
	spy := &spyStore{MemoryStore: cache.NewMemoryStore()}
	gw := newFakeGateway(Operator, rows...)
	svc := NewService(Operator, gw, cache.NewTags(spy, zap.NewNop()), zap.NewNop())
	return svc, gw, spy
}

func TestCreateOperator(t *testing.T) {
	svc, gw, spy := newOperatorService(t)
	notifier := &recordingNotifier{}
	svc.SetNotifier(notifier)

	row, err := svc.Create(context.Background(), &OperatorInput{Name: "Joana Lima", PIN: "1234", Status: model.StatusActive})
	require.NoError(t, err)

	require.Len(t, gw.inserted, 1)
	assert.Equal(t, model.Operator{Name: "Joana Lima", PIN: "1234", Status: model.StatusActive}, gw.inserted[0])
	assert.Equal(t, int64(101), row.ID)
	assert.Equal(t, [][]string{{TagOperators}}, spy.deletes)
	assert.Equal(t, []ChangeEvent{{Kind: "operators", Label: "Operator", ID: 101, Action: ActionCreate}}, notifier.events)
}

func TestCreateInsertsNormalizedPayload(t *testing.T) {
	svc, gw, _ := newOperatorService(t)

	_, err := svc.Create(context.Background(), &OperatorInput{Name: "  Joana Lima  ", PIN: "1234"})
	require.NoError(t, err)

	require.Len(t, gw.inserted, 1)
	assert.Equal(t, "Joana Lima", gw.inserted[0].Name)
	assert.Equal(t, model.StatusActive, gw.inserted[0].Status)
}

func TestCreateRejectsInvalidOperator(t *testing.T) {
	svc, gw, spy := newOperatorService(t)

	_, err := svc.Create(context.Background(), &OperatorInput{Name: "Jo", PIN: "12", Status: model.StatusActive})

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	fields := map[string]string{}
	for _, f := range ve.Fields {
		fields[f.Field] = f.Rule
	}
	assert.Equal(t, map[string]string{"name": "min", "pin": "pin4"}, fields)
	assert.Empty(t, gw.inserted)
	assert.Empty(t, spy.deletes)
}

func TestValidation(t *testing.T) {
	testCases := []struct {
		name    string
		payload any
		fields  []string
	}{
		{name: "blank equipment tag", payload: &EquipmentInput{Tag: "   ", Status: model.StatusActive}, fields: []string{"tag"}},
		{name: "equipment tag too long", payload: &EquipmentInput{Tag: string(make([]byte, 101)), Status: model.StatusActive}, fields: []string{"tag"}},
		{name: "bad status", payload: &MaterialTypeInput{Name: "Cobre", Status: "paused"}, fields: []string{"status"}},
		{name: "pin with letters", payload: &OperatorInput{Name: "Carlos", PIN: "12a4"}, fields: []string{"pin"}},
		{name: "name counts runes", payload: &OperatorInput{Name: "Zoë", PIN: "0000"}},
		{name: "release needs positive ints", payload: &ReleaseInput{Quota: 0, Sequence: -1, MaterialTypeID: 2}, fields: []string{"quota", "sequence"}},
		{name: "release optional numbers positive", payload: &ReleaseInput{Quota: 1, Sequence: 1, MaterialTypeID: 2, PlannedMass: ptr(-3.0)}, fields: []string{"planned_mass"}},
		{name: "blank patch name", payload: &OperatorPatch{Name: ptr("  ")}, fields: []string{"name"}},
		{name: "patch type id must be positive", payload: &EquipmentPatch{TypeID: Value[int64](0)}, fields: []string{"type_id"}},
		{name: "null type id is fine", payload: &EquipmentPatch{TypeID: Null[int64]()}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if n, ok := tc.payload.(interface{ Normalize() }); ok {
				n.Normalize()
			}
			err := Check("test", tc.payload)
			if len(tc.fields) == 0 {
				assert.NoError(t, err)
				return
			}
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			var got []string
			for _, f := range ve.Fields {
				got = append(got, f.Field)
			}
			assert.ElementsMatch(t, tc.fields, got)
		})
	}
}

func TestToggleOperator(t *testing.T) {
	svc, gw, spy := newOperatorService(t, model.Operator{ID: 7, Name: "Ana", PIN: "1111", Status: model.StatusActive})

	next, err := svc.Toggle(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, model.StatusInactive, next)
	assert.Equal(t, []string{"status"}, gw.reads)
	assert.Equal(t, []updateCall{{id: 7, updates: map[string]any{"status": model.StatusInactive}}}, gw.updated)
	assert.Equal(t, [][]string{{TagOperators}}, spy.deletes)
}

func TestToggleTwiceRestoresStatus(t *testing.T) {
	svc, gw, _ := newOperatorService(t, model.Operator{ID: 7, Name: "Ana", PIN: "1111", Status: model.StatusActive})

	_, err := svc.Toggle(context.Background(), 7)
	require.NoError(t, err)
	_, err = svc.Toggle(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, model.StatusActive, gw.rows[7].Status)
}

func TestToggleMissingRow(t *testing.T) {
	svc, gw, spy := newOperatorService(t)

	_, err := svc.Toggle(context.Background(), 42)
	assert.True(t, store.IsNotFound(err))
	assert.Empty(t, gw.updated)
	assert.Empty(t, spy.deletes)
}

func TestToggleWithoutStatusIsUnsupported(t *testing.T) {
	gw := newFakeGateway(EquipmentType, model.EquipmentType{ID: 1, Name: "Solda"})
	svc := NewService(EquipmentType, gw, cache.NewTags(cache.NewMemoryStore(), zap.NewNop()), zap.NewNop())

	_, err := svc.Toggle(context.Background(), 1)
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.Empty(t, gw.reads)
}

func TestUpdate(t *testing.T) {
	svc, gw, spy := newOperatorService(t, model.Operator{ID: 3, Name: "Ana", PIN: "1111", Status: model.StatusActive})

	err := svc.Update(context.Background(), 3, &OperatorPatch{PIN: ptr("4321")})
	require.NoError(t, err)
	assert.Equal(t, []updateCall{{id: 3, updates: map[string]any{"pin": "4321"}}}, gw.updated)
	assert.Len(t, spy.deletes, 1)

	err = svc.Update(context.Background(), 3, &OperatorPatch{})
	assert.True(t, IsValidation(err))
	assert.Len(t, gw.updated, 1)
	assert.Len(t, spy.deletes, 1)
}

func TestEquipmentPatchNullClearsType(t *testing.T) {
	var p EquipmentPatch
	require.NoError(t, json.Unmarshal([]byte(`{"type_id": null}`), &p))
	assert.Equal(t, map[string]any{"type_id": nil}, p.Updates())

	p = EquipmentPatch{}
	require.NoError(t, json.Unmarshal([]byte(`{"tag": "EQ-9"}`), &p))
	assert.Equal(t, map[string]any{"tag": "EQ-9"}, p.Updates())

	row := model.Equipment{TypeID: ptr[int64](2), TypeName: "Solda"}
	(&EquipmentPatch{TypeID: Null[int64]()}).Apply(&row)
	assert.Nil(t, row.TypeID)
	assert.Empty(t, row.TypeName)
}

func TestPatchMarshalOmitsUnsetFields(t *testing.T) {
	b, err := json.Marshal(&ReleasePatch{Quota: ptr[int64](5), PlannedMass: Null[float64]()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"quota": 5, "planned_mass": null}`, string(b))
}

func TestStorageFailureSkipsInvalidation(t *testing.T) {
	svc, gw, spy := newOperatorService(t)
	gw.err = errors.New("connection reset")

	_, err := svc.Create(context.Background(), &OperatorInput{Name: "Joana Lima", PIN: "1234"})
	assert.EqualError(t, err, "connection reset")
	assert.Empty(t, spy.deletes)

	assert.Error(t, svc.Delete(context.Background(), 1))
	assert.Empty(t, spy.deletes)
}

func TestListIsCachedUntilMutation(t *testing.T) {
	svc, gw, _ := newOperatorService(t, model.Operator{ID: 1, Name: "Ana", PIN: "1111", Status: model.StatusActive})
	ctx := context.Background()

	_, err := svc.List(ctx)
	require.NoError(t, err)
	_, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, gw.lists)

	require.NoError(t, svc.Delete(ctx, 1))
	rows, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Equal(t, 2, gw.lists)
}

func TestListFailureIsReported(t *testing.T) {
	svc, gw, _ := newOperatorService(t)
	gw.err = &store.StorageError{Op: "list", Kind: "operators", Err: errors.New("timeout")}

	rows, err := svc.List(context.Background())
	assert.Nil(t, rows)
	var se *store.StorageError
	assert.ErrorAs(t, err, &se)
}

func ptr[V any](v V) *V { return &v }
