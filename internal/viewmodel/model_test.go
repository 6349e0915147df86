package viewmodel

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollcall-backend/internal/platform/sheet"
	"rollcall-backend/internal/roster"
)

type updateCall struct {
	date    string
	records []roster.Record
}

// fakeSource records calls; block, when set, holds UpdateForDate until closed.
type fakeSource struct {
	mu        sync.Mutex
	snap      roster.Snapshot
	fetchErr  error
	updateErr error
	result    *roster.UpdateResult
	updates   []updateCall
	block     chan struct{}
	entered   chan struct{}
}

func (f *fakeSource) FetchMatrix(ctx context.Context) (roster.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return roster.Snapshot{}, f.fetchErr
	}
	return f.snap.Clone(), nil
}

func (f *fakeSource) UpdateForDate(ctx context.Context, date string, records []roster.Record) (roster.UpdateResult, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, updateCall{date: date, records: append([]roster.Record(nil), records...)})
	if f.updateErr != nil {
		return roster.UpdateResult{}, f.updateErr
	}
	if f.result != nil {
		return *f.result, nil
	}
	return roster.UpdateResult{Date: date, Matched: len(records), Written: len(records), Applied: true}, nil
}

func janeSnapshot() roster.Snapshot {
	return roster.Snapshot{
		Dates: []string{"7/20/2025", "7/13/2025"},
		Matrix: roster.Matrix{
			{ID: "row-2", Name: "Smith, Jane", Attendance: map[string]bool{"7/20/2025": false}},
		},
	}
}

func loaded(t *testing.T, src *fakeSource) *Model {
	t.Helper()
	m := New(src)
	require.NoError(t, m.LoadAll(context.Background()))
	return m
}

func TestLoadAll_SelectsFirstDate(t *testing.T) {
	m := New(&fakeSource{snap: janeSnapshot()})
	assert.Equal(t, StateIdle, m.State())

	require.NoError(t, m.LoadAll(context.Background()))
	assert.Equal(t, StateReady, m.State())
	assert.Equal(t, "7/20/2025", m.CurrentDate())
	assert.Equal(t, []string{"7/20/2025", "7/13/2025"}, m.Dates())
	assert.Equal(t, []roster.Record{{ID: "row-2", Name: "Smith, Jane", Present: false}}, m.View())
	assert.False(t, m.Dirty())
}

func TestLoadAll_EmptyDateList(t *testing.T) {
	m := loaded(t, &fakeSource{snap: roster.Snapshot{Matrix: roster.Matrix{{Name: "a"}}}})
	assert.Equal(t, "", m.CurrentDate())

	_, err := m.Save(context.Background())
	assert.ErrorIs(t, err, ErrNoDateSelected)
}

func TestLoadAll_FailureKeepsPreviousMatrix(t *testing.T) {
	src := &fakeSource{snap: janeSnapshot()}
	m := loaded(t, src)
	m.Toggle(0, true)

	src.fetchErr = roster.ErrSourceUnavailable("sheet is empty", nil)
	err := m.LoadAll(context.Background())
	require.Error(t, err)
	assert.Equal(t, roster.CodeSourceUnavailable, roster.CodeOf(err))
	assert.Equal(t, StateLoadError, m.State())
	assert.Equal(t, err, m.LoadErr())

	assert.True(t, m.Matrix()[0].Attendance["7/20/2025"], "previous data retained")
	assert.True(t, m.View()[0].Present)
	assert.Equal(t, "7/20/2025", m.CurrentDate())
}

func TestLoadAll_FirstLoadFailure(t *testing.T) {
	m := New(&fakeSource{fetchErr: errors.New("offline")})
	require.Error(t, m.LoadAll(context.Background()))
	assert.Equal(t, StateLoadError, m.State())
	assert.Empty(t, m.View())
	assert.ErrorIs(t, m.SelectDate("7/20/2025"), ErrNotLoaded)
	_, err := m.Save(context.Background())
	assert.ErrorIs(t, err, ErrNotLoaded)
}

func TestLoadAll_PanicResolvesState(t *testing.T) {
	m := New(panicSource{})
	assert.Panics(t, func() { _ = m.LoadAll(context.Background()) })
	assert.Equal(t, StateLoadError, m.State())
	assert.Error(t, m.LoadErr())
}

type panicSource struct{}

func (panicSource) FetchMatrix(context.Context) (roster.Snapshot, error) { panic("boom") }
func (panicSource) UpdateForDate(context.Context, string, []roster.Record) (roster.UpdateResult, error) {
	panic("boom")
}

func TestSelectDate_ProjectionMatchesMatrix(t *testing.T) {
	snap := roster.Snapshot{
		Dates: []string{"d1", "d2", "d3"},
		Matrix: roster.Matrix{
			{ID: "row-2", Name: "a", Attendance: map[string]bool{"d1": true, "d2": false}},
			{ID: "row-3", Name: "b", Attendance: map[string]bool{"d2": true}},
			{ID: "row-4", Name: "c"},
		},
	}
	m := loaded(t, &fakeSource{snap: snap})
	for _, d := range snap.Dates {
		require.NoError(t, m.SelectDate(d))
		view := m.View()
		require.Len(t, view, len(snap.Matrix))
		for i, p := range snap.Matrix {
			assert.Equal(t, p.Attendance[d], view[i].Present, "date %s person %s", d, p.Name)
		}
	}
}

func TestSelectDate_UnknownIsNoOp(t *testing.T) {
	m := loaded(t, &fakeSource{snap: janeSnapshot()})
	assert.ErrorIs(t, m.SelectDate("1/1/1999"), ErrUnknownDate)
	assert.Equal(t, "7/20/2025", m.CurrentDate())
	assert.Equal(t, StateReady, m.State())
}

func TestToggle_WritesThroughAndIsIdempotent(t *testing.T) {
	m := loaded(t, &fakeSource{snap: janeSnapshot()})

	m.Toggle(0, true)
	once := struct {
		view   []roster.Record
		matrix roster.Matrix
		dirty  bool
	}{m.View(), m.Matrix(), m.Dirty()}

	m.Toggle(0, true)
	assert.Equal(t, once.view, m.View())
	assert.Equal(t, once.matrix, m.Matrix())
	assert.Equal(t, once.dirty, m.Dirty())

	assert.Equal(t, []roster.Record{{ID: "row-2", Name: "Smith, Jane", Present: true}}, m.View())
	assert.True(t, m.Matrix()[0].Attendance["7/20/2025"])
	assert.True(t, m.Dirty())
}

func TestToggle_SurvivesDateSwitch(t *testing.T) {
	m := loaded(t, &fakeSource{snap: janeSnapshot()})
	m.Toggle(0, true)

	require.NoError(t, m.SelectDate("7/13/2025"))
	assert.False(t, m.View()[0].Present)
	m.Toggle(0, true)

	require.NoError(t, m.SelectDate("7/20/2025"))
	assert.True(t, m.View()[0].Present, "unsaved edit reflected after switching back")
	assert.True(t, m.Matrix()[0].Attendance["7/13/2025"])
}

func TestToggle_OutOfRangePanics(t *testing.T) {
	m := loaded(t, &fakeSource{snap: janeSnapshot()})
	assert.Panics(t, func() { m.Toggle(1, true) })
	assert.Panics(t, func() { m.Toggle(-1, true) })
}

func TestSave_JaneScenario(t *testing.T) {
	src := &fakeSource{snap: janeSnapshot()}
	m := loaded(t, src)

	require.NoError(t, m.SelectDate("7/20/2025"))
	assert.Equal(t, []roster.Record{{ID: "row-2", Name: "Smith, Jane", Present: false}}, m.View())

	m.Toggle(0, true)
	assert.Equal(t, []roster.Record{{ID: "row-2", Name: "Smith, Jane", Present: true}}, m.View())
	assert.True(t, m.Matrix()[0].Attendance["7/20/2025"])

	res, err := m.Save(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Applied)
	require.Len(t, src.updates, 1)
	assert.Equal(t, "7/20/2025", src.updates[0].date)
	assert.Equal(t, []roster.Record{{ID: "row-2", Name: "Smith, Jane", Present: true}}, src.updates[0].records)
	assert.False(t, m.Dirty())
	assert.Equal(t, StateReady, m.State())
}

func TestSave_FailureKeepsEdits(t *testing.T) {
	src := &fakeSource{snap: janeSnapshot(), updateErr: roster.ErrWriteFailed("batch failed", nil)}
	m := loaded(t, src)
	m.Toggle(0, true)

	_, err := m.Save(context.Background())
	require.Error(t, err)
	assert.Equal(t, roster.CodeWriteFailed, roster.CodeOf(err))
	assert.Equal(t, StateReady, m.State())
	assert.True(t, m.Dirty())
	assert.Equal(t, err, m.SaveErr())
	assert.True(t, m.View()[0].Present)

	src.updateErr = nil
	_, err = m.Save(context.Background())
	require.NoError(t, err)
	assert.NoError(t, m.SaveErr())
	assert.False(t, m.Dirty())
}

func TestSave_NoMatchesKeepsDirty(t *testing.T) {
	src := &fakeSource{snap: janeSnapshot(), result: &roster.UpdateResult{Skipped: []string{"Smith, Jane"}}}
	m := loaded(t, src)
	m.Toggle(0, true)

	res, err := m.Save(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.True(t, m.Dirty())
}

func TestSave_RejectsConcurrentSave(t *testing.T) {
	src := &fakeSource{snap: janeSnapshot(), block: make(chan struct{}), entered: make(chan struct{}, 1)}
	m := loaded(t, src)
	m.Toggle(0, true)

	done := make(chan error, 1)
	go func() {
		_, err := m.Save(context.Background())
		done <- err
	}()
	<-src.entered
	assert.Equal(t, StateSaving, m.State())

	_, err := m.Save(context.Background())
	assert.ErrorIs(t, err, ErrSaveInProgress)
	assert.ErrorIs(t, m.LoadAll(context.Background()), ErrBusy)

	close(src.block)
	require.NoError(t, <-done)
	assert.Equal(t, StateReady, m.State())
	assert.Len(t, src.updates, 1)
}

func TestSave_EditDuringSaveStaysDirty(t *testing.T) {
	src := &fakeSource{snap: janeSnapshot(), block: make(chan struct{}), entered: make(chan struct{}, 1)}
	m := loaded(t, src)
	m.Toggle(0, true)

	done := make(chan error, 1)
	go func() {
		_, err := m.Save(context.Background())
		done <- err
	}()
	<-src.entered
	m.Toggle(0, false)
	close(src.block)
	require.NoError(t, <-done)

	require.Len(t, src.updates, 1)
	assert.True(t, src.updates[0].records[0].Present, "sent before the edit")
	assert.False(t, m.View()[0].Present)
	assert.True(t, m.Dirty(), "edit made during the save is still unsaved")
	assert.Equal(t, StateReady, m.State())

	// 次の保存で反映されて clean になる
	src.block = nil
	src.entered = nil
	res, err := m.Save(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.False(t, m.Dirty())
	assert.False(t, src.updates[1].records[0].Present)
}

func TestSave_DateSwitchDuringSaveStaysDirty(t *testing.T) {
	src := &fakeSource{snap: janeSnapshot(), block: make(chan struct{}), entered: make(chan struct{}, 1)}
	m := loaded(t, src)
	m.Toggle(0, true)

	done := make(chan error, 1)
	go func() {
		_, err := m.Save(context.Background())
		done <- err
	}()
	<-src.entered
	require.NoError(t, m.SelectDate("7/13/2025"))
	close(src.block)
	require.NoError(t, <-done)

	assert.True(t, m.Dirty())
	assert.Equal(t, "7/20/2025", src.updates[0].date)
}

func TestSave_PanicResolvesState(t *testing.T) {
	m := New(&panicOnUpdate{fakeSource{snap: janeSnapshot()}})
	require.NoError(t, m.LoadAll(context.Background()))
	assert.Panics(t, func() { _, _ = m.Save(context.Background()) })
	assert.Equal(t, StateReady, m.State())
	assert.Error(t, m.SaveErr())
}

type panicOnUpdate struct{ fakeSource }

func (p *panicOnUpdate) UpdateForDate(context.Context, string, []roster.Record) (roster.UpdateResult, error) {
	panic("boom")
}

// Loading then saving with no edits must leave every sheet cell as it was.
func TestLoadThenSaveIsNoOp(t *testing.T) {
	rows := [][]any{
		{"Name", "7/20/2025", "7/13/2025"},
		{"Smith, Jane", "", "TRUE"},
		{"Doe, John", true},
	}
	s := sheet.NewMemorySheet(rows)
	m := New(roster.NewAdapter(s))
	require.NoError(t, m.LoadAll(context.Background()))

	for _, d := range m.Dates() {
		require.NoError(t, m.SelectDate(d))
		res, err := m.Save(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 0, res.Written)
	}
	got, err := s.Values(context.Background())
	require.NoError(t, err)
	assert.Equal(t, rows, got)
	assert.Equal(t, 0, s.BatchCalls())
}

func TestEndToEndWithAdapter(t *testing.T) {
	s := sheet.NewMemorySheet([][]any{
		{"Name", "7/20/2025", "7/13/2025"},
		{"Smith, Jane", false},
	})
	m := New(roster.NewAdapter(s))
	require.NoError(t, m.LoadAll(context.Background()))

	m.Toggle(0, true)
	res, err := m.Save(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Written)
	assert.Equal(t, true, s.Cell(2, 1))

	// empty sheet on refresh keeps what we had
	s.Replace(nil)
	err = m.LoadAll(context.Background())
	assert.Equal(t, roster.CodeSourceUnavailable, roster.CodeOf(err))
	assert.Equal(t, "Smith, Jane", m.Matrix()[0].Name)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "saving", StateSaving.String())
	assert.Equal(t, "state(42)", State(42).String())
}
