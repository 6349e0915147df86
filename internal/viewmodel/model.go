// Package viewmodel holds the client-side attendance state: the full matrix,
// the selected date and the editable per-date view derived from it.
package viewmodel

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"rollcall-backend/internal/roster"
)

// Source: 出欠表の取得・更新先（roster.Adapter または client.Client）
type Source interface {
	FetchMatrix(ctx context.Context) (roster.Snapshot, error)
	UpdateForDate(ctx context.Context, date string, records []roster.Record) (roster.UpdateResult, error)
}

type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateLoadError
	StateSaving
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateLoadError:
		return "load_error"
	case StateSaving:
		return "saving"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	ErrBusy           = errors.New("a load or save is already in progress")
	ErrSaveInProgress = errors.New("a save is already in progress")
	ErrUnknownDate    = errors.New("date is not in the loaded date list")
	ErrNoDateSelected = errors.New("no date selected")
	ErrNotLoaded      = errors.New("attendance has not been loaded")
)

// Model: 1セッションにつき1つ。I/O 中はロックを持たない
type Model struct {
	src Source

	mu      sync.Mutex
	state   State
	loaded  bool
	dates   []string
	matrix  roster.Matrix
	current string
	view    []roster.Record
	dirty   bool
	edits   uint64 // Toggle で値が変わるたびに進める
	loadErr error
	saveErr error
}

func New(src Source) *Model {
	return &Model{src: src, state: StateIdle}
}

// LoadAll fetches the full matrix. On failure previously loaded data is kept
// and the model moves to StateLoadError.
func (m *Model) LoadAll(ctx context.Context) (err error) {
	m.mu.Lock()
	if m.state == StateLoading || m.state == StateSaving {
		m.mu.Unlock()
		return ErrBusy
	}
	m.state = StateLoading
	m.mu.Unlock()

	var snap roster.Snapshot
	completed := false
	defer func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if completed && err == nil {
			m.applySnapshot(snap)
			return
		}
		// panic や失敗でも Loading のままにしない
		if err == nil {
			err = errors.New("load interrupted")
		}
		m.loadErr = err
		m.state = StateLoadError
	}()

	snap, err = m.src.FetchMatrix(ctx)
	completed = true
	return err
}

func (m *Model) applySnapshot(snap roster.Snapshot) {
	m.dates = append([]string(nil), snap.Dates...)
	m.matrix = snap.Matrix.Clone()
	m.current = ""
	if len(m.dates) > 0 {
		m.current = m.dates[0]
	}
	m.view = roster.Project(m.matrix, m.current)
	m.dirty = false
	m.loaded = true
	m.loadErr = nil
	m.saveErr = nil
	m.state = StateReady
}

// SelectDate switches the view to date. Dates outside the loaded list are
// rejected and leave the model unchanged.
func (m *Model) SelectDate(date string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.loaded {
		return ErrNotLoaded
	}
	if !contains(m.dates, date) {
		return ErrUnknownDate
	}
	m.current = date
	m.view = roster.Project(m.matrix, date)
	return nil
}

// Toggle sets the presence of view entry i and writes it through to the
// matrix for the current date. i outside the view is a programming error and panics.
func (m *Model) Toggle(i int, present bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i < 0 || i >= len(m.view) {
		panic(fmt.Sprintf("viewmodel: toggle index %d out of range [0,%d)", i, len(m.view)))
	}
	if m.view[i].Present == present {
		return
	}
	m.view[i].Present = present
	p := &m.matrix[i]
	if p.Attendance == nil {
		p.Attendance = make(map[string]bool)
	}
	p.Attendance[m.current] = present
	m.dirty = true
	m.edits++
}

// Save sends the current date's view to the source. Only one save may be in
// flight; a concurrent call is rejected with ErrSaveInProgress. Edits survive
// a failed save so the caller can retry, and edits made while the save is in
// flight keep the model dirty.
func (m *Model) Save(ctx context.Context) (res roster.UpdateResult, err error) {
	m.mu.Lock()
	switch {
	case m.state == StateSaving:
		m.mu.Unlock()
		return roster.UpdateResult{}, ErrSaveInProgress
	case m.state == StateLoading:
		m.mu.Unlock()
		return roster.UpdateResult{}, ErrBusy
	case !m.loaded:
		m.mu.Unlock()
		return roster.UpdateResult{}, ErrNotLoaded
	case m.current == "":
		m.mu.Unlock()
		return roster.UpdateResult{}, ErrNoDateSelected
	}
	prev := m.state
	m.state = StateSaving
	date := m.current
	edits := m.edits
	records := append([]roster.Record(nil), m.view...)
	m.mu.Unlock()

	completed := false
	defer func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if prev == StateLoadError {
			m.state = StateLoadError
		} else {
			m.state = StateReady
		}
		if !completed && err == nil {
			err = errors.New("save interrupted")
		}
		if err != nil {
			m.saveErr = err
			return
		}
		m.saveErr = nil
		// 保存中の編集は送っていないので dirty のまま
		if res.Applied && m.edits == edits && m.current == date {
			m.dirty = false
		}
	}()

	res, err = m.src.UpdateForDate(ctx, date, records)
	completed = true
	return res, err
}

func (m *Model) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Model) Dates() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.dates...)
}

func (m *Model) CurrentDate() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// View returns a copy of the per-date records.
func (m *Model) View() []roster.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]roster.Record(nil), m.view...)
}

func (m *Model) Matrix() roster.Matrix {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matrix.Clone()
}

func (m *Model) Dirty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dirty
}

func (m *Model) LoadErr() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadErr
}

func (m *Model) SaveErr() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveErr
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
