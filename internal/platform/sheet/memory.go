package sheet

import (
	"context"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// MemorySheet: devモードとテスト用のオンメモリ表
type MemorySheet struct {
	mu         sync.Mutex
	rows       [][]any
	batchCalls int
	cellWrites int
	readErr    error
	writeErr   error
}

func NewMemorySheet(rows [][]any) *MemorySheet {
	return &MemorySheet{rows: cloneRows(rows)}
}

type seedFile struct {
	Rows [][]any `yaml:"rows"`
}

// LoadSeed reads a YAML fixture of the form `rows: [[Name, 7/20/2025], [Smith, true]]`.
func LoadSeed(path string) (*MemorySheet, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("シードファイルの読み込み失敗: %w", err)
	}
	var f seedFile
	if err := yaml.Unmarshal(buf, &f); err != nil {
		return nil, fmt.Errorf("シードファイルのパース失敗: %w", err)
	}
	return NewMemorySheet(f.Rows), nil
}

func (m *MemorySheet) Values(ctx context.Context) ([][]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	return cloneRows(m.rows), nil
}

func (m *MemorySheet) BatchUpdate(ctx context.Context, updates []CellUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	type target struct {
		row, col int
		value    any
	}
	// 先に全レンジを検証してから反映（途中失敗で半端に書かない）
	targets := make([]target, 0, len(updates))
	for _, u := range updates {
		row, col, err := ParseA1(u.Range)
		if err != nil {
			return err
		}
		targets = append(targets, target{row: row, col: col, value: u.Value})
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	for _, t := range targets {
		for len(m.rows) < t.row {
			m.rows = append(m.rows, nil)
		}
		r := m.rows[t.row-1]
		for len(r) <= t.col {
			r = append(r, "")
		}
		r[t.col] = t.value
		m.rows[t.row-1] = r
	}
	m.batchCalls++
	m.cellWrites += len(targets)
	return nil
}

// Cell returns the raw value at a 1-based row and 0-based column, nil when outside the grid.
func (m *MemorySheet) Cell(row, col int) any {
	m.mu.Lock()
	defer m.mu.Unlock()
	if row < 1 || row > len(m.rows) || col < 0 || col >= len(m.rows[row-1]) {
		return nil
	}
	return m.rows[row-1][col]
}

// BatchCalls: 成功した BatchUpdate の回数
func (m *MemorySheet) BatchCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.batchCalls
}

func (m *MemorySheet) CellWrites() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cellWrites
}

// FailReads makes subsequent Values calls return err (nil restores normal behaviour).
func (m *MemorySheet) FailReads(err error) {
	m.mu.Lock()
	m.readErr = err
	m.mu.Unlock()
}

func (m *MemorySheet) FailWrites(err error) {
	m.mu.Lock()
	m.writeErr = err
	m.mu.Unlock()
}

// Replace swaps the whole grid, e.g. to simulate someone editing the sheet by hand.
func (m *MemorySheet) Replace(rows [][]any) {
	m.mu.Lock()
	m.rows = cloneRows(rows)
	m.mu.Unlock()
}

func cloneRows(rows [][]any) [][]any {
	out := make([][]any, len(rows))
	for i, r := range rows {
		out[i] = append([]any(nil), r...)
	}
	return out
}
