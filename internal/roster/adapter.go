package roster

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"rollcall-backend/internal/platform/sheet"
)

var (
	cellsWrittenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rollcall_sheet_cells_written_total",
		Help: "Attendance cells written to the backing sheet.",
	})
	skippedNamesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rollcall_roster_skipped_names_total",
		Help: "Update records whose name had no matching sheet row.",
	})
)

// Adapter: 出欠表（1行目がヘッダ、A列が名前）を読み書きする
type Adapter struct {
	sheet sheet.Sheet
}

func NewAdapter(s sheet.Sheet) *Adapter {
	return &Adapter{sheet: s}
}

// FetchMatrix reads the whole sheet in one call and builds the date list and matrix.
func (a *Adapter) FetchMatrix(ctx context.Context) (Snapshot, error) {
	rows, err := a.sheet.Values(ctx)
	if err != nil {
		return Snapshot{}, ErrSourceUnavailable("failed to read sheet", err)
	}
	cols, err := dateColumns(rows)
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{
		Dates:  make([]string, 0, len(cols)),
		Matrix: make(Matrix, 0, len(rows)-1),
	}
	for _, c := range cols {
		snap.Dates = append(snap.Dates, c.date)
	}

	for i := 1; i < len(rows); i++ {
		name := nameOf(rows[i])
		if strings.TrimSpace(name) == "" {
			continue
		}
		att := make(map[string]bool, len(cols))
		for _, c := range cols {
			att[c.date] = isPresent(cellAt(rows[i], c.index))
		}
		snap.Matrix = append(snap.Matrix, Person{
			ID:         rowID(i + 1),
			Name:       name,
			Attendance: att,
		})
	}
	return snap, nil
}

// UpdateForDate writes the given records into the column whose header equals
// date exactly. Unknown names are skipped; every changed cell goes out in a
// single BatchUpdate. Zero matches is reported through Applied, not an error.
func (a *Adapter) UpdateForDate(ctx context.Context, date string, records []Record) (UpdateResult, error) {
	res := UpdateResult{Date: date}

	rows, err := a.sheet.Values(ctx)
	if err != nil {
		return res, ErrSourceUnavailable("failed to read sheet", err)
	}
	cols, err := dateColumns(rows)
	if err != nil {
		return res, err
	}

	col := -1
	for _, c := range cols {
		if c.date == date {
			col = c.index
			break
		}
	}
	if date == "" || col < 0 {
		return res, ErrDateNotFound(date)
	}

	// 名前→行（同名は先頭優先）
	byName := make(map[string]int, len(rows))
	for i := 1; i < len(rows); i++ {
		name := nameOf(rows[i])
		if _, dup := byName[name]; !dup && name != "" {
			byName[name] = i
		}
	}

	// 同じ行への重複指定は後勝ち
	order := make([]int, 0, len(records))
	want := make(map[int]bool, len(records))
	for _, rec := range records {
		idx, ok := resolveRow(rows, byName, rec)
		if !ok {
			log.Printf("[WARN] roster: %q not found for %s, skipped", rec.Name, date)
			res.Skipped = append(res.Skipped, rec.Name)
			skippedNamesTotal.Inc()
			continue
		}
		res.Matched++
		if _, seen := want[idx]; !seen {
			order = append(order, idx)
		}
		want[idx] = rec.Present
	}

	updates := make([]sheet.CellUpdate, 0, len(order))
	for _, idx := range order {
		cur := cellAt(rows[idx], col)
		if isPresent(cur) == want[idx] {
			continue
		}
		updates = append(updates, sheet.CellUpdate{
			Range: sheet.A1(idx+1, col),
			Value: want[idx],
		})
	}

	if len(updates) > 0 {
		if err := a.sheet.BatchUpdate(ctx, updates); err != nil {
			return UpdateResult{Date: date}, ErrWriteFailed(fmt.Sprintf("batch update of %d cells failed", len(updates)), err)
		}
		cellsWrittenTotal.Add(float64(len(updates)))
	}
	res.Written = len(updates)
	res.Applied = res.Matched > 0
	if !res.Applied {
		log.Printf("[WARN] roster: no records matched for %s (%d skipped)", date, len(res.Skipped))
	}
	return res, nil
}

// resolveRow: ID が指す行の名前が一致すればその行、それ以外は名前で探す
func resolveRow(rows [][]any, byName map[string]int, rec Record) (int, bool) {
	if n, ok := parseRowID(rec.ID); ok {
		idx := n - 1
		if idx >= 1 && idx < len(rows) && nameOf(rows[idx]) == rec.Name {
			return idx, true
		}
	}
	idx, ok := byName[rec.Name]
	return idx, ok
}

type dateColumn struct {
	date  string
	index int
}

// dateColumns: ヘッダ行から日付列を取り出す。空の表はエラー
func dateColumns(rows [][]any) ([]dateColumn, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, ErrSourceUnavailable("sheet is empty", nil)
	}
	header := rows[0]
	cols := make([]dateColumn, 0, len(header)-1)
	seen := make(map[string]struct{}, len(header))
	for i := 1; i < len(header); i++ {
		d := cellText(header[i])
		if d == "" {
			continue
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		cols = append(cols, dateColumn{date: d, index: i})
	}
	return cols, nil
}

func nameOf(row []any) string {
	return cellText(cellAt(row, 0))
}

func cellAt(row []any, i int) any {
	if i < 0 || i >= len(row) {
		return nil
	}
	return row[i]
}

func cellText(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// isPresent: true（真偽値）または大文字小文字を問わない "true" のみ出席
func isPresent(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return strings.EqualFold(t, "true")
	default:
		return false
	}
}
