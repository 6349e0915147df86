// Package sheet is the tabular backing store behind the roster: a single
// spreadsheet-shaped grid addressed in A1 notation.
package sheet

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidRange = errors.New("invalid A1 range")

// CellUpdate: 1セル分の書き込み。Range は "C7" 形式（シート名付き "Attendance!C7" も可）
type CellUpdate struct {
	Range string
	Value any
}

// Sheet: 表全体を1回で読み、セル群を1回で書く
type Sheet interface {
	// Values returns every row of the used range. Rows may be ragged.
	Values(ctx context.Context) ([][]any, error)
	// BatchUpdate writes all updates atomically: either every cell changes or none does.
	BatchUpdate(ctx context.Context, updates []CellUpdate) error
}

// ColumnName: 0始まりの列番号を列記号に変換する（0→A, 25→Z, 26→AA, 702→AAA）
func ColumnName(col int) string {
	if col < 0 {
		return ""
	}
	var buf []byte
	for n := col + 1; n > 0; n = (n - 1) / 26 {
		buf = append(buf, byte('A'+(n-1)%26))
	}
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return string(buf)
}

// ColumnIndex is the inverse of ColumnName.
func ColumnIndex(name string) (int, error) {
	if name == "" {
		return 0, fmt.Errorf("%w: empty column", ErrInvalidRange)
	}
	n := 0
	for _, r := range strings.ToUpper(name) {
		if r < 'A' || r > 'Z' {
			return 0, fmt.Errorf("%w: column %q", ErrInvalidRange, name)
		}
		n = n*26 + int(r-'A'+1)
	}
	return n - 1, nil
}

// A1: row は1始まり、col は0始まり
func A1(row, col int) string {
	return ColumnName(col) + strconv.Itoa(row)
}

// ParseA1 returns the 1-based row and 0-based column of a single-cell reference.
func ParseA1(ref string) (row, col int, err error) {
	if i := strings.LastIndexByte(ref, '!'); i >= 0 {
		ref = ref[i+1:]
	}
	ref = strings.ReplaceAll(ref, "$", "")

	split := 0
	for split < len(ref) && isLetter(ref[split]) {
		split++
	}
	if split == 0 || split == len(ref) {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidRange, ref)
	}
	col, err = ColumnIndex(ref[:split])
	if err != nil {
		return 0, 0, err
	}
	row, err = strconv.Atoi(ref[split:])
	if err != nil || row < 1 || ref[split] == '+' || ref[split] == '-' {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidRange, ref)
	}
	return row, col, nil
}

func isLetter(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}

// FormatBool: スプレッドシートのチェックボックスと同じ表記
func FormatBool(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

// CellString renders a cell value the way it is persisted.
func CellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
