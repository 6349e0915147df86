package roster

import (
	"strconv"
	"strings"
)

// Person: 出欠表の1行。ID は読み込み時の行番号から作るスナップショット内の参照
type Person struct {
	ID         string
	Name       string
	Attendance map[string]bool
}

// Matrix: 名前×日付の出欠表（表の行順）
type Matrix []Person

// Record: ある1日分の出欠
type Record struct {
	ID      string
	Name    string
	Present bool
}

// Snapshot: 全件取得の結果。Dates[0] が既定の選択日
type Snapshot struct {
	Dates  []string
	Matrix Matrix
}

// UpdateResult: UpdateForDate の結果
type UpdateResult struct {
	Date    string
	Matched int      // 行が見つかったレコード数
	Written int      // 実際に書き換えたセル数（値が同じセルは書かない）
	Skipped []string // 見つからなかった名前
	Applied bool     // Matched > 0
}

func (m Matrix) Clone() Matrix {
	out := make(Matrix, len(m))
	for i, p := range m {
		att := make(map[string]bool, len(p.Attendance))
		for d, v := range p.Attendance {
			att[d] = v
		}
		out[i] = Person{ID: p.ID, Name: p.Name, Attendance: att}
	}
	return out
}

func (s Snapshot) Clone() Snapshot {
	return Snapshot{
		Dates:  append([]string(nil), s.Dates...),
		Matrix: s.Matrix.Clone(),
	}
}

const rowIDPrefix = "row-"

func rowID(rowNum int) string {
	return rowIDPrefix + strconv.Itoa(rowNum)
}

// parseRowID: "row-7" → 7
func parseRowID(id string) (int, bool) {
	if !strings.HasPrefix(id, rowIDPrefix) {
		return 0, false
	}
	n, err := strconv.Atoi(id[len(rowIDPrefix):])
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}
