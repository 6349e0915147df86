package sheet

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"

	"rollcall-backend/internal/platform/db"
)

// MySQLSheet: sheet_cells テーブルに1セル1行で保存する表
//
//	CREATE TABLE sheet_cells (
//	  sheet_name VARCHAR(64) NOT NULL,
//	  row_num    INT NOT NULL,
//	  col_num    INT NOT NULL,
//	  cell_value TEXT NULL,
//	  updated_at DATETIME(6) NOT NULL,
//	  PRIMARY KEY (sheet_name, row_num, col_num)
//	);
type MySQLSheet struct {
	db   *sql.DB
	name string
}

func NewMySQLSheet(conn *sql.DB, name string) *MySQLSheet {
	return &MySQLSheet{db: conn, name: name}
}

func (s *MySQLSheet) Values(ctx context.Context) ([][]any, error) {
	var out [][]any
	err := db.ReadOnly(ctx, s.db, func(ctx context.Context, tx db.DBTX) error {
		rows, err := tx.QueryContext(ctx, `
	SELECT row_num, col_num, cell_value
	FROM sheet_cells
	WHERE sheet_name = ?
	ORDER BY row_num ASC, col_num ASC`, s.name)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				rowNum, colNum int
				val            sql.NullString
			)
			if err := rows.Scan(&rowNum, &colNum, &val); err != nil {
				return err
			}
			if rowNum < 1 || colNum < 0 {
				continue
			}
			for len(out) < rowNum {
				out = append(out, nil)
			}
			r := out[rowNum-1]
			for len(r) <= colNum {
				r = append(r, "")
			}
			r[colNum] = val.String
			out[rowNum-1] = r
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// BatchUpdate: 全セルを1トランザクション・1文の INSERT ... ON DUPLICATE KEY UPDATE で書く
func (s *MySQLSheet) BatchUpdate(ctx context.Context, updates []CellUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	var (
		buf  bytes.Buffer
		args = make([]any, 0, len(updates)*4)
	)
	buf.WriteString(`
	INSERT INTO sheet_cells (sheet_name, row_num, col_num, cell_value, updated_at)
	VALUES `)
	for i, u := range updates {
		row, col, err := ParseA1(u.Range)
		if err != nil {
			return err
		}
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString("(?, ?, ?, ?, UTC_TIMESTAMP(6))")
		args = append(args, s.name, row, col, CellString(u.Value))
	}
	buf.WriteString(`
	ON DUPLICATE KEY UPDATE
	cell_value = VALUES(cell_value),
	updated_at = VALUES(updated_at)`)

	return db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		if _, err := tx.ExecContext(ctx, buf.String(), args...); err != nil {
			return fmt.Errorf("upsert %d cells: %w", len(updates), err)
		}
		return nil
	})
}
