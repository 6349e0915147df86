package roster

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"rollcall-backend/internal/platform/sheet"
)

var ErrUnsupportedCharset = errors.New("unsupported charset")

// encodingFor: "" / utf-8 / utf-8-bom（Excel向け）/ shift_jis（Windowsの「ANSI（CP932）」相当）
func encodingFor(charset string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(charset)) {
	case "", "utf-8", "utf8":
		return unicode.UTF8, nil
	case "utf-8-bom", "utf8bom":
		return unicode.UTF8BOM, nil
	case "shift_jis", "sjis", "cp932":
		return japanese.ShiftJIS, nil
	default:
		return nil, ErrUnsupportedCharset
	}
}

// WriteCSV exports the snapshot with a Name,<dates...> header and TRUE/FALSE
// cells, encoded in the requested charset.
func WriteCSV(w io.Writer, snap Snapshot, charset string) error {
	enc, err := encodingFor(charset)
	if err != nil {
		return err
	}
	// 変換できない文字は置換文字にする（名前1件で全体を失敗させない）
	tw := transform.NewWriter(w, encoding.ReplaceUnsupported(enc.NewEncoder()))
	cw := csv.NewWriter(tw)

	header := append([]string{"Name"}, snap.Dates...)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, p := range snap.Matrix {
		rec := make([]string, 0, len(snap.Dates)+1)
		rec = append(rec, p.Name)
		for _, d := range snap.Dates {
			rec = append(rec, sheet.FormatBool(p.Attendance[d]))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return tw.Close()
}
