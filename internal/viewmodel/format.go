package viewmodel

import (
	"strings"
	"time"
)

// 表のヘッダは M/D/YYYY（ゼロ埋めありも可）
const (
	sheetDateLayout   = "1/2/2006"
	displayDateLayout = "January 2, 2006"
)

// FormatDateForDisplay turns "7/20/2025" into "July 20, 2025". Anything that
// does not parse is returned unchanged.
func FormatDateForDisplay(date string) string {
	t, err := time.Parse(sheetDateLayout, strings.TrimSpace(date))
	if err != nil {
		return date
	}
	return t.Format(displayDateLayout)
}
