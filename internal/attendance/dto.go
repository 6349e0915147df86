package attendance

const (
	DefaultCharset = "utf-8"
	ExportFilename = "attendance.csv"
)

// AttendanceEntry: 1人分の全日付の出欠
type AttendanceEntry struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Attendance map[string]bool `json:"attendance"`
}

// GET /attendance
type AttendanceResponse struct {
	Dates          []string          `json:"dates"`
	AttendanceData []AttendanceEntry `json:"attendanceData"`
}

type UpdateRecord struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name" binding:"required"`
	Present bool   `json:"present"`
}

// POST /attendance
type UpdateRequest struct {
	Date       string         `json:"date" binding:"required"`
	Attendance []UpdateRecord `json:"attendance" binding:"required,dive"`
}

type UpdateResponse struct {
	Message      string        `json:"message"`
	ReceivedData UpdateRequest `json:"receivedData"`
	Matched      int           `json:"matched"`
	Written      int           `json:"written"`
	Skipped      []string      `json:"skipped"`
	Applied      bool          `json:"applied"`
}
