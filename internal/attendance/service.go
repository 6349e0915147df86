package attendance

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"rollcall-backend/internal/roster"
)

// Roster: *roster.Adapter を満たす
type Roster interface {
	FetchMatrix(ctx context.Context) (roster.Snapshot, error)
	UpdateForDate(ctx context.Context, date string, records []roster.Record) (roster.UpdateResult, error)
}

type Service struct {
	roster Roster
}

func NewService(r Roster) *Service {
	return &Service{roster: r}
}

// GET /attendance
func (s *Service) Get(ctx context.Context) (AttendanceResponse, error) {
	snap, err := s.roster.FetchMatrix(ctx)
	if err != nil {
		return AttendanceResponse{}, err
	}
	return toResponse(snap), nil
}

// POST /attendance
func (s *Service) Update(ctx context.Context, req UpdateRequest) (UpdateResponse, error) {
	if strings.TrimSpace(req.Date) == "" {
		return UpdateResponse{}, ErrValidation("date is required")
	}
	records := make([]roster.Record, 0, len(req.Attendance))
	for i, a := range req.Attendance {
		if strings.TrimSpace(a.Name) == "" {
			return UpdateResponse{}, ErrValidation(fmt.Sprintf("attendance[%d].name is required", i))
		}
		records = append(records, roster.Record{ID: a.ID, Name: a.Name, Present: a.Present})
	}

	// date はヘッダと完全一致で照合するので加工しない
	res, err := s.roster.UpdateForDate(ctx, req.Date, records)
	if err != nil {
		return UpdateResponse{}, err
	}

	skipped := res.Skipped
	if skipped == nil {
		skipped = []string{}
	}
	msg := "Attendance updated"
	if !res.Applied {
		msg = "No matching names; nothing was updated"
	}
	return UpdateResponse{
		Message:      msg,
		ReceivedData: req,
		Matched:      res.Matched,
		Written:      res.Written,
		Skipped:      skipped,
		Applied:      res.Applied,
	}, nil
}

// Export renders the whole matrix as CSV. The body is built in memory so a
// failure can still be reported as a JSON error.
func (s *Service) Export(ctx context.Context, charset string) ([]byte, error) {
	if charset == "" {
		charset = DefaultCharset
	}
	snap, err := s.roster.FetchMatrix(ctx)
	if err != nil {
		return nil, err
	}
	var b bytes.Buffer
	if err := roster.WriteCSV(&b, snap, charset); err != nil {
		if errors.Is(err, roster.ErrUnsupportedCharset) {
			return nil, ErrValidation("charset must be utf-8, utf-8-bom or shift_jis")
		}
		return nil, err
	}
	return b.Bytes(), nil
}

func toResponse(snap roster.Snapshot) AttendanceResponse {
	data := make([]AttendanceEntry, 0, len(snap.Matrix))
	for _, p := range snap.Matrix {
		att := make(map[string]bool, len(p.Attendance))
		for d, v := range p.Attendance {
			att[d] = v
		}
		data = append(data, AttendanceEntry{ID: p.ID, Name: p.Name, Attendance: att})
	}
	dates := snap.Dates
	if dates == nil {
		dates = []string{}
	}
	return AttendanceResponse{Dates: dates, AttendanceData: data}
}

// ToSnapshot converts a wire response back into a roster snapshot.
func ToSnapshot(r AttendanceResponse) roster.Snapshot {
	m := make(roster.Matrix, 0, len(r.AttendanceData))
	for _, e := range r.AttendanceData {
		att := e.Attendance
		if att == nil {
			att = map[string]bool{}
		}
		m = append(m, roster.Person{ID: e.ID, Name: e.Name, Attendance: att})
	}
	return roster.Snapshot{Dates: r.Dates, Matrix: m}
}

// ToUpdateResult is the inverse of the POST /attendance response mapping.
func ToUpdateResult(r UpdateResponse) roster.UpdateResult {
	return roster.UpdateResult{
		Date:    r.ReceivedData.Date,
		Matched: r.Matched,
		Written: r.Written,
		Skipped: r.Skipped,
		Applied: r.Applied,
	}
}
