package roster

// Project derives the per-date view from the matrix. It is pure: the same
// matrix and date always give the same records, in matrix order, and a date
// missing from a person's attendance reads as absent.
func Project(m Matrix, date string) []Record {
	out := make([]Record, len(m))
	for i, p := range m {
		out[i] = Record{ID: p.ID, Name: p.Name, Present: p.Attendance[date]}
	}
	return out
}
