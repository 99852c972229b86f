package models

// Snapshot is the cached read model: every class, student and mark plus the session bounds.
type Snapshot struct {
	Classes    []Class         `json:"classes"`
	Students   []StudentDetail `json:"students"`
	Attendance []Attendance    `json:"attendance"`
	Session    SessionBounds   `json:"session"`
}

// StudentsInClass returns the students of classID in snapshot order.
func (s *Snapshot) StudentsInClass(classID int64) []StudentDetail {
	out := make([]StudentDetail, 0)
	for _, st := range s.Students {
		if st.InClass(classID) {
			out = append(out, st)
		}
	}
	return out
}
