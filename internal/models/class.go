package models

// Class represents a teaching group that owns a roster of students.
type Class struct {
	ID          int64   `db:"id" json:"id"`
	Name        string  `db:"name" json:"name"`
	TeacherName *string `db:"teacher_name" json:"teacher_name,omitempty"`
}

// Teacher returns the teacher name or an empty string when unassigned.
func (c Class) Teacher() string {
	if c.TeacherName == nil {
		return ""
	}
	return *c.TeacherName
}
