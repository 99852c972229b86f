package models

// Student represents a learner registered in one class.
type Student struct {
	ID         int64  `db:"id" json:"id"`
	Name       string `db:"name" json:"name"`
	ClassID    *int64 `db:"class_id" json:"class_id,omitempty"`
	OrderIndex int    `db:"order_index" json:"order_index"`
}

// StudentDetail joins a student with its class and teacher names.
type StudentDetail struct {
	Student
	ClassName   *string `db:"class_name" json:"class_name,omitempty"`
	TeacherName *string `db:"teacher_name" json:"teacher_name,omitempty"`
}

// InClass reports whether the student currently belongs to classID.
func (s Student) InClass(classID int64) bool {
	return s.ClassID != nil && *s.ClassID == classID
}

// StudentFilter scopes student listings.
type StudentFilter struct {
	ClassID *int64
}

// RosterDirection is the way a student moves within its class roster.
type RosterDirection string

const (
	RosterDirectionUp   RosterDirection = "up"
	RosterDirectionDown RosterDirection = "down"
)

// Valid reports whether the direction is supported.
func (d RosterDirection) Valid() bool {
	return d == RosterDirectionUp || d == RosterDirectionDown
}
