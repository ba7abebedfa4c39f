package models

import "time"

// Student represents a learner registered at the university.
type Student struct {
	ID            string    `db:"id" json:"id"`
	UserID        *string   `db:"user_id" json:"user_id,omitempty"`
	StudentNumber string    `db:"student_number" json:"student_number"`
	FullName      string    `db:"full_name" json:"full_name"`
	Email         string    `db:"email" json:"email"`
	Department    string    `db:"department" json:"department"`
	Active        bool      `db:"active" json:"active"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// StudentIdentity is the identity a scanning client submits with a check-in.
// At least one of Email or StudentNumber must be present; email wins when
// both are supplied.
type StudentIdentity struct {
	Email         string
	StudentNumber string
}

// Empty reports whether no identifying field was supplied.
func (i StudentIdentity) Empty() bool {
	return i.Email == "" && i.StudentNumber == ""
}

// StudentInfo is the minimal projection returned with a successful check-in.
type StudentInfo struct {
	ID            string `json:"id"`
	FullName      string `json:"name"`
	StudentNumber string `json:"student_id"`
	Department    string `json:"department"`
}

// Info projects the student into the check-in response shape.
func (s *Student) Info() StudentInfo {
	return StudentInfo{
		ID:            s.ID,
		FullName:      s.FullName,
		StudentNumber: s.StudentNumber,
		Department:    s.Department,
	}
}
