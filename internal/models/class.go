package models

import "time"

// Class represents a taught course students enroll in.
type Class struct {
	ID        string    `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	Name      string    `db:"name" json:"name"`
	StaffID   string    `db:"staff_id" json:"staff_id"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ClassLocation is the per-class geofence anchor override, maintained by
// admin tooling and consumed read-only during check-in validation.
type ClassLocation struct {
	ClassID   string   `db:"class_id" json:"class_id"`
	Latitude  float64  `db:"latitude" json:"latitude"`
	Longitude float64  `db:"longitude" json:"longitude"`
	Radius    *float64 `db:"radius" json:"radius,omitempty"`
}

// Enrollment links a student to a class.
type Enrollment struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	ClassID   string    `db:"class_id" json:"class_id"`
	Active    bool      `db:"active" json:"active"`
	JoinedAt  time.Time `db:"joined_at" json:"joined_at"`
}
