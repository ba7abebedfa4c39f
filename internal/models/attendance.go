package models

import "time"

// AttendanceStatus represents the status recorded for a check-in.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "present"
	AttendanceStatusAbsent  AttendanceStatus = "absent"
	AttendanceStatusLate    AttendanceStatus = "late"
	AttendanceStatusExcused AttendanceStatus = "excused"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent, AttendanceStatusLate, AttendanceStatusExcused:
		return true
	default:
		return false
	}
}

// AttendanceMethod identifies how a record was captured.
type AttendanceMethod string

const (
	AttendanceMethodQR     AttendanceMethod = "qr"
	AttendanceMethodManual AttendanceMethod = "manual"
	AttendanceMethodHybrid AttendanceMethod = "hybrid"
)

// AttendanceSession is the staff-created window for one class meeting.
type AttendanceSession struct {
	ID          string     `db:"id" json:"id"`
	ClassID     string     `db:"class_id" json:"class_id"`
	SessionDate time.Time  `db:"session_date" json:"session_date"`
	StartsAt    time.Time  `db:"starts_at" json:"starts_at"`
	ExpiresAt   time.Time  `db:"expires_at" json:"expires_at"`
	Latitude    *float64   `db:"latitude" json:"latitude,omitempty"`
	Longitude   *float64   `db:"longitude" json:"longitude,omitempty"`
	Radius      *float64   `db:"radius" json:"radius,omitempty"`
	CreatedBy   string     `db:"created_by" json:"created_by"`
	Active      bool       `db:"active" json:"active"`
	ClosedAt    *time.Time `db:"closed_at" json:"closed_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// AttendanceRecord is the durable result of a check-in. At most one exists
// per (student_id, class_id, session_date); the database enforces this with
// a unique constraint.
type AttendanceRecord struct {
	ID               string           `db:"id" json:"id"`
	StudentID        string           `db:"student_id" json:"student_id"`
	ClassID          string           `db:"class_id" json:"class_id"`
	SessionDate      time.Time        `db:"session_date" json:"session_date"`
	Status           AttendanceStatus `db:"status" json:"status"`
	Method           AttendanceMethod `db:"method" json:"method"`
	QRSessionID      *string          `db:"qr_session_id" json:"qr_session_id,omitempty"`
	DistanceMeters   *float64         `db:"distance_meters" json:"distance_meters,omitempty"`
	LocationVerified bool             `db:"location_verified" json:"location_verified"`
	Notes            *string          `db:"notes" json:"notes,omitempty"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
}

// AttendanceRecordDetail extends a record with student metadata for listings.
type AttendanceRecordDetail struct {
	AttendanceRecord
	StudentName   string `db:"student_name" json:"student_name"`
	StudentNumber string `db:"student_number" json:"student_number"`
	ClassName     string `db:"class_name" json:"class_name"`
}

// AttendanceFilter defines listing query filters.
type AttendanceFilter struct {
	ClassID   string
	StudentID string
	Status    *AttendanceStatus
	Method    *AttendanceMethod
	DateFrom  *time.Time
	DateTo    *time.Time
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// AttendanceSummary aggregates per-student counts.
type AttendanceSummary struct {
	Present int     `json:"present"`
	Absent  int     `json:"absent"`
	Late    int     `json:"late"`
	Excused int     `json:"excused"`
	Total   int     `json:"total"`
	Percent float64 `json:"percent"`
}
