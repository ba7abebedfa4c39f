package models

import "time"

// QRSessionStatus tracks the lifecycle of a scan session.
type QRSessionStatus string

const (
	QRSessionActive  QRSessionStatus = "active"
	QRSessionExpired QRSessionStatus = "expired"
	QRSessionClosed  QRSessionStatus = "closed"
)

// QRSession is the short-lived scannable window derived from an attendance
// session. Its ID is an opaque capability token; rows are never deleted,
// only expire or close. The anchor fields are copied from the parent session
// at creation when the parent carries one.
type QRSession struct {
	ID                  string          `db:"id" json:"session_id"`
	AttendanceSessionID string          `db:"attendance_session_id" json:"attendance_session_id"`
	ClassID             string          `db:"class_id" json:"class_id"`
	SessionDate         time.Time       `db:"session_date" json:"session_date"`
	ExpiresAt           time.Time       `db:"expires_at" json:"expires_at"`
	ScanCount           int             `db:"scan_count" json:"scan_count"`
	Status              QRSessionStatus `db:"status" json:"status"`
	Latitude            *float64        `db:"latitude" json:"latitude,omitempty"`
	Longitude           *float64        `db:"longitude" json:"longitude,omitempty"`
	Radius              *float64        `db:"radius" json:"radius,omitempty"`
	CreatedBy           string          `db:"created_by" json:"created_by"`
	CreatedAt           time.Time       `db:"created_at" json:"created_at"`
}

// Expired reports whether the session's window has passed at the given time.
func (s *QRSession) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// HasAnchor reports whether the session carries its own geofence anchor.
func (s *QRSession) HasAnchor() bool {
	return s.Latitude != nil && s.Longitude != nil
}

// ScannedStudent is one row of the live scan feed shown to staff.
type ScannedStudent struct {
	StudentID     string    `db:"student_id" json:"student_id"`
	FullName      string    `db:"full_name" json:"name"`
	StudentNumber string    `db:"student_number" json:"student_number"`
	ScannedAt     time.Time `db:"scanned_at" json:"scanned_at"`
}

// QRSessionStatusView is the read-only projection served to polling clients.
type QRSessionStatusView struct {
	SessionID       string           `json:"session_id"`
	Status          QRSessionStatus  `json:"status"`
	ScanCount       int              `json:"scan_count"`
	ExpiresAt       time.Time        `json:"expires_at"`
	ScannedStudents []ScannedStudent `json:"scanned_students"`
}

// GenerateQRRequest starts QR-mode attendance for a class meeting.
type GenerateQRRequest struct {
	ClassID   string `json:"classId" validate:"required"`
	ClassName string `json:"className"`
}

// GenerateQRResponse carries the payload clients render as a QR image.
type GenerateQRResponse struct {
	SessionID string `json:"sessionId"`
	QRData    string `json:"qrData"`
	ExpiresIn int64  `json:"expiresIn"`
}

// MarkAttendanceRequest is a student's single check-in attempt against a QR
// session. Identity resolution tries Email first, then StudentID.
type MarkAttendanceRequest struct {
	StudentID   string   `json:"studentId,omitempty"`
	StudentName string   `json:"studentName,omitempty"`
	Email       string   `json:"email,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
}

// MarkAttendanceResponse confirms a successful check-in.
type MarkAttendanceResponse struct {
	Record  *AttendanceRecord `json:"attendanceRecord"`
	Student StudentInfo       `json:"student"`
}
