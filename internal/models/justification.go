package models

import "time"

// JustificationStatus tracks the review lifecycle of an absence excuse.
type JustificationStatus string

const (
	JustificationPending  JustificationStatus = "pending"
	JustificationApproved JustificationStatus = "approved"
	JustificationRejected JustificationStatus = "rejected"
)

// Justification is a student-submitted absence excuse awaiting staff review.
type Justification struct {
	ID          string              `db:"id" json:"id"`
	StudentID   string              `db:"student_id" json:"student_id"`
	ClassID     string              `db:"class_id" json:"class_id"`
	SessionDate time.Time           `db:"session_date" json:"session_date"`
	Reason      string              `db:"reason" json:"reason"`
	Status      JustificationStatus `db:"status" json:"status"`
	ReviewedBy  *string             `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt  *time.Time          `db:"reviewed_at" json:"reviewed_at,omitempty"`
	ReviewNote  *string             `db:"review_note" json:"review_note,omitempty"`
	CreatedAt   time.Time           `db:"created_at" json:"created_at"`
}

// SubmitJustificationRequest is the student-facing submission payload.
type SubmitJustificationRequest struct {
	ClassID     string    `json:"class_id" validate:"required"`
	SessionDate time.Time `json:"session_date" validate:"required"`
	Reason      string    `json:"reason" validate:"required,min=10"`
}

// ReviewJustificationRequest is the staff decision payload.
type ReviewJustificationRequest struct {
	Approve bool   `json:"approve"`
	Note    string `json:"note"`
}
