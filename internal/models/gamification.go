package models

import "time"

// PointsEntry is one row in the gamification ledger. The check-in hook only
// ever writes flat awards; scoring formulas live outside this service.
type PointsEntry struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	Points    int       `db:"points" json:"points"`
	Reason    string    `db:"reason" json:"reason"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// StudentPoints aggregates a student's ledger with their current streak.
type StudentPoints struct {
	StudentID   string `db:"student_id" json:"student_id"`
	TotalPoints int    `db:"total_points" json:"total_points"`
	Streak      int    `db:"streak" json:"streak"`
}
