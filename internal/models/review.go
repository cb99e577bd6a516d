package models

import "time"

// Review is a one-to-one rating of a completed consultation.
type Review struct {
	ID             string    `db:"id" json:"id"`
	ConsultationID string    `db:"consultation_id" json:"consultation_id"`
	UserID         string    `db:"user_id" json:"user_id"`
	Rating         int       `db:"rating" json:"rating"`
	Comment        string    `db:"comment" json:"comment"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}
