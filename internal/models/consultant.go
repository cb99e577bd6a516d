package models

import "time"

// Consultant is the provider profile linked to a user account.
type Consultant struct {
	ID         string    `db:"id" json:"id"`
	UserID     string    `db:"user_id" json:"user_id"`
	Expertise  string    `db:"expertise" json:"expertise"`
	Languages  string    `db:"languages" json:"languages"`
	HourlyRate float64   `db:"hourly_rate" json:"hourly_rate"`
	Bio        string    `db:"bio" json:"bio"`
	Active     bool      `db:"active" json:"active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// ConsultantDetail joins the consultant with account info and review aggregates.
type ConsultantDetail struct {
	Consultant
	Name          string   `db:"name" json:"name"`
	Email         string   `db:"email" json:"email"`
	ReviewCount   int      `db:"review_count" json:"review_count"`
	AverageRating *float64 `db:"average_rating" json:"average_rating,omitempty"`
}

// ConsultantFilter captures the browse criteria.
type ConsultantFilter struct {
	Expertise string
	Language  string
	MinRating *float64
	MaxPrice  *float64
	Page      int
	PageSize  int
}
