package models

import "time"

// Favorite marks a consultant saved by a user.
type Favorite struct {
	ID           string    `db:"id" json:"id"`
	UserID       string    `db:"user_id" json:"user_id"`
	ConsultantID string    `db:"consultant_id" json:"consultant_id"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// FavoriteDetail joins a favorite with consultant info for listings.
type FavoriteDetail struct {
	FavoriteID     string  `db:"favorite_id" json:"favorite_id"`
	ConsultantID   string  `db:"consultant_id" json:"consultant_id"`
	ConsultantName string  `db:"consultant_name" json:"consultant_name"`
	Expertise      string  `db:"expertise" json:"expertise"`
	Languages      string  `db:"languages" json:"languages"`
	HourlyRate     float64 `db:"hourly_rate" json:"hourly_rate"`
}
