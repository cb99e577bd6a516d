package models

import "time"

// ConsultationStatus tracks the lifecycle of a consultation.
type ConsultationStatus string

const (
	ConsultationScheduled ConsultationStatus = "scheduled"
	ConsultationCompleted ConsultationStatus = "completed"
	ConsultationCancelled ConsultationStatus = "cancelled"
)

// ConsultationType is immutable reference data describing an offered session kind.
type ConsultationType struct {
	ID              string  `db:"id" json:"id"`
	Name            string  `db:"name" json:"name"`
	Description     string  `db:"description" json:"description"`
	DurationMinutes int     `db:"duration_minutes" json:"duration_minutes"`
	Price           float64 `db:"price" json:"price"`
}

// AvailabilitySlot is a discrete bookable interval published by a consultant.
// Date is a consultant-local calendar day (YYYY-MM-DD); StartTime and EndTime
// are HH:MM:SS time-of-day strings with StartTime < EndTime.
type AvailabilitySlot struct {
	ID           string    `db:"id" json:"id"`
	ConsultantID string    `db:"consultant_id" json:"consultant_id"`
	Date         string    `db:"date" json:"date"`
	StartTime    string    `db:"start_time" json:"start_time"`
	EndTime      string    `db:"end_time" json:"end_time"`
	IsBooked     bool      `db:"is_booked" json:"is_booked"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Contains reports whether the slot window fully covers [start, end).
// Fixed-width HH:MM:SS strings compare correctly byte-wise.
func (s AvailabilitySlot) Contains(start, end string) bool {
	return s.StartTime <= start && s.EndTime >= end
}

// Consultation is a confirmed appointment created by the booking transaction.
type Consultation struct {
	ID                 string             `db:"id" json:"id"`
	ConsultantID       string             `db:"consultant_id" json:"consultant_id"`
	UserID             string             `db:"user_id" json:"user_id"`
	ConsultationTypeID string             `db:"consultation_type_id" json:"consultation_type_id"`
	SlotID             string             `db:"slot_id" json:"slot_id"`
	ScheduledStartTime time.Time          `db:"scheduled_start_time" json:"scheduled_start_time"`
	Status             ConsultationStatus `db:"status" json:"status"`
	CreatedAt          time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time          `db:"updated_at" json:"updated_at"`
}

// ConsultationDetail joins a consultation with type and consultant info.
type ConsultationDetail struct {
	Consultation
	ConsultationType string `db:"consultation_type" json:"consultation_type"`
	DurationMinutes  int    `db:"duration_minutes" json:"duration_minutes"`
	ConsultantName   string `db:"consultant_name" json:"consultant_name"`
}

// ConsultationFilter captures listing criteria for a user's consultations.
type ConsultationFilter struct {
	UserID string
	Status ConsultationStatus
}

// BookingResult is returned to the caller on a successful booking.
type BookingResult struct {
	ConsultationID     string    `json:"consultation_id"`
	ConsultantID       string    `json:"consultant_id"`
	ConsultationType   string    `json:"consultation_type"`
	ScheduledStartTime time.Time `json:"scheduled_start_time"`
	DurationMinutes    int       `json:"duration_minutes"`
}

// BookingAnalytics aggregates consultation outcomes.
type BookingAnalytics struct {
	TotalConsultations     int      `db:"total_consultations" json:"total_consultations"`
	CompletedConsultations int      `db:"completed_consultations" json:"completed_consultations"`
	CancelledConsultations int      `db:"cancelled_consultations" json:"cancelled_consultations"`
	AverageRating          *float64 `db:"average_rating" json:"average_rating,omitempty"`
}

// AnalyticsFilter narrows the analytics window.
type AnalyticsFilter struct {
	StartDate    *time.Time
	EndDate      *time.Time
	ConsultantID string
}
