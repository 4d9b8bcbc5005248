package models

import (
	"time"

	"github.com/google/uuid"
)

// Event is a chapter event shown on the events listing.
type Event struct {
	ID               uuid.UUID `json:"id"`
	Slug             string    `json:"slug"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Date             string    `json:"date"`
	Time             string    `json:"time"`
	Location         string    `json:"location"`
	FeeAmount        float64   `json:"feeAmount"`
	MemberFeeAmount  float64   `json:"memberFeeAmount"`
	ImageURL         string    `json:"imageUrl,omitempty"`
	RegistrationOpen bool      `json:"registrationOpen"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}
