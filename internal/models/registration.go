package models

import (
	"time"

	"github.com/google/uuid"
)

// RegistrationStatus mirrors the attendance flag for display.
type RegistrationStatus string

const (
	StatusRegistered RegistrationStatus = "registered"
	StatusAttended   RegistrationStatus = "attended"
)

// Registration is one attendee's registration for one event. Records are
// grouped by Partition (derived from the event title) and email is unique
// within a partition.
type Registration struct {
	ID                 uuid.UUID          `json:"id"`
	Partition          string             `json:"-"`
	EventID            string             `json:"eventId"`
	EventTitle         string             `json:"eventTitle"`
	EventDate          string             `json:"eventDate,omitempty"`
	EventTime          string             `json:"eventTime,omitempty"`
	EventLocation      string             `json:"eventLocation,omitempty"`
	FirstName          string             `json:"firstName"`
	LastName           string             `json:"lastName"`
	Email              string             `json:"email"`
	Phone              string             `json:"phone"`
	RollNumber         string             `json:"rollNumber"`
	Branch             string             `json:"branch"`
	Year               string             `json:"year"`
	Division           string             `json:"division"`
	IsACMMember        bool               `json:"isAcmMember"`
	MembershipID       *string            `json:"membershipId"`
	TransactionID      string             `json:"transactionId"`
	FeeAmount          float64            `json:"feeAmount"`
	AttendanceHash     string             `json:"attendanceHash"`
	Attendance         bool               `json:"attendance"`
	AttendanceMarkedAt *time.Time         `json:"attendanceMarkedAt"`
	Status             RegistrationStatus `json:"status"`
	IPAddress          string             `json:"-"`
	TicketKey          string             `json:"-"`
	CreatedAt          time.Time          `json:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt"`
}

// FullName returns "First Last".
func (r *Registration) FullName() string {
	return r.FirstName + " " + r.LastName
}

// RegistrationStats summarizes one event partition.
type RegistrationStats struct {
	Total      int     `json:"total"`
	Attended   int     `json:"attended"`
	ACMMembers int     `json:"acmMembers"`
	FeeTotal   float64 `json:"feeTotal"`
}
