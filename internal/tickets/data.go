// Package tickets renders registration confirmations and two-part event
// tickets (PDF and PNG) carrying the attendance hash as a QR code.
package tickets

import (
	"fmt"
	"strings"

	"github.com/acm-chapter/events-backend/internal/models"
)

// Data is the registration detail printed on documents.
type Data struct {
	EventTitle    string  `json:"eventTitle"`
	EventDate     string  `json:"eventDate"`
	EventTime     string  `json:"eventTime"`
	EventLocation string  `json:"eventLocation"`
	FirstName     string  `json:"firstName"`
	LastName      string  `json:"lastName"`
	Email         string  `json:"email"`
	Phone         string  `json:"phone"`
	RollNumber    string  `json:"rollNumber"`
	Branch        string  `json:"branch"`
	Year          string  `json:"year"`
	Division      string  `json:"division"`
	IsACMMember   bool    `json:"isAcmMember"`
	MembershipID  *string `json:"membershipId"`
	TransactionID string  `json:"transactionId"`
	FeeAmount     float64 `json:"feeAmount"`
}

// Document is everything a renderer needs.
type Document struct {
	Data           Data
	AttendanceHash string
	RegistrationID string
}

// FromRegistration builds a Document from a stored registration.
func FromRegistration(reg *models.Registration) Document {
	return Document{
		Data: Data{
			EventTitle:    reg.EventTitle,
			EventDate:     reg.EventDate,
			EventTime:     reg.EventTime,
			EventLocation: reg.EventLocation,
			FirstName:     reg.FirstName,
			LastName:      reg.LastName,
			Email:         reg.Email,
			Phone:         reg.Phone,
			RollNumber:    reg.RollNumber,
			Branch:        reg.Branch,
			Year:          reg.Year,
			Division:      reg.Division,
			IsACMMember:   reg.IsACMMember,
			MembershipID:  reg.MembershipID,
			TransactionID: reg.TransactionID,
			FeeAmount:     reg.FeeAmount,
		},
		AttendanceHash: reg.AttendanceHash,
		RegistrationID: reg.ID.String(),
	}
}

func (d Data) fullName() string {
	return strings.TrimSpace(d.FirstName + " " + d.LastName)
}

func (d Data) when() string {
	switch {
	case d.EventDate != "" && d.EventTime != "":
		return d.EventDate + " | " + d.EventTime
	case d.EventDate != "":
		return d.EventDate
	default:
		return d.EventTime
	}
}

func (d Data) academic() string {
	parts := []string{}
	for _, p := range []string{d.Branch, d.Year, d.Division} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " / ")
}

func (d Data) membership() string {
	if d.IsACMMember && d.MembershipID != nil && *d.MembershipID != "" {
		return "ACM Member (" + *d.MembershipID + ")"
	}
	return "Non-member"
}

func (d Data) fee() string {
	return fmt.Sprintf("Rs. %.2f", d.FeeAmount)
}

// Filename builds an attachment name from the event title and roll number
// with every non-alphanumeric character removed.
func Filename(eventTitle, rollNumber, kind, ext string) string {
	return alnum(eventTitle) + "_" + alnum(rollNumber) + "_" + kind + "." + ext
}

func alnum(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// shortHash is the human-readable prefix printed under QR codes.
func shortHash(h string) string {
	if len(h) <= 16 {
		return h
	}
	return h[:16]
}
