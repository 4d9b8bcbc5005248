package registrations

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/acm-chapter/events-backend/internal/models"
	"github.com/acm-chapter/events-backend/internal/validation"
)

// flexString accepts either a JSON string or a JSON number.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*s = flexString(n.String())
	return nil
}

// RegisterRequest is the body for POST /register.
type RegisterRequest struct {
	EventID       flexString `json:"eventId"`
	EventTitle    string     `json:"eventTitle"`
	EventDate     string     `json:"eventDate"`
	EventTime     string     `json:"eventTime"`
	EventLocation string     `json:"eventLocation"`
	FirstName     string     `json:"firstName"`
	LastName      string     `json:"lastName"`
	Email         string     `json:"email"`
	Phone         flexString `json:"phone"`
	RollNumber    flexString `json:"rollNumber"`
	Branch        string     `json:"branch"`
	Year          flexString `json:"year"`
	Division      string     `json:"division"`
	IsACMMember   bool       `json:"isAcmMember"`
	MembershipID  *string    `json:"membershipId"`
	TransactionID flexString `json:"transactionId"`
	FeeAmount     flexString `json:"feeAmount"`
}

// toRegistration sanitizes and validates the request. Missing fields are
// reported before any format check.
func (req *RegisterRequest) toRegistration() (*models.Registration, error) {
	reg := &models.Registration{
		EventID:       strings.TrimSpace(string(req.EventID)),
		EventTitle:    strings.TrimSpace(req.EventTitle),
		EventDate:     strings.TrimSpace(req.EventDate),
		EventTime:     strings.TrimSpace(req.EventTime),
		EventLocation: strings.TrimSpace(req.EventLocation),
		FirstName:     validation.Sanitize(req.FirstName),
		LastName:      validation.Sanitize(req.LastName),
		Email:         validation.Sanitize(req.Email),
		Phone:         validation.Sanitize(string(req.Phone)),
		RollNumber:    validation.Sanitize(string(req.RollNumber)),
		Branch:        strings.TrimSpace(req.Branch),
		Year:          strings.TrimSpace(string(req.Year)),
		Division:      strings.TrimSpace(req.Division),
		IsACMMember:   req.IsACMMember,
		TransactionID: validation.Sanitize(string(req.TransactionID)),
	}
	fee := validation.Sanitize(string(req.FeeAmount))

	for _, v := range []string{
		reg.EventID, reg.EventTitle, reg.FirstName, reg.LastName, reg.Email, reg.Phone,
		reg.RollNumber, reg.Branch, reg.Year, reg.TransactionID, fee,
	} {
		if v == "" {
			return nil, validation.ErrMissingFields
		}
	}

	if err := validation.First(
		validation.Name("firstName", "First name", reg.FirstName),
		validation.Name("lastName", "Last name", reg.LastName),
		validation.RollNumber(reg.RollNumber),
		validation.Phone(reg.Phone),
		validation.Email(reg.Email),
		validation.TransactionID(reg.TransactionID),
	); err != nil {
		return nil, err
	}

	amount, err := strconv.ParseFloat(fee, 64)
	if err != nil || amount < 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return nil, &validation.Error{Field: "feeAmount", Message: "Fee amount must be a valid number"}
	}
	reg.FeeAmount = amount

	if reg.IsACMMember {
		if req.MembershipID == nil || validation.Sanitize(*req.MembershipID) == "" {
			return nil, &validation.Error{Field: "membershipId", Message: "Membership ID is required for ACM members"}
		}
		id := validation.Sanitize(*req.MembershipID)
		reg.MembershipID = &id
	}
	return reg, nil
}
