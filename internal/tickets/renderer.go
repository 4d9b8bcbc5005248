package tickets

import (
	"errors"
	"time"

	qrcode "github.com/skip2/go-qrcode"
)

// ErrMissingData is returned when a document lacks the fields it must print.
var ErrMissingData = errors.New("missing registration data")

// Renderer produces documents. It holds no per-request state.
type Renderer struct {
	organization string
	now          func() time.Time
}

// NewRenderer creates a renderer that prints organization in document headers.
func NewRenderer(organization string) *Renderer {
	if organization == "" {
		organization = "ACM Student Chapter"
	}
	return &Renderer{organization: organization, now: time.Now}
}

func (d Document) check() error {
	if d.AttendanceHash == "" || d.Data.EventTitle == "" || d.Data.FirstName == "" || d.Data.LastName == "" || d.Data.RollNumber == "" {
		return ErrMissingData
	}
	return nil
}

func qrPNG(payload string, size int) ([]byte, error) {
	return qrcode.Encode(payload, qrcode.Medium, size)
}
