package tickets

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
)

const (
	ticketWidth  = 210.0
	ticketHeight = 90.0
	// stubWidth is the tear-off part on the right that carries the QR code.
	stubWidth = 62.0
	margin    = 8.0
)

type rgb struct{ r, g, b int }

var (
	brandBlue = rgb{0, 83, 155}
	inkDark   = rgb{33, 37, 41}
	inkMuted  = rgb{108, 117, 125}
	paperTint = rgb{241, 246, 252}
)

func setText(pdf *fpdf.Fpdf, c rgb) { pdf.SetTextColor(c.r, c.g, c.b) }
func setFill(pdf *fpdf.Fpdf, c rgb) { pdf.SetFillColor(c.r, c.g, c.b) }
func setDraw(pdf *fpdf.Fpdf, c rgb) { pdf.SetDrawColor(c.r, c.g, c.b) }

func output(pdf *fpdf.Fpdf) ([]byte, error) {
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func registerQR(pdf *fpdf.Fpdf, hash string) (string, error) {
	png, err := qrPNG(hash, 512)
	if err != nil {
		return "", fmt.Errorf("encode qr: %w", err)
	}
	const name = "attendance-qr"
	pdf.RegisterImageOptionsReader(name, fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(png))
	return name, pdf.Error()
}

// TicketPDF renders the two-part ticket card: event and attendee details on
// the main part, the QR code on a stub separated by a dashed tear line.
func (r *Renderer) TicketPDF(doc Document) ([]byte, error) {
	if err := doc.check(); err != nil {
		return nil, err
	}
	d := doc.Data
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: ticketWidth, Ht: ticketHeight},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	mainWidth := ticketWidth - stubWidth

	// Header band across the main part.
	setFill(pdf, brandBlue)
	pdf.Rect(0, 0, mainWidth, 22, "F")
	setText(pdf, rgb{255, 255, 255})
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetXY(margin, 4)
	pdf.CellFormat(mainWidth-2*margin, 5, tr(r.organization), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetX(margin)
	pdf.CellFormat(mainWidth-2*margin, 9, tr(d.EventTitle), "", 1, "L", false, 0, "")

	// Event line.
	setText(pdf, inkMuted)
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetXY(margin, 26)
	pdf.CellFormat(mainWidth-2*margin, 5, tr(d.when()), "", 1, "L", false, 0, "")
	pdf.SetX(margin)
	pdf.CellFormat(mainWidth-2*margin, 5, tr(d.EventLocation), "", 1, "L", false, 0, "")

	// Attendee block.
	setText(pdf, inkDark)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetXY(margin, 40)
	pdf.CellFormat(mainWidth-2*margin, 8, tr(d.fullName()), "", 1, "L", false, 0, "")

	rows := [][2]string{
		{"Roll No.", d.RollNumber},
		{"Academic", d.academic()},
		{"Membership", d.membership()},
		{"Fee paid", d.fee()},
	}
	pdf.SetFont("Helvetica", "", 9)
	for _, row := range rows {
		pdf.SetX(margin)
		setText(pdf, inkMuted)
		pdf.CellFormat(24, 6, row[0], "", 0, "L", false, 0, "")
		setText(pdf, inkDark)
		pdf.CellFormat(mainWidth-2*margin-24, 6, tr(row[1]), "", 1, "L", false, 0, "")
	}

	// Stub.
	setFill(pdf, paperTint)
	pdf.Rect(mainWidth, 0, stubWidth, ticketHeight, "F")
	setDraw(pdf, inkMuted)
	pdf.SetLineWidth(0.3)
	pdf.SetDashPattern([]float64{2, 1.5}, 0)
	pdf.Line(mainWidth, 3, mainWidth, ticketHeight-3)
	pdf.SetDashPattern([]float64{}, 0)

	qrName, err := registerQR(pdf, doc.AttendanceHash)
	if err != nil {
		return nil, err
	}
	qrSize := stubWidth - 2*margin
	pdf.ImageOptions(qrName, mainWidth+margin, 12, qrSize, qrSize, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")

	setText(pdf, inkDark)
	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetXY(mainWidth, 5)
	pdf.CellFormat(stubWidth, 5, "ADMIT ONE", "", 0, "C", false, 0, "")
	pdf.SetFont("Courier", "", 7)
	pdf.SetXY(mainWidth, 14+qrSize)
	pdf.CellFormat(stubWidth, 4, shortHash(doc.AttendanceHash), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 7)
	setText(pdf, inkMuted)
	pdf.SetX(mainWidth)
	pdf.CellFormat(stubWidth, 4, "Scan at entry", "", 0, "C", false, 0, "")

	return output(pdf)
}

// RegistrationPDF renders an A4 proof of registration.
func (r *Renderer) RegistrationPDF(doc Document) ([]byte, error) {
	if err := doc.check(); err != nil {
		return nil, err
	}
	d := doc.Data
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 40

	setFill(pdf, brandBlue)
	pdf.Rect(0, 0, pageW, 36, "F")
	setText(pdf, rgb{255, 255, 255})
	pdf.SetFont("Helvetica", "B", 20)
	pdf.SetXY(20, 10)
	pdf.CellFormat(contentW, 10, tr(r.organization), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	pdf.SetX(20)
	pdf.CellFormat(contentW, 7, "Registration Confirmation", "", 1, "L", false, 0, "")

	setText(pdf, inkDark)
	pdf.SetXY(20, 46)
	pdf.SetFont("Helvetica", "B", 16)
	pdf.MultiCell(contentW, 8, tr(d.EventTitle), "", "L", false)
	pdf.SetFont("Helvetica", "", 11)
	setText(pdf, inkMuted)
	pdf.CellFormat(contentW, 6, tr(d.when()), "", 1, "L", false, 0, "")
	pdf.CellFormat(contentW, 6, tr(d.EventLocation), "", 1, "L", false, 0, "")
	pdf.Ln(6)

	membershipID := "-"
	if d.MembershipID != nil && *d.MembershipID != "" {
		membershipID = *d.MembershipID
	}
	rows := [][2]string{
		{"Registration ID", doc.RegistrationID},
		{"Name", d.fullName()},
		{"Roll Number", d.RollNumber},
		{"Email", d.Email},
		{"Phone", d.Phone},
		{"Branch", d.Branch},
		{"Year", d.Year},
		{"Division", d.Division},
		{"ACM Member", yesNo(d.IsACMMember)},
		{"Membership ID", membershipID},
		{"Transaction ID", d.TransactionID},
		{"Fee Amount", d.fee()},
	}
	setDraw(pdf, rgb{222, 226, 230})
	for i, row := range rows {
		fill := i%2 == 0
		setFill(pdf, paperTint)
		pdf.SetFont("Helvetica", "B", 10)
		setText(pdf, inkMuted)
		pdf.CellFormat(50, 8, row[0], "1", 0, "L", fill, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		setText(pdf, inkDark)
		pdf.CellFormat(contentW-50, 8, tr(row[1]), "1", 1, "L", fill, 0, "")
	}

	qrName, err := registerQR(pdf, doc.AttendanceHash)
	if err != nil {
		return nil, err
	}
	y := pdf.GetY() + 10
	pdf.ImageOptions(qrName, (pageW-50)/2, y, 50, 50, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	pdf.SetXY(20, y+52)
	pdf.SetFont("Courier", "", 8)
	pdf.CellFormat(contentW, 5, doc.AttendanceHash, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "I", 9)
	setText(pdf, inkMuted)
	pdf.CellFormat(contentW, 6, "Present this QR code at the venue to mark attendance.", "", 1, "C", false, 0, "")
	pdf.CellFormat(contentW, 6, "Generated "+r.now().Format("02 Jan 2006 15:04 MST"), "", 1, "C", false, 0, "")

	return output(pdf)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
