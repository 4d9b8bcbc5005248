package tickets

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/disintegration/imaging"
	qrcode "github.com/skip2/go-qrcode"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	cardWidth     = 1200
	cardHeight    = 480
	cardStubWidth = 360
	cardPad       = 40
)

var (
	pngBlue  = color.NRGBA{0, 83, 155, 255}
	pngDark  = color.NRGBA{33, 37, 41, 255}
	pngMuted = color.NRGBA{108, 117, 125, 255}
	pngTint  = color.NRGBA{241, 246, 252, 255}
	pngWhite = color.NRGBA{255, 255, 255, 255}
)

// drawText renders s with the 7x13 bitmap face and scales it up by an
// integer factor so it stays crisp. (x, y) is the top-left corner.
func drawText(dst *image.NRGBA, s string, x, y, scale int, c color.Color) *image.NRGBA {
	if s == "" {
		return dst
	}
	face := basicfont.Face7x13
	w := font.MeasureString(face, s).Ceil()
	h := face.Height
	canvas := image.NewNRGBA(image.Rect(0, 0, w, h))
	d := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(0, face.Ascent),
	}
	d.DrawString(s)
	scaled := imaging.Resize(canvas, w*scale, h*scale, imaging.NearestNeighbor)
	return imaging.Overlay(dst, scaled, image.Pt(x, y), 1.0)
}

// fit truncates s so that it spans at most maxWidth pixels at the given scale.
func fit(s string, maxWidth, scale int) string {
	adv := basicfont.Face7x13.Advance * scale
	limit := maxWidth / adv
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}

// TicketPNG renders the same two-part ticket as TicketPDF as an image.
func (r *Renderer) TicketPNG(doc Document) ([]byte, error) {
	if err := doc.check(); err != nil {
		return nil, err
	}
	d := doc.Data
	mainWidth := cardWidth - cardStubWidth
	textWidth := mainWidth - 2*cardPad

	img := imaging.New(cardWidth, cardHeight, pngWhite)
	img = imaging.Paste(img, imaging.New(mainWidth, 120, pngBlue), image.Pt(0, 0))
	img = imaging.Paste(img, imaging.New(cardStubWidth, cardHeight, pngTint), image.Pt(mainWidth, 0))

	// Dashed tear line between the two parts.
	dash := imaging.New(3, 14, pngMuted)
	for y := 12; y < cardHeight-12; y += 24 {
		img = imaging.Paste(img, dash, image.Pt(mainWidth-1, y))
	}

	img = drawText(img, fit(r.organization, textWidth, 2), cardPad, 18, 2, pngWhite)
	img = drawText(img, fit(d.EventTitle, textWidth, 4), cardPad, 54, 4, pngWhite)
	img = drawText(img, fit(d.when(), textWidth, 2), cardPad, 140, 2, pngMuted)
	img = drawText(img, fit(d.EventLocation, textWidth, 2), cardPad, 172, 2, pngMuted)
	img = drawText(img, fit(d.fullName(), textWidth, 3), cardPad, 222, 3, pngDark)

	lines := []string{
		"Roll No.   " + d.RollNumber,
		"Academic   " + d.academic(),
		"Membership " + d.membership(),
		"Fee paid   " + d.fee(),
	}
	for i, line := range lines {
		img = drawText(img, fit(line, textWidth, 2), cardPad, 280+i*34, 2, pngDark)
	}

	q, err := qrcode.New(doc.AttendanceHash, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	qrSize := cardStubWidth - 2*cardPad
	qrImg := imaging.Resize(q.Image(qrSize), qrSize, qrSize, imaging.NearestNeighbor)
	img = drawText(img, "ADMIT ONE", mainWidth+(cardStubWidth-9*7*2)/2, 22, 2, pngDark)
	img = imaging.Paste(img, qrImg, image.Pt(mainWidth+cardPad, 70))
	short := shortHash(doc.AttendanceHash)
	img = drawText(img, short, mainWidth+(cardStubWidth-len(short)*7*2)/2, 80+qrSize, 2, pngDark)
	img = drawText(img, "Scan at entry", mainWidth+(cardStubWidth-13*7*2)/2, 118+qrSize, 2, pngMuted)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
