package booking

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"bookit/models"

	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"
)

// Receipts renders booking receipts with a signed QR reference.
type Receipts struct {
	secret []byte
}

func NewReceipts(secret string) *Receipts {
	return &Receipts{secret: []byte(secret)}
}

// QRPayload returns bookingID|userID|signature.
func (rc *Receipts) QRPayload(b models.Booking) string {
	data := fmt.Sprintf("%s|%s", b.ID, b.UserID)
	h := hmac.New(sha256.New, rc.secret)
	h.Write([]byte(data))
	sig := base64.StdEncoding.EncodeToString(h.Sum(nil))
	return fmt.Sprintf("%s|%s", data, sig)
}

// VerifyPayload reports whether payload was signed by rc.
func (rc *Receipts) VerifyPayload(payload string) bool {
	parts := strings.Split(payload, "|")
	if len(parts) != 3 {
		return false
	}
	want := rc.QRPayload(models.Booking{ID: parts[0], UserID: parts[1]})
	return hmac.Equal([]byte(want), []byte(payload))
}

// PDF renders the receipt of b.
func (rc *Receipts) PDF(b models.Booking) ([]byte, error) {
	qrPNG, err := qrcode.Encode(rc.QRPayload(b), qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("generate qr code: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, "Booking Receipt")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 12)
	for _, line := range []string{
		fmt.Sprintf("Booking: %s", b.ID),
		fmt.Sprintf("Service: %s", b.ServiceTitle),
		fmt.Sprintf("Date: %s %s", b.BookingDate, b.BookingTime),
		fmt.Sprintf("Address: %s", b.Address),
		fmt.Sprintf("Total: %.2f", b.TotalPrice),
		fmt.Sprintf("Status: %s", b.Status),
		fmt.Sprintf("Booked at: %s", b.CreatedAt),
	} {
		pdf.Cell(0, 10, line)
		pdf.Ln(8)
	}

	imageOpts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", imageOpts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 150, 30, 40, 40, false, imageOpts, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
