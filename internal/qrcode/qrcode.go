package qrcode

import (
	"fmt"
	"strconv"
	"strings"

	qr "github.com/skip2/go-qrcode"

	"rollcall/internal/apperr"
)

// ContentType is the MIME type of encoded identity codes.
const ContentType = "image/png"

const imageSize = 256

// Payload derives the identity-code text for a student. The shape is
// fixed: scanners depend on field 1 of the underscore split being the id.
func Payload(id int64, email string) string {
	return fmt.Sprintf("STUDENT_%d_%s", id, email)
}

// Encode renders a payload as a PNG image.
func Encode(payload string) ([]byte, error) {
	png, err := qr.Encode(payload, qr.Low, imageSize)
	if err != nil {
		return nil, apperr.Wrap(apperr.Unexpected, "identity code encoding failed", err)
	}
	return png, nil
}

// ParseStudentID extracts the student id from a scanned payload.
// The contract is split-on-underscore, field index 1; any additional
// underscores in the email tail are ignored.
func ParseStudentID(payload string) (int64, error) {
	parts := strings.Split(payload, "_")
	if len(parts) < 2 {
		return 0, apperr.New(apperr.Validation, "invalid QR code")
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.New(apperr.Validation, "invalid QR code")
	}
	return id, nil
}
