// Package uuid generates the identifiers attached to captured records:
// session tokens and locally synthesized ticket numbers.
package uuid

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TicketPrefix marks ticket numbers synthesized on the device.
const TicketPrefix = "OFF-"

// UUID v4 format: xxxxxxxx-xxxx-4xxx-yxxx-xxxxxxxxxxxx
// where y is one of [8, 9, a, b] (variant bits)
var uuidV4Regex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-4[0-9a-fA-F]{3}-[89abAB][0-9a-fA-F]{3}-[0-9a-fA-F]{12}$`)

var ticketRegex = regexp.MustCompile(`^OFF-\d{6}-\d{6}-[0-9A-F]{4}$`)

// New generates a new UUID v4.
func New() string {
	return uuid.New().String()
}

// NewSessionID returns a token for a capture session started on the device.
func NewSessionID() string {
	return New()
}

// NewTicketNumber returns a ticket number for a record captured at t, e.g.
// OFF-240315-142233-9F3A. The random suffix keeps two captures within the
// same second apart.
func NewTicketNumber(t time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(New(), "-", "")[:4])
	return fmt.Sprintf("%s%s-%s", TicketPrefix, t.Format("060102-150405"), suffix)
}

// IsTicketNumber reports whether s was produced by NewTicketNumber.
func IsTicketNumber(s string) bool {
	return ticketRegex.MatchString(s)
}

// IsValid checks if a string is a valid UUID v4.
// Enforces strict format with dashes and correct variant bits.
func IsValid(s string) bool {
	return uuidV4Regex.MatchString(s)
}

// Validate returns an error if the string is not a valid UUID v4.
func Validate(s string) error {
	if !IsValid(s) {
		return fmt.Errorf("invalid UUID v4 format: %q", s)
	}
	return nil
}
