package notifier

import (
	"errors"
	"fmt"

	"github.com/aescanero/diun2homer/pkg/domain"
)

// Rejection reasons recorded in metrics
const (
	ReasonInvalidPayload = "invalid_payload"
	ReasonTooLarge       = "too_large"
)

// ErrFieldTooLarge marks a payload rejected for size. It is always
// reported together with domain.ErrInvalidPayload.
var ErrFieldTooLarge = errors.New("field too large")

// DefaultMaxFieldLength bounds each known payload field.
const DefaultMaxFieldLength = 64 * 1024

// Validator validates Diun payloads
type Validator struct {
	maxFieldLength int
}

// NewValidator creates a new payload validator
func NewValidator() *Validator {
	return &Validator{maxFieldLength: DefaultMaxFieldLength}
}

// Validate checks required fields and field sizes
func (v *Validator) Validate(p domain.Payload) error {
	if err := p.Validate(); err != nil {
		return err
	}

	fields := map[string]string{
		"status":   p.Status,
		"image":    p.Image,
		"platform": p.Platform,
		"tag":      p.Tag,
		"message":  p.Message,
	}
	for name, value := range fields {
		if len(value) > v.maxFieldLength {
			return fmt.Errorf("%w: %w: %q exceeds %d bytes", domain.ErrInvalidPayload, ErrFieldTooLarge, name, v.maxFieldLength)
		}
	}

	return nil
}

// reason returns the metric label for a validation error
func reason(err error) string {
	if errors.Is(err, ErrFieldTooLarge) {
		return ReasonTooLarge
	}
	return ReasonInvalidPayload
}
