package domain

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidPayload is returned when a webhook payload is missing required
// fields or carries values of the wrong type.
var ErrInvalidPayload = errors.New("invalid payload")

// Payload is the body Diun sends through its webhook notifier.
// Keys other than the known ones are kept in Extra so nothing the notifier
// adds in later versions is lost.
type Payload struct {
	Status   string         `json:"status"`
	Image    string         `json:"image"`
	Platform string         `json:"platform,omitempty"`
	Tag      string         `json:"tag,omitempty"`
	Message  string         `json:"message"`
	Extra    map[string]any `json:"extra,omitempty"`
}

// known payload keys
const (
	keyStatus   = "status"
	keyImage    = "image"
	keyPlatform = "platform"
	keyTag      = "tag"
	keyMessage  = "message"
)

// PayloadFromMap builds a Payload from a decoded JSON object.
func PayloadFromMap(m map[string]any) (Payload, error) {
	var p Payload
	for k, v := range m {
		var dst *string
		switch k {
		case keyStatus:
			dst = &p.Status
		case keyImage:
			dst = &p.Image
		case keyPlatform:
			dst = &p.Platform
		case keyTag:
			dst = &p.Tag
		case keyMessage:
			dst = &p.Message
		default:
			if p.Extra == nil {
				p.Extra = make(map[string]any)
			}
			p.Extra[k] = v
			continue
		}

		switch val := v.(type) {
		case nil:
			// null is the same as absent
		case string:
			*dst = val
		default:
			return Payload{}, fmt.Errorf("%w: field %q must be a string, got %T", ErrInvalidPayload, k, v)
		}
	}
	return p, nil
}

// PayloadFromValues builds a Payload from URL query parameters. Only the
// first value of each key is used.
func PayloadFromValues(values url.Values) Payload {
	var p Payload
	for k := range values {
		v := values.Get(k)
		switch k {
		case keyStatus:
			p.Status = v
		case keyImage:
			p.Image = v
		case keyPlatform:
			p.Platform = v
		case keyTag:
			p.Tag = v
		case keyMessage:
			p.Message = v
		default:
			if p.Extra == nil {
				p.Extra = make(map[string]any)
			}
			p.Extra[k] = v
		}
	}
	return p
}

// Validate checks that the required fields are present.
func (p Payload) Validate() error {
	var missing []string
	if strings.TrimSpace(p.Status) == "" {
		missing = append(missing, keyStatus)
	}
	if strings.TrimSpace(p.Image) == "" {
		missing = append(missing, keyImage)
	}
	if strings.TrimSpace(p.Message) == "" {
		missing = append(missing, keyMessage)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required field(s): %s", ErrInvalidPayload, strings.Join(missing, ", "))
	}
	return nil
}
