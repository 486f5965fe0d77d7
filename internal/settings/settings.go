package settings

import (
	"errors"
	"strings"

	"github.com/aura-webinar/viostream/internal/viostream"
)

// AccessKeyPrefix starts every Viostream access key.
const AccessKeyPrefix = "VC-"

const maxKeyLength = 255

// Validation errors for submitted credentials.
var (
	ErrMissingKeys     = errors.New("access key and api key are both required")
	ErrAccessKeyPrefix = errors.New("access key must start with " + AccessKeyPrefix)
	ErrKeyTooLong      = errors.New("keys must be at most 255 characters")
)

// Form is the submitted credential pair.
type Form struct {
	AccessKey string `json:"access_key"`
	APIKey    string `json:"api_key"`
}

// Credentials trims the submitted values.
func (f Form) Credentials() viostream.Credentials {
	return viostream.Credentials{
		AccessKey: strings.TrimSpace(f.AccessKey),
		APIKey:    strings.TrimSpace(f.APIKey),
	}
}

// Validate checks the pair before it is saved.
func (f Form) Validate() error {
	c := f.Credentials()
	if c.AccessKey == "" || c.APIKey == "" {
		return ErrMissingKeys
	}
	if len(c.AccessKey) > maxKeyLength || len(c.APIKey) > maxKeyLength {
		return ErrKeyTooLong
	}
	if !strings.HasPrefix(c.AccessKey, AccessKeyPrefix) {
		return ErrAccessKeyPrefix
	}
	return nil
}

// Mask hides all but the last four characters of a secret.
func Mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "********"
	}
	return "********" + secret[len(secret)-4:]
}
