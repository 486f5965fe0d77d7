package embed

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is the storage shape a reference came from.
type Kind string

const (
	// KindLink is a link field holding a share URL in its URI.
	KindLink Kind = "link"
	// KindText is a plain or long text field holding a share URL or a bare key.
	KindText Kind = "text"
)

// ErrUnresolvable is returned when a reference holds neither a share URL nor a bare key.
var ErrUnresolvable = errors.New("embed: value is not a Viostream share URL or key")

// Reference is a video reference as stored in content.
type Reference struct {
	Kind  Kind   `json:"kind"`
	Value string `json:"value"`
}

// LinkReference wraps the URI of a link field.
func LinkReference(uri string) Reference {
	return Reference{Kind: KindLink, Value: uri}
}

// TextReference wraps the value of a text field.
func TextReference(value string) Reference {
	return Reference{Kind: KindText, Value: value}
}

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindLink, KindText:
		return k, nil
	default:
		return "", fmt.Errorf("embed: unknown reference kind %q", s)
	}
}

// Empty reports whether there is nothing stored.
func (r Reference) Empty() bool {
	return isBlank(r.Value)
}

// Key resolves the share key.
func (r Reference) Key() (string, bool) {
	if r.Empty() {
		return "", false
	}
	return ExtractKey(r.Value)
}

// Validate checks that the reference can be rendered.
func (r Reference) Validate() error {
	if _, err := ParseKind(string(r.Kind)); err != nil {
		return err
	}
	if _, ok := r.Key(); !ok {
		return ErrUnresolvable
	}
	return nil
}

// Normalized returns the reference in its stored form: link fields keep a share
// URL, text fields keep whatever the editor chose if it resolves.
func (r Reference) Normalized() (Reference, error) {
	if err := r.Validate(); err != nil {
		return Reference{}, err
	}
	if r.Kind == KindLink {
		key, _ := r.Key()
		return LinkReference(ShareURL(key)), nil
	}
	return r, nil
}
