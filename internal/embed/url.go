package embed

import "net/url"

// PlayerOptions are the playback flags carried on the embed URL.
// The zero value is the player default: no autoplay, sound on, controls shown.
type PlayerOptions struct {
	Autoplay     bool
	Muted        bool
	HideControls bool
}

// Query returns the parameters for the non-default flags only.
func (o PlayerOptions) Query() url.Values {
	q := url.Values{}
	if o.Autoplay {
		q.Set("autoplay", "1")
	}
	if o.Muted {
		q.Set("muted", "1")
	}
	if o.HideControls {
		q.Set("controls", "0")
	}
	return q
}

// BuildURL returns the player URL for key with opts applied. An empty result
// means the key had no usable characters and nothing should be embedded.
func BuildURL(key string, opts PlayerOptions) string {
	base := ShareURL(key)
	if base == "" {
		return ""
	}
	q := opts.Query()
	if len(q) == 0 {
		return base
	}
	return base + "?" + q.Encode()
}
