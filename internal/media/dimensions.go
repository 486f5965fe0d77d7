// Package media derives display data from raw Viostream media payloads and
// projects them down to the fields that may be exposed to browsers.
package media

import (
	"strconv"

	"github.com/tidwall/gjson"
)

// Dimensions is the authoritative frame size of a video. Zero means unresolved.
type Dimensions struct {
	Width  int
	Height int
}

// Resolved reports whether both sides are known.
func (d Dimensions) Resolved() bool {
	return d.Width > 0 && d.Height > 0
}

// AspectRatio returns the CSS aspect-ratio value for d.
func (d Dimensions) AspectRatio() (string, bool) {
	return AspectRatio(d.Width, d.Height)
}

// AspectRatio returns "w / h" (the CSS aspect-ratio property value, not a reduced fraction).
func AspectRatio(width, height int) (string, bool) {
	if width <= 0 || height <= 0 {
		return "", false
	}
	return strconv.Itoa(width) + " / " + strconv.Itoa(height), true
}

// ResolveDimensions picks the frame size from a media detail payload.
//
// The download rendition wins when it carries both sides. Otherwise the widest
// progressive stream with both sides is used; the first one seen wins a tie.
// Streams missing either side are never picked.
func ResolveDimensions(raw []byte) Dimensions {
	detail := gjson.ParseBytes(raw)

	if d, ok := dimensionsOf(detail.Get("download")); ok {
		return d
	}

	var best Dimensions
	progressive := detail.Get("progressive")
	if !progressive.IsArray() {
		return best
	}
	progressive.ForEach(func(_, stream gjson.Result) bool {
		d, ok := dimensionsOf(stream)
		if ok && d.Width > best.Width {
			best = d
		}
		return true
	})
	return best
}

func dimensionsOf(v gjson.Result) (Dimensions, bool) {
	if !v.IsObject() {
		return Dimensions{}, false
	}
	w, h := positiveInt(v.Get("width")), positiveInt(v.Get("height"))
	if w == 0 || h == 0 {
		return Dimensions{}, false
	}
	return Dimensions{Width: w, Height: h}, true
}

func positiveInt(v gjson.Result) int {
	switch v.Type {
	case gjson.Number, gjson.String:
		if n := v.Int(); n > 0 {
			return int(n)
		}
	}
	return 0
}
