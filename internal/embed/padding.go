package embed

import (
	"math"
	"strconv"
	"strings"
)

// DefaultPaddingBottom keeps a 16:9 box when the frame size is unknown.
const DefaultPaddingBottom = "56.25%"

// PaddingBottom returns the padding-bottom percentage of a responsive wrapper for
// a width x height frame, as stored on editor markup attributes. The ratio is
// rounded to four decimals.
func PaddingBottom(width, height string) string {
	w, errW := strconv.Atoi(strings.TrimSpace(width))
	h, errH := strconv.Atoi(strings.TrimSpace(height))
	if errW != nil || errH != nil {
		return DefaultPaddingBottom
	}
	return PaddingBottomFor(w, h)
}

// PaddingBottomFor is PaddingBottom for integer sides.
func PaddingBottomFor(width, height int) string {
	if width <= 0 || height <= 0 {
		return DefaultPaddingBottom
	}
	pct := math.Round(float64(height)/float64(width)*100*10000) / 10000
	return strconv.FormatFloat(pct, 'f', -1, 64) + "%"
}
