// Package embed turns stored Viostream video references into player URLs and
// responsive embed markup.
package embed

import (
	"regexp"
	"strings"
)

// ShareBaseURL is the public player root; a video's share URL is ShareBaseURL + key.
const ShareBaseURL = "https://share.viostream.com/"

var (
	bareKeyPattern  = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	shareURLPattern = regexp.MustCompile(`^https?://share\.viostream\.com/([A-Za-z0-9_-]+)(?:[/?]|$)`)
	unsafeKeyChars  = regexp.MustCompile(`[^A-Za-z0-9_-]`)
)

// IsBareKey reports whether s is a syntactically valid share key.
func IsBareKey(s string) bool {
	return bareKeyPattern.MatchString(s)
}

// ExtractKey returns the share key held by input, which must be either a bare
// key or a share.viostream.com URL. Anything else is rejected.
func ExtractKey(input string) (string, bool) {
	if IsBareKey(input) {
		return input, true
	}
	if m := shareURLPattern.FindStringSubmatch(input); m != nil {
		return m[1], true
	}
	return "", false
}

// SanitizeKey strips every character that cannot appear in a share key.
func SanitizeKey(key string) string {
	return unsafeKeyChars.ReplaceAllString(key, "")
}

// ShareURL returns the canonical share URL for key, or "" when nothing of it survives sanitizing.
func ShareURL(key string) string {
	key = SanitizeKey(key)
	if key == "" {
		return ""
	}
	return ShareBaseURL + key
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
