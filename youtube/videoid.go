package youtube

import (
	"regexp"
	"strings"

	apperrors "github.com/vereoman/better-summerize/errors"
)

var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:youtube\.com/(?:[^/\n\s]+/\S+/|(?:v|e(?:mbed)?)/|\S*?[?&]v=)|youtu\.be/)([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`^([a-zA-Z0-9_-]{11})$`),
}

// ExtractVideoID returns the 11-character video id from a watch, short, embed
// or bare-id form.
func ExtractVideoID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	for _, p := range videoIDPatterns {
		if m := p.FindStringSubmatch(raw); m != nil {
			return m[1], nil
		}
	}
	return "", apperrors.ErrInvalidURL(nil)
}

// IsYouTubeURL reports whether raw carries a video id.
func IsYouTubeURL(raw string) bool {
	_, err := ExtractVideoID(raw)
	return err == nil
}
