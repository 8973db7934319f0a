package ai

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shinyyama/hoko/internal/catalog"
)

var (
	categoryPattern = regexp.MustCompile(`\$([a-z-]+)\$`)
	wordRegex       = regexp.MustCompile(`[a-z]+(?:-[a-z]+)*`)
	ErrParseFailed  = errors.New("parse_failed")
)

// ParseCategory extracts a catalog category value from a model answer. It
// first tries the strict $value$ format, then the first catalog value
// found anywhere in the text.
func ParseCategory(text string) (string, error) {
	lower := strings.ToLower(text)
	if m := categoryPattern.FindStringSubmatch(lower); len(m) >= 2 {
		if catalog.IsCategory(m[1]) {
			return m[1], nil
		}
		return "", fmt.Errorf("%w: unknown category %q", ErrParseFailed, m[1])
	}
	for _, w := range wordRegex.FindAllString(lower, -1) {
		if catalog.IsCategory(w) {
			return w, nil
		}
	}
	return "", fmt.Errorf("%w: no category found", ErrParseFailed)
}
