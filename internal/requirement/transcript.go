package requirement

import "strings"

const MaxWords = 100

// Segment is one speech recognition result.
type Segment struct {
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

// Transcript merges speech results into the need text. Only final segments
// are appended so partial results never echo.
type Transcript struct {
	base      string
	listening bool
}

// Start begins listening on top of the text already typed.
func (t *Transcript) Start(current string) {
	t.base = current
	t.listening = true
}

func (t *Transcript) Stop() {
	t.listening = false
}

func (t *Transcript) Listening() bool {
	return t.listening
}

// Apply folds a result batch into the text. It reports false when the
// batch held no final segment and the text is unchanged.
func (t *Transcript) Apply(segments []Segment) (string, bool) {
	var final strings.Builder
	for _, s := range segments {
		if s.Final {
			final.WriteString(s.Text)
		}
	}
	add := strings.TrimSpace(final.String())
	if add == "" {
		return t.base, false
	}
	base := strings.TrimSpace(t.base)
	combined := add
	if base != "" {
		combined = base + " " + add
	}
	t.base = LimitWords(combined, MaxWords)
	return t.base, true
}

func LimitWords(text string, n int) string {
	words := strings.Fields(text)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}

func WordCount(text string) int {
	return len(strings.Fields(text))
}

// AcceptTyped reports whether a typed edit is kept: anything within the word
// cap, and any edit that shortens the text.
func AcceptTyped(prev, next string) bool {
	return WordCount(next) <= MaxWords || len(next) < len(prev)
}
