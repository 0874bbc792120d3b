package extraction

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MinTextLength is the fewest runes, after trimming, accepted as real output.
	MinTextLength = 10
	// MaxGarbageRatio is the largest tolerated share of non-printable runes.
	MaxGarbageRatio = 0.10
)

// ValidationOutcome reports whether extracted text is usable.
type ValidationOutcome struct {
	Valid  bool     `json:"isValid"`
	Issues []string `json:"issues"`
}

// artifactMarkers are container fragments that should never survive extraction.
var artifactMarkers = []struct {
	marker string
	desc   string
}{
	{"\x00\x00", "repeated null bytes"},
	{"\uFFFD\uFFFD\uFFFD", "runs of undecodable characters"},
	{"%PDF-", "a raw PDF header"},
	{"endstream", "raw PDF stream markers"},
	{"endobj", "raw PDF object markers"},
	{"PK\x03\x04", "a raw ZIP header"},
	{"[Content_Types].xml", "ZIP container entries"},
	{"<w:", "WordprocessingML markup"},
}

// Validate checks extracted text for signs that extraction silently failed.
// The result depends only on its arguments.
func Validate(text, formatLabel string) ValidationOutcome {
	issues := []string{}

	trimmed := strings.TrimSpace(text)
	if n := utf8.RuneCountInString(trimmed); n < MinTextLength {
		issues = append(issues, fmt.Sprintf(
			"%s extraction produced too little text (%d characters, minimum %d)",
			formatLabel, n, MinTextLength))
	}

	if text != "" {
		if ratio := garbageRatio(text); ratio > MaxGarbageRatio {
			issues = append(issues, fmt.Sprintf(
				"%s text is %.0f%% unreadable characters (maximum %.0f%%)",
				formatLabel, ratio*100, MaxGarbageRatio*100))
		}
	}

	for _, a := range artifactMarkers {
		if strings.Contains(text, a.marker) {
			issues = append(issues, fmt.Sprintf("%s text contains %s", formatLabel, a.desc))
		}
	}

	return ValidationOutcome{Valid: len(issues) == 0, Issues: issues}
}

func garbageRatio(text string) float64 {
	var total, garbage int
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		i += size
		total++
		if !isReadable(r) {
			garbage++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(garbage) / float64(total)
}

func isReadable(r rune) bool {
	switch r {
	case '\n', '\r', '\t':
		return true
	case utf8.RuneError:
		return false
	}
	return unicode.IsPrint(r) || unicode.IsSpace(r)
}
