// Package htmldoc extracts, validates and repairs HTML documents from raw
// model output.
package htmldoc

import (
	"strings"
	"unicode"

	"github.com/xiaot623/pagesmith/internal/domain"
)

const (
	startMarker = "<!doctype html"
	rootMarker  = "<html"
	endMarker   = "</html>"
	fence       = "```"
)

// DefaultTitle is the title of the skeleton document used when raw output
// carries no document structure at all.
const DefaultTitle = "Generated Page"

// Outcome describes what Normalize had to do to produce its result.
type Outcome string

const (
	// OutcomeClean means the input was returned unchanged.
	OutcomeClean Outcome = "clean"
	// OutcomeExtracted means fences or surrounding prose were removed.
	OutcomeExtracted Outcome = "extracted"
	// OutcomeRepaired means a partial document was completed (generation only).
	OutcomeRepaired Outcome = "repaired"
	// OutcomeWrapped means unstructured text was wrapped in a skeleton (generation only).
	OutcomeWrapped Outcome = "wrapped"
	// OutcomeFallback means the candidate was discarded for the fallback document.
	OutcomeFallback Outcome = "fallback"
)

// Result is the normalized document and how it was obtained.
type Result struct {
	Document domain.Document
	Outcome  Outcome
}

// Degraded reports whether the model output could not be used as-is.
func (r Result) Degraded() bool {
	switch r.Outcome {
	case OutcomeRepaired, OutcomeWrapped, OutcomeFallback:
		return true
	}
	return false
}

// Normalizer turns raw model text into a renderable document.
type Normalizer struct {
	Title string
}

// New returns a Normalizer that titles skeleton documents with DefaultTitle.
func New() *Normalizer {
	return &Normalizer{Title: DefaultTitle}
}

// Normalize extracts a document from raw. An empty fallback selects the
// generation path, where unusable output is repaired or wrapped. A non-empty
// fallback selects the modification path, where any output that is not a
// complete document is discarded and fallback is returned unchanged.
// Normalize never fails.
func (n *Normalizer) Normalize(raw string, fallback domain.Document) Result {
	text := extract(stripFences(raw))

	if IsValid(text) {
		if text == raw {
			return Result{Document: domain.Document(text), Outcome: OutcomeClean}
		}
		return Result{Document: domain.Document(text), Outcome: OutcomeExtracted}
	}

	if !fallback.Empty() {
		return Result{Document: fallback, Outcome: OutcomeFallback}
	}

	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, startMarker):
		// Truncated output: the start survived, the end did not.
		return Result{Document: domain.Document(closeDocument(text)), Outcome: OutcomeRepaired}
	case strings.Contains(lower, rootMarker):
		return Result{Document: domain.Document(addDoctype(text)), Outcome: OutcomeRepaired}
	default:
		return Result{Document: domain.Document(n.Wrap(text)), Outcome: OutcomeWrapped}
	}
}

// Keep returns text unchanged when it is already a complete, unfenced
// document and normalizes it otherwise. Pages this package produced pass
// through Keep untouched, even when their body quotes an end marker.
func (n *Normalizer) Keep(text string, fallback domain.Document) Result {
	if IsValid(text) && stripFences(text) == text {
		return Result{Document: domain.Document(text), Outcome: OutcomeClean}
	}
	return n.Normalize(text, fallback)
}

// Wrap places body inside a minimal skeleton document.
func (n *Normalizer) Wrap(body string) string {
	title := n.Title
	if title == "" {
		title = DefaultTitle
	}
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	b.WriteString("<meta charset=\"UTF-8\">\n")
	b.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	b.WriteString("<title>" + title + "</title>\n</head>\n<body>\n")
	b.WriteString(body)
	b.WriteString("\n</body>\n</html>")
	return b.String()
}

var defaultNormalizer = New()

// Normalize runs the default Normalizer.
func Normalize(raw string, fallback domain.Document) Result {
	return defaultNormalizer.Normalize(raw, fallback)
}

// IsValid reports whether text contains a document start marker followed by
// a document end marker.
func IsValid(text string) bool {
	lower := strings.ToLower(text)
	i := strings.Index(lower, startMarker)
	if i < 0 {
		return false
	}
	return strings.Contains(lower[i:], endMarker)
}

// stripFences removes a leading fence line (bare or language-tagged) and a
// trailing fence. Text without fences is returned untouched.
func stripFences(s string) string {
	trimmed := strings.TrimLeftFunc(s, unicode.IsSpace)
	if strings.HasPrefix(trimmed, fence) {
		rest := trimmed[len(fence):]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[nl+1:]
		} else {
			rest = strings.TrimLeftFunc(rest, func(r rune) bool {
				return unicode.IsLetter(r) || unicode.IsDigit(r)
			})
		}
		s = rest
	}

	trimmed = strings.TrimRightFunc(s, unicode.IsSpace)
	if strings.HasSuffix(trimmed, fence) {
		s = strings.TrimRightFunc(trimmed[:len(trimmed)-len(fence)], unicode.IsSpace)
	}
	return s
}

// extract drops anything before the start marker and after the first end
// marker that follows it. Blank surroundings are left in place so a valid
// document is never rewritten.
func extract(s string) string {
	lower := strings.ToLower(s)
	i := strings.Index(lower, startMarker)
	if i < 0 {
		return s
	}
	if strings.TrimSpace(s[:i]) != "" {
		s = s[i:]
		lower = lower[i:]
		i = 0
	}
	j := strings.Index(lower[i:], endMarker)
	if j < 0 {
		return s
	}
	end := i + j + len(endMarker)
	if strings.TrimSpace(s[end:]) != "" {
		s = s[:end]
	}
	return s
}

func closeDocument(s string) string {
	s = strings.TrimRightFunc(s, unicode.IsSpace)
	lower := strings.ToLower(s)
	if !strings.Contains(lower, "</body>") && strings.Contains(lower, "<body") {
		s += "\n</body>"
	}
	return s + "\n</html>"
}

func addDoctype(s string) string {
	lower := strings.ToLower(s)
	i := strings.Index(lower, rootMarker)
	s = s[i:]
	lower = lower[i:]
	if j := strings.Index(lower, endMarker); j >= 0 {
		s = s[:j+len(endMarker)]
	} else {
		s = closeDocument(s)
	}
	return "<!DOCTYPE html>\n" + s
}
