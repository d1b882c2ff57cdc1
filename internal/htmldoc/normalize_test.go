package htmldoc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/pagesmith/internal/domain"
)

const page = "<!DOCTYPE html>\n<html>\n<head><title>Cats</title></head>\n<body><h1>Cats</h1></body>\n</html>"

const otherPage = "<!DOCTYPE html>\n<html><body><p>previous</p></body></html>"

func TestNormalizeValidDocumentIsUnchanged(t *testing.T) {
	for _, fallback := range []domain.Document{"", otherPage} {
		res := Normalize(page, fallback)
		assert.Equal(t, domain.Document(page), res.Document)
		assert.Equal(t, OutcomeClean, res.Outcome)
		assert.False(t, res.Degraded())
	}
}

func TestNormalizeKeepsBlankSurroundings(t *testing.T) {
	doc := "\n  " + page + "\n"
	res := Normalize(doc, "")
	assert.Equal(t, domain.Document(doc), res.Document)
	assert.Equal(t, OutcomeClean, res.Outcome)
}

func TestNormalizeStripsFences(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"language tagged", "```html\n" + page + "\n```"},
		{"bare", "```\n" + page + "\n```"},
		{"upper case tag", "```HTML\n" + page + "```"},
		{"trailing only", page + "\n```"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Normalize(tt.raw, "")
			assert.NotContains(t, res.Document.String(), "```")
			assert.True(t, IsValid(res.Document.String()))
			assert.Equal(t, OutcomeExtracted, res.Outcome)
		})
	}
}

func TestNormalizeTruncatesProse(t *testing.T) {
	raw := "Here is your page:\n" + page + "\nLet me know if you need changes. </html>"
	res := Normalize(raw, "")
	assert.Equal(t, domain.Document(page), res.Document)
	assert.Equal(t, OutcomeExtracted, res.Outcome)
}

func TestNormalizeMarkersAreCaseInsensitive(t *testing.T) {
	raw := "<!doctype HTML><HTML><body>x</body></HTML>"
	res := Normalize(raw, "")
	assert.Equal(t, domain.Document(raw), res.Document)
}

func TestNormalizeWrapsUnstructuredText(t *testing.T) {
	inputs := []string{
		"Sorry, I cannot help with that.",
		"<div class=\"hero\">Hello</div>",
		"",
		"  spaced out  ",
	}
	for _, raw := range inputs {
		res := Normalize(raw, "")
		doc := res.Document.String()
		assert.Equal(t, OutcomeWrapped, res.Outcome)
		assert.True(t, strings.HasPrefix(doc, "<!DOCTYPE html>"))
		assert.True(t, strings.HasSuffix(doc, "</html>"))
		assert.Contains(t, doc, raw)
		assert.Contains(t, doc, "<title>"+DefaultTitle+"</title>")
		assert.True(t, IsValid(doc))
	}
}

func TestNormalizeRepairsPartialDocumentOnGeneration(t *testing.T) {
	t.Run("missing end marker", func(t *testing.T) {
		res := Normalize("<!DOCTYPE html>\n<html><body><h1>Cut", "")
		require.Equal(t, OutcomeRepaired, res.Outcome)
		assert.True(t, IsValid(res.Document.String()))
		assert.True(t, strings.HasSuffix(res.Document.String(), "</body>\n</html>"))
	})
	t.Run("missing doctype", func(t *testing.T) {
		res := Normalize("Sure!\n<html><body>ok</body></html> trailing", "")
		require.Equal(t, OutcomeRepaired, res.Outcome)
		assert.Equal(t, domain.Document("<!DOCTYPE html>\n<html><body>ok</body></html>"), res.Document)
	})
}

func TestNormalizeFallsBackOnModification(t *testing.T) {
	candidates := []string{
		"<!DOCTYPE html>\n<html><body><h1 style=\"color:blue\">Cats",
		"<html><body>no doctype</body></html>",
		"</html> before <!DOCTYPE html>",
		"I changed the header to blue.",
		"```html\n<!DOCTYPE html><html><body>",
	}
	for _, c := range candidates {
		res := Normalize(c, otherPage)
		assert.Equal(t, domain.Document(otherPage), res.Document, c)
		assert.Equal(t, OutcomeFallback, res.Outcome)
		assert.True(t, res.Degraded())
	}
}

func TestNormalizeModificationAcceptsCompleteDocument(t *testing.T) {
	res := Normalize("```html\n"+page+"\n```", otherPage)
	assert.Equal(t, domain.Document(page), res.Document)
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid(page))
	assert.False(t, IsValid("<html></html>"))
	assert.False(t, IsValid("</html><!DOCTYPE html>"))
	assert.False(t, IsValid("<!DOCTYPE html><html>"))
}

func TestWrapUsesCustomTitle(t *testing.T) {
	n := &Normalizer{Title: "Draft"}
	res := n.Normalize("hello", "")
	assert.Contains(t, res.Document.String(), "<title>Draft</title>")
}

func TestKeepLeavesProducedPagesIntact(t *testing.T) {
	first := Normalize("Close tags with </html> at the end.", "")
	require.Equal(t, OutcomeWrapped, first.Outcome)
	require.True(t, IsValid(first.Document.String()))

	again := New().Keep(first.Document.String(), "")
	assert.Equal(t, first.Document, again.Document)
	assert.Equal(t, OutcomeClean, again.Outcome)
	assert.Contains(t, again.Document.String(), "at the end.")
}

func TestKeepNormalizesFencedAndPartialText(t *testing.T) {
	n := New()

	fenced := n.Keep("```html\n"+page+"\n```", "")
	assert.Equal(t, domain.Document(page), fenced.Document)
	assert.Equal(t, OutcomeExtracted, fenced.Outcome)

	kept := n.Keep("<p>half a page", otherPage)
	assert.Equal(t, domain.Document(otherPage), kept.Document)
	assert.Equal(t, OutcomeFallback, kept.Outcome)
}
