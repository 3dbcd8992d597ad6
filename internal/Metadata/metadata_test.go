package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocumentURLsFiltersByExtension(t *testing.T) {
	urls := []string{
		"https://example.com/report.pdf",
		"https://example.com/report.pdf",
		"https://example.com/archive/q3.docx?download=1",
		"https://example.com/index.html",
		"https://example.com/app.js",
		"",
		"https://example.com/REPORT.PDF",
	}
	docs := DocumentURLs(urls)
	assert.Equal(t, []string{
		"https://example.com/report.pdf",
		"https://example.com/archive/q3.docx?download=1",
		"https://example.com/REPORT.PDF",
	}, docs)
}

func TestIsPDF(t *testing.T) {
	assert.True(t, IsPDF("https://example.com/a/b.pdf"))
	assert.True(t, IsPDF("https://example.com/a/b.PDF?x=1"))
	assert.False(t, IsPDF("https://example.com/a/b.docx"))
	assert.False(t, IsPDF("https://example.com/pdf"))
}

func TestCollapse(t *testing.T) {
	assert.Equal(t, "ACME_Corp", collapse("  ACME   Corp "))
	assert.Equal(t, "", collapse("   "))
}
