package metadata

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// Document metadata extraction for URLs collected by the parameter stage.
// PDFs are downloaded and inspected locally; authorship and producer
// strings often leak internal usernames and software versions.

var docExtensions = map[string]struct{}{
	".pdf":  {},
	".doc":  {},
	".docx": {},
	".xls":  {},
	".xlsx": {},
	".ppt":  {},
	".pptx": {},
	".odt":  {},
	".rtf":  {},
}

var client = &http.Client{Timeout: 30 * time.Second}

// DocumentURLs keeps the URLs whose path ends in a document extension.
func DocumentURLs(urls []string) []string {
	docs := []string{}
	seen := make(map[string]struct{})
	for _, raw := range urls {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil {
			continue
		}
		ext := strings.ToLower(path.Ext(u.Path))
		if _, ok := docExtensions[ext]; !ok {
			continue
		}
		if _, dup := seen[raw]; dup {
			continue
		}
		seen[raw] = struct{}{}
		docs = append(docs, raw)
	}
	return docs
}

// IsPDF reports whether the URL path names a PDF.
func IsPDF(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(path.Ext(u.Path), ".pdf")
}

// Summarize turns one document URL into a flat metadata line. Non-PDF
// documents are recorded by URL only.
func Summarize(rawURL string) (string, error) {
	if !IsPDF(rawURL) {
		return fmt.Sprintf("%s type=document", rawURL), nil
	}
	body, err := fetch(rawURL)
	if err != nil {
		return "", err
	}
	info, err := pdfInfo(body)
	if err != nil {
		return "", fmt.Errorf("inspect %s: %w", rawURL, err)
	}
	return fmt.Sprintf("%s type=pdf %s", rawURL, info), nil
}

// SummarizeAll processes each document URL, calling admit before every
// download. Failures are skipped; stale links are routine.
func SummarizeAll(urls []string, admit func()) []string {
	lines := []string{}
	for _, u := range DocumentURLs(urls) {
		if admit != nil {
			admit()
		}
		line, err := Summarize(u)
		if err != nil {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

func fetch(rawURL string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "ReconTrail")
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 32<<20))
}

func pdfInfo(body []byte) (string, error) {
	info, err := api.PDFInfo(bytes.NewReader(body), "", nil, false, nil)
	if err != nil {
		return "", err
	}
	parts := []string{fmt.Sprintf("pages=%d", info.PageCount)}
	if v := collapse(info.Title); v != "" {
		parts = append(parts, "title="+v)
	}
	if v := collapse(info.Author); v != "" {
		parts = append(parts, "author="+v)
	}
	if v := collapse(info.Creator); v != "" {
		parts = append(parts, "creator="+v)
	}
	if v := collapse(info.Producer); v != "" {
		parts = append(parts, "producer="+v)
	}
	return strings.Join(parts, " "), nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), "_")
}
