package urlcollector

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Historical URL collection from the Wayback Machine CDX API. Like the
// passive subdomain sources this never touches the target, so it runs
// alongside gau without admission control and its output merges into the
// same candidate batch.

var client = &http.Client{Timeout: 60 * time.Second}

// FromWayback returns up to limit archived URLs for host from the last two
// years of captures, deduplicated by urlkey on the server side.
func FromWayback(host string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 1000
	}
	year := time.Now().Year()
	cdxURL := fmt.Sprintf(
		"https://web.archive.org/cdx/search/cdx?url=%s%%2F*&output=json&collapse=urlkey&fl=original&filter=statuscode:200&limit=%d&from=%d&to=%d",
		url.QueryEscape(host), limit, year-2, year,
	)

	resp, err := client.Get(cdxURL)
	if err != nil {
		return nil, fmt.Errorf("wayback cdx: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wayback cdx: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, err
	}

	var rows [][]string
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("wayback cdx: %w", err)
	}

	// First row is the field header.
	urls := []string{}
	for i := 1; i < len(rows); i++ {
		if len(rows[i]) == 0 {
			continue
		}
		raw := rows[i][0]
		if decoded, err := url.QueryUnescape(raw); err == nil {
			raw = decoded
		}
		if strings.HasPrefix(raw, "http") {
			urls = append(urls, raw)
		}
	}
	return urls, nil
}
