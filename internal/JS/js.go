package js

import (
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// Built-in secret extraction over JavaScript bodies, used when SecretFinder
// is not installed. Findings are flat "url kind match" lines so they merge
// into secrets.txt exactly like the external tool's output.

var secretPatterns = []struct {
	kind string
	re   *regexp.Regexp
}{
	{"aws_key", regexp.MustCompile(`AKIA[0-9A-Z]{16}`)},
	{"google_api", regexp.MustCompile(`AIza[0-9A-Za-z\-_]{35}`)},
	{"jwt", regexp.MustCompile(`eyJ[A-Za-z0-9\-_]{10,}\.[A-Za-z0-9\-_]+\.[A-Za-z0-9\-_]+`)},
	{"stripe_pub", regexp.MustCompile(`pk_(?:live|test)_[A-Za-z0-9]{16,}`)},
	{"sentry_dsn", regexp.MustCompile(`https?://[0-9a-fA-F]+@sentry\.io/\d+`)},
	{"slack_webhook", regexp.MustCompile(`https://hooks\.slack\.com/services/T[A-Za-z0-9]+/B[A-Za-z0-9]+/[A-Za-z0-9]+`)},
	{"github_token", regexp.MustCompile(`gh[pousr]_[A-Za-z0-9]{36,}`)},
	{"private_key", regexp.MustCompile(`-----BEGIN (?:RSA |EC |OPENSSH )?PRIVATE KEY-----`)},
}

var client = &http.Client{Timeout: 20 * time.Second}

// ScanBody applies the secret patterns to one JS body. Each distinct match
// produces one "url kind match" line.
func ScanBody(url string, body []byte) []string {
	findings := []string{}
	seen := make(map[string]struct{})
	for _, p := range secretPatterns {
		for _, m := range p.re.FindAllString(string(body), -1) {
			line := fmt.Sprintf("%s %s %s", url, p.kind, m)
			if _, ok := seen[line]; ok {
				continue
			}
			seen[line] = struct{}{}
			findings = append(findings, line)
		}
	}
	return findings
}

// ScanURL downloads one JavaScript URL and scans it. Bodies are capped at
// 8 MiB; minified bundles beyond that rarely hide anything new.
func ScanURL(url string) ([]string, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
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
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, err
	}
	return ScanBody(url, body), nil
}

// ScanURLs scans every JS URL, calling admit before each download. Fetch
// failures skip the URL; a dead bundle is not worth failing the stage.
func ScanURLs(urls []string, admit func()) []string {
	findings := []string{}
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if admit != nil {
			admit()
		}
		found, err := ScanURL(u)
		if err != nil {
			continue
		}
		findings = append(findings, found...)
	}
	return findings
}
