package perameter

import (
	"net/url"
	"sort"
	"strings"
)

// Normalization of mined URLs, used when uro is not installed. Two URLs that
// differ only in parameter values probe the same surface, so they collapse
// onto one representative: the first seen.

var sensitiveKeys = []string{
	"token", "key", "secret", "passwd", "password", "auth", "api",
	"bearer", "session", "jwt", "access", "private", "client_secret",
}

// HasParams reports whether raw carries a query string worth mining.
func HasParams(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return u.RawQuery != ""
}

// signature is scheme-insensitive: host, path, and the sorted parameter
// names, ignoring values.
func signature(u *url.URL) string {
	names := make([]string, 0, len(u.Query()))
	for name := range u.Query() {
		names = append(names, strings.ToLower(name))
	}
	sort.Strings(names)
	return strings.ToLower(u.Host) + u.Path + "?" + strings.Join(names, "&")
}

// Normalize keeps one representative URL per (host, path, parameter-name)
// signature, in first-seen order. URLs without parameters are kept when they
// end in an extension of interest to downstream stages (.js for secrets);
// everything else is dropped.
func Normalize(urls []string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, raw := range urls {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			continue
		}

		var sig string
		switch {
		case u.RawQuery != "":
			sig = signature(u)
		case strings.HasSuffix(strings.ToLower(u.Path), ".js"):
			sig = strings.ToLower(u.Host) + u.Path
		default:
			continue
		}

		if _, ok := seen[sig]; ok {
			continue
		}
		seen[sig] = struct{}{}
		out = append(out, raw)
	}
	return out
}

// JSURLs returns the JavaScript subset of urls, the input to secret
// extraction.
func JSURLs(urls []string) []string {
	js := []string{}
	for _, u := range urls {
		trimmed := strings.ToLower(strings.TrimSpace(u))
		if i := strings.IndexAny(trimmed, "?#"); i >= 0 {
			trimmed = trimmed[:i]
		}
		if strings.HasSuffix(trimmed, ".js") {
			js = append(js, strings.TrimSpace(u))
		}
	}
	return js
}

// Sensitive reports whether any parameter name in raw hints at credentials.
func Sensitive(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	for name := range u.Query() {
		ln := strings.ToLower(name)
		for _, w := range sensitiveKeys {
			if strings.Contains(ln, w) {
				return true
			}
		}
	}
	return false
}
