package whois

import (
	"fmt"
	"sort"
	"strings"

	whois "github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"
	"golang.org/x/net/publicsuffix"
)

// Registration data for the registrable domains behind discovered
// subdomains. One flat summary line per domain keeps the canonical file
// line-oriented like every other artifact.

// RegistrableDomain reduces a host to its eTLD+1 ("a.b.example.co.uk" ->
// "example.co.uk"). IP addresses and unlisted suffixes come back empty.
func RegistrableDomain(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" {
		return ""
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return ""
	}
	return domain
}

// RegistrableDomains maps hosts to their unique registrable domains in
// first-seen order.
func RegistrableDomains(hosts []string) []string {
	seen := make(map[string]struct{})
	domains := []string{}
	for _, h := range hosts {
		d := RegistrableDomain(h)
		if d == "" {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		domains = append(domains, d)
	}
	return domains
}

// SummaryLine performs a whois lookup for domain and condenses the parsed
// record into one line: registrar, creation/expiry dates and nameservers.
func SummaryLine(domain string) (string, error) {
	raw, err := whois.Whois(domain)
	if err != nil {
		return "", fmt.Errorf("whois %s: %w", domain, err)
	}

	parsed, err := whoisparser.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse whois %s: %w", domain, err)
	}

	fields := []string{domain}
	if parsed.Registrar != nil && parsed.Registrar.Name != "" {
		fields = append(fields, "registrar="+collapse(parsed.Registrar.Name))
	}
	if parsed.Domain != nil {
		if parsed.Domain.CreatedDate != "" {
			fields = append(fields, "created="+parsed.Domain.CreatedDate)
		}
		if parsed.Domain.ExpirationDate != "" {
			fields = append(fields, "expires="+parsed.Domain.ExpirationDate)
		}
		if len(parsed.Domain.NameServers) > 0 {
			ns := append([]string(nil), parsed.Domain.NameServers...)
			sort.Strings(ns)
			fields = append(fields, "ns="+strings.Join(ns, ","))
		}
	}
	return strings.Join(fields, " "), nil
}

// collapse squeezes whitespace out of a free-text field so the summary stays
// a single token-separated line.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), "_")
}
