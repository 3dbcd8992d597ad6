package subdomain

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/projectdiscovery/gologger"
)

// Passive certificate-transparency and OSINT sources. These supplement the
// subfinder run: nothing here probes the target itself, so no admission
// against the shared limiter is needed.

var client = &http.Client{Timeout: 30 * time.Second}

func fetchURL(url string) ([]byte, error) {
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
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 16<<20))
}

func fromCrtSh(domain string) []string {
	body, err := fetchURL(fmt.Sprintf("https://crt.sh/?q=%%25.%s&output=json", domain))
	if err != nil {
		return nil
	}
	var data []map[string]interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		return nil
	}
	results := []string{}
	for _, entry := range data {
		if name, ok := entry["name_value"].(string); ok {
			for _, sub := range strings.Split(name, "\n") {
				sub = strings.TrimPrefix(strings.TrimSpace(sub), "*.")
				if sub != "" && !strings.ContainsAny(sub, " /") {
					results = append(results, sub)
				}
			}
		}
	}
	return results
}

func fromHackerTarget(domain string) []string {
	body, err := fetchURL(fmt.Sprintf("https://api.hackertarget.com/hostsearch/?q=%s", domain))
	if err != nil {
		return nil
	}
	subs := []string{}
	for _, line := range strings.Split(string(body), "\n") {
		parts := strings.Split(line, ",")
		if len(parts) > 0 && strings.Contains(parts[0], ".") {
			subs = append(subs, strings.TrimSpace(parts[0]))
		}
	}
	return subs
}

func fromCertSpotter(domain string) []string {
	body, err := fetchURL(fmt.Sprintf("https://api.certspotter.com/v1/issuances?domain=%s&include_subdomains=true&expand=dns_names", domain))
	if err != nil {
		return nil
	}
	var data []map[string]interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		return nil
	}
	results := []string{}
	for _, entry := range data {
		if dnsNames, ok := entry["dns_names"].([]interface{}); ok {
			for _, d := range dnsNames {
				if s, ok := d.(string); ok {
					results = append(results, strings.TrimPrefix(strings.TrimSpace(s), "*."))
				}
			}
		}
	}
	return results
}

func fromAnubis(domain string) []string {
	body, err := fetchURL(fmt.Sprintf("https://jldc.me/anubis/subdomains/%s", domain))
	if err != nil {
		return nil
	}
	var subs []string
	if err := json.Unmarshal(body, &subs); err != nil {
		return nil
	}
	return subs
}

func unique(slice []string, suffix string) []string {
	seen := make(map[string]struct{})
	uniqueList := []string{}
	for _, item := range slice {
		item = strings.ToLower(strings.TrimSpace(item))
		if item == "" || !strings.HasSuffix(item, suffix) {
			continue
		}
		if _, ok := seen[item]; !ok {
			seen[item] = struct{}{}
			uniqueList = append(uniqueList, item)
		}
	}
	return uniqueList
}

// FromPassiveSources queries all passive sources and returns unique
// subdomains of domain in first-seen order.
func FromPassiveSources(domain string) []string {
	sources := []struct {
		name  string
		fetch func(string) []string
	}{
		{"crt.sh", fromCrtSh},
		{"hackertarget", fromHackerTarget},
		{"certspotter", fromCertSpotter},
		{"anubis", fromAnubis},
	}

	all := []string{}
	for _, src := range sources {
		found := src.fetch(domain)
		gologger.Debug().Msgf("passive source %s: %d names for %s", src.name, len(found), domain)
		all = append(all, found...)
	}
	return unique(all, strings.ToLower(strings.TrimSpace(domain)))
}
