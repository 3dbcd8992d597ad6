package dns

import (
	"fmt"
	"net"
	"strings"
	"time"

	mdns "github.com/miekg/dns"
)

// Resolver answers A-record lookups for newly discovered subdomains. It
// queries the system's configured nameserver directly so the OS-level cache
// and search-domain rules never color the results; when resolv.conf is
// unreadable it falls back to the net package.
type Resolver struct {
	server string
	client *mdns.Client
}

// NewResolver picks the first nameserver from /etc/resolv.conf.
func NewResolver() *Resolver {
	r := &Resolver{
		client: &mdns.Client{Timeout: 5 * time.Second},
	}
	if cfg, err := mdns.ClientConfigFromFile("/etc/resolv.conf"); err == nil && len(cfg.Servers) > 0 {
		r.server = net.JoinHostPort(cfg.Servers[0], cfg.Port)
	}
	return r
}

// ResolveA returns the IPv4 addresses of host.
func (r *Resolver) ResolveA(host string) ([]string, error) {
	if r.server == "" {
		return lookupFallback(host)
	}

	m := new(mdns.Msg)
	m.SetQuestion(mdns.Fqdn(host), mdns.TypeA)
	m.RecursionDesired = true

	in, _, err := r.client.Exchange(m, r.server)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", host, err)
	}
	if in.Rcode != mdns.RcodeSuccess {
		return nil, fmt.Errorf("query %s: rcode %s", host, mdns.RcodeToString[in.Rcode])
	}

	ips := []string{}
	for _, rr := range in.Answer {
		if a, ok := rr.(*mdns.A); ok {
			ips = append(ips, a.A.String())
		}
	}
	return ips, nil
}

func lookupFallback(host string) ([]string, error) {
	addrs, err := net.LookupHost(host)
	if err != nil {
		return nil, err
	}
	ips := []string{}
	for _, a := range addrs {
		if ip := net.ParseIP(a); ip != nil && ip.To4() != nil {
			ips = append(ips, a)
		}
	}
	return ips, nil
}

// ResolvePairs resolves every host and returns "host ip" lines, one per
// address, suitable for canonical merging. admit is called before each query
// so the caller's rate limit applies. Hosts that do not resolve are silently
// absent; resolution failure is expected churn, not an error.
func (r *Resolver) ResolvePairs(hosts []string, admit func()) []string {
	pairs := []string{}
	for _, host := range hosts {
		host = strings.TrimSpace(host)
		if host == "" {
			continue
		}
		if admit != nil {
			admit()
		}
		ips, err := r.ResolveA(host)
		if err != nil {
			continue
		}
		for _, ip := range ips {
			pairs = append(pairs, fmt.Sprintf("%s %s", host, ip))
		}
	}
	return pairs
}
