package tools

import (
	"strings"

	dns "github.com/shii9/ReconTrail/internal/Dns"
	history "github.com/shii9/ReconTrail/internal/History"
	project "github.com/shii9/ReconTrail/internal/Project"
	stage "github.com/shii9/ReconTrail/internal/Stage"
)

// runDNS resolves subdomains to IPv4 addresses. Hosts already carrying an
// address in ips.txt are not queried again; new "host ip" pairs merge in.
func runDNS(env *stage.Env) error {
	subs, err := requireCanonical(env, "subs.txt", "run the subs stage first")
	if err != nil {
		return err
	}

	existing, err := project.ReadLines(project.CanonicalPath(env.ProjectDir, "ips.txt"))
	if err != nil {
		return err
	}
	resolved := make(map[string]struct{}, len(existing))
	for _, line := range existing {
		if host, _, ok := strings.Cut(line, " "); ok {
			resolved[host] = struct{}{}
		}
	}

	targets := history.IncrementalTargets(subs, resolved, nil)
	pairs := dns.NewResolver().ResolvePairs(targets, admit(env, "dns"))

	_, err = mergeAndNotify(env, "ips.txt", "new_ips.txt", "dns", pairs)
	return err
}
