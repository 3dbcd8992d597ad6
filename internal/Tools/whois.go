package tools

import (
	"strings"

	"github.com/projectdiscovery/gologger"

	project "github.com/shii9/ReconTrail/internal/Project"
	stage "github.com/shii9/ReconTrail/internal/Stage"
	whois "github.com/shii9/ReconTrail/internal/Whois"
)

// runWhois summarizes registration data for each registrable domain behind
// the discovered subdomains. A domain already summarized in whois.txt is not
// queried again; registrars throttle aggressively.
func runWhois(env *stage.Env) error {
	subs, err := requireCanonical(env, "subs.txt", "run the subs stage first")
	if err != nil {
		return err
	}

	existing, err := project.ReadLines(project.CanonicalPath(env.ProjectDir, "whois.txt"))
	if err != nil {
		return err
	}
	summarized := make(map[string]struct{}, len(existing))
	for _, line := range existing {
		if domain, _, ok := strings.Cut(line, " "); ok {
			summarized[domain] = struct{}{}
		}
	}

	lines := []string{}
	for _, domain := range whois.RegistrableDomains(subs) {
		if _, ok := summarized[domain]; ok {
			continue
		}
		admit(env, "whois")()
		line, err := whois.SummaryLine(domain)
		if err != nil {
			gologger.Debug().Msgf("whois %s: %s", domain, err)
			continue
		}
		lines = append(lines, line)
	}

	_, err = mergeAndNotify(env, "whois.txt", "new_whois.txt", "whois", lines)
	return err
}
