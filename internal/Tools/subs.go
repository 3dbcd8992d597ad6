package tools

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/projectdiscovery/gologger"

	project "github.com/shii9/ReconTrail/internal/Project"
	runner "github.com/shii9/ReconTrail/internal/Runner"
	stage "github.com/shii9/ReconTrail/internal/Stage"
	subdomain "github.com/shii9/ReconTrail/internal/Subdomain"
)

// runSubs discovers subdomains for every scope domain in wild.txt: subfinder
// when installed, always backed by in-process certificate-transparency
// sources. Results merge into subs.txt.
func runSubs(env *stage.Env) error {
	wildPath := filepath.Join(env.ProjectDir, "wild.txt")
	scope, err := project.ReadLines(wildPath)
	if err != nil {
		return err
	}
	if len(scope) == 0 {
		return stage.MissingPrecondition("wild.txt", "add wildcard scope domains, one per line")
	}

	candidates := []string{}

	if env.Exec.Exists("subfinder") {
		out := filepath.Join(env.SnapshotDir, rawSubfinder)
		args := []string{
			"-dL", wildPath,
			"-all", "-recursive", "-silent",
			"-rl", strconv.Itoa(env.Config.Tools.SubfinderRL),
			"-o", out,
		}
		admit(env, "subfinder")()
		res := env.Exec.Run("subfinder", args, env.Config.StageTimeout)
		if res.TimedOut() {
			// Merge whatever subfinder flushed before the cutoff.
			if partial, rerr := project.ReadLines(out); rerr == nil && len(partial) > 0 {
				if _, merr := mergeAndNotify(env, "subs.txt", "new_subs.txt", "subs", partial); merr != nil {
					return merr
				}
			}
			return fmt.Errorf("subfinder timed out after %s", env.Config.StageTimeout)
		}
		if res.ExitCode != 0 {
			return fmt.Errorf("subfinder exited %d: %s", res.ExitCode, runner.TruncateStderr(res.Stderr))
		}
		found, err := project.ReadLines(out)
		if err != nil {
			return fmt.Errorf("read subfinder output: %w", err)
		}
		candidates = append(candidates, found...)
	} else {
		gologger.Warning().Msg("subfinder not installed, relying on passive certificate sources")
	}

	for _, domain := range scope {
		domain = strings.TrimPrefix(strings.TrimSpace(domain), "*.")
		if domain == "" {
			continue
		}
		admit(env, "crtsh")()
		candidates = append(candidates, subdomain.FromPassiveSources(domain)...)
	}

	_, err = mergeAndNotify(env, "subs.txt", "new_subs.txt", "subs", candidates)
	return err
}
