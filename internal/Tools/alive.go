package tools

import (
	"path/filepath"
	"strconv"

	"github.com/projectdiscovery/gologger"

	history "github.com/shii9/ReconTrail/internal/History"
	project "github.com/shii9/ReconTrail/internal/Project"
	stage "github.com/shii9/ReconTrail/internal/Stage"
)

// runAlive probes subdomains with httpx on the configured web ports. Only
// hosts absent from the previous run's raw probe record are probed again;
// live URLs merge into alive.txt.
func runAlive(env *stage.Env) error {
	subs, err := requireCanonical(env, "subs.txt", "run the subs stage first")
	if err != nil {
		return err
	}

	seen, err := previousKeys(env, rawHTTPX, history.HostKeys)
	if err != nil {
		return err
	}
	targets := history.IncrementalTargets(subs, seen, nil)
	if len(targets) == 0 {
		gologger.Info().Msg("alive: every host was probed in the previous run")
		_, err := mergeAndNotify(env, "alive.txt", "new_alive.txt", "alive", nil)
		return err
	}

	targetsPath := filepath.Join(env.SnapshotDir, "httpx_targets.txt")
	if err := project.WriteLines(targetsPath, targets); err != nil {
		return err
	}

	args := []string{
		"-l", targetsPath,
		"-ports", env.Config.Tools.HTTPXPorts,
		"-threads", strconv.Itoa(env.Config.Tools.Threads),
		"-silent",
	}
	res, invokeErr := invoke(env, "httpx-toolkit", args, env.Config.StageTimeout)
	if invokeErr != nil && !res.TimedOut() {
		return invokeErr
	}

	// A timed-out probe still merges whatever it managed to print.
	liveURLs := splitLines(res.Stdout)
	if _, err := appendRaw(env, rawHTTPX, liveURLs); err != nil {
		return err
	}
	if _, err := mergeAndNotify(env, "alive.txt", "new_alive.txt", "alive", liveURLs); err != nil {
		return err
	}
	return invokeErr
}
