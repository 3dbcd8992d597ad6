package tools

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/projectdiscovery/gologger"

	history "github.com/shii9/ReconTrail/internal/History"
	project "github.com/shii9/ReconTrail/internal/Project"
	runner "github.com/shii9/ReconTrail/internal/Runner"
	stage "github.com/shii9/ReconTrail/internal/Stage"
	webhook "github.com/shii9/ReconTrail/internal/Webhook"
)

// Raw per-run artifacts written into the snapshot. The raw file of a stage
// doubles as the marker its incremental selection keys off next run.
const (
	rawSubfinder   = "subfinder_subs.txt"
	rawHTTPX       = "httpx_raw.txt"
	rawNaabu       = "naabu_raw.txt"
	rawNmapQuick   = "nmap_quick.xml"
	rawNmapIntense = "nmap_intense.xml"
	rawDirsearch   = "dirsearch_raw.txt"
	rawParams      = "params_raw.txt"
	rawNuclei      = "nuclei_raw.jsonl"
)

// admit returns the rate-limit gate for one tool, callable once per request.
func admit(env *stage.Env, tool string) func() {
	return func() {
		if env.Limiter != nil {
			env.Limiter.Wait(tool)
		}
	}
}

// invoke runs one external tool under the shared rate limit and converts its
// failure modes into stage-level errors.
func invoke(env *stage.Env, tool string, args []string, timeout time.Duration) (runner.Result, error) {
	if !env.Exec.Exists(tool) {
		return runner.Result{}, stage.MissingTool(tool)
	}
	admit(env, tool)()
	res := env.Exec.Run(tool, args, timeout)
	switch {
	case res.TimedOut():
		return res, fmt.Errorf("%s timed out after %s", tool, timeout)
	case res.NotFound():
		return res, stage.MissingTool(tool)
	case res.ExitCode != 0:
		return res, fmt.Errorf("%s exited %d: %s", tool, res.ExitCode, runner.TruncateStderr(res.Stderr))
	}
	return res, nil
}

// mergeAndNotify folds candidates into a canonical file, writes the delta into
// the snapshot, and dispatches a webhook event when anything was new.
func mergeAndNotify(env *stage.Env, canonicalFile, deltaFile, artifact string, candidates []string) (project.MergeResult, error) {
	res, err := project.MergeIntoCanonical(env.ProjectDir, canonicalFile, candidates, env.SnapshotDir, deltaFile)
	if err != nil {
		return res, err
	}
	gologger.Info().Msgf("%s: %d new", artifact, res.NewCount)
	env.Notifier.Notify(webhook.Event{
		Artifact:  artifact,
		Project:   env.ProjectName,
		DeltaPath: res.DeltaPath,
		NewCount:  res.NewCount,
	})
	return res, nil
}

// previousKeys loads the incremental key set from the latest prior snapshot
// carrying markerFile. First runs yield an empty set, as does an unreadable
// marker, so the worst case is re-scanning rather than missing targets.
func previousKeys(env *stage.Env, markerFile string, extract history.Extractor) (map[string]struct{}, error) {
	prev, ok, err := history.PreviousSnapshot(env.ProjectDir, markerFile, env.Today)
	if err != nil {
		return nil, err
	}
	if !ok {
		return map[string]struct{}{}, nil
	}
	keys, err := history.ExtractKeys(prev, markerFile, extract)
	if err != nil {
		gologger.Warning().Msgf("previous %s unreadable, rescanning everything: %s", markerFile, err)
		return map[string]struct{}{}, nil
	}
	return keys, nil
}

// requireCanonical loads a canonical file an earlier stage must have produced.
func requireCanonical(env *stage.Env, file, hint string) ([]string, error) {
	lines, err := project.ReadLines(project.CanonicalPath(env.ProjectDir, file))
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, stage.MissingPrecondition(file, hint)
	}
	return lines, nil
}

// appendRaw records tool output in the snapshot. Same-day reruns append so
// the marker keeps every host probed that day.
func appendRaw(env *stage.Env, name string, lines []string) (string, error) {
	p := filepath.Join(env.SnapshotDir, name)
	return p, project.AppendLines(p, lines)
}

func splitLines(s string) []string {
	out := []string{}
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// uniqueHosts reduces URL-ish lines to their distinct bare hosts, dropping
// any :port suffix, in first-seen order.
func uniqueHosts(lines []string) []string {
	hosts := []string{}
	seen := make(map[string]struct{})
	for _, line := range lines {
		h := history.NormalizeHost(line)
		if i := strings.Index(h, ":"); i >= 0 {
			h = h[:i]
		}
		if h == "" {
			continue
		}
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		hosts = append(hosts, h)
	}
	return hosts
}
