package tools

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	project "github.com/shii9/ReconTrail/internal/Project"
	stage "github.com/shii9/ReconTrail/internal/Stage"
)

// runNuclei sweeps the live URLs with nuclei templates. The JSON-lines
// stream is preserved raw in the snapshot; flat "matched-at name" findings
// merge into nuclei.txt.
func runNuclei(env *stage.Env) error {
	alive, err := requireCanonical(env, "alive.txt", "run the alive stage first")
	if err != nil {
		return err
	}

	targetsPath := filepath.Join(env.SnapshotDir, "nuclei_targets.txt")
	if err := project.WriteLines(targetsPath, alive); err != nil {
		return err
	}

	args := []string{
		"-l", targetsPath,
		"-j", "-silent",
		"-c", "70",
		"-rl", "200",
		"-fhr", "-lfa",
		"-es", "info",
	}
	if env.Config.Tools.NucleiTemplates != "" {
		args = append(args, "-t", env.Config.Tools.NucleiTemplates)
	}
	res, invokeErr := invoke(env, "nuclei", args, env.Config.StageTimeout)
	if invokeErr != nil && !res.TimedOut() {
		return invokeErr
	}

	// Findings printed before a timeout are still merged.
	raw := splitLines(res.Stdout)
	if _, err := appendRaw(env, rawNuclei, raw); err != nil {
		return err
	}
	if _, err := mergeAndNotify(env, "nuclei.txt", "new_nuclei.txt", "nuclei", nucleiFindings(raw)); err != nil {
		return err
	}
	return invokeErr
}

// nucleiFindings flattens JSON-lines output into "matched-at template-name"
// records. Undecodable lines are skipped.
func nucleiFindings(lines []string) []string {
	findings := []string{}
	for _, line := range lines {
		var rec struct {
			MatchedAt string `json:"matched-at"`
			Info      struct {
				Name string `json:"name"`
			} `json:"info"`
		}
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			continue
		}
		if rec.MatchedAt == "" {
			continue
		}
		name := strings.Join(strings.Fields(rec.Info.Name), "_")
		if name == "" {
			name = "unnamed"
		}
		findings = append(findings, fmt.Sprintf("%s %s", rec.MatchedAt, name))
	}
	return findings
}
