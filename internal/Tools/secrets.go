package tools

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/projectdiscovery/gologger"

	js "github.com/shii9/ReconTrail/internal/JS"
	project "github.com/shii9/ReconTrail/internal/Project"
	stage "github.com/shii9/ReconTrail/internal/Stage"
)

// runSecrets scans JavaScript URLs for leaked credentials. The same-day
// new_js.txt delta is preferred so only freshly discovered bundles are
// scanned; SecretFinder when configured, the in-process regex scan otherwise.
func runSecrets(env *stage.Env) error {
	var targets []string
	deltaPath := filepath.Join(env.SnapshotDir, "new_js.txt")
	if _, statErr := os.Stat(deltaPath); statErr == nil {
		var err error
		targets, err = project.ReadLines(deltaPath)
		if err != nil {
			return err
		}
	} else {
		var err error
		targets, err = requireCanonical(env, "js.txt", "run the params stage first")
		if err != nil {
			return err
		}
	}

	findings := []string{}
	sf := env.Config.Tools.SecretFinder
	if sf != "" && env.Exec.Exists("python3") {
		for _, u := range targets {
			admit(env, "secretfinder")()
			res := env.Exec.Run("python3", []string{sf, "-i", u, "-o", "cli"}, env.Config.StageTimeout)
			if res.ExitCode != 0 {
				gologger.Debug().Msgf("secretfinder %s exited %d", u, res.ExitCode)
				continue
			}
			for _, line := range splitLines(res.Stdout) {
				findings = append(findings, fmt.Sprintf("%s %s", u, line))
			}
		}
	} else {
		gologger.Info().Msg("SecretFinder not configured, scanning JavaScript in-process")
		findings = js.ScanURLs(targets, admit(env, "secrets"))
	}

	_, err := mergeAndNotify(env, "secrets.txt", "new_secrets.txt", "secrets", findings)
	return err
}
