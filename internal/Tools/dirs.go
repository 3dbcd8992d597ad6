package tools

import (
	"path/filepath"
	"strconv"

	"github.com/projectdiscovery/gologger"

	history "github.com/shii9/ReconTrail/internal/History"
	project "github.com/shii9/ReconTrail/internal/Project"
	stage "github.com/shii9/ReconTrail/internal/Stage"
)

// runDirs brute-forces content paths on live URLs with dirsearch. Hosts that
// yielded findings in the previous run are not re-enumerated; discovered
// paths merge into dirs.txt.
func runDirs(env *stage.Env) error {
	alive, err := requireCanonical(env, "alive.txt", "run the alive stage first")
	if err != nil {
		return err
	}

	seen, err := previousKeys(env, rawDirsearch, history.HostKeys)
	if err != nil {
		return err
	}
	targets := history.IncrementalTargets(alive, seen, history.NormalizeHost)
	if len(targets) == 0 {
		gologger.Info().Msg("dirs: every host was enumerated in the previous run")
		_, err := mergeAndNotify(env, "dirs.txt", "new_dirs.txt", "dirs", nil)
		return err
	}

	targetsPath := filepath.Join(env.SnapshotDir, "dirsearch_targets.txt")
	if err := project.WriteLines(targetsPath, targets); err != nil {
		return err
	}
	rawOut := filepath.Join(env.SnapshotDir, rawDirsearch)

	args := []string{
		"-l", targetsPath,
		"-x", "600,502,439,404,400",
		"-R", "5",
		"--random-agent",
		"-t", strconv.Itoa(env.Config.Tools.Threads),
		"-F", "-q",
		"-o", rawOut,
		"--format", "plain",
	}
	if env.Config.Tools.Wordlist != "" {
		args = append(args, "-w", env.Config.Tools.Wordlist)
	}
	res, invokeErr := invoke(env, "dirsearch", args, env.Config.StageTimeout)
	if invokeErr != nil && !res.TimedOut() {
		return invokeErr
	}

	// On timeout the partial report is still merged.
	found, err := project.ReadLines(rawOut)
	if err != nil {
		return err
	}
	if _, err := mergeAndNotify(env, "dirs.txt", "new_dirs.txt", "dirs", found); err != nil {
		return err
	}
	return invokeErr
}
