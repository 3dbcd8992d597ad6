package tools

import (
	"path/filepath"

	"github.com/projectdiscovery/gologger"

	history "github.com/shii9/ReconTrail/internal/History"
	perameter "github.com/shii9/ReconTrail/internal/Perameter"
	project "github.com/shii9/ReconTrail/internal/Project"
	stage "github.com/shii9/ReconTrail/internal/Stage"
	urlcollector "github.com/shii9/ReconTrail/internal/Urls"
)

// runParams collects historical URLs per live host (gau plus the Wayback CDX
// index), deduplicates them with uro or the in-process normalizer, and splits
// the result into params.txt and js.txt.
func runParams(env *stage.Env) error {
	alive, err := requireCanonical(env, "alive.txt", "run the alive stage first")
	if err != nil {
		return err
	}

	seen, err := previousKeys(env, rawParams, history.HostKeys)
	if err != nil {
		return err
	}
	hosts := history.IncrementalTargets(uniqueHosts(alive), seen, nil)
	if len(hosts) == 0 {
		gologger.Info().Msg("params: every host was collected in the previous run")
		if _, err := mergeAndNotify(env, "params.txt", "new_params.txt", "params", nil); err != nil {
			return err
		}
		_, err := mergeAndNotify(env, "js.txt", "new_js.txt", "js", nil)
		return err
	}

	collected := []string{}
	haveGau := env.Exec.Exists("gau")
	if !haveGau {
		gologger.Warning().Msg("gau not installed, using the Wayback CDX index only")
	}
	for _, host := range hosts {
		if haveGau {
			admit(env, "gau")()
			res := env.Exec.Run("gau", []string{host}, env.Config.StageTimeout)
			if res.ExitCode != 0 {
				gologger.Debug().Msgf("gau %s exited %d", host, res.ExitCode)
			} else {
				collected = append(collected, splitLines(res.Stdout)...)
			}
		}
		admit(env, "wayback")()
		urls, err := urlcollector.FromWayback(host, 5000)
		if err != nil {
			gologger.Debug().Msgf("wayback %s: %s", host, err)
			continue
		}
		collected = append(collected, urls...)
	}

	normalized, err := normalizeURLs(env, collected)
	if err != nil {
		return err
	}
	if _, err := appendRaw(env, rawParams, normalized); err != nil {
		return err
	}

	if _, err := mergeAndNotify(env, "params.txt", "new_params.txt", "params", normalized); err != nil {
		return err
	}
	_, err = mergeAndNotify(env, "js.txt", "new_js.txt", "js", perameter.JSURLs(collected))
	return err
}

// normalizeURLs collapses parameter-value noise: uro when installed, the
// in-process signature dedup otherwise.
func normalizeURLs(env *stage.Env, collected []string) ([]string, error) {
	if len(collected) == 0 {
		return nil, nil
	}
	if !env.Exec.Exists("uro") {
		return perameter.Normalize(collected), nil
	}

	in := filepath.Join(env.SnapshotDir, "params_all.txt")
	if err := project.WriteLines(in, collected); err != nil {
		return nil, err
	}
	out := filepath.Join(env.SnapshotDir, "uro_out.txt")
	if _, err := invoke(env, "uro", []string{"-i", in, "-o", out}, env.Config.StageTimeout); err != nil {
		return nil, err
	}
	return project.ReadLines(out)
}
