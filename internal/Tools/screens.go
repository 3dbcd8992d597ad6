package tools

import (
	"fmt"
	"path/filepath"

	project "github.com/shii9/ReconTrail/internal/Project"
	stage "github.com/shii9/ReconTrail/internal/Stage"
)

// runScreens captures screenshots of the live URLs with eyewitness. Images
// stay inside the snapshot; only a summary line is persisted, screenshots
// have no useful canonical merge.
func runScreens(env *stage.Env) error {
	alive, err := requireCanonical(env, "alive.txt", "run the alive stage first")
	if err != nil {
		return err
	}

	targetsPath := filepath.Join(env.SnapshotDir, "eyewitness_targets.txt")
	if err := project.WriteLines(targetsPath, alive); err != nil {
		return err
	}
	outDir := filepath.Join(env.SnapshotDir, "screens")

	args := []string{"--web", "-f", targetsPath, "-d", outDir, "--no-prompt"}
	if _, err := invoke(env, "eyewitness", args, env.Config.StageTimeout); err != nil {
		return err
	}

	captured, _ := filepath.Glob(filepath.Join(outDir, "screens", "*.png"))
	summary := fmt.Sprintf("%d screenshots of %d targets under %s", len(captured), len(alive), outDir)
	return project.WriteLines(filepath.Join(env.SnapshotDir, "screenshots_summary.txt"), []string{summary})
}
