package tools

import (
	"strings"

	metadata "github.com/shii9/ReconTrail/internal/Metadata"
	project "github.com/shii9/ReconTrail/internal/Project"
	stage "github.com/shii9/ReconTrail/internal/Stage"
)

// runDocs inspects document URLs surfaced by the params stage. Each URL is
// summarized once; PDF metadata lines merge into docs.txt.
func runDocs(env *stage.Env) error {
	params, err := requireCanonical(env, "params.txt", "run the params stage first")
	if err != nil {
		return err
	}

	existing, err := project.ReadLines(project.CanonicalPath(env.ProjectDir, "docs.txt"))
	if err != nil {
		return err
	}
	summarized := make(map[string]struct{}, len(existing))
	for _, line := range existing {
		if u, _, ok := strings.Cut(line, " "); ok {
			summarized[u] = struct{}{}
		}
	}

	fresh := []string{}
	for _, u := range metadata.DocumentURLs(params) {
		if _, ok := summarized[u]; !ok {
			fresh = append(fresh, u)
		}
	}

	lines := metadata.SummarizeAll(fresh, admit(env, "docs"))
	_, err = mergeAndNotify(env, "docs.txt", "new_docs.txt", "docs", lines)
	return err
}
