package tools

import (
	stage "github.com/shii9/ReconTrail/internal/Stage"
)

// Registry returns every pipeline stage in dependency order. Plan resolution
// preserves this order no matter how the stages were selected.
func Registry() []stage.Stage {
	return []stage.Stage{
		{Name: stage.Subs, Run: runSubs},
		{Name: stage.Alive, Run: runAlive},
		{Name: stage.DNS, Run: runDNS},
		{Name: stage.Whois, Run: runWhois},
		{Name: stage.Ports, Run: runPorts},
		{Name: stage.Dirs, Run: runDirs},
		{Name: stage.Params, Run: runParams},
		{Name: stage.Secrets, Run: runSecrets},
		{Name: stage.Docs, Run: runDocs},
		{Name: stage.Nuclei, Run: runNuclei},
		{Name: stage.Screens, Run: runScreens},
	}
}
