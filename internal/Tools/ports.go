package tools

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/projectdiscovery/gologger"

	history "github.com/shii9/ReconTrail/internal/History"
	ports "github.com/shii9/ReconTrail/internal/Ports"
	project "github.com/shii9/ReconTrail/internal/Project"
	runner "github.com/shii9/ReconTrail/internal/Runner"
	stage "github.com/shii9/ReconTrail/internal/Stage"
)

// Quick-pass ports for service detection. Only hosts answering on one of
// these get the intense -sV -sC pass.
const quickPorts = "8080,8443,8888,8000,8081"

// runPorts scans the live hosts in two layers: naabu for open-port discovery
// (ports.txt) and a two-pass nmap for service identification (services.txt).
// Hosts present in the previous run's quick-scan report are skipped.
func runPorts(env *stage.Env) error {
	alive, err := requireCanonical(env, "alive.txt", "run the alive stage first")
	if err != nil {
		return err
	}

	seen, err := previousKeys(env, rawNmapQuick, history.NmapXMLHosts)
	if err != nil {
		return err
	}
	targets := history.IncrementalTargets(uniqueHosts(alive), seen, nil)
	if len(targets) == 0 {
		gologger.Info().Msg("ports: every host was scanned in the previous run")
		if _, err := mergeAndNotify(env, "ports.txt", "new_ports.txt", "ports", nil); err != nil {
			return err
		}
		_, err := mergeAndNotify(env, "services.txt", "new_services.txt", "services", nil)
		return err
	}

	hostsPath := filepath.Join(env.SnapshotDir, "naabu_targets.txt")
	if err := project.WriteLines(hostsPath, targets); err != nil {
		return err
	}

	portLines, discoverErr := discoverPorts(env, targets, hostsPath)
	if discoverErr != nil && len(portLines) == 0 {
		return discoverErr
	}
	if _, err := mergeAndNotify(env, "ports.txt", "new_ports.txt", "ports", portLines); err != nil {
		return err
	}
	if discoverErr != nil {
		return discoverErr
	}

	services, err := nmapTwoPass(env, hostsPath)
	if err != nil {
		return err
	}
	_, err = mergeAndNotify(env, "services.txt", "new_services.txt", "services", services)
	return err
}

// discoverPorts finds open ports per host: naabu when installed, the
// built-in connect scan otherwise.
func discoverPorts(env *stage.Env, targets []string, hostsPath string) ([]string, error) {
	if env.Exec.Exists("naabu") {
		res, invokeErr := invoke(env, "naabu", []string{"-list", hostsPath, "-json", "-silent"}, env.Config.StageTimeout)
		if invokeErr != nil && !res.TimedOut() {
			return nil, invokeErr
		}
		// Ports printed before a timeout still count.
		rawJSON := splitLines(res.Stdout)
		if _, err := appendRaw(env, rawNaabu, rawJSON); err != nil {
			return nil, err
		}
		return naabuPorts(rawJSON), invokeErr
	}

	gologger.Warning().Msg("naabu not installed, falling back to the built-in connect scan")
	lines := []string{}
	for _, host := range targets {
		open := ports.Open(host, 2*time.Second, admit(env, "portscan"))
		lines = append(lines, ports.Lines(host, open)...)
	}
	if _, err := appendRaw(env, rawNaabu, lines); err != nil {
		return nil, err
	}
	return lines, nil
}

// naabuPorts converts naabu JSON lines into "host:port" entries. Undecodable
// lines are skipped.
func naabuPorts(lines []string) []string {
	entries := []string{}
	for _, line := range lines {
		var rec struct {
			Host string `json:"host"`
			IP   string `json:"ip"`
			Port int    `json:"port"`
		}
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			continue
		}
		host := rec.Host
		if host == "" {
			host = rec.IP
		}
		if host == "" || rec.Port == 0 {
			continue
		}
		entries = append(entries, fmt.Sprintf("%s:%d", host, rec.Port))
	}
	return entries
}

// nmapTwoPass keeps the expensive scripted scan off dead hosts: a quick -T4
// probe of the interesting ports first, then -sV -sC only against responders.
func nmapTwoPass(env *stage.Env, hostsPath string) ([]string, error) {
	if !env.Exec.Exists("nmap") {
		gologger.Warning().Msg("nmap not installed, skipping service detection")
		return nil, nil
	}

	quickOut := filepath.Join(env.SnapshotDir, rawNmapQuick)
	admit(env, "nmap")()
	res := env.Exec.Run("nmap", []string{"-T4", "-p", quickPorts, "-iL", hostsPath, "-oX", quickOut}, env.Config.StageTimeout)
	if res.TimedOut() {
		return nil, fmt.Errorf("nmap quick pass timed out after %s", env.Config.StageTimeout)
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("nmap quick pass exited %d: %s", res.ExitCode, runner.TruncateStderr(res.Stderr))
	}

	responders, err := history.NmapXMLHosts(quickOut)
	if err != nil {
		return nil, err
	}
	if len(responders) == 0 {
		return nil, nil
	}

	respPath := filepath.Join(env.SnapshotDir, "nmap_responders.txt")
	if err := project.WriteLines(respPath, responders); err != nil {
		return nil, err
	}

	intenseOut := filepath.Join(env.SnapshotDir, rawNmapIntense)
	admit(env, "nmap")()
	res = env.Exec.Run("nmap", []string{"-sV", "-sC", "-p", quickPorts, "-iL", respPath, "-oX", intenseOut}, env.Config.StageTimeout)
	if res.TimedOut() {
		return nil, fmt.Errorf("nmap intense pass timed out after %s", env.Config.StageTimeout)
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("nmap intense pass exited %d: %s", res.ExitCode, runner.TruncateStderr(res.Stderr))
	}

	return nmapServices(intenseOut)
}

type nmapServiceRun struct {
	Hosts []struct {
		Addresses []struct {
			Addr     string `xml:"addr,attr"`
			AddrType string `xml:"addrtype,attr"`
		} `xml:"address"`
		Ports []struct {
			Protocol string `xml:"protocol,attr"`
			PortID   int    `xml:"portid,attr"`
			State    struct {
				State string `xml:"state,attr"`
			} `xml:"state"`
			Service struct {
				Name    string `xml:"name,attr"`
				Product string `xml:"product,attr"`
				Version string `xml:"version,attr"`
			} `xml:"service"`
		} `xml:"ports>port"`
	} `xml:"host"`
}

// nmapServices flattens an -sV report into "host port/proto service product
// version" lines for open ports.
func nmapServices(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var run nmapServiceRun
	if err := xml.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("parse nmap service xml: %w", err)
	}

	lines := []string{}
	for _, h := range run.Hosts {
		addr := ""
		for _, a := range h.Addresses {
			if a.AddrType == "ipv4" {
				addr = a.Addr
				break
			}
		}
		if addr == "" {
			continue
		}
		for _, p := range h.Ports {
			if p.State.State != "open" {
				continue
			}
			parts := []string{addr, fmt.Sprintf("%d/%s", p.PortID, p.Protocol), p.Service.Name}
			if p.Service.Product != "" {
				parts = append(parts, p.Service.Product)
			}
			if p.Service.Version != "" {
				parts = append(parts, p.Service.Version)
			}
			lines = append(lines, strings.Join(parts, " "))
		}
	}
	return lines, nil
}
