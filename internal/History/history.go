package history

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	project "github.com/shii9/ReconTrail/internal/Project"
)

// Snapshots are per-day directories under <project>/history. Several runs on
// the same day share one snapshot and append into it. Selection of the
// "previous" snapshot parses directory names as dates and compares
// timestamps; a directory that is not a date is ignored rather than trusted
// to sort correctly as a string.

const dayLayout = "2006-01-02"

// Snapshot creates (if needed) and returns the snapshot directory for day.
func Snapshot(projectDir string, day time.Time) (string, error) {
	path := filepath.Join(projectDir, "history", day.Format(dayLayout))
	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}
	return path, nil
}

// PreviousSnapshot returns the most recent snapshot before today that
// contains markerFile, or ok=false when this is effectively the first run.
// Ties cannot occur: same-day reruns append into one directory.
func PreviousSnapshot(projectDir, markerFile string, today time.Time) (string, bool, error) {
	entries, err := os.ReadDir(filepath.Join(projectDir, "history"))
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("list history: %w", err)
	}

	cutoff := today.Truncate(24 * time.Hour)
	var best time.Time
	var bestDir string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		day, err := time.Parse(dayLayout, e.Name())
		if err != nil {
			continue
		}
		if !day.Before(cutoff) {
			continue
		}
		marker := filepath.Join(projectDir, "history", e.Name(), markerFile)
		if _, err := os.Stat(marker); err != nil {
			continue
		}
		if bestDir == "" || day.After(best) {
			best = day
			bestDir = filepath.Join(projectDir, "history", e.Name())
		}
	}
	if bestDir == "" {
		return "", false, nil
	}
	return bestDir, true, nil
}

// An Extractor turns one raw artifact file into the keys it accounts for.
// Each stage picks the extractor matching its tool's output format.
type Extractor func(path string) ([]string, error)

// ExtractKeys runs extract over markerFile inside snapshotDir and returns the
// key set.
func ExtractKeys(snapshotDir, markerFile string, extract Extractor) (map[string]struct{}, error) {
	keys, err := extract(filepath.Join(snapshotDir, markerFile))
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k != "" {
			set[k] = struct{}{}
		}
	}
	return set, nil
}

// IncrementalTargets returns the candidates whose key is not in seen,
// preserving candidate order. With no previous run (empty seen) every
// candidate is a target. keyOf may be nil when the candidate is its own key.
func IncrementalTargets(candidates []string, seen map[string]struct{}, keyOf func(string) string) []string {
	targets := []string{}
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		key := c
		if keyOf != nil {
			key = keyOf(c)
		}
		if _, ok := seen[key]; ok {
			continue
		}
		targets = append(targets, c)
	}
	return targets
}

// NormalizeHost strips the scheme and any path from a URL-ish line, leaving
// the bare host[:port]. Used as the shared incremental key for stages that
// track hosts rather than full URLs.
func NormalizeHost(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	if i := strings.Index(s, "/"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// ---------- extractors ----------

// LineKeys reads a plain line-per-record file. A missing file yields no keys.
func LineKeys(path string) ([]string, error) {
	return project.ReadLines(path)
}

// HostKeys reads a line-per-record file of URLs and reduces each to its host.
func HostKeys(path string) ([]string, error) {
	lines, err := project.ReadLines(path)
	if err != nil {
		return nil, err
	}
	hosts := make([]string, 0, len(lines))
	for _, line := range lines {
		if h := NormalizeHost(line); h != "" {
			hosts = append(hosts, h)
		}
	}
	return hosts, nil
}

// JSONFieldKeys reads a JSON-lines file and extracts one string field per
// record. Records that fail to decode or lack the field are skipped.
func JSONFieldKeys(field string) Extractor {
	return func(path string) ([]string, error) {
		lines, err := project.ReadLines(path)
		if err != nil {
			return nil, err
		}
		keys := []string{}
		for _, line := range lines {
			var record map[string]interface{}
			if err := json.Unmarshal([]byte(line), &record); err != nil {
				continue
			}
			switch v := record[field].(type) {
			case string:
				keys = append(keys, v)
			case float64:
				keys = append(keys, fmt.Sprintf("%.0f", v))
			}
		}
		return keys, nil
	}
}

type nmapRun struct {
	Hosts []struct {
		Addresses []struct {
			Addr     string `xml:"addr,attr"`
			AddrType string `xml:"addrtype,attr"`
		} `xml:"address"`
		Hostnames []struct {
			Name string `xml:"name,attr"`
		} `xml:"hostnames>hostname"`
	} `xml:"host"`
}

// NmapXMLHosts extracts the scanned addresses and hostnames from an nmap XML
// report. A missing file yields no keys; a malformed one yields an error so
// the caller can fall back to a full scan.
func NmapXMLHosts(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var run nmapRun
	if err := xml.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("parse nmap xml: %w", err)
	}

	hosts := []string{}
	for _, h := range run.Hosts {
		for _, a := range h.Addresses {
			if a.AddrType == "ipv4" && a.Addr != "" {
				hosts = append(hosts, a.Addr)
			}
		}
		for _, n := range h.Hostnames {
			if n.Name != "" {
				hosts = append(hosts, n.Name)
			}
		}
	}
	return hosts, nil
}
