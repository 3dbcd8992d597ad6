package history

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	project "github.com/shii9/ReconTrail/internal/Project"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func makeSnapshot(t *testing.T, projectDir, name string, files map[string][]string) string {
	t.Helper()
	dir := filepath.Join(projectDir, "history", name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for file, lines := range files {
		require.NoError(t, project.WriteLines(filepath.Join(dir, file), lines))
	}
	return dir
}

func TestPreviousSnapshotSelectsMostRecentWithMarker(t *testing.T) {
	dir := t.TempDir()
	makeSnapshot(t, dir, "2025-05-28", map[string][]string{"httpx_raw.txt": {"a"}})
	want := makeSnapshot(t, dir, "2025-05-30", map[string][]string{"httpx_raw.txt": {"b"}})
	makeSnapshot(t, dir, "2025-05-31", map[string][]string{"other.txt": {"c"}}) // no marker
	makeSnapshot(t, dir, "2025-06-01", map[string][]string{"httpx_raw.txt": {"d"}})

	got, ok, err := PreviousSnapshot(dir, "httpx_raw.txt", day("2025-06-01"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got, "current day excluded, marker required")
}

func TestPreviousSnapshotIgnoresNonDateDirs(t *testing.T) {
	dir := t.TempDir()
	// zzz would win a naive max-string comparison
	makeSnapshot(t, dir, "zzz-not-a-date", map[string][]string{"httpx_raw.txt": {"x"}})
	want := makeSnapshot(t, dir, "2025-05-30", map[string][]string{"httpx_raw.txt": {"y"}})

	got, ok, err := PreviousSnapshot(dir, "httpx_raw.txt", day("2025-06-01"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestPreviousSnapshotFirstRun(t *testing.T) {
	dir := t.TempDir()
	_, ok, err := PreviousSnapshot(dir, "httpx_raw.txt", day("2025-06-01"))
	require.NoError(t, err)
	assert.False(t, ok)

	// A history dir holding only today's snapshot is still a first run.
	makeSnapshot(t, dir, "2025-06-01", map[string][]string{"httpx_raw.txt": {"a"}})
	_, ok, err = PreviousSnapshot(dir, "httpx_raw.txt", day("2025-06-01"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIncrementalTargetsExactSetDifference(t *testing.T) {
	seen := map[string]struct{}{"a.example.com": {}, "b.example.com": {}}
	got := IncrementalTargets(
		[]string{"a.example.com", "c.example.com", "b.example.com", "d.example.com", ""},
		seen, nil)
	assert.Equal(t, []string{"c.example.com", "d.example.com"}, got)
}

func TestIncrementalTargetsFirstRunKeepsEverything(t *testing.T) {
	candidates := []string{"a.example.com", "b.example.com"}
	got := IncrementalTargets(candidates, map[string]struct{}{}, nil)
	assert.Equal(t, candidates, got)
}

func TestIncrementalTargetsWithHostKey(t *testing.T) {
	seen := map[string]struct{}{"a.example.com": {}}
	got := IncrementalTargets(
		[]string{"https://a.example.com/login", "https://b.example.com"},
		seen, NormalizeHost)
	assert.Equal(t, []string{"https://b.example.com"}, got)
}

func TestNormalizeHost(t *testing.T) {
	assert.Equal(t, "a.example.com", NormalizeHost("https://a.example.com/path?q=1"))
	assert.Equal(t, "a.example.com:8443", NormalizeHost("http://a.example.com:8443/"))
	assert.Equal(t, "a.example.com", NormalizeHost("  a.example.com  "))
}

func TestExtractKeysLine(t *testing.T) {
	dir := t.TempDir()
	snap := makeSnapshot(t, dir, "2025-05-30", map[string][]string{
		"httpx_raw.txt": {"https://a.example.com", "https://b.example.com"},
	})
	keys, err := ExtractKeys(snap, "httpx_raw.txt", LineKeys)
	require.NoError(t, err)
	assert.Len(t, keys, 2)
	assert.Contains(t, keys, "https://a.example.com")
}

func TestJSONFieldKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "naabu_raw.txt")
	require.NoError(t, os.WriteFile(path, []byte(
		`{"host":"a.example.com","port":443}
not json
{"host":"b.example.com","port":80}
{"port":8080}
`), 0o644))

	hosts, err := JSONFieldKeys("host")(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.example.com", "b.example.com"}, hosts)

	ports, err := JSONFieldKeys("port")(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"443", "80", "8080"}, ports)
}

func TestNmapXMLHosts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nmap_raw.xml")
	require.NoError(t, os.WriteFile(path, []byte(`<?xml version="1.0"?>
<nmaprun>
  <host>
    <address addr="10.0.0.5" addrtype="ipv4"/>
    <address addr="aa:bb:cc:dd:ee:ff" addrtype="mac"/>
    <hostnames><hostname name="a.example.com" type="user"/></hostnames>
  </host>
  <host>
    <address addr="10.0.0.6" addrtype="ipv4"/>
    <hostnames></hostnames>
  </host>
</nmaprun>`), 0o644))

	hosts, err := NmapXMLHosts(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.5", "a.example.com", "10.0.0.6"}, hosts)
}

func TestNmapXMLHostsMissingFile(t *testing.T) {
	hosts, err := NmapXMLHosts(filepath.Join(t.TempDir(), "nope.xml"))
	require.NoError(t, err)
	assert.Empty(t, hosts)
}

func TestSnapshotSharedWithinOneDay(t *testing.T) {
	dir := t.TempDir()
	first, err := Snapshot(dir, day("2025-06-01"))
	require.NoError(t, err)
	second, err := Snapshot(dir, day("2025-06-01"))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
