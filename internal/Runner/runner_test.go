package runner

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRunCapturesOutputAndExitCode(t *testing.T) {
	var local Local

	res := local.Run("sh", []string{"-c", "echo out; echo err >&2; exit 3"}, 10*time.Second)
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "out\n", res.Stdout)
	assert.Equal(t, "err\n", res.Stderr)

	res = local.Run("sh", []string{"-c", "true"}, 10*time.Second)
	assert.Zero(t, res.ExitCode)
}

func TestRunMissingBinary(t *testing.T) {
	var local Local
	res := local.Run("definitely-not-a-real-binary-xyz", nil, 5*time.Second)
	assert.Equal(t, ExitNotFound, res.ExitCode)
	assert.True(t, res.NotFound())
}

func TestRunTimeout(t *testing.T) {
	var local Local
	res := local.Run("sleep", []string{"5"}, 100*time.Millisecond)
	assert.Equal(t, ExitTimeout, res.ExitCode)
	assert.True(t, res.TimedOut())
}

func TestExists(t *testing.T) {
	var local Local
	assert.True(t, local.Exists("sh"))
	assert.False(t, local.Exists("definitely-not-a-real-binary-xyz"))
}

func TestTruncateStderr(t *testing.T) {
	long := strings.Repeat("x", 5000)
	assert.Len(t, TruncateStderr(long), 2000)
	assert.Equal(t, "short", TruncateStderr("  short \n"))
}
