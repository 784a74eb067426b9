package bridge

import (
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/hawkmirror/hawk/internal/frame"
	"github.com/stretchr/testify/require"
)

func requireAwk(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("awk"); err != nil {
		t.Skip("awk not found on PATH")
	}
}

func writeScript(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := dir + "/transform.awk"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestBuildArgsOrdersDeterministically(t *testing.T) {
	args := buildArgs("/tmp/script.awk", map[string]string{"b": "2", "a": "1"})
	require.Equal(t, []string{"-v", "a=1", "-v", "b=2", "-f", "/tmp/script.awk"}, args)
}

func TestRunOncePassthrough(t *testing.T) {
	requireAwk(t)
	script := writeScript(t, "{ print }\n")

	now := time.Now().UTC()
	frames := []frame.Frame{
		{Ts: now, Kind: "HEALTH", Scope: "service", ID: "alpha", Level: frame.LevelOK, Msg: "alive", KV: frame.KV{}},
	}
	out, exitErr, err := RunOnce(script, nil, frames, now)
	require.NoError(t, err)
	require.NoError(t, exitErr)
	require.Contains(t, out, "alpha")
}

func TestStartAndBridgeRoundTrip(t *testing.T) {
	requireAwk(t)
	script := writeScript(t, "{ print }\n")

	b, err := Start(script, nil)
	require.NoError(t, err)

	now := time.Now().UTC()
	b.In <- frame.Frame{Ts: now, Kind: "HEALTH", Scope: "service", ID: "alpha", Level: frame.LevelOK, Msg: "alive", KV: frame.KV{}}
	b.Close()

	select {
	case f := <-b.Out:
		require.Equal(t, "alpha", f.ID)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for bridged frame")
	}
}
