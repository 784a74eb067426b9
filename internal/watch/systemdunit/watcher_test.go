package systemdunit

import (
	"testing"

	"github.com/hawkmirror/hawk/internal/frame"
	"github.com/stretchr/testify/require"
)

func TestParseSpecDefaultsIDToUnit(t *testing.T) {
	sp := ParseSpec("nginx.service")
	require.Equal(t, "nginx.service", sp.Unit)
	require.Equal(t, "nginx.service", sp.ID)
}

func TestParseSpecExplicitID(t *testing.T) {
	sp := ParseSpec("nginx.service,web")
	require.Equal(t, "web", sp.ID)
}

func TestLevelForMapping(t *testing.T) {
	cases := []struct {
		s    snapshot
		want frame.Level
	}{
		{snapshot{LoadState: "not-found"}, frame.LevelFail},
		{snapshot{ActiveState: "failed"}, frame.LevelFail},
		{snapshot{ActiveState: "active", SubState: "failed"}, frame.LevelFail},
		{snapshot{ActiveState: "active"}, frame.LevelOK},
		{snapshot{ActiveState: "activating"}, frame.LevelInfo},
		{snapshot{ActiveState: "reloading"}, frame.LevelInfo},
		{snapshot{ActiveState: "deactivating"}, frame.LevelWarn},
		{snapshot{ActiveState: "inactive"}, frame.LevelWarn},
		{snapshot{ActiveState: "bogus"}, frame.LevelUnknown},
	}
	for _, c := range cases {
		require.Equal(t, c.want, levelFor(c.s))
	}
}

func TestSnapshotFrameMsgFormat(t *testing.T) {
	cfg := Config{Spec: Spec{Unit: "nginx.service", ID: "nginx"}}
	f := snapshotFrame(cfg, snapshot{ActiveState: "active", SubState: "running", LoadState: "loaded"})
	require.Equal(t, "active:running", f.Msg)
	require.Equal(t, "systemd", f.Scope)
	require.Equal(t, "nginx", f.ID)
}
