package pack

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatchDirReloadsOnNewPack(t *testing.T) {
	root := t.TempDir()

	reloaded := make(chan *Index, 4)
	w, err := WatchDir(root, func(idx *Index) { reloaded <- idx })
	require.NoError(t, err)
	defer w.Close()

	writePack(t, root, "probe-pack", basicManifest, map[string]string{"alpha.awk": "# script\n"})

	select {
	case idx := <-reloaded:
		_, ok := idx.ResolveThread("probe.alpha")
		require.True(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reload after pack creation")
	}
}

func TestWatchDirMissingDirDoesNotError(t *testing.T) {
	root := t.TempDir()
	w, err := WatchDir(filepath.Join(root, "nope"), func(*Index) {})
	require.NoError(t, err)
	defer w.Close()
}

func TestWatchDirReloadsOnManifestEdit(t *testing.T) {
	root := t.TempDir()
	writePack(t, root, "probe-pack", basicManifest, map[string]string{"alpha.awk": "# script\n"})

	reloaded := make(chan *Index, 4)
	w, err := WatchDir(root, func(idx *Index) { reloaded <- idx })
	require.NoError(t, err)
	defer w.Close()

	manifestPath := filepath.Join(root, "probe-pack", "pack.toml")
	require.NoError(t, os.WriteFile(manifestPath, []byte(basicManifest), 0644))

	select {
	case <-reloaded:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reload after manifest edit")
	}
}
