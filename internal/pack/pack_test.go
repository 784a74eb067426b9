package pack

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writePack(t *testing.T, root, name, toml string, scripts map[string]string) {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pack.toml"), []byte(toml), 0644))
	for f, content := range scripts {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte(content), 0644))
	}
}

func TestLoadMissingDirIsEmptyNotError(t *testing.T) {
	idx, err := Load(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	require.Empty(t, idx.Packs)
	require.Empty(t, idx.Threads)
}

func TestLoadSkipsDirWithoutManifest(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "notapack"), 0755))
	idx, err := Load(root)
	require.NoError(t, err)
	require.Empty(t, idx.Packs)
}

const basicManifest = `
[pack]
id = "probe"
name = "Probe Pack"
version = "1.0.0"
author = "hawk"

[[thread]]
id = "probe.alpha"
title = "Alpha"
kind = "awk"
file = "alpha.awk"

[[thread.arg]]
name = "threshold"
type = "int"
default = "5"
`

func TestLoadHappyPath(t *testing.T) {
	root := t.TempDir()
	writePack(t, root, "probe-pack", basicManifest, map[string]string{"alpha.awk": "# script\n"})

	idx, err := Load(root)
	require.NoError(t, err)
	require.Len(t, idx.Packs, 1)
	th, ok := idx.ResolveThread("probe.alpha")
	require.True(t, ok)
	require.Equal(t, "awk", th.Kind)
	require.Len(t, th.Args, 1)
	require.Equal(t, "5", DefaultTVars(th)["threshold"])
}

func TestLoadFailsOnDuplicateThreadID(t *testing.T) {
	root := t.TempDir()
	writePack(t, root, "pack-a", basicManifest, map[string]string{"alpha.awk": "#\n"})
	writePack(t, root, "pack-b", basicManifest, map[string]string{"alpha.awk": "#\n"})

	_, err := Load(root)
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate thread id")
}

const absPathManifest = `
[pack]
id = "bad"
name = "Bad"
version = "1.0.0"
author = "hawk"

[[thread]]
id = "bad.one"
title = "One"
kind = "awk"
file = "/etc/passwd"
`

func TestLoadFailsOnAbsolutePath(t *testing.T) {
	root := t.TempDir()
	writePack(t, root, "bad-pack", absPathManifest, nil)
	_, err := Load(root)
	require.Error(t, err)
}

const dotDotManifest = `
[pack]
id = "bad2"
name = "Bad2"
version = "1.0.0"
author = "hawk"

[[thread]]
id = "bad2.one"
title = "One"
kind = "awk"
file = "../escape.awk"
`

func TestLoadFailsOnDotDotPath(t *testing.T) {
	root := t.TempDir()
	writePack(t, root, "bad2-pack", dotDotManifest, nil)
	_, err := Load(root)
	require.Error(t, err)
}

func TestValidateTVarsRejectsUnknownKey(t *testing.T) {
	th := ResolvedThread{Args: []ArgSpec{{Name: "threshold", Type: ArgInt}}}
	err := ValidateTVars(th, map[string]string{"bogus": "1"})
	require.Error(t, err)
}

func TestValidateTVarsAcceptsDeclared(t *testing.T) {
	th := ResolvedThread{Args: []ArgSpec{{Name: "threshold", Type: ArgInt}}}
	err := ValidateTVars(th, map[string]string{"threshold": "42"})
	require.NoError(t, err)
}
