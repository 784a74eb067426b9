package viewer

import (
	"testing"

	"github.com/hawkmirror/hawk/internal/frame"
	"github.com/hawkmirror/hawk/internal/pack"
	"github.com/stretchr/testify/require"
)

func TestResolveTransformNone(t *testing.T) {
	tr, err := ResolveTransform("", &pack.Index{Threads: map[string]pack.ResolvedThread{}}, nil)
	require.NoError(t, err)
	require.Equal(t, "none", tr.Kind)

	tr, err = ResolveTransform("none", &pack.Index{Threads: map[string]pack.ResolvedThread{}}, nil)
	require.NoError(t, err)
	require.Equal(t, "none", tr.Kind)
}

func TestResolveTransformFileBypassesPackIndex(t *testing.T) {
	tr, err := ResolveTransform("file:/tmp/whatever.awk", &pack.Index{Threads: map[string]pack.ResolvedThread{}}, map[string]string{"k": "v"})
	require.NoError(t, err)
	require.Equal(t, "file", tr.Kind)
	require.Equal(t, "/tmp/whatever.awk", tr.ScriptPath)
	require.Equal(t, "v", tr.TVars["k"])
}

func TestResolveTransformThreadMergesDefaults(t *testing.T) {
	idx := &pack.Index{Threads: map[string]pack.ResolvedThread{
		"probe.alpha": {
			ID:         "probe.alpha",
			ScriptPath: "/packs/probe/alpha.awk",
			Args:       []pack.ArgSpec{{Name: "threshold", Type: pack.ArgInt, Default: "5"}},
		},
	}}

	tr, err := ResolveTransform("thread:probe.alpha", idx, map[string]string{"threshold": "9"})
	require.NoError(t, err)
	require.Equal(t, "thread", tr.Kind)
	require.Equal(t, "9", tr.TVars["threshold"])
}

func TestResolveTransformUnknownThread(t *testing.T) {
	idx := &pack.Index{Threads: map[string]pack.ResolvedThread{}}
	_, err := ResolveTransform("thread:nope", idx, nil)
	require.Error(t, err)
}

func TestResolveTransformInvalidValue(t *testing.T) {
	idx := &pack.Index{Threads: map[string]pack.ResolvedThread{}}
	_, err := ResolveTransform("bogus", idx, nil)
	require.Error(t, err)
}

func TestMergeTransformStreamsSynthesizesFailFrameOnDiagnostic(t *testing.T) {
	out := make(chan frame.Frame)
	errs := make(chan string, 1)
	errs <- "transform exited: exit status 1"
	close(errs)
	close(out)

	merged := mergeTransformStreams(out, errs)

	f, ok := <-merged
	require.True(t, ok)
	require.Equal(t, frame.LevelFail, f.Level)
	require.Equal(t, "transform", f.ID)

	_, ok = <-merged
	require.False(t, ok)
}
