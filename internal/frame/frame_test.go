package frame

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseNoFrame(t *testing.T) {
	cases := []string{"", "   ", "# a comment", "   # indented comment"}
	for _, c := range cases {
		f, err := Parse(c)
		require.NoError(t, err)
		require.Nil(t, f)
	}
}

func TestParseTooFewColumns(t *testing.T) {
	_, err := Parse("a\tb\tc")
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
}

func TestParseEmptyTimestamp(t *testing.T) {
	f, err := Parse("\tHEALTH\tservice\talpha\tok\talive\t")
	require.NoError(t, err)
	require.NotNil(t, f)
	require.True(t, f.Ts.IsZero())
	require.Empty(t, f.KV)
}

func TestParseBadTimestamp(t *testing.T) {
	_, err := Parse("not-a-time\tHEALTH\tservice\talpha\tok\talive\t")
	require.Error(t, err)
}

func TestParseLevelAliases(t *testing.T) {
	cases := map[string]Level{
		"OK": LevelOK, "Warning": LevelWarn, "warn": LevelWarn,
		"Error": LevelFail, "fatal": LevelFail, "FAIL": LevelFail,
		"bogus": LevelUnknown, "": LevelUnknown,
	}
	for raw, want := range cases {
		require.Equal(t, want, ParseLevel(raw), raw)
	}
}

func TestParseKVBareToken(t *testing.T) {
	f, err := Parse("\tHEALTH\tservice\talpha\tok\talive\tpid=123;uptime_s=9;verbose")
	require.NoError(t, err)
	require.Equal(t, "123", f.KV["pid"])
	require.Equal(t, "9", f.KV["uptime_s"])
	require.Equal(t, "true", f.KV["verbose"])
}

func TestRoundTrip(t *testing.T) {
	ts := time.Date(2026, 2, 16, 12, 34, 56, 0, time.UTC)
	f := Frame{
		Ts: ts, Kind: "HEALTH", Scope: "service", ID: "alpha",
		Level: LevelOK, Msg: "alive",
		KV: KV{"pid": "123", "uptime_s": "9"},
	}
	line := EmitTSV(f, ts)
	got, err := Parse(line)
	require.NoError(t, err)
	require.Equal(t, f.Ts, got.Ts)
	require.Equal(t, f.Kind, got.Kind)
	require.Equal(t, f.Scope, got.Scope)
	require.Equal(t, f.ID, got.ID)
	require.Equal(t, f.Level, got.Level)
	require.Equal(t, f.Msg, got.Msg)
	require.Equal(t, f.KV, got.KV)
}

func TestEmitTSVStampsMissingTimestamp(t *testing.T) {
	now := time.Date(2026, 2, 16, 12, 0, 0, 0, time.UTC)
	f := Frame{Kind: "HEALTH", Scope: "service", ID: "a", Level: LevelOK, Msg: "x", KV: KV{}}
	line := EmitTSV(f, now)
	got, err := Parse(line)
	require.NoError(t, err)
	require.Equal(t, now, got.Ts)
}

func TestEmitTSVBareTrueRoundTrips(t *testing.T) {
	f := Frame{Kind: "K", Scope: "s", ID: "i", Level: LevelInfo, Msg: "m", KV: KV{"verbose": "true"}}
	now := time.Now().UTC()
	line := EmitTSV(f, now)
	got, err := Parse(line)
	require.NoError(t, err)
	require.Equal(t, "true", got.KV["verbose"])
}

func TestEmitCompactSixColumns(t *testing.T) {
	f := Frame{Kind: "HEALTH", Scope: "service", ID: "alpha", Level: LevelOK, Msg: "alive"}
	line := EmitCompact(f)
	require.Len(t, splitTabs(line), 6)
}

func splitTabs(s string) []string {
	var out []string
	start := 0
	for i, r := range s {
		if r == '\t' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}

func TestLevelRankOrder(t *testing.T) {
	require.Less(t, LevelFail.Rank(), LevelWarn.Rank())
	require.Less(t, LevelWarn.Rank(), LevelInfo.Rank())
	require.Less(t, LevelInfo.Rank(), LevelOK.Rank())
	require.Less(t, LevelOK.Rank(), LevelUnknown.Rank())
}

func TestClipRaw(t *testing.T) {
	require.Equal(t, "abc", ClipRaw("abc", 10))
	require.Equal(t, "ab...", ClipRaw("abcdef", 2))
}
