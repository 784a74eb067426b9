package frame

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// KV is a string-keyed, string-valued trailer attached to a frame.
type KV map[string]string

// Frame is the in-memory representation of a single HawkFrame wire record.
type Frame struct {
	Ts    time.Time // zero value means "no timestamp supplied"
	Kind  string
	Scope string
	ID    string
	Level Level
	Msg   string
	KV    KV
}

// Key returns the liveness key "scope:id" for f.
func (f Frame) Key() string {
	return f.Scope + ":" + f.ID
}

// HasTs reports whether f carries an explicit timestamp.
func (f Frame) HasTs() bool {
	return !f.Ts.IsZero()
}

// ParseError describes why a line failed to decode as a Frame.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string { return e.Reason }

func tooFewColumns(found int) *ParseError {
	return &ParseError{Reason: fmt.Sprintf("too few columns: found %d, want at least 7", found)}
}

func badTimestamp(raw string) *ParseError {
	return &ParseError{Reason: fmt.Sprintf("bad timestamp: %q", raw)}
}

// Parse decodes a single wire line into a Frame. A nil Frame and nil error
// together mean "no frame" — the line was blank or a comment, not a failure.
func Parse(line string) (*Frame, error) {
	trimmed := strings.TrimRight(line, "\r\n")
	stripped := strings.TrimSpace(trimmed)
	if stripped == "" {
		return nil, nil
	}
	if strings.HasPrefix(stripped, "#") {
		return nil, nil
	}

	cols := strings.Split(trimmed, "\t")
	if len(cols) < 7 {
		return nil, tooFewColumns(len(cols))
	}

	var f Frame

	tsRaw := strings.TrimSpace(cols[0])
	if tsRaw != "" {
		ts, err := time.Parse(time.RFC3339, tsRaw)
		if err != nil {
			return nil, badTimestamp(tsRaw)
		}
		f.Ts = ts
	}

	f.Kind = strings.TrimSpace(cols[1])
	f.Scope = strings.TrimSpace(cols[2])
	f.ID = strings.TrimSpace(cols[3])
	f.Level = ParseLevel(cols[4])
	f.Msg = strings.TrimSpace(cols[5])
	f.KV = parseKV(cols[6])

	return &f, nil
}

func parseKV(raw string) KV {
	kv := make(KV)
	for _, seg := range strings.Split(raw, ";") {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		if idx := strings.Index(seg, "="); idx >= 0 {
			k := seg[:idx]
			v := seg[idx+1:]
			kv[k] = v
		} else {
			kv[seg] = "true"
		}
	}
	return kv
}

func serializeKV(kv KV) string {
	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := kv[k]
		if v == "true" {
			parts = append(parts, k)
			continue
		}
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, ";")
}

// EmitCompact renders the six-column compact form used for tail display:
// ts\tkind\tscope\tid\tlevel\tmsg.
func EmitCompact(f Frame) string {
	return strings.Join([]string{
		formatTs(f.Ts),
		f.Kind,
		f.Scope,
		f.ID,
		string(f.Level),
		f.Msg,
	}, "\t")
}

// EmitTSV renders the full seven-column wire form. A zero f.Ts is stamped
// with now.
func EmitTSV(f Frame, now time.Time) string {
	ts := f.Ts
	if ts.IsZero() {
		ts = now
	}
	return strings.Join([]string{
		ts.UTC().Format(time.RFC3339),
		f.Kind,
		f.Scope,
		f.ID,
		string(f.Level),
		f.Msg,
		serializeKV(f.KV),
	}, "\t")
}

func formatTs(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(time.RFC3339)
}

// PositiveInt parses a kv value as a positive decimal integer, as required
// for the reserved ttl_stale_s/ttl_dead_s keys.
func PositiveInt(raw string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// ClipRaw clips s to maxLen bytes, appending "..." if it was truncated —
// used when embedding an offending raw ingest line into a diagnostic frame.
func ClipRaw(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
