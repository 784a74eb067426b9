// Package liveness implements the per-entity freshness state machine: it
// tracks the most recent frame for every (scope,id) entity, classifies each
// entity's current liveness relative to a caller-supplied wall clock, and
// produces deterministically ordered views for display.
package liveness

import (
	"sort"
	"time"

	"github.com/hawkmirror/hawk/internal/frame"
)

// State is one of the four liveness classifications.
type State int

const (
	Active State = iota
	Dream
	Stale
	Dead
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Dream:
		return "dream"
	case Stale:
		return "stale"
	case Dead:
		return "dead"
	default:
		return "unknown"
	}
}

// stateRank orders states Dead < Stale < Active < Dream for the sorted view,
// per the display ordering rule (worst/most-actionable first).
var stateRank = map[State]int{
	Dead:   0,
	Stale:  1,
	Active: 2,
	Dream:  3,
}

// EntityState is the in-memory record of the most recently ingested frame
// for a single (scope,id) entity.
type EntityState struct {
	Scope     string
	ID        string
	Kind      string
	LastLevel frame.Level
	LastMsg   string
	LastSeen  time.Time
	KV        frame.KV
}

func (e *EntityState) key() string { return e.Scope + ":" + e.ID }

// Counters tracks monotonically non-decreasing engine-wide counts.
type Counters struct {
	FramesSeen  uint64
	ParseErrors uint64
	IOErrors    uint64
}

// Engine owns entity state, a bounded recent-frame tail, and counters. It is
// pure with respect to wall time: every liveness computation takes `now` as
// an argument so callers (and tests) can pin it.
type Engine struct {
	entities map[string]*EntityState
	tail     []string
	tailSize int
	staleS   int
	deadS    int
	counters Counters
}

// New constructs an Engine with the given tail capacity and default TTLs
// (seconds), overridable per-entity via ttl_stale_s/ttl_dead_s kv.
func New(tailSize, staleS, deadS int) *Engine {
	return &Engine{
		entities: make(map[string]*EntityState),
		tailSize: tailSize,
		staleS:   staleS,
		deadS:    deadS,
	}
}

// IngestFrame upserts entity state for f, prepends its compact rendering to
// the tail, and evicts from the rear while the tail exceeds its cap.
func (e *Engine) IngestFrame(f frame.Frame, now time.Time) {
	e.counters.FramesSeen++

	seen := f.Ts
	if seen.IsZero() {
		seen = now
	}

	st := &EntityState{
		Scope:     f.Scope,
		ID:        f.ID,
		Kind:      f.Kind,
		LastLevel: f.Level,
		LastMsg:   f.Msg,
		LastSeen:  seen,
		KV:        f.KV,
	}
	e.entities[st.key()] = st

	e.tail = append([]string{frame.EmitCompact(f)}, e.tail...)
	if e.tailSize > 0 {
		for len(e.tail) > e.tailSize {
			e.tail = e.tail[:len(e.tail)-1]
		}
	}
}

// IngestParseError records a producer-side parse failure.
func (e *Engine) IngestParseError() { e.counters.ParseErrors++ }

// IngestIOError records a producer-side I/O failure.
func (e *Engine) IngestIOError() { e.counters.IOErrors++ }

// Counters returns a snapshot of the engine's counters.
func (e *Engine) Counters() Counters { return e.counters }

// Tail returns the current tail, newest first.
func (e *Engine) Tail() []string {
	out := make([]string, len(e.tail))
	copy(out, e.tail)
	return out
}

// Entity looks up the current state for scope:id.
func (e *Engine) Entity(scope, id string) (*EntityState, bool) {
	st, ok := e.entities[scope+":"+id]
	return st, ok
}

// Liveness classifies age = now - lastSeen against staleS/deadS (seconds).
func Liveness(lastSeen, now time.Time, staleS, deadS int) State {
	age := now.Sub(lastSeen)
	if age < 0 {
		age = 0
	}
	ageS := int(age / time.Second)

	switch {
	case ageS >= deadS:
		return Dead
	case ageS >= staleS && (staleS > 0 || ageS > 0):
		return Stale
	case ageS <= max(1, staleS/2):
		return Active
	default:
		return Dream
	}
}

// ttlOverride reads ttl_stale_s/ttl_dead_s from kv; a positive integer
// overrides the corresponding engine default.
func (e *Engine) ttlOverride(kv frame.KV) (staleS, deadS int) {
	staleS, deadS = e.staleS, e.deadS
	if raw, ok := kv["ttl_stale_s"]; ok {
		if n, ok := frame.PositiveInt(raw); ok {
			staleS = n
		}
	}
	if raw, ok := kv["ttl_dead_s"]; ok {
		if n, ok := frame.PositiveInt(raw); ok {
			deadS = n
		}
	}
	return staleS, deadS
}

// EntityLiveness computes st's current liveness, honoring any per-entity TTL
// override carried in its kv.
func (e *Engine) EntityLiveness(st *EntityState, now time.Time) State {
	staleS, deadS := e.ttlOverride(st.KV)
	return Liveness(st.LastSeen, now, staleS, deadS)
}

// Counts is the aggregate breakdown over all entities.
type Counts struct {
	Total int
	OK    int
	Warn  int
	Fail  int
	Stale int
	Dead  int
}

// CountsByState tallies every entity into exactly one bucket: Stale/Dead
// entities are counted only there; everything else is grouped by
// last_level, with info and unknown folded into ok.
func (e *Engine) CountsByState(now time.Time) Counts {
	var c Counts
	for _, st := range e.entities {
		c.Total++
		switch e.EntityLiveness(st, now) {
		case Stale:
			c.Stale++
			continue
		case Dead:
			c.Dead++
			continue
		}
		switch st.LastLevel {
		case frame.LevelFail:
			c.Fail++
		case frame.LevelWarn:
			c.Warn++
		default: // ok, info, unknown
			c.OK++
		}
	}
	return c
}

// View is a single row of the sorted entity listing.
type View struct {
	Entity   *EntityState
	Liveness State
}

// SortedView returns all entities ordered ascending by:
//  1. liveness with key order Dead < Stale < Active < Dream,
//  2. severity rank (fail first),
//  3. last_seen descending (recent first),
//  4. id ascending (stable tie-break).
func (e *Engine) SortedView(now time.Time) []View {
	views := make([]View, 0, len(e.entities))
	for _, st := range e.entities {
		views = append(views, View{Entity: st, Liveness: e.EntityLiveness(st, now)})
	}
	sort.Slice(views, func(i, j int) bool {
		a, b := views[i], views[j]
		if ra, rb := stateRank[a.Liveness], stateRank[b.Liveness]; ra != rb {
			return ra < rb
		}
		if ra, rb := a.Entity.LastLevel.Rank(), b.Entity.LastLevel.Rank(); ra != rb {
			return ra < rb
		}
		if !a.Entity.LastSeen.Equal(b.Entity.LastSeen) {
			return a.Entity.LastSeen.After(b.Entity.LastSeen)
		}
		return a.Entity.ID < b.Entity.ID
	})
	return views
}
