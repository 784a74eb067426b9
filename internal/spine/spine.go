// Package spine implements the event-fanout hub: a buffered FIFO of
// encoded frame records fed by multiple producers, and a broadcast loop
// that fans each record out to a mutex-protected set of subscriber writers.
package spine

import (
	"bufio"
	"io"
	"sync"
	"time"

	"github.com/hawkmirror/hawk/internal/frame"
	"github.com/hawkmirror/hawk/internal/hlog"
)

// Spine is the single in-process channel through which all producers
// deliver frames to the broadcaster.
type Spine struct {
	records chan string // each entry is one encoded frame line, no trailing \n

	mu          sync.Mutex
	subscribers []Subscriber

	counters Counters
	cmu      sync.Mutex
}

// Subscriber is a single connected broadcast-socket writer.
type Subscriber struct {
	ID     string
	Writer *bufio.Writer
	Closer io.Closer
}

// Counters mirrors the liveness engine's producer-side counters, kept here
// too since the spine is the point where ingest parse/io failures occur.
type Counters struct {
	FramesSeen  uint64
	ParseErrors uint64
	IOErrors    uint64
}

// New creates a Spine whose record queue holds up to 4096 records; Post
// blocks while the queue is full.
func New() *Spine {
	return &Spine{
		records: make(chan string, 4096),
	}
}

// Post enqueues an already-encoded frame line (no trailing newline) onto the
// spine FIFO. Within a single producer, order is preserved end-to-end.
func (s *Spine) Post(line string) {
	s.records <- line
}

// PostFrame encodes f with EmitTSV and posts it, stamping now for a missing ts.
func (s *Spine) PostFrame(f frame.Frame, now time.Time) {
	s.cmu.Lock()
	s.counters.FramesSeen++
	s.cmu.Unlock()
	s.Post(frame.EmitTSV(f, now))
}

// NoteParseError increments the parse-error counter without posting a record.
func (s *Spine) NoteParseError() {
	s.cmu.Lock()
	s.counters.ParseErrors++
	s.cmu.Unlock()
}

// NoteIOError increments the io-error counter.
func (s *Spine) NoteIOError() {
	s.cmu.Lock()
	s.counters.IOErrors++
	s.cmu.Unlock()
}

// Snapshot returns the current counters.
func (s *Spine) Snapshot() Counters {
	s.cmu.Lock()
	defer s.cmu.Unlock()
	return s.counters
}

// Records exposes the record channel for in-process consumers that read
// the spine without going through a socket round trip. A record received
// here is consumed: RunBroadcastLoop does not see it.
func (s *Spine) Records() <-chan string {
	return s.records
}

// AddSubscriber appends sub to the subscriber list. Called only from the
// broadcast-accept loop.
func (s *Spine) AddSubscriber(sub Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, sub)
}

// SubscriberCount reports the current subscriber list length.
func (s *Spine) SubscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers)
}

// RunBroadcastLoop consumes records one at a time, fanning each out to every
// live subscriber under a single lock acquisition for that record. Dead
// subscribers (write failure) are removed in place. This never returns
// except when the record channel is closed.
func (s *Spine) RunBroadcastLoop() {
	for line := range s.records {
		s.fanOut(line)
	}
}

func (s *Spine) fanOut(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	live := s.subscribers[:0]
	for _, sub := range s.subscribers {
		if _, err := sub.Writer.WriteString(line + "\n"); err != nil {
			hlog.Debug("dropping subscriber on write failure", "subscriber", sub.ID, "error", err)
			_ = sub.Closer.Close()
			continue
		}
		if err := sub.Writer.Flush(); err != nil {
			hlog.Debug("dropping subscriber on flush failure", "subscriber", sub.ID, "error", err)
			_ = sub.Closer.Close()
			continue
		}
		live = append(live, sub)
	}
	s.subscribers = live
}
