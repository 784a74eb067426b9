package spine

import (
	"bufio"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeCloser struct{ closed bool }

func (f *fakeCloser) Close() error { f.closed = true; return nil }

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) { return 0, io.ErrClosedPipe }

func TestFanOutRemovesDeadSubscriber(t *testing.T) {
	s := New()
	good := &strings.Builder{}
	goodSub := Subscriber{ID: "good", Writer: bufio.NewWriter(good), Closer: &fakeCloser{}}
	badCloser := &fakeCloser{}
	badSub := Subscriber{ID: "bad", Writer: bufio.NewWriter(failingWriter{}), Closer: badCloser}

	s.AddSubscriber(goodSub)
	s.AddSubscriber(badSub)
	require.Equal(t, 2, s.SubscriberCount())

	s.fanOut("hello")

	require.Equal(t, 1, s.SubscriberCount())
	require.True(t, badCloser.closed)
	require.Equal(t, "hello\n", good.String())
}

func TestHandleIngestLinesHappyPath(t *testing.T) {
	s := New()

	line := "2026-02-16T12:34:56Z\tHEALTH\tservice\talpha\tok\talive\tpid=123;uptime_s=9\n"
	s.HandleIngestLines(strings.NewReader(line), "ingest-socket", false)

	select {
	case rec := <-s.Records():
		require.Contains(t, rec, "HEALTH")
		require.Contains(t, rec, "pid=123")
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for record")
	}
}

func TestHandleIngestLinesParseErrorNonStrict(t *testing.T) {
	s := New()
	s.HandleIngestLines(strings.NewReader("not a frame\n"), "ingest-socket", false)

	rec := <-s.Records()
	require.Contains(t, rec, "RECEIPT_EVENT")
	require.Contains(t, rec, "hawkd")
	require.Contains(t, rec, "ingest")
	require.Equal(t, uint64(1), s.Snapshot().ParseErrors)
}

func TestHandleIngestLinesStrictStopsOnParseError(t *testing.T) {
	s := New()
	input := "not a frame\n2026-02-16T12:34:56Z\tHEALTH\tservice\ta\tok\tm\t\n"
	s.HandleIngestLines(strings.NewReader(input), "ingest-socket", true)

	// only the synthetic diagnostic frame should be posted, not the valid line after it
	rec := <-s.Records()
	require.Contains(t, rec, "RECEIPT_EVENT")
	select {
	case <-s.Records():
		t.Fatal("strict mode should have stopped the handler before the second line")
	case <-time.After(50 * time.Millisecond):
	}
}
