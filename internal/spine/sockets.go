package spine

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/hawkmirror/hawk/internal/frame"
	"github.com/hawkmirror/hawk/internal/hlog"
)

// ListenBroadcast binds a Unix socket at path and runs the accept loop that
// appends each connection to the spine's subscriber list. If banner is
// non-empty it is written (with a trailing newline) to each new subscriber
// before it is registered. Accept errors are logged and the loop continues;
// the loop itself only returns when the listener is closed.
func (s *Spine) ListenBroadcast(path string, overwrite bool, banner string) (net.Listener, error) {
	ln, err := bindUnix(path, overwrite)
	if err != nil {
		return nil, err
	}
	go s.acceptBroadcast(ln, banner)
	return ln, nil
}

func (s *Spine) acceptBroadcast(ln net.Listener, banner string) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				hlog.Debug("broadcast accept loop exiting", "error", err)
				return
			}
			hlog.Debug("broadcast accept error", "error", err)
			continue
		}
		w := bufio.NewWriter(conn)
		if banner != "" {
			_, _ = w.WriteString(banner + "\n")
			_ = w.Flush()
		}
		id := uuid.NewString()
		s.AddSubscriber(Subscriber{ID: id, Writer: w, Closer: conn})
		hlog.Debug("broadcast subscriber connected", "id", id)
	}
}

// ListenIngest binds a Unix socket at path and runs the accept loop; each
// connection gets its own handler goroutine reading lines, parsing them,
// and posting to the spine. strict controls whether a parse error closes
// the originating connection after emitting its synthetic diagnostic frame.
func (s *Spine) ListenIngest(path string, overwrite bool, banner string, strict bool) (net.Listener, error) {
	ln, err := bindUnix(path, overwrite)
	if err != nil {
		return nil, err
	}
	go s.acceptIngest(ln, banner, strict)
	return ln, nil
}

func (s *Spine) acceptIngest(ln net.Listener, banner string, strict bool) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			hlog.Debug("ingest accept loop exiting", "error", err)
			return
		}
		go s.handleIngestConn(conn, banner, strict)
	}
}

func (s *Spine) handleIngestConn(conn net.Conn, banner string, strict bool) {
	defer conn.Close()
	if pid, uid, ok := peerCredentials(conn); ok {
		hlog.Debug("ingest connection accepted", "pid", pid, "uid", uid)
	}
	if banner != "" {
		_, _ = conn.Write([]byte(banner + "\n"))
	}
	s.HandleIngestLines(conn, "ingest-socket", strict)
}

// HandleIngestLines reads newline-delimited frame lines from r, parsing and
// posting each onto the spine. It is used by the Unix ingest handler;
// RunStdinSource applies the same parsing rules in its own loop. On a parse error it synthesizes a RECEIPT_EVENT
// diagnostic frame; in strict mode it then returns (terminating the caller's
// handler), otherwise it continues reading.
func (s *Spine) HandleIngestLines(r io.Reader, ingestPath string, strict bool) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		f, err := frame.Parse(line)
		if err != nil {
			s.NoteParseError()
			diag := synthesizeReceiptEvent(ingestPath, err.Error(), line, time.Now())
			s.PostFrame(diag, time.Now())
			if strict {
				return
			}
			continue
		}
		if f == nil {
			continue // blank/comment line
		}
		s.PostFrame(*f, time.Now())
	}
	if err := scanner.Err(); err != nil {
		s.NoteIOError()
	}
}

func synthesizeReceiptEvent(ingestPath, errMsg, raw string, now time.Time) frame.Frame {
	return frame.Frame{
		Ts:    now,
		Kind:  "RECEIPT_EVENT",
		Scope: "hawkd",
		ID:    "ingest",
		Level: frame.LevelWarn,
		Msg:   "ingest parse error",
		KV: frame.KV{
			"ingest_path": ingestPath,
			"error":       errMsg,
			"raw":         frame.ClipRaw(raw, 240),
		},
	}
}

func bindUnix(path string, overwrite bool) (net.Listener, error) {
	if overwrite {
		if err := removeStaleSocket(path); err != nil {
			return nil, err
		}
	}
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("bind unix socket %s: %w", path, err)
	}
	return ln, nil
}

func removeStaleSocket(path string) error {
	if _, err := os.Stat(path); err == nil {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("remove stale socket %s: %w", path, err)
		}
	}
	return nil
}
