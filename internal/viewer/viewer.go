// Package viewer implements the terminal liveness dashboard: it subscribes
// to the spine's broadcast stream (or reads stdin directly), optionally
// passes each frame through a transform, and renders a live view.
package viewer

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/hawkmirror/hawk/internal/bridge"
	"github.com/hawkmirror/hawk/internal/frame"
	"github.com/hawkmirror/hawk/internal/hlog"
	"github.com/hawkmirror/hawk/internal/liveness"
	"github.com/hawkmirror/hawk/internal/pack"
)

// Transform describes a resolved transform selection: none, a pack thread,
// or an ad hoc script file (doctor's checks do not apply to the latter).
type Transform struct {
	Kind       string // none|thread|file
	ScriptPath string
	TVars      map[string]string
}

// Config holds every viewer CLI flag.
type Config struct {
	Source    string // stdin|unix
	SocketPath string
	Strict    bool
	TailSize  int
	StaleS    int
	DeadS     int
	PacksDir  string
	Transform Transform
}

// Run sources frames per cfg, optionally bridges them through a transform,
// ingests them into a liveness engine, and renders the dashboard to stdout
// after each ingested frame.
func Run(cfg Config, out io.Writer) error {
	engine := liveness.New(cfg.TailSize, cfg.StaleS, cfg.DeadS)
	renderer := NewRenderer(DefaultTheme())

	raw, err := openSource(cfg)
	if err != nil {
		return err
	}
	defer raw.Close()

	frames := make(chan frame.Frame, 256)
	go readFrames(raw, cfg.Strict, frames, engine)

	source := frames
	var br *bridge.Bridge
	if cfg.Transform.Kind != "" && cfg.Transform.Kind != "none" {
		br, err = bridge.Start(cfg.Transform.ScriptPath, cfg.Transform.TVars)
		if err != nil {
			return fmt.Errorf("start transform: %w", err)
		}
		go pumpTransform(frames, br)
		source = mergeTransformStreams(br.Out, br.Errs)
	}

	for f := range source {
		engine.IngestFrame(f, time.Now())
		fmt.Fprint(out, renderer.Dashboard(engine, time.Now(), 20))
	}
	return nil
}

func openSource(cfg Config) (io.ReadCloser, error) {
	switch cfg.Source {
	case "unix":
		conn, err := net.Dial("unix", cfg.SocketPath)
		if err != nil {
			return nil, fmt.Errorf("dial broadcast socket: %w", err)
		}
		return conn, nil
	default:
		return io.NopCloser(os.Stdin), nil
	}
}

func readFrames(r io.Reader, strict bool, out chan<- frame.Frame, engine *liveness.Engine) {
	defer close(out)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		f, err := frame.Parse(line)
		if err != nil {
			engine.IngestParseError()
			hlog.Debug("viewer source parse error", "error", err)
			if strict {
				return
			}
			continue
		}
		if f == nil {
			continue
		}
		out <- *f
	}
	if err := scanner.Err(); err != nil {
		engine.IngestIOError()
	}
}

func pumpTransform(in <-chan frame.Frame, br *bridge.Bridge) {
	for f := range in {
		br.In <- f
	}
	br.Close()
}

// mergeTransformStreams fans both the transform's parsed output and its
// diagnostic channel into a single stream, so a transform failure shows up
// in the dashboard itself (as a synthetic fail-level frame) rather than only
// in the log.
func mergeTransformStreams(out <-chan frame.Frame, errs <-chan string) <-chan frame.Frame {
	merged := make(chan frame.Frame, 256)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for f := range out {
			merged <- f
		}
	}()
	go func() {
		defer wg.Done()
		for msg := range errs {
			hlog.Warn("transform diagnostic", "message", msg)
			merged <- synthesizeTransformFailure(msg)
		}
	}()
	go func() {
		wg.Wait()
		close(merged)
	}()
	return merged
}

func synthesizeTransformFailure(msg string) frame.Frame {
	return frame.Frame{
		Ts:    time.Now(),
		Kind:  "HEALTH",
		Scope: "hawk",
		ID:    "transform",
		Level: frame.LevelFail,
		Msg:   frame.ClipRaw(msg, 200),
		KV:    frame.KV{},
	}
}

// ResolveTransform turns a "--transform" flag value into a Transform,
// consulting the pack index for "thread:<id>" and bypassing it entirely for
// "file:<path>".
func ResolveTransform(raw string, idx *pack.Index, tvars map[string]string) (Transform, error) {
	switch {
	case raw == "" || raw == "none":
		return Transform{Kind: "none"}, nil
	case strings.HasPrefix(raw, "thread:"):
		id := strings.TrimPrefix(raw, "thread:")
		th, ok := idx.ResolveThread(id)
		if !ok {
			return Transform{}, fmt.Errorf("unknown thread id %q", id)
		}
		if err := pack.ValidateTVars(th, tvars); err != nil {
			return Transform{}, err
		}
		merged := pack.DefaultTVars(th)
		for k, v := range tvars {
			merged[k] = v
		}
		return Transform{Kind: "thread", ScriptPath: th.ScriptPath, TVars: merged}, nil
	case strings.HasPrefix(raw, "file:"):
		path := strings.TrimPrefix(raw, "file:")
		return Transform{Kind: "file", ScriptPath: path, TVars: tvars}, nil
	default:
		return Transform{}, fmt.Errorf("invalid --transform value %q", raw)
	}
}
