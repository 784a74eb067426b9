// Package bridge spawns a transform child process and bridges HawkFrame
// channels to its stdin/stdout, running the writer, reader, and waiter as
// three independent concurrent tasks.
package bridge

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hawkmirror/hawk/internal/frame"
	"github.com/hawkmirror/hawk/internal/hlog"
)

// Bridge connects a spawned transform process to in-process frame channels.
type Bridge struct {
	In   chan<- frame.Frame // caller sends frames here to feed the transform
	Out  <-chan frame.Frame // transform's parsed output frames
	Errs <-chan string      // one-line diagnostics from any of the three tasks

	in  chan frame.Frame
	cmd *exec.Cmd
}

// buildArgs renders tvars as "-v k=v" pairs followed by "-f <script>", the
// awk calling convention used by Start and RunOnce.
func buildArgs(scriptPath string, tvars map[string]string) []string {
	args := make([]string, 0, len(tvars)*2+2)
	keys := make([]string, 0, len(tvars))
	for k := range tvars {
		keys = append(keys, k)
	}
	// deterministic order for reproducible smoke-test invocations
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "-v", k+"="+tvars[k])
	}
	args = append(args, "-f", scriptPath)
	return args
}

// Start spawns the awk transform for scriptPath with the given merged
// tvars and wires up the writer/reader/waiter tasks. The error stream
// inherits from the parent process.
func Start(scriptPath string, tvars map[string]string) (*Bridge, error) {
	cmd := exec.Command("awk", buildArgs(scriptPath, tvars)...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start transform: %w", err)
	}

	in := make(chan frame.Frame, 64)
	out := make(chan frame.Frame, 64)
	errs := make(chan string, 16)

	var wg sync.WaitGroup
	wg.Add(3)
	go writerTask(&wg, stdin, in, errs)
	go readerTask(&wg, stdout, out, errs)
	go waiterTask(&wg, cmd, errs)
	go func() {
		wg.Wait()
		close(errs)
	}()

	return &Bridge{In: in, Out: out, Errs: errs, in: in, cmd: cmd}, nil
}

func writerTask(wg *sync.WaitGroup, w io.WriteCloser, in <-chan frame.Frame, errs chan<- string) {
	defer wg.Done()
	defer w.Close()
	bw := bufio.NewWriter(w)
	for f := range in {
		line := frame.EmitTSV(f, time.Now())
		if _, err := bw.WriteString(line + "\n"); err != nil {
			errs <- fmt.Sprintf("transform writer: %v", err)
			return
		}
		if err := bw.Flush(); err != nil {
			errs <- fmt.Sprintf("transform writer: %v", err)
			return
		}
	}
}

func readerTask(wg *sync.WaitGroup, r io.Reader, out chan<- frame.Frame, errs chan<- string) {
	defer wg.Done()
	defer close(out)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		f, err := frame.Parse(scanner.Text())
		if err != nil {
			errs <- fmt.Sprintf("transform reader: %v", err)
			continue
		}
		if f == nil {
			continue
		}
		out <- *f
	}
	if err := scanner.Err(); err != nil {
		errs <- fmt.Sprintf("transform reader: %v", err)
	}
}

func waiterTask(wg *sync.WaitGroup, cmd *exec.Cmd, errs chan<- string) {
	defer wg.Done()
	if err := cmd.Wait(); err != nil {
		errs <- fmt.Sprintf("transform exited: %v", err)
		hlog.Debug("transform child exited non-zero", "error", err)
	}
}

// RunOnce is a one-shot helper for the doctor's smoke test: it spawns the
// transform, writes frames to its input, closes input, reads all output,
// and waits for exit.
func RunOnce(scriptPath string, tvars map[string]string, frames []frame.Frame, now time.Time) (stdout string, exitErr error, err error) {
	cmd := exec.Command("awk", buildArgs(scriptPath, tvars)...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return "", nil, fmt.Errorf("stdin pipe: %w", err)
	}
	var outBuf strings.Builder
	cmd.Stdout = &outBuf

	if err := cmd.Start(); err != nil {
		return "", nil, fmt.Errorf("start transform: %w", err)
	}

	for _, f := range frames {
		line := frame.EmitTSV(f, now)
		if _, werr := stdin.Write([]byte(line + "\n")); werr != nil {
			_ = stdin.Close()
			return "", nil, fmt.Errorf("write sample frame: %w", werr)
		}
	}
	_ = stdin.Close()

	waitErr := cmd.Wait()
	return outBuf.String(), waitErr, nil
}

// Close stops feeding the transform; the writer task's channel close causes
// the child to see EOF on its stdin.
func (b *Bridge) Close() {
	close(b.in)
}
