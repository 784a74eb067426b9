package spine

import (
	"bufio"
	"io"
	"time"

	"github.com/hawkmirror/hawk/internal/frame"
)

// RunStdinSource reads frame lines from r until EOF, with the same parsing
// semantics as an ingest handler. EOF terminates the source cleanly; in
// strict mode a parse error additionally posts a one-line hash-comment
// diagnostic onto the spine before the source terminates.
func (s *Spine) RunStdinSource(r io.Reader, strict bool) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		f, err := frame.Parse(line)
		if err != nil {
			s.NoteParseError()
			diag := synthesizeReceiptEvent("stdin", err.Error(), line, time.Now())
			s.PostFrame(diag, time.Now())
			if strict {
				s.Post("# stdin source terminated: " + err.Error())
				return
			}
			continue
		}
		if f == nil {
			continue
		}
		s.PostFrame(*f, time.Now())
	}
	if err := scanner.Err(); err != nil {
		s.NoteIOError()
	}
}
