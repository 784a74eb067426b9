package viewer

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hawkmirror/hawk/internal/frame"
	"github.com/hawkmirror/hawk/internal/liveness"
	"golang.org/x/term"
)

// Renderer draws a liveness dashboard snapshot to a string.
type Renderer struct {
	theme Theme
	width int
}

// defaultWidth is used whenever stdout is not a terminal (piped output,
// redirected to a file) or its size cannot be queried.
const defaultWidth = 120

// NewRenderer builds a Renderer with theme, sizing rows to the current
// terminal width when stdout is a tty.
func NewRenderer(theme Theme) *Renderer {
	width := defaultWidth
	if term.IsTerminal(int(os.Stdout.Fd())) {
		if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
			width = w
		}
	}
	return &Renderer{theme: theme, width: width}
}

// Dashboard renders the full snapshot: aggregate counts, the sorted entity
// listing, and the recent-frame tail.
func (r *Renderer) Dashboard(e *liveness.Engine, now time.Time, tailLines int) string {
	var b strings.Builder

	c := e.CountsByState(now)
	b.WriteString(r.theme.Header.Render("hawk") + "\n")
	b.WriteString(r.theme.Counts.Render(fmt.Sprintf(
		"total=%d ok=%d warn=%d fail=%d stale=%d dead=%d",
		c.Total, c.OK, c.Warn, c.Fail, c.Stale, c.Dead)) + "\n\n")

	for _, v := range e.SortedView(now) {
		b.WriteString(r.row(v) + "\n")
	}

	tail := e.Tail()
	if len(tail) > 0 {
		b.WriteString("\n" + r.theme.Header.Render("recent") + "\n")
		n := tailLines
		if n <= 0 || n > len(tail) {
			n = len(tail)
		}
		for _, line := range tail[:n] {
			b.WriteString(r.theme.TailLine.Render(frame.ClipRaw(line, max(r.width-3, 0))) + "\n")
		}
	}

	return b.String()
}

func (r *Renderer) row(v liveness.View) string {
	line := fmt.Sprintf("%-8s %-10s %-20s %s", v.Liveness.String(), v.Entity.LastLevel, v.Entity.ID, v.Entity.LastMsg)
	line = frame.ClipRaw(line, max(r.width-3, 0)) // leave room for the "..." suffix
	style := r.styleFor(v)
	return style.Render(line)
}

func (r *Renderer) styleFor(v liveness.View) (style interface {
	Render(...string) string
}) {
	switch v.Liveness {
	case liveness.Dead:
		return r.theme.RowDead
	case liveness.Stale:
		return r.theme.RowStale
	}
	switch v.Entity.LastLevel {
	case frame.LevelFail:
		return r.theme.RowFail
	case frame.LevelWarn:
		return r.theme.RowWarn
	default:
		return r.theme.RowOK
	}
}
