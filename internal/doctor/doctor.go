// Package doctor runs the static and live checks that gate a pack thread
// before it is trusted as a transform: header/terminator conventions,
// declared-arg usage, a security substring scan, and an optional smoke test
// feeding fixed sample frames through the transform child process.
package doctor

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/hawkmirror/hawk/internal/bridge"
	"github.com/hawkmirror/hawk/internal/frame"
	"github.com/hawkmirror/hawk/internal/pack"
)

// SecurityMode is one of strict|warn|off.
type SecurityMode string

const (
	SecurityStrict SecurityMode = "strict"
	SecurityWarn   SecurityMode = "warn"
	SecurityOff    SecurityMode = "off"
)

const (
	headerMarker  = "▛▞//"
	footerMarker  = "# :: ∎"
	headerScanMax = 20
)

// Finding is one accumulated error or warning.
type Finding struct {
	Message string
	Warning bool
}

// Report is the accumulated result for a single thread.
type Report struct {
	ThreadID string
	Findings []Finding
}

// OK reports whether the thread passed: zero errors, regardless of warnings.
func (r Report) OK() bool {
	for _, f := range r.Findings {
		if !f.Warning {
			return false
		}
	}
	return true
}

func (r *Report) errorf(format string, args ...any) {
	r.Findings = append(r.Findings, Finding{Message: fmt.Sprintf(format, args...)})
}

func (r *Report) warnf(format string, args ...any) {
	r.Findings = append(r.Findings, Finding{Message: fmt.Sprintf(format, args...), Warning: true})
}

// Options configures which checks run.
type Options struct {
	Smoke    bool
	Security SecurityMode
}

// Run executes all four checks against th and returns the accumulated report.
func Run(th pack.ResolvedThread, opts Options) (Report, error) {
	report := Report{ThreadID: th.ID}

	scriptBytes, err := os.ReadFile(th.ScriptPath)
	if err != nil {
		report.errorf("cannot read script: %v", err)
		return report, nil
	}
	lines := strings.Split(string(scriptBytes), "\n")

	checkHeaderFooter(&report, lines)
	checkDeclaredArgUsage(&report, th, lines)
	checkSecurity(&report, lines, opts.Security)

	if opts.Smoke {
		if err := runSmokeTest(&report, th); err != nil {
			return report, err
		}
	}

	return report, nil
}

func checkHeaderFooter(report *Report, lines []string) {
	headerFound := false
	limit := headerScanMax
	if limit > len(lines) {
		limit = len(lines)
	}
	for i := 0; i < limit; i++ {
		if strings.Contains(lines[i], headerMarker) {
			headerFound = true
			break
		}
	}
	if !headerFound {
		report.warnf("script header missing %q marker in first %d lines", headerMarker, headerScanMax)
	}

	lastNonEmpty := ""
	for i := len(lines) - 1; i >= 0; i-- {
		t := strings.TrimSpace(lines[i])
		if t != "" {
			lastNonEmpty = t
			break
		}
	}
	if lastNonEmpty != footerMarker {
		report.warnf("script terminator line is not exactly %q", footerMarker)
	}
}

var identBoundary = regexp.MustCompile(`[^A-Za-z0-9_]`)

func checkDeclaredArgUsage(report *Report, th pack.ResolvedThread, lines []string) {
	body := make([]string, 0, len(lines))
	for _, l := range lines {
		if strings.HasPrefix(strings.TrimSpace(l), "#") {
			continue
		}
		body = append(body, l)
	}
	joined := strings.Join(body, "\n")

	for _, a := range th.Args {
		re := regexp.MustCompile(`(^|[^A-Za-z0-9_])` + regexp.QuoteMeta(a.Name) + `($|[^A-Za-z0-9_])`)
		if !re.MatchString(joined) {
			report.warnf("declared arg %q is never referenced in script", a.Name)
		}
	}
}

// denyCheck is one always-error security pattern.
type denyCheck struct {
	message string
	match   func(line string) bool
}

func checkSecurity(report *Report, lines []string, mode SecurityMode) {
	if mode == "" {
		mode = SecurityWarn
	}

	denies := []denyCheck{
		{"calling system() is not allowed", func(l string) bool { return strings.Contains(l, "system(") }},
		{"piping input via getline is not allowed", func(l string) bool {
			return strings.Contains(l, "| getline") || strings.Contains(l, "|getline")
		}},
		{"piping output to a command is not allowed", func(l string) bool {
			if !strings.Contains(l, "print") && !strings.Contains(l, "printf") {
				return false
			}
			return strings.Contains(l, `|"`) || strings.Contains(l, `| "`)
		}},
		{"redirecting output to a file is not allowed", func(l string) bool {
			if !strings.Contains(l, "print") && !strings.Contains(l, "printf") {
				return false
			}
			if strings.Contains(l, "/dev/stderr") || strings.Contains(l, "/dev/fd/2") {
				return false
			}
			return strings.Contains(l, ">>") || strings.Contains(l, ">")
		}},
	}

	seenErr := make(map[string]bool)
	seenWarn := make(map[string]bool)

	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		for _, d := range denies {
			if d.match(line) && !seenErr[d.message] {
				seenErr[d.message] = true
				report.errorf("%s", d.message)
			}
		}
		if strings.Contains(line, "getline <") || strings.Contains(line, "getline<") {
			msg := "reading from a file via getline is a risk"
			switch mode {
			case SecurityStrict:
				if !seenErr[msg] {
					seenErr[msg] = true
					report.errorf("%s", msg)
				}
			case SecurityWarn:
				if !seenWarn[msg] {
					seenWarn[msg] = true
					report.warnf("%s", msg)
				}
			case SecurityOff:
				// suppressed
			}
		}
	}
}

// sampleFrames are the three fixed sample frames fed to the transform child
// during the smoke test.
func sampleFrames(now time.Time) []frame.Frame {
	return []frame.Frame{
		{Ts: now, Kind: "HEALTH", Scope: "service", ID: "alpha", Level: frame.LevelOK, Msg: "alive", KV: frame.KV{}},
		{Ts: now, Kind: "HEALTH", Scope: "service", ID: "beta", Level: frame.LevelWarn, Msg: "degraded", KV: frame.KV{"reason": "slow"}},
		{Ts: now, Kind: "HEALTH", Scope: "service", ID: "gamma", Level: frame.LevelFail, Msg: "down", KV: frame.KV{"reason": "timeout"}},
	}
}

func runSmokeTest(report *Report, th pack.ResolvedThread) error {
	now := time.Now().UTC()
	tvars := pack.DefaultTVars(th)

	out, exitErr, err := bridge.RunOnce(th.ScriptPath, tvars, sampleFrames(now), now)
	if err != nil {
		return err
	}
	if exitErr != nil {
		report.errorf("transform exited with error: %v", exitErr)
	}

	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		f, perr := frame.Parse(line)
		if perr != nil {
			report.errorf("smoke test output line failed to parse: %v", perr)
			continue
		}
		_ = f // blank/comment lines are silently dropped, matching the bridge reader
	}
	return nil
}
