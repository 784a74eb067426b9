// Package pack discovers, parses, and validates transform packs on disk: a
// pack is a directory containing a pack.toml manifest and the script files
// it references.
package pack

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// ArgType is one of the three supported argument types.
type ArgType string

const (
	ArgString ArgType = "string"
	ArgInt    ArgType = "int"
	ArgBool   ArgType = "bool"
)

// ArgSpec describes one declared argument of a thread.
type ArgSpec struct {
	Name    string
	Type    ArgType
	Default string
	Help    string
}

// ResolvedThread is a thread whose script path has been validated and made
// absolute.
type ResolvedThread struct {
	ID          string
	Title       string
	Kind        string
	ScriptPath  string
	Description string
	Args        []ArgSpec
	PackID      string
}

// Pack is a single loaded pack directory.
type Pack struct {
	Dir         string
	ID          string
	Name        string
	Version     string
	Author      string
	Description string
	Threads     []ResolvedThread
}

// Index is the immutable, load-time result: every pack found, and the
// global thread-id -> thread map.
type Index struct {
	Packs   []Pack
	Threads map[string]ResolvedThread
}

// manifest mirrors the pack.toml schema for BurntSushi/toml unmarshaling.
type manifest struct {
	Pack struct {
		ID          string `toml:"id"`
		Name        string `toml:"name"`
		Version     string `toml:"version"`
		Author      string `toml:"author"`
		Description string `toml:"description"`
	} `toml:"pack"`
	Thread []struct {
		ID          string `toml:"id"`
		Title       string `toml:"title"`
		Kind        string `toml:"kind"`
		File        string `toml:"file"`
		Description string `toml:"description"`
		Arg         []struct {
			Name    string `toml:"name"`
			Type    string `toml:"type"`
			Default string `toml:"default"`
			Help    string `toml:"help"`
		} `toml:"arg"`
	} `toml:"thread"`
}

// Load discovers and parses every pack under dir. A missing dir yields an
// empty Index, not an error. Duplicate thread ids anywhere under dir are a
// fatal load error, as is any unsafe or missing script path.
func Load(dir string) (*Index, error) {
	idx := &Index{Threads: make(map[string]ResolvedThread)}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return idx, nil
		}
		return nil, fmt.Errorf("read packs dir %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		packDir := filepath.Join(dir, name)
		manifestPath := filepath.Join(packDir, "pack.toml")
		if _, err := os.Stat(manifestPath); err != nil {
			continue // no pack.toml: silently skipped
		}

		p, err := loadOne(packDir, manifestPath)
		if err != nil {
			return nil, fmt.Errorf("pack %s: %w", name, err)
		}

		for _, th := range p.Threads {
			if _, dup := idx.Threads[th.ID]; dup {
				return nil, fmt.Errorf("duplicate thread id %q (pack %s)", th.ID, p.ID)
			}
			idx.Threads[th.ID] = th
		}
		idx.Packs = append(idx.Packs, p)
	}

	return idx, nil
}

func loadOne(packDir, manifestPath string) (Pack, error) {
	var m manifest
	if _, err := toml.DecodeFile(manifestPath, &m); err != nil {
		return Pack{}, fmt.Errorf("parse manifest: %w", err)
	}

	p := Pack{
		Dir:         packDir,
		ID:          m.Pack.ID,
		Name:        m.Pack.Name,
		Version:     m.Pack.Version,
		Author:      m.Pack.Author,
		Description: m.Pack.Description,
	}

	for _, th := range m.Thread {
		if err := validateSafePath(th.File); err != nil {
			return Pack{}, fmt.Errorf("thread %s: %w", th.ID, err)
		}
		scriptPath, err := filepath.Abs(filepath.Join(packDir, th.File))
		if err != nil {
			return Pack{}, fmt.Errorf("thread %s: %w", th.ID, err)
		}
		if _, err := os.Stat(scriptPath); err != nil {
			return Pack{}, fmt.Errorf("thread %s: script %s does not exist", th.ID, th.File)
		}

		var args []ArgSpec
		for _, a := range th.Arg {
			at := ArgType(a.Type)
			if at != ArgString && at != ArgInt && at != ArgBool {
				return Pack{}, fmt.Errorf("thread %s: arg %s has invalid type %q", th.ID, a.Name, a.Type)
			}
			if a.Default != "" {
				if err := validateTypedValue(at, a.Default); err != nil {
					return Pack{}, fmt.Errorf("thread %s: arg %s default: %w", th.ID, a.Name, err)
				}
			}
			args = append(args, ArgSpec{Name: a.Name, Type: at, Default: a.Default, Help: a.Help})
		}

		p.Threads = append(p.Threads, ResolvedThread{
			ID:          th.ID,
			Title:       th.Title,
			Kind:        th.Kind,
			ScriptPath:  scriptPath,
			Description: th.Description,
			Args:        args,
			PackID:      p.ID,
		})
	}

	return p, nil
}

// validateSafePath rejects absolute paths and any ".." path component.
func validateSafePath(rel string) error {
	if filepath.IsAbs(rel) {
		return fmt.Errorf("file path %q must not be absolute", rel)
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if part == ".." {
			return fmt.Errorf("file path %q must not contain a .. component", rel)
		}
	}
	return nil
}

func validateTypedValue(t ArgType, v string) error {
	switch t {
	case ArgInt:
		if _, err := strconv.ParseInt(v, 10, 64); err != nil {
			return fmt.Errorf("not a valid int64: %q", v)
		}
	case ArgBool:
		switch strings.ToLower(v) {
		case "true", "false", "1", "0":
		default:
			return fmt.Errorf("not a valid bool: %q", v)
		}
	}
	return nil
}

// ResolveThread looks up id directly.
func (idx *Index) ResolveThread(id string) (ResolvedThread, bool) {
	th, ok := idx.Threads[id]
	return th, ok
}

// ValidateTVars rejects unknown keys and validates each supplied value
// against the thread's declared arg types.
func ValidateTVars(th ResolvedThread, supplied map[string]string) error {
	declared := make(map[string]ArgSpec, len(th.Args))
	for _, a := range th.Args {
		declared[a.Name] = a
	}
	for k, v := range supplied {
		a, ok := declared[k]
		if !ok {
			return fmt.Errorf("unknown tvar %q", k)
		}
		if err := validateTypedValue(a.Type, v); err != nil {
			return fmt.Errorf("tvar %q: %w", k, err)
		}
	}
	return nil
}

// DefaultTVars yields the thread's declared defaults as a mapping; args
// with an empty default are omitted.
func DefaultTVars(th ResolvedThread) map[string]string {
	out := make(map[string]string)
	for _, a := range th.Args {
		if a.Default != "" {
			out[a.Name] = a.Default
		}
	}
	return out
}
