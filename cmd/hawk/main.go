// Command hawk is the terminal viewer: it subscribes to a hawkd broadcast
// socket (or reads stdin directly), optionally runs each frame through a
// transform pack thread, and renders a live liveness dashboard.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/hawkmirror/hawk/internal/config"
	"github.com/hawkmirror/hawk/internal/doctor"
	"github.com/hawkmirror/hawk/internal/hlog"
	"github.com/hawkmirror/hawk/internal/pack"
	"github.com/hawkmirror/hawk/internal/viewer"
	"github.com/spf13/cobra"
)

// loadFileDefaults reads ~/.hawk/hawk.yaml, if present, so flag defaults can
// be computed as file-over-builtin ahead of flag registration. A load error
// is non-fatal: the viewer falls back to built-in defaults.
func loadFileDefaults() *config.File {
	dir, err := config.UserConfigDir()
	if err != nil {
		return &config.File{}
	}
	f, err := config.Load(filepath.Join(dir, "hawk.yaml"))
	if err != nil {
		hlog.Warn("ignoring unreadable hawk.yaml", "error", err)
		return &config.File{}
	}
	return f
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "hawk:", err)
		os.Exit(exitCodeFor(err))
	}
}

type doctorFailure struct{}

func (doctorFailure) Error() string { return "pack-doctor found errors" }

func exitCodeFor(err error) int {
	if _, ok := err.(doctorFailure); ok {
		return 2
	}
	return 1
}

func rootCmd() *cobra.Command {
	var (
		source     string
		socketPath string
		strict     bool
		tailSize   int
		staleS     int
		deadS      int
		packsDir   string
		transform  string
		tvars      []string
		logLevel   string
	)

	fileCfg := loadFileDefaults()

	cmd := &cobra.Command{
		Use:   "hawk",
		Short: "Terminal liveness dashboard for hawkd",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := hlog.Init(logLevel, ""); err != nil {
				return err
			}

			tv, err := parseTVars(tvars)
			if err != nil {
				return err
			}

			idx, err := pack.Load(packsDir)
			if err != nil {
				return err
			}

			tr, err := viewer.ResolveTransform(transform, idx, tv)
			if err != nil {
				return err
			}

			if tr.Kind == "thread" {
				watcher, err := pack.WatchDir(packsDir, func(reloaded *pack.Index) {
					if _, ok := reloaded.ResolveThread(strings.TrimPrefix(transform, "thread:")); !ok {
						hlog.Warn("active transform thread disappeared from packs dir", "transform", transform)
					}
				})
				if err == nil {
					defer watcher.Close()
				} else {
					hlog.Warn("pack hot-reload disabled", "error", err)
				}
			}

			return viewer.Run(viewer.Config{
				Source:     source,
				SocketPath: socketPath,
				Strict:     strict,
				TailSize:   tailSize,
				StaleS:     staleS,
				DeadS:      deadS,
				PacksDir:   packsDir,
				Transform:  tr,
			}, os.Stdout)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&source, "source", "stdin", "frame source: stdin|unix")
	flags.StringVar(&socketPath, "socket-path", config.StringOr(fileCfg.SocketPath, "/tmp/hawk.sock"), "broadcast socket path, used when --source=unix")
	flags.BoolVar(&strict, "strict", false, "terminate the source on its first parse error")
	flags.IntVar(&tailSize, "tail-size", config.IntOr(fileCfg.TailSize, 200), "recent-frame tail capacity")
	flags.IntVar(&staleS, "stale-s", config.IntOr(fileCfg.StaleS, 10), "default stale threshold, seconds")
	flags.IntVar(&deadS, "dead-s", config.IntOr(fileCfg.DeadS, 30), "default dead threshold, seconds")
	flags.StringVar(&packsDir, "packs-dir", config.StringOr(fileCfg.PacksDir, "./packs"), "transform packs directory")
	flags.StringVar(&transform, "transform", "none", "transform selection: none|thread:<id>|file:<path>")
	flags.StringArrayVar(&tvars, "tvar", nil, "transform argument k=v (repeatable)")
	flags.StringVar(&logLevel, "log-level", config.StringOr(fileCfg.LogLevel, "info"), "debug|info|warn|error")

	cmd.AddCommand(packCmd(&packsDir))
	cmd.AddCommand(packDoctorCmd(&packsDir))

	return cmd
}

func parseTVars(raw []string) (map[string]string, error) {
	out := make(map[string]string, len(raw))
	for _, kv := range raw {
		idx := strings.Index(kv, "=")
		if idx < 0 {
			return nil, fmt.Errorf("invalid --tvar %q, want k=v", kv)
		}
		out[kv[:idx]] = kv[idx+1:]
	}
	return out, nil
}

func packCmd(packsDir *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pack",
		Short: "Inspect and validate transform packs",
	}
	cmd.AddCommand(packListCmd(packsDir))
	cmd.AddCommand(packShowCmd(packsDir))
	cmd.AddCommand(packDoctorSubCmd(packsDir))
	return cmd
}

func packListCmd(packsDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every resolved thread",
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := pack.Load(*packsDir)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tPACK\tKIND\tTITLE")
			for _, p := range idx.Packs {
				for _, th := range p.Threads {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", th.ID, p.ID, th.Kind, th.Title)
				}
			}
			return w.Flush()
		},
	}
}

func packShowCmd(packsDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a single thread's schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := pack.Load(*packsDir)
			if err != nil {
				return err
			}
			th, ok := idx.ResolveThread(args[0])
			if !ok {
				return fmt.Errorf("unknown thread id %q", args[0])
			}
			fmt.Printf("id:          %s\npack:        %s\ntitle:       %s\nkind:        %s\nscript:      %s\ndescription: %s\n",
				th.ID, th.PackID, th.Title, th.Kind, th.ScriptPath, th.Description)
			if len(th.Args) > 0 {
				fmt.Println("args:")
				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "  NAME\tTYPE\tDEFAULT\tHELP")
				for _, a := range th.Args {
					fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", a.Name, a.Type, a.Default, a.Help)
				}
				w.Flush()
			}
			return nil
		},
	}
}

// packDoctorSubCmd implements "hawk pack doctor".
func packDoctorSubCmd(packsDir *string) *cobra.Command {
	cmd := &cobra.Command{Use: "doctor", Short: "Run static and smoke checks over every thread"}
	addDoctorFlags(cmd, packsDir)
	return cmd
}

// packDoctorCmd implements the top-level "hawk pack-doctor" alias named
// explicitly in the CLI surface alongside the "pack doctor" subcommand.
func packDoctorCmd(packsDir *string) *cobra.Command {
	cmd := &cobra.Command{Use: "pack-doctor", Short: "Run static and smoke checks over every thread"}
	addDoctorFlags(cmd, packsDir)
	return cmd
}

func addDoctorFlags(cmd *cobra.Command, packsDir *string) {
	var smoke bool
	var security string
	cmd.Flags().BoolVar(&smoke, "smoke", true, "run the live smoke test in addition to static checks")
	cmd.Flags().StringVar(&security, "security", "warn", "security scan mode: strict|warn|off")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		idx, err := pack.Load(*packsDir)
		if err != nil {
			return err
		}
		anyError := false
		for _, p := range idx.Packs {
			for _, th := range p.Threads {
				report, err := doctor.Run(th, doctor.Options{Smoke: smoke, Security: doctor.SecurityMode(security)})
				if err != nil {
					return err
				}
				printReport(report)
				if !report.OK() {
					anyError = true
				}
			}
		}
		if anyError {
			return doctorFailure{}
		}
		fmt.Println("ok")
		return nil
	}
}

func printReport(r doctor.Report) {
	for _, f := range r.Findings {
		kind := "error"
		if f.Warning {
			kind = "warning"
		}
		fmt.Printf("%s [%s] %s\n", r.ThreadID, kind, f.Message)
	}
}
