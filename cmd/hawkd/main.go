// Command hawkd is the spine daemon: it ingests structured health events
// from stdin, a Unix ingest socket, gRPC health-watch clients, and systemd
// unit-state subscribers, and fans them out over a Unix broadcast socket.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hawkmirror/hawk/internal/config"
	"github.com/hawkmirror/hawk/internal/daemon"
	"github.com/hawkmirror/hawk/internal/hlog"
	"github.com/hawkmirror/hawk/internal/watch/grpchealth"
	"github.com/spf13/cobra"
)

// loadFileDefaults reads ~/.hawk/hawk.yaml, if present, so flag defaults can
// be computed as file-over-builtin ahead of flag registration. A load error
// is non-fatal: the daemon falls back to built-in defaults.
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
		fmt.Fprintln(os.Stderr, "hawkd:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		socketPath      string
		overwrite       bool
		ingestPath      string
		ingestOverwrite bool
		strict          bool
		source          string
		clientBanner    bool
		watches         []string
		units           []string
		grpcTLSMode     string
		grpcCA          string
		grpcDomain      string
		grpcCert        string
		grpcKey         string
		systemdTTLStale int
		systemdTTLDead  int
		grpcTTLStale    int
		grpcTTLDead     int
		logLevel        string
	)

	fileCfg := loadFileDefaults()

	cmd := &cobra.Command{
		Use:   "hawkd",
		Short: "Health-mirror spine daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := hlog.Init(logLevel, ""); err != nil {
				return err
			}
			return daemon.Run(daemon.Config{
				SocketPath:      socketPath,
				Overwrite:       overwrite,
				IngestPath:      ingestPath,
				IngestOverwrite: ingestOverwrite,
				Strict:          strict,
				Source:          source,
				ClientBanner:    clientBanner,
				Watches:         watches,
				Units:           units,
				GRPCTLSMode:     grpchealth.TLSMode(grpcTLSMode),
				GRPCCA:          grpcCA,
				GRPCDomain:      grpcDomain,
				GRPCCert:        grpcCert,
				GRPCKey:         grpcKey,
				SystemdTTLStaleS: systemdTTLStale,
				SystemdTTLDeadS:  systemdTTLDead,
				GRPCTTLStaleS:    grpcTTLStale,
				GRPCTTLDeadS:     grpcTTLDead,
			})
		},
	}

	clientBannerDefault := true
	if fileCfg.ClientBanner != nil {
		clientBannerDefault = *fileCfg.ClientBanner
	}

	flags := cmd.Flags()
	flags.StringVar(&socketPath, "socket-path", config.StringOr(fileCfg.SocketPath, "/tmp/hawk.sock"), "broadcast socket path")
	flags.BoolVar(&overwrite, "overwrite", true, "remove a stale broadcast socket before binding")
	flags.StringVar(&ingestPath, "ingest-path", config.StringOr(fileCfg.IngestPath, "/tmp/hawk-ingest.sock"), "ingest socket path")
	flags.BoolVar(&ingestOverwrite, "ingest-overwrite", true, "remove a stale ingest socket before binding")
	flags.BoolVar(&strict, "strict", false, "terminate a producer handler on its first parse error")
	flags.StringVar(&source, "source", "none", "additional frame source: stdin|none")
	flags.BoolVar(&clientBanner, "client-banner", clientBannerDefault, "send a banner comment to new socket connections")
	flags.StringArrayVar(&watches, "watch", nil, "gRPC health-watch target endpoint[,service[,id]] (repeatable)")
	flags.StringArrayVar(&units, "unit", nil, "systemd unit to watch, unit[,id] (repeatable)")
	flags.StringVar(&grpcTLSMode, "grpc-tls-mode", "off", "gRPC watcher TLS mode: off|tls|mtls")
	flags.StringVar(&grpcCA, "grpc-ca", "", "PEM CA certificate for gRPC TLS modes")
	flags.StringVar(&grpcDomain, "grpc-domain", "", "TLS verification domain override")
	flags.StringVar(&grpcCert, "grpc-cert", "", "PEM client certificate for mtls")
	flags.StringVar(&grpcKey, "grpc-key", "", "PEM client key for mtls")
	flags.IntVar(&systemdTTLStale, "systemd-ttl-stale-s", 0, "ttl_stale_s stamped by systemd watchers")
	flags.IntVar(&systemdTTLDead, "systemd-ttl-dead-s", 0, "ttl_dead_s stamped by systemd watchers")
	flags.IntVar(&grpcTTLStale, "grpc-ttl-stale-s", 0, "ttl_stale_s stamped by gRPC watchers")
	flags.IntVar(&grpcTTLDead, "grpc-ttl-dead-s", 0, "ttl_dead_s stamped by gRPC watchers")
	flags.StringVar(&logLevel, "log-level", config.StringOr(fileCfg.LogLevel, "info"), "debug|info|warn|error")

	return cmd
}
