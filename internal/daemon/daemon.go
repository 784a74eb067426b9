// Package daemon wires the spine, its Unix sockets, and the external
// watchers into the long-running hawkd process.
package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hawkmirror/hawk/internal/frame"
	"github.com/hawkmirror/hawk/internal/hlog"
	"github.com/hawkmirror/hawk/internal/spine"
	"github.com/hawkmirror/hawk/internal/watch/grpchealth"
	"github.com/hawkmirror/hawk/internal/watch/systemdunit"
)

// Config holds every daemon CLI flag.
type Config struct {
	SocketPath      string
	Overwrite       bool
	IngestPath      string
	IngestOverwrite bool
	Strict          bool
	Source          string // stdin|none
	ClientBanner    bool

	Watches []string // endpoint[,service[,id]]
	Units   []string // unit[,id]

	GRPCTLSMode grpchealth.TLSMode
	GRPCCA      string
	GRPCDomain  string
	GRPCCert    string
	GRPCKey     string

	SystemdTTLStaleS int
	SystemdTTLDeadS  int
	GRPCTTLStaleS    int
	GRPCTTLDeadS     int
}

// Run starts the spine, its sockets, and every configured watcher, then
// blocks until a termination signal or an unrecoverable startup error.
func Run(cfg Config) error {
	s := spine.New()

	broadcastBanner := ""
	ingestBanner := ""
	if cfg.ClientBanner {
		broadcastBanner = "# hawkd connected"
		ingestBanner = "# hawkd ingest connected"
	}

	bcastLn, err := s.ListenBroadcast(cfg.SocketPath, cfg.Overwrite, broadcastBanner)
	if err != nil {
		return fmt.Errorf("listen broadcast socket: %w", err)
	}
	defer bcastLn.Close()
	hlog.Info("broadcast socket listening", "path", cfg.SocketPath)

	ingestLn, err := s.ListenIngest(cfg.IngestPath, cfg.IngestOverwrite, ingestBanner, cfg.Strict)
	if err != nil {
		return fmt.Errorf("listen ingest socket: %w", err)
	}
	defer ingestLn.Close()
	hlog.Info("ingest socket listening", "path", cfg.IngestPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Source == "stdin" {
		go s.RunStdinSource(os.Stdin, cfg.Strict)
	}

	startWatchers(ctx, cfg, s)

	go s.RunBroadcastLoop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	hlog.Info("hawkd started")

	sig := <-sigCh
	hlog.Info("received signal, shutting down", "signal", sig.String())
	cancel()
	time.Sleep(200 * time.Millisecond)

	return nil
}

func startWatchers(ctx context.Context, cfg Config, s *spine.Spine) {
	for _, raw := range cfg.Watches {
		spec := grpchealth.ParseSpec(raw)
		wcfg := grpchealth.Config{
			Spec: spec,
			TLS: grpchealth.TLSConfig{
				Mode:       cfg.GRPCTLSMode,
				CAPath:     cfg.GRPCCA,
				CertPath:   cfg.GRPCCert,
				KeyPath:    cfg.GRPCKey,
				DomainName: cfg.GRPCDomain,
			},
			StaleS: cfg.GRPCTTLStaleS,
			DeadS:  cfg.GRPCTTLDeadS,
		}
		go grpchealth.Watch(ctx, wcfg, func(f frame.Frame) {
			s.PostFrame(f, time.Now())
		})
	}

	for _, raw := range cfg.Units {
		spec := systemdunit.ParseSpec(raw)
		ucfg := systemdunit.Config{
			Spec:   spec,
			StaleS: cfg.SystemdTTLStaleS,
			DeadS:  cfg.SystemdTTLDeadS,
		}
		go systemdunit.Watch(ctx, ucfg, func(f frame.Frame) {
			s.PostFrame(f, time.Now())
		})
	}
}
