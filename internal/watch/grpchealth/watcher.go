package grpchealth

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/hawkmirror/hawk/internal/frame"
	"github.com/hawkmirror/hawk/internal/hlog"
	"github.com/hawkmirror/hawk/internal/watch"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"
)

const (
	connectTimeout = 5 * time.Second
	callTimeout    = 15 * time.Second
)

// Sink receives HealthFrames emitted by a watcher.
type Sink func(f frame.Frame)

// Config is one watcher instance's full configuration.
type Config struct {
	Spec    Spec
	TLS     TLSConfig
	StaleS  int
	DeadS   int
}

// Watch runs the gRPC health-watch loop until ctx is cancelled. It never
// returns an error to the caller: connect/stream failures are surfaced as
// in-band fail frames and retried with backoff.
func Watch(ctx context.Context, cfg Config, emit Sink) {
	endpoint := NormalizeEndpoint(cfg.Spec.Endpoint, cfg.TLS.Mode)
	bo := watch.DefaultBackoff()

	for {
		if ctx.Err() != nil {
			return
		}
		if err := watchOnce(ctx, endpoint, cfg, bo, emit); err != nil {
			emit(failFrame(cfg, err))
			delay := bo.Next()
			hlog.Debug("grpc health watch retry", "endpoint", endpoint, "delay", delay, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			continue
		}
		bo.Reset()
	}
}

func watchOnce(ctx context.Context, endpoint string, cfg Config, bo *watch.Backoff, emit Sink) error {
	creds, err := cfg.TLS.Credentials(endpoint)
	if err != nil {
		return err
	}

	dialCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	target := strings.TrimPrefix(strings.TrimPrefix(endpoint, "https://"), "http://")
	conn, err := grpc.DialContext(dialCtx, target, grpc.WithTransportCredentials(creds), grpc.WithBlock())
	if err != nil {
		return err
	}
	defer conn.Close()
	bo.Reset()

	client := grpc_health_v1.NewHealthClient(conn)

	callCtx, cancelCall := context.WithTimeout(ctx, callTimeout)
	defer cancelCall()

	stream, err := client.Watch(callCtx, &grpc_health_v1.HealthCheckRequest{Service: cfg.Spec.Service})
	if err != nil {
		return err
	}

	for {
		resp, err := stream.Recv()
		if err != nil {
			return err
		}
		emit(statusFrame(cfg, resp.Status))
	}
}

func statusFrame(cfg Config, status grpc_health_v1.HealthCheckResponse_ServingStatus) frame.Frame {
	level, msg := mapStatus(status)
	kv := frame.KV{
		"endpoint":    cfg.Spec.Endpoint,
		"service":     cfg.Spec.Service,
		"grpc_status": msg,
	}
	if cfg.StaleS > 0 {
		kv["ttl_stale_s"] = strconv.Itoa(cfg.StaleS)
	}
	if cfg.DeadS > 0 {
		kv["ttl_dead_s"] = strconv.Itoa(cfg.DeadS)
	}
	return frame.Frame{
		Kind:  "HEALTH",
		Scope: "grpc",
		ID:    cfg.Spec.ID,
		Level: level,
		Msg:   msg,
		KV:    kv,
	}
}

func mapStatus(status grpc_health_v1.HealthCheckResponse_ServingStatus) (frame.Level, string) {
	switch status {
	case grpc_health_v1.HealthCheckResponse_SERVING:
		return frame.LevelOK, "SERVING"
	case grpc_health_v1.HealthCheckResponse_NOT_SERVING:
		return frame.LevelFail, "NOT_SERVING"
	case grpc_health_v1.HealthCheckResponse_SERVICE_UNKNOWN:
		return frame.LevelWarn, "SERVICE_UNKNOWN"
	default:
		return frame.LevelUnknown, "UNKNOWN"
	}
}

func failFrame(cfg Config, err error) frame.Frame {
	return frame.Frame{
		Kind:  "HEALTH",
		Scope: "grpc",
		ID:    cfg.Spec.ID,
		Level: frame.LevelFail,
		Msg:   "watch failed",
		KV: frame.KV{
			"endpoint": cfg.Spec.Endpoint,
			"service":  cfg.Spec.Service,
			"error":    err.Error(),
		},
	}
}
