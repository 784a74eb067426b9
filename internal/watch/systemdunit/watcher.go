// Package systemdunit implements the systemd unit-state external watcher:
// it subscribes to a unit's PropertiesChanged signal over the system D-Bus
// and emits a HealthFrame snapshot on every change.
package systemdunit

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/hawkmirror/hawk/internal/frame"
	"github.com/hawkmirror/hawk/internal/hlog"
	"github.com/hawkmirror/hawk/internal/watch"
)

const (
	managerIface  = "org.freedesktop.systemd1.Manager"
	managerPath   = dbus.ObjectPath("/org/freedesktop/systemd1")
	unitIface     = "org.freedesktop.systemd1.Unit"
	propsIface    = "org.freedesktop.DBus.Properties"
	propsChanged  = propsIface + ".PropertiesChanged"
)

// Spec is a parsed "unit[,id]" watch target.
type Spec struct {
	Unit string
	ID   string
}

// ParseSpec parses a comma-separated unit[,id] watch target. id defaults to
// unit when omitted.
func ParseSpec(raw string) Spec {
	parts := strings.SplitN(raw, ",", 2)
	sp := Spec{Unit: parts[0], ID: parts[0]}
	if len(parts) > 1 && parts[1] != "" {
		sp.ID = parts[1]
	}
	return sp
}

// Sink receives HealthFrames emitted by a watcher.
type Sink func(f frame.Frame)

// Config is one watcher instance's configuration.
type Config struct {
	Spec   Spec
	StaleS int
	DeadS  int
}

// snapshot is the set of unit properties read for each emission.
type snapshot struct {
	ActiveState string
	SubState    string
	LoadState   string
	Description string
}

// Watch runs the systemd unit-watch loop until ctx is cancelled: connect,
// subscribe to PropertiesChanged, emit an initial snapshot, then re-emit on
// every signal. Failures are surfaced as in-band fail frames and retried
// with the shared backoff policy.
func Watch(ctx context.Context, cfg Config, emit Sink) {
	bo := watch.DefaultBackoff()
	for {
		if ctx.Err() != nil {
			return
		}
		if err := watchOnce(ctx, cfg, bo, emit); err != nil {
			emit(failFrame(cfg, err))
			delay := bo.Next()
			hlog.Debug("systemd unit watch retry", "unit", cfg.Spec.Unit, "delay", delay, "error", err)
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

func watchOnce(ctx context.Context, cfg Config, bo *watch.Backoff, emit Sink) error {
	conn, err := dbus.ConnectSystemBus(dbus.WithContext(ctx))
	if err != nil {
		return err
	}
	defer conn.Close()

	unitPath, err := lookupUnitPath(conn, cfg.Spec.Unit)
	if err != nil {
		return err
	}

	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(unitPath),
		dbus.WithMatchInterface(propsIface),
		dbus.WithMatchMember("PropertiesChanged"),
	); err != nil {
		return err
	}

	signals := make(chan *dbus.Signal, 16)
	conn.Signal(signals)
	defer conn.RemoveSignal(signals)

	snap, err := readSnapshot(conn, unitPath)
	if err != nil {
		return err
	}
	emit(snapshotFrame(cfg, snap))
	bo.Reset()

	for {
		select {
		case <-ctx.Done():
			return nil
		case sig, ok := <-signals:
			if !ok {
				return nil
			}
			if sig.Path != unitPath || sig.Name != propsChanged {
				continue
			}
			snap, err := readSnapshot(conn, unitPath)
			if err != nil {
				return err
			}
			emit(snapshotFrame(cfg, snap))
		}
	}
}

func lookupUnitPath(conn *dbus.Conn, unit string) (dbus.ObjectPath, error) {
	obj := conn.Object("org.freedesktop.systemd1", managerPath)
	var path dbus.ObjectPath
	if err := obj.Call(managerIface+".GetUnit", 0, unit).Store(&path); err != nil {
		return "", err
	}
	return path, nil
}

func readSnapshot(conn *dbus.Conn, unitPath dbus.ObjectPath) (snapshot, error) {
	obj := conn.Object("org.freedesktop.systemd1", unitPath)

	get := func(prop string) (string, error) {
		v, err := obj.GetProperty(unitIface + "." + prop)
		if err != nil {
			return "", err
		}
		s, _ := v.Value().(string)
		return s, nil
	}

	active, err := get("ActiveState")
	if err != nil {
		return snapshot{}, err
	}
	sub, err := get("SubState")
	if err != nil {
		return snapshot{}, err
	}
	load, err := get("LoadState")
	if err != nil {
		return snapshot{}, err
	}
	desc, _ := get("Description")

	return snapshot{ActiveState: active, SubState: sub, LoadState: load, Description: desc}, nil
}

// levelFor maps a unit snapshot to a frame level per the documented
// precedence: not-found load state and failed active/sub states are fail
// regardless of other fields.
func levelFor(s snapshot) frame.Level {
	switch {
	case s.LoadState == "not-found":
		return frame.LevelFail
	case s.ActiveState == "failed" || s.SubState == "failed":
		return frame.LevelFail
	case s.ActiveState == "active":
		return frame.LevelOK
	case s.ActiveState == "activating" || s.ActiveState == "reloading":
		return frame.LevelInfo
	case s.ActiveState == "deactivating" || s.ActiveState == "inactive":
		return frame.LevelWarn
	default:
		return frame.LevelUnknown
	}
}

func snapshotFrame(cfg Config, s snapshot) frame.Frame {
	kv := frame.KV{
		"unit":   cfg.Spec.Unit,
		"active": s.ActiveState,
		"sub":    s.SubState,
		"load":   s.LoadState,
	}
	if s.Description != "" {
		kv["desc"] = s.Description
	}
	if cfg.StaleS > 0 {
		kv["ttl_stale_s"] = strconv.Itoa(cfg.StaleS)
	}
	if cfg.DeadS > 0 {
		kv["ttl_dead_s"] = strconv.Itoa(cfg.DeadS)
	}
	return frame.Frame{
		Kind:  "HEALTH",
		Scope: "systemd",
		ID:    cfg.Spec.ID,
		Level: levelFor(s),
		Msg:   s.ActiveState + ":" + s.SubState,
		KV:    kv,
	}
}

func failFrame(cfg Config, err error) frame.Frame {
	return frame.Frame{
		Kind:  "HEALTH",
		Scope: "systemd",
		ID:    cfg.Spec.ID,
		Level: frame.LevelFail,
		Msg:   "watch failed",
		KV: frame.KV{
			"unit":  cfg.Spec.Unit,
			"error": err.Error(),
		},
	}
}
