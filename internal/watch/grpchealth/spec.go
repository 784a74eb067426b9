// Package grpchealth implements the gRPC health-watch external watcher: it
// streams the standard grpc.health.v1.Health service's Watch RPC and emits
// HealthFrames reflecting each status change into the spine.
package grpchealth

import "strings"

// Spec is a parsed "endpoint[,service[,id]]" watch target.
type Spec struct {
	Endpoint string
	Service  string
	ID       string
}

// ParseSpec parses a comma-separated endpoint[,service[,id]] watch target.
// When id is omitted it is derived from endpoint+service by replacing "/"
// and ":" with "_" and prefixing "grpc.".
func ParseSpec(raw string) Spec {
	parts := strings.SplitN(raw, ",", 3)
	sp := Spec{Endpoint: parts[0]}
	if len(parts) > 1 {
		sp.Service = parts[1]
	}
	if len(parts) > 2 && parts[2] != "" {
		sp.ID = parts[2]
	} else {
		sp.ID = deriveID(sp.Endpoint, sp.Service)
	}
	return sp
}

func deriveID(endpoint, service string) string {
	raw := endpoint + service
	replacer := strings.NewReplacer("/", "_", ":", "_")
	return "grpc." + replacer.Replace(raw)
}

// TLSMode is one of off|tls|mtls.
type TLSMode string

const (
	TLSOff  TLSMode = "off"
	TLSOn   TLSMode = "tls"
	TLSMut  TLSMode = "mtls"
)

// NormalizeEndpoint prepends http:// (TLS off) or https:// (TLS on/mtls) to
// endpoint when it does not already carry an http(s) scheme.
func NormalizeEndpoint(endpoint string, mode TLSMode) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	if mode == TLSOff {
		return "http://" + endpoint
	}
	return "https://" + endpoint
}
