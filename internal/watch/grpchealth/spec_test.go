package grpchealth

import (
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/health/grpc_health_v1"
)

func TestParseSpecDefaultsID(t *testing.T) {
	sp := ParseSpec("localhost:9090,svc.one")
	require.Equal(t, "localhost:9090", sp.Endpoint)
	require.Equal(t, "svc.one", sp.Service)
	require.Equal(t, "grpc.localhost_9090svc.one", sp.ID)
}

func TestParseSpecExplicitID(t *testing.T) {
	sp := ParseSpec("localhost:9090,svc.one,myid")
	require.Equal(t, "myid", sp.ID)
}

func TestParseSpecEndpointOnly(t *testing.T) {
	sp := ParseSpec("localhost:9090")
	require.Equal(t, "localhost:9090", sp.Endpoint)
	require.Equal(t, "", sp.Service)
	require.Equal(t, "grpc.localhost_9090", sp.ID)
}

func TestNormalizeEndpoint(t *testing.T) {
	require.Equal(t, "http://host:1", NormalizeEndpoint("host:1", TLSOff))
	require.Equal(t, "https://host:1", NormalizeEndpoint("host:1", TLSOn))
	require.Equal(t, "https://host:1", NormalizeEndpoint("https://host:1", TLSOff))
}

func TestMapStatus(t *testing.T) {
	l, m := mapStatus(grpc_health_v1.HealthCheckResponse_SERVING)
	require.Equal(t, "SERVING", m)
	require.Equal(t, "ok", string(l))
}
