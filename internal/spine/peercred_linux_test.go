//go:build linux

package spine

import (
	"net"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPeerCredentialsOverUnixSocket(t *testing.T) {
	sockPath := t.TempDir() + "/peercred.sock"
	ln, err := net.Listen("unix", sockPath)
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		require.NoError(t, err)
		accepted <- conn
	}()

	client, err := net.Dial("unix", sockPath)
	require.NoError(t, err)
	defer client.Close()

	server := <-accepted
	defer server.Close()

	pid, uid, ok := peerCredentials(server)
	require.True(t, ok)
	require.Equal(t, os.Getpid(), pid)
	require.Equal(t, uint32(os.Getuid()), uid)
}

func TestPeerCredentialsRejectsNonUnixConn(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		require.NoError(t, err)
		accepted <- conn
	}()

	client, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer client.Close()

	server := <-accepted
	defer server.Close()

	_, _, ok := peerCredentials(server)
	require.False(t, ok)
}
