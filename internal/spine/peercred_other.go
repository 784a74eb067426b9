//go:build !linux

package spine

import "net"

// peerCredentials is a no-op on platforms without SO_PEERCRED.
func peerCredentials(conn net.Conn) (pid int, uid uint32, ok bool) {
	return 0, 0, false
}
