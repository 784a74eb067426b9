//go:build linux

package spine

import (
	"net"

	"golang.org/x/sys/unix"
)

// peerCredentials reads the connecting process's pid/uid off a Unix domain
// socket via SO_PEERCRED, for debug-level connection logging. ok is false
// for any non-Unix connection or any syscall failure.
func peerCredentials(conn net.Conn) (pid int, uid uint32, ok bool) {
	uc, isUnix := conn.(*net.UnixConn)
	if !isUnix {
		return 0, 0, false
	}
	raw, err := uc.SyscallConn()
	if err != nil {
		return 0, 0, false
	}

	var cred *unix.Ucred
	var credErr error
	ctrlErr := raw.Control(func(fd uintptr) {
		cred, credErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	})
	if ctrlErr != nil || credErr != nil || cred == nil {
		return 0, 0, false
	}
	return int(cred.Pid), cred.Uid, true
}
