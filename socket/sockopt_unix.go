//go:build unix

package socket

import (
	"syscall"

	"golang.org/x/sys/unix"
)

func setReuseAddr(fd uintptr) error {
	return unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
}

func setBroadcast(rc syscall.RawConn, enabled bool) error {
	v := 0
	if enabled {
		v = 1
	}
	var opErr error
	err := rc.Control(func(fd uintptr) {
		opErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_BROADCAST, v)
	})
	if err != nil {
		return err
	}
	return opErr
}
