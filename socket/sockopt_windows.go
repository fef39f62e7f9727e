//go:build windows

package socket

import (
	"syscall"

	"golang.org/x/sys/windows"
)

func setReuseAddr(fd uintptr) error {
	return windows.SetsockoptInt(windows.Handle(fd), windows.SOL_SOCKET, windows.SO_REUSEADDR, 1)
}

func setBroadcast(rc syscall.RawConn, enabled bool) error {
	v := 0
	if enabled {
		v = 1
	}
	var opErr error
	err := rc.Control(func(fd uintptr) {
		opErr = windows.SetsockoptInt(windows.Handle(fd), windows.SOL_SOCKET, windows.SO_BROADCAST, v)
	})
	if err != nil {
		return err
	}
	return opErr
}
