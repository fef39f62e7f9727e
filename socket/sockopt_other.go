//go:build !unix && !windows

package socket

import (
	"errors"
	"syscall"
)

func setReuseAddr(uintptr) error {
	return errors.ErrUnsupported
}

func setBroadcast(syscall.RawConn, bool) error {
	return errors.ErrUnsupported
}
