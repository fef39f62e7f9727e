package socket

import (
	"errors"
	"net"
	"os"
	"syscall"
)

// reason converts a net package error into a short description used as
// the Detail of a structured error.
func reason(err error) string {
	if err == nil {
		return ""
	}

	if errors.Is(err, net.ErrClosed) {
		return "socket is closed"
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if r := opReason(opErr); r != "" {
			return r
		}
	}

	var addrErr *net.AddrError
	if errors.As(err, &addrErr) {
		return "invalid address"
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTemporary {
			return "temporary resolver failure"
		}
		if dnsErr.IsNotFound {
			return "name unresolvable"
		}
		return "resolver failure"
	}

	if os.IsTimeout(err) {
		return "timeout"
	}

	if os.IsPermission(err) {
		return "access denied"
	}

	return "unknown network error"
}

func opReason(opErr *net.OpError) string {
	var errno syscall.Errno
	if errors.As(opErr.Err, &errno) {
		return errnoReason(errno)
	}

	if opErr.Timeout() {
		return "timeout"
	}

	if opErr.Err != nil {
		switch opErr.Err.Error() {
		case "network is unreachable", "host is unreachable", "no route to host":
			return "remote unreachable"
		case "connection refused":
			return "connection refused"
		}
	}

	return ""
}

func errnoReason(errno syscall.Errno) string {
	switch errno {
	case syscall.EACCES, syscall.EPERM:
		return "access denied"
	case syscall.EADDRINUSE:
		return "address in use"
	case syscall.EADDRNOTAVAIL:
		return "address not bindable"
	case syscall.ECONNREFUSED:
		return "connection refused"
	case syscall.EHOSTUNREACH, syscall.ENETUNREACH:
		return "remote unreachable"
	case syscall.ETIMEDOUT:
		return "timeout"
	case syscall.EINVAL:
		return "invalid argument"
	case syscall.ENOMEM, syscall.ENOBUFS:
		return "out of memory"
	case syscall.EMSGSIZE:
		return "datagram too large"
	case syscall.EMFILE, syscall.ENFILE:
		return "socket limit reached"
	case syscall.ENOTSOCK, syscall.ENOTCONN:
		return "invalid state"
	default:
		return errno.Error()
	}
}
