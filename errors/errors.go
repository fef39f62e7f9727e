package errors

import (
	"fmt"
	"strconv"
	"strings"
)

// Op indicates which operation produced the error
type Op string

const (
	OpCreate     Op = "create"     // registry insert
	OpBind       Op = "bind"       // local endpoint allocation
	OpSend       Op = "send"       // datagram transmission
	OpReceive    Op = "receive"    // background read loop
	OpMembership Op = "membership" // multicast join/leave
	OpBroadcast  Op = "broadcast"  // SO_BROADCAST toggle
	OpClose      Op = "close"      // resource release
	OpDispatch   Op = "dispatch"   // task scheduling
	OpConfig     Op = "config"     // configuration loading
)

// Code is the stable, enumerated name of a failure
type Code string

const (
	CodeClientNotFound   Code = "clientNotFound"
	CodeAlreadyBound     Code = "socketAlreadyBoundError"
	CodeSend             Code = "sendError"
	CodeBroadcast        Code = "setBroadcast"
	CodeMembership       Code = "membershipError"
	CodeClientExists     Code = "clientAlreadyExists"
	CodeReceive          Code = "receiveError"
	CodeDispatcherClosed Code = "dispatcherClosed"
	CodeInternal         Code = "internal"
	CodeInvalidConfig    Code = "invalidConfig"
)

// NoHandle marks errors that are not tied to a client.
const NoHandle = -1

// Error is the structured error type used throughout the library
type Error struct {
	Cause  error
	Op     Op
	Code   Code
	Detail string
	Handle int
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Op))
	b.WriteString("] ")
	b.WriteString(string(e.Code))

	if e.Handle != NoHandle {
		b.WriteString(" on handle ")
		b.WriteString(strconv.Itoa(e.Handle))
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Message returns the text reported next to Code when the error crosses
// the API boundary as a {code, message} pair.
func (e *Error) Message() string {
	switch {
	case e.Detail != "" && e.Cause != nil:
		return e.Detail + ": " + e.Cause.Error()
	case e.Detail != "":
		return e.Detail
	case e.Cause != nil:
		return e.Cause.Error()
	}
	return string(e.Code)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error. Codes must match; the op
// only has to match when the target names one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Code != e.Code {
		return false
	}
	return t.Op == "" || t.Op == e.Op
}

// Sentinels for errors.Is
var (
	ErrClientNotFound   = &Error{Code: CodeClientNotFound, Handle: NoHandle}
	ErrAlreadyBound     = &Error{Code: CodeAlreadyBound, Handle: NoHandle}
	ErrSend             = &Error{Code: CodeSend, Handle: NoHandle}
	ErrBroadcast        = &Error{Code: CodeBroadcast, Handle: NoHandle}
	ErrMembership       = &Error{Code: CodeMembership, Handle: NoHandle}
	ErrClientExists     = &Error{Code: CodeClientExists, Handle: NoHandle}
	ErrReceive          = &Error{Code: CodeReceive, Handle: NoHandle}
	ErrDispatcherClosed = &Error{Code: CodeDispatcherClosed, Handle: NoHandle}
	ErrInternal         = &Error{Code: CodeInternal, Handle: NoHandle}
	ErrInvalidConfig    = &Error{Code: CodeInvalidConfig, Handle: NoHandle}
)

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(op Op, code Code) *Builder {
	return &Builder{
		err: Error{
			Op:     op,
			Code:   code,
			Handle: NoHandle,
		},
	}
}

// Handle sets the client handle
func (b *Builder) Handle(h int) *Builder {
	b.err.Handle = h
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// ClientNotFound creates an unknown-handle error
func ClientNotFound(op Op, handle int) *Error {
	return &Error{
		Op:     op,
		Code:   CodeClientNotFound,
		Handle: handle,
		Detail: fmt.Sprintf("no client found with id %d", handle),
	}
}

// ClientExists creates a duplicate-handle error
func ClientExists(handle int) *Error {
	return &Error{
		Op:     OpCreate,
		Code:   CodeClientExists,
		Handle: handle,
		Detail: "createSocket called twice with the same id",
	}
}

// AlreadyBound creates a bind failure. A second bind and an OS refusal
// share this code.
func AlreadyBound(handle int, detail string, cause error) *Error {
	return &Error{
		Op:     OpBind,
		Code:   CodeAlreadyBound,
		Handle: handle,
		Detail: detail,
		Cause:  cause,
	}
}

// Send creates a transmission failure
func Send(handle int, detail string, cause error) *Error {
	return &Error{
		Op:     OpSend,
		Code:   CodeSend,
		Handle: handle,
		Detail: detail,
		Cause:  cause,
	}
}

// Membership creates a multicast join/leave failure
func Membership(handle int, detail string, cause error) *Error {
	return &Error{
		Op:     OpMembership,
		Code:   CodeMembership,
		Handle: handle,
		Detail: detail,
		Cause:  cause,
	}
}

// Broadcast creates a broadcast option failure
func Broadcast(handle int, detail string, cause error) *Error {
	return &Error{
		Op:     OpBroadcast,
		Code:   CodeBroadcast,
		Handle: handle,
		Detail: detail,
		Cause:  cause,
	}
}

// Receive creates a read loop failure
func Receive(handle int, cause error) *Error {
	return &Error{
		Op:     OpReceive,
		Code:   CodeReceive,
		Handle: handle,
		Detail: "failed to read from socket",
		Cause:  cause,
	}
}

// Closed creates an error for work submitted after shutdown
func Closed(op Op, handle int) *Error {
	return &Error{
		Op:     op,
		Code:   CodeDispatcherClosed,
		Handle: handle,
		Detail: "dispatcher is shut down",
	}
}

// Internal wraps an unexpected failure such as a recovered panic
func Internal(op Op, handle int, cause error) *Error {
	return &Error{
		Op:     op,
		Code:   CodeInternal,
		Handle: handle,
		Detail: "unexpected failure",
		Cause:  cause,
	}
}

// InvalidConfig creates a configuration validation error
func InvalidConfig(detail string, cause error) *Error {
	return &Error{
		Op:     OpConfig,
		Code:   CodeInvalidConfig,
		Handle: NoHandle,
		Detail: detail,
		Cause:  cause,
	}
}
