// Package errors provides structured error types for the udp-sockets library.
//
// Errors are categorized by Op (which socket operation failed) and Code
// (a stable, enumerated failure name). The Error type carries the client
// handle, a human-readable detail and the underlying cause.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.OpBind, errors.CodeAlreadyBound).
//		Handle(7).
//		Detail("socket is already bound to %s", addr).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.ClientNotFound(errors.OpSend, 7)
//	err := errors.Send(7, "write failed", cause)
//
// Codes are stable across releases and are what callers on the other side
// of a process or language boundary should match on. All errors implement
// the standard error interface and support errors.Is/As:
//
//	if errors.Is(err, errors.ErrClientNotFound) { ... }
package errors
