// Package dispatch serializes socket operations through a fixed pool of
// workers and funnels received datagrams into one event stream.
//
// # Operations
//
// Every client is named by a caller-assigned integer handle. CreateSocket
// registers an unbound client synchronously; every other operation is
// queued as a task and returns a Future resolved exactly once:
//
//	d, _ := dispatch.New(dispatch.WithWorkers(2))
//	defer d.Shutdown(context.Background())
//
//	_ = d.CreateSocket(1, socket.Options{})
//	res, err := d.Bind(1, 0, "").Result()
//	err = d.Send(1, []byte("ping"), 5000, "127.0.0.1").Err()
//
// Tasks are taken from one FIFO queue. With more than one worker, tasks
// for different handles run concurrently and tasks for the same handle
// are only ordered by when they were dequeued. Callers that need strict
// per-handle ordering wait for each future before issuing the next call.
//
// # Errors
//
// Futures resolve with *errors.Error values whose Code is one of the
// stable names in package errors. An unknown handle yields
// clientNotFound. Membership failures are also logged at error level.
// A panic inside a task is recovered, passed to the FaultHandler and
// reported on the future as an internal error.
//
// # Events
//
// Read loops run outside the pool. Each datagram is queued as a task that
// checks the client is still registered before sending an Event on the
// channel returned by Events. A full channel drops the event rather than
// stalling the workers.
//
// # Multicast lock
//
// AddMembership takes a hold on the shared multicast lock before joining
// and gives it back if the join fails. DropMembership, Close and
// DestroyAll release holds regardless of the outcome of the underlying
// leave or close.
package dispatch
