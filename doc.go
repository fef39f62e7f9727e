// Package udpsockets manages a set of UDP sockets named by caller-assigned
// integer handles and runs every socket operation on a small worker pool.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	udpsockets/          Root package, documentation only
//	├── dispatch/        Worker pool, futures, event stream and metrics
//	├── socket/          One UDP socket: bind, send, membership, broadcast, read loop
//	├── resource/        Handle table mapping caller handles to clients
//	├── multicast/       Lazily created, reference-counted multicast lock
//	├── config/          YAML configuration and logger construction
//	├── errors/          Structured error types with stable codes
//	└── cmd/udpctl/      Command-line tool and interactive console
//
// # Quick Start
//
// Create two clients and send a datagram from one to the other:
//
//	d, err := dispatch.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer d.Shutdown(ctx)
//
//	_ = d.CreateSocket(1, socket.Options{})
//	_ = d.CreateSocket(2, socket.Options{})
//
//	bound, err := d.Bind(1, 0, "127.0.0.1").Result()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	err = d.Send(2, []byte("ping"), bound.Port, "127.0.0.1").Err()
//
//	ev := <-d.Events()
//	fmt.Printf("%d got %q from %s:%d\n", ev.Handle, ev.Payload, ev.SourceHost, ev.SourcePort)
//
// # Error Codes
//
// Failed operations resolve their future with an *errors.Error. Its Code
// is one of:
//
//   - clientNotFound: no live client under the handle
//   - socketAlreadyBoundError: bind on a bound client, or the OS refused the endpoint
//   - sendError: the datagram could not be sent
//   - setBroadcast: SO_BROADCAST could not be changed
//   - membershipError: a multicast join or leave failed (also logged)
//   - clientAlreadyExists, dispatcherClosed, internal, invalidConfig
//
// # Thread Safety
//
// Dispatcher methods are safe for concurrent use. Operations on different
// handles may run in parallel. Operations on the same handle are only
// ordered by the shared queue, so callers that need strict ordering wait
// on each future before issuing the next operation.
//
// # Multicast
//
// Joining a group takes a hold on a process-wide lock that is created on
// first use. Holds are released on leave, close and DestroyAll whether or
// not the underlying socket call succeeded, and a failed join never keeps
// its hold.
package udpsockets
