// Package socket implements a single UDP socket client.
//
// A Client owns at most one *net.UDPConn and moves through three states:
//
//	unbound ──Bind──▶ bound ──Close──▶ closed
//	   │                                  ▲
//	   └──────────────Close───────────────┘
//
// Send on an unbound client binds it implicitly to the wildcard address
// and an ephemeral port, so replies to the sender are received.
//
// Once bound, a background read loop delivers every datagram to the
// client's Listener. The loop exits when the client is closed; other read
// errors are reported through Listener.OnError and the loop keeps going.
//
// Multicast group membership is delegated to a Membership implementation.
// The default uses golang.org/x/net/ipv4 and ipv6 packet connections.
//
// Methods are safe for concurrent use, but the package does not order
// operations issued from different goroutines.
package socket
