// Package interfaces connects byte streams to the transport.
//
// An Interface is one connection's receive side. It owns the HDLC framer
// for that connection, serialises Receive calls, and hands each decoded
// frame to its Owner. Panics raised while the owner processes a frame are
// recovered and logged, so one bad frame never stops the stream.
//
// The TCP interfaces produce the byte streams:
//   - TCPClientInterface dials a Reticulum TCP server interface
//   - TCPServerInterface accepts Reticulum peers, one child interface per connection
//   - TCPTapInterface sits between a local client and a remote node, relays
//     both directions unchanged and feeds each direction to the transport
//
// None of them originate packets.
package interfaces
