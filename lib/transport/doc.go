// Package transport turns received frames into validated announces and
// dispatches them to registered handlers.
//
// # Overview
//
// The Transport owns the known destinations table, the handler registry
// and one interface per connection. Raw bytes enter through FeedBytes or
// through an attached interface; every decoded frame goes through Inbound:
//
//   - packets with the IFAC flag are dropped
//   - the header is unpacked, malformed frames are dropped
//   - announces are validated and recorded in the known destinations
//   - validated announces are dispatched to every handler whose aspect
//     filter hashes to the announced destination
//
// Other packet types are counted and ignored.
//
// # Handlers
//
// A handler names an aspect filter such as "nomadnetwork.node". For each
// validated announce the transport recomputes the destination hash of the
// filter bound to the announced identity and calls the handler only on an
// exact match. Announces answering a path request are delivered only to
// handlers that ask for them. A handler returning an error or panicking is
// logged and does not affect the others.
//
// # Thread Safety
//
// Transport is safe for concurrent use. Each interface serialises its own
// frames; handlers run synchronously on the goroutine that received the
// announce.
package transport
