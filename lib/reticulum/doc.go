// Package reticulum wires the node together: it loads the transport
// identity and the known destinations table, builds the transport and the
// configured interfaces, and runs them until stopped.
package reticulum
