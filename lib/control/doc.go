// Package control serves a read-only HTTP view of a running node.
//
//	GET /status                the transport identity, counters and interfaces
//	GET /destinations          every known destination
//	GET /destinations/:hash    one known destination, 404 when unknown
//	GET /handlers              the registered announce handlers
//
// Enable it in config.yaml:
//
//	control:
//	  enabled: true
//	  address: 127.0.0.1:7651
package control
