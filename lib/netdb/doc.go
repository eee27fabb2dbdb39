// Package netdb stores the destinations this node has learned from
// validated announces.
//
// Every accepted announce upserts one Record keyed by destination hash. The
// record holds the hash of the announce packet, the announced 64-byte public
// key and the application data carried by the announce. A later announce for
// the same destination overwrites the earlier record.
//
// # Thread Safety
//
// KnownDestinations is safe for concurrent access. Reads take a shared lock
// and return copies, so callers never observe a record mid-update.
//
// # Persistence
//
// Save writes the table as YAML to a temporary file next to the target and
// renames it into place. Load merges a saved table into memory; a missing
// file is an empty table.
//
// # Usage Example
//
//	known := netdb.NewKnownDestinations()
//	if err := known.Load(path); err != nil {
//	    log.Fatal(err)
//	}
//	rec, ok := known.Recall(destHash)
//	if !ok {
//	    // never announced
//	}
//
// Records are never evicted.
package netdb
