package netdb

import (
	"errors"
	"sort"
	"sync"

	"github.com/go-i2p/go-rns/lib/common/data"
	"github.com/go-i2p/go-rns/lib/crypto"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

var ErrInvalidPublicKey = errors.New("known destination public key must be 64 bytes")

// Record is what an accepted announce leaves behind.
type Record struct {
	PacketHash []byte
	PublicKey  []byte
	AppData    []byte
}

func (r Record) clone() Record {
	return Record{
		PacketHash: cloneBytes(r.PacketHash),
		PublicKey:  cloneBytes(r.PublicKey),
		AppData:    cloneBytes(r.AppData),
	}
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

// KnownDestinations maps destination hashes to the last announce accepted
// for them.
type KnownDestinations struct {
	mu      sync.RWMutex
	records map[data.Hash]Record
}

func NewKnownDestinations() *KnownDestinations {
	log.Debug("Creating new KnownDestinations")
	return &KnownDestinations{
		records: make(map[data.Hash]Record),
	}
}

// Remember stores or overwrites the record for destHash.
func (kd *KnownDestinations) Remember(destHash data.Hash, packetHash, publicKey, appData []byte) error {
	if len(publicKey) != crypto.KeySize {
		return oops.Wrapf(ErrInvalidPublicKey, "got %d bytes for %s", len(publicKey), destHash)
	}
	rec := Record{
		PacketHash: packetHash,
		PublicKey:  publicKey,
		AppData:    appData,
	}.clone()

	kd.mu.Lock()
	_, existed := kd.records[destHash]
	kd.records[destHash] = rec
	kd.mu.Unlock()

	log.WithFields(logger.Fields{
		"destination": crypto.PrettyHex(destHash[:]),
		"updated":     existed,
		"app_data":    len(appData),
	}).Debug("Remembered destination")
	return nil
}

// Recall returns the record for destHash. The boolean is false when the
// destination has never been announced.
func (kd *KnownDestinations) Recall(destHash data.Hash) (Record, bool) {
	kd.mu.RLock()
	rec, ok := kd.records[destHash]
	kd.mu.RUnlock()
	if !ok {
		return Record{}, false
	}
	return rec.clone(), true
}

// RecallAppData returns the application data of the last announce for
// destHash.
func (kd *KnownDestinations) RecallAppData(destHash data.Hash) ([]byte, bool) {
	rec, ok := kd.Recall(destHash)
	if !ok {
		return nil, false
	}
	return rec.AppData, true
}

func (kd *KnownDestinations) Len() int {
	kd.mu.RLock()
	defer kd.mu.RUnlock()
	return len(kd.records)
}

// Hashes returns every known destination hash in ascending byte order.
func (kd *KnownDestinations) Hashes() []data.Hash {
	kd.mu.RLock()
	hashes := make([]data.Hash, 0, len(kd.records))
	for h := range kd.records {
		hashes = append(hashes, h)
	}
	kd.mu.RUnlock()

	sort.Slice(hashes, func(i, j int) bool {
		return hashes[i].String() < hashes[j].String()
	})
	return hashes
}

// Snapshot returns a copy of the whole table.
func (kd *KnownDestinations) Snapshot() map[data.Hash]Record {
	kd.mu.RLock()
	defer kd.mu.RUnlock()
	out := make(map[data.Hash]Record, len(kd.records))
	for h, rec := range kd.records {
		out[h] = rec.clone()
	}
	return out
}
