package netdb

import (
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"

	"github.com/go-i2p/go-rns/lib/common/data"
	"github.com/go-i2p/go-rns/lib/crypto"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

const storageFileMode = 0o600

// storedRecord is the on-disk form of a Record; byte fields are hex.
type storedRecord struct {
	Destination string `yaml:"destination"`
	PacketHash  string `yaml:"packet_hash"`
	PublicKey   string `yaml:"public_key"`
	AppData     string `yaml:"app_data,omitempty"`
}

type storedTable struct {
	Destinations []storedRecord `yaml:"destinations"`
}

// Save writes the table to path atomically.
func (kd *KnownDestinations) Save(path string) error {
	table := storedTable{}
	snapshot := kd.Snapshot()
	for _, h := range kd.Hashes() {
		rec, ok := snapshot[h]
		if !ok {
			continue
		}
		table.Destinations = append(table.Destinations, storedRecord{
			Destination: h.String(),
			PacketHash:  hex.EncodeToString(rec.PacketHash),
			PublicKey:   hex.EncodeToString(rec.PublicKey),
			AppData:     hex.EncodeToString(rec.AppData),
		})
	}

	out, err := yaml.Marshal(&table)
	if err != nil {
		return oops.Errorf("failed to encode known destinations: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return oops.Errorf("failed to create storage directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return oops.Errorf("failed to create temporary storage file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return oops.Errorf("failed to write known destinations: %w", err)
	}
	if err := tmp.Chmod(storageFileMode); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return oops.Errorf("failed to set storage file mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return oops.Errorf("failed to close temporary storage file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return oops.Errorf("failed to replace %s: %w", path, err)
	}

	log.WithFields(logger.Fields{
		"path":  path,
		"count": len(table.Destinations),
	}).Debug("Saved known destinations")
	return nil
}

// Load merges the table stored at path into memory. Entries already in
// memory are overwritten by stored ones. A missing file is not an error;
// malformed entries are skipped.
func (kd *KnownDestinations) Load(path string) error {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.WithField("path", path).Debug("No known destinations stored yet")
		return nil
	}
	if err != nil {
		return oops.Errorf("failed to read known destinations: %w", err)
	}

	var table storedTable
	if err := yaml.Unmarshal(raw, &table); err != nil {
		return oops.Errorf("failed to decode known destinations in %s: %w", path, err)
	}

	loaded := 0
	for i, sr := range table.Destinations {
		h, rec, err := sr.decode()
		if err != nil {
			log.WithError(err).WithField("entry", i).Warn("Skipping malformed known destination")
			continue
		}
		if err := kd.Remember(h, rec.PacketHash, rec.PublicKey, rec.AppData); err != nil {
			log.WithError(err).WithField("entry", i).Warn("Skipping malformed known destination")
			continue
		}
		loaded++
	}

	log.WithFields(logger.Fields{
		"path":    path,
		"loaded":  loaded,
		"skipped": len(table.Destinations) - loaded,
	}).Debug("Loaded known destinations")
	return nil
}

func (sr storedRecord) decode() (data.Hash, Record, error) {
	h, err := data.HashFromHex(sr.Destination)
	if err != nil {
		return data.Hash{}, Record{}, oops.Errorf("destination %q: %w", sr.Destination, err)
	}
	packetHash, err := hex.DecodeString(sr.PacketHash)
	if err != nil || len(packetHash) != crypto.HashLength {
		return data.Hash{}, Record{}, oops.Errorf("packet hash of %s is not %d hex bytes", h, crypto.HashLength)
	}
	pub, err := hex.DecodeString(sr.PublicKey)
	if err != nil {
		return data.Hash{}, Record{}, oops.Errorf("public key of %s: %w", h, err)
	}
	appData, err := hex.DecodeString(sr.AppData)
	if err != nil {
		return data.Hash{}, Record{}, oops.Errorf("app data of %s: %w", h, err)
	}
	if len(appData) == 0 {
		appData = nil
	}
	return h, Record{PacketHash: packetHash, PublicKey: pub, AppData: appData}, nil
}
