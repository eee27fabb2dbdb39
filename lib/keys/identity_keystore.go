package keys

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/go-i2p/go-rns/lib/identity"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

// DefaultKeyName is the file name used when none is configured.
const DefaultKeyName = "transport_identity"

// IdentityKeystore keeps the transport identity's 64-byte private key in a
// file: the X25519 scalar followed by the Ed25519 seed.
type IdentityKeystore struct {
	dir      string
	name     string
	identity *identity.Identity
}

var _ KeyStore = &IdentityKeystore{}

// NewIdentityKeystore loads the private key stored as dir/name. When the
// file does not exist a new identity is generated and stored.
func NewIdentityKeystore(dir, name string) (*IdentityKeystore, error) {
	if name == "" {
		name = DefaultKeyName
	}
	ks := &IdentityKeystore{dir: dir, name: name}
	fullPath := ks.Path()

	keyData, err := os.ReadFile(fullPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.WithField("path", fullPath).Info("No identity found, generating a new one")
		id, err := identity.Generate()
		if err != nil {
			return nil, err
		}
		ks.identity = id
		if err := ks.StoreKeys(); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, oops.Errorf("failed to read identity key %s: %w", fullPath, err)
	default:
		checkKeyFileMode(fullPath)
		id, err := identity.FromPrivateKey(keyData)
		if err != nil {
			return nil, oops.Wrapf(err, "identity key %s", fullPath)
		}
		ks.identity = id
	}

	log.WithFields(logger.Fields{
		"at":       "NewIdentityKeystore",
		"path":     fullPath,
		"identity": ks.identity.String(),
	}).Debug("Loaded transport identity")
	return ks, nil
}

// checkKeyFileMode warns when the key file is readable by other users.
func checkKeyFileMode(path string) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	if info.Mode().Perm()&0o077 != 0 {
		log.WithFields(logger.Fields{
			"path": path,
			"mode": info.Mode().Perm().String(),
		}).Warn("Identity key file is accessible by other users")
	}
}

func (ks *IdentityKeystore) Identity() *identity.Identity {
	return ks.identity
}

// Path returns the location of the private key file.
func (ks *IdentityKeystore) Path() string {
	return filepath.Join(ks.dir, ks.name)
}

func (ks *IdentityKeystore) KeyID() string {
	return ks.name
}

// StoreKeys writes the private key with owner-only permissions.
func (ks *IdentityKeystore) StoreKeys() error {
	if !ks.identity.HasPrivateKey() {
		return oops.Wrapf(identity.ErrNoPrivateKey, "cannot store %s", ks.identity)
	}
	// Use 0700 to protect private key material from other users
	if err := os.MkdirAll(ks.dir, 0o700); err != nil {
		log.WithError(err).WithField("dir", ks.dir).Error("Failed to create keystore directory")
		return oops.Errorf("failed to create keystore directory: %w", err)
	}
	fullPath := ks.Path()
	if err := os.WriteFile(fullPath, ks.identity.PrivateKey(), 0o600); err != nil {
		log.WithError(err).WithField("path", fullPath).Error("Failed to write private key file")
		return oops.Errorf("failed to write identity key: %w", err)
	}
	log.WithField("path", fullPath).Info("Successfully stored private key")
	return nil
}
