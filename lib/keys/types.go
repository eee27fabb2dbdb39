package keys

import (
	"github.com/go-i2p/go-rns/lib/identity"
	"github.com/go-i2p/logger"
)

var log = logger.GetGoI2PLogger()

// KeyStore is an interface for storing and retrieving identity keys
type KeyStore interface {
	KeyID() string
	// Identity returns the identity backed by the stored private key
	Identity() *identity.Identity
	// StoreKeys stores the keys
	StoreKeys() error
}
