// Package destination derives Reticulum destination names and hashes.
package destination

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-i2p/go-rns/lib/common/data"
	"github.com/go-i2p/go-rns/lib/crypto"
	"github.com/go-i2p/go-rns/lib/identity"
	"github.com/samber/oops"
)

// Direction of a destination relative to this node.
type Direction byte

const (
	In  Direction = 0x11
	Out Direction = 0x12
)

func (d Direction) String() string {
	switch d {
	case In:
		return "IN"
	case Out:
		return "OUT"
	default:
		return fmt.Sprintf("Direction(0x%02x)", byte(d))
	}
}

// Type mirrors the destination type bits of the packet header.
type Type byte

const (
	Single Type = 0x00
	Group  Type = 0x01
	Plain  Type = 0x02
	Link   Type = 0x03
)

func (t Type) String() string {
	switch t {
	case Single:
		return "SINGLE"
	case Group:
		return "GROUP"
	case Plain:
		return "PLAIN"
	case Link:
		return "LINK"
	default:
		return fmt.Sprintf("Type(0x%02x)", byte(t))
	}
}

// ProofStrategy is carried as configuration only; proofs are never sent.
type ProofStrategy byte

const (
	ProveNone ProofStrategy = 0x21
	ProveApp  ProofStrategy = 0x22
	ProveAll  ProofStrategy = 0x23
)

const separator = "."

var ErrInvalidName = errors.New("dots can't be used in app names or aspects")

// ExpandName joins the app name and aspects with dots. When id is not nil
// its hex hash is appended as a final component.
func ExpandName(id *identity.Identity, appName string, aspects ...string) (string, error) {
	if strings.Contains(appName, separator) {
		return "", oops.Wrapf(ErrInvalidName, "app name %q", appName)
	}
	var b strings.Builder
	b.WriteString(appName)
	for _, aspect := range aspects {
		if strings.Contains(aspect, separator) {
			return "", oops.Wrapf(ErrInvalidName, "aspect %q", aspect)
		}
		b.WriteString(separator)
		b.WriteString(aspect)
	}
	if id != nil {
		b.WriteString(separator)
		b.WriteString(id.HexHash())
	}
	return b.String(), nil
}

// NameHash returns the 10-byte hash of the expanded name without identity.
func NameHash(appName string, aspects ...string) ([]byte, error) {
	name, err := ExpandName(nil, appName, aspects...)
	if err != nil {
		return nil, err
	}
	return crypto.FullHash([]byte(name))[:crypto.NameHashLength], nil
}

// Hash computes the destination hash: the truncated hash of the name hash,
// followed by the identity hash when id is not nil.
func Hash(id *identity.Identity, appName string, aspects ...string) (data.Hash, error) {
	nameHash, err := NameHash(appName, aspects...)
	if err != nil {
		return data.Hash{}, err
	}
	return HashFromNameHash(nameHash, id), nil
}

// HashFromNameHash completes a destination hash from an already computed
// name hash, as carried in announces.
func HashFromNameHash(nameHash []byte, id *identity.Identity) data.Hash {
	material := make([]byte, 0, len(nameHash)+data.HashLength)
	material = append(material, nameHash...)
	if id != nil {
		idHash := id.Hash()
		material = append(material, idHash[:]...)
	}
	h, _ := data.HashFromBytes(crypto.TruncatedHash(material))
	return h
}

// AppAndAspectsFromName splits a dotted name into app name and aspects.
func AppAndAspectsFromName(fullName string) (string, []string) {
	components := strings.Split(fullName, separator)
	return components[0], components[1:]
}

// HashFromNameAndIdentity computes the destination hash of a dotted name.
func HashFromNameAndIdentity(fullName string, id *identity.Identity) (data.Hash, error) {
	appName, aspects := AppAndAspectsFromName(fullName)
	return Hash(id, appName, aspects...)
}

// Destination is an addressable endpoint. Name and hash are fixed at
// construction.
type Destination struct {
	identity  *identity.Identity
	direction Direction
	typ       Type
	appName   string
	aspects   []string
	proof     ProofStrategy

	name     string
	hash     data.Hash
	nameHash []byte
}

// New builds a destination. Single destinations bind the identity into
// both name and hash; Plain destinations never carry one.
func New(id *identity.Identity, direction Direction, typ Type, appName string, aspects ...string) (*Destination, error) {
	if direction != In && direction != Out {
		return nil, oops.Errorf("unknown destination direction %s", direction)
	}
	if typ == Plain && id != nil {
		return nil, oops.Errorf("plain destinations can't hold an identity")
	}
	if typ == Single && id == nil {
		return nil, oops.Errorf("single destinations require an identity")
	}
	name, err := ExpandName(id, appName, aspects...)
	if err != nil {
		return nil, err
	}
	nameHash, err := NameHash(appName, aspects...)
	if err != nil {
		return nil, err
	}
	return &Destination{
		identity:  id,
		direction: direction,
		typ:       typ,
		appName:   appName,
		aspects:   append([]string(nil), aspects...),
		proof:     ProveNone,
		name:      name,
		hash:      HashFromNameHash(nameHash, id),
		nameHash:  nameHash,
	}, nil
}

func (d *Destination) Identity() *identity.Identity { return d.identity }
func (d *Destination) Direction() Direction         { return d.direction }
func (d *Destination) Type() Type                   { return d.typ }
func (d *Destination) AppName() string              { return d.appName }
func (d *Destination) Aspects() []string            { return append([]string(nil), d.aspects...) }
func (d *Destination) Name() string                 { return d.name }
func (d *Destination) Hash() data.Hash              { return d.hash }
func (d *Destination) NameHash() []byte             { return append([]byte(nil), d.nameHash...) }
func (d *Destination) ProofStrategy() ProofStrategy { return d.proof }

// SetProofStrategy records how the owner would answer proof requests.
func (d *Destination) SetProofStrategy(p ProofStrategy) {
	d.proof = p
}

func (d *Destination) String() string {
	return crypto.PrettyHex(d.hash[:])
}
