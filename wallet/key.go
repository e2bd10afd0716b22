// Package wallet holds the local secp256k1 signing key used to authorise
// venue actions.
package wallet

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// Key errors
var (
	ErrNoSigningKey       = errors.New("no signing key available")
	ErrInvalidPrivateKey  = errors.New("invalid private key")
	errNilKey             = errors.New("signing key is nil")
	errInvalidDigestWidth = errors.New("digest must be 32 bytes")
)

// Key is a secp256k1 private key and its derived account address. Its
// formatted forms never include the secret.
type Key struct {
	priv    *ecdsa.PrivateKey
	address common.Address
}

// ParseKey decodes a 0x-prefixed or bare 64 character hex private key
func ParseKey(hexKey string) (*Key, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	if trimmed == "" {
		return nil, ErrNoSigningKey
	}
	raw, err := hex.DecodeString(trimmed)
	if err != nil || len(raw) != 32 {
		return nil, ErrInvalidPrivateKey
	}
	priv, err := crypto.ToECDSA(raw)
	if err != nil {
		return nil, ErrInvalidPrivateKey
	}
	return newKey(priv), nil
}

// GenerateKey creates a fresh random key
func GenerateKey() (*Key, error) {
	priv, err := crypto.GenerateKey()
	if err != nil {
		return nil, errors.Wrap(err, "generate key")
	}
	return newKey(priv), nil
}

func newKey(priv *ecdsa.PrivateKey) *Key {
	return &Key{priv: priv, address: crypto.PubkeyToAddress(priv.PublicKey)}
}

// Address returns the checksummed account address
func (k *Key) Address() common.Address {
	if k == nil {
		return common.Address{}
	}
	return k.address
}

// PrivateKey exposes the ECDSA key for libraries that sign on our behalf
func (k *Key) PrivateKey() *ecdsa.PrivateKey {
	if k == nil {
		return nil
	}
	return k.priv
}

// Sign produces a 65 byte [R || S || V] signature over a 32 byte digest
// where V is the raw recovery id (0 or 1).
func (k *Key) Sign(digest []byte) ([]byte, error) {
	if k == nil || k.priv == nil {
		return nil, errNilKey
	}
	if len(digest) != 32 {
		return nil, errInvalidDigestWidth
	}
	return crypto.Sign(digest, k.priv)
}

func (k *Key) hex() string {
	return "0x" + hex.EncodeToString(crypto.FromECDSA(k.priv))
}

// String implements fmt.Stringer without revealing the secret
func (k *Key) String() string {
	if k == nil {
		return "Key(<nil>)"
	}
	return "Key(" + k.address.Hex() + ")"
}

// GoString keeps %#v from dumping the private scalar
func (k *Key) GoString() string {
	return k.String()
}

// KeySource yields the signing key on demand
type KeySource interface {
	SigningKey(ctx context.Context) (*Key, error)
}

// StaticSource serves a key supplied up front, e.g. via --private-key
type StaticSource struct {
	key *Key
	err error
}

// NewStaticSource parses hexKey lazily reporting any error on first use
func NewStaticSource(hexKey string) *StaticSource {
	k, err := ParseKey(hexKey)
	return &StaticSource{key: k, err: err}
}

// SigningKey implements KeySource
func (s *StaticSource) SigningKey(context.Context) (*Key, error) {
	if s == nil {
		return nil, ErrNoSigningKey
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.key, nil
}

// ChainSource tries each source in order and returns the first key found.
// Only ErrNoSigningKey falls through to the next source.
type ChainSource []KeySource

// SigningKey implements KeySource
func (c ChainSource) SigningKey(ctx context.Context) (*Key, error) {
	for _, src := range c {
		if src == nil {
			continue
		}
		k, err := src.SigningKey(ctx)
		if err == nil {
			return k, nil
		}
		if !errors.Is(err, ErrNoSigningKey) {
			return nil, err
		}
	}
	return nil, ErrNoSigningKey
}
