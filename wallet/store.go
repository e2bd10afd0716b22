package wallet

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"

	json "github.com/clawearn/clawearn/encoding/json"
	"github.com/clawearn/clawearn/log"
)

// Store errors
var (
	ErrWalletExists       = errors.New("wallet already exists")
	ErrPassphraseRequired = errors.New("wallet is encrypted and requires a passphrase")
	ErrDecrypt            = errors.New("could not decrypt wallet, wrong passphrase?")
	errCorruptWallet      = errors.New("wallet file is corrupt")
	errAddressMismatch    = errors.New("wallet address does not match stored key")
)

const (
	dirPerm  = 0o700
	filePerm = 0o600

	kdfScrypt      = "scrypt"
	defaultScryptN = 1 << 15
	scryptR        = 8
	scryptP        = 1
)

// File is the on-disk wallet document
type File struct {
	Address    string        `json:"address"`
	PrivateKey string        `json:"privateKey,omitempty"`
	Crypto     *CryptoParams `json:"crypto,omitempty"`
	CreatedAt  time.Time     `json:"createdAt"`
}

// CryptoParams describes how PrivateKey was sealed when a passphrase is used
type CryptoParams struct {
	KDF        string `json:"kdf"`
	N          int    `json:"n"`
	R          int    `json:"r"`
	P          int    `json:"p"`
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

// Store reads and writes the wallet file
type Store struct {
	path    string
	now     func() time.Time
	rand    io.Reader
	scryptN int
}

// CreateOptions controls wallet creation
type CreateOptions struct {
	Force      bool
	PrivateKey string
	Passphrase []byte
}

// DefaultPath returns ~/.config/clawearn/wallet.json
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "resolve home directory")
	}
	return filepath.Join(home, ".config", "clawearn", "wallet.json"), nil
}

// NewStore returns a Store for path
func NewStore(path string) *Store {
	return &Store{path: path, now: time.Now, rand: rand.Reader, scryptN: defaultScryptN}
}

// Path returns the wallet file location
func (s *Store) Path() string {
	return s.path
}

// Exists reports whether a wallet file is present
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Create writes a new wallet, either imported from opts.PrivateKey or freshly
// generated. An existing wallet is only replaced when opts.Force is set.
func (s *Store) Create(opts CreateOptions) (*Key, error) {
	if s.Exists() && !opts.Force {
		return nil, errors.Wrap(ErrWalletExists, s.path)
	}
	var (
		key *Key
		err error
	)
	if opts.PrivateKey != "" {
		key, err = ParseKey(opts.PrivateKey)
	} else {
		key, err = GenerateKey()
	}
	if err != nil {
		return nil, err
	}

	doc := File{
		Address:   key.Address().Hex(),
		CreatedAt: s.now().UTC(),
	}
	if len(opts.Passphrase) > 0 {
		params, err := s.seal(key, opts.Passphrase)
		if err != nil {
			return nil, err
		}
		doc.Crypto = params
	} else {
		doc.PrivateKey = key.hex()
	}
	if err := s.write(&doc); err != nil {
		return nil, err
	}
	log.Infof(log.WalletSys, "wallet %s written to %s", doc.Address, s.path)
	return key, nil
}

func (s *Store) write(doc *File) error {
	if err := os.MkdirAll(filepath.Dir(s.path), dirPerm); err != nil {
		return errors.Wrap(err, "create wallet directory")
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode wallet")
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, filePerm); err != nil {
		return errors.Wrap(err, "write wallet")
	}
	if err := os.Chmod(tmp, filePerm); err != nil {
		return errors.Wrap(err, "chmod wallet")
	}
	return errors.Wrap(os.Rename(tmp, s.path), "replace wallet")
}

// Read returns the stored document without decrypting it
func (s *Store) Read() (*File, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSigningKey
		}
		return nil, errors.Wrap(err, "read wallet")
	}
	var doc File
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(errCorruptWallet, err.Error())
	}
	if !common.IsHexAddress(doc.Address) {
		return nil, errors.Wrap(errCorruptWallet, "address")
	}
	return &doc, nil
}

// Address returns the stored address without touching key material
func (s *Store) Address() (common.Address, error) {
	doc, err := s.Read()
	if err != nil {
		return common.Address{}, err
	}
	return common.HexToAddress(doc.Address), nil
}

// Encrypted reports whether the stored key is sealed with a passphrase
func (s *Store) Encrypted() (bool, error) {
	doc, err := s.Read()
	if err != nil {
		return false, err
	}
	return doc.Crypto != nil, nil
}

// Load decodes the stored key, decrypting with passphrase when sealed
func (s *Store) Load(passphrase []byte) (*Key, error) {
	doc, err := s.Read()
	if err != nil {
		return nil, err
	}
	var key *Key
	switch {
	case doc.Crypto != nil:
		if len(passphrase) == 0 {
			return nil, ErrPassphraseRequired
		}
		key, err = open(doc.Crypto, passphrase)
	case doc.PrivateKey != "":
		key, err = ParseKey(doc.PrivateKey)
	default:
		return nil, ErrNoSigningKey
	}
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(key.Address().Hex(), doc.Address) {
		return nil, errAddressMismatch
	}
	return key, nil
}

func (s *Store) seal(key *Key, passphrase []byte) (*CryptoParams, error) {
	var salt [32]byte
	var nonce [24]byte
	if _, err := io.ReadFull(s.rand, salt[:]); err != nil {
		return nil, errors.Wrap(err, "read salt")
	}
	if _, err := io.ReadFull(s.rand, nonce[:]); err != nil {
		return nil, errors.Wrap(err, "read nonce")
	}
	secret, err := deriveSecret(passphrase, salt[:], s.scryptN, scryptR, scryptP)
	if err != nil {
		return nil, err
	}
	sealed := secretbox.Seal(nil, crypto.FromECDSA(key.priv), &nonce, secret)
	return &CryptoParams{
		KDF:        kdfScrypt,
		N:          s.scryptN,
		R:          scryptR,
		P:          scryptP,
		Salt:       hex.EncodeToString(salt[:]),
		Nonce:      hex.EncodeToString(nonce[:]),
		Ciphertext: hex.EncodeToString(sealed),
	}, nil
}

func open(params *CryptoParams, passphrase []byte) (*Key, error) {
	if params.KDF != kdfScrypt {
		return nil, errors.Wrapf(errCorruptWallet, "unsupported kdf %q", params.KDF)
	}
	salt, err := hex.DecodeString(params.Salt)
	if err != nil {
		return nil, errors.Wrap(errCorruptWallet, "salt")
	}
	nonceBytes, err := hex.DecodeString(params.Nonce)
	if err != nil || len(nonceBytes) != 24 {
		return nil, errors.Wrap(errCorruptWallet, "nonce")
	}
	sealed, err := hex.DecodeString(params.Ciphertext)
	if err != nil {
		return nil, errors.Wrap(errCorruptWallet, "ciphertext")
	}
	secret, err := deriveSecret(passphrase, salt, params.N, params.R, params.P)
	if err != nil {
		return nil, err
	}
	var nonce [24]byte
	copy(nonce[:], nonceBytes)
	raw, ok := secretbox.Open(nil, sealed, &nonce, secret)
	if !ok {
		return nil, ErrDecrypt
	}
	priv, err := crypto.ToECDSA(raw)
	if err != nil {
		return nil, ErrInvalidPrivateKey
	}
	return newKey(priv), nil
}

func deriveSecret(passphrase, salt []byte, n, r, p int) (*[32]byte, error) {
	k, err := scrypt.Key(passphrase, salt, n, r, p, 32)
	if err != nil {
		return nil, errors.Wrap(err, "derive wallet secret")
	}
	var out [32]byte
	copy(out[:], k)
	return &out, nil
}

// StoreSource loads the key from a Store on every request so the secret is
// only resident for the duration of one signing operation.
type StoreSource struct {
	Store      *Store
	Passphrase func() ([]byte, error)
}

// SigningKey implements KeySource
func (s *StoreSource) SigningKey(context.Context) (*Key, error) {
	if s == nil || s.Store == nil {
		return nil, ErrNoSigningKey
	}
	encrypted, err := s.Store.Encrypted()
	if err != nil {
		return nil, err
	}
	var pass []byte
	if encrypted {
		if s.Passphrase == nil {
			return nil, ErrPassphraseRequired
		}
		if pass, err = s.Passphrase(); err != nil {
			return nil, errors.Wrap(err, "read passphrase")
		}
	}
	return s.Store.Load(pass)
}
