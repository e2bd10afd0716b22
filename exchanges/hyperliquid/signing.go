package hyperliquid

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethmath "github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	json "github.com/clawearn/clawearn/encoding/json"
	"github.com/clawearn/clawearn/log"
	"github.com/clawearn/clawearn/wallet"
)

const agentPrimaryType = "Agent"

// Recovery identifiers accepted on the wire
const (
	SignatureV0 = 27
	SignatureV1 = 28
)

var eip712DomainFields = []apitypes.Type{
	{Name: "name", Type: "string"},
	{Name: "version", Type: "string"},
	{Name: "chainId", Type: "uint256"},
	{Name: "verifyingContract", Type: "address"},
}

// agentFields must not change without bumping the domain version
var agentFields = []apitypes.Type{
	{Name: "connectionId", Type: "bytes32"},
	{Name: "agentAddress", Type: "address"},
}

// AgentSchema returns a copy of the phantom agent field schema
func AgentSchema() []apitypes.Type {
	return append([]apitypes.Type(nil), agentFields...)
}

// PhantomAgent is the fixed shape record that is actually signed
type PhantomAgent struct {
	ConnectionID common.Hash
	AgentAddress string
}

// ConstructPhantomAgent binds an action hash to the signer. The address is
// lowercased so checksum casing never changes the signed bytes.
func ConstructPhantomAgent(hash common.Hash, signer string) PhantomAgent {
	return PhantomAgent{ConnectionID: hash, AgentAddress: strings.ToLower(signer)}
}

// Domain is the typed-data domain separator
type Domain struct {
	Name              string
	Version           string
	ChainID           int64
	VerifyingContract string
}

// DefaultDomain returns the L1 action domain
func DefaultDomain() Domain {
	return Domain{
		Name:              "Exchange",
		Version:           "1",
		ChainID:           1337,
		VerifyingContract: "0x0000000000000000000000000000000000000000",
	}
}

func (d Domain) validate() error {
	switch {
	case d.Name == "":
		return fmt.Errorf("%w: domain name missing", ErrSchema)
	case d.Version == "":
		return fmt.Errorf("%w: domain version missing", ErrSchema)
	case d.ChainID <= 0:
		return fmt.Errorf("%w: domain chain id must be positive", ErrSchema)
	case !common.IsHexAddress(d.VerifyingContract):
		return fmt.Errorf("%w: domain verifying contract %q", ErrSchema, d.VerifyingContract)
	}
	return nil
}

// AgentTypedData assembles the EIP-712 payload for agent
func AgentTypedData(d Domain, agent PhantomAgent) (apitypes.TypedData, error) {
	if err := d.validate(); err != nil {
		return apitypes.TypedData{}, err
	}
	if !common.IsHexAddress(agent.AgentAddress) {
		return apitypes.TypedData{}, fmt.Errorf("%w: agent address %q", ErrSchema, agent.AgentAddress)
	}
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain":   append([]apitypes.Type(nil), eip712DomainFields...),
			agentPrimaryType: AgentSchema(),
		},
		PrimaryType: agentPrimaryType,
		Domain: apitypes.TypedDataDomain{
			Name:              d.Name,
			Version:           d.Version,
			ChainId:           ethmath.NewHexOrDecimal256(d.ChainID),
			VerifyingContract: d.VerifyingContract,
		},
		Message: apitypes.TypedDataMessage{
			"connectionId": agent.ConnectionID.Bytes(),
			"agentAddress": agent.AgentAddress,
		},
	}, nil
}

func typedDataDigest(td apitypes.TypedData) ([]byte, error) {
	digest, _, err := apitypes.TypedDataAndHash(td)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSchema, err)
	}
	return digest, nil
}

// Signature is an ECDSA signature split into its wire components. R and S
// are 0x-prefixed hex, V is the recovery id plus 27.
type Signature struct {
	R string `json:"r"`
	S string `json:"s"`
	V int    `json:"v"`
}

// SignatureWire is the flat {r, s, v} document sent to the venue
type SignatureWire struct {
	R string `json:"r"`
	S string `json:"s"`
	V int    `json:"v"`
}

// SignTypedData signs td with key
func SignTypedData(td apitypes.TypedData, key *wallet.Key) (Signature, error) {
	if key == nil || key.PrivateKey() == nil {
		return Signature{}, fmt.Errorf("%w: %w", ErrSigning, ErrNoSigningKey)
	}
	digest, err := typedDataDigest(td)
	if err != nil {
		return Signature{}, err
	}
	raw, err := key.Sign(digest)
	if err != nil {
		return Signature{}, fmt.Errorf("%w: %w", ErrSigning, err)
	}
	return formatSignature(raw), nil
}

func formatSignature(raw []byte) Signature {
	return Signature{
		R: "0x" + hex.EncodeToString(raw[:32]),
		S: "0x" + hex.EncodeToString(raw[32:64]),
		V: int(raw[64]) + SignatureV0,
	}
}

func parseComponent(c string) (*big.Int, bool) {
	if len(c) < 2 {
		return nil, false
	}
	h := strings.TrimPrefix(c, "0x")
	if h == "" || len(h) > 64 {
		return nil, false
	}
	n, ok := new(big.Int).SetString(h, 16)
	if !ok || n.Sign() <= 0 {
		return nil, false
	}
	return n, true
}

// ValidateSignature rejects signatures with a missing or trivial component or
// a recovery id other than 27 or 28.
func ValidateSignature(s Signature) error {
	if _, ok := parseComponent(s.R); !ok {
		return fmt.Errorf("%w: invalid r component", ErrSignatureValidation)
	}
	if _, ok := parseComponent(s.S); !ok {
		return fmt.Errorf("%w: invalid s component", ErrSignatureValidation)
	}
	if s.V != SignatureV0 && s.V != SignatureV1 {
		return fmt.Errorf("%w: invalid v component %d, must be 27 or 28", ErrSignatureValidation, s.V)
	}
	return nil
}

// Validate is shorthand for ValidateSignature
func (s Signature) Validate() error {
	return ValidateSignature(s)
}

// Wire reshapes the signature into its submission form
func (s Signature) Wire() SignatureWire {
	return SignatureWire(s)
}

// ParseSignatureWire decodes a {r, s, v} document
func ParseSignatureWire(data []byte) (Signature, error) {
	var w SignatureWire
	if err := json.Unmarshal(data, &w); err != nil {
		return Signature{}, fmt.Errorf("%w: %w", ErrSignatureValidation, err)
	}
	return Signature(w), nil
}

// String omits most of the signature so it is safe to log
func (s Signature) String() string {
	r := s.R
	if len(r) > 10 {
		r = r[:10] + "..."
	}
	return fmt.Sprintf("sig(r=%s v=%d)", r, s.V)
}

func (s Signature) bytes() ([]byte, error) {
	if err := ValidateSignature(s); err != nil {
		return nil, err
	}
	r, _ := parseComponent(s.R)
	sc, _ := parseComponent(s.S)
	out := make([]byte, 65)
	r.FillBytes(out[:32])
	sc.FillBytes(out[32:64])
	out[64] = byte(s.V - SignatureV0)
	return out, nil
}

// SignedAction is the product of the L1 signing chain
type SignedAction struct {
	Action    Action
	Nonce     int64
	Vault     string
	Hash      common.Hash
	Agent     PhantomAgent
	Signature Signature
}

func agentDigest(action Action, nonce int64, vault, signer string, d Domain) (common.Hash, PhantomAgent, []byte, error) {
	encoded, err := EncodeAction(action, nonce, vault)
	if err != nil {
		return common.Hash{}, PhantomAgent{}, nil, err
	}
	hash := HashAction(encoded)
	agent := ConstructPhantomAgent(hash, signer)
	td, err := AgentTypedData(d, agent)
	if err != nil {
		return common.Hash{}, PhantomAgent{}, nil, err
	}
	digest, err := typedDataDigest(td)
	if err != nil {
		return common.Hash{}, PhantomAgent{}, nil, err
	}
	return hash, agent, digest, nil
}

// SignL1Action runs encode, hash, agent construction, typed-data signing and
// component validation in that order. vault is encoded verbatim.
func SignL1Action(key *wallet.Key, action Action, nonce int64, vault string, d Domain) (*SignedAction, error) {
	if key == nil || key.PrivateKey() == nil {
		return nil, fmt.Errorf("%w: %w", ErrSigning, ErrNoSigningKey)
	}
	hash, agent, digest, err := agentDigest(action, nonce, vault, key.Address().Hex(), d)
	if err != nil {
		return nil, err
	}
	raw, err := key.Sign(digest)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSigning, err)
	}
	sig := formatSignature(raw)
	if err := ValidateSignature(sig); err != nil {
		return nil, err
	}
	log.Debugf(log.SigningSys, "signed %s nonce %d hash %s %s", action.ActionType(), nonce, hash.Hex(), sig)
	return &SignedAction{
		Action:    action,
		Nonce:     nonce,
		Vault:     vault,
		Hash:      hash,
		Agent:     agent,
		Signature: sig,
	}, nil
}

// VerifyL1Action checks that sig over (action, nonce, vault) was produced by
// signer. The agent address is part of the digest so the expected signer must
// be supplied.
func VerifyL1Action(action Action, nonce int64, vault string, sig Signature, d Domain, signer common.Address) error {
	_, _, digest, err := agentDigest(action, nonce, vault, signer.Hex(), d)
	if err != nil {
		return err
	}
	raw, err := sig.bytes()
	if err != nil {
		return err
	}
	pub, err := crypto.SigToPub(digest, raw)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSignatureValidation, err)
	}
	if got := crypto.PubkeyToAddress(*pub); got != signer {
		return fmt.Errorf("%w: recovered %s, want %s", ErrSignatureValidation, got.Hex(), signer.Hex())
	}
	return nil
}
