package polymarket

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common/hexutil"
	ethmath "github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/clawearn/clawearn/log"
	"github.com/clawearn/clawearn/wallet"
)

// ClobAuth typed data constants
const (
	ClobAuthDomainName = "ClobAuthDomain"
	ClobAuthVersion    = "1"
	ClobAuthMessage    = "This message attests that I control the given wallet"
)

// Auth header names
const (
	HeaderAddress    = "POLY_ADDRESS"
	HeaderSignature  = "POLY_SIGNATURE"
	HeaderTimestamp  = "POLY_TIMESTAMP"
	HeaderNonce      = "POLY_NONCE"
	HeaderAPIKey     = "POLY_API_KEY"
	HeaderPassphrase = "POLY_PASSPHRASE"
)

var (
	errNoCredentials  = errors.New("api credentials are missing")
	errInvalidSecret  = errors.New("api secret is not valid base64")
	errIncompleteCred = errors.New("venue returned incomplete api credentials")
)

// ClobAuthTypedData is the EIP-712 document proving wallet ownership
func ClobAuthTypedData(chainID int64, address string, timestamp, nonce int64) apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
			},
			"ClobAuth": {
				{Name: "address", Type: "address"},
				{Name: "timestamp", Type: "string"},
				{Name: "nonce", Type: "uint256"},
				{Name: "message", Type: "string"},
			},
		},
		PrimaryType: "ClobAuth",
		Domain: apitypes.TypedDataDomain{
			Name:    ClobAuthDomainName,
			Version: ClobAuthVersion,
			ChainId: ethmath.NewHexOrDecimal256(chainID),
		},
		Message: apitypes.TypedDataMessage{
			"address":   address,
			"timestamp": strconv.FormatInt(timestamp, 10),
			"nonce":     ethmath.NewHexOrDecimal256(nonce),
			"message":   ClobAuthMessage,
		},
	}
}

// SignClobAuth returns the 0x hex signature with V in 27/28 form
func SignClobAuth(key *wallet.Key, chainID, timestamp, nonce int64) (string, error) {
	if key == nil {
		return "", wallet.ErrNoSigningKey
	}
	digest, _, err := apitypes.TypedDataAndHash(ClobAuthTypedData(chainID, key.Address().Hex(), timestamp, nonce))
	if err != nil {
		return "", fmt.Errorf("clob auth digest: %w", err)
	}
	sig, err := key.Sign(digest)
	if err != nil {
		return "", fmt.Errorf("clob auth sign: %w", err)
	}
	sig[64] += 27
	return hexutil.Encode(sig), nil
}

func (c *Client) l1Headers(key *wallet.Key, nonce int64) (map[string]string, error) {
	ts := c.now().Unix()
	sig, err := SignClobAuth(key, c.cfg.ChainID, ts, nonce)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		HeaderAddress:   key.Address().Hex(),
		HeaderSignature: sig,
		HeaderTimestamp: strconv.FormatInt(ts, 10),
		HeaderNonce:     strconv.FormatInt(nonce, 10),
	}, nil
}

// HMACSignature signs timestamp+method+path+body with the URL-safe base64
// secret and returns URL-safe base64.
func HMACSignature(secret string, timestamp int64, method, path, body string) (string, error) {
	raw, err := base64.URLEncoding.DecodeString(secret)
	if err != nil {
		// some secrets are issued in the standard alphabet
		if raw, err = base64.StdEncoding.DecodeString(secret); err != nil {
			return "", errInvalidSecret
		}
	}
	mac := hmac.New(sha256.New, raw)
	mac.Write([]byte(strconv.FormatInt(timestamp, 10) + method + path + body))
	return base64.URLEncoding.EncodeToString(mac.Sum(nil)), nil
}

func (c *Client) l2Headers(key *wallet.Key, creds *APICredentials, method, path, body string) (map[string]string, error) {
	if !creds.Valid() {
		return nil, errNoCredentials
	}
	ts := c.now().Unix()
	sig, err := HMACSignature(creds.Secret, ts, method, path, body)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		HeaderAddress:    key.Address().Hex(),
		HeaderSignature:  sig,
		HeaderTimestamp:  strconv.FormatInt(ts, 10),
		HeaderAPIKey:     creds.Key,
		HeaderPassphrase: creds.Passphrase,
	}, nil
}

func (c *Client) apiKeyRequest(ctx context.Context, method, path string, nonce int64) (*APICredentials, error) {
	key, err := c.signingKey(ctx)
	if err != nil {
		return nil, err
	}
	headers, err := c.l1Headers(key, nonce)
	if err != nil {
		return nil, err
	}
	var out APICredentials
	if err := send(c.clob.R().SetContext(ctx).SetHeaders(headers), method, path, &out); err != nil {
		return nil, err
	}
	if !out.Valid() {
		return nil, errIncompleteCred
	}
	return &out, nil
}

// CreateAPIKey registers a new API key for the wallet
func (c *Client) CreateAPIKey(ctx context.Context, nonce int64) (*APICredentials, error) {
	return c.apiKeyRequest(ctx, http.MethodPost, apiKeyPath, nonce)
}

// DeriveAPIKey recovers the API key previously created with nonce
func (c *Client) DeriveAPIKey(ctx context.Context, nonce int64) (*APICredentials, error) {
	return c.apiKeyRequest(ctx, http.MethodGet, deriveAPIKeyPath, nonce)
}

// CreateOrDeriveAPIKey creates a key and falls back to deriving the existing
// one. The result is cached on the client.
func (c *Client) CreateOrDeriveAPIKey(ctx context.Context) (*APICredentials, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.creds.Valid() {
		return c.creds, nil
	}
	creds, err := c.CreateAPIKey(ctx, 0)
	if err != nil {
		if errors.Is(err, wallet.ErrNoSigningKey) {
			return nil, err
		}
		log.Debugf(log.PolymarketSys, "create api key failed, deriving: %v", err)
		if creds, err = c.DeriveAPIKey(ctx, 0); err != nil {
			return nil, fmt.Errorf("derive api key: %w", err)
		}
	}
	c.creds = creds
	return creds, nil
}

// authedSend signs an L2 request and decodes the reply into out
func (c *Client) authedSend(ctx context.Context, key *wallet.Key, method, path string, query map[string]string, body []byte, out any) error {
	creds, err := c.CreateOrDeriveAPIKey(ctx)
	if err != nil {
		return err
	}
	headers, err := c.l2Headers(key, creds, method, path, string(body))
	if err != nil {
		return err
	}
	r := c.clob.R().SetContext(ctx).SetHeaders(headers).SetQueryParams(query)
	if body != nil {
		r.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	return send(r, method, path, out)
}

func redact(sig string) string {
	if len(sig) <= 10 {
		return sig
	}
	return sig[:10] + "..."
}
