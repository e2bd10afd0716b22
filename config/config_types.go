package config

import (
	"time"

	"github.com/clawearn/clawearn/log"
)

// Config is the fully resolved program configuration
type Config struct {
	Hyperliquid HyperliquidConfig `mapstructure:"hyperliquid"`
	Polymarket  PolymarketConfig  `mapstructure:"polymarket"`
	Wallet      WalletConfig      `mapstructure:"wallet"`
	Logging     log.Config        `mapstructure:"logging"`
	Database    DatabaseConfig    `mapstructure:"database"`
}

// HyperliquidConfig holds perpetual venue endpoints and signing domain
type HyperliquidConfig struct {
	APIURL         string        `mapstructure:"apiurl"`
	WebsocketURL   string        `mapstructure:"websocketurl"`
	RequestTimeout time.Duration `mapstructure:"requesttimeout"`
	InfoRateLimit  int           `mapstructure:"inforatelimit"`
	ExchangeLimit  int           `mapstructure:"exchangeratelimit"`
	Domain         DomainConfig  `mapstructure:"domain"`
	Bridge         BridgeConfig  `mapstructure:"bridge"`
}

// DomainConfig is the typed-data domain separator
type DomainConfig struct {
	Name              string `mapstructure:"name"`
	Version           string `mapstructure:"version"`
	ChainID           int64  `mapstructure:"chainid"`
	VerifyingContract string `mapstructure:"verifyingcontract"`
}

// BridgeConfig locates the deposit bridge on Arbitrum
type BridgeConfig struct {
	RPCURL        string `mapstructure:"rpcurl"`
	ChainID       int64  `mapstructure:"chainid"`
	BridgeAddress string `mapstructure:"bridgeaddress"`
	USDCAddress   string `mapstructure:"usdcaddress"`
	MinDeposit    string `mapstructure:"mindeposit"`
}

// PolymarketConfig holds prediction market endpoints
type PolymarketConfig struct {
	CLOBURL        string        `mapstructure:"cloburl"`
	GammaURL       string        `mapstructure:"gammaurl"`
	ChainID        int64         `mapstructure:"chainid"`
	SignatureType  int           `mapstructure:"signaturetype"`
	FunderAddress  string        `mapstructure:"funderaddress"`
	RequestTimeout time.Duration `mapstructure:"requesttimeout"`
}

// WalletConfig locates the key store
type WalletConfig struct {
	Path string `mapstructure:"path"`
}

// DatabaseConfig configures the submission journal
type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Driver   string `mapstructure:"driver"`
	Path     string `mapstructure:"path"`
	Host     string `mapstructure:"host"`
	Port     uint16 `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"sslmode"`
}
