// Package config resolves program settings from defaults, an optional
// config file, a .env file and CLAWEARN_ prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/clawearn/clawearn/log"
)

// Default endpoints and constants
const (
	EnvPrefix = "CLAWEARN"

	DefaultHyperliquidAPIURL = "https://api.hyperliquid.xyz"
	DefaultHyperliquidWSURL  = "wss://api.hyperliquid.xyz/ws"
	DefaultDomainName        = "Exchange"
	DefaultDomainVersion     = "1"
	DefaultDomainChainID     = 1337
	DefaultVerifyingContract = "0x0000000000000000000000000000000000000000"

	DefaultArbitrumRPCURL = "https://arb1.arbitrum.io/rpc"
	ArbitrumChainID       = 42161
	HyperliquidBridge     = "0x2Df1c51E09aECF9cacB7bc98cB1742757f163dF7"
	ArbitrumUSDC          = "0xaf88d065e77c8cC2239327C5EDb3A432268e5831"

	DefaultPolymarketCLOBURL  = "https://clob.polymarket.com"
	DefaultPolymarketGammaURL = "https://gamma-api.polymarket.com"
	PolygonChainID            = 137
)

var (
	errEmptyEndpoint       = errors.New("endpoint must not be empty")
	errInvalidChainID      = errors.New("chain id must be positive")
	errUnsupportedDatabase = errors.New("unsupported database driver")
)

// ConfigDir returns ~/.config/clawearn
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "clawearn"), nil
}

// Default returns the documented defaults
func Default() *Config {
	dir, err := ConfigDir()
	if err != nil {
		dir = "."
	}
	return &Config{
		Hyperliquid: HyperliquidConfig{
			APIURL:         DefaultHyperliquidAPIURL,
			WebsocketURL:   DefaultHyperliquidWSURL,
			RequestTimeout: 15 * time.Second,
			InfoRateLimit:  10,
			ExchangeLimit:  10,
			Domain: DomainConfig{
				Name:              DefaultDomainName,
				Version:           DefaultDomainVersion,
				ChainID:           DefaultDomainChainID,
				VerifyingContract: DefaultVerifyingContract,
			},
			Bridge: BridgeConfig{
				RPCURL:        DefaultArbitrumRPCURL,
				ChainID:       ArbitrumChainID,
				BridgeAddress: HyperliquidBridge,
				USDCAddress:   ArbitrumUSDC,
				MinDeposit:    "5",
			},
		},
		Polymarket: PolymarketConfig{
			CLOBURL:        DefaultPolymarketCLOBURL,
			GammaURL:       DefaultPolymarketGammaURL,
			ChainID:        PolygonChainID,
			RequestTimeout: 15 * time.Second,
		},
		Wallet: WalletConfig{
			Path: filepath.Join(dir, "wallet.json"),
		},
		Logging: *log.DefaultConfig(),
		Database: DatabaseConfig{
			Enabled: true,
			Driver:  "sqlite3",
			Path:    filepath.Join(dir, "journal.db"),
			Port:    5432,
			SSLMode: "disable",
		},
	}
}

func setDefaults(v *viper.Viper, c *Config) {
	v.SetDefault("hyperliquid.apiurl", c.Hyperliquid.APIURL)
	v.SetDefault("hyperliquid.websocketurl", c.Hyperliquid.WebsocketURL)
	v.SetDefault("hyperliquid.requesttimeout", c.Hyperliquid.RequestTimeout)
	v.SetDefault("hyperliquid.inforatelimit", c.Hyperliquid.InfoRateLimit)
	v.SetDefault("hyperliquid.exchangeratelimit", c.Hyperliquid.ExchangeLimit)
	v.SetDefault("hyperliquid.domain.name", c.Hyperliquid.Domain.Name)
	v.SetDefault("hyperliquid.domain.version", c.Hyperliquid.Domain.Version)
	v.SetDefault("hyperliquid.domain.chainid", c.Hyperliquid.Domain.ChainID)
	v.SetDefault("hyperliquid.domain.verifyingcontract", c.Hyperliquid.Domain.VerifyingContract)
	v.SetDefault("hyperliquid.bridge.rpcurl", c.Hyperliquid.Bridge.RPCURL)
	v.SetDefault("hyperliquid.bridge.chainid", c.Hyperliquid.Bridge.ChainID)
	v.SetDefault("hyperliquid.bridge.bridgeaddress", c.Hyperliquid.Bridge.BridgeAddress)
	v.SetDefault("hyperliquid.bridge.usdcaddress", c.Hyperliquid.Bridge.USDCAddress)
	v.SetDefault("hyperliquid.bridge.mindeposit", c.Hyperliquid.Bridge.MinDeposit)
	v.SetDefault("polymarket.cloburl", c.Polymarket.CLOBURL)
	v.SetDefault("polymarket.gammaurl", c.Polymarket.GammaURL)
	v.SetDefault("polymarket.chainid", c.Polymarket.ChainID)
	v.SetDefault("polymarket.signaturetype", c.Polymarket.SignatureType)
	v.SetDefault("polymarket.funderaddress", c.Polymarket.FunderAddress)
	v.SetDefault("polymarket.requesttimeout", c.Polymarket.RequestTimeout)
	v.SetDefault("wallet.path", c.Wallet.Path)
	v.SetDefault("logging.level", c.Logging.Level)
	v.SetDefault("logging.format", c.Logging.Format)
	v.SetDefault("logging.file.path", c.Logging.File.Path)
	v.SetDefault("logging.file.maxsizemb", c.Logging.File.MaxSizeMB)
	v.SetDefault("logging.file.maxbackups", c.Logging.File.MaxBackups)
	v.SetDefault("logging.file.maxagedays", c.Logging.File.MaxAgeDays)
	v.SetDefault("logging.file.compress", c.Logging.File.Compress)
	v.SetDefault("database.enabled", c.Database.Enabled)
	v.SetDefault("database.driver", c.Database.Driver)
	v.SetDefault("database.path", c.Database.Path)
	v.SetDefault("database.host", c.Database.Host)
	v.SetDefault("database.port", c.Database.Port)
	v.SetDefault("database.username", c.Database.Username)
	v.SetDefault("database.password", c.Database.Password)
	v.SetDefault("database.database", c.Database.Database)
	v.SetDefault("database.sslmode", c.Database.SSLMode)
}

// Load resolves configuration. configPath may be empty, in which case
// config.yaml in ConfigDir is used if present. A .env file in the working
// directory is loaded into the environment first without overriding
// variables that are already set.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warnf(log.Global, "ignoring .env: %v", err)
	}

	def := Default()
	v := viper.New()
	setDefaults(v, def)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	switch {
	case configPath != "":
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configPath, err)
		}
	default:
		if dir, err := ConfigDir(); err == nil {
			v.AddConfigPath(dir)
			v.SetConfigName("config")
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				var notFound viper.ConfigFileNotFoundError
				if !errors.As(err, &notFound) {
					return nil, fmt.Errorf("read config: %w", err)
				}
			}
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks that required values are present
func (c *Config) Validate() error {
	if c.Hyperliquid.APIURL == "" {
		return fmt.Errorf("hyperliquid api url: %w", errEmptyEndpoint)
	}
	if c.Hyperliquid.Domain.ChainID <= 0 {
		return fmt.Errorf("hyperliquid domain: %w", errInvalidChainID)
	}
	if c.Polymarket.CLOBURL == "" {
		return fmt.Errorf("polymarket clob url: %w", errEmptyEndpoint)
	}
	if c.Polymarket.ChainID <= 0 {
		return fmt.Errorf("polymarket: %w", errInvalidChainID)
	}
	switch c.Database.Driver {
	case "sqlite3", "sqlite", "postgres":
	default:
		if c.Database.Enabled {
			return fmt.Errorf("%w: %q", errUnsupportedDatabase, c.Database.Driver)
		}
	}
	return nil
}
