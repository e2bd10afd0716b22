package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/clawearn/clawearn/config"
	"github.com/clawearn/clawearn/database"
	"github.com/clawearn/clawearn/database/drivers"
	"github.com/clawearn/clawearn/database/repository/submission"
	"github.com/clawearn/clawearn/exchanges/hyperliquid"
	"github.com/clawearn/clawearn/log"
	"github.com/clawearn/clawearn/wallet"
)

const passphraseEnv = "CLAWEARN_PASSPHRASE"

var errNoWalletAddress = errors.New("no wallet found, run `clawearn wallet create` or pass --private-key")

// app carries the state resolved by the global flags to every command
type app struct {
	stdout  io.Writer
	stderr  io.Writer
	stdin   *os.File
	printer *message.Printer

	cfg        *config.Config
	store      *wallet.Store
	keys       wallet.KeySource
	privateKey string

	db      *database.Instance
	journal *submission.Journal

	// passphrase reads the wallet passphrase, prompting on a terminal
	passphrase func() ([]byte, error)
	dialChain  func(ctx context.Context, rpcURL string) (hyperliquid.ChainClient, error)
}

func newApp(stdout, stderr io.Writer) *cli.App {
	a := &app{
		stdout:  stdout,
		stderr:  stderr,
		stdin:   os.Stdin,
		printer: message.NewPrinter(language.English),
	}
	a.passphrase = a.readPassphrase
	a.dialChain = func(ctx context.Context, rpcURL string) (hyperliquid.ChainClient, error) {
		return ethclient.DialContext(ctx, rpcURL)
	}
	return a.cli()
}

func (a *app) cli() *cli.App {
	return &cli.App{
		Name:                 "clawearn",
		Usage:                "trade perpetuals on Hyperliquid and outcomes on Polymarket",
		HideVersion:          true,
		EnableBashCompletion: true,
		Writer:               a.stdout,
		ErrWriter:            a.stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a config file (default ~/.config/clawearn/config.yaml)",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "log debug output to stderr",
			},
			&cli.StringFlag{
				Name:    "private-key",
				Usage:   "hex private key used instead of the stored wallet",
				EnvVars: []string{"CLAWEARN_PRIVATE_KEY"},
			},
			&cli.StringFlag{
				Name:  "journal",
				Usage: "sqlite file for the submission journal, overrides the config",
			},
		},
		Before: a.before,
		After:  a.after,
		Commands: []*cli.Command{
			walletCommand(a),
			hyperliquidCommand(a),
			polymarketCommand(a),
		},
	}
}

func (a *app) before(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if c.Bool("verbose") {
		cfg.Logging.Level = "debug"
	}
	if cfg.Logging.Output == nil {
		cfg.Logging.Output = a.stderr
	}
	if err := log.Setup(&cfg.Logging); err != nil {
		return err
	}
	if p := c.String("journal"); p != "" {
		cfg.Database.Enabled = true
		cfg.Database.Driver = database.DBSQLite3
		cfg.Database.Path = p
	}
	a.cfg = cfg
	a.store = wallet.NewStore(cfg.Wallet.Path)
	a.privateKey = strings.TrimSpace(c.String("private-key"))

	var keys wallet.ChainSource
	if a.privateKey != "" {
		keys = append(keys, wallet.NewStaticSource(a.privateKey))
	}
	a.keys = append(keys, &wallet.StoreSource{Store: a.store, Passphrase: a.passphrase})
	return nil
}

func (a *app) after(*cli.Context) error {
	if a.db != nil {
		if err := a.db.CloseConnection(); err != nil {
			log.Errorf(log.DatabaseSys, "close journal: %v", err)
		}
		a.db, a.journal = nil, nil
	}
	return log.CloseLogger()
}

// openJournal connects the submission journal once. A journal that cannot be
// opened is reported and trading continues without it.
func (a *app) openJournal(ctx context.Context) *submission.Journal {
	if a.journal != nil || a.cfg == nil || !a.cfg.Database.Enabled {
		return a.journal
	}
	d := a.cfg.Database
	dbCfg := &database.Config{
		Enabled: true,
		Verbose: log.Enabled(logrus.DebugLevel),
		Driver:  d.Driver,
		Path:    d.Path,
		ConnectionDetails: drivers.ConnectionDetails{
			Host:     d.Host,
			Port:     d.Port,
			Username: d.Username,
			Password: d.Password,
			Database: d.Database,
			SSLMode:  d.SSLMode,
		},
	}
	if d.Driver == database.DBSQLite || d.Driver == database.DBSQLite3 {
		if err := os.MkdirAll(filepath.Dir(d.Path), 0o700); err != nil {
			log.Warnf(log.DatabaseSys, "journal disabled: %v", err)
			return nil
		}
	}
	db, err := database.Connect(ctx, dbCfg)
	if err != nil {
		log.Warnf(log.DatabaseSys, "journal disabled: %v", err)
		return nil
	}
	j, err := submission.NewJournal(ctx, db)
	if err != nil {
		log.Warnf(log.DatabaseSys, "journal disabled: %v", err)
		if cerr := db.CloseConnection(); cerr != nil {
			log.Errorf(log.DatabaseSys, "close journal: %v", cerr)
		}
		return nil
	}
	a.db, a.journal = db, j
	return j
}

// address resolves the account address without decrypting the wallet
func (a *app) address() (common.Address, error) {
	if a.privateKey != "" {
		k, err := wallet.ParseKey(a.privateKey)
		if err != nil {
			return common.Address{}, err
		}
		return k.Address(), nil
	}
	addr, err := a.store.Address()
	if errors.Is(err, wallet.ErrNoSigningKey) {
		return common.Address{}, errNoWalletAddress
	}
	return addr, err
}

// userAddress prefers an explicit --user flag over the wallet address
func (a *app) userAddress(c *cli.Context) (string, error) {
	if u := strings.TrimSpace(c.String("user")); u != "" {
		if !common.IsHexAddress(u) {
			return "", fmt.Errorf("invalid address %q", u)
		}
		return common.HexToAddress(u).Hex(), nil
	}
	addr, err := a.address()
	if err != nil {
		return "", err
	}
	return addr.Hex(), nil
}

func (a *app) readPassphrase() ([]byte, error) {
	if p, ok := os.LookupEnv(passphraseEnv); ok {
		return []byte(p), nil
	}
	fd := int(a.stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("%w: set %s or run from a terminal", wallet.ErrPassphraseRequired, passphraseEnv)
	}
	fmt.Fprint(a.stderr, "Wallet passphrase: ")
	p, err := term.ReadPassword(fd)
	fmt.Fprintln(a.stderr)
	return p, err
}

// newPassphrase asks twice and requires both entries to match
func (a *app) newPassphrase() ([]byte, error) {
	if p, ok := os.LookupEnv(passphraseEnv); ok {
		if p == "" {
			return nil, errors.New("passphrase must not be empty")
		}
		return []byte(p), nil
	}
	fd := int(a.stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("%w: set %s or run from a terminal", wallet.ErrPassphraseRequired, passphraseEnv)
	}
	fmt.Fprint(a.stderr, "New passphrase: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(a.stderr)
	if err != nil {
		return nil, err
	}
	fmt.Fprint(a.stderr, "Repeat passphrase: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(a.stderr)
	if err != nil {
		return nil, err
	}
	if len(first) == 0 || string(first) != string(second) {
		return nil, errors.New("passphrases are empty or do not match")
	}
	return first, nil
}
