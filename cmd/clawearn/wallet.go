package main

import (
	"github.com/urfave/cli/v2"

	"github.com/clawearn/clawearn/log"
	"github.com/clawearn/clawearn/wallet"
)

func walletCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:  "wallet",
		Usage: "manage the local signing key",
		Subcommands: []*cli.Command{
			{
				Name:  "create",
				Usage: "generate a new key or import one",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "force", Usage: "overwrite an existing wallet"},
					&cli.BoolFlag{Name: "encrypt", Usage: "seal the key with a passphrase"},
				},
				Action: a.walletCreate,
			},
			{
				Name:   "show",
				Usage:  "print the wallet address",
				Action: a.walletShow,
			},
		},
	}
}

func (a *app) walletCreate(c *cli.Context) error {
	opts := wallet.CreateOptions{
		Force:      c.Bool("force"),
		PrivateKey: a.privateKey,
	}
	if c.Bool("encrypt") {
		pass, err := a.newPassphrase()
		if err != nil {
			return err
		}
		opts.Passphrase = pass
	}
	key, err := a.store.Create(opts)
	if err != nil {
		return err
	}
	log.Infof(log.WalletSys, "wallet written to %s", a.store.Path())
	verb := "Created"
	if opts.PrivateKey != "" {
		verb = "Imported"
	}
	a.printf("%s wallet %s\n", verb, key.Address().Hex())
	a.printf("Stored at %s\n", a.store.Path())
	if len(opts.Passphrase) > 0 {
		a.printf("The key is encrypted; keep the passphrase safe.\n")
	}
	a.printf("Fund this address with USDC before trading.\n")
	return nil
}

func (a *app) walletShow(*cli.Context) error {
	doc, err := a.store.Read()
	if err != nil {
		if a.privateKey == "" {
			return errNoWalletAddress
		}
		addr, aerr := a.address()
		if aerr != nil {
			return aerr
		}
		a.printf("Address: %s (from --private-key)\n", addr.Hex())
		return nil
	}
	a.printf("Address:   %s\n", doc.Address)
	a.printf("Path:      %s\n", a.store.Path())
	a.printf("Encrypted: %v\n", doc.Crypto != nil)
	if !doc.CreatedAt.IsZero() {
		a.printf("Created:   %s\n", doc.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	}
	return nil
}
