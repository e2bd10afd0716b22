package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/clawearn/clawearn/exchanges/hyperliquid"
	"github.com/clawearn/clawearn/exchanges/nonce"
	"github.com/clawearn/clawearn/log"
)

const hyperliquidVenue = "hyperliquid"

func userFlag() cli.Flag {
	return &cli.StringFlag{Name: "user", Usage: "account address to query, defaults to the wallet"}
}

func coinFlag() cli.Flag {
	return &cli.StringFlag{Name: "coin", Aliases: []string{"symbol"}, Usage: "market symbol, e.g. BTC", Required: true}
}

func vaultFlag() cli.Flag {
	return &cli.StringFlag{Name: "vault", Usage: "trade on behalf of this vault or subaccount"}
}

func limitFlag() cli.Flag {
	return &cli.IntFlag{Name: "limit", Value: 20, Usage: "number of entries"}
}

func hyperliquidCommand(a *app) *cli.Command {
	orderFlags := func() []cli.Flag {
		return []cli.Flag{
			coinFlag(),
			&cli.StringFlag{Name: "price", Usage: "limit price", Required: true},
			&cli.StringFlag{Name: "size", Usage: "order size in coin units", Required: true},
			&cli.StringFlag{Name: "tif", Value: hyperliquid.TimeInForceGTC, Usage: "time in force: Gtc, Alo or Ioc"},
			&cli.BoolFlag{Name: "reduce-only", Usage: "only reduce an existing position"},
			&cli.Int64Flag{Name: "leverage", Usage: "set leverage for the coin before ordering"},
			&cli.BoolFlag{Name: "cross", Usage: "use cross margin when --leverage is set"},
			&cli.StringFlag{Name: "cloid", Usage: "client order id (0x + 32 hex)"},
			vaultFlag(),
		}
	}
	return &cli.Command{
		Name:    "hyperliquid",
		Aliases: []string{"hl"},
		Usage:   "perpetual futures on Hyperliquid",
		Subcommands: []*cli.Command{
			{
				Name:  "market",
				Usage: "perpetual market metadata",
				Subcommands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "list perpetual markets",
						Flags:  []cli.Flag{&cli.BoolFlag{Name: "all", Usage: "include delisted markets"}},
						Action: a.hlMarketList,
					},
					{
						Name:   "info",
						Usage:  "show one market",
						Flags:  []cli.Flag{coinFlag()},
						Action: a.hlMarketInfo,
					},
				},
			},
			{
				Name:  "price",
				Usage: "show the mid price of a coin",
				Flags: []cli.Flag{
					coinFlag(),
					&cli.BoolFlag{Name: "watch", Aliases: []string{"w"}, Usage: "stream updates until interrupted"},
				},
				Action: a.hlPrice,
			},
			{
				Name:   "balance",
				Usage:  "show margin, positions and spot balances",
				Flags:  []cli.Flag{userFlag()},
				Action: a.hlBalance,
			},
			{
				Name:  "order",
				Usage: "place, cancel and list orders",
				Subcommands: []*cli.Command{
					{
						Name:   "buy",
						Usage:  "place a limit buy",
						Flags:  orderFlags(),
						Action: a.hlOrder(hyperliquid.SideBuy),
					},
					{
						Name:   "sell",
						Usage:  "place a limit sell",
						Flags:  orderFlags(),
						Action: a.hlOrder(hyperliquid.SideSell),
					},
					{
						Name:  "cancel",
						Usage: "cancel a resting order",
						Flags: []cli.Flag{
							coinFlag(),
							&cli.Int64Flag{Name: "order-id", Usage: "venue order id", Required: true},
							vaultFlag(),
						},
						Action: a.hlCancel,
					},
					{
						Name:   "list-open",
						Usage:  "list resting orders",
						Flags:  []cli.Flag{userFlag()},
						Action: a.hlOpenOrders,
					},
				},
			},
			{
				Name:  "leverage",
				Usage: "set leverage for a coin",
				Flags: []cli.Flag{
					coinFlag(),
					&cli.Int64Flag{Name: "leverage", Usage: "leverage multiple", Required: true},
					&cli.BoolFlag{Name: "cross", Usage: "cross margin instead of isolated"},
					vaultFlag(),
				},
				Action: a.hlLeverage,
			},
			{
				Name:  "withdraw",
				Usage: "withdraw USDC to Arbitrum",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "amount", Usage: "USDC amount", Required: true},
					&cli.StringFlag{Name: "recipient", Usage: "destination address, defaults to the wallet"},
				},
				Action: a.hlWithdraw,
			},
			{
				Name:   "deposit",
				Usage:  "deposit USDC from Arbitrum through the bridge",
				Flags:  []cli.Flag{&cli.StringFlag{Name: "amount", Usage: "USDC amount", Required: true}},
				Action: a.hlDeposit,
			},
			{
				Name:   "history",
				Usage:  "show journaled submissions",
				Flags:  []cli.Flag{limitFlag()},
				Action: a.history(hyperliquidVenue),
			},
		},
	}
}

// hyperliquidExchange builds a client from the loaded config. Signing
// clients journal every attempt and continue the journaled nonce sequence.
func (a *app) hyperliquidExchange(ctx context.Context, signing bool) (*hyperliquid.Exchange, error) {
	h := a.cfg.Hyperliquid
	cfg := hyperliquid.DefaultConfig()
	cfg.APIURL = h.APIURL
	cfg.WebsocketURL = h.WebsocketURL
	cfg.RequestTimeout = h.RequestTimeout
	cfg.InfoRateLimit = h.InfoRateLimit
	cfg.ExchangeRateLimit = h.ExchangeLimit
	cfg.Domain = hyperliquid.Domain{
		Name:              h.Domain.Name,
		Version:           h.Domain.Version,
		ChainID:           h.Domain.ChainID,
		VerifyingContract: h.Domain.VerifyingContract,
	}
	if !signing {
		return hyperliquid.New(cfg, nil)
	}

	nonces := nonce.New(nil)
	opts := []hyperliquid.Option{hyperliquid.WithNonceSource(nonces)}
	if j := a.openJournal(ctx); j != nil {
		opts = append(opts, hyperliquid.WithRecorder(j))
		if addr, err := a.address(); err == nil {
			last, err := j.LastNonce(ctx, hyperliquidVenue, addr.Hex())
			if err != nil {
				log.Warnf(log.DatabaseSys, "read last nonce: %v", err)
			}
			nonces.Seed(last)
		}
	}
	return hyperliquid.New(cfg, a.keys, opts...)
}

func (a *app) hlMarketList(c *cli.Context) error {
	ex, err := a.hyperliquidExchange(c.Context, false)
	if err != nil {
		return err
	}
	meta, err := ex.GetMeta(c.Context)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(meta.Universe))
	for _, m := range meta.Universe {
		if m.IsDelisted && !c.Bool("all") {
			continue
		}
		note := ""
		switch {
		case m.IsDelisted:
			note = "delisted"
		case m.OnlyIsolated:
			note = "isolated only"
		}
		rows = append(rows, []string{m.Name, strconv.FormatInt(int64(m.SzDecimals), 10), strconv.FormatInt(m.MaxLeverage, 10) + "x", orDash(note)})
	}
	return a.table([]string{"COIN", "SIZE DECIMALS", "MAX LEVERAGE", "NOTE"}, rows)
}

func (a *app) hlMarketInfo(c *cli.Context) error {
	ex, err := a.hyperliquidExchange(c.Context, false)
	if err != nil {
		return err
	}
	coin := strings.ToUpper(strings.TrimSpace(c.String("coin")))
	m, err := ex.Market(c.Context, coin)
	if err != nil {
		return err
	}
	asset, err := ex.AssetIndex(c.Context, coin)
	if err != nil {
		return err
	}
	mid, err := ex.GetMid(c.Context, coin)
	if err != nil {
		return err
	}
	a.printf("Coin:          %s\n", m.Name)
	a.printf("Asset index:   %s\n", strconv.FormatInt(asset, 10))
	a.printf("Mid price:     %s\n", mid)
	a.printf("Size decimals: %s\n", strconv.FormatInt(int64(m.SzDecimals), 10))
	a.printf("Max leverage:  %sx\n", strconv.FormatInt(m.MaxLeverage, 10))
	a.printf("Isolated only: %v\n", m.OnlyIsolated)
	return nil
}

func (a *app) hlPrice(c *cli.Context) error {
	ex, err := a.hyperliquidExchange(c.Context, false)
	if err != nil {
		return err
	}
	coin := strings.ToUpper(strings.TrimSpace(c.String("coin")))
	mid, err := ex.GetMid(c.Context, coin)
	if err != nil {
		return err
	}
	a.printf("%s %s\n", coin, mid)
	if !c.Bool("watch") {
		return nil
	}
	err = ex.StreamMids(c.Context, []string{coin}, func(u hyperliquid.MidsUpdate) error {
		for k, v := range u.Mids {
			a.printf("%s %s\n", k, v)
		}
		return nil
	})
	if c.Context.Err() != nil {
		return nil
	}
	return err
}

func (a *app) hlBalance(c *cli.Context) error {
	user, err := a.userAddress(c)
	if err != nil {
		return err
	}
	ex, err := a.hyperliquidExchange(c.Context, false)
	if err != nil {
		return err
	}
	state, err := ex.GetClearinghouseState(c.Context, user)
	if err != nil {
		return err
	}
	spot, err := ex.GetSpotClearinghouseState(c.Context, user)
	if err != nil {
		return err
	}
	a.printf("Account:       %s\n", user)
	a.printf("Account value: %s\n", a.usd(state.MarginSummary.AccountValue))
	a.printf("Margin used:   %s\n", a.usd(state.MarginSummary.TotalMarginUsed))
	a.printf("Withdrawable:  %s\n", a.usd(state.Withdrawable))
	if len(state.AssetPositions) > 0 {
		a.printf("\nPositions\n")
		rows := make([][]string, 0, len(state.AssetPositions))
		for _, ap := range state.AssetPositions {
			p := ap.Position
			rows = append(rows, []string{
				p.Coin, p.Size.String(), nullDecimal(p.EntryPrice), p.UnrealizedPnL.String(),
				strconv.FormatInt(p.Leverage.Value, 10) + "x " + p.Leverage.Type, nullDecimal(p.LiquidationPx),
			})
		}
		if err := a.table([]string{"COIN", "SIZE", "ENTRY", "UNREALIZED PNL", "LEVERAGE", "LIQUIDATION"}, rows); err != nil {
			return err
		}
	}
	if len(spot.Balances) > 0 {
		a.printf("\nSpot balances\n")
		rows := make([][]string, 0, len(spot.Balances))
		for _, b := range spot.Balances {
			rows = append(rows, []string{b.Coin, b.Total.String(), b.Hold.String()})
		}
		return a.table([]string{"TOKEN", "TOTAL", "HOLD"}, rows)
	}
	return nil
}

func executeOptions(c *cli.Context) []hyperliquid.ExecuteOption {
	if v := strings.TrimSpace(c.String("vault")); v != "" {
		return []hyperliquid.ExecuteOption{hyperliquid.WithVault(v)}
	}
	return nil
}

func (a *app) hlOrder(side string) cli.ActionFunc {
	return func(c *cli.Context) error {
		req := &hyperliquid.OrderRequest{
			Coin:          strings.ToUpper(strings.TrimSpace(c.String("coin"))),
			Side:          side,
			Price:         strings.TrimSpace(c.String("price")),
			Size:          strings.TrimSpace(c.String("size")),
			TimeInForce:   c.String("tif"),
			ReduceOnly:    c.Bool("reduce-only"),
			ClientOrderID: c.String("cloid"),
			Leverage:      c.Int64("leverage"),
		}
		if err := hyperliquid.ValidateOrder(req); err != nil {
			return err
		}
		ex, err := a.hyperliquidExchange(c.Context, true)
		if err != nil {
			return err
		}
		opts := executeOptions(c)
		if req.Leverage != 0 {
			r, err := ex.UpdateLeverage(c.Context, req.Coin, req.Leverage, c.Bool("cross"), opts...)
			if err != nil {
				a.printReceipt("leverage", r, err)
				return fmt.Errorf("set leverage: %w", err)
			}
		}
		r, err := ex.PlaceOrder(c.Context, req, opts...)
		a.printReceipt(side+" "+req.Size+" "+req.Coin+" @ "+req.Price, r, err)
		return err
	}
}

func (a *app) hlCancel(c *cli.Context) error {
	ex, err := a.hyperliquidExchange(c.Context, true)
	if err != nil {
		return err
	}
	coin := strings.ToUpper(strings.TrimSpace(c.String("coin")))
	oid := c.Int64("order-id")
	r, err := ex.CancelOrder(c.Context, coin, oid, executeOptions(c)...)
	a.printReceipt("cancel "+coin+" "+strconv.FormatInt(oid, 10), r, err)
	return err
}

func (a *app) hlOpenOrders(c *cli.Context) error {
	user, err := a.userAddress(c)
	if err != nil {
		return err
	}
	ex, err := a.hyperliquidExchange(c.Context, false)
	if err != nil {
		return err
	}
	orders, err := ex.GetOpenOrders(c.Context, user)
	if err != nil {
		return err
	}
	if len(orders) == 0 {
		a.printf("No open orders\n")
		return nil
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].OrderID < orders[j].OrderID })
	rows := make([][]string, 0, len(orders))
	for i := range orders {
		o := &orders[i]
		side := hyperliquid.SideSell
		if o.IsBuy() {
			side = hyperliquid.SideBuy
		}
		rows = append(rows, []string{strconv.FormatInt(o.OrderID, 10), o.Coin, side, o.LimitPrice.String(), o.Size.String(), orDash(o.ClientOrderID)})
	}
	return a.table([]string{"ORDER ID", "COIN", "SIDE", "PRICE", "SIZE", "CLOID"}, rows)
}

func (a *app) hlLeverage(c *cli.Context) error {
	ex, err := a.hyperliquidExchange(c.Context, true)
	if err != nil {
		return err
	}
	coin := strings.ToUpper(strings.TrimSpace(c.String("coin")))
	lev := c.Int64("leverage")
	if lev < hyperliquid.MinLeverage || lev > hyperliquid.MaxLeverage {
		return fmt.Errorf("leverage must be between %d and %d", hyperliquid.MinLeverage, hyperliquid.MaxLeverage)
	}
	r, err := ex.UpdateLeverage(c.Context, coin, lev, c.Bool("cross"), executeOptions(c)...)
	a.printReceipt("leverage "+coin+" "+strconv.FormatInt(lev, 10)+"x", r, err)
	return err
}

func (a *app) hlWithdraw(c *cli.Context) error {
	recipient := strings.TrimSpace(c.String("recipient"))
	if recipient == "" {
		addr, err := a.address()
		if err != nil {
			return err
		}
		recipient = addr.Hex()
	}
	ex, err := a.hyperliquidExchange(c.Context, true)
	if err != nil {
		return err
	}
	amount := strings.TrimSpace(c.String("amount"))
	r, err := ex.Withdraw(c.Context, recipient, amount)
	a.printReceipt("withdraw "+amount+" USDC to "+recipient, r, err)
	return err
}

func (a *app) hlDeposit(c *cli.Context) error {
	key, err := a.keys.SigningKey(c.Context)
	if err != nil {
		return err
	}
	b := a.cfg.Hyperliquid.Bridge
	chain, err := a.dialChain(c.Context, b.RPCURL)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", b.RPCURL, err)
	}
	if closer, ok := chain.(interface{ Close() }); ok {
		defer closer.Close()
	}
	dep, err := hyperliquid.NewDepositor(hyperliquid.BridgeConfig{
		ChainID:       b.ChainID,
		BridgeAddress: b.BridgeAddress,
		USDCAddress:   b.USDCAddress,
		MinDeposit:    b.MinDeposit,
	}, chain)
	if err != nil {
		return err
	}
	bal, err := dep.Balance(c.Context, key.Address())
	if err != nil {
		return err
	}
	a.printf("Arbitrum USDC balance: %s\n", bal)
	amount := strings.TrimSpace(c.String("amount"))
	rc, err := dep.Deposit(c.Context, key, amount)
	if err != nil {
		return err
	}
	a.printf("Deposited %s USDC from %s\n", rc.Amount, rc.From.Hex())
	a.printf("Transaction: %s\n", rc.TxHash.Hex())
	if rc.BlockNumber != nil {
		a.printf("Block:       %s\n", rc.BlockNumber.String())
	}
	a.printf("Funds are credited once the bridge confirms, usually within a minute.\n")
	return nil
}

// printReceipt reports a settled submission. After a network failure the
// action may still have landed, so the hint points at the open orders; a
// resubmission always signs a fresh nonce.
func (a *app) printReceipt(what string, r *hyperliquid.Receipt, err error) {
	if r == nil {
		return
	}
	a.printf("%s: %s\n", what, r.Outcome)
	a.printf("  nonce  %s\n", strconv.FormatInt(r.Nonce, 10))
	if r.Vault != "" && !strings.EqualFold(r.Vault, r.Signer) {
		a.printf("  vault  %s\n", r.Vault)
	}
	for _, id := range r.OrderIDs {
		a.printf("  order  %s\n", strconv.FormatInt(id, 10))
	}
	for _, e := range r.Errors {
		a.printf("  error  %s\n", e)
	}
	var nf *hyperliquid.NetworkFailureError
	if errors.As(err, &nf) && nf.Retryable() {
		a.printf("  retry  check \"hl order list-open\" before resubmitting, a retry signs a new nonce\n")
	}
}

func (a *app) history(venue string) cli.ActionFunc {
	return func(c *cli.Context) error {
		j := a.openJournal(c.Context)
		if j == nil {
			return errors.New("journal is disabled or unavailable")
		}
		entries, err := j.Recent(c.Context, venue, c.Int("limit"))
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			a.printf("No submissions recorded\n")
			return nil
		}
		rows := make([][]string, 0, len(entries))
		for _, e := range entries {
			ids := make([]string, len(e.OrderIDs))
			for i, id := range e.OrderIDs {
				ids[i] = strconv.FormatInt(id, 10)
			}
			n := "-"
			if e.Nonce != 0 {
				n = strconv.FormatInt(e.Nonce, 10)
			}
			rows = append(rows, []string{
				e.CreatedAt.Local().Format("2006-01-02 15:04:05"), e.ActionType, e.Outcome, n,
				orDash(strings.Join(ids, ",")), orDash(e.Message),
			})
		}
		return a.table([]string{"TIME", "ACTION", "OUTCOME", "NONCE", "ORDER IDS", "MESSAGE"}, rows)
	}
}
