package main

import (
	"context"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/clawearn/clawearn/exchanges/polymarket"
)

const polymarketVenue = "polymarket"

func tokenFlag() cli.Flag {
	return &cli.StringFlag{Name: "token-id", Usage: "outcome token id", Required: true}
}

func polymarketCommand(a *app) *cli.Command {
	orderFlags := func() []cli.Flag {
		return []cli.Flag{
			tokenFlag(),
			&cli.StringFlag{Name: "price", Usage: "limit price between 0 and 1", Required: true},
			&cli.StringFlag{Name: "size", Usage: "number of shares", Required: true},
			&cli.StringFlag{Name: "type", Value: string(polymarket.GoodTilCancelled), Usage: "order type: GTC, FOK or FAK"},
		}
	}
	return &cli.Command{
		Name:    "polymarket",
		Aliases: []string{"poly"},
		Usage:   "prediction markets on Polymarket",
		Subcommands: []*cli.Command{
			{
				Name:  "market",
				Usage: "discover markets",
				Subcommands: []*cli.Command{
					{
						Name:   "search",
						Usage:  "search events and markets",
						Flags:  []cli.Flag{&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "search text", Required: true}},
						Action: a.pmSearch,
					},
					{
						Name:  "list",
						Usage: "list active events",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "tag", Usage: "gamma tag id"},
							limitFlag(),
						},
						Action: a.pmList,
					},
					{
						Name:   "info",
						Usage:  "show one market and its outcome tokens",
						Flags:  []cli.Flag{&cli.StringFlag{Name: "market-id", Usage: "condition id", Required: true}},
						Action: a.pmMarketInfo,
					},
				},
			},
			{
				Name:  "price",
				Usage: "token prices",
				Subcommands: []*cli.Command{
					{
						Name:  "get",
						Usage: "best price and midpoint for a token",
						Flags: []cli.Flag{
							tokenFlag(),
							&cli.StringFlag{Name: "side", Value: string(polymarket.Buy), Usage: "BUY or SELL"},
						},
						Action: a.pmPrice,
					},
					{
						Name:   "book",
						Usage:  "order book for a token",
						Flags:  []cli.Flag{tokenFlag(), &cli.IntFlag{Name: "depth", Value: 10, Usage: "levels per side"}},
						Action: a.pmBook,
					},
				},
			},
			{
				Name:  "order",
				Usage: "place, cancel and list orders",
				Subcommands: []*cli.Command{
					{
						Name:   "buy",
						Usage:  "buy outcome shares",
						Flags:  orderFlags(),
						Action: a.pmOrder(polymarket.Buy),
					},
					{
						Name:   "sell",
						Usage:  "sell outcome shares",
						Flags:  orderFlags(),
						Action: a.pmOrder(polymarket.Sell),
					},
					{
						Name:   "cancel",
						Usage:  "cancel a resting order",
						Flags:  []cli.Flag{&cli.StringFlag{Name: "order-id", Usage: "order hash", Required: true}},
						Action: a.pmCancel,
					},
					{
						Name:   "list-open",
						Usage:  "list resting orders",
						Action: a.pmOpenOrders,
					},
				},
			},
			{
				Name:   "history",
				Usage:  "show journaled submissions",
				Flags:  []cli.Flag{limitFlag()},
				Action: a.history(polymarketVenue),
			},
		},
	}
}

func (a *app) polymarketClient(ctx context.Context, signing bool) (*polymarket.Client, error) {
	p := a.cfg.Polymarket
	cfg := polymarket.Config{
		CLOBURL:        p.CLOBURL,
		GammaURL:       p.GammaURL,
		ChainID:        p.ChainID,
		SignatureType:  p.SignatureType,
		FunderAddress:  p.FunderAddress,
		RequestTimeout: p.RequestTimeout,
	}
	if !signing {
		return polymarket.New(cfg, nil)
	}
	var opts []polymarket.Option
	if j := a.openJournal(ctx); j != nil {
		opts = append(opts, polymarket.WithRecorder(j))
	}
	return polymarket.New(cfg, a.keys, opts...)
}

func (a *app) printEvents(events []polymarket.Event) error {
	rows := make([][]string, 0, len(events))
	for _, e := range events {
		if len(e.Markets) == 0 {
			rows = append(rows, []string{e.ID, e.Title, "-", "-"})
			continue
		}
		for _, m := range e.Markets {
			rows = append(rows, []string{e.ID, e.Title, orDash(m.Question), orDash(m.ConditionID)})
		}
	}
	return a.table([]string{"EVENT", "TITLE", "MARKET", "CONDITION ID"}, rows)
}

func (a *app) pmSearch(c *cli.Context) error {
	pm, err := a.polymarketClient(c.Context, false)
	if err != nil {
		return err
	}
	res, err := pm.SearchMarkets(c.Context, c.String("query"))
	if err != nil {
		return err
	}
	if res.Empty() {
		a.printf("No results for %q\n", c.String("query"))
		return nil
	}
	return a.printEvents(res.Events)
}

func (a *app) pmList(c *cli.Context) error {
	pm, err := a.polymarketClient(c.Context, false)
	if err != nil {
		return err
	}
	events, err := pm.ListEvents(c.Context, c.String("tag"), c.Int("limit"))
	if err != nil {
		return err
	}
	if len(events) == 0 {
		a.printf("No active events\n")
		return nil
	}
	return a.printEvents(events)
}

func (a *app) pmMarketInfo(c *cli.Context) error {
	pm, err := a.polymarketClient(c.Context, false)
	if err != nil {
		return err
	}
	m, err := pm.GetMarket(c.Context, c.String("market-id"))
	if err != nil {
		return err
	}
	a.printf("Question:  %s\n", m.Question)
	a.printf("Condition: %s\n", m.ConditionID)
	a.printf("Active:    %v (accepting orders %v)\n", m.Active && !m.Closed, m.AcceptingOrders)
	a.printf("Tick size: %s\n", m.MinimumTickSize)
	a.printf("Min order: %s\n", m.MinimumOrder)
	a.printf("Neg risk:  %v\n", m.NegRisk)
	if m.EndDateISO != "" {
		a.printf("Ends:      %s\n", m.EndDateISO)
	}
	rows := make([][]string, 0, len(m.Tokens))
	for _, t := range m.Tokens {
		rows = append(rows, []string{t.Outcome, t.Price.String(), t.TokenID})
	}
	a.printf("\n")
	return a.table([]string{"OUTCOME", "PRICE", "TOKEN ID"}, rows)
}

func (a *app) pmPrice(c *cli.Context) error {
	side, err := polymarket.ParseSide(c.String("side"))
	if err != nil {
		return err
	}
	pm, err := a.polymarketClient(c.Context, false)
	if err != nil {
		return err
	}
	token := c.String("token-id")
	px, err := pm.GetPrice(c.Context, token, side)
	if err != nil {
		return err
	}
	mid, err := pm.GetMidpoint(c.Context, token)
	if err != nil {
		return err
	}
	a.printf("%s price: %s\n", side, px)
	a.printf("Midpoint:  %s\n", mid)
	return nil
}

func (a *app) pmBook(c *cli.Context) error {
	pm, err := a.polymarketClient(c.Context, false)
	if err != nil {
		return err
	}
	book, err := pm.GetOrderBook(c.Context, c.String("token-id"))
	if err != nil {
		return err
	}
	depth := c.Int("depth")
	asks, bids := book.Asks, book.Bids
	if depth > 0 && len(asks) > depth {
		asks = asks[len(asks)-depth:]
	}
	if depth > 0 && len(bids) > depth {
		bids = bids[len(bids)-depth:]
	}
	// the CLOB returns both sides with the best level last
	rows := make([][]string, 0, len(asks)+len(bids))
	for _, l := range asks {
		rows = append(rows, []string{"ask", l.Price.String(), l.Size.String()})
	}
	for i := len(bids) - 1; i >= 0; i-- {
		rows = append(rows, []string{"bid", bids[i].Price.String(), bids[i].Size.String()})
	}
	a.printf("Tick size %s, min order %s\n", book.TickSize, book.MinOrderSize)
	return a.table([]string{"SIDE", "PRICE", "SIZE"}, rows)
}

func (a *app) pmOrder(side polymarket.Side) cli.ActionFunc {
	return func(c *cli.Context) error {
		pm, err := a.polymarketClient(c.Context, true)
		if err != nil {
			return err
		}
		req := &polymarket.OrderRequest{
			TokenID:   strings.TrimSpace(c.String("token-id")),
			Side:      side,
			Price:     c.String("price"),
			Size:      c.String("size"),
			OrderType: polymarket.OrderType(strings.ToUpper(c.String("type"))),
		}
		resp, err := pm.PlaceOrder(c.Context, req)
		if err != nil {
			return err
		}
		a.printf("%s %s @ %s: %s\n", side, req.Size, req.Price, resp.Status)
		a.printf("  order  %s\n", resp.OrderID)
		for _, h := range resp.TxHashes {
			a.printf("  tx     %s\n", h)
		}
		return nil
	}
}

func (a *app) pmCancel(c *cli.Context) error {
	pm, err := a.polymarketClient(c.Context, true)
	if err != nil {
		return err
	}
	resp, err := pm.CancelOrder(c.Context, c.String("order-id"))
	if err != nil {
		return err
	}
	for _, id := range resp.Canceled {
		a.printf("Cancelled %s\n", id)
	}
	return nil
}

func (a *app) pmOpenOrders(c *cli.Context) error {
	pm, err := a.polymarketClient(c.Context, true)
	if err != nil {
		return err
	}
	orders, err := pm.GetOpenOrders(c.Context)
	if err != nil {
		return err
	}
	if len(orders) == 0 {
		a.printf("No open orders\n")
		return nil
	}
	rows := make([][]string, 0, len(orders))
	for _, o := range orders {
		rows = append(rows, []string{
			o.ID, string(o.Side), orDash(o.Outcome), o.Price.String(),
			o.SizeMatched.String() + "/" + o.OriginalSize.String(), o.Status,
		})
	}
	return a.table([]string{"ORDER ID", "SIDE", "OUTCOME", "PRICE", "FILLED", "STATUS"}, rows)
}
