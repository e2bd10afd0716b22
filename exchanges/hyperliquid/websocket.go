package hyperliquid

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	json "github.com/clawearn/clawearn/encoding/json"
	"github.com/clawearn/clawearn/log"
)

const websocketPingInterval = 50 * time.Second

var (
	errEmptyWebsocketURL = errors.New("websocket url must not be empty")
	errWebsocketError    = errors.New("websocket error")
)

func (e *Exchange) dialWebsocket(ctx context.Context) (*gws.Conn, error) {
	if e.cfg.WebsocketURL == "" {
		return nil, errEmptyWebsocketURL
	}
	dialer := gws.Dialer{
		HandshakeTimeout: e.cfg.RequestTimeout,
		Proxy:            http.ProxyFromEnvironment,
	}
	conn, resp, err := dialer.DialContext(ctx, e.cfg.WebsocketURL, http.Header{"User-Agent": {e.cfg.UserAgent}})
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("%s websocket dial: %w", venueName, err)
	}
	return conn, nil
}

// stream subscribes sub and passes every matching channel message to handle
// until ctx is done, handle fails or the connection drops. Cancellation is
// not an error.
func (e *Exchange) stream(ctx context.Context, sub *wsSubscription, handle func(json.RawMessage) error) error {
	conn, err := e.dialWebsocket(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := conn.WriteJSON(wsRequest{Method: "subscribe", Subscription: sub}); err != nil {
		return fmt.Errorf("%s websocket subscribe: %w", venueName, err)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(websocketPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				_ = conn.WriteControl(gws.CloseMessage, gws.FormatCloseMessage(gws.CloseNormalClosure, ""), time.Now().Add(time.Second))
				_ = conn.Close()
				return
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteJSON(wsRequest{Method: "ping"}); err != nil {
					log.Warnf(log.ExchangeSys, "%s websocket ping: %v", venueName, err)
				}
			}
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("%s websocket read: %w", venueName, err)
		}
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 || raw[0] != '{' {
			continue
		}
		var msg wsMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return fmt.Errorf("%s decode websocket message: %w", venueName, err)
		}
		switch msg.Channel {
		case websocketChannelSubscriptionResponse, websocketChannelPong:
		case websocketChannelError:
			var text string
			if json.Unmarshal(msg.Data, &text) != nil {
				text = string(msg.Data)
			}
			return fmt.Errorf("%s %w: %s", venueName, errWebsocketError, text)
		case sub.Type:
			if err := handle(msg.Data); err != nil {
				return err
			}
		}
	}
}

// StreamMids calls fn with every allMids push. When coins is not empty the
// update only carries those coins and empty updates are skipped.
func (e *Exchange) StreamMids(ctx context.Context, coins []string, fn func(MidsUpdate) error) error {
	want := make(map[string]struct{}, len(coins))
	for _, c := range coins {
		want[strings.ToUpper(c)] = struct{}{}
	}
	return e.stream(ctx, &wsSubscription{Type: websocketChannelAllMids}, func(data json.RawMessage) error {
		var payload wsAllMidsData
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("%s decode all mids payload: %w", venueName, err)
		}
		if len(want) == 0 {
			return fn(MidsUpdate(payload))
		}
		update := MidsUpdate{Mids: make(map[string]decimal.Decimal, len(want))}
		for coin, mid := range payload.Mids {
			if _, ok := want[strings.ToUpper(coin)]; ok {
				update.Mids[coin] = mid
			}
		}
		if len(update.Mids) == 0 {
			return nil
		}
		return fn(update)
	})
}

// StreamL2Book calls fn with every book snapshot pushed for coin
func (e *Exchange) StreamL2Book(ctx context.Context, coin string, fn func(*L2Book) error) error {
	if coin == "" {
		return errWebsocketSubscriptions
	}
	return e.stream(ctx, &wsSubscription{Type: websocketChannelL2Book, Coin: coin}, func(data json.RawMessage) error {
		book := new(L2Book)
		if err := json.Unmarshal(data, book); err != nil {
			return fmt.Errorf("%s decode l2 book payload: %w", venueName, err)
		}
		return fn(book)
	})
}
