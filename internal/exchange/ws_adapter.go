package exchange

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"

	"marketpulse/internal/logging"
	"marketpulse/internal/model"
)

var fastJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// ReconnectBackoff is the fixed reconnect delay mandated by spec §6.1.
const ReconnectBackoff = 5 * time.Second

// rawTicker mirrors the exchange's !ticker@arr element: every numeric field
// arrives as a JSON string.
type rawTicker struct {
	Symbol             string `json:"s"`
	PriceChangePercent string `json:"P"`
	LastPrice          string `json:"c"`
	OpenPrice          string `json:"o"`
	HighPrice          string `json:"h"`
	LowPrice           string `json:"l"`
	BaseVolume         string `json:"v"`
	QuoteVolume        string `json:"q"`
	TradeCount         int64  `json:"n"`
	EventTime          int64  `json:"E"`
}

// WSStreamClient is the reference StreamClient adapter: a gorilla/websocket
// connection to the exchange's !ticker@arr stream, decoded with
// json-iterator for the hot path, reconnecting with a fixed backoff on any
// disconnect or parse failure (spec §6.1, §7 StreamError).
type WSStreamClient struct {
	URL    string
	logger *logging.Logger
}

// NewWSStreamClient creates a reference ticker-stream adapter.
func NewWSStreamClient(url string, logger *logging.Logger) *WSStreamClient {
	return &WSStreamClient{URL: url, logger: logger}
}

// Stream implements StreamClient. It never returns until ctx is cancelled;
// transient errors are logged and retried after ReconnectBackoff.
func (w *WSStreamClient) Stream(ctx context.Context, onBatch func([]model.Ticker)) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, w.URL, nil)
		if err != nil {
			w.logger.Error("exchange stream dial failed, retrying", "error", err, "backoff", ReconnectBackoff)
			if !sleepOrDone(ctx, ReconnectBackoff) {
				return ctx.Err()
			}
			continue
		}

		w.readLoop(ctx, conn, onBatch)
		conn.Close()

		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.logger.Warn("exchange stream disconnected, reconnecting", "backoff", ReconnectBackoff)
		if !sleepOrDone(ctx, ReconnectBackoff) {
			return ctx.Err()
		}
	}
}

func (w *WSStreamClient) readLoop(ctx context.Context, conn *websocket.Conn, onBatch func([]model.Ticker)) {
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				w.logger.Warn("exchange stream read error", "error", err)
			}
			return
		}

		var raw []rawTicker
		if err := fastJSON.Unmarshal(message, &raw); err != nil {
			w.logger.Warn("exchange stream malformed payload, reconnecting", "error", err)
			return
		}

		batch := make([]model.Ticker, 0, len(raw))
		for _, r := range raw {
			t, err := toTicker(r)
			if err != nil {
				w.logger.Warn("exchange stream unparsable ticker, reconnecting", "error", err)
				return
			}
			batch = append(batch, t)
		}
		if len(batch) > 0 {
			onBatch(batch)
		}
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

func toTicker(r rawTicker) (model.Ticker, error) {
	last, err := parseFloat(r.LastPrice)
	if err != nil {
		return model.Ticker{}, err
	}
	open, _ := parseFloat(r.OpenPrice)
	high, _ := parseFloat(r.HighPrice)
	low, _ := parseFloat(r.LowPrice)
	changePct, _ := parseFloat(r.PriceChangePercent)
	baseVol, _ := parseFloat(r.BaseVolume)
	quoteVol, _ := parseFloat(r.QuoteVolume)

	return model.Ticker{
		Symbol:             r.Symbol,
		LastPrice:          last,
		OpenPrice:          open,
		HighPrice:          high,
		LowPrice:           low,
		PriceChangePercent: changePct,
		BaseVolume:         baseVol,
		QuoteVolume:        quoteVol,
		TradeCount:         r.TradeCount,
		EventTime:          time.UnixMilli(r.EventTime),
	}, nil
}
