package exchange

import (
	"context"
	"fmt"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/valyala/fasthttp"

	"marketpulse/internal/logging"
)

// RESTCallDeadline is the per-call deadline mandated by spec §6.2.
const RESTCallDeadline = 10 * time.Second

// RESTHTTPClient is the reference RESTClient adapter, built on fasthttp for
// the funding-rate, open-interest, and kline endpoints.
type RESTHTTPClient struct {
	BaseURL string
	client  *fasthttp.Client
	json    jsoniter.API
	logger  *logging.Logger
}

// NewRESTHTTPClient creates a reference REST adapter against baseURL.
func NewRESTHTTPClient(baseURL string, logger *logging.Logger) *RESTHTTPClient {
	return &RESTHTTPClient{
		BaseURL: baseURL,
		client:  &fasthttp.Client{},
		json:    jsoniter.ConfigCompatibleWithStandardLibrary,
		logger:  logger,
	}
}

func (c *RESTHTTPClient) get(ctx context.Context, path string, out interface{}) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.BaseURL + path)
	req.Header.SetMethod(fasthttp.MethodGet)

	deadline := RESTCallDeadline
	if dl, ok := ctx.Deadline(); ok {
		if remaining := time.Until(dl); remaining < deadline {
			deadline = remaining
		}
	}

	if err := c.client.DoTimeout(req, resp, deadline); err != nil {
		return fmt.Errorf("exchange rest %s: %w", path, err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return fmt.Errorf("exchange rest %s: status %d", path, resp.StatusCode())
	}
	return c.json.Unmarshal(resp.Body(), out)
}

type fundingRateDTO struct {
	Symbol        string `json:"symbol"`
	FundingRate   string `json:"lastFundingRate"`
	NextFundingTs int64  `json:"nextFundingTime"`
	MarkPrice     string `json:"markPrice"`
}

// GetFundingRates implements RESTClient.
func (c *RESTHTTPClient) GetFundingRates(ctx context.Context) ([]FundingRate, error) {
	var raw []fundingRateDTO
	if err := c.get(ctx, "/fapi/v1/premiumIndex", &raw); err != nil {
		return nil, err
	}
	out := make([]FundingRate, 0, len(raw))
	for _, r := range raw {
		rate, err := parseFloat(r.FundingRate)
		if err != nil {
			continue
		}
		mark, _ := parseFloat(r.MarkPrice)
		out = append(out, FundingRate{
			Symbol:        r.Symbol,
			Rate:          rate,
			NextFundingTs: time.UnixMilli(r.NextFundingTs),
			MarkPrice:     mark,
		})
	}
	return out, nil
}

type openInterestDTO struct {
	Symbol       string `json:"symbol"`
	OpenInterest string `json:"openInterest"`
	Time         int64  `json:"time"`
}

// GetOpenInterest implements RESTClient.
func (c *RESTHTTPClient) GetOpenInterest(ctx context.Context, symbol string) (OpenInterest, error) {
	var raw openInterestDTO
	if err := c.get(ctx, "/fapi/v1/openInterest?symbol="+symbol, &raw); err != nil {
		return OpenInterest{}, err
	}
	oi, err := parseFloat(raw.OpenInterest)
	if err != nil {
		return OpenInterest{}, err
	}
	return OpenInterest{Symbol: raw.Symbol, OpenInterest: oi, Ts: time.UnixMilli(raw.Time)}, nil
}

// GetKlines implements RESTClient.
func (c *RESTHTTPClient) GetKlines(ctx context.Context, symbol string, interval KlineInterval, limit int) ([]Kline, error) {
	var raw [][]interface{}
	path := fmt.Sprintf("/fapi/v1/klines?symbol=%s&interval=%s&limit=%d", symbol, interval, limit)
	if err := c.get(ctx, path, &raw); err != nil {
		return nil, err
	}

	out := make([]Kline, 0, len(raw))
	for _, row := range raw {
		if len(row) < 7 {
			continue
		}
		k, err := klineFromRow(row)
		if err != nil {
			c.logger.Warn("exchange rest malformed kline row, skipping", "symbol", symbol, "error", err)
			continue
		}
		out = append(out, k)
	}
	return out, nil
}

func klineFromRow(row []interface{}) (Kline, error) {
	openTime, err := numToInt64(row[0])
	if err != nil {
		return Kline{}, err
	}
	open, err := strField(row[1])
	if err != nil {
		return Kline{}, err
	}
	high, err := strField(row[2])
	if err != nil {
		return Kline{}, err
	}
	low, err := strField(row[3])
	if err != nil {
		return Kline{}, err
	}
	closeP, err := strField(row[4])
	if err != nil {
		return Kline{}, err
	}
	vol, err := strField(row[5])
	if err != nil {
		return Kline{}, err
	}
	closeTime, err := numToInt64(row[6])
	if err != nil {
		return Kline{}, err
	}

	return Kline{
		OpenTime:  time.UnixMilli(openTime),
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closeP,
		Volume:    vol,
		CloseTime: time.UnixMilli(closeTime),
	}, nil
}

func strField(v interface{}) (float64, error) {
	s, ok := v.(string)
	if !ok {
		return 0, fmt.Errorf("expected string field, got %T", v)
	}
	return parseFloat(s)
}

func numToInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case float64:
		return int64(n), nil
	case string:
		return strconv.ParseInt(n, 10, 64)
	default:
		return 0, fmt.Errorf("expected numeric field, got %T", v)
	}
}
