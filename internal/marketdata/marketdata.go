// Package marketdata reads daily price history from the Yahoo Finance chart API.
package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://query1.finance.yahoo.com"

// Candle is one trading day.
type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// Series is a price history for one symbol, oldest first.
type Series struct {
	Symbol   string
	Currency string
	Candles  []Candle
}

// Last returns the most recent candle.
func (s *Series) Last() (Candle, bool) {
	if len(s.Candles) == 0 {
		return Candle{}, false
	}
	return s.Candles[len(s.Candles)-1], true
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	Suffix     string // appended to bare entity codes, e.g. ".KS"
	PingSymbol string // symbol fetched by Ping
	Timeout    time.Duration
}

// Client is a Yahoo chart API client.
type Client struct {
	baseURL    string
	suffix     string
	pingSymbol string
	httpClient *http.Client
}

// NewClient creates a Client.
func NewClient(opts Options) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ping := opts.PingSymbol
	if ping == "" {
		ping = "^KS11"
	}
	return &Client{
		baseURL:    base,
		suffix:     opts.Suffix,
		pingSymbol: ping,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Symbol maps an entity code to a Yahoo symbol. Codes that already carry an
// exchange suffix or are index symbols pass through unchanged.
func (c *Client) Symbol(code string) string {
	if strings.HasPrefix(code, "^") || strings.Contains(code, ".") || c.suffix == "" {
		return code
	}
	return code + c.suffix
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Currency string `json:"currency"`
		Symbol   string `json:"symbol"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*int64   `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

// History returns daily candles for symbol covering the days before end.
// Days with missing values are skipped.
func (c *Client) History(ctx context.Context, symbol string, end time.Time, days int) (*Series, error) {
	if days < 1 {
		days = 1
	}
	start := end.AddDate(0, 0, -days)
	q := url.Values{
		"period1":  {fmt.Sprint(start.Unix())},
		"period2":  {fmt.Sprint(end.Unix())},
		"interval": {"1d"},
		"events":   {"history"},
	}
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(symbol), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; StockBrief/1.0)")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling chart API: %w", err)
	}
	defer resp.Body.Close()

	var data chartResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&data)
	if data.Chart.Error != nil {
		return nil, fmt.Errorf("chart API error for %s: %s", symbol, data.Chart.Error.Description)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chart API returned %s for %s", resp.Status, symbol)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decoding chart JSON: %w", decodeErr)
	}
	if len(data.Chart.Result) == 0 {
		return nil, fmt.Errorf("no results for %s", symbol)
	}

	res := data.Chart.Result[0]
	if len(res.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("incomplete indicators for %s", symbol)
	}
	quote := res.Indicators.Quote[0]

	series := &Series{Symbol: res.Meta.Symbol, Currency: res.Meta.Currency}
	if series.Symbol == "" {
		series.Symbol = symbol
	}
	for i, ts := range res.Timestamp {
		open, okO := at(quote.Open, i)
		high, okH := at(quote.High, i)
		low, okL := at(quote.Low, i)
		closing, okC := at(quote.Close, i)
		volume, okV := at(quote.Volume, i)
		if !(okO && okH && okL && okC && okV) {
			continue
		}
		series.Candles = append(series.Candles, Candle{
			Time:   time.Unix(ts, 0).UTC(),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closing,
			Volume: volume,
		})
	}
	return series, nil
}

func at[T any](vals []*T, i int) (T, bool) {
	var zero T
	if i >= len(vals) || vals[i] == nil {
		return zero, false
	}
	return *vals[i], true
}

// ErrNoData is returned by Latest when the feed has no recent candle.
var ErrNoData = errors.New("no price data")

// Latest returns the most recent daily candle for symbol.
func (c *Client) Latest(ctx context.Context, symbol string) (Candle, error) {
	series, err := c.History(ctx, symbol, time.Now(), 10)
	if err != nil {
		return Candle{}, err
	}
	last, ok := series.Last()
	if !ok {
		return Candle{}, fmt.Errorf("%s: %w", symbol, ErrNoData)
	}
	return last, nil
}

// Ping checks the feed answers with data for the ping symbol. It is the
// health probe of the market data dependency.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Latest(ctx, c.pingSymbol)
	return err
}
