package price

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/cleared-dev/costbasis/internal/model"
)

const (
	// DefaultBaseURL is the CryptoCompare API root.
	DefaultBaseURL = "https://min-api.cryptocompare.com"
	// DefaultVenue is CryptoCompare's aggregate index.
	DefaultVenue = "cccagg"

	historicalPath = "/data/pricehistorical"
	noDataPrefix   = "There is no data for the symbol"
)

// ClientConfig configures a CryptoCompare Client.
type ClientConfig struct {
	BaseURL           string
	APIKey            string
	DefaultVenue      string
	RequestsPerSecond float64
	Timeout           time.Duration
	Logger            *slog.Logger
}

// Client fetches historical prices from the CryptoCompare pricehistorical endpoint.
type Client struct {
	baseURL      string
	apiKey       string
	defaultVenue string
	httpClient   *http.Client
	limiter      *rate.Limiter
	log          *slog.Logger
}

// NewClient creates a Client. Zero-valued fields fall back to defaults.
func NewClient(cfg ClientConfig) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		defaultVenue: cfg.DefaultVenue,
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		limiter:      rate.NewLimiter(rate.Inf, 1),
		log:          cfg.Logger,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.defaultVenue == "" {
		c.defaultVenue = DefaultVenue
	}
	if cfg.Timeout == 0 {
		c.httpClient.Timeout = 20 * time.Second
	}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	return c
}

// Price implements Provider.
func (c *Client) Price(ctx context.Context, from, to string, day time.Time, venue string) (decimal.Decimal, error) {
	if venue == "" {
		venue = c.defaultVenue
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return decimal.Zero, &UpstreamError{Message: "rate limiter wait", Err: err}
	}

	q := url.Values{}
	q.Set("fsym", from)
	q.Set("tsyms", to)
	q.Set("ts", strconv.FormatInt(day.Unix(), 10))
	q.Set("e", venue)
	if c.apiKey != "" {
		q.Set("api_key", c.apiKey)
	}
	q.Set("extraParams", "costbasis")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+historicalPath+"?"+q.Encode(), nil)
	if err != nil {
		return decimal.Zero, &UpstreamError{Message: "building request", Err: err}
	}

	c.log.Debug("fetching historical price", "from", from, "to", to, "day", day.Format(model.DayFormat), "venue", venue)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, &UpstreamError{Message: "requesting price", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Zero, &UpstreamError{Message: "reading response", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, &UpstreamError{Message: fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))}
	}

	return parseHistorical(body, from, to, day)
}

// parseHistorical decodes {"BTC":{"USD":123.4}} or an error envelope.
func parseHistorical(body []byte, from, to string, day time.Time) (decimal.Decimal, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return decimal.Zero, &UpstreamError{Message: "decoding response", Err: err}
	}

	if quotes, ok := raw[from]; ok {
		var byCur map[string]json.Number
		if err := json.Unmarshal(quotes, &byCur); err != nil {
			return decimal.Zero, &UpstreamError{Message: "decoding quotes", Err: err}
		}
		n, ok := byCur[to]
		if !ok {
			return decimal.Zero, fmt.Errorf("%w: no %s quote for %s on %s", ErrPriceUnavailable, to, from, day.Format(model.DayFormat))
		}
		p, err := decimal.NewFromString(n.String())
		if err != nil {
			return decimal.Zero, &UpstreamError{Message: "parsing price " + n.String(), Err: err}
		}
		return p, nil
	}

	var envelope struct {
		Response string `json:"Response"`
		Message  string `json:"Message"`
	}
	_ = json.Unmarshal(body, &envelope)
	switch {
	case strings.HasPrefix(envelope.Message, noDataPrefix):
		return decimal.Zero, fmt.Errorf("%w: %s on %s", ErrPriceUnavailable, from, day.Format(model.DayFormat))
	case envelope.Response == "Error":
		return decimal.Zero, &UpstreamError{Message: envelope.Message}
	default:
		return decimal.Zero, &UpstreamError{Message: "unknown response: " + string(body)}
	}
}
