// Package marketdata fetches daily price history from a Yahoo-style chart API.
package marketdata

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"WindowOpt/internal/domain/models"
	drepo "WindowOpt/internal/domain/repository"
	xhttp "WindowOpt/pkg/http"
	applogger "WindowOpt/pkg/logger"
	"WindowOpt/pkg/util"
)

const DefaultBaseURL = "https://query1.finance.yahoo.com"

// Option configures Client.
type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithRetry sets the retry budget for transient failures.
func WithRetry(maxRetries int, initial, maxInterval time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.initial = initial
		c.maxInterval = maxInterval
	}
}

func WithLogger(l *applogger.Logger) Option {
	return func(c *Client) { c.l = l }
}

// WithClock replaces time.Now for period1/period2 computation.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// UserAgent is the agent string the chart API expects from non-browser callers.
const UserAgent = "Mozilla/5.0 (compatible; windowopt/1.0)"

// Client implements drepo.PriceHistory over HTTP.
type Client struct {
	http        *xhttp.Client
	baseURL     string
	maxRetries  int
	initial     time.Duration
	maxInterval time.Duration
	now         func() time.Time
	l           *applogger.Logger
}

func NewClient(hc *xhttp.Client, opts ...Option) *Client {
	c := &Client{
		http:        hc,
		baseURL:     DefaultBaseURL,
		maxRetries:  3,
		initial:     500 * time.Millisecond,
		maxInterval: 5 * time.Second,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Meta struct {
		Symbol    string `json:"symbol"`
		GMTOffset int64  `json:"gmtoffset"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*float64 `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

// History returns daily bars for symbol over the lookback period, oldest first.
// Every failure wraps models.ErrUpstreamUnavailable.
func (c *Client) History(ctx context.Context, symbol, period string) ([]models.Bar, error) {
	now := c.now().UTC()
	from, err := util.LookbackStart(period, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrUpstreamUnavailable, err)
	}
	if from.Before(time.Unix(0, 0)) {
		from = time.Unix(0, 0).UTC()
	}

	endpoint := c.baseURL + "/v8/finance/chart/" + url.PathEscape(symbol)
	query := url.Values{
		"period1":  {strconv.FormatInt(from.Unix(), 10)},
		"period2":  {strconv.FormatInt(now.Unix(), 10)},
		"interval": {"1d"},
		"events":   {"history"},
	}

	start := time.Now()
	var resp chartResponse
	attempt := 0
	op := func() error {
		attempt++
		resp = chartResponse{}
		err := c.http.GetJSON(ctx, endpoint, query, &resp)
		var se *xhttp.StatusError
		if errors.As(err, &se) && !se.Temporary() {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		if c.l != nil {
			c.l.Warn("marketdata fetch retry",
				applogger.String("symbol", symbol),
				applogger.Int("attempt", attempt),
				applogger.Duration("wait", wait),
				applogger.Error(err))
		}
	}
	if err := backoff.RetryNotify(op, c.policy(ctx), notify); err != nil {
		if c.l != nil {
			c.l.Error("marketdata fetch failed",
				applogger.String("symbol", symbol),
				applogger.String("period", period),
				applogger.Int("attempts", attempt),
				applogger.Error(err))
		}
		return nil, fmt.Errorf("%w: %s: %w", models.ErrUpstreamUnavailable, symbol, err)
	}

	bars, err := decodeChart(resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", models.ErrUpstreamUnavailable, symbol, err)
	}
	if c.l != nil {
		c.l.Debug("marketdata fetch ok",
			applogger.String("symbol", symbol),
			applogger.String("period", period),
			applogger.Int("bars", len(bars)),
			applogger.Duration("took", time.Since(start)))
	}
	return bars, nil
}

func (c *Client) policy(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.initial
	eb.MaxInterval = c.maxInterval
	eb.MaxElapsedTime = 0
	retries := c.maxRetries
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(retries)), ctx)
}

// decodeChart turns the columnar chart payload into bars. Rows with any null
// price are dropped; the result is sorted and deduplicated by date.
func decodeChart(resp chartResponse) ([]models.Bar, error) {
	if e := resp.Chart.Error; e != nil {
		return nil, fmt.Errorf("chart error %s: %s", e.Code, e.Description)
	}
	if len(resp.Chart.Result) == 0 || len(resp.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, errors.New("empty chart result")
	}
	r := resp.Chart.Result[0]
	q := r.Indicators.Quote[0]

	bars := make([]models.Bar, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		open, ok1 := at(q.Open, i)
		high, ok2 := at(q.High, i)
		low, ok3 := at(q.Low, i)
		closePx, ok4 := at(q.Close, i)
		if !(ok1 && ok2 && ok3 && ok4) {
			continue
		}
		vol, _ := at(q.Volume, i)
		// exchange-local calendar day
		day := util.TruncateDay(time.Unix(ts+r.Meta.GMTOffset, 0).UTC())
		bars = append(bars, models.Bar{
			Date:   day,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePx,
			Volume: vol,
		})
	}
	bars = models.NormalizeBars(bars)
	if len(bars) == 0 {
		return nil, errors.New("no complete bars in chart result")
	}
	return bars, nil
}

func at(xs []*float64, i int) (float64, bool) {
	if i >= len(xs) || xs[i] == nil {
		return 0, false
	}
	return *xs[i], true
}

var _ drepo.PriceHistory = (*Client)(nil)
