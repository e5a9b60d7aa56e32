package currency

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodySize    = 1 << 20 // 1 MB
	userAgent      = "finburn/1.0"
)

var (
	// ErrUnexpectedStatus is returned for non-2xx provider responses.
	ErrUnexpectedStatus = errors.New("currency: unexpected status")
	// ErrMalformed is returned when the payload has no usable rate object.
	ErrMalformed = errors.New("currency: malformed rate payload")
	// ErrNoRates is returned when the rate object holds no positive rates.
	ErrNoRates = errors.New("currency: no rates in payload")
)

// Provider is one exchange-rate endpoint quoting against Base.
type Provider struct {
	Name string `toml:"name"`
	URL  string `toml:"url"`
	// RatesPath is the gjson path of the code->rate object.
	RatesPath string `toml:"rates_path,omitempty"`
}

// DefaultProviders is the built-in priority list.
var DefaultProviders = []Provider{
	{Name: "exchangerate-api", URL: "https://api.exchangerate-api.com/v4/latest/CNY", RatesPath: "rates"},
	{Name: "open-er-api", URL: "https://open.er-api.com/v6/latest/CNY", RatesPath: "rates"},
}

// Fetcher retrieves a rate set from one provider.
type Fetcher interface {
	FetchRates(ctx context.Context, p Provider) (map[Code]float64, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, p Provider) (map[Code]float64, error)

func (f FetcherFunc) FetchRates(ctx context.Context, p Provider) (map[Code]float64, error) {
	return f(ctx, p)
}

// HTTPFetcher fetches JSON rate payloads over HTTP.
type HTTPFetcher struct {
	http    *http.Client
	timeout time.Duration
}

// NewHTTPFetcher returns a fetcher using client (http.DefaultClient when nil).
// A non-positive timeout uses the 10s default.
func NewHTTPFetcher(client *http.Client, timeout time.Duration) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPFetcher{http: client, timeout: timeout}
}

// FetchRates performs a GET against p.URL and parses the rate object.
func (f *HTTPFetcher) FetchRates(ctx context.Context, p Provider) (map[Code]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("currency: creating request for %s: %w", p.Name, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("currency: %s request failed: %w", p.Name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w %d from %s", ErrUnexpectedStatus, resp.StatusCode, p.Name)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("currency: reading %s response: %w", p.Name, err)
	}
	return ParseRates(body, p.RatesPath)
}

// ParseRates extracts code->rate pairs at path (default "rates") from a
// JSON payload. Entries that are not positive numbers are skipped.
func ParseRates(body []byte, path string) (map[Code]float64, error) {
	if !gjson.ValidBytes(body) {
		return nil, ErrMalformed
	}
	if path == "" {
		path = "rates"
	}
	// open.er-api reports failures in-band with HTTP 200.
	if strings.EqualFold(gjson.GetBytes(body, "result").String(), "error") {
		return nil, ErrMalformed
	}

	obj := gjson.GetBytes(body, path)
	if !obj.IsObject() {
		return nil, ErrMalformed
	}

	rates := make(map[Code]float64)
	obj.ForEach(func(key, value gjson.Result) bool {
		if value.Type != gjson.Number {
			return true
		}
		if r := value.Float(); r > 0 {
			rates[Code(strings.ToUpper(key.String()))] = r
		}
		return true
	})
	if len(rates) == 0 {
		return nil, ErrNoRates
	}
	return rates, nil
}
