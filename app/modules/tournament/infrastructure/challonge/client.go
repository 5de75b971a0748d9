// Package challonge implements the bracket service port against the Challonge v1 REST API.
package challonge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	tournamentdomain "github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/domain"
	"github.com/Black-And-White-Club/tourney-bot/app/observability/attr"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://api.challonge.com/v1"
	userAgent      = "tourney-bot/1.0"
	maxErrorBody   = 64 << 10
)

// Config selects the account and request budget.
type Config struct {
	BaseURL           string
	Username          string
	APIKey            string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
}

// Client talks to Challonge. Safe for concurrent use.
type Client struct {
	http     *http.Client
	baseURL  string
	username string
	apiKey   string
	limiter  *rate.Limiter
	logger   *slog.Logger
}

// NewClient returns a client. Zero config fields fall back to the public API,
// a 10s timeout and 5 requests per second.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	return &Client{
		http:     &http.Client{Timeout: cfg.Timeout},
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		username: cfg.Username,
		apiKey:   cfg.APIKey,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		logger:   logger,
	}
}

type errorBody struct {
	Errors []string `json:"errors"`
}

// do sends one request. GET parameters go in the query string, everything
// else as a form body. A non-2xx reply becomes a *BracketAPIError.
func (c *Client) do(ctx context.Context, method, path string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	query := url.Values{}
	var body io.Reader
	if method == http.MethodGet {
		for k, v := range params {
			query[k] = v
		}
	} else if params != nil {
		body = strings.NewReader(params.Encode())
	}
	query.Set("api_key", c.apiKey)

	endpoint := c.baseURL + path + ".json?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.apiKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("challonge %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "Challonge request",
		attr.ExtractCorrelationID(ctx),
		attr.String("method", method),
		attr.String("path", path),
		attr.Int("status", resp.StatusCode),
		attr.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return apiError(resp.StatusCode, raw)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("challonge %s %s: decode response: %w", method, path, err)
	}
	return nil
}

func apiError(status int, raw []byte) *tournamentdomain.BracketAPIError {
	var eb errorBody
	if err := json.Unmarshal(raw, &eb); err == nil && len(eb.Errors) > 0 {
		return &tournamentdomain.BracketAPIError{StatusCode: status, Message: strings.Join(eb.Errors, "; ")}
	}
	return &tournamentdomain.BracketAPIError{StatusCode: status, Message: http.StatusText(status)}
}

func tournamentPath(id tournamentdomain.TournamentID, rest ...string) string {
	p := "/tournaments/" + url.PathEscape(string(id))
	for _, r := range rest {
		p += "/" + r
	}
	return p
}
