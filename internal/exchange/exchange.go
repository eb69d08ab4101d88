// Package exchange is a read-only HTTP/JSON client to the off-chain
// exchange (spec §6): the core only ever reads user IDs, withdraw requests
// and asset balances from it.
package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/time/rate"

	"github.com/zex-fi/zexbridge/internal/config"
	"github.com/zex-fi/zexbridge/internal/models"
)

// Asset is one user balance entry from GET /users/{id}/assets.
type Asset struct {
	Token   string `json:"token"`
	Balance string `json:"balance"`
}

// Client is the exchange HTTP client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// New constructs an exchange Client.
func New(baseURL, apiKey string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(config.ExchangeRateLimitRPS), config.ExchangeRateLimitRPS),
	}
}

func (c *Client) do(ctx context.Context, path string, query url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("exchange: build request %s: %w", path, err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: exchange %s: %s", config.ErrProviderUnavailable, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: exchange %s returned HTTP %d: %s", config.ErrProviderUnavailable, path, resp.StatusCode, body)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode exchange response %s: %s", config.ErrMalformedPayload, path, err)
	}
	return nil
}

// LatestUserID returns the highest user ID the exchange currently has.
func (c *Client) LatestUserID(ctx context.Context) (uint64, error) {
	var id uint64
	if err := c.do(ctx, "/users/latest-id", nil, &id); err != nil {
		return 0, err
	}
	return id, nil
}

// Withdraws pages through pending withdraws for one chain, offset/limit
// driven so callers can iterate until a short page signals the end.
func (c *Client) Withdraws(ctx context.Context, chainTag models.ChainTag, offset, limit int) ([]models.WithdrawRequest, error) {
	q := url.Values{
		"chain":  {string(chainTag)},
		"offset": {strconv.Itoa(offset)},
		"limit":  {strconv.Itoa(limit)},
	}
	var withdraws []models.WithdrawRequest
	if err := c.do(ctx, "/withdraws", q, &withdraws); err != nil {
		return nil, err
	}
	return withdraws, nil
}

// AllPendingWithdraws pages Withdraws to exhaustion for one chain.
func (c *Client) AllPendingWithdraws(ctx context.Context, chainTag models.ChainTag) ([]models.WithdrawRequest, error) {
	var all []models.WithdrawRequest
	for offset := 0; ; offset += config.ExchangeWithdrawPageSize {
		page, err := c.Withdraws(ctx, chainTag, offset, config.ExchangeWithdrawPageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < config.ExchangeWithdrawPageSize {
			return all, nil
		}
	}
}

// UserAssets returns a user's asset balances, used by validators to
// independently recompute a withdraw's hash (spec §4.7 step 2).
func (c *Client) UserAssets(ctx context.Context, userID uint64) ([]Asset, error) {
	var assets []Asset
	if err := c.do(ctx, fmt.Sprintf("/users/%d/assets", userID), nil, &assets); err != nil {
		return nil, err
	}
	return assets, nil
}
