// Package signingagg is the HTTP client to the external threshold-signing
// aggregator (spec §4.7, §6): it requests nonces and signatures from a DKG
// party quorum, it never holds or computes threshold key shares itself.
package signingagg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/zex-fi/zexbridge/internal/config"
	"github.com/zex-fi/zexbridge/internal/models"
)

// Party describes one DKG signing ceremony, loaded from the party file
// (spec §6: "validator party size and DKG metadata are loaded from a JSON
// file keyed by name").
type Party struct {
	Name       string   `json:"name"`
	DKGKey     string   `json:"dkgKey"`
	Validators []string `json:"validators"`
	Threshold  int      `json:"threshold"`
}

// LoadParties reads the DKG party metadata file, returning parties keyed by
// name.
func LoadParties(r io.Reader) (map[string]Party, error) {
	var raw map[string]Party
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("signingagg: decode party file: %w", err)
	}
	return raw, nil
}

type nonceRequest struct {
	Party string `json:"party"`
	K     int    `json:"k"`
}

type nonceResponse struct {
	Nonces []string `json:"nonces"`
}

type signRequest struct {
	CorrelationID string   `json:"correlationId"`
	DKGKey        string   `json:"dkgKey"`
	Nonces        []string `json:"nonces"`
	Data          []byte   `json:"data"`
	Party         string   `json:"party"`
}

type signResponse struct {
	Result      string `json:"result"`
	MessageHash []byte `json:"messageHash"`
	Signature   []byte `json:"signature"`
	Nonce       uint64 `json:"nonce"`
}

// Client is the signing aggregator HTTP client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// New constructs a signing aggregator Client.
func New(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(config.SigningAggRateLimitRPS), config.SigningAggRateLimitRPS),
	}
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("signingagg: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("signingagg: build request %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: signingagg %s: %s", config.ErrProviderUnavailable, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: signingagg %s returned HTTP %d: %s", config.ErrProviderUnavailable, path, resp.StatusCode, respBody)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode signingagg response %s: %s", config.ErrMalformedPayload, path, err)
	}
	return nil
}

// RequestNonces requests k nonces from the named party (spec §4.7 step 1;
// k=1 per withdraw, config.SigningAggregatorNonces).
func (c *Client) RequestNonces(ctx context.Context, party string, k int) ([]string, error) {
	var resp nonceResponse
	if err := c.post(ctx, "/nonces", nonceRequest{Party: party, K: k}, &resp); err != nil {
		return nil, err
	}
	return resp.Nonces, nil
}

// RequestSignature submits a sign request identifying the withdraw by
// (chain_tag, withdraw_nonce) so every validator can independently fetch it
// from the exchange and compute its own hash (spec §4.7 step 2). data
// carries that identifying payload.
func (c *Client) RequestSignature(ctx context.Context, dkgKey string, nonces []string, data []byte, party string) (*models.SignRequestResult, error) {
	var resp signResponse
	req := signRequest{
		CorrelationID: uuid.NewString(),
		DKGKey:        dkgKey,
		Nonces:        nonces,
		Data:          data,
		Party:         party,
	}
	if err := c.post(ctx, "/sign", req, &resp); err != nil {
		return nil, err
	}
	return &models.SignRequestResult{
		Result:      resp.Result,
		MessageHash: resp.MessageHash,
		Signature:   resp.Signature,
		Nonce:       resp.Nonce,
	}, nil
}
