// Package entropy draws terrain seeds from random.org, falling back to
// crypto/rand when no key is configured or the API is unavailable.
package entropy

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// DefaultEndpoint is the random.org JSON-RPC endpoint.
const DefaultEndpoint = "https://api.random.org/json-rpc/4/invoke"

// seedSpan is the widest integer range random.org accepts per value.
const seedSpan = 1_000_000_000

// Client fetches seeds from random.org.
type Client struct {
	Endpoint string
	apiKey   string
	client   *http.Client
}

// NewClient creates a random.org client. Returns nil if apiKey is empty.
func NewClient(apiKey string) *Client {
	if apiKey == "" {
		return nil
	}
	return &Client{
		Endpoint: DefaultEndpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

// Enabled returns true if the client has a valid API key.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

// Seed returns a positive seed. A nil client, or any API failure, uses
// crypto/rand instead.
func (c *Client) Seed(ctx context.Context) int64 {
	if c.Enabled() {
		s, err := c.fetch(ctx)
		if err == nil {
			return s
		}
		slog.Warn("random.org seed failed, using crypto/rand", "error", err)
	}
	return CryptoSeed()
}

func (c *Client) fetch(ctx context.Context) (int64, error) {
	body, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"method":  "generateIntegers",
		"params": map[string]any{
			"apiKey": c.apiKey,
			"n":      2,
			"min":    1,
			"max":    seedSpan,
		},
		"id": 1,
	})
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("fetch: status %d", resp.StatusCode)
	}

	var result struct {
		Result struct {
			Random struct {
				Data []int64 `json:"data"`
			} `json:"random"`
		} `json:"result"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("parse: %w", err)
	}
	if result.Error != nil {
		return 0, errors.New(result.Error.Message)
	}
	data := result.Result.Random.Data
	if len(data) != 2 {
		return 0, fmt.Errorf("expected 2 integers, got %d", len(data))
	}

	seed := data[0]*seedSpan + data[1]
	slog.Debug("random.org seed drawn", "seed", seed)
	return seed, nil
}

// CryptoSeed returns a positive seed from crypto/rand.
func CryptoSeed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return time.Now().UnixNano() & (1<<62 - 1)
	}
	// Clear the sign bit and avoid 0, which means "pick one" to callers.
	return int64(binary.LittleEndian.Uint64(buf[:])>>1) | 1
}
