package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Layr-Labs/eigenx-ledger-go/pkg/cache"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// AddressLength is the size of an account address in bytes.
	AddressLength = 20

	defaultRequestsPerSecond = 5
	defaultTimeout           = 10 * time.Second
	maxResponseSize          = 4 << 20
	maxTransactionsLimit     = 1000
)

// ErrNotFound is returned when the indexing service does not know the account.
var ErrNotFound = errors.New("indexer: not found")

// APIError is a non-success reply from the indexing service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("indexer: HTTP %d: %s", e.StatusCode, e.Message)
}

// ClientConfig holds the configuration for the indexer client
type ClientConfig struct {
	BaseURL           string
	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration

	// Cache is optional; responses are cached for CacheTTL when set.
	Cache    cache.ICache
	CacheTTL time.Duration

	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client queries an indexing service for account balances and history.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      cache.ICache
	cacheTTL   time.Duration
	logger     *zap.Logger
}

// NewClient creates a new indexer client
func NewClient(config *ClientConfig) (*Client, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if config.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if config.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	rps := config.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRequestsPerSecond
	}
	burst := config.Burst
	if burst <= 0 {
		burst = 1
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		timeout := config.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		cache:      config.Cache,
		cacheTTL:   config.CacheTTL,
		logger:     config.Logger,
	}, nil
}

// ValidateAddress checks that address is a 0x-prefixed 20-byte hex string.
func ValidateAddress(address string) error {
	raw, err := hexutil.Decode(address)
	if err != nil {
		return fmt.Errorf("invalid address %q: %w", address, err)
	}
	if len(raw) != AddressLength {
		return fmt.Errorf("invalid address %q: expected %d bytes, got %d", address, AddressLength, len(raw))
	}
	return nil
}

// GetBalance returns the balance of address.
func (c *Client) GetBalance(ctx context.Context, address string) (*Balance, error) {
	if err := ValidateAddress(address); err != nil {
		return nil, err
	}

	var balance Balance
	path := fmt.Sprintf("/accounts/%s/balance", strings.ToLower(address))
	if err := c.getJSON(ctx, path, &balance); err != nil {
		return nil, err
	}
	return &balance, nil
}

// GetTransactions returns up to limit of the most recent transactions of address.
func (c *Client) GetTransactions(ctx context.Context, address string, limit int) ([]*Transaction, error) {
	if err := ValidateAddress(address); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > maxTransactionsLimit {
		return nil, fmt.Errorf("limit must be between 1 and %d, got %d", maxTransactionsLimit, limit)
	}

	query := url.Values{}
	query.Set("limit", fmt.Sprintf("%d", limit))

	var resp transactionsResponse
	path := fmt.Sprintf("/accounts/%s/transactions?%s", strings.ToLower(address), query.Encode())
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Transactions, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	// Keyed by service as well as path; caches may be shared.
	cacheKey := "indexer:" + c.baseURL + path

	if c.cache != nil {
		cached, found, err := c.cache.Get(ctx, cacheKey)
		if err != nil {
			c.logger.Sugar().Warnw("Cache read failed", "key", cacheKey, "error", err)
		} else if found {
			if err := json.Unmarshal(cached, out); err == nil {
				c.logger.Sugar().Debugw("Serving indexer response from cache", "path", path)
				return nil
			}
			c.logger.Sugar().Warnw("Discarding undecodable cache entry", "key", cacheKey)
		}
	}

	body, err := c.get(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, cacheKey, body, c.cacheTTL); err != nil {
			c.logger.Sugar().Warnw("Cache write failed", "key", cacheKey, "error", err)
		}
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query indexer: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Sugar().Debugw("Indexer request",
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	case resp.StatusCode != http.StatusOK:
		message := strings.TrimSpace(string(body))
		var errResp errorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
			message = errResp.Error
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: message}
	}
	return body, nil
}
