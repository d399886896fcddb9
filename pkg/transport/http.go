package transport

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Layr-Labs/eigenx-ledger-go/pkg/ledger"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// APDUPath is the endpoint that accepts APDUs over HTTP.
const APDUPath = "/apdu"

// HTTPChannelConfig holds the configuration for an HTTPChannel
type HTTPChannelConfig struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// HTTPChannel exchanges APDUs through a device's HTTP bridge.
type HTTPChannel struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPChannel creates a new HTTP channel
func NewHTTPChannel(config *HTTPChannelConfig) (*HTTPChannel, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if config.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if config.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}

	return &HTTPChannel{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		httpClient: httpClient,
		logger:     config.Logger,
	}, nil
}

// Send implements ledger.Channel.
func (c *HTTPChannel) Send(ctx context.Context, cmd *ledger.Command) ([]byte, error) {
	apdu, err := cmd.MarshalBinary()
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(&APDURequest{Data: hex.EncodeToString(apdu)})
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal apdu request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+APDUPath, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to send apdu")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("device bridge returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var apduResp APDUResponse
	if err := json.NewDecoder(resp.Body).Decode(&apduResp); err != nil {
		return nil, errors.Wrap(err, "failed to decode apdu response")
	}

	raw, err := hex.DecodeString(apduResp.Data)
	if err != nil {
		return nil, errors.Wrap(err, "device bridge returned invalid hex")
	}

	c.logger.Sugar().Debugw("APDU exchanged",
		"ins", fmt.Sprintf("0x%02x", cmd.Instruction),
		"p1", cmd.P1,
		"reply_bytes", len(raw),
	)

	if err := ledger.CheckStatus(cmd, raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// Close releases idle connections.
func (c *HTTPChannel) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

var _ ledger.Channel = (*HTTPChannel)(nil)
