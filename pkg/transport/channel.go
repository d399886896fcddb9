package transport

import (
	"fmt"
	"io"

	"github.com/Layr-Labs/eigenx-ledger-go/pkg/config"
	"github.com/Layr-Labs/eigenx-ledger-go/pkg/ledger"
	"go.uber.org/zap"
)

// IChannel is a ledger.Channel that holds a connection.
type IChannel interface {
	ledger.Channel
	io.Closer
}

// NewChannel builds the channel selected by cfg.
func NewChannel(cfg *config.TransportConfig, logger *zap.Logger) (IChannel, error) {
	if cfg == nil {
		return nil, fmt.Errorf("transport config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid transport config: %w", err)
	}

	switch cfg.Type {
	case config.TransportTypeTCP:
		ch, err := NewTCPChannel(&TCPChannelConfig{
			Address: cfg.Address,
			Timeout: cfg.Timeout,
			Logger:  logger,
		})
		if err != nil {
			return nil, err
		}
		return ch, nil
	case config.TransportTypeHTTP:
		ch, err := NewHTTPChannel(&HTTPChannelConfig{
			BaseURL: cfg.Address,
			Timeout: cfg.Timeout,
			Logger:  logger,
		})
		if err != nil {
			return nil, err
		}
		return ch, nil
	default:
		return nil, fmt.Errorf("unsupported transport type: %s", cfg.Type)
	}
}

var (
	_ IChannel = (*TCPChannel)(nil)
	_ IChannel = (*HTTPChannel)(nil)
)
