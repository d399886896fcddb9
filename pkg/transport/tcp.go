package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/Layr-Labs/eigenx-ledger-go/pkg/ledger"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// RetryConfig configures how often a channel tries to reach the device.
// Only connection setup is retried; a command that reached the device is never resent.
type RetryConfig struct {
	MaxAttempts     int
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
	BackoffMultiple float64
}

// DefaultRetryConfig provides default retry settings
var DefaultRetryConfig = RetryConfig{
	MaxAttempts:     3,
	InitialBackoff:  100 * time.Millisecond,
	MaxBackoff:      2 * time.Second,
	BackoffMultiple: 2.0,
}

// TCPChannelConfig holds the configuration for a TCPChannel
type TCPChannelConfig struct {
	Address     string
	Timeout     time.Duration
	RetryConfig *RetryConfig
	Logger      *zap.Logger
}

// TCPChannel exchanges framed APDUs with a device listening on TCP.
type TCPChannel struct {
	address     string
	timeout     time.Duration
	retryConfig RetryConfig
	logger      *zap.Logger

	mu   sync.Mutex
	conn net.Conn

	// afterRead runs between reading a reply and disarming cancellation.
	afterRead func()
}

// NewTCPChannel creates a channel; the connection is opened on first use.
func NewTCPChannel(config *TCPChannelConfig) (*TCPChannel, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if config.Address == "" {
		return nil, fmt.Errorf("address is required")
	}
	if config.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	retryConfig := DefaultRetryConfig
	if config.RetryConfig != nil {
		retryConfig = *config.RetryConfig
	}
	if retryConfig.MaxAttempts < 1 {
		retryConfig.MaxAttempts = 1
	}

	return &TCPChannel{
		address:     config.Address,
		timeout:     config.Timeout,
		retryConfig: retryConfig,
		logger:      config.Logger,
	}, nil
}

// Send implements ledger.Channel.
func (c *TCPChannel) Send(ctx context.Context, cmd *ledger.Command) ([]byte, error) {
	apdu, err := cmd.MarshalBinary()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	conn, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}

	deadline := time.Time{}
	if d, ok := ctx.Deadline(); ok {
		deadline = d
	}
	if c.timeout > 0 {
		if byTimeout := time.Now().Add(c.timeout); deadline.IsZero() || byTimeout.Before(deadline) {
			deadline = byTimeout
		}
	}
	if err := conn.SetDeadline(deadline); err != nil {
		c.dropConnection()
		return nil, errors.Wrap(err, "failed to set deadline")
	}

	// Unblock the exchange if the context is cancelled without a deadline.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	if err := WriteRequest(conn, apdu); err != nil {
		c.dropConnection()
		return nil, c.exchangeError(ctx, errors.Wrap(err, "failed to write apdu"))
	}

	raw, err := ReadReply(conn)
	if err != nil {
		c.dropConnection()
		return nil, c.exchangeError(ctx, errors.Wrap(err, "failed to read device reply"))
	}
	if c.afterRead != nil {
		c.afterRead()
	}
	// A cancellation callback that already started may still reset the
	// deadline, so the connection cannot be reused by the next exchange.
	if !stop() {
		c.dropConnection()
	}

	if err := ledger.CheckStatus(cmd, raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// Close closes the connection to the device.
func (c *TCPChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *TCPChannel) connect(ctx context.Context) (net.Conn, error) {
	if c.conn != nil {
		return c.conn, nil
	}

	dialer := &net.Dialer{Timeout: c.timeout}
	backoff := c.retryConfig.InitialBackoff

	var lastErr error
	for attempt := 0; attempt < c.retryConfig.MaxAttempts; attempt++ {
		conn, err := dialer.DialContext(ctx, "tcp", c.address)
		if err == nil {
			c.logger.Sugar().Debugw("Connected to device", "address", c.address, "attempt", attempt+1)
			c.conn = conn
			return conn, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
		if attempt < c.retryConfig.MaxAttempts-1 {
			c.logger.Sugar().Debugw("Device not reachable, retrying",
				"address", c.address,
				"attempt", attempt+1,
				"backoff", backoff,
				"error", err,
			)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			backoff = time.Duration(float64(backoff) * c.retryConfig.BackoffMultiple)
			if backoff > c.retryConfig.MaxBackoff {
				backoff = c.retryConfig.MaxBackoff
			}
		}
	}

	return nil, errors.Wrapf(lastErr, "failed to connect to device at %s after %d attempts", c.address, c.retryConfig.MaxAttempts)
}

func (c *TCPChannel) dropConnection() {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

func (c *TCPChannel) exchangeError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if d, ok := ctx.Deadline(); ok && !time.Now().Before(d) {
		return context.DeadlineExceeded
	}
	return err
}

var _ ledger.Channel = (*TCPChannel)(nil)
