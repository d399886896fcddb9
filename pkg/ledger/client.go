package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PublicKeyLength is the size of the public key that prefixes an address reply.
const PublicKeyLength = 32

// signAcceptedStatusCodes are delivered for every sign chunk. The two data
// rejection codes are not final failures and are handed back to the caller.
var signAcceptedStatusCodes = []uint16{StatusOK, StatusUserCancelled, StatusDataRejected, StatusInvalidData}

// AddressResult is the reply to DeriveAddress.
type AddressResult struct {
	PublicKey  []byte
	Address    string
	StatusCode uint16
}

// SignResult is the reply to Sign. Signature is nil when the device returned no payload.
type SignResult struct {
	Signature  []byte
	StatusCode uint16
}

// ClientConfig holds the configuration for the device client
type ClientConfig struct {
	Channel Channel
	Logger  *zap.Logger
}

// Client derives addresses and signs payloads through a device Channel.
// It holds no device state between calls; callers must not run two
// operations on the same channel at once (see QueuedClient).
type Client struct {
	channel Channel
	logger  *zap.Logger
}

// NewClient creates a new device client
func NewClient(config *ClientConfig) (*Client, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if config.Channel == nil {
		return nil, fmt.Errorf("channel is required")
	}
	if config.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &Client{
		channel: config.Channel,
		logger:  config.Logger,
	}, nil
}

// DeriveAddress asks the device for the public key and address at path. When
// requireConfirmation is set the device displays the address and waits for
// the user to approve it.
func (c *Client) DeriveAddress(ctx context.Context, path DerivationPath, requireConfirmation bool) (*AddressResult, error) {
	encodedPath, err := EncodePath(path)
	if err != nil {
		return nil, err
	}

	p1 := P1ReturnAddress
	if requireConfirmation {
		p1 = P1ConfirmAddress
	}
	cmd := NewCommand(InsGetAddress, p1, 0, encodedPath, StatusOK, StatusUserCancelled)

	opID := uuid.New().String()
	c.logger.Sugar().Debugw("Requesting address from device",
		"operation_id", opID,
		"path", path.String(),
		"confirm", requireConfirmation,
	)

	raw, err := c.channel.Send(ctx, cmd)
	if err != nil {
		return nil, err
	}

	resp, err := DecodeResponse(raw)
	if err != nil {
		return nil, err
	}

	switch resp.Classify(cmd) {
	case OutcomeOK:
	case OutcomeCancelled:
		c.logger.Sugar().Infow("User refused address on device", "operation_id", opID)
		return nil, ErrUserRefusedAddress
	default:
		return nil, &StatusError{Code: resp.StatusCode}
	}

	if len(resp.Payload) < PublicKeyLength {
		return nil, fmt.Errorf("%w: address reply has %d bytes, need at least %d", ErrMalformedResponse, len(resp.Payload), PublicKeyLength)
	}

	publicKey := make([]byte, PublicKeyLength)
	copy(publicKey, resp.Payload[:PublicKeyLength])

	result := &AddressResult{
		PublicKey:  publicKey,
		Address:    string(resp.Payload[PublicKeyLength:]),
		StatusCode: resp.StatusCode,
	}
	c.logger.Sugar().Debugw("Derived address", "operation_id", opID, "address", result.Address)

	return result, nil
}

// Sign streams message to the device in MaxChunkSize slices behind the
// encoded path and returns the device's answer to the final chunk.
//
// Every chunk is sent even if the device rejects an earlier one; only the
// final reply is inspected. A cancellation fails with ErrUserRefusedSigning,
// other accepted non-success statuses are returned in the result.
func (c *Client) Sign(ctx context.Context, path DerivationPath, message []byte) (*SignResult, error) {
	encodedPath, err := EncodePath(path)
	if err != nil {
		return nil, err
	}

	chunks := SplitChunks(encodedPath, message, MaxChunkSize)
	cmds := make([]*Command, 0, len(chunks))
	for _, chunk := range chunks {
		cmds = append(cmds, NewCommand(InsSign, byte(chunk.Position), 0, chunk.Data, signAcceptedStatusCodes...))
	}

	opID := uuid.New().String()
	c.logger.Sugar().Debugw("Sending payload to device for signing",
		"operation_id", opID,
		"path", path.String(),
		"message_bytes", len(message),
		"chunks", len(chunks),
	)

	raw, err := ExchangeAll(ctx, c.channel, cmds)
	if err != nil {
		return nil, err
	}

	resp, err := DecodeResponse(raw)
	if err != nil {
		return nil, err
	}

	switch resp.Classify(cmds[len(cmds)-1]) {
	case OutcomeCancelled:
		c.logger.Sugar().Infow("User refused signing on device", "operation_id", opID)
		return nil, ErrUserRefusedSigning
	case OutcomeRejected:
		return nil, &StatusError{Code: resp.StatusCode}
	case OutcomeAccepted:
		c.logger.Sugar().Warnw("Device did not complete signing",
			"operation_id", opID,
			"status", fmt.Sprintf("0x%04x", resp.StatusCode),
			"reason", StatusText(resp.StatusCode),
		)
	}

	result := &SignResult{StatusCode: resp.StatusCode}
	if len(resp.Payload) > 0 {
		result.Signature = make([]byte, len(resp.Payload))
		copy(result.Signature, resp.Payload)
	}
	return result, nil
}
