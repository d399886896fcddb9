package ledger_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/Layr-Labs/eigenx-ledger-go/pkg/ledger"
	"github.com/Layr-Labs/eigenx-ledger-go/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestClient(t *testing.T, ch ledger.Channel) *ledger.Client {
	client, err := ledger.NewClient(&ledger.ClientConfig{
		Channel: ch,
		Logger:  zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	return client
}

func TestNewClient(t *testing.T) {
	ch := testutil.NewMockChannel(zaptest.NewLogger(t))

	tests := []struct {
		name        string
		config      *ledger.ClientConfig
		expectError bool
		errorMsg    string
	}{
		{
			name:   "valid config",
			config: &ledger.ClientConfig{Channel: ch, Logger: zaptest.NewLogger(t)},
		},
		{
			name:        "nil config",
			config:      nil,
			expectError: true,
			errorMsg:    "config cannot be nil",
		},
		{
			name:        "missing channel",
			config:      &ledger.ClientConfig{Logger: zaptest.NewLogger(t)},
			expectError: true,
			errorMsg:    "channel is required",
		},
		{
			name:        "missing logger",
			config:      &ledger.ClientConfig{Channel: ch},
			expectError: true,
			errorMsg:    "logger is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := ledger.NewClient(tt.config)
			if tt.expectError {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
				assert.Nil(t, client)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, client)
			}
		})
	}
}

func TestClient_DeriveAddress(t *testing.T) {
	ctx := context.Background()
	path := testutil.TestPath()

	t.Run("returns public key and address", func(t *testing.T) {
		ch := testutil.NewMockChannel(zaptest.NewLogger(t),
			testutil.OKReply(testutil.AddressPayload(0x11, "0xabc123")),
		)
		client := newTestClient(t, ch)

		result, err := client.DeriveAddress(ctx, path, false)
		require.NoError(t, err)
		assert.Equal(t, bytes.Repeat([]byte{0x11}, 32), result.PublicKey)
		assert.Equal(t, "0xabc123", result.Address)
		assert.Equal(t, ledger.StatusOK, result.StatusCode)

		sent := ch.Sent()
		require.Len(t, sent, 1)
		assert.Equal(t, ledger.ClassByte, sent[0].Class)
		assert.Equal(t, ledger.InsGetAddress, sent[0].Instruction)
		assert.Equal(t, ledger.P1ReturnAddress, sent[0].P1)
		assert.Equal(t, byte(0), sent[0].P2)
		assert.Len(t, sent[0].Payload, ledger.EncodedPathLength)
		assert.ElementsMatch(t, []uint16{ledger.StatusOK, ledger.StatusUserCancelled}, sent[0].AcceptedStatusCodes)
	})

	t.Run("confirmation sets p1", func(t *testing.T) {
		ch := testutil.NewMockChannel(zaptest.NewLogger(t),
			testutil.OKReply(testutil.AddressPayload(0x22, "addr")),
		)
		client := newTestClient(t, ch)

		_, err := client.DeriveAddress(ctx, path, true)
		require.NoError(t, err)
		assert.Equal(t, ledger.P1ConfirmAddress, ch.Sent()[0].P1)
	})

	t.Run("user refusal", func(t *testing.T) {
		ch := testutil.NewMockChannel(zaptest.NewLogger(t),
			testutil.Reply{Raw: []byte{0xFF, 0x69, 0x86}},
		)
		client := newTestClient(t, ch)

		result, err := client.DeriveAddress(ctx, path, true)
		assert.ErrorIs(t, err, ledger.ErrUserRefusedAddress)
		assert.Nil(t, result)
	})

	t.Run("invalid path sends nothing", func(t *testing.T) {
		ch := testutil.NewMockChannel(zaptest.NewLogger(t))
		client := newTestClient(t, ch)

		_, err := client.DeriveAddress(ctx, ledger.DerivationPath{1, 2, 3}, false)
		assert.ErrorIs(t, err, ledger.ErrInvalidPath)
		assert.Empty(t, ch.Sent())
	})

	t.Run("short payload", func(t *testing.T) {
		ch := testutil.NewMockChannel(zaptest.NewLogger(t), testutil.OKReply([]byte{1, 2, 3}))
		client := newTestClient(t, ch)

		_, err := client.DeriveAddress(ctx, path, false)
		assert.ErrorIs(t, err, ledger.ErrMalformedResponse)
	})

	t.Run("channel error propagates unchanged", func(t *testing.T) {
		transportErr := errors.New("hid: read timeout")
		ch := testutil.NewMockChannel(zaptest.NewLogger(t), testutil.Reply{Err: transportErr})
		client := newTestClient(t, ch)

		_, err := client.DeriveAddress(ctx, path, false)
		assert.Same(t, transportErr, err)
	})

	t.Run("unaccepted status rejected by channel", func(t *testing.T) {
		ch := testutil.NewMockChannel(zaptest.NewLogger(t), testutil.StatusReply(ledger.StatusWrongLength))
		ch.EnforceAccepted = true
		client := newTestClient(t, ch)

		_, err := client.DeriveAddress(ctx, path, false)
		assert.True(t, ledger.IsStatus(err, ledger.StatusWrongLength))
	})
}

func TestClient_Sign(t *testing.T) {
	ctx := context.Background()
	path := testutil.TestPath()
	signature := bytes.Repeat([]byte{0x5A}, 64)

	t.Run("empty message sends only the path", func(t *testing.T) {
		ch := testutil.NewMockChannel(zaptest.NewLogger(t), testutil.OKReply(signature))
		client := newTestClient(t, ch)

		result, err := client.Sign(ctx, path, nil)
		require.NoError(t, err)
		assert.Equal(t, signature, result.Signature)

		sent := ch.Sent()
		require.Len(t, sent, 1)
		assert.Equal(t, byte(ledger.ChunkInit), sent[0].P1)
		assert.Len(t, sent[0].Payload, ledger.EncodedPathLength)
	})

	t.Run("500 byte message", func(t *testing.T) {
		ch := testutil.NewMockChannel(zaptest.NewLogger(t),
			testutil.OKReply(nil),
			testutil.OKReply(nil),
			testutil.OKReply(signature),
		)
		client := newTestClient(t, ch)
		message := testutil.Message(500)

		result, err := client.Sign(ctx, path, message)
		require.NoError(t, err)
		assert.Equal(t, signature, result.Signature)
		assert.Equal(t, ledger.StatusOK, result.StatusCode)

		sent := ch.Sent()
		require.Len(t, sent, 3)
		expectedP1 := []byte{byte(ledger.ChunkInit), byte(ledger.ChunkAdd), byte(ledger.ChunkLast)}
		for i, cmd := range sent {
			assert.Equal(t, ledger.InsSign, cmd.Instruction)
			assert.Equal(t, expectedP1[i], cmd.P1)
			assert.Equal(t, byte(0), cmd.P2)
			assert.ElementsMatch(t,
				[]uint16{ledger.StatusOK, ledger.StatusUserCancelled, ledger.StatusDataRejected, ledger.StatusInvalidData},
				cmd.AcceptedStatusCodes,
			)
		}
		assert.Equal(t, message[:250], sent[1].Payload)
		assert.Equal(t, message[250:], sent[2].Payload)
		assert.Equal(t, 1, ch.MaxInFlight())
	})

	t.Run("user refusal", func(t *testing.T) {
		ch := testutil.NewMockChannel(zaptest.NewLogger(t),
			testutil.OKReply(nil),
			testutil.StatusReply(ledger.StatusUserCancelled),
		)
		client := newTestClient(t, ch)

		result, err := client.Sign(ctx, path, []byte("hello"))
		assert.ErrorIs(t, err, ledger.ErrUserRefusedSigning)
		assert.Nil(t, result)
	})

	t.Run("intermediate cancellation does not stop the sequence", func(t *testing.T) {
		ch := testutil.NewMockChannel(zaptest.NewLogger(t),
			testutil.StatusReply(ledger.StatusUserCancelled),
			testutil.StatusReply(ledger.StatusUserCancelled),
			testutil.OKReply(signature),
		)
		client := newTestClient(t, ch)

		result, err := client.Sign(ctx, path, testutil.Message(300))
		require.NoError(t, err)
		assert.Equal(t, signature, result.Signature)
		assert.Len(t, ch.Sent(), 3)
	})

	t.Run("data rejected is returned, not raised", func(t *testing.T) {
		for _, status := range []uint16{ledger.StatusDataRejected, ledger.StatusInvalidData} {
			ch := testutil.NewMockChannel(zaptest.NewLogger(t),
				testutil.OKReply(nil),
				testutil.StatusReply(status),
			)
			ch.EnforceAccepted = true
			client := newTestClient(t, ch)

			result, err := client.Sign(ctx, path, []byte("payload"))
			require.NoError(t, err)
			assert.Nil(t, result.Signature)
			assert.Equal(t, status, result.StatusCode)
		}
	})

	t.Run("transport error mid sequence", func(t *testing.T) {
		transportErr := errors.New("connection reset")
		ch := testutil.NewMockChannel(zaptest.NewLogger(t),
			testutil.OKReply(nil),
			testutil.Reply{Err: transportErr},
		)
		client := newTestClient(t, ch)

		_, err := client.Sign(ctx, path, testutil.Message(600))
		assert.Same(t, transportErr, err)
		assert.Len(t, ch.Sent(), 2)
	})

	t.Run("invalid path sends nothing", func(t *testing.T) {
		ch := testutil.NewMockChannel(zaptest.NewLogger(t))
		client := newTestClient(t, ch)

		_, err := client.Sign(ctx, ledger.DerivationPath{1, 2, 3, 4, 5, 6}, []byte("x"))
		assert.ErrorIs(t, err, ledger.ErrInvalidPath)
		assert.Empty(t, ch.Sent())
	})
}
