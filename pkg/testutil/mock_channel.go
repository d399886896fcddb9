package testutil

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Layr-Labs/eigenx-ledger-go/pkg/ledger"
	"go.uber.org/zap"
)

// Reply is one scripted answer of a MockChannel.
type Reply struct {
	Raw   []byte
	Err   error
	Delay time.Duration
}

// MockChannel implements ledger.Channel for testing.
// It answers commands from a script and records everything it was sent.
type MockChannel struct {
	logger   *zap.Logger
	mu       sync.Mutex
	replies  []Reply
	fallback Reply
	sent     []*ledger.Command

	// EnforceAccepted makes Send reject unaccepted status words like a real transport.
	EnforceAccepted bool

	inFlight    int32
	maxInFlight int32
}

// NewMockChannel creates a mock channel that answers with replies in order and
// with a bare OK status once the script is exhausted.
func NewMockChannel(logger *zap.Logger, replies ...Reply) *MockChannel {
	return &MockChannel{
		logger:   logger,
		replies:  replies,
		fallback: Reply{Raw: ledger.EncodeResponse(nil, ledger.StatusOK)},
	}
}

// SetFallback replaces the reply used once the script is exhausted.
func (m *MockChannel) SetFallback(reply Reply) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = reply
}

// Send implements ledger.Channel.Send
func (m *MockChannel) Send(ctx context.Context, cmd *ledger.Command) ([]byte, error) {
	current := atomic.AddInt32(&m.inFlight, 1)
	defer atomic.AddInt32(&m.inFlight, -1)
	for {
		peak := atomic.LoadInt32(&m.maxInFlight)
		if current <= peak || atomic.CompareAndSwapInt32(&m.maxInFlight, peak, current) {
			break
		}
	}

	m.mu.Lock()
	m.sent = append(m.sent, cmd)
	reply := m.fallback
	if len(m.replies) > 0 {
		reply = m.replies[0]
		m.replies = m.replies[1:]
	}
	enforce := m.EnforceAccepted
	m.mu.Unlock()

	m.logger.Sugar().Debugw("MockChannel received command",
		"ins", fmt.Sprintf("0x%02x", cmd.Instruction),
		"p1", cmd.P1,
		"payload_bytes", len(cmd.Payload),
	)

	if reply.Delay > 0 {
		select {
		case <-time.After(reply.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if reply.Err != nil {
		return nil, reply.Err
	}
	if enforce {
		if err := ledger.CheckStatus(cmd, reply.Raw); err != nil {
			return nil, err
		}
	}
	return reply.Raw, nil
}

// Sent returns the commands received so far, in order.
func (m *MockChannel) Sent() []*ledger.Command {
	m.mu.Lock()
	defer m.mu.Unlock()

	sent := make([]*ledger.Command, len(m.sent))
	copy(sent, m.sent)
	return sent
}

// MaxInFlight returns the largest number of concurrent Send calls observed.
func (m *MockChannel) MaxInFlight() int {
	return int(atomic.LoadInt32(&m.maxInFlight))
}
