package ledger

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// QueuedClient serialises whole operations on a shared channel. Chunks of
// two Sign calls are never interleaved, and callers waiting in the queue give
// up when their context is done.
type QueuedClient struct {
	client *Client
	sem    *semaphore.Weighted
}

// NewQueuedClient wraps client so that at most one operation runs at a time.
func NewQueuedClient(client *Client) *QueuedClient {
	return &QueuedClient{
		client: client,
		sem:    semaphore.NewWeighted(1),
	}
}

// DeriveAddress waits for the channel to be free, then calls Client.DeriveAddress.
func (q *QueuedClient) DeriveAddress(ctx context.Context, path DerivationPath, requireConfirmation bool) (*AddressResult, error) {
	if err := q.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer q.sem.Release(1)

	return q.client.DeriveAddress(ctx, path, requireConfirmation)
}

// Sign waits for the channel to be free, then calls Client.Sign.
func (q *QueuedClient) Sign(ctx context.Context, path DerivationPath, message []byte) (*SignResult, error) {
	if err := q.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer q.sem.Release(1)

	return q.client.Sign(ctx, path, message)
}
