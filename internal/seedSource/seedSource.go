package seedSource

import "context"

// ISeedSource supplies the master seed of an emulated device.
type ISeedSource interface {
	Seed(ctx context.Context) ([]byte, error)
}

// Zero overwrites a seed once it is no longer needed.
func Zero(seed []byte) {
	clear(seed)
}
