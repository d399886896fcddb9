package hexSeed

import (
	"context"
	"fmt"
	"strings"

	"github.com/Layr-Labs/eigenx-ledger-go/internal/seedSource"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// HexSeedSource decodes a seed given as hex, with or without a 0x prefix.
type HexSeedSource struct {
	encoded string
}

func NewHexSeedSource(encoded string) *HexSeedSource {
	return &HexSeedSource{encoded: strings.TrimSpace(encoded)}
}

func (h *HexSeedSource) Seed(_ context.Context) ([]byte, error) {
	if h.encoded == "" {
		return nil, fmt.Errorf("seed cannot be empty")
	}

	encoded := h.encoded
	if !strings.HasPrefix(encoded, "0x") && !strings.HasPrefix(encoded, "0X") {
		encoded = "0x" + encoded
	}

	seed, err := hexutil.Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode seed: %w", err)
	}
	return seed, nil
}

var _ seedSource.ISeedSource = (*HexSeedSource)(nil)
