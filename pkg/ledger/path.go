package ledger

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
)

const (
	// PathLength is the number of components the device expects in a derivation path.
	PathLength = 5

	// EncodedPathLength is the size of an encoded path on the wire.
	EncodedPathLength = PathLength * 4

	// HardenedOffset marks a hardened derivation index.
	HardenedOffset uint32 = 0x80000000
)

// DerivationPath is a hierarchical key derivation path. Components are encoded
// as given; applying HardenedOffset is the caller's concern.
type DerivationPath []uint32

// EncodePath lays out each component as a little-endian uint32, in order.
func EncodePath(path DerivationPath) ([]byte, error) {
	if len(path) != PathLength {
		return nil, fmt.Errorf("%w: expected %d components, got %d", ErrInvalidPath, PathLength, len(path))
	}

	encoded := make([]byte, EncodedPathLength)
	for i, component := range path {
		binary.LittleEndian.PutUint32(encoded[4*i:], component)
	}
	return encoded, nil
}

// DecodePath reverses EncodePath.
func DecodePath(encoded []byte) (DerivationPath, error) {
	if len(encoded) != EncodedPathLength {
		return nil, fmt.Errorf("%w: expected %d encoded bytes, got %d", ErrInvalidPath, EncodedPathLength, len(encoded))
	}

	path := make(DerivationPath, PathLength)
	for i := range path {
		path[i] = binary.LittleEndian.Uint32(encoded[4*i:])
	}
	return path, nil
}

// ParseDerivationPath parses an absolute path such as "m/44'/354'/0'/0'/0'".
func ParseDerivationPath(s string) (DerivationPath, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "m/") {
		return nil, fmt.Errorf("%w: %q is not an absolute path", ErrInvalidPath, s)
	}

	parsed, err := accounts.ParseDerivationPath(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	if len(parsed) != PathLength {
		return nil, fmt.Errorf("%w: expected %d components, got %d", ErrInvalidPath, PathLength, len(parsed))
	}
	return DerivationPath(parsed), nil
}

// String renders the path in the "m/44'/..." notation.
func (p DerivationPath) String() string {
	return accounts.DerivationPath(p).String()
}
