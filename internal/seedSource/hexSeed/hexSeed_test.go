package hexSeed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHexSeedSource(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []byte
		wantErr  bool
	}{
		{name: "plain", input: "0102ff", expected: []byte{0x01, 0x02, 0xff}},
		{name: "prefixed", input: "0x0102ff", expected: []byte{0x01, 0x02, 0xff}},
		{name: "whitespace", input: "  0xabcd\n", expected: []byte{0xab, 0xcd}},
		{name: "empty", input: "", wantErr: true},
		{name: "odd length", input: "abc", wantErr: true},
		{name: "not hex", input: "zz", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seed, err := NewHexSeedSource(tt.input).Seed(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, seed)
		})
	}
}
