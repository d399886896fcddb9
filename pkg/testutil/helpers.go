package testutil

import (
	"bytes"

	"github.com/Layr-Labs/eigenx-ledger-go/pkg/ledger"
)

// TestSeedHex is a fixed 32-byte master seed used by emulator tests.
const TestSeedHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

// TestPath returns the path m/44'/354'/0'/0'/0'.
func TestPath() ledger.DerivationPath {
	return ledger.DerivationPath{
		ledger.HardenedOffset + 44,
		ledger.HardenedOffset + 354,
		ledger.HardenedOffset,
		ledger.HardenedOffset,
		ledger.HardenedOffset,
	}
}

// OKReply wraps payload in a successful device reply.
func OKReply(payload []byte) Reply {
	return Reply{Raw: ledger.EncodeResponse(payload, ledger.StatusOK)}
}

// StatusReply is a device reply carrying only a status word.
func StatusReply(status uint16) Reply {
	return Reply{Raw: ledger.EncodeResponse(nil, status)}
}

// AddressPayload builds an address reply payload: a 32-byte public key filled
// with fill, followed by the text address.
func AddressPayload(fill byte, address string) []byte {
	payload := bytes.Repeat([]byte{fill}, ledger.PublicKeyLength)
	return append(payload, []byte(address)...)
}

// Message returns n bytes counting up from zero.
func Message(n int) []byte {
	msg := make([]byte, n)
	for i := range msg {
		msg[i] = byte(i)
	}
	return msg
}
