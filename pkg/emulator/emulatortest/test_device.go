package emulatortest

import (
	"crypto/ed25519"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap/zaptest"

	"github.com/Layr-Labs/eigenx-ledger-go/pkg/emulator"
	"github.com/Layr-Labs/eigenx-ledger-go/pkg/ledger"
	"github.com/Layr-Labs/eigenx-ledger-go/pkg/testutil"
)

// TestDevice is an emulated device served on loopback TCP and HTTP
type TestDevice struct {
	Device  *emulator.Device
	Server  *emulator.Server
	TCPAddr string
	HTTPURL string
}

// NewTestDevice creates a device from testutil.TestSeedHex and starts both
// listeners on ephemeral ports. The server is stopped when the test ends.
func NewTestDevice(t *testing.T, approver emulator.Approver) *TestDevice {
	t.Helper()

	device, err := emulator.NewDevice(&emulator.DeviceConfig{
		Seed:     hexutil.MustDecode("0x" + testutil.TestSeedHex),
		Approver: approver,
		Logger:   zaptest.NewLogger(t),
	})
	if err != nil {
		t.Fatalf("Failed to create device: %v", err)
	}

	server := emulator.NewServer(device, emulator.ServerConfig{
		ListenAddress:     "127.0.0.1:0",
		HTTPListenAddress: "127.0.0.1:0",
	}, zaptest.NewLogger(t))
	if err := server.Start(); err != nil {
		t.Fatalf("Failed to start emulator: %v", err)
	}
	t.Cleanup(func() { _ = server.Stop() })

	return &TestDevice{
		Device:  device,
		Server:  server,
		TCPAddr: server.TCPAddr(),
		HTTPURL: "http://" + server.HTTPAddr(),
	}
}

// PublicKey returns the key the device derives for path
func (td *TestDevice) PublicKey(t *testing.T, path ledger.DerivationPath) ed25519.PublicKey {
	t.Helper()

	privateKey, err := td.Device.PrivateKey(path)
	if err != nil {
		t.Fatalf("Failed to derive key for %s: %v", path, err)
	}
	return privateKey.Public().(ed25519.PublicKey)
}
