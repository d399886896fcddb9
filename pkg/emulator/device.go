package emulator

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/Layr-Labs/eigenx-ledger-go/pkg/ledger"
	"github.com/tyler-smith/go-bip32"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
)

// MaxSignBufferSize bounds the message the device will accumulate for one signature.
const MaxSignBufferSize = 64 * 1024

const (
	addressLength = 20
	minSeedLength = 16
	maxSeedLength = 64
)

// DeviceConfig holds the configuration for an emulated device
type DeviceConfig struct {
	Seed     []byte
	Approver Approver
	Logger   *zap.Logger
}

// Device emulates the firmware side of the device application. It answers
// raw APDUs and also implements ledger.Channel for in-process use.
type Device struct {
	master   *bip32.Key
	approver Approver
	logger   *zap.Logger

	mu         sync.Mutex
	signActive bool
	signPath   ledger.DerivationPath
	signBuffer []byte
}

// NewDevice creates a new emulated device from a master seed
func NewDevice(config *DeviceConfig) (*Device, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if config.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if len(config.Seed) < minSeedLength || len(config.Seed) > maxSeedLength {
		return nil, fmt.Errorf("seed must be between %d and %d bytes, got %d", minSeedLength, maxSeedLength, len(config.Seed))
	}

	master, err := bip32.NewMasterKey(config.Seed)
	if err != nil {
		return nil, fmt.Errorf("failed to create master key: %w", err)
	}

	approver := config.Approver
	if approver == nil {
		approver = AutoApprover{}
	}

	return &Device{
		master:   master,
		approver: approver,
		logger:   config.Logger,
	}, nil
}

// PrivateKey derives the signing key at path.
func (d *Device) PrivateKey(path ledger.DerivationPath) (ed25519.PrivateKey, error) {
	key := d.master
	for _, index := range path {
		child, err := key.NewChildKey(index)
		if err != nil {
			return nil, fmt.Errorf("failed to derive child key at index %d: %w", index, err)
		}
		key = child
	}

	seed := make([]byte, ed25519.SeedSize)
	copy(seed[ed25519.SeedSize-len(key.Key):], key.Key)
	return ed25519.NewKeyFromSeed(seed), nil
}

// Address renders the address shown for a public key.
func Address(publicKey ed25519.PublicKey) string {
	digest := blake2b.Sum256(publicKey)
	return "0x" + hex.EncodeToString(digest[:addressLength])
}

// Send implements ledger.Channel by handing the command straight to the firmware.
func (d *Device) Send(ctx context.Context, cmd *ledger.Command) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	apdu, err := cmd.MarshalBinary()
	if err != nil {
		return nil, err
	}

	raw := d.HandleAPDU(apdu)
	if err := ledger.CheckStatus(cmd, raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// HandleAPDU processes a single command APDU and returns payload plus status word.
func (d *Device) HandleAPDU(apdu []byte) []byte {
	cmd, err := ledger.ParseCommand(apdu)
	if err != nil {
		d.logger.Sugar().Debugw("Rejecting malformed APDU", "error", err)
		return ledger.EncodeResponse(nil, ledger.StatusWrongLength)
	}
	if cmd.Class != ledger.ClassByte {
		return ledger.EncodeResponse(nil, ledger.StatusClassNotSupported)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	switch cmd.Instruction {
	case ledger.InsGetAddress:
		return d.handleGetAddress(cmd)
	case ledger.InsSign:
		return d.handleSign(cmd)
	default:
		return ledger.EncodeResponse(nil, ledger.StatusInsNotSupported)
	}
}

func (d *Device) handleGetAddress(cmd *ledger.Command) []byte {
	if (cmd.P1 != ledger.P1ReturnAddress && cmd.P1 != ledger.P1ConfirmAddress) || cmd.P2 != 0 {
		return ledger.EncodeResponse(nil, ledger.StatusInvalidP1P2)
	}

	path, err := ledger.DecodePath(cmd.Payload)
	if err != nil {
		return ledger.EncodeResponse(nil, ledger.StatusWrongLength)
	}

	privateKey, err := d.PrivateKey(path)
	if err != nil {
		d.logger.Sugar().Errorw("Failed to derive key", "path", path.String(), "error", err)
		return ledger.EncodeResponse(nil, ledger.StatusUnknownError)
	}
	publicKey := privateKey.Public().(ed25519.PublicKey)
	address := Address(publicKey)

	if cmd.P1 == ledger.P1ConfirmAddress && !d.approver.ApproveAddress(path, address) {
		d.logger.Sugar().Infow("Address rejected on device", "path", path.String())
		return ledger.EncodeResponse(nil, ledger.StatusUserCancelled)
	}

	d.logger.Sugar().Debugw("Returning address", "path", path.String(), "address", address)

	payload := make([]byte, 0, len(publicKey)+len(address))
	payload = append(payload, publicKey...)
	payload = append(payload, address...)
	return ledger.EncodeResponse(payload, ledger.StatusOK)
}

func (d *Device) handleSign(cmd *ledger.Command) []byte {
	if cmd.P2 != 0 {
		return ledger.EncodeResponse(nil, ledger.StatusInvalidP1P2)
	}

	switch ledger.ChunkPosition(cmd.P1) {
	case ledger.ChunkInit:
		path, err := ledger.DecodePath(cmd.Payload)
		if err != nil {
			d.resetSign()
			return ledger.EncodeResponse(nil, ledger.StatusWrongLength)
		}
		d.signActive = true
		d.signPath = path
		d.signBuffer = d.signBuffer[:0]
		return ledger.EncodeResponse(nil, ledger.StatusOK)

	case ledger.ChunkAdd, ledger.ChunkLast:
		if !d.signActive {
			return ledger.EncodeResponse(nil, ledger.StatusDataRejected)
		}
		if len(cmd.Payload) > ledger.MaxChunkSize || len(d.signBuffer)+len(cmd.Payload) > MaxSignBufferSize {
			d.resetSign()
			return ledger.EncodeResponse(nil, ledger.StatusInvalidData)
		}
		d.signBuffer = append(d.signBuffer, cmd.Payload...)

		if ledger.ChunkPosition(cmd.P1) == ledger.ChunkAdd {
			return ledger.EncodeResponse(nil, ledger.StatusOK)
		}
		return d.finishSign()

	default:
		return ledger.EncodeResponse(nil, ledger.StatusInvalidP1P2)
	}
}

func (d *Device) finishSign() []byte {
	path := d.signPath
	message := make([]byte, len(d.signBuffer))
	copy(message, d.signBuffer)
	d.resetSign()

	if !d.approver.ApproveSign(path, message) {
		d.logger.Sugar().Infow("Signing rejected on device", "path", path.String(), "message_bytes", len(message))
		return ledger.EncodeResponse(nil, ledger.StatusUserCancelled)
	}

	privateKey, err := d.PrivateKey(path)
	if err != nil {
		d.logger.Sugar().Errorw("Failed to derive key", "path", path.String(), "error", err)
		return ledger.EncodeResponse(nil, ledger.StatusUnknownError)
	}

	d.logger.Sugar().Debugw("Signed message", "path", path.String(), "message_bytes", len(message))
	return ledger.EncodeResponse(ed25519.Sign(privateKey, message), ledger.StatusOK)
}

func (d *Device) resetSign() {
	d.signActive = false
	d.signPath = nil
	d.signBuffer = d.signBuffer[:0]
}

var _ ledger.Channel = (*Device)(nil)
