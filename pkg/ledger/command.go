package ledger

import "fmt"

// ClassByte is the APDU class used by every command of the device application.
const ClassByte byte = 0x80

// Instruction codes
const (
	InsGetAddress byte = 0x01 // Returns the public key and address for a derivation path
	InsSign       byte = 0x02 // Signs a chunked payload after user confirmation
)

// P1 values for InsGetAddress
const (
	P1ReturnAddress  byte = 0x00 // Return the address without displaying it
	P1ConfirmAddress byte = 0x01 // Display the address and wait for the user to confirm it
)

// Device status words
const (
	StatusOK                uint16 = 0x9000
	StatusWrongLength       uint16 = 0x6700
	StatusDataRejected      uint16 = 0x6984
	StatusUserCancelled     uint16 = 0x6986
	StatusInvalidData       uint16 = 0x6a80
	StatusInvalidP1P2       uint16 = 0x6b00
	StatusInsNotSupported   uint16 = 0x6d00
	StatusClassNotSupported uint16 = 0x6e00
	StatusUnknownError      uint16 = 0x6f00
)

const (
	apduHeaderLength          = 5
	maxShortApduPayloadLength = 255
)

var statusText = map[uint16]string{
	StatusOK:                "success",
	StatusWrongLength:       "wrong length",
	StatusDataRejected:      "data rejected",
	StatusUserCancelled:     "cancelled by user",
	StatusInvalidData:       "invalid data",
	StatusInvalidP1P2:       "invalid P1/P2",
	StatusInsNotSupported:   "instruction not supported",
	StatusClassNotSupported: "class not supported",
	StatusUnknownError:      "unknown error",
}

// StatusText returns a short description of a status word.
func StatusText(code uint16) string {
	if text, ok := statusText[code]; ok {
		return text
	}
	return "unrecognized status"
}

// Command is a single device request together with the status words the
// channel should treat as delivered. A delivered status is not necessarily a
// successful one.
type Command struct {
	Class               byte
	Instruction         byte
	P1                  byte
	P2                  byte
	Payload             []byte
	AcceptedStatusCodes []uint16
}

// NewCommand assembles a command for the device application.
func NewCommand(instruction, p1, p2 byte, payload []byte, accepted ...uint16) *Command {
	codes := make([]uint16, len(accepted))
	copy(codes, accepted)

	return &Command{
		Class:               ClassByte,
		Instruction:         instruction,
		P1:                  p1,
		P2:                  p2,
		Payload:             payload,
		AcceptedStatusCodes: codes,
	}
}

// Accepts reports whether code is one of the command's accepted status words.
func (c *Command) Accepts(code uint16) bool {
	for _, accepted := range c.AcceptedStatusCodes {
		if accepted == code {
			return true
		}
	}
	return false
}

// MarshalBinary encodes the command as a short APDU:
//
//	CLA | INS | P1 | P2 | Lc | CDATA
//	----+-----+----+----+----+----------
//	 1  |  1  | 1  | 1  | 1  | Lc bytes
func (c *Command) MarshalBinary() ([]byte, error) {
	if len(c.Payload) > maxShortApduPayloadLength {
		return nil, fmt.Errorf("payload of %d bytes exceeds the %d byte APDU limit", len(c.Payload), maxShortApduPayloadLength)
	}

	apdu := make([]byte, apduHeaderLength, apduHeaderLength+len(c.Payload))
	apdu[0] = c.Class
	apdu[1] = c.Instruction
	apdu[2] = c.P1
	apdu[3] = c.P2
	apdu[4] = byte(len(c.Payload))

	return append(apdu, c.Payload...), nil
}

// ParseCommand decodes a short APDU produced by MarshalBinary. The accepted
// status codes are not part of the wire format and are left empty.
func ParseCommand(apdu []byte) (*Command, error) {
	if len(apdu) < apduHeaderLength {
		return nil, fmt.Errorf("apdu of %d bytes is shorter than the header", len(apdu))
	}
	length := int(apdu[4])
	if len(apdu) != apduHeaderLength+length {
		return nil, fmt.Errorf("apdu declares %d data bytes but carries %d", length, len(apdu)-apduHeaderLength)
	}

	payload := make([]byte, length)
	copy(payload, apdu[apduHeaderLength:])

	return &Command{
		Class:       apdu[0],
		Instruction: apdu[1],
		P1:          apdu[2],
		P2:          apdu[3],
		Payload:     payload,
	}, nil
}
