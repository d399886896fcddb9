package ledger

import "encoding/binary"

const statusWordLength = 2

// Outcome classifies a decoded device response.
type Outcome int

const (
	// OutcomeOK means the device completed the command.
	OutcomeOK Outcome = iota
	// OutcomeCancelled means the user rejected the operation on the device.
	OutcomeCancelled
	// OutcomeAccepted means the device answered with a non-success status the
	// command listed as deliverable.
	OutcomeAccepted
	// OutcomeRejected means the status is outside the command's accepted set.
	// A conforming channel fails the exchange before this can be observed.
	OutcomeRejected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeAccepted:
		return "accepted"
	default:
		return "rejected"
	}
}

// Response is a device reply split into payload and status word.
type Response struct {
	Payload    []byte
	StatusCode uint16
}

// DecodeResponse splits raw into the payload and the trailing big-endian status word.
func DecodeResponse(raw []byte) (*Response, error) {
	if len(raw) < statusWordLength {
		return nil, ErrShortResponse
	}

	split := len(raw) - statusWordLength
	return &Response{
		Payload:    raw[:split],
		StatusCode: binary.BigEndian.Uint16(raw[split:]),
	}, nil
}

// Classify maps the status word onto an Outcome using the command that produced it.
func (r *Response) Classify(cmd *Command) Outcome {
	switch {
	case r.StatusCode == StatusOK:
		return OutcomeOK
	case r.StatusCode == StatusUserCancelled:
		return OutcomeCancelled
	case cmd != nil && cmd.Accepts(r.StatusCode):
		return OutcomeAccepted
	default:
		return OutcomeRejected
	}
}

// EncodeResponse appends the status word to payload, producing a raw reply.
func EncodeResponse(payload []byte, status uint16) []byte {
	raw := make([]byte, len(payload)+statusWordLength)
	copy(raw, payload)
	binary.BigEndian.PutUint16(raw[len(payload):], status)
	return raw
}
