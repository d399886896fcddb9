package ledger

import "context"

// Channel moves one command to the device and returns its raw reply,
// payload followed by the two-byte status word.
//
// Implementations must fail the exchange with a *StatusError when the device
// answers with a status outside cmd.AcceptedStatusCodes, and must return
// transport failures as errors. Only one Send may be in flight at a time.
type Channel interface {
	Send(ctx context.Context, cmd *Command) ([]byte, error)
}

// CheckStatus enforces the channel side of the contract: it returns a
// *StatusError when raw carries a status cmd does not accept.
func CheckStatus(cmd *Command, raw []byte) error {
	resp, err := DecodeResponse(raw)
	if err != nil {
		return err
	}
	if !cmd.Accepts(resp.StatusCode) {
		return &StatusError{Code: resp.StatusCode}
	}
	return nil
}
