package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPath is returned when a derivation path does not have exactly PathLength components.
	ErrInvalidPath = errors.New("ledger: invalid derivation path")

	// ErrUserRefusedAddress is returned when the user rejects the address on the device.
	ErrUserRefusedAddress = errors.New("ledger: user refused address")

	// ErrUserRefusedSigning is returned when the user rejects the signing request on the device.
	ErrUserRefusedSigning = errors.New("ledger: user refused signing")

	// ErrShortResponse is returned when a device reply is too short to carry a status word.
	ErrShortResponse = errors.New("ledger: response shorter than status word")

	// ErrMalformedResponse is returned when a successful reply does not have the expected layout.
	ErrMalformedResponse = errors.New("ledger: malformed response payload")

	// ErrNoCommands is returned by ExchangeAll when there is nothing to send.
	ErrNoCommands = errors.New("ledger: no commands to exchange")
)

// StatusError carries a device status word that the caller did not expect.
type StatusError struct {
	Code uint16
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ledger: device returned status 0x%04x (%s)", e.Code, StatusText(e.Code))
}

// IsStatus reports whether err is a *StatusError with the given code.
func IsStatus(err error, code uint16) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code == code
	}
	return false
}
