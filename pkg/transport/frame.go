package transport

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

/*
TCP framing, shared by TCPChannel and the emulator:

	request:  len(4, big endian) | apdu
	reply:    len(4, big endian) | data | sw(2)

The reply length counts the data bytes only; the status word always follows.
*/

const (
	frameLengthSize = 4
	statusWordSize  = 2

	// MaxFrameSize bounds both request and reply bodies.
	MaxFrameSize = 64 * 1024
)

// ErrFrameTooLarge is returned when a frame announces more than MaxFrameSize bytes.
var ErrFrameTooLarge = errors.New("transport: frame too large")

// WriteRequest writes one length-prefixed APDU.
func WriteRequest(w io.Writer, apdu []byte) error {
	if len(apdu) > MaxFrameSize {
		return ErrFrameTooLarge
	}
	buf := make([]byte, frameLengthSize+len(apdu))
	binary.BigEndian.PutUint32(buf, uint32(len(apdu)))
	copy(buf[frameLengthSize:], apdu)

	_, err := w.Write(buf)
	return err
}

// ReadRequest reads one length-prefixed APDU.
func ReadRequest(r io.Reader) ([]byte, error) {
	length, err := readLength(r)
	if err != nil {
		return nil, err
	}
	apdu := make([]byte, length)
	if _, err := io.ReadFull(r, apdu); err != nil {
		return nil, errors.Wrap(err, "failed to read apdu")
	}
	return apdu, nil
}

// WriteReply writes a raw device reply (data followed by the status word).
func WriteReply(w io.Writer, raw []byte) error {
	if len(raw) < statusWordSize {
		return fmt.Errorf("reply of %d bytes has no status word", len(raw))
	}
	data := len(raw) - statusWordSize
	if data > MaxFrameSize {
		return ErrFrameTooLarge
	}

	buf := make([]byte, frameLengthSize+len(raw))
	binary.BigEndian.PutUint32(buf, uint32(data))
	copy(buf[frameLengthSize:], raw)

	_, err := w.Write(buf)
	return err
}

// ReadReply reads a framed reply and returns data followed by the status word.
func ReadReply(r io.Reader) ([]byte, error) {
	length, err := readLength(r)
	if err != nil {
		return nil, err
	}
	raw := make([]byte, int(length)+statusWordSize)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, errors.Wrap(err, "failed to read reply")
	}
	return raw, nil
}

func readLength(r io.Reader) (uint32, error) {
	var header [frameLengthSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return 0, err
	}
	length := binary.BigEndian.Uint32(header[:])
	if length > MaxFrameSize {
		return 0, ErrFrameTooLarge
	}
	return length, nil
}

// APDURequest is the body of POST /apdu.
type APDURequest struct {
	Data string `json:"data"` // hex encoded command APDU
}

// APDUResponse is the reply to POST /apdu.
type APDUResponse struct {
	Data string `json:"data"` // hex encoded data followed by the status word
}
