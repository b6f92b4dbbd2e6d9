// Package protocol
// Author: momentics <momentics@gmail.com>
//
// Chat wire framing: a name frame (1-byte length + name bytes) used once per
// session during registration, and a message frame (2-byte big-endian length +
// text) used afterwards in both directions.

package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/momentics/hioload-chat/api"
)

const (
	// MaxNameLength is the longest display name a session may register.
	MaxNameLength = 10

	// MaxMessageLength is the default inbound message limit; a declared
	// length of 1001 or more is a violation.
	MaxMessageLength = 1000

	// MaxFramePayload is the largest payload a 16-bit length prefix can carry.
	MaxFramePayload = 0xFFFF

	nameHeaderLen    = 1
	messageHeaderLen = 2
)

// ReadNameFrame reads one name frame from r. A clean EOF before the header
// reports api.ErrDisconnected; a zero length or a truncated body is a
// protocol violation. Declared lengths above MaxNameLength are read in full
// and left for name validation to reject.
func ReadNameFrame(r io.Reader) ([]byte, error) {
	var hdr [nameHeaderLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, headerError(err)
	}
	if hdr[0] == 0 {
		return nil, api.Violation("zero-length name frame", nil)
	}
	name := make([]byte, hdr[0])
	if n, err := io.ReadFull(r, name); err != nil {
		return nil, api.Violation("name frame truncated", err).
			WithContext("declared", int(hdr[0])).
			WithContext("read", n)
	}
	return name, nil
}

// ReadMessageFrame reads one message frame from r. The declared length must
// be within 1..max; anything else is rejected before the body is read.
func ReadMessageFrame(r io.Reader, max int) ([]byte, error) {
	var hdr [messageHeaderLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, headerError(err)
	}
	size := int(binary.BigEndian.Uint16(hdr[:]))
	if size == 0 || size > max {
		return nil, api.Violation("message length out of range", nil).
			WithContext("declared", size).
			WithContext("max", max)
	}
	body := make([]byte, size)
	if n, err := io.ReadFull(r, body); err != nil {
		return nil, api.Violation("message length mismatch", err).
			WithContext("declared", size).
			WithContext("read", n)
	}
	return body, nil
}

// EncodeNameFrame builds a name frame for a name of 1..MaxNameLength bytes.
func EncodeNameFrame(name string) ([]byte, error) {
	if len(name) == 0 || len(name) > MaxNameLength {
		return nil, fmt.Errorf("encode name frame: length %d: %w", len(name), api.ErrInvalidArgument)
	}
	buf := make([]byte, nameHeaderLen+len(name))
	buf[0] = byte(len(name))
	copy(buf[nameHeaderLen:], name)
	return buf, nil
}

// EncodeMessageFrame builds a message frame around payload.
func EncodeMessageFrame(payload []byte) ([]byte, error) {
	hdr, err := MessageHeader(len(payload))
	if err != nil {
		return nil, err
	}
	buf := make([]byte, messageHeaderLen+len(payload))
	copy(buf, hdr[:])
	copy(buf[messageHeaderLen:], payload)
	return buf, nil
}

// MessageHeader returns the 2-byte length prefix for a payload of size bytes,
// so callers can send header and payload as separate gathered buffers.
func MessageHeader(size int) ([messageHeaderLen]byte, error) {
	var hdr [messageHeaderLen]byte
	if size <= 0 || size > MaxFramePayload {
		return hdr, fmt.Errorf("encode message frame: length %d: %w", size, api.ErrInvalidArgument)
	}
	binary.BigEndian.PutUint16(hdr[:], uint16(size))
	return hdr, nil
}

// headerError classifies a failure to read a frame header.
func headerError(err error) error {
	if errors.Is(err, io.EOF) {
		return api.ErrDisconnected
	}
	return api.Violation("frame header unreadable", err)
}
