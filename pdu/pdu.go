// Package pdu frames opaque payloads with a 2-byte big-endian length prefix.
//
// The length field counts itself, so a payload of n bytes travels as n+2
// bytes on the wire:
//
//	┌──────────────────────────┬─────────────────────┐
//	│ Total length (2 bytes)   │ Payload (n bytes)   │
//	│ big-endian, n+2          │                     │
//	└──────────────────────────┴─────────────────────┘
package pdu

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

const (
	// HeaderSize is the size of the length prefix.
	HeaderSize = 2

	// MaxPayloadSize is the largest payload whose total length fits the prefix.
	MaxPayloadSize = 65535 - HeaderSize
)

var (
	// ErrTransport reports a connection that failed or closed mid-PDU.
	ErrTransport = errors.New("pdu: transport error")

	// ErrTooLarge reports a payload exceeding MaxPayloadSize or the receiver's limit.
	ErrTooLarge = errors.New("pdu: payload too large")

	// ErrInvalidLength reports a length prefix smaller than the prefix itself.
	ErrInvalidLength = errors.New("pdu: invalid length prefix")
)

// Encode returns payload prefixed with its total length.
func Encode(payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadSize {
		return nil, errors.Wrapf(ErrTooLarge, "%d bytes", len(payload))
	}

	buf := make([]byte, HeaderSize+len(payload))
	binary.BigEndian.PutUint16(buf, uint16(len(payload)+HeaderSize))
	copy(buf[HeaderSize:], payload)
	return buf, nil
}

// Send writes one PDU carrying payload, looping over partial writes.
func Send(w io.Writer, payload []byte) error {
	buf, err := Encode(payload)
	if err != nil {
		return err
	}

	for sent := 0; sent < len(buf); {
		n, err := w.Write(buf[sent:])
		if err != nil {
			return errors.Wrap(ErrTransport, err.Error())
		}
		if n == 0 {
			return errors.Wrap(ErrTransport, "connection closed")
		}
		sent += n
	}

	return nil
}

// Receive reads exactly one PDU and returns its payload.
//
// io.EOF is returned when the peer closed the stream cleanly before sending
// any byte of a new PDU. A stream ending anywhere inside a PDU yields
// ErrTransport.
func Receive(r io.Reader, maxSize int) ([]byte, error) {
	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, errors.Wrap(ErrTransport, err.Error())
	}

	total := int(binary.BigEndian.Uint16(header))
	if total < HeaderSize {
		return nil, errors.Wrapf(ErrInvalidLength, "%d", total)
	}

	size := total - HeaderSize
	if size > maxSize {
		return nil, errors.Wrapf(ErrTooLarge, "%d bytes, limit %d", size, maxSize)
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, errors.Wrap(ErrTransport, err.Error())
	}

	return payload, nil
}
