package crypto

import (
	"encoding/hex"
	"errors"
	"fmt"
)

// KeyFormat selects one of the two key codecs. The binary codec is the wire
// and disk representation; the hex codec is the operator-facing one (peer
// books, CLI output). The two are independent implementations selected
// explicitly, never inferred from context.
type KeyFormat uint8

const (
	// FormatBinary encodes a key as its raw fixed-width 32 bytes.
	FormatBinary KeyFormat = iota
	// FormatHex encodes a key as 64 lowercase hexadecimal ASCII characters.
	FormatHex
)

var (
	// ErrUnknownKeyFormat indicates a KeyFormat value outside the enumeration.
	ErrUnknownKeyFormat = errors.New("unknown key format")
	// ErrInvalidKeyEncoding indicates bytes that do not decode to a key in
	// the requested format.
	ErrInvalidKeyEncoding = errors.New("invalid key encoding")
)

// EncodeKey encodes a 32-byte key in the requested format.
func EncodeKey(key [KeySize]byte, format KeyFormat) ([]byte, error) {
	switch format {
	case FormatBinary:
		out := make([]byte, KeySize)
		copy(out, key[:])
		return out, nil
	case FormatHex:
		out := make([]byte, hex.EncodedLen(KeySize))
		hex.Encode(out, key[:])
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKeyFormat, format)
	}
}

// DecodeKey decodes a key from the requested format. Lengths are checked
// before any conversion so a truncated input never yields a partial key.
func DecodeKey(data []byte, format KeyFormat) ([KeySize]byte, error) {
	var key [KeySize]byte

	switch format {
	case FormatBinary:
		if len(data) != KeySize {
			return key, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidKeyEncoding, KeySize, len(data))
		}
		copy(key[:], data)
		return key, nil
	case FormatHex:
		if len(data) != hex.EncodedLen(KeySize) {
			return key, fmt.Errorf("%w: want %d hex chars, got %d", ErrInvalidKeyEncoding, hex.EncodedLen(KeySize), len(data))
		}
		if _, err := hex.Decode(key[:], data); err != nil {
			return key, fmt.Errorf("%w: %v", ErrInvalidKeyEncoding, err)
		}
		return key, nil
	default:
		return key, fmt.Errorf("%w: %d", ErrUnknownKeyFormat, format)
	}
}
