// Package limits provides centralized wire size limits for the zapnet
// transport. This ensures consistent validation across the noise engine,
// the framed transport, and the negotiation handshake.
package limits

import (
	"errors"
	"fmt"
)

const (
	// MaxNoiseMessage is the largest message, ciphertext and tag included,
	// that may cross a noise session in either direction (65535 bytes).
	MaxNoiseMessage = 65535

	// AEADTagSize is the AES-256-GCM authentication tag length.
	AEADTagSize = 16

	// MaxFramePayload is the largest plaintext that fits in a single frame
	// once the AEAD tag is accounted for.
	MaxFramePayload = MaxNoiseMessage - AEADTagSize

	// FrameLenPrefixSize is the big-endian length prefix preceding every
	// post-handshake frame.
	FrameLenPrefixSize = 4

	// MaxHandshakePayload bounds the payloads smuggled inside the noise
	// handshake messages themselves. The handshake round is unframed, so
	// both sides must agree on payload sizes out of band; this is a hard
	// upper bound, not the agreed size.
	MaxHandshakePayload = 1024
)

// ErrMessageTooLarge indicates data exceeds the applicable size limit.
var ErrMessageTooLarge = errors.New("message too large")

// ValidateMessageSize validates untrusted input against the specified
// maximum before any allocation or cryptographic work is attempted.
func ValidateMessageSize(data []byte, maxSize int) error {
	if len(data) > maxSize {
		return fmt.Errorf("%w: size %d exceeds limit %d", ErrMessageTooLarge, len(data), maxSize)
	}
	return nil
}

// ValidateDeclaredSize validates a length declared by a remote peer (for
// example a frame length prefix) before the corresponding buffer is
// allocated or read.
func ValidateDeclaredSize(declared uint32, maxSize int) error {
	if int64(declared) > int64(maxSize) {
		return fmt.Errorf("%w: declared size %d exceeds limit %d", ErrMessageTooLarge, declared, maxSize)
	}
	return nil
}
