package crypto

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/curve25519"
)

// KeySize is the length in bytes of X25519 public keys, private scalars,
// and every symmetric key derived from them.
const KeySize = 32

// ErrInvalidSecretKey indicates a secret key that can never have been
// produced by a valid key generation step.
var ErrInvalidSecretKey = errors.New("invalid secret key: all zeros")

// KeyPair represents an X25519 key pair identifying a zapnet node.
// The private scalar must never leave the process; callers that are done
// with a KeyPair should call WipeKeyPair.
type KeyPair struct {
	Public  [KeySize]byte
	Private [KeySize]byte
}

// GenerateKeyPair creates a new random X25519 key pair from crypto/rand.
func GenerateKeyPair() (*KeyPair, error) {
	return GenerateKeyPairFrom(rand.Reader)
}

// GenerateKeyPairFrom creates a new X25519 key pair drawing randomness from
// the supplied reader. Handshake code uses this to generate ephemeral keys
// from an injected source so tests can be made deterministic.
func GenerateKeyPairFrom(r io.Reader) (*KeyPair, error) {
	var secret [KeySize]byte
	if _, err := io.ReadFull(r, secret[:]); err != nil {
		return nil, fmt.Errorf("failed to read key material: %w", err)
	}

	kp, err := FromSecretKey(secret)
	ZeroBytes(secret[:])
	return kp, err
}

// FromSecretKey creates a key pair from an existing private scalar, deriving
// the public key via the curve25519 base point.
func FromSecretKey(secretKey [KeySize]byte) (*KeyPair, error) {
	if isZeroKey(secretKey) {
		return nil, ErrInvalidSecretKey
	}

	public, err := curve25519.X25519(secretKey[:], curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive public key: %w", err)
	}

	kp := &KeyPair{Private: secretKey}
	copy(kp.Public[:], public)
	return kp, nil
}

// DH performs an X25519 Diffie-Hellman exchange between the key pair's
// private scalar and a remote public key. The all-zero shared secret
// produced by low-order points is rejected by the underlying primitive.
func (kp *KeyPair) DH(remotePublic [KeySize]byte) ([]byte, error) {
	shared, err := curve25519.X25519(kp.Private[:], remotePublic[:])
	if err != nil {
		return nil, fmt.Errorf("x25519 exchange failed: %w", err)
	}
	return shared, nil
}

// isZeroKey checks if a key consists of all zeros.
func isZeroKey(key [KeySize]byte) bool {
	for _, b := range key {
		if b != 0 {
			return false
		}
	}
	return true
}
