package noise

import (
	"crypto/cipher"
	"encoding/binary"
	"math"

	"github.com/zaplabs/zapnet/crypto"
)

// Session is the symmetric transport state derived from a completed
// handshake. Each direction has its own AES-256-GCM key and a strictly
// increasing nonce; nonces never wrap and never reset.
//
// A Session is permanently invalidated by any cryptographic failure,
// malformed input, or nonce exhaustion. An invalidated session rejects all
// further reads and writes without attempting cryptography.
//
// A Session is owned by exactly one connection task and is not safe for
// concurrent use.
type Session struct {
	valid        bool
	remoteStatic [KeySize]byte
	writeCipher  cipher.AEAD
	writeNonce   uint64
	readCipher   cipher.AEAD
	readNonce    uint64
}

// newSession builds a session from the two split keys. The key slices are
// wiped before returning; the AEAD instances hold the expanded schedules.
func newSession(writeKey, readKey []byte, remoteStatic [KeySize]byte) (*Session, error) {
	writeCipher, err := newGCM(writeKey)
	if err != nil {
		return nil, err
	}
	readCipher, err := newGCM(readKey)
	if err != nil {
		return nil, err
	}
	crypto.ZeroBytes(writeKey)
	crypto.ZeroBytes(readKey)

	return &Session{
		valid:        true,
		remoteStatic: remoteStatic,
		writeCipher:  writeCipher,
		readCipher:   readCipher,
	}, nil
}

// sessionNonce builds the 96-bit AEAD nonce: 4 zero bytes followed by the
// big-endian counter.
func sessionNonce(counter uint64) [aesNonceSize]byte {
	var nonce [aesNonceSize]byte
	binary.BigEndian.PutUint64(nonce[4:], counter)
	return nonce
}

// WriteMessage encrypts an outbound plaintext, returning ciphertext with
// the authentication tag appended. Payloads larger than
// MaxMessageSize-TagSize are rejected before any cryptographic work.
func (s *Session) WriteMessage(plaintext []byte) ([]byte, error) {
	if !s.valid {
		return nil, ErrSessionClosed
	}
	if len(plaintext) > MaxMessageSize-TagSize {
		return nil, ErrPayloadTooLarge
	}
	if s.writeNonce == math.MaxUint64 {
		// Exhausting the counter is fatal: the session must be torn down
		// and a fresh handshake performed.
		s.valid = false
		return nil, ErrNonceOverflow
	}

	nonce := sessionNonce(s.writeNonce)
	ciphertext := s.writeCipher.Seal(nil, nonce[:], plaintext, nil)
	s.writeNonce++
	return ciphertext, nil
}

// ReadMessage authenticates and decrypts an inbound ciphertext (tag
// included). Oversized or undersized inputs and authentication failures
// invalidate the session permanently before the error is returned.
func (s *Session) ReadMessage(ciphertext []byte) ([]byte, error) {
	if !s.valid {
		return nil, ErrSessionClosed
	}
	if len(ciphertext) > MaxMessageSize {
		s.valid = false
		return nil, ErrReceivedMsgTooLarge
	}
	if len(ciphertext) < TagSize {
		s.valid = false
		return nil, ErrMsgTooShort
	}
	if s.readNonce == math.MaxUint64 {
		s.valid = false
		return nil, ErrNonceOverflow
	}

	nonce := sessionNonce(s.readNonce)
	plaintext, err := s.readCipher.Open(nil, nonce[:], ciphertext, nil)
	if err != nil {
		s.valid = false
		return nil, ErrDecrypt
	}
	s.readNonce++
	return plaintext, nil
}

// Valid reports whether the session can still be used.
func (s *Session) Valid() bool {
	return s.valid
}

// RemoteStatic returns the authenticated static public key of the peer.
func (s *Session) RemoteStatic() [KeySize]byte {
	return s.remoteStatic
}
