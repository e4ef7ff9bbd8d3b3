package noise

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/zaplabs/zapnet/crypto"
	"github.com/zaplabs/zapnet/limits"
)

const (
	// KeySize is the X25519 public key and symmetric key length.
	KeySize = crypto.KeySize
	// TagSize is the AES-256-GCM authentication tag length.
	TagSize = limits.AEADTagSize
	// MaxMessageSize is the largest noise message in either direction.
	MaxMessageSize = limits.MaxNoiseMessage

	aesNonceSize = 12
)

// protocolName seeds both the transcript hash and the chaining key. It is
// exactly 32 bytes (the SHA-256 output length); changing it is a breaking
// wire-compatibility change.
var protocolName = []byte("Noise_IK_25519_AESGCM_SHA256\x00\x00\x00\x00")

// EncryptedLen returns the ciphertext length for a plaintext of the given
// length.
func EncryptedLen(plaintextLen int) int {
	return plaintextLen + TagSize
}

// HandshakeInitMsgLen returns the exact size of the initiator's handshake
// message for a payload of the given length:
// ephemeral key ‖ AEAD(static key) ‖ AEAD(payload).
func HandshakeInitMsgLen(payloadLen int) int {
	return KeySize + EncryptedLen(KeySize) + EncryptedLen(payloadLen)
}

// HandshakeRespMsgLen returns the exact size of the responder's handshake
// message for a payload of the given length: ephemeral key ‖ AEAD(payload).
func HandshakeRespMsgLen(payloadLen int) int {
	return KeySize + EncryptedLen(payloadLen)
}

// Config holds a node's static identity and drives handshakes in both
// roles. It is immutable and safe for concurrent use by many connections.
type Config struct {
	keys *crypto.KeyPair
}

// NewConfig creates a handshake configuration around the node's long-term
// identity key pair. The Config borrows the key pair; the caller keeps
// ownership and is responsible for wiping it at process shutdown.
func NewConfig(keys *crypto.KeyPair) *Config {
	return &Config{keys: keys}
}

// PublicKey returns the node's static public key.
func (c *Config) PublicKey() [KeySize]byte {
	return c.keys.Public
}

// InitiatorHandshakeState carries the initiator's transcript between
// InitiateConnection and FinalizeConnection. It is single-use: finalizing
// consumes it and wipes the ephemeral secret.
type InitiatorHandshakeState struct {
	h        []byte
	ck       []byte
	e        *crypto.KeyPair
	rs       [KeySize]byte
	consumed bool
}

// ResponderHandshakeState carries the responder's transcript between
// ParseClientInitMessage and RespondToClient. It is single-use.
type ResponderHandshakeState struct {
	h        []byte
	ck       []byte
	rs       [KeySize]byte
	re       [KeySize]byte
	consumed bool
}

// RemoteStatic returns the initiator static public key recovered from the
// first handshake message.
func (s *ResponderHandshakeState) RemoteStatic() [KeySize]byte {
	return s.rs
}

// InitiateConnection builds the first handshake message toward a responder
// whose static public key is already known. The optional payload is
// encrypted and authenticated but readable by the responder before the
// handshake completes, so it must not contain secrets. Randomness for the
// ephemeral key is drawn from rng.
//
// The returned message has no length prefix; its size is
// HandshakeInitMsgLen(len(payload)).
func (c *Config) InitiateConnection(
	rng io.Reader,
	prologue []byte,
	remoteStatic [KeySize]byte,
	payload []byte,
) (*InitiatorHandshakeState, []byte, error) {
	if HandshakeInitMsgLen(len(payload)) > MaxMessageSize {
		return nil, nil, ErrPayloadTooLarge
	}

	h := protocolName
	ck := append([]byte(nil), protocolName...)
	h = mixHash(h, prologue)
	h = mixHash(h, remoteStatic[:])

	msg := make([]byte, 0, HandshakeInitMsgLen(len(payload)))

	// -> e
	e, err := crypto.GenerateKeyPairFrom(rng)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate ephemeral key: %w", err)
	}
	h = mixHash(h, e.Public[:])
	msg = append(msg, e.Public[:]...)

	// -> es
	dh, err := e.DH(remoteStatic)
	if err != nil {
		return nil, nil, ErrWrongPublicKey
	}
	ck, k, err := mixKey(ck, dh)
	if err != nil {
		return nil, nil, err
	}

	// -> s
	encStatic, err := aeadSeal(k, h, c.keys.Public[:])
	crypto.ZeroBytes(k)
	if err != nil {
		return nil, nil, err
	}
	h = mixHash(h, encStatic)
	msg = append(msg, encStatic...)

	// -> ss
	dh, err = c.keys.DH(remoteStatic)
	if err != nil {
		return nil, nil, ErrWrongPublicKey
	}
	ck, k, err = mixKey(ck, dh)
	if err != nil {
		return nil, nil, err
	}

	// -> payload
	encPayload, err := aeadSeal(k, h, payload)
	crypto.ZeroBytes(k)
	if err != nil {
		return nil, nil, err
	}
	h = mixHash(h, encPayload)
	msg = append(msg, encPayload...)

	state := &InitiatorHandshakeState{h: h, ck: ck, e: e, rs: remoteStatic}
	return state, msg, nil
}

// FinalizeConnection processes the responder's handshake message and
// derives the transport session. The handshake state is consumed whether or
// not finalization succeeds; a failed handshake must be restarted from
// scratch with fresh ephemeral keys.
//
// The initiator session writes with the first derived key and reads with
// the second; the responder mirrors this assignment. Both sides must keep
// this convention or they derive sessions that cannot talk to each other.
func (c *Config) FinalizeConnection(
	state *InitiatorHandshakeState,
	receivedMessage []byte,
) ([]byte, *Session, error) {
	if state == nil || state.consumed {
		return nil, nil, ErrStateConsumed
	}
	state.consumed = true
	defer func() {
		_ = crypto.WipeKeyPair(state.e)
		crypto.ZeroBytes(state.ck)
	}()

	if len(receivedMessage) > MaxMessageSize {
		return nil, nil, ErrReceivedMsgTooLarge
	}
	if len(receivedMessage) < HandshakeRespMsgLen(0) {
		return nil, nil, ErrMsgTooShort
	}

	h := state.h
	ck := state.ck

	// <- e
	var re [KeySize]byte
	copy(re[:], receivedMessage[:KeySize])
	h = mixHash(h, re[:])

	// <- ee
	dh, err := state.e.DH(re)
	if err != nil {
		return nil, nil, ErrWrongPublicKey
	}
	ck, k, err := mixKey(ck, dh)
	if err != nil {
		return nil, nil, err
	}
	crypto.ZeroBytes(k)

	// <- se
	dh, err = c.keys.DH(re)
	if err != nil {
		return nil, nil, ErrWrongPublicKey
	}
	ck, k, err = mixKey(ck, dh)
	if err != nil {
		return nil, nil, err
	}

	// <- payload
	payload, err := aeadOpen(k, h, receivedMessage[KeySize:])
	crypto.ZeroBytes(k)
	if err != nil {
		return nil, nil, err
	}

	k1, k2, err := hkdfSplit(ck, nil)
	if err != nil {
		return nil, nil, err
	}
	session, err := newSession(k1, k2, state.rs)
	if err != nil {
		return nil, nil, err
	}
	return payload, session, nil
}

// ParseClientInitMessage processes an initiator's first handshake message,
// recovering and authenticating the initiator's static public key and
// decrypting its payload. Any AEAD failure aborts the handshake; the
// connection must be dropped, never retried with the same state.
func (c *Config) ParseClientInitMessage(
	prologue []byte,
	receivedMessage []byte,
) ([KeySize]byte, *ResponderHandshakeState, []byte, error) {
	var remoteStatic [KeySize]byte

	if len(receivedMessage) > MaxMessageSize {
		return remoteStatic, nil, nil, ErrReceivedMsgTooLarge
	}
	if len(receivedMessage) < HandshakeInitMsgLen(0) {
		return remoteStatic, nil, nil, ErrMsgTooShort
	}

	h := protocolName
	ck := append([]byte(nil), protocolName...)
	h = mixHash(h, prologue)
	h = mixHash(h, c.keys.Public[:])

	// <- e
	var re [KeySize]byte
	copy(re[:], receivedMessage[:KeySize])
	h = mixHash(h, re[:])

	// <- es
	dh, err := c.keys.DH(re)
	if err != nil {
		return remoteStatic, nil, nil, ErrWrongPublicKey
	}
	ck, k, err := mixKey(ck, dh)
	if err != nil {
		return remoteStatic, nil, nil, err
	}

	// <- s
	encStatic := receivedMessage[KeySize : KeySize+EncryptedLen(KeySize)]
	rsBytes, err := aeadOpen(k, h, encStatic)
	crypto.ZeroBytes(k)
	if err != nil {
		return remoteStatic, nil, nil, err
	}
	if len(rsBytes) != KeySize {
		return remoteStatic, nil, nil, ErrDecrypt
	}
	copy(remoteStatic[:], rsBytes)
	h = mixHash(h, encStatic)

	// <- ss
	dh, err = c.keys.DH(remoteStatic)
	if err != nil {
		return remoteStatic, nil, nil, ErrWrongPublicKey
	}
	ck, k, err = mixKey(ck, dh)
	if err != nil {
		return remoteStatic, nil, nil, err
	}

	// <- payload
	encPayload := receivedMessage[KeySize+EncryptedLen(KeySize):]
	payload, err := aeadOpen(k, h, encPayload)
	crypto.ZeroBytes(k)
	if err != nil {
		return remoteStatic, nil, nil, err
	}
	h = mixHash(h, encPayload)

	state := &ResponderHandshakeState{h: h, ck: ck, rs: remoteStatic, re: re}
	return remoteStatic, state, payload, nil
}

// RespondToClient generates the responder's handshake message into the
// caller-supplied buffer and derives the transport session. The buffer must
// be pre-sized via HandshakeRespMsgLen; an undersized buffer is a hard
// error, not a partial write. The handshake state is consumed.
func (c *Config) RespondToClient(
	rng io.Reader,
	state *ResponderHandshakeState,
	payload []byte,
	responseBuffer []byte,
) (*Session, error) {
	if state == nil || state.consumed {
		return nil, ErrStateConsumed
	}
	state.consumed = true
	defer crypto.ZeroBytes(state.ck)

	required := HandshakeRespMsgLen(len(payload))
	if required > MaxMessageSize {
		return nil, ErrPayloadTooLarge
	}
	if len(responseBuffer) < required {
		return nil, ErrResponseBufferTooSmall
	}

	h := state.h
	ck := state.ck

	// -> e
	e, err := crypto.GenerateKeyPairFrom(rng)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ephemeral key: %w", err)
	}
	defer func() { _ = crypto.WipeKeyPair(e) }()
	h = mixHash(h, e.Public[:])
	copy(responseBuffer[:KeySize], e.Public[:])

	// -> ee
	dh, err := e.DH(state.re)
	if err != nil {
		return nil, ErrWrongPublicKey
	}
	ck, k, err := mixKey(ck, dh)
	if err != nil {
		return nil, err
	}
	crypto.ZeroBytes(k)

	// -> se
	dh, err = e.DH(state.rs)
	if err != nil {
		return nil, ErrWrongPublicKey
	}
	ck, k, err = mixKey(ck, dh)
	if err != nil {
		return nil, err
	}

	// -> payload
	encPayload, err := aeadSeal(k, h, payload)
	crypto.ZeroBytes(k)
	if err != nil {
		return nil, err
	}
	copy(responseBuffer[KeySize:required], encPayload)

	k1, k2, err := hkdfSplit(ck, nil)
	if err != nil {
		return nil, err
	}
	// Mirror of the initiator's assignment: write=k2, read=k1. This is a
	// wire-compatibility constant, not an implementation detail.
	return newSession(k2, k1, state.rs)
}

// mixHash absorbs data into the running transcript hash.
func mixHash(h, data []byte) []byte {
	sum := sha256.New()
	sum.Write(h)
	sum.Write(data)
	return sum.Sum(nil)
}

// hkdfSplit stretches the chaining key and an optional DH output into two
// independent 32-byte keys (HKDF-SHA256, 64-byte expand, empty info).
func hkdfSplit(ck, dhOutput []byte) ([]byte, []byte, error) {
	okm := make([]byte, 2*KeySize)
	r := hkdf.New(sha256.New, dhOutput, ck, nil)
	if _, err := io.ReadFull(r, okm); err != nil {
		return nil, nil, ErrHKDF
	}
	return okm[:KeySize], okm[KeySize:], nil
}

// mixKey folds a DH output into the chaining key, returning the new
// chaining key and a fresh one-shot transport key.
func mixKey(ck, dhOutput []byte) ([]byte, []byte, error) {
	newCk, k, err := hkdfSplit(ck, dhOutput)
	if err != nil {
		return nil, nil, err
	}
	crypto.ZeroBytes(ck)
	return newCk, k, nil
}

// newGCM builds an AES-256-GCM AEAD from a 32-byte key.
func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncrypt, err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncrypt, err)
	}
	return aead, nil
}

// aeadSeal encrypts plaintext under a one-shot handshake key with an
// all-zero nonce and the transcript hash as associated data. Safe only
// because each handshake key encrypts at most one message.
func aeadSeal(key, ad, plaintext []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	var nonce [aesNonceSize]byte
	return aead.Seal(nil, nonce[:], plaintext, ad), nil
}

// aeadOpen authenticates and decrypts a one-shot handshake ciphertext.
func aeadOpen(key, ad, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < TagSize {
		return nil, ErrMsgTooShort
	}
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	var nonce [aesNonceSize]byte
	plaintext, err := aead.Open(nil, nonce[:], ciphertext, ad)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}
