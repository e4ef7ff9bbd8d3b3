package noise

import "errors"

var (
	// ErrMsgTooShort indicates the received message is too short to parse.
	ErrMsgTooShort = errors.New("noise: the received message is too short")
	// ErrHKDF indicates key derivation failed.
	ErrHKDF = errors.New("noise: HKDF has failed")
	// ErrEncrypt indicates encryption failed.
	ErrEncrypt = errors.New("noise: encryption has failed")
	// ErrDecrypt indicates received data could not be authenticated and
	// decrypted. On a Session this error is permanent.
	ErrDecrypt = errors.New("noise: could not decrypt the received data")
	// ErrWrongPublicKey indicates a received public key of the wrong format.
	ErrWrongPublicKey = errors.New("noise: the public key received is of the wrong format")
	// ErrSessionClosed indicates the session was invalidated by an earlier
	// failure and rejects all further use.
	ErrSessionClosed = errors.New("noise: session was closed due to decrypt error")
	// ErrPayloadTooLarge indicates an outbound payload exceeding the
	// maximum message size.
	ErrPayloadTooLarge = errors.New("noise: the payload that we are trying to send is too large")
	// ErrReceivedMsgTooLarge indicates an inbound message exceeding the
	// maximum message size.
	ErrReceivedMsgTooLarge = errors.New("noise: the message we received is too large")
	// ErrResponseBufferTooSmall indicates a caller-supplied response buffer
	// smaller than the size formula requires.
	ErrResponseBufferTooSmall = errors.New("noise: the response buffer passed as argument is too small")
	// ErrNonceOverflow indicates a per-direction nonce reached the maximum
	// u64 value. Nonces never wrap; the session must be torn down.
	ErrNonceOverflow = errors.New("noise: the nonce exceeds the maximum u64 value")
	// ErrStateConsumed indicates reuse of a handshake state that was
	// already finalized or abandoned.
	ErrStateConsumed = errors.New("noise: handshake state was already consumed")
)
