package transport

import "errors"

var (
	// ErrChainIDMismatch indicates the peer lives on a different chain.
	// This is a hard trust-boundary check, not negotiable.
	ErrChainIDMismatch = errors.New("transport: chain id mismatch")
	// ErrNetworkIDMismatch indicates the peer belongs to a different
	// network (validator/public/vfn).
	ErrNetworkIDMismatch = errors.New("transport: network id mismatch")
	// ErrNoCommonProtocols indicates no protocol version yielded a
	// non-empty protocol intersection.
	ErrNoCommonProtocols = errors.New("transport: no common protocols")
	// ErrMalformedHandshakeMsg indicates a HandshakeMsg that does not
	// decode from its canonical binary form.
	ErrMalformedHandshakeMsg = errors.New("transport: malformed handshake message")
	// ErrHandshakeMsgTooLarge indicates a capability advertisement
	// exceeding the handshake payload budget.
	ErrHandshakeMsgTooLarge = errors.New("transport: handshake message exceeds maximum")
	// ErrFrameTooLarge indicates a frame length prefix exceeding the
	// maximum message size. The frame is rejected before allocation.
	ErrFrameTooLarge = errors.New("transport: declared frame length exceeds maximum")
	// ErrWrongRecipient indicates an inbound handshake addressed to a
	// different responder public key.
	ErrWrongRecipient = errors.New("transport: handshake addressed to a different responder key")
	// ErrRemoteKeyMismatch indicates the static key recovered from the
	// noise handshake does not match the identity claimed in the prologue.
	ErrRemoteKeyMismatch = errors.New("transport: remote static key does not match claimed identity")
	// ErrInvalidHandshakePayload indicates a handshake payload that does
	// not follow the agreed fixed-size convention.
	ErrInvalidHandshakePayload = errors.New("transport: invalid handshake payload")
)
