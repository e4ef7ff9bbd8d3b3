// Package noise implements the Noise_IK_25519_AESGCM_SHA256 handshake and
// the symmetric session that carries all post-handshake traffic between
// zapnet nodes.
//
// The IK pattern gives a single-round-trip mutually authenticated exchange:
// the initiator must already know the responder's static X25519 public key.
// Both sides may attach a small authenticated payload to their handshake
// message; zapnet uses the initiator payload to carry a timestamp.
//
// A handshake produces a Session holding one AES-256-GCM key per direction
// with independent monotonic nonces. Any cryptographic failure on a Session
// invalidates it permanently; callers must drop the connection and perform a
// fresh handshake with fresh ephemeral keys.
//
// Handshake message sizes are closed-form functions of the payload length
// (HandshakeInitMsgLen, HandshakeRespMsgLen); the handshake round is
// exchanged without any length prefix. Everything after the handshake is
// framed by the transport package.
package noise
