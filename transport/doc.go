// Package transport turns a raw byte stream into a mutually authenticated,
// encrypted sequence of discrete messages between zapnet nodes.
//
// A connection is established in three steps:
//
//  1. Noise IK handshake (package noise). The initiator sends a 64-byte
//     clear prologue (its own static public key followed by the responder's)
//     and its fixed-size handshake message; the responder answers with its
//     fixed-size response. The handshake round carries no length prefixes:
//     both sides compute the exact sizes from the agreed payload convention
//     (an 8-byte initiator timestamp, an empty responder payload).
//  2. Capability negotiation. Each side sends its HandshakeMsg as the first
//     framed, encrypted message; chain and network identity must match and
//     the highest protocol version with a non-empty protocol intersection
//     wins.
//  3. Application traffic. Every message is AEAD-encrypted and framed with
//     a 4-byte big-endian length prefix. Declared lengths are validated
//     against the maximum message size before any allocation.
//
// The API is deliberately message-oriented (WriteMessage/ReadMessage over
// whole frames) rather than a byte-stream io.Reader/io.Writer: a framing
// boundary cannot be expressed cleanly through partial reads, and whole
// messages are what every consumer of the transport actually wants.
//
// Each SecureConn is owned by exactly one goroutine; the Transport itself
// is immutable after construction and safe for concurrent dials and
// upgrades.
package transport
