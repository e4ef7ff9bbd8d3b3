package transport

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/zaplabs/zapnet/limits"
	"github.com/zaplabs/zapnet/noise"
)

// SecureConn is an established, authenticated connection. Every message
// crossing it is AEAD-encrypted and carried in a frame with a 4-byte
// big-endian length prefix.
//
// A SecureConn is not safe for concurrent use; it belongs to the single
// goroutine driving the connection.
type SecureConn struct {
	conn    net.Conn
	session *noise.Session

	version   MessagingProtocolVersion
	protocols ProtocolIDSet
}

func newSecureConn(conn net.Conn, session *noise.Session) *SecureConn {
	return &SecureConn{conn: conn, session: session}
}

// WriteMessage encrypts the payload and writes it as a single frame. The
// context's deadline, if any, bounds the network write.
func (c *SecureConn) WriteMessage(ctx context.Context, payload []byte) error {
	if err := c.applyDeadline(ctx, c.conn.SetWriteDeadline); err != nil {
		return err
	}

	ciphertext, err := c.session.WriteMessage(payload)
	if err != nil {
		return fmt.Errorf("encrypting message: %w", err)
	}

	frame := make([]byte, limits.FrameLenPrefixSize+len(ciphertext))
	binary.BigEndian.PutUint32(frame, uint32(len(ciphertext)))
	copy(frame[limits.FrameLenPrefixSize:], ciphertext)

	if _, err := c.conn.Write(frame); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}
	return nil
}

// ReadMessage reads one frame and returns the decrypted payload. The
// declared length is validated against the maximum message size before
// the frame body is allocated or read.
func (c *SecureConn) ReadMessage(ctx context.Context) ([]byte, error) {
	if err := c.applyDeadline(ctx, c.conn.SetReadDeadline); err != nil {
		return nil, err
	}

	var prefix [limits.FrameLenPrefixSize]byte
	if _, err := io.ReadFull(c.conn, prefix[:]); err != nil {
		return nil, fmt.Errorf("reading frame length: %w", err)
	}
	declared := binary.BigEndian.Uint32(prefix[:])
	if err := limits.ValidateDeclaredSize(declared, noise.MaxMessageSize); err != nil {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, declared)
	}

	ciphertext := make([]byte, declared)
	if _, err := io.ReadFull(c.conn, ciphertext); err != nil {
		return nil, fmt.Errorf("reading frame body: %w", err)
	}

	payload, err := c.session.ReadMessage(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("decrypting message: %w", err)
	}
	return payload, nil
}

func (c *SecureConn) applyDeadline(ctx context.Context, set func(time.Time) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		return set(deadline)
	}
	return set(time.Time{})
}

// Close tears down the underlying connection. The session becomes
// unusable once the peer is gone; further calls fail on the socket.
func (c *SecureConn) Close() error {
	return c.conn.Close()
}

// RemotePublicKey returns the peer's authenticated static public key.
func (c *SecureConn) RemotePublicKey() [noise.KeySize]byte {
	return c.session.RemoteStatic()
}

// Version returns the negotiated messaging protocol version.
func (c *SecureConn) Version() MessagingProtocolVersion {
	return c.version
}

// Protocols returns the negotiated application protocol set.
func (c *SecureConn) Protocols() ProtocolIDSet {
	return c.protocols
}

// LocalAddr returns the local network address.
func (c *SecureConn) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// RemoteAddr returns the remote network address.
func (c *SecureConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}
