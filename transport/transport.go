package transport

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/zaplabs/zapnet/crypto"
	"github.com/zaplabs/zapnet/limits"
	"github.com/zaplabs/zapnet/noise"
)

const (
	// prologueLen is the clear handshake preamble: initiator static key
	// followed by the intended responder static key.
	prologueLen = 2 * noise.KeySize
	// initTimestampLen is the initiator's handshake payload, a big-endian
	// unix-milliseconds timestamp.
	initTimestampLen = 8
)

// The handshake round has no framing; both sides derive the exact message
// sizes from the fixed payload convention.
var (
	initMsgLen = noise.HandshakeInitMsgLen(initTimestampLen)
	respMsgLen = noise.HandshakeRespMsgLen(0)
)

// Transport upgrades raw TCP connections into SecureConns. It is immutable
// after construction and safe for concurrent use.
type Transport struct {
	config    *noise.Config
	handshake *HandshakeMsg
	dialer    net.Dialer
	logger    *logrus.Logger
}

// NewTransport builds a transport around a static identity and a
// capability advertisement. A nil logger falls back to the logrus
// standard logger.
func NewTransport(keys *crypto.KeyPair, handshake *HandshakeMsg, logger *logrus.Logger) *Transport {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Transport{
		config:    noise.NewConfig(keys),
		handshake: handshake,
		logger:    logger,
	}
}

// PublicKey returns the transport's static public key.
func (t *Transport) PublicKey() [noise.KeySize]byte {
	return t.config.PublicKey()
}

// Dial connects to addr and upgrades the connection as the initiator,
// authenticating the peer against remoteStatic.
func (t *Transport) Dial(ctx context.Context, addr string, remoteStatic [noise.KeySize]byte) (*SecureConn, error) {
	conn, err := t.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", addr, err)
	}
	secure, err := t.upgradeOutbound(ctx, conn, remoteStatic)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return secure, nil
}

// Upgrade runs the responder side of the handshake on an accepted
// connection. The caller keeps ownership of conn on failure.
func (t *Transport) Upgrade(ctx context.Context, conn net.Conn) (*SecureConn, error) {
	if err := applyConnDeadline(ctx, conn); err != nil {
		return nil, err
	}
	defer conn.SetDeadline(time.Time{})

	handshakeBuf := make([]byte, prologueLen+initMsgLen)
	if _, err := io.ReadFull(conn, handshakeBuf); err != nil {
		return nil, fmt.Errorf("reading handshake: %w", err)
	}
	prologue := handshakeBuf[:prologueLen]

	ownPublic := t.config.PublicKey()
	if !bytes.Equal(prologue[noise.KeySize:], ownPublic[:]) {
		return nil, ErrWrongRecipient
	}

	remoteStatic, state, payload, err := t.config.ParseClientInitMessage(prologue, handshakeBuf[prologueLen:])
	if err != nil {
		return nil, fmt.Errorf("parsing handshake: %w", err)
	}
	if !bytes.Equal(prologue[:noise.KeySize], remoteStatic[:]) {
		return nil, ErrRemoteKeyMismatch
	}
	if len(payload) != initTimestampLen {
		return nil, fmt.Errorf("%w: %d byte initiator payload", ErrInvalidHandshakePayload, len(payload))
	}
	peerTimestamp := binary.BigEndian.Uint64(payload)

	response := make([]byte, respMsgLen)
	session, err := t.config.RespondToClient(rand.Reader, state, nil, response)
	if err != nil {
		return nil, fmt.Errorf("building handshake response: %w", err)
	}
	if _, err := conn.Write(response); err != nil {
		return nil, fmt.Errorf("writing handshake response: %w", err)
	}

	secure := newSecureConn(conn, session)

	// Responder reads the peer's advertisement before sending its own;
	// the mirrored order on the initiator keeps the exchange deadlock-free.
	remote, err := t.readHandshakeMsg(ctx, secure)
	if err != nil {
		return nil, err
	}
	if err := t.sendHandshakeMsg(ctx, secure); err != nil {
		return nil, err
	}
	if err := t.negotiate(secure, remote); err != nil {
		return nil, err
	}

	t.logger.WithFields(logrus.Fields{
		"remote_addr": conn.RemoteAddr(),
		"peer_key":    fmt.Sprintf("%x", remoteStatic[:4]),
		"peer_ts_ms":  peerTimestamp,
		"version":     secure.version,
		"protocols":   secure.protocols.String(),
	}).Info("inbound connection established")
	return secure, nil
}

func (t *Transport) upgradeOutbound(ctx context.Context, conn net.Conn, remoteStatic [noise.KeySize]byte) (*SecureConn, error) {
	if err := applyConnDeadline(ctx, conn); err != nil {
		return nil, err
	}
	defer conn.SetDeadline(time.Time{})

	timestamp := make([]byte, initTimestampLen)
	binary.BigEndian.PutUint64(timestamp, uint64(time.Now().UnixMilli()))

	ownPublic := t.config.PublicKey()
	prologue := make([]byte, prologueLen)
	copy(prologue[:noise.KeySize], ownPublic[:])
	copy(prologue[noise.KeySize:], remoteStatic[:])

	state, initMsg, err := t.config.InitiateConnection(rand.Reader, prologue, remoteStatic, timestamp)
	if err != nil {
		return nil, fmt.Errorf("initiating handshake: %w", err)
	}

	// Prologue and first handshake message go out in a single write.
	if _, err := conn.Write(append(prologue, initMsg...)); err != nil {
		return nil, fmt.Errorf("writing handshake: %w", err)
	}

	response := make([]byte, respMsgLen)
	if _, err := io.ReadFull(conn, response); err != nil {
		return nil, fmt.Errorf("reading handshake response: %w", err)
	}
	_, session, err := t.config.FinalizeConnection(state, response)
	if err != nil {
		return nil, fmt.Errorf("finalizing handshake: %w", err)
	}

	secure := newSecureConn(conn, session)

	if err := t.sendHandshakeMsg(ctx, secure); err != nil {
		return nil, err
	}
	remote, err := t.readHandshakeMsg(ctx, secure)
	if err != nil {
		return nil, err
	}
	if err := t.negotiate(secure, remote); err != nil {
		return nil, err
	}

	t.logger.WithFields(logrus.Fields{
		"remote_addr": conn.RemoteAddr(),
		"peer_key":    fmt.Sprintf("%x", remoteStatic[:4]),
		"version":     secure.version,
		"protocols":   secure.protocols.String(),
	}).Info("outbound connection established")
	return secure, nil
}

func (t *Transport) sendHandshakeMsg(ctx context.Context, secure *SecureConn) error {
	encoded, err := t.handshake.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encoding capability advertisement: %w", err)
	}
	if err := secure.WriteMessage(ctx, encoded); err != nil {
		return fmt.Errorf("sending capability advertisement: %w", err)
	}
	return nil
}

func (t *Transport) readHandshakeMsg(ctx context.Context, secure *SecureConn) (*HandshakeMsg, error) {
	encoded, err := secure.ReadMessage(ctx)
	if err != nil {
		return nil, fmt.Errorf("receiving capability advertisement: %w", err)
	}
	if len(encoded) > limits.MaxHandshakePayload {
		return nil, fmt.Errorf("%w: %d bytes", ErrHandshakeMsgTooLarge, len(encoded))
	}
	var remote HandshakeMsg
	if err := remote.UnmarshalBinary(encoded); err != nil {
		return nil, err
	}
	return &remote, nil
}

func (t *Transport) negotiate(secure *SecureConn, remote *HandshakeMsg) error {
	version, protocols, err := t.handshake.PerformHandshake(remote)
	if err != nil {
		return err
	}
	secure.version = version
	secure.protocols = protocols
	return nil
}

func applyConnDeadline(ctx context.Context, conn net.Conn) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		return conn.SetDeadline(deadline)
	}
	return nil
}
