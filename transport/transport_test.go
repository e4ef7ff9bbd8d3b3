package transport

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zaplabs/zapnet/crypto"
)

type upgradeResult struct {
	conn *SecureConn
	err  error
}

// acceptOne accepts a single connection and upgrades it in the background.
func acceptOne(t *testing.T, server *Transport) (net.Addr, <-chan upgradeResult) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { listener.Close() })

	results := make(chan upgradeResult, 1)
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			results <- upgradeResult{err: err}
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		secure, err := server.Upgrade(ctx, conn)
		if err != nil {
			conn.Close()
		}
		results <- upgradeResult{conn: secure, err: err}
	}()
	return listener.Addr(), results
}

func TestTransportEndToEnd(t *testing.T) {
	serverKeys, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	clientKeys, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	server := NewTransport(serverKeys,
		NewHandshakeMsg(ChainTestnet, NetworkPublic, StorageServiceRpc, ConsensusRpcBcs, MempoolDirectSend), nil)
	client := NewTransport(clientKeys,
		NewHandshakeMsg(ChainTestnet, NetworkPublic, StorageServiceRpc, HealthCheckerRpc), nil)

	addr, results := acceptOne(t, server)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	clientConn, err := client.Dial(ctx, addr.String(), serverKeys.Public)
	require.NoError(t, err)
	defer clientConn.Close()

	result := <-results
	require.NoError(t, result.err)
	serverConn := result.conn
	defer serverConn.Close()

	// Mutual authentication.
	assert.Equal(t, serverKeys.Public, clientConn.RemotePublicKey())
	assert.Equal(t, clientKeys.Public, serverConn.RemotePublicKey())

	// Both sides agree on the negotiated capabilities.
	assert.Equal(t, VersionV1, clientConn.Version())
	assert.Equal(t, VersionV1, serverConn.Version())
	assert.Equal(t, clientConn.Protocols().Bytes(), serverConn.Protocols().Bytes())
	assert.True(t, clientConn.Protocols().Contains(StorageServiceRpc))
	assert.False(t, clientConn.Protocols().Contains(ConsensusRpcBcs))
	assert.False(t, clientConn.Protocols().Contains(HealthCheckerRpc))

	// Traffic in both directions.
	require.NoError(t, clientConn.WriteMessage(ctx, []byte("ping")))
	got, err := serverConn.ReadMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("ping"), got)

	require.NoError(t, serverConn.WriteMessage(ctx, []byte("pong")))
	got, err = clientConn.ReadMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("pong"), got)
}

func TestTransportChainMismatchFailsBothSides(t *testing.T) {
	serverKeys, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	clientKeys, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	server := NewTransport(serverKeys,
		NewHandshakeMsg(ChainMainnet, NetworkPublic, StorageServiceRpc), nil)
	client := NewTransport(clientKeys,
		NewHandshakeMsg(ChainTestnet, NetworkPublic, StorageServiceRpc), nil)

	addr, results := acceptOne(t, server)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = client.Dial(ctx, addr.String(), serverKeys.Public)
	assert.ErrorIs(t, err, ErrChainIDMismatch)

	result := <-results
	assert.ErrorIs(t, result.err, ErrChainIDMismatch)
}

func TestTransportNoCommonProtocols(t *testing.T) {
	serverKeys, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	clientKeys, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	server := NewTransport(serverKeys,
		NewHandshakeMsg(ChainTestnet, NetworkPublic, MempoolDirectSend), nil)
	client := NewTransport(clientKeys,
		NewHandshakeMsg(ChainTestnet, NetworkPublic, HealthCheckerRpc), nil)

	addr, results := acceptOne(t, server)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = client.Dial(ctx, addr.String(), serverKeys.Public)
	assert.ErrorIs(t, err, ErrNoCommonProtocols)

	result := <-results
	assert.ErrorIs(t, result.err, ErrNoCommonProtocols)
}

func TestTransportRejectsHandshakeForOtherResponder(t *testing.T) {
	serverKeys, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	clientKeys, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	otherKeys, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	handshake := NewHandshakeMsg(ChainTestnet, NetworkPublic, StorageServiceRpc)
	server := NewTransport(serverKeys, handshake, nil)
	client := NewTransport(clientKeys, handshake, nil)

	addr, results := acceptOne(t, server)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Dialing the listener while expecting a different identity: the
	// responder refuses up front, the initiator cannot complete.
	_, err = client.Dial(ctx, addr.String(), otherKeys.Public)
	require.Error(t, err)

	result := <-results
	assert.ErrorIs(t, result.err, ErrWrongRecipient)
}

func TestTransportConcurrentDials(t *testing.T) {
	serverKeys, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	handshake := NewHandshakeMsg(ChainTestnet, NetworkPublic, StorageServiceRpc)
	server := NewTransport(serverKeys, handshake, nil)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	const clients = 4
	go func() {
		for i := 0; i < clients; i++ {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				secure, err := server.Upgrade(ctx, conn)
				if err != nil {
					conn.Close()
					return
				}
				// Echo a single message back.
				msg, err := secure.ReadMessage(ctx)
				if err == nil {
					secure.WriteMessage(ctx, msg)
				}
				secure.Close()
			}(conn)
		}
	}()

	done := make(chan error, clients)
	for i := 0; i < clients; i++ {
		go func() {
			clientKeys, err := crypto.GenerateKeyPair()
			if err != nil {
				done <- err
				return
			}
			client := NewTransport(clientKeys, handshake, nil)
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			conn, err := client.Dial(ctx, listener.Addr().String(), serverKeys.Public)
			if err != nil {
				done <- err
				return
			}
			defer conn.Close()
			if err := conn.WriteMessage(ctx, []byte("echo")); err != nil {
				done <- err
				return
			}
			_, err = conn.ReadMessage(ctx)
			done <- err
		}()
	}

	for i := 0; i < clients; i++ {
		require.NoError(t, <-done)
	}
}
