package zapnet

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zaplabs/zapnet/config"
	"github.com/zaplabs/zapnet/transport"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	conf := config.NewDefaultConfig()
	conf.DataDir = t.TempDir()
	conf.BindAddr = "127.0.0.1:0"
	conf.LogLevel = "error"
	conf.ConnectTimeout = 5 * time.Second
	return conf
}

func TestNodeRejectsBadChain(t *testing.T) {
	conf := testConfig(t)
	conf.Chain = "no-such-chain"
	_, err := NewNode(conf, nil)
	assert.Error(t, err)
}

func TestNodeIdentityPersistsAcrossRestarts(t *testing.T) {
	conf := testConfig(t)

	first, err := NewNode(conf, nil)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := NewNode(conf, nil)
	require.NoError(t, err)
	defer second.Close()

	assert.Equal(t, first.PublicKey(), second.PublicKey())
}

func TestNodeEndToEnd(t *testing.T) {
	received := make(chan []byte, 1)
	server, err := NewNode(testConfig(t), func(conn *transport.SecureConn, payload []byte) {
		// Echo back, then surface the payload to the test.
		conn.WriteMessage(context.Background(), payload)
		received <- payload
	})
	require.NoError(t, err)
	defer server.Close()
	require.NoError(t, server.Listen())

	client, err := NewNode(testConfig(t), nil)
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := client.Connect(ctx, server.Addr().String(), server.PublicKey())
	require.NoError(t, err)

	assert.Equal(t, server.PublicKey(), conn.RemotePublicKey())
	assert.True(t, conn.Protocols().Contains(transport.HealthCheckerRpc))

	require.NoError(t, conn.WriteMessage(ctx, []byte("hello over the wire")))

	select {
	case got := <-received:
		assert.Equal(t, []byte("hello over the wire"), got)
	case <-ctx.Done():
		t.Fatal("server never received the message")
	}

	echoed, err := conn.ReadMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello over the wire"), echoed)

	// Both ends recorded each other.
	assert.Equal(t, 1, client.Peers().Len())
	assert.Equal(t, 1, server.Peers().Len())
}

func TestNodeRejectsPeerFromOtherChain(t *testing.T) {
	serverConf := testConfig(t)
	serverConf.Chain = "mainnet"
	server, err := NewNode(serverConf, nil)
	require.NoError(t, err)
	defer server.Close()
	require.NoError(t, server.Listen())

	clientConf := testConfig(t)
	clientConf.Chain = "testnet"
	client, err := NewNode(clientConf, nil)
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = client.Connect(ctx, server.Addr().String(), server.PublicKey())
	assert.ErrorIs(t, err, transport.ErrChainIDMismatch)
	assert.Zero(t, client.Peers().Len())
}

func TestNodeCloseStopsAccepting(t *testing.T) {
	server, err := NewNode(testConfig(t), nil)
	require.NoError(t, err)
	require.NoError(t, server.Listen())
	addr := server.Addr().String()
	require.NoError(t, server.Close())

	client, err := NewNode(testConfig(t), nil)
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err = client.Connect(ctx, addr, server.PublicKey())
	assert.Error(t, err)
}
