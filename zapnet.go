// Package zapnet wires identity, peer records and the secure transport
// into a runnable node. A Node listens for inbound connections, upgrades
// them through the authenticated handshake and hands every decrypted
// message to a caller-supplied handler; outbound connections opened with
// Connect stay under the caller's control.
package zapnet

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/zaplabs/zapnet/config"
	"github.com/zaplabs/zapnet/crypto"
	"github.com/zaplabs/zapnet/peers"
	"github.com/zaplabs/zapnet/transport"
)

// DefaultProtocols is the protocol set a node advertises by default.
var DefaultProtocols = []transport.ProtocolID{
	transport.ConsensusRpcBcs,
	transport.MempoolDirectSend,
	transport.StateSyncDirectSend,
	transport.DiscoveryDirectSend,
	transport.HealthCheckerRpc,
	transport.StorageServiceRpc,
	transport.PeerMonitoringServiceRpc,
}

// MessageHandler receives every message read from an inbound connection.
// It runs on the connection's goroutine; a slow handler stalls only that
// connection.
type MessageHandler func(conn *transport.SecureConn, payload []byte)

// Node is a running zapnet endpoint.
type Node struct {
	conf      *config.Config
	keys      *crypto.KeyPair
	transport *transport.Transport
	store     *peers.JSONPeerSet
	peers     *peers.PeerSet
	logger    *logrus.Logger
	handler   MessageHandler

	mu       sync.Mutex
	listener net.Listener
	conns    map[*transport.SecureConn]struct{}
	closed   bool
	wg       sync.WaitGroup
}

// NewNode loads (or creates) the node's identity under the configured
// data directory and prepares the transport. The handler may be nil, in
// which case inbound messages are dropped after decryption.
func NewNode(conf *config.Config, handler MessageHandler) (*Node, error) {
	chainID, err := conf.ChainID()
	if err != nil {
		return nil, err
	}
	networkID, err := conf.NetworkID()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(conf.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	keys, err := crypto.LoadOrGenerateIdentity(conf.Keyfile())
	if err != nil {
		return nil, fmt.Errorf("loading identity: %w", err)
	}

	store := peers.NewJSONPeerSet(conf.DataDir)
	peerSet, err := store.PeerSet()
	if err != nil {
		return nil, fmt.Errorf("loading peers: %w", err)
	}

	handshake := transport.NewHandshakeMsg(chainID, networkID, DefaultProtocols...)

	return &Node{
		conf:      conf,
		keys:      keys,
		transport: transport.NewTransport(keys, handshake, conf.Logger()),
		store:     store,
		peers:     peerSet,
		logger:    conf.Logger(),
		handler:   handler,
		conns:     make(map[*transport.SecureConn]struct{}),
	}, nil
}

// PublicKey returns the node's static public key.
func (n *Node) PublicKey() [crypto.KeySize]byte {
	return n.keys.Public
}

// Peers returns the node's live peer set.
func (n *Node) Peers() *peers.PeerSet {
	return n.peers
}

// Addr returns the listening address, or nil before Listen.
func (n *Node) Addr() net.Addr {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.listener == nil {
		return nil
	}
	return n.listener.Addr()
}

// Listen binds the configured address and starts accepting inbound
// connections in the background.
func (n *Node) Listen() error {
	listener, err := net.Listen("tcp", n.conf.BindAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", n.conf.BindAddr, err)
	}

	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		listener.Close()
		return fmt.Errorf("node is closed")
	}
	n.listener = listener
	n.mu.Unlock()

	n.logger.WithFields(logrus.Fields{
		"addr":    listener.Addr(),
		"moniker": n.conf.Moniker,
	}).Info("node listening")

	n.wg.Add(1)
	go n.acceptLoop(listener)
	return nil
}

func (n *Node) acceptLoop(listener net.Listener) {
	defer n.wg.Done()
	for {
		conn, err := listener.Accept()
		if err != nil {
			// Accept fails permanently once the listener is closed.
			return
		}
		n.wg.Add(1)
		go n.handleInbound(conn)
	}
}

func (n *Node) handleInbound(conn net.Conn) {
	defer n.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), n.conf.ConnectTimeout)
	secure, err := n.transport.Upgrade(ctx, conn)
	cancel()
	if err != nil {
		n.logger.WithFields(logrus.Fields{
			"remote_addr": conn.RemoteAddr(),
			"error":       err,
		}).Warn("rejected inbound connection")
		conn.Close()
		return
	}

	if !n.track(secure) {
		secure.Close()
		return
	}
	n.rememberPeer(secure)
	n.serve(secure)
}

// serve pumps messages from an inbound connection into the handler until
// the connection dies.
func (n *Node) serve(secure *transport.SecureConn) {
	defer n.untrack(secure)
	defer secure.Close()

	for {
		payload, err := secure.ReadMessage(context.Background())
		if err != nil {
			n.logger.WithFields(logrus.Fields{
				"remote_addr": secure.RemoteAddr(),
				"error":       err,
			}).Debug("connection closed")
			return
		}
		if n.handler != nil {
			n.handler(secure, payload)
		}
	}
}

// Connect opens, authenticates and returns an outbound connection. The
// caller owns the returned connection and drives both its reads and
// writes; Close on the node still tears it down.
func (n *Node) Connect(ctx context.Context, addr string, remotePub [crypto.KeySize]byte) (*transport.SecureConn, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.conf.ConnectTimeout)
		defer cancel()
	}

	secure, err := n.transport.Dial(ctx, addr, remotePub)
	if err != nil {
		return nil, err
	}
	if !n.track(secure) {
		secure.Close()
		return nil, fmt.Errorf("node is closed")
	}
	n.rememberPeer(secure)
	return secure, nil
}

// ConnectPeer opens an outbound connection to a recorded peer.
func (n *Node) ConnectPeer(ctx context.Context, peer *peers.Peer) (*transport.SecureConn, error) {
	remotePub, err := peer.PublicKey()
	if err != nil {
		return nil, err
	}
	return n.Connect(ctx, peer.NetAddr, remotePub)
}

// rememberPeer records an authenticated peer and persists the set. A
// persistence failure is logged, not fatal; the connection is already up.
func (n *Node) rememberPeer(secure *transport.SecureConn) {
	peer := peers.NewPeerFromKey(secure.RemotePublicKey(), secure.RemoteAddr().String())
	n.peers.Upsert(peer)
	if err := n.store.Write(n.peers); err != nil {
		n.logger.WithField("error", err).Warn("persisting peer set failed")
	}
}

func (n *Node) track(secure *transport.SecureConn) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return false
	}
	n.conns[secure] = struct{}{}
	return true
}

func (n *Node) untrack(secure *transport.SecureConn) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.conns, secure)
}

// Close stops listening, tears down every tracked connection and waits
// for the connection goroutines to drain.
func (n *Node) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	listener := n.listener
	open := make([]*transport.SecureConn, 0, len(n.conns))
	for secure := range n.conns {
		open = append(open, secure)
	}
	n.mu.Unlock()

	var err error
	if listener != nil {
		err = listener.Close()
	}
	for _, secure := range open {
		secure.Close()
	}
	n.wg.Wait()
	return err
}
