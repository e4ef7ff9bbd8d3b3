package peers

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zaplabs/zapnet/crypto"
)

func testPeer(t *testing.T, addr string) *Peer {
	t.Helper()
	keys, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	return NewPeerFromKey(keys.Public, addr)
}

func TestPeerPublicKeyRoundTrip(t *testing.T) {
	keys, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	peer := NewPeerFromKey(keys.Public, "127.0.0.1:9000")
	decoded, err := peer.PublicKey()
	require.NoError(t, err)
	assert.Equal(t, keys.Public, decoded)
}

func TestPeerPublicKeyRejectsGarbage(t *testing.T) {
	peer := NewPeer("not hex at all", "127.0.0.1:9000")
	_, err := peer.PublicKey()
	assert.Error(t, err)
}

func TestPeerSetUpsertReplacesByKey(t *testing.T) {
	peer := testPeer(t, "10.0.0.1:9000")
	set := NewPeerSet([]*Peer{peer})
	require.Equal(t, 1, set.Len())

	moved := NewPeer(peer.PubKeyHex, "10.0.0.2:9000")
	set.Upsert(moved)

	assert.Equal(t, 1, set.Len())
	got, ok := set.Get(peer.PubKeyHex)
	require.True(t, ok)
	assert.Equal(t, "10.0.0.2:9000", got.NetAddr)
}

func TestPeerSetGetIsCaseInsensitive(t *testing.T) {
	peer := testPeer(t, "10.0.0.1:9000")
	set := NewPeerSet([]*Peer{peer})

	_, ok := set.Get(strings.ToUpper(peer.PubKeyHex))
	assert.True(t, ok)
}

func TestPeerSetRemove(t *testing.T) {
	peer := testPeer(t, "10.0.0.1:9000")
	set := NewPeerSet([]*Peer{peer})

	assert.True(t, set.Remove(peer.PubKeyHex))
	assert.False(t, set.Remove(peer.PubKeyHex))
	assert.Zero(t, set.Len())
}

func TestPeerSetPeersIsSorted(t *testing.T) {
	set := NewPeerSet([]*Peer{
		testPeer(t, "10.0.0.1:9000"),
		testPeer(t, "10.0.0.2:9000"),
		testPeer(t, "10.0.0.3:9000"),
	})

	listed := set.Peers()
	require.Len(t, listed, 3)
	for i := 1; i < len(listed); i++ {
		assert.Less(t, listed[i-1].PubKeyHex, listed[i].PubKeyHex)
	}
}

func TestJSONPeerSetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewJSONPeerSet(dir)

	original := NewPeerSet([]*Peer{
		testPeer(t, "10.0.0.1:9000"),
		testPeer(t, "10.0.0.2:9000"),
	})
	require.NoError(t, store.Write(original))

	reloaded, err := store.PeerSet()
	require.NoError(t, err)
	assert.Equal(t, original.Peers(), reloaded.Peers())
}

func TestJSONPeerSetMissingFileIsEmpty(t *testing.T) {
	store := NewJSONPeerSet(t.TempDir())

	set, err := store.PeerSet()
	require.NoError(t, err)
	assert.Zero(t, set.Len())
}

func TestJSONPeerSetRejectsBadKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "peers.json")
	require.NoError(t, os.WriteFile(path,
		[]byte(`[{"net_addr":"10.0.0.1:9000","pub_key_hex":"zz"}]`), 0600))

	_, err := NewJSONPeerSet(dir).PeerSet()
	assert.Error(t, err)
}
