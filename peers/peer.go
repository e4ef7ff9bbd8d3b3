package peers

import (
	"fmt"
	"strings"

	"github.com/zaplabs/zapnet/crypto"
)

// Peer identifies a remote node by its dialable address and its static
// X25519 public key.
type Peer struct {
	NetAddr   string `json:"net_addr"`
	PubKeyHex string `json:"pub_key_hex"`
}

// NewPeer builds a peer from a lowercase-hex public key and an address.
func NewPeer(pubKeyHex, netAddr string) *Peer {
	return &Peer{
		NetAddr:   netAddr,
		PubKeyHex: strings.ToLower(pubKeyHex),
	}
}

// NewPeerFromKey builds a peer from a raw public key.
func NewPeerFromKey(pubKey [crypto.KeySize]byte, netAddr string) *Peer {
	encoded, _ := crypto.EncodeKey(pubKey, crypto.FormatHex)
	return &Peer{
		NetAddr:   netAddr,
		PubKeyHex: string(encoded),
	}
}

// PublicKey decodes the peer's static public key.
func (p *Peer) PublicKey() ([crypto.KeySize]byte, error) {
	key, err := crypto.DecodeKey([]byte(p.PubKeyHex), crypto.FormatHex)
	if err != nil {
		return [crypto.KeySize]byte{}, fmt.Errorf("peer %s: %w", p.NetAddr, err)
	}
	return key, nil
}

func (p *Peer) String() string {
	return fmt.Sprintf("%s@%s", shortHex(p.PubKeyHex), p.NetAddr)
}

func shortHex(hexKey string) string {
	if len(hexKey) > 8 {
		return hexKey[:8]
	}
	return hexKey
}
