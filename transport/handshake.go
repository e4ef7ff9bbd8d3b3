package transport

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sort"
)

// MessagingProtocolVersion versions the message envelope spoken after the
// secure channel is up. New versions append new ordinals.
type MessagingProtocolVersion uint8

const (
	// VersionV1 is the initial messaging wire version.
	VersionV1 MessagingProtocolVersion = 0
)

// ChainID identifies the chain a node participates in. Nodes on different
// chains must never talk to each other.
type ChainID uint8

const (
	ChainMainnet ChainID = 1
	ChainTestnet ChainID = 2
)

// NetworkID identifies which overlay network a connection belongs to.
type NetworkID uint8

const (
	NetworkValidator NetworkID = 0
	NetworkPublic    NetworkID = 1
	NetworkVfn       NetworkID = 2
)

func (n NetworkID) String() string {
	switch n {
	case NetworkValidator:
		return "validator"
	case NetworkPublic:
		return "public"
	case NetworkVfn:
		return "vfn"
	default:
		return fmt.Sprintf("network(%d)", uint8(n))
	}
}

// HandshakeMsg is the capability advertisement each side sends as the
// first encrypted message on a fresh connection.
type HandshakeMsg struct {
	SupportedProtocols map[MessagingProtocolVersion]ProtocolIDSet
	ChainID            ChainID
	NetworkID          NetworkID
}

// NewHandshakeMsg builds an advertisement carrying the given protocols
// under the current messaging version.
func NewHandshakeMsg(chainID ChainID, networkID NetworkID, protocols ...ProtocolID) *HandshakeMsg {
	return &HandshakeMsg{
		SupportedProtocols: map[MessagingProtocolVersion]ProtocolIDSet{
			VersionV1: NewProtocolIDSet(protocols...),
		},
		ChainID:   chainID,
		NetworkID: networkID,
	}
}

// PerformHandshake negotiates against a remote advertisement. Chain and
// network identity must match exactly. Versions are tried from highest to
// lowest; the first one both sides support with a non-empty protocol
// intersection wins. The result is deterministic and agrees on both ends
// regardless of who initiated.
func (h *HandshakeMsg) PerformHandshake(remote *HandshakeMsg) (MessagingProtocolVersion, ProtocolIDSet, error) {
	if h.ChainID != remote.ChainID {
		return 0, ProtocolIDSet{}, fmt.Errorf("%w: ours %d, theirs %d",
			ErrChainIDMismatch, h.ChainID, remote.ChainID)
	}
	if h.NetworkID != remote.NetworkID {
		return 0, ProtocolIDSet{}, fmt.Errorf("%w: ours %s, theirs %s",
			ErrNetworkIDMismatch, h.NetworkID, remote.NetworkID)
	}

	for _, version := range h.versionsDescending() {
		theirs, ok := remote.SupportedProtocols[version]
		if !ok {
			continue
		}
		common := h.SupportedProtocols[version].Intersect(theirs)
		if !common.IsEmpty() {
			return version, common, nil
		}
	}
	return 0, ProtocolIDSet{}, ErrNoCommonProtocols
}

func (h *HandshakeMsg) versionsDescending() []MessagingProtocolVersion {
	versions := make([]MessagingProtocolVersion, 0, len(h.SupportedProtocols))
	for v := range h.SupportedProtocols {
		versions = append(versions, v)
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i] > versions[j] })
	return versions
}

// Canonical binary form, identical on every node so that the encoding can
// travel under an AEAD without ambiguity:
//
//	uvarint entry count
//	entries in ascending version order:
//	  1-byte version ordinal
//	  uvarint bitset length, then the bitset bytes
//	1-byte chain id
//	1-byte network id
//
// Decoding rejects duplicate or out-of-order versions, oversized bitsets,
// unknown network ordinals and trailing bytes.

// MarshalBinary encodes the message into its canonical form.
func (h *HandshakeMsg) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	var scratch [binary.MaxVarintLen64]byte

	n := binary.PutUvarint(scratch[:], uint64(len(h.SupportedProtocols)))
	buf.Write(scratch[:n])

	versions := make([]MessagingProtocolVersion, 0, len(h.SupportedProtocols))
	for v := range h.SupportedProtocols {
		versions = append(versions, v)
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i] < versions[j] })
	for _, version := range versions {
		bits := h.SupportedProtocols[version].Bytes()
		if len(bits) > maxBitsetLen {
			return nil, fmt.Errorf("%w: bitset of %d bytes for version %d",
				ErrMalformedHandshakeMsg, len(bits), version)
		}
		buf.WriteByte(byte(version))
		n = binary.PutUvarint(scratch[:], uint64(len(bits)))
		buf.Write(scratch[:n])
		buf.Write(bits)
	}

	buf.WriteByte(byte(h.ChainID))
	buf.WriteByte(byte(h.NetworkID))
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes a message from its canonical form.
func (h *HandshakeMsg) UnmarshalBinary(data []byte) error {
	r := bytes.NewReader(data)

	count, err := binary.ReadUvarint(r)
	if err != nil {
		return fmt.Errorf("%w: reading entry count: %v", ErrMalformedHandshakeMsg, err)
	}
	if count > 256 {
		return fmt.Errorf("%w: %d version entries", ErrMalformedHandshakeMsg, count)
	}

	supported := make(map[MessagingProtocolVersion]ProtocolIDSet, count)
	prevVersion := -1
	for i := uint64(0); i < count; i++ {
		versionByte, err := r.ReadByte()
		if err != nil {
			return fmt.Errorf("%w: reading version ordinal: %v", ErrMalformedHandshakeMsg, err)
		}
		if int(versionByte) <= prevVersion {
			return fmt.Errorf("%w: version %d out of order", ErrMalformedHandshakeMsg, versionByte)
		}
		prevVersion = int(versionByte)

		bitsLen, err := binary.ReadUvarint(r)
		if err != nil {
			return fmt.Errorf("%w: reading bitset length: %v", ErrMalformedHandshakeMsg, err)
		}
		if bitsLen > maxBitsetLen {
			return fmt.Errorf("%w: bitset of %d bytes", ErrMalformedHandshakeMsg, bitsLen)
		}
		bits := make([]byte, bitsLen)
		if _, err := io.ReadFull(r, bits); err != nil {
			return fmt.Errorf("%w: reading bitset: %v", ErrMalformedHandshakeMsg, err)
		}
		supported[MessagingProtocolVersion(versionByte)] = protocolIDSetFromBytes(bits)
	}

	chainByte, err := r.ReadByte()
	if err != nil {
		return fmt.Errorf("%w: reading chain id: %v", ErrMalformedHandshakeMsg, err)
	}
	networkByte, err := r.ReadByte()
	if err != nil {
		return fmt.Errorf("%w: reading network id: %v", ErrMalformedHandshakeMsg, err)
	}
	if networkByte > uint8(NetworkVfn) {
		return fmt.Errorf("%w: unknown network ordinal %d", ErrMalformedHandshakeMsg, networkByte)
	}
	if r.Len() != 0 {
		return fmt.Errorf("%w: %d trailing bytes", ErrMalformedHandshakeMsg, r.Len())
	}

	h.SupportedProtocols = supported
	h.ChainID = ChainID(chainByte)
	h.NetworkID = NetworkID(networkByte)
	return nil
}
