package transport

import "fmt"

// ProtocolID identifies an application-level sub-protocol carried over the
// transport. Ordinal assignment is part of the wire contract: ordinals are
// append-only and must never be reordered or reused for a different
// meaning, or deployed nodes silently misinterpret each other's bitsets.
type ProtocolID uint8

const (
	ConsensusRpcBcs                  ProtocolID = 0
	ConsensusDirectSendBcs           ProtocolID = 1
	MempoolDirectSend                ProtocolID = 2
	StateSyncDirectSend              ProtocolID = 3
	DiscoveryDirectSend              ProtocolID = 4
	HealthCheckerRpc                 ProtocolID = 5
	ConsensusDirectSendJson          ProtocolID = 6
	ConsensusRpcJson                 ProtocolID = 7
	StorageServiceRpc                ProtocolID = 8
	MempoolRpc                       ProtocolID = 9
	PeerMonitoringServiceRpc         ProtocolID = 10
	ConsensusRpcCompressed           ProtocolID = 11
	ConsensusDirectSendCompressed    ProtocolID = 12
	NetbenchDirectSend               ProtocolID = 13
	NetbenchRpc                      ProtocolID = 14
	DKGDirectSendCompressed          ProtocolID = 15
	DKGDirectSendBcs                 ProtocolID = 16
	DKGDirectSendJson                ProtocolID = 17
	DKGRpcCompressed                 ProtocolID = 18
	DKGRpcBcs                        ProtocolID = 19
	DKGRpcJson                       ProtocolID = 20
	JWKConsensusDirectSendCompressed ProtocolID = 21
	JWKConsensusDirectSendBcs        ProtocolID = 22
	JWKConsensusDirectSendJson       ProtocolID = 23
	JWKConsensusRpcCompressed        ProtocolID = 24
	JWKConsensusRpcBcs               ProtocolID = 25
	JWKConsensusRpcJson              ProtocolID = 26
	ConsensusObserver                ProtocolID = 27
	ConsensusObserverRpc             ProtocolID = 28
)

// maxBitsetLen bounds a ProtocolIDSet's backing vector: 256 possible
// ordinals pack into 32 bytes.
const maxBitsetLen = 32

// ProtocolIDSet is a growable bitset over ProtocolID ordinals. The zero
// value is the empty set.
type ProtocolIDSet struct {
	bits []byte
}

// NewProtocolIDSet builds a set containing the given protocols.
func NewProtocolIDSet(ids ...ProtocolID) ProtocolIDSet {
	var s ProtocolIDSet
	for _, id := range ids {
		s.Insert(id)
	}
	return s
}

// Insert sets the bit for the given protocol, growing the backing vector
// lazily to fit.
func (s *ProtocolIDSet) Insert(id ProtocolID) {
	byteIdx := int(id) / 8
	if byteIdx >= len(s.bits) {
		grown := make([]byte, byteIdx+1)
		copy(grown, s.bits)
		s.bits = grown
	}
	s.bits[byteIdx] |= 1 << (int(id) % 8)
}

// Contains reports whether the set holds the given protocol.
func (s ProtocolIDSet) Contains(id ProtocolID) bool {
	byteIdx := int(id) / 8
	if byteIdx >= len(s.bits) {
		return false
	}
	return s.bits[byteIdx]&(1<<(int(id)%8)) != 0
}

// Intersect returns the bytewise AND of the two sets. The shorter vector's
// length bounds the result; the longer one's tail is implicitly zero.
func (s ProtocolIDSet) Intersect(other ProtocolIDSet) ProtocolIDSet {
	n := len(s.bits)
	if len(other.bits) < n {
		n = len(other.bits)
	}
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = s.bits[i] & other.bits[i]
	}
	return ProtocolIDSet{bits: out}
}

// IsEmpty reports whether no bit is set.
func (s ProtocolIDSet) IsEmpty() bool {
	for _, b := range s.bits {
		if b != 0 {
			return false
		}
	}
	return true
}

// Bytes returns a copy of the backing bit vector, the set's canonical wire
// representation.
func (s ProtocolIDSet) Bytes() []byte {
	return append([]byte(nil), s.bits...)
}

// protocolIDSetFromBytes adopts a decoded bit vector.
func protocolIDSetFromBytes(bits []byte) ProtocolIDSet {
	return ProtocolIDSet{bits: append([]byte(nil), bits...)}
}

// Protocols enumerates the set's members in ordinal order.
func (s ProtocolIDSet) Protocols() []ProtocolID {
	var out []ProtocolID
	for i := 0; i < len(s.bits)*8; i++ {
		if s.Contains(ProtocolID(i)) {
			out = append(out, ProtocolID(i))
		}
	}
	return out
}

// String renders the set for log output.
func (s ProtocolIDSet) String() string {
	return fmt.Sprintf("ProtocolIDSet%v", s.Protocols())
}
