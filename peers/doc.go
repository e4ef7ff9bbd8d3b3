// Package peers tracks the remote nodes a zapnet node knows about: their
// network addresses and static public keys. A PeerSet is the in-memory
// view; JSONPeerSet persists it as a JSON file in the data directory so a
// node comes back up with the same peers it went down with.
package peers
