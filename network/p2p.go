package network

import "time"

// P2P adapts Peer to the NetworkLayer interface expected by consumers such
// as txengine.TransactionNode.
type P2P struct {
	peer *Peer
}

// NewP2P wraps an existing Peer.
func NewP2P(peer *Peer) *P2P {
	return &P2P{peer: peer}
}

// Broadcast sends data from the peer at rank root to all peers.
func (p *P2P) Broadcast(data []byte, root int) ([]byte, error) {
	return p.peer.Broadcast(data, root)
}

// BroadcastwithTimeout performs Broadcast with a deadline.
func (p *P2P) BroadcastwithTimeout(data []byte, rank int, timeout time.Duration) ([]byte, error) {
	return p.peer.BroadcastwithTimeout(data, rank, timeout)
}

// AllToAll exchanges data between every pair of peers.
func (p *P2P) AllToAll(data []byte) ([][]byte, error) {
	return p.peer.AllToAll(data)
}

// AllToAllwithTimeout performs AllToAll with a deadline.
func (p *P2P) AllToAllwithTimeout(data []byte, timeout time.Duration) ([][]byte, error) {
	return p.peer.AllToAllwithTimeout(data, timeout)
}

// GetRank returns this node's rank.
func (p *P2P) GetRank() int {
	return p.peer.Rank
}

// GetPeerCount returns the number of peers.
func (p *P2P) GetPeerCount() int {
	return len(p.peer.Addresses)
}

// GetAddresses returns the rank-to-address map.
func (p *P2P) GetAddresses() map[int]string {
	return p.peer.Addresses
}

// Close shuts down the underlying peer.
func (p *P2P) Close() error {
	return p.peer.Close()
}
