package router

import (
	"github.com/sessiongw/sessiond/internal/gateway"
	"github.com/sessiongw/sessiond/internal/wire"
)

// SessionEntry is the Router's authoritative record for one live session.
// It is touched only by the Router's inbox consumer and its backend-event
// drain goroutine: the send half is used only by the inbox consumer, and
// the peers map is read and mutated only under the Router's mutex.
type SessionEntry struct {
	Cid      wire.Cid
	Origin   wire.ConnectionId
	Username string
	Send     gateway.Sender
	Peers    map[wire.PeerCid]*PeerEntry
}

// PeerEntry is the Router's authoritative record for one live peer
// sub-session within a SessionEntry. Same exclusivity rules as SessionEntry,
// scoped by (Cid, PeerCid).
type PeerEntry struct {
	Cid     wire.Cid
	PeerCid wire.PeerCid
	Origin  wire.ConnectionId
	Send    gateway.Sender
}

func newSessionEntry(cid wire.Cid, origin wire.ConnectionId, username string, send gateway.Sender) *SessionEntry {
	return &SessionEntry{
		Cid:      cid,
		Origin:   origin,
		Username: username,
		Send:     send,
		Peers:    make(map[wire.PeerCid]*PeerEntry),
	}
}
