// Package gateway defines the seam between the router and the secure
// session network: the NetworkBackend capability set, and an in-memory
// reference implementation used by tests and by the daemon, which has no
// other backend.
package gateway

import (
	"context"
	"errors"

	"github.com/sessiongw/sessiond/internal/wire"
)

// ErrUnknownCid is returned by backend operations addressed to a cid this
// backend never issued (or has since torn down).
var ErrUnknownCid = errors.New("gateway: unknown cid")

// ErrUnknownPeerCid is returned by backend operations addressed to a
// (cid, peer_cid) pair this backend never issued.
var ErrUnknownPeerCid = errors.New("gateway: unknown peer cid")

// ErrDownloadUnsupported is returned by every DownloadFile call: no backend
// in this repository implements file retrieval. The upstream source left
// this request's handler body commented out; this implementation instead
// answers it definitively rather than leaving it a silent no-op.
var ErrDownloadUnsupported = errors.New("gateway: download not supported by this backend")

// Sender is the exclusive send half of a session or peer sub-session
// channel. It is owned by exactly one SessionEntry/PeerEntry at a time;
// callers must not share it across goroutines.
type Sender interface {
	// Send transmits one application message over the secure channel.
	Send(ctx context.Context, payload []byte, level wire.SecurityLevel) error
	// Close tears down the send half. Safe to call once, from the owner.
	Close() error
}

// Session is returned by Connect: the issued Cid, the exclusive send half,
// and the inbound stream half the caller must hand to a SessionReader.
type Session struct {
	Cid     wire.Cid
	Send    Sender
	Inbound <-chan []byte
}

// PeerSession is returned by PeerConnect: analogous to Session but scoped
// to a (Cid, PeerCid) pair.
type PeerSession struct {
	PeerCid wire.PeerCid
	Send    Sender
	Inbound <-chan []byte
}

// BackendEventKind distinguishes the two unsolicited teardown notifications
// a NetworkBackend can raise.
type BackendEventKind uint8

const (
	// BackendEventSessionClosed reports that the session identified by Cid
	// closed out from under the router (peer vanished, transport error,
	// backend-initiated teardown) without an explicit Disconnect request.
	BackendEventSessionClosed BackendEventKind = iota + 1
	// BackendEventPeerClosed reports that one peer sub-session within a
	// still-live Cid closed without an explicit PeerDisconnect request.
	BackendEventPeerClosed
)

// BackendEvent is the unsolicited half of the NetworkBackend capability
// set: the analogue of the upstream source's on_node_event_received hook,
// which this implementation wires up instead of leaving it a no-op.
type BackendEvent struct {
	Kind    BackendEventKind
	Cid     wire.Cid
	PeerCid wire.PeerCid // populated only for BackendEventPeerClosed
}

// NetworkBackend is the external capability surface consumed by the
// router. It prescribes only these operations; the backend's internal
// session model, transport, and cryptography are out of scope.
type NetworkBackend interface {
	// Register provisions (or re-provisions) an account against serverAddr
	// and returns the cid that would be used to Connect against it.
	Register(ctx context.Context, req *wire.RegisterRequest) (wire.Cid, error)

	// Connect authenticates and opens a session, returning the issued cid
	// and the split send/inbound channel halves.
	Connect(ctx context.Context, req *wire.ConnectRequest) (*Session, error)

	// Disconnect tears down a live session. Idempotent from the backend's
	// perspective is not guaranteed; callers must not call it twice for
	// the same cid.
	Disconnect(ctx context.Context, cid wire.Cid) error

	// PeerRegister proposes cid's owner as a mutual contact of peerUsername
	// and returns the peer_cid that identifies that relationship.
	PeerRegister(ctx context.Context, cid wire.Cid, peerUsername string, connectAfterRegister bool) (wire.PeerCid, error)

	// PeerConnect opens a peer-to-peer sub-session within cid, returning
	// the split send/inbound channel halves for that sub-session.
	PeerConnect(ctx context.Context, cid wire.Cid, peerCid wire.PeerCid, req *wire.PeerConnectRequest) (*PeerSession, error)

	// PeerDisconnect tears down one peer sub-session within cid.
	PeerDisconnect(ctx context.Context, cid wire.Cid, peerCid wire.PeerCid) error

	// SendFile transmits a file to peerCid (or to cid's server half when
	// peerCid is zero) using the given transfer parameters.
	SendFile(ctx context.Context, cid wire.Cid, peerCid wire.PeerCid, req *wire.SendFileStandardRequest) error

	// DownloadFile always fails with ErrDownloadUnsupported in this
	// repository -- see that error's doc comment.
	DownloadFile(ctx context.Context, cid wire.Cid, req *wire.DownloadFileRequest) error

	// StartGroup creates a multi-party group rooted at cid, inviting the
	// given peers.
	StartGroup(ctx context.Context, cid wire.Cid, invitees []wire.PeerCid) error

	// Events returns the channel of unsolicited session/peer teardown
	// notifications. The channel is closed when the backend shuts down.
	Events() <-chan BackendEvent
}
