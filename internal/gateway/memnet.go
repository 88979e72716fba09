package gateway

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sessiongw/sessiond/internal/wire"
)

// Backend is an in-memory NetworkBackend used by tests and by the
// daemon, which always runs with it. It is a stand-in for the
// real cryptographic session library: Connect/Register mint cids from a
// username directory, and PeerConnect wires two registered sessions'
// inbound channels together so traffic sent on one side is observed as
// MessageReceived on the other, without any transport or cryptography.
type Backend struct {
	mu          sync.Mutex
	nextCid     uint64
	nextPeerCid uint64
	accounts    map[string]wire.Cid
	sessions    map[wire.Cid]*memSession

	events chan BackendEvent
}

type memSession struct {
	cid      wire.Cid
	username string
	inbound  chan []byte
	peers    map[wire.PeerCid]*memPeerLink
}

type memPeerLink struct {
	peerCid   wire.PeerCid
	remoteCid wire.Cid // 0 if the peer never registered a session of its own
	inbound   chan []byte
}

// NewBackend returns a ready-to-use in-memory backend. eventBuf sizes the
// BackendEvent channel; pass 0 for a sensible default.
func NewBackend(eventBuf int) *Backend {
	if eventBuf <= 0 {
		eventBuf = 64
	}
	return &Backend{
		accounts: make(map[string]wire.Cid),
		sessions: make(map[wire.Cid]*memSession),
		events:   make(chan BackendEvent, eventBuf),
	}
}

func (b *Backend) Events() <-chan BackendEvent { return b.events }

func (b *Backend) Register(_ context.Context, req *wire.RegisterRequest) (wire.Cid, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if cid, ok := b.accounts[req.Username]; ok {
		return cid, nil
	}

	b.nextCid++
	cid := b.nextCid
	b.accounts[req.Username] = cid
	return cid, nil
}

func (b *Backend) Connect(_ context.Context, req *wire.ConnectRequest) (*Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	cid, ok := b.accounts[req.Username]
	if !ok {
		b.nextCid++
		cid = b.nextCid
		b.accounts[req.Username] = cid
	}

	sess := &memSession{
		cid:      cid,
		username: req.Username,
		inbound:  make(chan []byte, 64),
		peers:    make(map[wire.PeerCid]*memPeerLink),
	}
	b.sessions[cid] = sess

	return &Session{
		Cid:     cid,
		Send:    &memSender{backend: b, cid: cid},
		Inbound: sess.inbound,
	}, nil
}

func (b *Backend) Disconnect(_ context.Context, cid wire.Cid) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	sess, ok := b.sessions[cid]
	if !ok {
		return fmt.Errorf("disconnect cid %d: %w", cid, ErrUnknownCid)
	}

	for _, link := range sess.peers {
		if link.inbound != nil {
			close(link.inbound)
		}
	}
	close(sess.inbound)
	delete(b.sessions, cid)

	return nil
}

func (b *Backend) PeerRegister(_ context.Context, cid wire.Cid, peerUsername string, _ bool) (wire.PeerCid, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sess, ok := b.sessions[cid]
	if !ok {
		return 0, fmt.Errorf("peer register cid %d: %w", cid, ErrUnknownCid)
	}

	b.nextPeerCid++
	peerCid := b.nextPeerCid

	sess.peers[peerCid] = &memPeerLink{
		peerCid:   peerCid,
		remoteCid: b.accounts[peerUsername], // 0 if that username never registered
	}

	return peerCid, nil
}

func (b *Backend) PeerConnect(_ context.Context, cid wire.Cid, peerCid wire.PeerCid, _ *wire.PeerConnectRequest) (*PeerSession, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sess, ok := b.sessions[cid]
	if !ok {
		return nil, fmt.Errorf("peer connect cid %d: %w", cid, ErrUnknownCid)
	}

	link, ok := sess.peers[peerCid]
	if !ok {
		return nil, fmt.Errorf("peer connect (cid %d, peer_cid %d): %w", cid, peerCid, ErrUnknownPeerCid)
	}

	link.inbound = make(chan []byte, 64)

	return &PeerSession{
		PeerCid: peerCid,
		Send:    &memSender{backend: b, cid: cid, peerCid: peerCid},
		Inbound: link.inbound,
	}, nil
}

func (b *Backend) PeerDisconnect(_ context.Context, cid wire.Cid, peerCid wire.PeerCid) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	sess, ok := b.sessions[cid]
	if !ok {
		return fmt.Errorf("peer disconnect cid %d: %w", cid, ErrUnknownCid)
	}

	link, ok := sess.peers[peerCid]
	if !ok {
		return fmt.Errorf("peer disconnect (cid %d, peer_cid %d): %w", cid, peerCid, ErrUnknownPeerCid)
	}

	if link.inbound != nil {
		close(link.inbound)
	}
	delete(sess.peers, peerCid)

	return nil
}

func (b *Backend) SendFile(_ context.Context, cid wire.Cid, _ wire.PeerCid, _ *wire.SendFileStandardRequest) error {
	b.mu.Lock()
	_, ok := b.sessions[cid]
	b.mu.Unlock()

	if !ok {
		return fmt.Errorf("send file cid %d: %w", cid, ErrUnknownCid)
	}
	return nil
}

func (b *Backend) DownloadFile(_ context.Context, _ wire.Cid, _ *wire.DownloadFileRequest) error {
	return ErrDownloadUnsupported
}

func (b *Backend) StartGroup(_ context.Context, cid wire.Cid, _ []wire.PeerCid) error {
	b.mu.Lock()
	_, ok := b.sessions[cid]
	b.mu.Unlock()

	if !ok {
		return fmt.Errorf("start group cid %d: %w", cid, ErrUnknownCid)
	}
	return nil
}

// SimulateSessionClosed raises a BackendEventSessionClosed for cid, as if
// the remote peer or transport had torn the session down without an
// explicit Disconnect. Exercised by router and gateway tests.
func (b *Backend) SimulateSessionClosed(cid wire.Cid) {
	b.events <- BackendEvent{Kind: BackendEventSessionClosed, Cid: cid}
}

// SimulatePeerClosed raises a BackendEventPeerClosed for (cid, peerCid).
func (b *Backend) SimulatePeerClosed(cid wire.Cid, peerCid wire.PeerCid) {
	b.events <- BackendEvent{Kind: BackendEventPeerClosed, Cid: cid, PeerCid: peerCid}
}

// memSender is the Sender half returned for both session-level (peerCid
// == 0) and peer-level sends. Sending delivers the payload to the
// linked remote session's inbound channel when one is wired up;
// otherwise it loops the payload back onto the sender's own inbound
// channel, which keeps the reference backend usable for single-process
// round-trip tests without a second registered party.
type memSender struct {
	backend *Backend
	cid     wire.Cid
	peerCid wire.PeerCid
	closed  atomic.Bool
}

func (s *memSender) Send(ctx context.Context, payload []byte, _ wire.SecurityLevel) error {
	if s.closed.Load() {
		return fmt.Errorf("send on closed sender (cid %d): %w", s.cid, ErrUnknownCid)
	}

	s.backend.mu.Lock()
	sess, ok := s.backend.sessions[s.cid]
	if !ok {
		s.backend.mu.Unlock()
		return fmt.Errorf("send cid %d: %w", s.cid, ErrUnknownCid)
	}

	var dest chan []byte
	if s.peerCid == 0 {
		dest = sess.inbound
	} else {
		link, ok := sess.peers[s.peerCid]
		if !ok {
			s.backend.mu.Unlock()
			return fmt.Errorf("send (cid %d, peer_cid %d): %w", s.cid, s.peerCid, ErrUnknownPeerCid)
		}
		if link.remoteCid != 0 {
			if remoteSess, ok := s.backend.sessions[link.remoteCid]; ok {
				dest = remoteSess.inbound
			}
		}
		if dest == nil {
			dest = link.inbound
		}
	}
	s.backend.mu.Unlock()

	select {
	case dest <- payload:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *memSender) Close() error {
	s.closed.Store(true)
	return nil
}
