// Package router implements the session-multiplexing kernel: the Router
// actor, the UIConnection that bridges one local socket to it, and the
// SessionReader pump that bridges inbound secure-session traffic back to
// a UIConnection's outbound queue.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/sessiongw/sessiond/internal/gateway"
	sessionmetrics "github.com/sessiongw/sessiond/internal/metrics"
	"github.com/sessiongw/sessiond/internal/wire"
)

// routedRequest pairs a decoded Request with the ConnectionId the
// UIConnection reader stamped it with on arrival.
type routedRequest struct {
	req    *wire.Request
	origin wire.ConnectionId
}

// Router is the single logical actor that owns the RoutingTable
// (ConnectionId -> outbound sender) and the session tables (cid ->
// SessionEntry). It consumes one (Request, origin) pair at a time from
// inbox and drives the NetworkBackend. Session-table mutation happens on
// this goroutine or briefly, under mu, from the backend-event-drain
// goroutine; the RoutingTable is also written, under mu, by
// RegisterConnection and UnregisterConnection.
type Router struct {
	inbox chan routedRequest

	mu       sync.Mutex
	routes   map[wire.ConnectionId]chan *wire.Response
	sessions map[wire.Cid]*SessionEntry

	backend    gateway.NetworkBackend
	logger     *slog.Logger
	metrics    *sessionmetrics.Collector
	queueDepth int

	nextTicket atomic.Uint64
}

// New creates a Router. queueDepth bounds both the inbox and every
// per-connection outbound queue created by RegisterConnection.
func New(backend gateway.NetworkBackend, logger *slog.Logger, metrics *sessionmetrics.Collector, queueDepth int) *Router {
	if queueDepth <= 0 {
		queueDepth = 256
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Router{
		inbox:      make(chan routedRequest, queueDepth),
		routes:     make(map[wire.ConnectionId]chan *wire.Response),
		sessions:   make(map[wire.Cid]*SessionEntry),
		backend:    backend,
		logger:     logger,
		metrics:    metrics,
		queueDepth: queueDepth,
	}
}

// RegisterConnection allocates a bounded outbound queue for id and stores
// it in the RoutingTable. The caller (UIConnection.Serve) owns draining
// the returned channel to the socket.
func (r *Router) RegisterConnection(id wire.ConnectionId) chan *wire.Response {
	out := make(chan *wire.Response, r.queueDepth)

	r.mu.Lock()
	r.routes[id] = out
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.ConnectionOpened()
	}
	return out
}

// UnregisterConnection removes id from the RoutingTable. Called once a
// UIConnection's reader or writer task exits. It does not close the
// outbound channel: the writer goroutine that owns draining it is the
// only safe closer, and by the time UnregisterConnection runs that
// goroutine is already exiting on its own.
func (r *Router) UnregisterConnection(id wire.ConnectionId) {
	r.mu.Lock()
	_, ok := r.routes[id]
	delete(r.routes, id)
	r.mu.Unlock()

	if ok && r.metrics != nil {
		r.metrics.ConnectionClosed()
	}
}

// Submit enqueues a Request for processing, stamped with its origin
// ConnectionId. It blocks until the inbox accepts it or ctx is done.
func (r *Router) Submit(ctx context.Context, origin wire.ConnectionId, req *wire.Request) error {
	select {
	case r.inbox <- routedRequest{req: req, origin: origin}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drives the Router's two standing tasks -- the inbox consumer and
// the backend-event drain -- until ctx is cancelled. Cancellation is the
// expected way to stop the Router, so Run returns nil rather than
// ctx.Err(); callers that need to distinguish cancel causes should
// inspect ctx themselves.
func (r *Router) Run(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.drainBackendEvents(ctx)
	}()

	r.consumeInbox(ctx)
	<-done
	return nil
}

func (r *Router) consumeInbox(ctx context.Context) {
	for {
		select {
		case rr := <-r.inbox:
			r.handle(ctx, rr)
		case <-ctx.Done():
			return
		}
	}
}

// handle processes exactly one Request. It is never called concurrently
// with itself: consumeInbox is the sole caller, on a single goroutine.
func (r *Router) handle(ctx context.Context, rr routedRequest) {
	reply, ok := r.replySender(rr.origin)
	if !ok {
		r.logger.Warn("dropping request: origin connection gone", "tag", rr.req.Tag)
		return
	}

	tag := requestTagName(rr.req.Tag)
	if r.metrics != nil {
		r.metrics.IncRequest(tag)
	}

	resp := r.dispatch(ctx, rr.origin, rr.req)
	r.deliver(reply, resp)

	if r.metrics != nil {
		r.metrics.IncResponse(tag, responseOutcome(resp))
	}
}

func (r *Router) dispatch(ctx context.Context, origin wire.ConnectionId, req *wire.Request) *wire.Response {
	switch req.Tag {
	case wire.RequestTagRegister:
		return r.handleRegister(ctx, req.Register)
	case wire.RequestTagConnect:
		return r.handleConnect(ctx, origin, req.Connect)
	case wire.RequestTagMessage:
		return r.handleMessage(ctx, req.Message)
	case wire.RequestTagDisconnect:
		return r.handleDisconnect(ctx, req.Disconnect)
	case wire.RequestTagPeerRegister:
		return r.handlePeerRegister(ctx, req.PeerRegister)
	case wire.RequestTagPeerConnect:
		return r.handlePeerConnect(ctx, origin, req.PeerConnect)
	case wire.RequestTagPeerDisconnect:
		return r.handlePeerDisconnect(ctx, req.PeerDisconnect)
	case wire.RequestTagSendFileStandard:
		return r.handleSendFile(ctx, req.SendFile)
	case wire.RequestTagStartGroup:
		return r.handleStartGroup(ctx, req.StartGroup)
	case wire.RequestTagDownloadFile:
		return r.handleDownloadFile(ctx, req.DownloadFile)
	default:
		return nil
	}
}

func (r *Router) handleRegister(ctx context.Context, req *wire.RegisterRequest) *wire.Response {
	cid, err := r.backend.Register(ctx, req)
	if err != nil {
		return &wire.Response{
			Tag:             wire.ResponseTagRegisterFailure,
			RegisterFailure: &wire.RegisterFailure{Message: err.Error()},
		}
	}
	return &wire.Response{
		Tag:             wire.ResponseTagRegisterSuccess,
		RegisterSuccess: &wire.RegisterSuccess{Cid: cid},
	}
}

func (r *Router) handleConnect(ctx context.Context, origin wire.ConnectionId, req *wire.ConnectRequest) *wire.Response {
	sess, err := r.backend.Connect(ctx, req)
	if err != nil {
		return &wire.Response{
			Tag:               wire.ResponseTagConnectionFailure,
			ConnectionFailure: &wire.ConnectionFailure{Message: err.Error()},
		}
	}

	entry := newSessionEntry(sess.Cid, origin, req.Username, sess.Send)

	r.mu.Lock()
	r.sessions[sess.Cid] = entry
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.SessionOpened()
	}

	go r.runSessionReader(sess.Cid, 0, origin, sess.Inbound)

	return &wire.Response{
		Tag:            wire.ResponseTagConnectSuccess,
		ConnectSuccess: &wire.ConnectSuccess{Cid: sess.Cid},
	}
}

func (r *Router) handleMessage(ctx context.Context, req *wire.MessageRequest) *wire.Response {
	send, ok := r.senderFor(req.Cid, req.PeerCid)
	if !ok {
		return &wire.Response{
			Tag: wire.ResponseTagMessageSendError,
			MessageSendError: &wire.MessageSendError{
				Cid:     req.Cid,
				PeerCid: req.PeerCid,
				Message: "session not found",
			},
		}
	}

	if err := send.Send(ctx, req.Message, req.SecurityLevel); err != nil {
		return &wire.Response{
			Tag: wire.ResponseTagMessageSendError,
			MessageSendError: &wire.MessageSendError{
				Cid:     req.Cid,
				PeerCid: req.PeerCid,
				Message: err.Error(),
			},
		}
	}

	if r.metrics != nil {
		r.metrics.IncMessageToSession()
	}

	return &wire.Response{
		Tag:         wire.ResponseTagMessageSent,
		MessageSent: &wire.MessageSent{Cid: req.Cid, PeerCid: req.PeerCid},
	}
}

func (r *Router) handleDisconnect(ctx context.Context, req *wire.DisconnectRequest) *wire.Response {
	if err := r.backend.Disconnect(ctx, req.Cid); err != nil {
		return &wire.Response{
			Tag:               wire.ResponseTagDisconnectFailure,
			DisconnectFailure: &wire.DisconnectFailure{Cid: req.Cid, Message: err.Error()},
		}
	}

	r.removeSession(req.Cid)

	return &wire.Response{
		Tag:               wire.ResponseTagDisconnectSuccess,
		DisconnectSuccess: &wire.DisconnectSuccess{Cid: req.Cid},
	}
}

func (r *Router) handlePeerRegister(ctx context.Context, req *wire.PeerRegisterRequest) *wire.Response {
	r.mu.Lock()
	entry, ok := r.sessions[req.Cid]
	r.mu.Unlock()
	if !ok {
		return &wire.Response{
			Tag: wire.ResponseTagPeerRegisterFailure,
			PeerRegisterFailure: &wire.PeerRegisterFailure{
				Cid: req.Cid, PeerCid: req.PeerCid, Message: "session not found",
			},
		}
	}

	peerCid, err := r.backend.PeerRegister(ctx, req.Cid, req.PeerUsername, req.ConnectAfterRegister)
	if err != nil {
		return &wire.Response{
			Tag: wire.ResponseTagPeerRegisterFailure,
			PeerRegisterFailure: &wire.PeerRegisterFailure{
				Cid: req.Cid, PeerCid: req.PeerCid, Message: err.Error(),
			},
		}
	}
	return &wire.Response{
		Tag: wire.ResponseTagPeerRegisterSuccess,
		PeerRegisterSuccess: &wire.PeerRegisterSuccess{
			Cid: req.Cid, PeerCid: peerCid, Username: entry.Username,
		},
	}
}

func (r *Router) handlePeerConnect(ctx context.Context, origin wire.ConnectionId, req *wire.PeerConnectRequest) *wire.Response {
	r.mu.Lock()
	entry, ok := r.sessions[req.Cid]
	r.mu.Unlock()
	if !ok {
		return &wire.Response{
			Tag: wire.ResponseTagPeerConnectFailure,
			PeerConnectFailure: &wire.PeerConnectFailure{
				Cid: req.Cid, PeerCid: req.PeerCid, Message: "session not found",
			},
		}
	}

	peerSess, err := r.backend.PeerConnect(ctx, req.Cid, req.PeerCid, req)
	if err != nil {
		return &wire.Response{
			Tag: wire.ResponseTagPeerConnectFailure,
			PeerConnectFailure: &wire.PeerConnectFailure{
				Cid: req.Cid, PeerCid: req.PeerCid, Message: err.Error(),
			},
		}
	}

	peerEntry := &PeerEntry{
		Cid:     req.Cid,
		PeerCid: peerSess.PeerCid,
		Origin:  entry.Origin,
		Send:    peerSess.Send,
	}

	r.mu.Lock()
	entry.Peers[peerSess.PeerCid] = peerEntry
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.PeerSessionOpened()
	}

	go r.runSessionReader(req.Cid, peerSess.PeerCid, origin, peerSess.Inbound)

	return &wire.Response{
		Tag:                wire.ResponseTagPeerConnectSuccess,
		PeerConnectSuccess: &wire.PeerConnectSuccess{Cid: req.Cid, PeerCid: peerSess.PeerCid},
	}
}

// handlePeerDisconnect indexes SessionEntry.Peers by peer_cid (not cid),
// fixing the indexing bug the upstream source exhibits, and always
// answers PeerDisconnectFailure on a cid or peer_cid miss rather than
// silently doing nothing.
func (r *Router) handlePeerDisconnect(ctx context.Context, req *wire.PeerDisconnectRequest) *wire.Response {
	r.mu.Lock()
	entry, ok := r.sessions[req.Cid]
	r.mu.Unlock()
	if !ok {
		return &wire.Response{
			Tag: wire.ResponseTagPeerDisconnectFailure,
			PeerDisconnectFailure: &wire.PeerDisconnectFailure{
				Cid: req.Cid, PeerCid: req.PeerCid, Message: "Server connection not found",
			},
		}
	}

	r.mu.Lock()
	_, known := entry.Peers[req.PeerCid]
	r.mu.Unlock()
	if !known {
		return &wire.Response{
			Tag: wire.ResponseTagPeerDisconnectFailure,
			PeerDisconnectFailure: &wire.PeerDisconnectFailure{
				Cid: req.Cid, PeerCid: req.PeerCid, Message: "peer connection not found",
			},
		}
	}

	if err := r.backend.PeerDisconnect(ctx, req.Cid, req.PeerCid); err != nil {
		return &wire.Response{
			Tag: wire.ResponseTagPeerDisconnectFailure,
			PeerDisconnectFailure: &wire.PeerDisconnectFailure{
				Cid: req.Cid, PeerCid: req.PeerCid, Message: err.Error(),
			},
		}
	}

	r.removePeer(req.Cid, req.PeerCid)

	return &wire.Response{
		Tag: wire.ResponseTagPeerDisconnectSuccess,
		PeerDisconnectSuccess: &wire.PeerDisconnectSuccess{
			Cid: req.Cid, PeerCid: req.PeerCid, Ticket: r.newTicket(),
		},
	}
}

func (r *Router) handleSendFile(ctx context.Context, req *wire.SendFileStandardRequest) *wire.Response {
	if err := r.backend.SendFile(ctx, req.Cid, req.PeerCid, req); err != nil {
		return &wire.Response{
			Tag:             wire.ResponseTagSendFileFailure,
			SendFileFailure: &wire.SendFileFailure{Cid: req.Cid, Message: err.Error()},
		}
	}
	return &wire.Response{
		Tag:             wire.ResponseTagSendFileSuccess,
		SendFileSuccess: &wire.SendFileSuccess{Cid: req.Cid},
	}
}

func (r *Router) handleStartGroup(ctx context.Context, req *wire.StartGroupRequest) *wire.Response {
	if err := r.backend.StartGroup(ctx, req.Cid, req.InitialInvitees); err != nil {
		return &wire.Response{
			Tag:                wire.ResponseTagGroupCreateFailure,
			GroupCreateFailure: &wire.GroupCreateFailure{Cid: req.Cid, Message: err.Error()},
		}
	}
	return &wire.Response{
		Tag:          wire.ResponseTagGroupCreated,
		GroupCreated: &wire.GroupCreated{Cid: req.Cid},
	}
}

// handleDownloadFile always answers DownloadFileFailure: no backend in
// this repository implements file retrieval. See gateway.ErrDownloadUnsupported.
func (r *Router) handleDownloadFile(ctx context.Context, req *wire.DownloadFileRequest) *wire.Response {
	err := r.backend.DownloadFile(ctx, req.Cid, req)
	message := "download not supported by this backend"
	if err != nil {
		message = err.Error()
	}
	return &wire.Response{
		Tag:                 wire.ResponseTagDownloadFileFailure,
		DownloadFileFailure: &wire.DownloadFileFailure{Cid: req.Cid, Message: message},
	}
}

// senderFor resolves the Sender for a Message: a PeerEntry's send half
// when peerCid is non-zero, otherwise the SessionEntry's.
func (r *Router) senderFor(cid wire.Cid, peerCid wire.PeerCid) (gateway.Sender, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.sessions[cid]
	if !ok {
		return nil, false
	}
	if peerCid == 0 {
		return entry.Send, true
	}
	peer, ok := entry.Peers[peerCid]
	if !ok {
		return nil, false
	}
	return peer.Send, true
}

func (r *Router) removeSession(cid wire.Cid) {
	r.mu.Lock()
	_, ok := r.sessions[cid]
	delete(r.sessions, cid)
	r.mu.Unlock()

	if ok && r.metrics != nil {
		r.metrics.SessionClosed()
	}
}

func (r *Router) removePeer(cid wire.Cid, peerCid wire.PeerCid) {
	r.mu.Lock()
	entry, ok := r.sessions[cid]
	var removed bool
	if ok {
		if _, present := entry.Peers[peerCid]; present {
			delete(entry.Peers, peerCid)
			removed = true
		}
	}
	r.mu.Unlock()

	if removed && r.metrics != nil {
		r.metrics.PeerSessionClosed()
	}
}

// newTicket mints the next ticket value for a solicited peer-disconnect
// acknowledgment. Tickets are scoped to this Router instance and carry no
// meaning beyond correlating the reply with the disconnect that produced it.
func (r *Router) newTicket() wire.Ticket {
	return wire.Ticket(r.nextTicket.Add(1))
}

// replySender resolves the outbound channel registered for origin.
func (r *Router) replySender(origin wire.ConnectionId) (chan *wire.Response, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out, ok := r.routes[origin]
	return out, ok
}

// deliver enqueues resp on reply. The Router has exactly one
// inbox-consumer goroutine, so a full queue here blocks all further
// Request processing until the UIConnection's writer drains it -- the
// intended backpressure trade-off.
func (r *Router) deliver(reply chan *wire.Response, resp *wire.Response) {
	if resp == nil {
		return
	}
	reply <- resp
}

// deliverTo looks up origin fresh (used by the backend-event path and by
// SessionReader, where the registration may have changed or vanished
// since the session was created) and delivers resp if still registered.
// Unlike deliver, a missing route is not an error: it returns false, which
// SessionReader logs and the backend-event path ignores. A full queue
// blocks here just as it does in deliver.
func (r *Router) deliverTo(origin wire.ConnectionId, resp *wire.Response) bool {
	reply, ok := r.replySender(origin)
	if !ok {
		return false
	}
	reply <- resp
	return true
}

func requestTagName(tag wire.RequestTag) string {
	switch tag {
	case wire.RequestTagConnect:
		return "Connect"
	case wire.RequestTagRegister:
		return "Register"
	case wire.RequestTagMessage:
		return "Message"
	case wire.RequestTagDisconnect:
		return "Disconnect"
	case wire.RequestTagSendFileStandard:
		return "SendFile"
	case wire.RequestTagDownloadFile:
		return "DownloadFile"
	case wire.RequestTagStartGroup:
		return "StartGroup"
	case wire.RequestTagPeerConnect:
		return "PeerConnect"
	case wire.RequestTagPeerDisconnect:
		return "PeerDisconnect"
	case wire.RequestTagPeerRegister:
		return "PeerRegister"
	default:
		return fmt.Sprintf("Unknown(%d)", tag)
	}
}

func responseOutcome(resp *wire.Response) string {
	if resp == nil {
		return sessionmetrics.OutcomeFailure
	}
	switch resp.Tag {
	case wire.ResponseTagConnectionFailure,
		wire.ResponseTagRegisterFailure,
		wire.ResponseTagMessageSendError,
		wire.ResponseTagDisconnectFailure,
		wire.ResponseTagSendFileFailure,
		wire.ResponseTagDownloadFileFailure,
		wire.ResponseTagGroupCreateFailure,
		wire.ResponseTagPeerConnectFailure,
		wire.ResponseTagPeerDisconnectFailure,
		wire.ResponseTagPeerRegisterFailure:
		return sessionmetrics.OutcomeFailure
	default:
		return sessionmetrics.OutcomeSuccess
	}
}
