package router

import (
	"context"

	"github.com/sessiongw/sessiond/internal/gateway"
	"github.com/sessiongw/sessiond/internal/wire"
)

// runSessionReader is the pump task spawned per session (peerCid == 0)
// and per peer sub-session (peerCid != 0): it forwards every inbound
// secure-session message to the origin UIConnection as a MessageReceived
// response. If the UIConnection has since been unregistered, the message
// is logged and dropped -- the session itself stays valid, it simply has
// no subscriber. The loop exits when inbound closes.
func (r *Router) runSessionReader(cid wire.Cid, peerCid wire.PeerCid, origin wire.ConnectionId, inbound <-chan []byte) {
	for msg := range inbound {
		resp := &wire.Response{
			Tag: wire.ResponseTagMessageReceived,
			MessageReceived: &wire.MessageReceived{
				Cid:     cid,
				PeerCid: peerCid,
				Message: msg,
			},
		}

		if r.deliverTo(origin, resp) {
			if r.metrics != nil {
				r.metrics.IncMessageToUI()
			}
		} else {
			r.logger.Info("dropping MessageReceived: origin connection gone",
				"cid", cid, "peer_cid", peerCid)
		}
	}
}

// drainBackendEvents is the Router's analogue of the upstream
// on_node_event_received hook: it removes the affected SessionEntry or
// PeerEntry and, if the owning UIConnection is still registered,
// delivers an unsolicited Disconnected response. Runs until ctx is
// cancelled or the backend's event channel closes.
func (r *Router) drainBackendEvents(ctx context.Context) {
	events := r.backend.Events()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			r.applyBackendEvent(ev)
		case <-ctx.Done():
			return
		}
	}
}

func (r *Router) applyBackendEvent(ev gateway.BackendEvent) {
	switch ev.Kind {
	case gateway.BackendEventSessionClosed:
		r.mu.Lock()
		entry, ok := r.sessions[ev.Cid]
		r.mu.Unlock()
		if !ok {
			return // already removed: idempotent
		}

		r.removeSession(ev.Cid)

		r.deliverTo(entry.Origin, &wire.Response{
			Tag:          wire.ResponseTagDisconnected,
			Disconnected: &wire.Disconnected{Cid: ev.Cid},
		})

	case gateway.BackendEventPeerClosed:
		r.mu.Lock()
		entry, ok := r.sessions[ev.Cid]
		var origin wire.ConnectionId
		var peerKnown bool
		if ok {
			_, peerKnown = entry.Peers[ev.PeerCid]
			origin = entry.Origin
		}
		r.mu.Unlock()
		if !ok || !peerKnown {
			return // already removed: idempotent
		}

		r.removePeer(ev.Cid, ev.PeerCid)

		r.deliverTo(origin, &wire.Response{
			Tag:          wire.ResponseTagDisconnected,
			Disconnected: &wire.Disconnected{Cid: ev.Cid, PeerCid: ev.PeerCid},
		})
	}
}
