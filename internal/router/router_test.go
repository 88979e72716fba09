package router_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sessiongw/sessiond/internal/gateway"
	sessionmetrics "github.com/sessiongw/sessiond/internal/metrics"
	"github.com/sessiongw/sessiond/internal/router"
	"github.com/sessiongw/sessiond/internal/wire"

	"github.com/prometheus/client_golang/prometheus"
)

// startRouter wires a Router to a fresh in-memory backend and runs it
// until the test ends.
func startRouter(t *testing.T) (*router.Router, *gateway.Backend) {
	t.Helper()

	backend := gateway.NewBackend(0)
	metrics := sessionmetrics.NewCollector(prometheus.NewRegistry())
	r := router.New(backend, nil, metrics, 16)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Run(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("router did not shut down")
		}
	})

	return r, backend
}

func recvResponse(t *testing.T, out chan *wire.Response) *wire.Response {
	t.Helper()
	select {
	case resp := <-out:
		return resp
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for response")
		return nil
	}
}

func TestConnectRegistersSessionAndRepliesSuccess(t *testing.T) {
	r, _ := startRouter(t)

	id := uuid.New()
	out := r.RegisterConnection(id)
	defer r.UnregisterConnection(id)

	ctx := context.Background()
	err := r.Submit(ctx, id, &wire.Request{
		Tag:     wire.RequestTagConnect,
		Connect: &wire.ConnectRequest{Username: "alice"},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	resp := recvResponse(t, out)
	if resp.Tag != wire.ResponseTagConnectSuccess {
		t.Fatalf("tag = %v, want ConnectSuccess", resp.Tag)
	}
	if resp.ConnectSuccess.Cid == 0 {
		t.Fatal("cid is zero")
	}
}

func TestMessageToUnknownCidFails(t *testing.T) {
	r, _ := startRouter(t)

	id := uuid.New()
	out := r.RegisterConnection(id)
	defer r.UnregisterConnection(id)

	ctx := context.Background()
	err := r.Submit(ctx, id, &wire.Request{
		Tag:     wire.RequestTagMessage,
		Message: &wire.MessageRequest{Cid: 999, Message: []byte("hi")},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	resp := recvResponse(t, out)
	if resp.Tag != wire.ResponseTagMessageSendError {
		t.Fatalf("tag = %v, want MessageSendError", resp.Tag)
	}
	if resp.MessageSendError.Cid != 999 {
		t.Fatalf("cid = %d, want 999", resp.MessageSendError.Cid)
	}
}

func TestPeerRoundTripDeliversMessageReceived(t *testing.T) {
	r, _ := startRouter(t)
	ctx := context.Background()

	aliceID := uuid.New()
	aliceOut := r.RegisterConnection(aliceID)
	defer r.UnregisterConnection(aliceID)

	bobID := uuid.New()
	bobOut := r.RegisterConnection(bobID)
	defer r.UnregisterConnection(bobID)

	if err := r.Submit(ctx, aliceID, &wire.Request{
		Tag:     wire.RequestTagConnect,
		Connect: &wire.ConnectRequest{Username: "alice"},
	}); err != nil {
		t.Fatalf("Submit connect alice: %v", err)
	}
	aliceConnect := recvResponse(t, aliceOut)
	aliceCid := aliceConnect.ConnectSuccess.Cid

	if err := r.Submit(ctx, bobID, &wire.Request{
		Tag:     wire.RequestTagConnect,
		Connect: &wire.ConnectRequest{Username: "bob"},
	}); err != nil {
		t.Fatalf("Submit connect bob: %v", err)
	}
	bobConnect := recvResponse(t, bobOut)
	bobCid := bobConnect.ConnectSuccess.Cid
	_ = bobCid

	if err := r.Submit(ctx, aliceID, &wire.Request{
		Tag: wire.RequestTagPeerRegister,
		PeerRegister: &wire.PeerRegisterRequest{
			Cid: aliceCid, PeerUsername: "bob",
		},
	}); err != nil {
		t.Fatalf("Submit peer register: %v", err)
	}
	peerRegisterResp := recvResponse(t, aliceOut)
	if peerRegisterResp.Tag != wire.ResponseTagPeerRegisterSuccess {
		t.Fatalf("tag = %v, want PeerRegisterSuccess", peerRegisterResp.Tag)
	}
	if peerRegisterResp.PeerRegisterSuccess.Username != "alice" {
		t.Fatalf("username = %q, want %q (the requester's own username)", peerRegisterResp.PeerRegisterSuccess.Username, "alice")
	}
	peerCid := peerRegisterResp.PeerRegisterSuccess.PeerCid

	if err := r.Submit(ctx, aliceID, &wire.Request{
		Tag: wire.RequestTagPeerConnect,
		PeerConnect: &wire.PeerConnectRequest{
			Cid: aliceCid, PeerCid: peerCid,
		},
	}); err != nil {
		t.Fatalf("Submit peer connect: %v", err)
	}
	peerConnectResp := recvResponse(t, aliceOut)
	if peerConnectResp.Tag != wire.ResponseTagPeerConnectSuccess {
		t.Fatalf("tag = %v, want PeerConnectSuccess", peerConnectResp.Tag)
	}

	payload := []byte("hello bob")
	if err := r.Submit(ctx, aliceID, &wire.Request{
		Tag: wire.RequestTagMessage,
		Message: &wire.MessageRequest{
			Cid: aliceCid, PeerCid: peerCid, Message: payload,
		},
	}); err != nil {
		t.Fatalf("Submit message: %v", err)
	}

	sentResp := recvResponse(t, aliceOut)
	if sentResp.Tag != wire.ResponseTagMessageSent {
		t.Fatalf("tag = %v, want MessageSent", sentResp.Tag)
	}

	received := recvResponse(t, bobOut)
	if received.Tag != wire.ResponseTagMessageReceived {
		t.Fatalf("tag = %v, want MessageReceived", received.Tag)
	}
	if string(received.MessageReceived.Message) != string(payload) {
		t.Fatalf("message = %q, want %q", received.MessageReceived.Message, payload)
	}
}

func TestPeerDisconnectUnknownPeerCidFails(t *testing.T) {
	r, _ := startRouter(t)
	ctx := context.Background()

	id := uuid.New()
	out := r.RegisterConnection(id)
	defer r.UnregisterConnection(id)

	if err := r.Submit(ctx, id, &wire.Request{
		Tag:     wire.RequestTagConnect,
		Connect: &wire.ConnectRequest{Username: "alice"},
	}); err != nil {
		t.Fatalf("Submit connect: %v", err)
	}
	connectResp := recvResponse(t, out)
	cid := connectResp.ConnectSuccess.Cid

	if err := r.Submit(ctx, id, &wire.Request{
		Tag: wire.RequestTagPeerDisconnect,
		PeerDisconnect: &wire.PeerDisconnectRequest{
			Cid: cid, PeerCid: 12345,
		},
	}); err != nil {
		t.Fatalf("Submit peer disconnect: %v", err)
	}

	resp := recvResponse(t, out)
	if resp.Tag != wire.ResponseTagPeerDisconnectFailure {
		t.Fatalf("tag = %v, want PeerDisconnectFailure", resp.Tag)
	}
}

func TestPeerDisconnectRepliesWithTicket(t *testing.T) {
	r, _ := startRouter(t)
	ctx := context.Background()

	aliceID := uuid.New()
	aliceOut := r.RegisterConnection(aliceID)
	defer r.UnregisterConnection(aliceID)

	if err := r.Submit(ctx, aliceID, &wire.Request{
		Tag:     wire.RequestTagConnect,
		Connect: &wire.ConnectRequest{Username: "alice"},
	}); err != nil {
		t.Fatalf("Submit connect: %v", err)
	}
	aliceCid := recvResponse(t, aliceOut).ConnectSuccess.Cid

	if err := r.Submit(ctx, aliceID, &wire.Request{
		Tag: wire.RequestTagPeerRegister,
		PeerRegister: &wire.PeerRegisterRequest{
			Cid: aliceCid, PeerUsername: "bob",
		},
	}); err != nil {
		t.Fatalf("Submit peer register: %v", err)
	}
	peerCid := recvResponse(t, aliceOut).PeerRegisterSuccess.PeerCid

	if err := r.Submit(ctx, aliceID, &wire.Request{
		Tag: wire.RequestTagPeerConnect,
		PeerConnect: &wire.PeerConnectRequest{
			Cid: aliceCid, PeerCid: peerCid,
		},
	}); err != nil {
		t.Fatalf("Submit peer connect: %v", err)
	}
	if tag := recvResponse(t, aliceOut).Tag; tag != wire.ResponseTagPeerConnectSuccess {
		t.Fatalf("tag = %v, want PeerConnectSuccess", tag)
	}

	if err := r.Submit(ctx, aliceID, &wire.Request{
		Tag: wire.RequestTagPeerDisconnect,
		PeerDisconnect: &wire.PeerDisconnectRequest{
			Cid: aliceCid, PeerCid: peerCid,
		},
	}); err != nil {
		t.Fatalf("Submit peer disconnect: %v", err)
	}

	resp := recvResponse(t, aliceOut)
	if resp.Tag != wire.ResponseTagPeerDisconnectSuccess {
		t.Fatalf("tag = %v, want PeerDisconnectSuccess", resp.Tag)
	}
	if resp.PeerDisconnectSuccess.Ticket == 0 {
		t.Fatal("ticket is zero")
	}
}

func TestDisconnectRepliesDisconnectSuccess(t *testing.T) {
	r, _ := startRouter(t)
	ctx := context.Background()

	id := uuid.New()
	out := r.RegisterConnection(id)
	defer r.UnregisterConnection(id)

	if err := r.Submit(ctx, id, &wire.Request{
		Tag:     wire.RequestTagConnect,
		Connect: &wire.ConnectRequest{Username: "alice"},
	}); err != nil {
		t.Fatalf("Submit connect: %v", err)
	}
	cid := recvResponse(t, out).ConnectSuccess.Cid

	if err := r.Submit(ctx, id, &wire.Request{
		Tag:        wire.RequestTagDisconnect,
		Disconnect: &wire.DisconnectRequest{Cid: cid},
	}); err != nil {
		t.Fatalf("Submit disconnect: %v", err)
	}

	resp := recvResponse(t, out)
	if resp.Tag != wire.ResponseTagDisconnectSuccess {
		t.Fatalf("tag = %v, want DisconnectSuccess", resp.Tag)
	}
	if resp.DisconnectSuccess.Cid != cid {
		t.Fatalf("cid = %d, want %d", resp.DisconnectSuccess.Cid, cid)
	}
}

func TestDownloadFileAlwaysFails(t *testing.T) {
	r, _ := startRouter(t)
	ctx := context.Background()

	id := uuid.New()
	out := r.RegisterConnection(id)
	defer r.UnregisterConnection(id)

	if err := r.Submit(ctx, id, &wire.Request{
		Tag:     wire.RequestTagConnect,
		Connect: &wire.ConnectRequest{Username: "alice"},
	}); err != nil {
		t.Fatalf("Submit connect: %v", err)
	}
	cid := recvResponse(t, out).ConnectSuccess.Cid

	if err := r.Submit(ctx, id, &wire.Request{
		Tag: wire.RequestTagDownloadFile,
		DownloadFile: &wire.DownloadFileRequest{
			Cid: cid, VirtualPath: "/vfs/report.txt",
		},
	}); err != nil {
		t.Fatalf("Submit download file: %v", err)
	}

	resp := recvResponse(t, out)
	if resp.Tag != wire.ResponseTagDownloadFileFailure {
		t.Fatalf("tag = %v, want DownloadFileFailure", resp.Tag)
	}
}

func TestBackendSessionClosedEventRemovesSessionAndNotifies(t *testing.T) {
	r, backend := startRouter(t)
	ctx := context.Background()

	id := uuid.New()
	out := r.RegisterConnection(id)
	defer r.UnregisterConnection(id)

	if err := r.Submit(ctx, id, &wire.Request{
		Tag:     wire.RequestTagConnect,
		Connect: &wire.ConnectRequest{Username: "alice"},
	}); err != nil {
		t.Fatalf("Submit connect: %v", err)
	}
	cid := recvResponse(t, out).ConnectSuccess.Cid

	backend.SimulateSessionClosed(cid)

	resp := recvResponse(t, out)
	if resp.Tag != wire.ResponseTagDisconnected {
		t.Fatalf("tag = %v, want Disconnected", resp.Tag)
	}
	if resp.Disconnected.Cid != cid {
		t.Fatalf("cid = %d, want %d", resp.Disconnected.Cid, cid)
	}

	// A second event for the same now-removed cid is a no-op: nothing
	// else arrives on out.
	backend.SimulateSessionClosed(cid)
	select {
	case resp := <-out:
		t.Fatalf("unexpected second response: %+v", resp)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRequestFromUnregisteredOriginIsDropped(t *testing.T) {
	r, _ := startRouter(t)
	ctx := context.Background()

	// Never registered with RegisterConnection.
	ghost := uuid.New()
	if err := r.Submit(ctx, ghost, &wire.Request{
		Tag:     wire.RequestTagConnect,
		Connect: &wire.ConnectRequest{Username: "ghost"},
	}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	// Give the inbox consumer a moment to process and drop it, then
	// confirm the Router is still responsive to a real connection.
	time.Sleep(20 * time.Millisecond)

	id := uuid.New()
	out := r.RegisterConnection(id)
	defer r.UnregisterConnection(id)

	if err := r.Submit(ctx, id, &wire.Request{
		Tag:     wire.RequestTagConnect,
		Connect: &wire.ConnectRequest{Username: "alice"},
	}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	resp := recvResponse(t, out)
	if resp.Tag != wire.ResponseTagConnectSuccess {
		t.Fatalf("tag = %v, want ConnectSuccess", resp.Tag)
	}
}
