package router

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"

	"github.com/google/uuid"

	"github.com/sessiongw/sessiond/internal/wire"
)

// UIConnection owns one accepted local socket: a reader task that
// decodes inbound Request frames and forwards them to the Router, and a
// writer task that drains a bounded outbound queue of Response frames to
// the socket. Both tasks run until either completes, at which point both
// are torn down and the ConnectionId is unregistered.
type UIConnection struct {
	ID       wire.ConnectionId
	conn     net.Conn
	router   *Router
	logger   *slog.Logger
	maxFrame uint32
	outbound chan *wire.Response
}

// NewUIConnection mints a ConnectionId, registers the connection's
// outbound queue with router, and returns a ready-to-serve UIConnection.
func NewUIConnection(conn net.Conn, router *Router, logger *slog.Logger, maxFrame uint32) *UIConnection {
	id := uuid.New()
	return &UIConnection{
		ID:       id,
		conn:     conn,
		router:   router,
		logger:   logger.With("connection_id", id),
		maxFrame: maxFrame,
		outbound: router.RegisterConnection(id),
	}
}

// Serve emits the ServiceConnectionAccepted greeting, then runs the
// reader and writer tasks until either exits, and unregisters the
// connection before returning.
func (u *UIConnection) Serve(ctx context.Context) error {
	defer u.router.UnregisterConnection(u.ID)
	defer u.conn.Close()

	greeting := &wire.Response{
		Tag: wire.ResponseTagServiceConnectionAccepted,
		ServiceConnectionAccepted: &wire.ServiceConnectionAccepted{
			ConnectionId:    u.ID,
			ProtocolVersion: wire.ProtocolVersion,
		},
	}
	if err := u.writeOne(greeting); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	readerDone := make(chan error, 1)
	writerDone := make(chan error, 1)

	go func() { readerDone <- u.readLoop(ctx) }()
	go func() { writerDone <- u.writeLoop(ctx) }()

	var err error
	select {
	case err = <-readerDone:
		cancel()
		<-writerDone
	case err = <-writerDone:
		cancel()
		// Closing the socket unblocks a reader parked in ReadFrame.
		u.conn.Close()
		<-readerDone
	}

	if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// readLoop decodes frames into Requests, stamps each with u.ID (the
// Router's authoritative origin, regardless of what uuid the wire
// payload itself carries), and forwards them to the Router inbox. It
// exits on decode error or EOF.
func (u *UIConnection) readLoop(ctx context.Context) error {
	for {
		payload, err := wire.ReadFrame(u.conn, u.maxFrame)
		if err != nil {
			return err
		}

		req, err := wire.DecodeRequest(payload)
		if err != nil {
			u.logger.Warn("dropping malformed request", "error", err)
			return err
		}

		if err := u.router.Submit(ctx, u.ID, req); err != nil {
			return err
		}
	}
}

// writeLoop drains u.outbound, encoding and writing each Response to the
// socket in the order the Router enqueued them. It exits on write error
// or context cancellation.
func (u *UIConnection) writeLoop(ctx context.Context) error {
	for {
		select {
		case resp := <-u.outbound:
			if err := u.writeOne(resp); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (u *UIConnection) writeOne(resp *wire.Response) error {
	payload, err := wire.EncodeResponse(resp)
	if err != nil {
		return err
	}
	return wire.WriteFrame(u.conn, payload, u.maxFrame)
}
