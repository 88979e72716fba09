// Package sessionclient implements the UI side of the daemon's framed
// control protocol: dial the local socket, read the greeting, and
// exchange Request/Response frames.
package sessionclient

import (
	"fmt"
	"net"

	"github.com/sessiongw/sessiond/internal/wire"
)

// Client is one connection to the daemon's control socket.
type Client struct {
	conn     net.Conn
	maxFrame uint32

	// Greeting is the ServiceConnectionAccepted frame read during Dial.
	Greeting *wire.ServiceConnectionAccepted
}

// Dial connects to the daemon at addr over network ("tcp" or "unix") and
// reads the greeting frame the daemon sends on accept.
func Dial(network, addr string, maxFrame uint32) (*Client, error) {
	conn, err := net.Dial(network, addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s %s: %w", network, addr, err)
	}

	c := &Client{conn: conn, maxFrame: maxFrame}

	resp, err := c.Recv()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("read greeting: %w", err)
	}
	if resp.Tag != wire.ResponseTagServiceConnectionAccepted {
		conn.Close()
		return nil, fmt.Errorf("unexpected greeting tag %d", resp.Tag)
	}

	c.Greeting = resp.ServiceConnectionAccepted
	return c, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Send writes one Request frame to the daemon.
func (c *Client) Send(req *wire.Request) error {
	payload, err := wire.EncodeRequest(req)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	if err := wire.WriteFrame(c.conn, payload, c.maxFrame); err != nil {
		return fmt.Errorf("write request frame: %w", err)
	}
	return nil
}

// Recv blocks for the next Response frame from the daemon.
func (c *Client) Recv() (*wire.Response, error) {
	payload, err := wire.ReadFrame(c.conn, c.maxFrame)
	if err != nil {
		return nil, fmt.Errorf("read response frame: %w", err)
	}
	resp, err := wire.DecodeResponse(payload)
	if err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return resp, nil
}

// Call sends req and returns the next Response read from the connection.
// Callers that issue one request per connection (the common CLI shape)
// can rely on that next frame being the solicited reply.
func (c *Client) Call(req *wire.Request) (*wire.Response, error) {
	if err := c.Send(req); err != nil {
		return nil, err
	}
	return c.Recv()
}
