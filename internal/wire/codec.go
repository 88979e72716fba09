package wire

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protowire"
)

// ErrTruncatedFrame is returned when a frame ends before a field it
// declared (length-delimited or fixed-width) has been fully consumed.
var ErrTruncatedFrame = errors.New("wire: truncated frame")

// ErrUnknownTag is returned when a Request or Response frame's leading tag
// byte does not match any known variant.
var ErrUnknownTag = errors.New("wire: unknown tag")

// ErrMissingVariant is returned when a Request or Response's Tag field
// names a variant whose corresponding pointer field is nil.
var ErrMissingVariant = errors.New("wire: tag names a nil variant")

// fieldWriter accumulates a message body as a sequence of protobuf-style
// tagged fields, keyed by an arbitrary field-number scheme private to this
// package (it is not compatible with any .proto definition).
type fieldWriter struct {
	buf []byte
}

func (w *fieldWriter) uint64(num protowire.Number, v uint64) {
	if v == 0 {
		return
	}
	w.buf = protowire.AppendTag(w.buf, num, protowire.VarintType)
	w.buf = protowire.AppendVarint(w.buf, v)
}

func (w *fieldWriter) uint32(num protowire.Number, v uint32) {
	w.uint64(num, uint64(v))
}

func (w *fieldWriter) boolean(num protowire.Number, v bool) {
	if !v {
		return
	}
	w.buf = protowire.AppendTag(w.buf, num, protowire.VarintType)
	w.buf = protowire.AppendVarint(w.buf, 1)
}

func (w *fieldWriter) bytes(num protowire.Number, v []byte) {
	if len(v) == 0 {
		return
	}
	w.buf = protowire.AppendTag(w.buf, num, protowire.BytesType)
	w.buf = protowire.AppendBytes(w.buf, v)
}

func (w *fieldWriter) str(num protowire.Number, v string) {
	if v == "" {
		return
	}
	w.bytes(num, []byte(v))
}

func (w *fieldWriter) message(num protowire.Number, v []byte) {
	w.bytes(num, v)
}

// Bytes returns the accumulated message body.
func (w *fieldWriter) Bytes() []byte { return w.buf }

// fieldReader walks a message body field by field.
type fieldReader struct {
	buf []byte
}

// next consumes the next field, returning its number, wire type, and raw
// remaining buffer position advanced past the tag. Returns ok=false at EOF.
func (r *fieldReader) next() (num protowire.Number, typ protowire.Type, ok bool, err error) {
	if len(r.buf) == 0 {
		return 0, 0, false, nil
	}
	num, typ, n := protowire.ConsumeTag(r.buf)
	if n < 0 {
		return 0, 0, false, fmt.Errorf("%w: consume tag: %w", ErrTruncatedFrame, protowire.ParseError(n))
	}
	r.buf = r.buf[n:]
	return num, typ, true, nil
}

func (r *fieldReader) skip(typ protowire.Type) error {
	n := protowire.ConsumeFieldValue(0, typ, r.buf)
	if n < 0 {
		return fmt.Errorf("%w: skip field: %w", ErrTruncatedFrame, protowire.ParseError(n))
	}
	r.buf = r.buf[n:]
	return nil
}

func (r *fieldReader) consumeVarint() (uint64, error) {
	v, n := protowire.ConsumeVarint(r.buf)
	if n < 0 {
		return 0, fmt.Errorf("%w: varint: %w", ErrTruncatedFrame, protowire.ParseError(n))
	}
	r.buf = r.buf[n:]
	return v, nil
}

func (r *fieldReader) consumeBytes() ([]byte, error) {
	v, n := protowire.ConsumeBytes(r.buf)
	if n < 0 {
		return nil, fmt.Errorf("%w: bytes: %w", ErrTruncatedFrame, protowire.ParseError(n))
	}
	r.buf = r.buf[n:]
	// Copy out: ConsumeBytes aliases the input slice.
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Field numbers shared across message kinds. Numbers are scoped per Go
// struct, not globally, so reuse across message types below is intentional.
const (
	fCid uint8 = iota + 1
	fPeerCid
	fMessage
	fUsername
	fPassword
	fServerAddr
	fSourcePath
	fVirtualPath
	fChunkingSize
	fTransferType
	fDeleteOnPull
	fConnectMode
	fUdpMode
	fSecurityLevel
	fRekey
	fInvitees
	fPeerUsername
	fConnectAfterRegister
	fErrMessage
	fConnectionId
	fProtocolVersion
	fTransferSecurityLevel
	fTicket
)

// --- Request encode/decode ---

// EncodeRequest serializes a Request to its binary wire form (no length
// prefix -- see WriteFrame for framing).
func EncodeRequest(req *Request) ([]byte, error) {
	var body []byte
	switch req.Tag {
	case RequestTagConnect:
		if req.Connect == nil {
			return nil, fmt.Errorf("connect: %w", ErrMissingVariant)
		}
		body = encodeConnectRequest(req.Connect)
	case RequestTagRegister:
		if req.Register == nil {
			return nil, fmt.Errorf("register: %w", ErrMissingVariant)
		}
		body = encodeRegisterRequest(req.Register)
	case RequestTagMessage:
		if req.Message == nil {
			return nil, fmt.Errorf("message: %w", ErrMissingVariant)
		}
		body = encodeMessageRequest(req.Message)
	case RequestTagDisconnect:
		if req.Disconnect == nil {
			return nil, fmt.Errorf("disconnect: %w", ErrMissingVariant)
		}
		w := &fieldWriter{}
		w.uint64(protowire.Number(fCid), req.Disconnect.Cid)
		body = w.Bytes()
	case RequestTagSendFileStandard:
		if req.SendFile == nil {
			return nil, fmt.Errorf("send_file: %w", ErrMissingVariant)
		}
		body = encodeSendFileRequest(req.SendFile)
	case RequestTagDownloadFile:
		if req.DownloadFile == nil {
			return nil, fmt.Errorf("download_file: %w", ErrMissingVariant)
		}
		body = encodeDownloadFileRequest(req.DownloadFile)
	case RequestTagStartGroup:
		if req.StartGroup == nil {
			return nil, fmt.Errorf("start_group: %w", ErrMissingVariant)
		}
		body = encodeStartGroupRequest(req.StartGroup)
	case RequestTagPeerConnect:
		if req.PeerConnect == nil {
			return nil, fmt.Errorf("peer_connect: %w", ErrMissingVariant)
		}
		body = encodePeerConnectRequest(req.PeerConnect)
	case RequestTagPeerDisconnect:
		if req.PeerDisconnect == nil {
			return nil, fmt.Errorf("peer_disconnect: %w", ErrMissingVariant)
		}
		w := &fieldWriter{}
		w.uint64(protowire.Number(fCid), req.PeerDisconnect.Cid)
		w.uint64(protowire.Number(fPeerCid), req.PeerDisconnect.PeerCid)
		body = w.Bytes()
	case RequestTagPeerRegister:
		if req.PeerRegister == nil {
			return nil, fmt.Errorf("peer_register: %w", ErrMissingVariant)
		}
		body = encodePeerRegisterRequest(req.PeerRegister)
	default:
		return nil, fmt.Errorf("%w: request tag %d", ErrUnknownTag, req.Tag)
	}

	out := make([]byte, 0, len(body)+1)
	out = append(out, byte(req.Tag))
	out = append(out, body...)
	return out, nil
}

// DecodeRequest parses a Request from its binary wire form.
func DecodeRequest(data []byte) (*Request, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty request", ErrTruncatedFrame)
	}
	tag := RequestTag(data[0])
	body := data[1:]

	req := &Request{Tag: tag}
	var err error
	switch tag {
	case RequestTagConnect:
		req.Connect, err = decodeConnectRequest(body)
	case RequestTagRegister:
		req.Register, err = decodeRegisterRequest(body)
	case RequestTagMessage:
		req.Message, err = decodeMessageRequest(body)
	case RequestTagDisconnect:
		r := &fieldReader{buf: body}
		d := &DisconnectRequest{}
		err = forEachField(r, func(num protowire.Number, typ protowire.Type) error {
			if num == protowire.Number(fCid) {
				d.Cid, err = r.consumeVarint()
				return err
			}
			return r.skip(typ)
		})
		req.Disconnect = d
	case RequestTagSendFileStandard:
		req.SendFile, err = decodeSendFileRequest(body)
	case RequestTagDownloadFile:
		req.DownloadFile, err = decodeDownloadFileRequest(body)
	case RequestTagStartGroup:
		req.StartGroup, err = decodeStartGroupRequest(body)
	case RequestTagPeerConnect:
		req.PeerConnect, err = decodePeerConnectRequest(body)
	case RequestTagPeerDisconnect:
		r := &fieldReader{buf: body}
		d := &PeerDisconnectRequest{}
		err = forEachField(r, func(num protowire.Number, typ protowire.Type) error {
			switch num {
			case protowire.Number(fCid):
				v, e := r.consumeVarint()
				d.Cid = v
				return e
			case protowire.Number(fPeerCid):
				v, e := r.consumeVarint()
				d.PeerCid = v
				return e
			default:
				return r.skip(typ)
			}
		})
		req.PeerDisconnect = d
	case RequestTagPeerRegister:
		req.PeerRegister, err = decodePeerRegisterRequest(body)
	default:
		return nil, fmt.Errorf("%w: request tag %d", ErrUnknownTag, tag)
	}
	if err != nil {
		return nil, err
	}
	return req, nil
}

// forEachField drives a fieldReader until exhaustion, invoking fn for every
// field encountered. fn is responsible for advancing the reader (via a
// consume* call or skip) exactly once per invocation.
func forEachField(r *fieldReader, fn func(num protowire.Number, typ protowire.Type) error) error {
	for {
		num, typ, ok, err := r.next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := fn(num, typ); err != nil {
			return err
		}
	}
}

func encodeConnectRequest(c *ConnectRequest) []byte {
	w := &fieldWriter{}
	w.str(protowire.Number(fUsername), c.Username)
	w.bytes(protowire.Number(fPassword), c.Password)
	w.uint32(protowire.Number(fConnectMode), uint32(c.ConnectMode))
	w.uint32(protowire.Number(fUdpMode), uint32(c.UdpMode))
	w.uint32(protowire.Number(fSecurityLevel), uint32(c.Security.SecurityLevel))
	w.boolean(protowire.Number(fRekey), c.Security.SecureRandomizedRekey)
	return w.Bytes()
}

func decodeConnectRequest(body []byte) (*ConnectRequest, error) {
	r := &fieldReader{buf: body}
	c := &ConnectRequest{}
	err := forEachField(r, func(num protowire.Number, typ protowire.Type) error {
		switch num {
		case protowire.Number(fUsername):
			v, e := r.consumeBytes()
			c.Username = string(v)
			return e
		case protowire.Number(fPassword):
			v, e := r.consumeBytes()
			c.Password = v
			return e
		case protowire.Number(fConnectMode):
			v, e := r.consumeVarint()
			c.ConnectMode = ConnectMode(v)
			return e
		case protowire.Number(fUdpMode):
			v, e := r.consumeVarint()
			c.UdpMode = UdpMode(v)
			return e
		case protowire.Number(fSecurityLevel):
			v, e := r.consumeVarint()
			c.Security.SecurityLevel = SecurityLevel(v)
			return e
		case protowire.Number(fRekey):
			v, e := r.consumeVarint()
			c.Security.SecureRandomizedRekey = v != 0
			return e
		default:
			return r.skip(typ)
		}
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func encodeRegisterRequest(c *RegisterRequest) []byte {
	w := &fieldWriter{}
	w.str(protowire.Number(fServerAddr), c.ServerAddr)
	w.str(protowire.Number(fUsername), c.Username)
	w.bytes(protowire.Number(fPassword), c.Password)
	w.uint32(protowire.Number(fSecurityLevel), uint32(c.Security.SecurityLevel))
	w.boolean(protowire.Number(fRekey), c.Security.SecureRandomizedRekey)
	return w.Bytes()
}

func decodeRegisterRequest(body []byte) (*RegisterRequest, error) {
	r := &fieldReader{buf: body}
	c := &RegisterRequest{}
	err := forEachField(r, func(num protowire.Number, typ protowire.Type) error {
		switch num {
		case protowire.Number(fServerAddr):
			v, e := r.consumeBytes()
			c.ServerAddr = string(v)
			return e
		case protowire.Number(fUsername):
			v, e := r.consumeBytes()
			c.Username = string(v)
			return e
		case protowire.Number(fPassword):
			v, e := r.consumeBytes()
			c.Password = v
			return e
		case protowire.Number(fSecurityLevel):
			v, e := r.consumeVarint()
			c.Security.SecurityLevel = SecurityLevel(v)
			return e
		case protowire.Number(fRekey):
			v, e := r.consumeVarint()
			c.Security.SecureRandomizedRekey = v != 0
			return e
		default:
			return r.skip(typ)
		}
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func encodeMessageRequest(m *MessageRequest) []byte {
	w := &fieldWriter{}
	w.uint64(protowire.Number(fCid), m.Cid)
	w.uint64(protowire.Number(fPeerCid), m.PeerCid)
	w.bytes(protowire.Number(fMessage), m.Message)
	w.uint32(protowire.Number(fSecurityLevel), uint32(m.SecurityLevel))
	return w.Bytes()
}

func decodeMessageRequest(body []byte) (*MessageRequest, error) {
	r := &fieldReader{buf: body}
	m := &MessageRequest{}
	err := forEachField(r, func(num protowire.Number, typ protowire.Type) error {
		switch num {
		case protowire.Number(fCid):
			v, e := r.consumeVarint()
			m.Cid = v
			return e
		case protowire.Number(fPeerCid):
			v, e := r.consumeVarint()
			m.PeerCid = v
			return e
		case protowire.Number(fMessage):
			v, e := r.consumeBytes()
			m.Message = v
			return e
		case protowire.Number(fSecurityLevel):
			v, e := r.consumeVarint()
			m.SecurityLevel = SecurityLevel(v)
			return e
		default:
			return r.skip(typ)
		}
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func encodeSendFileRequest(s *SendFileStandardRequest) []byte {
	w := &fieldWriter{}
	w.uint64(protowire.Number(fCid), s.Cid)
	w.uint64(protowire.Number(fPeerCid), s.PeerCid)
	w.str(protowire.Number(fSourcePath), s.SourcePath)
	w.uint32(protowire.Number(fTransferType), uint32(s.TransferType))
	w.uint32(protowire.Number(fChunkingSize), s.ChunkingSize)
	return w.Bytes()
}

func decodeSendFileRequest(body []byte) (*SendFileStandardRequest, error) {
	r := &fieldReader{buf: body}
	s := &SendFileStandardRequest{}
	err := forEachField(r, func(num protowire.Number, typ protowire.Type) error {
		switch num {
		case protowire.Number(fCid):
			v, e := r.consumeVarint()
			s.Cid = v
			return e
		case protowire.Number(fPeerCid):
			v, e := r.consumeVarint()
			s.PeerCid = v
			return e
		case protowire.Number(fSourcePath):
			v, e := r.consumeBytes()
			s.SourcePath = string(v)
			return e
		case protowire.Number(fTransferType):
			v, e := r.consumeVarint()
			s.TransferType = TransferType(v)
			return e
		case protowire.Number(fChunkingSize):
			v, e := r.consumeVarint()
			s.ChunkingSize = uint32(v)
			return e
		default:
			return r.skip(typ)
		}
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func encodeDownloadFileRequest(d *DownloadFileRequest) []byte {
	w := &fieldWriter{}
	w.uint64(protowire.Number(fCid), d.Cid)
	w.uint64(protowire.Number(fPeerCid), d.PeerCid)
	w.str(protowire.Number(fVirtualPath), d.VirtualPath)
	w.uint32(protowire.Number(fTransferSecurityLevel), uint32(d.TransferSecurityLevel))
	w.boolean(protowire.Number(fDeleteOnPull), d.DeleteOnPull)
	return w.Bytes()
}

func decodeDownloadFileRequest(body []byte) (*DownloadFileRequest, error) {
	r := &fieldReader{buf: body}
	d := &DownloadFileRequest{}
	err := forEachField(r, func(num protowire.Number, typ protowire.Type) error {
		switch num {
		case protowire.Number(fCid):
			v, e := r.consumeVarint()
			d.Cid = v
			return e
		case protowire.Number(fPeerCid):
			v, e := r.consumeVarint()
			d.PeerCid = v
			return e
		case protowire.Number(fVirtualPath):
			v, e := r.consumeBytes()
			d.VirtualPath = string(v)
			return e
		case protowire.Number(fTransferSecurityLevel):
			v, e := r.consumeVarint()
			d.TransferSecurityLevel = SecurityLevel(v)
			return e
		case protowire.Number(fDeleteOnPull):
			v, e := r.consumeVarint()
			d.DeleteOnPull = v != 0
			return e
		default:
			return r.skip(typ)
		}
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

func encodeStartGroupRequest(s *StartGroupRequest) []byte {
	w := &fieldWriter{}
	w.uint64(protowire.Number(fCid), s.Cid)
	for _, peer := range s.InitialInvitees {
		w.uint64(protowire.Number(fInvitees), peer)
	}
	return w.Bytes()
}

func decodeStartGroupRequest(body []byte) (*StartGroupRequest, error) {
	r := &fieldReader{buf: body}
	s := &StartGroupRequest{}
	err := forEachField(r, func(num protowire.Number, typ protowire.Type) error {
		switch num {
		case protowire.Number(fCid):
			v, e := r.consumeVarint()
			s.Cid = v
			return e
		case protowire.Number(fInvitees):
			v, e := r.consumeVarint()
			if e != nil {
				return e
			}
			s.InitialInvitees = append(s.InitialInvitees, v)
			return nil
		default:
			return r.skip(typ)
		}
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func encodePeerConnectRequest(p *PeerConnectRequest) []byte {
	w := &fieldWriter{}
	w.uint64(protowire.Number(fCid), p.Cid)
	w.uint64(protowire.Number(fPeerCid), p.PeerCid)
	w.uint32(protowire.Number(fUdpMode), uint32(p.UdpMode))
	w.uint32(protowire.Number(fSecurityLevel), uint32(p.Security.SecurityLevel))
	w.boolean(protowire.Number(fRekey), p.Security.SecureRandomizedRekey)
	return w.Bytes()
}

func decodePeerConnectRequest(body []byte) (*PeerConnectRequest, error) {
	r := &fieldReader{buf: body}
	p := &PeerConnectRequest{}
	err := forEachField(r, func(num protowire.Number, typ protowire.Type) error {
		switch num {
		case protowire.Number(fCid):
			v, e := r.consumeVarint()
			p.Cid = v
			return e
		case protowire.Number(fPeerCid):
			v, e := r.consumeVarint()
			p.PeerCid = v
			return e
		case protowire.Number(fUdpMode):
			v, e := r.consumeVarint()
			p.UdpMode = UdpMode(v)
			return e
		case protowire.Number(fSecurityLevel):
			v, e := r.consumeVarint()
			p.Security.SecurityLevel = SecurityLevel(v)
			return e
		case protowire.Number(fRekey):
			v, e := r.consumeVarint()
			p.Security.SecureRandomizedRekey = v != 0
			return e
		default:
			return r.skip(typ)
		}
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func encodePeerRegisterRequest(p *PeerRegisterRequest) []byte {
	w := &fieldWriter{}
	w.uint64(protowire.Number(fCid), p.Cid)
	w.uint64(protowire.Number(fPeerCid), p.PeerCid)
	w.str(protowire.Number(fPeerUsername), p.PeerUsername)
	w.boolean(protowire.Number(fConnectAfterRegister), p.ConnectAfterRegister)
	return w.Bytes()
}

func decodePeerRegisterRequest(body []byte) (*PeerRegisterRequest, error) {
	r := &fieldReader{buf: body}
	p := &PeerRegisterRequest{}
	err := forEachField(r, func(num protowire.Number, typ protowire.Type) error {
		switch num {
		case protowire.Number(fCid):
			v, e := r.consumeVarint()
			p.Cid = v
			return e
		case protowire.Number(fPeerCid):
			v, e := r.consumeVarint()
			p.PeerCid = v
			return e
		case protowire.Number(fPeerUsername):
			v, e := r.consumeBytes()
			p.PeerUsername = string(v)
			return e
		case protowire.Number(fConnectAfterRegister):
			v, e := r.consumeVarint()
			p.ConnectAfterRegister = v != 0
			return e
		default:
			return r.skip(typ)
		}
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// --- Response encode/decode ---

// EncodeResponse serializes a Response to its binary wire form (no length
// prefix -- see WriteFrame for framing).
func EncodeResponse(resp *Response) ([]byte, error) {
	var body []byte
	switch resp.Tag {
	case ResponseTagServiceConnectionAccepted:
		v := resp.ServiceConnectionAccepted
		if v == nil {
			return nil, fmt.Errorf("service_connection_accepted: %w", ErrMissingVariant)
		}
		w := &fieldWriter{}
		w.bytes(protowire.Number(fConnectionId), v.ConnectionId[:])
		w.uint32(protowire.Number(fProtocolVersion), v.ProtocolVersion)
		body = w.Bytes()
	case ResponseTagConnectSuccess:
		if resp.ConnectSuccess == nil {
			return nil, fmt.Errorf("connect_success: %w", ErrMissingVariant)
		}
		body = cidOnly(resp.ConnectSuccess.Cid)
	case ResponseTagConnectionFailure:
		if resp.ConnectionFailure == nil {
			return nil, fmt.Errorf("connection_failure: %w", ErrMissingVariant)
		}
		w := &fieldWriter{}
		w.str(protowire.Number(fErrMessage), resp.ConnectionFailure.Message)
		body = w.Bytes()
	case ResponseTagRegisterSuccess:
		if resp.RegisterSuccess == nil {
			return nil, fmt.Errorf("register_success: %w", ErrMissingVariant)
		}
		body = cidOnly(resp.RegisterSuccess.Cid)
	case ResponseTagRegisterFailure:
		if resp.RegisterFailure == nil {
			return nil, fmt.Errorf("register_failure: %w", ErrMissingVariant)
		}
		w := &fieldWriter{}
		w.str(protowire.Number(fErrMessage), resp.RegisterFailure.Message)
		body = w.Bytes()
	case ResponseTagMessageSent:
		if resp.MessageSent == nil {
			return nil, fmt.Errorf("message_sent: %w", ErrMissingVariant)
		}
		body = cidPeerOnly(resp.MessageSent.Cid, resp.MessageSent.PeerCid)
	case ResponseTagMessageReceived:
		v := resp.MessageReceived
		if v == nil {
			return nil, fmt.Errorf("message_received: %w", ErrMissingVariant)
		}
		w := &fieldWriter{}
		w.uint64(protowire.Number(fCid), v.Cid)
		w.uint64(protowire.Number(fPeerCid), v.PeerCid)
		w.bytes(protowire.Number(fMessage), v.Message)
		body = w.Bytes()
	case ResponseTagMessageSendError:
		v := resp.MessageSendError
		if v == nil {
			return nil, fmt.Errorf("message_send_error: %w", ErrMissingVariant)
		}
		w := &fieldWriter{}
		w.uint64(protowire.Number(fCid), v.Cid)
		w.uint64(protowire.Number(fPeerCid), v.PeerCid)
		w.str(protowire.Number(fErrMessage), v.Message)
		body = w.Bytes()
	case ResponseTagDisconnectSuccess:
		if resp.DisconnectSuccess == nil {
			return nil, fmt.Errorf("disconnect_success: %w", ErrMissingVariant)
		}
		body = cidOnly(resp.DisconnectSuccess.Cid)
	case ResponseTagDisconnected:
		if resp.Disconnected == nil {
			return nil, fmt.Errorf("disconnected: %w", ErrMissingVariant)
		}
		body = cidPeerOnly(resp.Disconnected.Cid, resp.Disconnected.PeerCid)
	case ResponseTagDisconnectFailure:
		v := resp.DisconnectFailure
		if v == nil {
			return nil, fmt.Errorf("disconnect_failure: %w", ErrMissingVariant)
		}
		w := &fieldWriter{}
		w.uint64(protowire.Number(fCid), v.Cid)
		w.str(protowire.Number(fErrMessage), v.Message)
		body = w.Bytes()
	case ResponseTagSendFileSuccess:
		if resp.SendFileSuccess == nil {
			return nil, fmt.Errorf("send_file_success: %w", ErrMissingVariant)
		}
		body = cidOnly(resp.SendFileSuccess.Cid)
	case ResponseTagSendFileFailure:
		v := resp.SendFileFailure
		if v == nil {
			return nil, fmt.Errorf("send_file_failure: %w", ErrMissingVariant)
		}
		w := &fieldWriter{}
		w.uint64(protowire.Number(fCid), v.Cid)
		w.str(protowire.Number(fErrMessage), v.Message)
		body = w.Bytes()
	case ResponseTagDownloadFileSuccess:
		if resp.DownloadFileSuccess == nil {
			return nil, fmt.Errorf("download_file_success: %w", ErrMissingVariant)
		}
		body = cidOnly(resp.DownloadFileSuccess.Cid)
	case ResponseTagDownloadFileFailure:
		v := resp.DownloadFileFailure
		if v == nil {
			return nil, fmt.Errorf("download_file_failure: %w", ErrMissingVariant)
		}
		w := &fieldWriter{}
		w.uint64(protowire.Number(fCid), v.Cid)
		w.str(protowire.Number(fErrMessage), v.Message)
		body = w.Bytes()
	case ResponseTagGroupCreated:
		if resp.GroupCreated == nil {
			return nil, fmt.Errorf("group_created: %w", ErrMissingVariant)
		}
		body = cidOnly(resp.GroupCreated.Cid)
	case ResponseTagGroupCreateFailure:
		v := resp.GroupCreateFailure
		if v == nil {
			return nil, fmt.Errorf("group_create_failure: %w", ErrMissingVariant)
		}
		w := &fieldWriter{}
		w.uint64(protowire.Number(fCid), v.Cid)
		w.str(protowire.Number(fErrMessage), v.Message)
		body = w.Bytes()
	case ResponseTagPeerConnectSuccess:
		if resp.PeerConnectSuccess == nil {
			return nil, fmt.Errorf("peer_connect_success: %w", ErrMissingVariant)
		}
		body = cidPeerOnly(resp.PeerConnectSuccess.Cid, resp.PeerConnectSuccess.PeerCid)
	case ResponseTagPeerConnectFailure:
		v := resp.PeerConnectFailure
		if v == nil {
			return nil, fmt.Errorf("peer_connect_failure: %w", ErrMissingVariant)
		}
		w := &fieldWriter{}
		w.uint64(protowire.Number(fCid), v.Cid)
		w.uint64(protowire.Number(fPeerCid), v.PeerCid)
		w.str(protowire.Number(fErrMessage), v.Message)
		body = w.Bytes()
	case ResponseTagPeerDisconnectSuccess:
		v := resp.PeerDisconnectSuccess
		if v == nil {
			return nil, fmt.Errorf("peer_disconnect_success: %w", ErrMissingVariant)
		}
		w := &fieldWriter{}
		w.uint64(protowire.Number(fCid), v.Cid)
		w.uint64(protowire.Number(fPeerCid), v.PeerCid)
		w.uint64(protowire.Number(fTicket), uint64(v.Ticket))
		body = w.Bytes()
	case ResponseTagPeerDisconnectFailure:
		v := resp.PeerDisconnectFailure
		if v == nil {
			return nil, fmt.Errorf("peer_disconnect_failure: %w", ErrMissingVariant)
		}
		w := &fieldWriter{}
		w.uint64(protowire.Number(fCid), v.Cid)
		w.uint64(protowire.Number(fPeerCid), v.PeerCid)
		w.str(protowire.Number(fErrMessage), v.Message)
		body = w.Bytes()
	case ResponseTagPeerRegisterSuccess:
		v := resp.PeerRegisterSuccess
		if v == nil {
			return nil, fmt.Errorf("peer_register_success: %w", ErrMissingVariant)
		}
		w := &fieldWriter{}
		w.uint64(protowire.Number(fCid), v.Cid)
		w.uint64(protowire.Number(fPeerCid), v.PeerCid)
		w.str(protowire.Number(fUsername), v.Username)
		body = w.Bytes()
	case ResponseTagPeerRegisterFailure:
		v := resp.PeerRegisterFailure
		if v == nil {
			return nil, fmt.Errorf("peer_register_failure: %w", ErrMissingVariant)
		}
		w := &fieldWriter{}
		w.uint64(protowire.Number(fCid), v.Cid)
		w.uint64(protowire.Number(fPeerCid), v.PeerCid)
		w.str(protowire.Number(fErrMessage), v.Message)
		body = w.Bytes()
	default:
		return nil, fmt.Errorf("%w: response tag %d", ErrUnknownTag, resp.Tag)
	}

	out := make([]byte, 0, len(body)+1)
	out = append(out, byte(resp.Tag))
	out = append(out, body...)
	return out, nil
}

func cidOnly(cid Cid) []byte {
	w := &fieldWriter{}
	w.uint64(protowire.Number(fCid), cid)
	return w.Bytes()
}

func cidPeerOnly(cid Cid, peer PeerCid) []byte {
	w := &fieldWriter{}
	w.uint64(protowire.Number(fCid), cid)
	w.uint64(protowire.Number(fPeerCid), peer)
	return w.Bytes()
}

// DecodeResponse parses a Response from its binary wire form.
func DecodeResponse(data []byte) (*Response, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrTruncatedFrame)
	}
	tag := ResponseTag(data[0])
	body := data[1:]
	r := &fieldReader{buf: body}
	resp := &Response{Tag: tag}

	var cid Cid
	var peer PeerCid
	var msg string
	var username string
	var ticket Ticket

	readCidPeerMsg := func() error {
		return forEachField(r, func(num protowire.Number, typ protowire.Type) error {
			switch num {
			case protowire.Number(fCid):
				v, e := r.consumeVarint()
				cid = v
				return e
			case protowire.Number(fPeerCid):
				v, e := r.consumeVarint()
				peer = v
				return e
			case protowire.Number(fErrMessage):
				v, e := r.consumeBytes()
				msg = string(v)
				return e
			case protowire.Number(fUsername):
				v, e := r.consumeBytes()
				username = string(v)
				return e
			case protowire.Number(fTicket):
				v, e := r.consumeVarint()
				ticket = Ticket(v)
				return e
			default:
				return r.skip(typ)
			}
		})
	}

	switch tag {
	case ResponseTagServiceConnectionAccepted:
		var connID ConnectionId
		var ver uint32
		err := forEachField(r, func(num protowire.Number, typ protowire.Type) error {
			switch num {
			case protowire.Number(fConnectionId):
				v, e := r.consumeBytes()
				if e != nil {
					return e
				}
				parsed, perr := uuid.FromBytes(v)
				if perr != nil {
					return fmt.Errorf("%w: connection id: %w", ErrTruncatedFrame, perr)
				}
				connID = parsed
				return nil
			case protowire.Number(fProtocolVersion):
				v, e := r.consumeVarint()
				ver = uint32(v)
				return e
			default:
				return r.skip(typ)
			}
		})
		if err != nil {
			return nil, err
		}
		resp.ServiceConnectionAccepted = &ServiceConnectionAccepted{ConnectionId: connID, ProtocolVersion: ver}
		return resp, nil

	case ResponseTagConnectSuccess:
		if err := readCidPeerMsg(); err != nil {
			return nil, err
		}
		resp.ConnectSuccess = &ConnectSuccess{Cid: cid}
	case ResponseTagConnectionFailure:
		if err := readCidPeerMsg(); err != nil {
			return nil, err
		}
		resp.ConnectionFailure = &ConnectionFailure{Message: msg}
	case ResponseTagRegisterSuccess:
		if err := readCidPeerMsg(); err != nil {
			return nil, err
		}
		resp.RegisterSuccess = &RegisterSuccess{Cid: cid}
	case ResponseTagRegisterFailure:
		if err := readCidPeerMsg(); err != nil {
			return nil, err
		}
		resp.RegisterFailure = &RegisterFailure{Message: msg}
	case ResponseTagMessageSent:
		if err := readCidPeerMsg(); err != nil {
			return nil, err
		}
		resp.MessageSent = &MessageSent{Cid: cid, PeerCid: peer}
	case ResponseTagMessageReceived:
		var message []byte
		err := forEachField(r, func(num protowire.Number, typ protowire.Type) error {
			switch num {
			case protowire.Number(fCid):
				v, e := r.consumeVarint()
				cid = v
				return e
			case protowire.Number(fPeerCid):
				v, e := r.consumeVarint()
				peer = v
				return e
			case protowire.Number(fMessage):
				v, e := r.consumeBytes()
				message = v
				return e
			default:
				return r.skip(typ)
			}
		})
		if err != nil {
			return nil, err
		}
		resp.MessageReceived = &MessageReceived{Cid: cid, PeerCid: peer, Message: message}
	case ResponseTagMessageSendError:
		if err := readCidPeerMsg(); err != nil {
			return nil, err
		}
		resp.MessageSendError = &MessageSendError{Cid: cid, PeerCid: peer, Message: msg}
	case ResponseTagDisconnectSuccess:
		if err := readCidPeerMsg(); err != nil {
			return nil, err
		}
		resp.DisconnectSuccess = &DisconnectSuccess{Cid: cid}
	case ResponseTagDisconnected:
		if err := readCidPeerMsg(); err != nil {
			return nil, err
		}
		resp.Disconnected = &Disconnected{Cid: cid, PeerCid: peer}
	case ResponseTagDisconnectFailure:
		if err := readCidPeerMsg(); err != nil {
			return nil, err
		}
		resp.DisconnectFailure = &DisconnectFailure{Cid: cid, Message: msg}
	case ResponseTagSendFileSuccess:
		if err := readCidPeerMsg(); err != nil {
			return nil, err
		}
		resp.SendFileSuccess = &SendFileSuccess{Cid: cid}
	case ResponseTagSendFileFailure:
		if err := readCidPeerMsg(); err != nil {
			return nil, err
		}
		resp.SendFileFailure = &SendFileFailure{Cid: cid, Message: msg}
	case ResponseTagDownloadFileSuccess:
		if err := readCidPeerMsg(); err != nil {
			return nil, err
		}
		resp.DownloadFileSuccess = &DownloadFileSuccess{Cid: cid}
	case ResponseTagDownloadFileFailure:
		if err := readCidPeerMsg(); err != nil {
			return nil, err
		}
		resp.DownloadFileFailure = &DownloadFileFailure{Cid: cid, Message: msg}
	case ResponseTagGroupCreated:
		if err := readCidPeerMsg(); err != nil {
			return nil, err
		}
		resp.GroupCreated = &GroupCreated{Cid: cid}
	case ResponseTagGroupCreateFailure:
		if err := readCidPeerMsg(); err != nil {
			return nil, err
		}
		resp.GroupCreateFailure = &GroupCreateFailure{Cid: cid, Message: msg}
	case ResponseTagPeerConnectSuccess:
		if err := readCidPeerMsg(); err != nil {
			return nil, err
		}
		resp.PeerConnectSuccess = &PeerConnectSuccess{Cid: cid, PeerCid: peer}
	case ResponseTagPeerConnectFailure:
		if err := readCidPeerMsg(); err != nil {
			return nil, err
		}
		resp.PeerConnectFailure = &PeerConnectFailure{Cid: cid, PeerCid: peer, Message: msg}
	case ResponseTagPeerDisconnectSuccess:
		if err := readCidPeerMsg(); err != nil {
			return nil, err
		}
		resp.PeerDisconnectSuccess = &PeerDisconnectSuccess{Cid: cid, PeerCid: peer, Ticket: ticket}
	case ResponseTagPeerDisconnectFailure:
		if err := readCidPeerMsg(); err != nil {
			return nil, err
		}
		resp.PeerDisconnectFailure = &PeerDisconnectFailure{Cid: cid, PeerCid: peer, Message: msg}
	case ResponseTagPeerRegisterSuccess:
		if err := readCidPeerMsg(); err != nil {
			return nil, err
		}
		resp.PeerRegisterSuccess = &PeerRegisterSuccess{Cid: cid, PeerCid: peer, Username: username}
	case ResponseTagPeerRegisterFailure:
		if err := readCidPeerMsg(); err != nil {
			return nil, err
		}
		resp.PeerRegisterFailure = &PeerRegisterFailure{Cid: cid, PeerCid: peer, Message: msg}
	default:
		return nil, fmt.Errorf("%w: response tag %d", ErrUnknownTag, tag)
	}

	return resp, nil
}
