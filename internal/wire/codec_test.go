package wire

import (
	"testing"

	"github.com/google/uuid"
)

func TestEncodeDecodeRequestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		req  *Request
	}{
		{
			name: "connect",
			req: &Request{
				Tag: RequestTagConnect,
				Connect: &ConnectRequest{
					Username:    "alice",
					Password:    []byte("hunter2"),
					ConnectMode: ConnectModeFetch,
					UdpMode:     UdpModeEnabled,
					Security: SessionSecuritySettings{
						SecurityLevel:         SecurityLevelReinforced,
						SecureRandomizedRekey: true,
					},
				},
			},
		},
		{
			name: "message",
			req: &Request{
				Tag: RequestTagMessage,
				Message: &MessageRequest{
					Cid:           42,
					PeerCid:       7,
					Message:       []byte("hello"),
					SecurityLevel: SecurityLevelHighestSecurity,
				},
			},
		},
		{
			name: "disconnect",
			req: &Request{
				Tag:        RequestTagDisconnect,
				Disconnect: &DisconnectRequest{Cid: 99},
			},
		},
		{
			name: "peer_disconnect",
			req: &Request{
				Tag: RequestTagPeerDisconnect,
				PeerDisconnect: &PeerDisconnectRequest{
					Cid:     5,
					PeerCid: 6,
				},
			},
		},
		{
			name: "start_group",
			req: &Request{
				Tag: RequestTagStartGroup,
				StartGroup: &StartGroupRequest{
					Cid:             1,
					InitialInvitees: []PeerCid{2, 3, 4},
				},
			},
		},
		{
			name: "download_file",
			req: &Request{
				Tag: RequestTagDownloadFile,
				DownloadFile: &DownloadFileRequest{
					Cid:                   1,
					PeerCid:               2,
					VirtualPath:           "/vfs/doc.txt",
					TransferSecurityLevel: SecurityLevelStandard,
					DeleteOnPull:          true,
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := EncodeRequest(tt.req)
			if err != nil {
				t.Fatalf("EncodeRequest: %v", err)
			}

			decoded, err := DecodeRequest(encoded)
			if err != nil {
				t.Fatalf("DecodeRequest: %v", err)
			}

			if decoded.Tag != tt.req.Tag {
				t.Fatalf("tag mismatch: got %d want %d", decoded.Tag, tt.req.Tag)
			}
		})
	}
}

func TestEncodeDecodeResponseRoundTrip(t *testing.T) {
	connID := uuid.New()

	tests := []struct {
		name string
		resp *Response
	}{
		{
			name: "service_connection_accepted",
			resp: &Response{
				Tag: ResponseTagServiceConnectionAccepted,
				ServiceConnectionAccepted: &ServiceConnectionAccepted{
					ConnectionId:    connID,
					ProtocolVersion: ProtocolVersion,
				},
			},
		},
		{
			name: "message_received",
			resp: &Response{
				Tag: ResponseTagMessageReceived,
				MessageReceived: &MessageReceived{
					Cid:     1,
					PeerCid: 2,
					Message: []byte("payload"),
				},
			},
		},
		{
			name: "disconnected_unsolicited",
			resp: &Response{
				Tag:          ResponseTagDisconnected,
				Disconnected: &Disconnected{Cid: 3, PeerCid: 0},
			},
		},
		{
			name: "disconnect_success",
			resp: &Response{
				Tag:               ResponseTagDisconnectSuccess,
				DisconnectSuccess: &DisconnectSuccess{Cid: 3},
			},
		},
		{
			name: "peer_disconnect_success",
			resp: &Response{
				Tag: ResponseTagPeerDisconnectSuccess,
				PeerDisconnectSuccess: &PeerDisconnectSuccess{
					Cid: 5, PeerCid: 6, Ticket: 777,
				},
			},
		},
		{
			name: "peer_register_success",
			resp: &Response{
				Tag: ResponseTagPeerRegisterSuccess,
				PeerRegisterSuccess: &PeerRegisterSuccess{
					Cid: 1, PeerCid: 2, Username: "john_doe",
				},
			},
		},
		{
			name: "download_file_failure",
			resp: &Response{
				Tag: ResponseTagDownloadFileFailure,
				DownloadFileFailure: &DownloadFileFailure{
					Cid:     4,
					Message: "download not supported by this backend",
				},
			},
		},
		{
			name: "peer_disconnect_failure",
			resp: &Response{
				Tag: ResponseTagPeerDisconnectFailure,
				PeerDisconnectFailure: &PeerDisconnectFailure{
					Cid:     5,
					PeerCid: 6,
					Message: "no such peer",
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := EncodeResponse(tt.resp)
			if err != nil {
				t.Fatalf("EncodeResponse: %v", err)
			}

			decoded, err := DecodeResponse(encoded)
			if err != nil {
				t.Fatalf("DecodeResponse: %v", err)
			}

			if decoded.Tag != tt.resp.Tag {
				t.Fatalf("tag mismatch: got %d want %d", decoded.Tag, tt.resp.Tag)
			}
		})
	}
}

func TestServiceConnectionAcceptedPreservesConnectionID(t *testing.T) {
	connID := uuid.New()
	resp := &Response{
		Tag: ResponseTagServiceConnectionAccepted,
		ServiceConnectionAccepted: &ServiceConnectionAccepted{
			ConnectionId:    connID,
			ProtocolVersion: ProtocolVersion,
		},
	}

	encoded, err := EncodeResponse(resp)
	if err != nil {
		t.Fatalf("EncodeResponse: %v", err)
	}

	decoded, err := DecodeResponse(encoded)
	if err != nil {
		t.Fatalf("DecodeResponse: %v", err)
	}

	if decoded.ServiceConnectionAccepted.ConnectionId != connID {
		t.Fatalf("connection id mismatch: got %s want %s",
			decoded.ServiceConnectionAccepted.ConnectionId, connID)
	}
	if decoded.ServiceConnectionAccepted.ProtocolVersion != ProtocolVersion {
		t.Fatalf("protocol version mismatch: got %d want %d",
			decoded.ServiceConnectionAccepted.ProtocolVersion, ProtocolVersion)
	}
}

func TestPeerRegisterSuccessPreservesUsername(t *testing.T) {
	resp := &Response{
		Tag: ResponseTagPeerRegisterSuccess,
		PeerRegisterSuccess: &PeerRegisterSuccess{
			Cid: 1, PeerCid: 2, Username: "john_doe",
		},
	}

	encoded, err := EncodeResponse(resp)
	if err != nil {
		t.Fatalf("EncodeResponse: %v", err)
	}

	decoded, err := DecodeResponse(encoded)
	if err != nil {
		t.Fatalf("DecodeResponse: %v", err)
	}

	if decoded.PeerRegisterSuccess.Username != "john_doe" {
		t.Fatalf("username = %q, want %q", decoded.PeerRegisterSuccess.Username, "john_doe")
	}
}

func TestPeerDisconnectSuccessPreservesTicket(t *testing.T) {
	resp := &Response{
		Tag: ResponseTagPeerDisconnectSuccess,
		PeerDisconnectSuccess: &PeerDisconnectSuccess{
			Cid: 5, PeerCid: 6, Ticket: 777,
		},
	}

	encoded, err := EncodeResponse(resp)
	if err != nil {
		t.Fatalf("EncodeResponse: %v", err)
	}

	decoded, err := DecodeResponse(encoded)
	if err != nil {
		t.Fatalf("DecodeResponse: %v", err)
	}

	if decoded.PeerDisconnectSuccess.Ticket != 777 {
		t.Fatalf("ticket = %d, want 777", decoded.PeerDisconnectSuccess.Ticket)
	}
}

func TestDecodeRequestUnknownTag(t *testing.T) {
	_, err := DecodeRequest([]byte{0xFF})
	if err == nil {
		t.Fatal("expected error for unknown tag")
	}
}

func TestDecodeRequestEmpty(t *testing.T) {
	_, err := DecodeRequest(nil)
	if err == nil {
		t.Fatal("expected error for empty request")
	}
}

func TestEncodeRequestMissingVariant(t *testing.T) {
	_, err := EncodeRequest(&Request{Tag: RequestTagConnect})
	if err == nil {
		t.Fatal("expected error for nil variant")
	}
}
