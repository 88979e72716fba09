// Package wire defines the tagged-union request/response protocol spoken
// over the daemon's local control socket, and the binary codec that
// serializes it.
//
// The wire format is a private, versioned protocol: each Request or
// Response is a tagged union (one tag byte selecting the variant, followed
// by that variant's fields), framed on the socket with a 4-byte big-endian
// length prefix. There is no public .proto schema — the tag layout below
// is the schema — but the field encoding reuses protobuf's low-level
// varint/length-delimited primitives rather than inventing a bespoke one.
package wire

import "github.com/google/uuid"

// ConnectionId identifies one accepted UI socket for the lifetime of that
// socket. Minted by the listener on accept, never persisted, never reused.
type ConnectionId = uuid.UUID

// Cid is a session's connection identifier in the secure-session network.
type Cid = uint64

// PeerCid identifies a peer within a session, addressed relative to a Cid.
type PeerCid = uint64

// ProtocolVersion is carried in ServiceConnectionAccepted so a future wire
// revision can be introduced without an ambiguous format on either side.
const ProtocolVersion uint32 = 1

// SecurityLevel mirrors citadel_workspace_types::SecurityLevel.
type SecurityLevel uint8

const (
	SecurityLevelStandard SecurityLevel = iota
	SecurityLevelReinforced
	SecurityLevelHighestSecurity
)

// ConnectMode mirrors citadel_workspace_types::ConnectMode.
type ConnectMode uint8

const (
	ConnectModeStandard ConnectMode = iota
	ConnectModeFetch
)

// UdpMode mirrors citadel_workspace_types::UdpMode.
type UdpMode uint8

const (
	UdpModeEnabled UdpMode = iota
	UdpModeDisabled
)

// TransferType mirrors citadel_workspace_types::TransferType.
type TransferType uint8

const (
	TransferTypeFileTransfer TransferType = iota
	TransferTypeRemoteEncryptedVirtualFilesystem
)

// SessionSecuritySettings mirrors citadel_workspace_types::SessionSecuritySettings.
type SessionSecuritySettings struct {
	SecurityLevel        SecurityLevel
	SecureRandomizedRekey bool
}

// RequestTag identifies which Request variant a frame carries.
type RequestTag uint8

const (
	RequestTagConnect RequestTag = iota + 1
	RequestTagRegister
	RequestTagMessage
	RequestTagDisconnect
	RequestTagSendFileStandard
	RequestTagDownloadFile
	RequestTagStartGroup
	RequestTagPeerConnect
	RequestTagPeerDisconnect
	RequestTagPeerRegister
)

// ResponseTag identifies which Response variant a frame carries.
type ResponseTag uint8

const (
	ResponseTagServiceConnectionAccepted ResponseTag = iota + 1
	ResponseTagConnectSuccess
	ResponseTagConnectionFailure
	ResponseTagRegisterSuccess
	ResponseTagRegisterFailure
	ResponseTagMessageSent
	ResponseTagMessageReceived
	ResponseTagMessageSendError
	ResponseTagDisconnectSuccess
	ResponseTagDisconnected
	ResponseTagDisconnectFailure
	ResponseTagSendFileSuccess
	ResponseTagSendFileFailure
	ResponseTagDownloadFileSuccess
	ResponseTagDownloadFileFailure
	ResponseTagGroupCreated
	ResponseTagGroupCreateFailure
	ResponseTagPeerConnectSuccess
	ResponseTagPeerConnectFailure
	ResponseTagPeerDisconnectSuccess
	ResponseTagPeerDisconnectFailure
	ResponseTagPeerRegisterSuccess
	ResponseTagPeerRegisterFailure
)

// Request is the tagged union of all client-to-daemon control messages.
// Exactly one of the named *Fields below corresponds to Tag.
type Request struct {
	Tag RequestTag

	Connect        *ConnectRequest
	Register       *RegisterRequest
	Message        *MessageRequest
	Disconnect     *DisconnectRequest
	SendFile       *SendFileStandardRequest
	DownloadFile   *DownloadFileRequest
	StartGroup     *StartGroupRequest
	PeerConnect    *PeerConnectRequest
	PeerDisconnect *PeerDisconnectRequest
	PeerRegister   *PeerRegisterRequest
}

type ConnectRequest struct {
	Username string
	Password []byte
	ConnectMode ConnectMode
	UdpMode     UdpMode
	Security    SessionSecuritySettings
}

type RegisterRequest struct {
	ServerAddr string
	Username   string
	Password   []byte
	Security   SessionSecuritySettings
}

type MessageRequest struct {
	Cid        Cid
	PeerCid    PeerCid // 0 means addressed to the session's server, not a peer
	Message    []byte
	SecurityLevel SecurityLevel
}

type DisconnectRequest struct {
	Cid Cid
}

type SendFileStandardRequest struct {
	Cid          Cid
	PeerCid      PeerCid
	SourcePath   string
	TransferType TransferType
	ChunkingSize uint32
}

type DownloadFileRequest struct {
	Cid          Cid
	PeerCid      PeerCid
	VirtualPath  string
	TransferSecurityLevel SecurityLevel
	DeleteOnPull bool
}

type StartGroupRequest struct {
	Cid          Cid
	InitialInvitees []PeerCid
}

type PeerConnectRequest struct {
	Cid     Cid
	PeerCid PeerCid
	UdpMode UdpMode
	Security SessionSecuritySettings
}

type PeerDisconnectRequest struct {
	Cid     Cid
	PeerCid PeerCid
}

type PeerRegisterRequest struct {
	Cid           Cid
	PeerCid       PeerCid
	PeerUsername  string
	ConnectAfterRegister bool
}

// Response is the tagged union of all daemon-to-client control messages.
// Exactly one of the named *Fields below corresponds to Tag.
type Response struct {
	Tag ResponseTag

	ServiceConnectionAccepted *ServiceConnectionAccepted
	ConnectSuccess            *ConnectSuccess
	ConnectionFailure         *ConnectionFailure
	RegisterSuccess           *RegisterSuccess
	RegisterFailure           *RegisterFailure
	MessageSent               *MessageSent
	MessageReceived           *MessageReceived
	MessageSendError          *MessageSendError
	DisconnectSuccess         *DisconnectSuccess
	Disconnected              *Disconnected
	DisconnectFailure         *DisconnectFailure
	SendFileSuccess           *SendFileSuccess
	SendFileFailure           *SendFileFailure
	DownloadFileSuccess       *DownloadFileSuccess
	DownloadFileFailure       *DownloadFileFailure
	GroupCreated              *GroupCreated
	GroupCreateFailure        *GroupCreateFailure
	PeerConnectSuccess        *PeerConnectSuccess
	PeerConnectFailure        *PeerConnectFailure
	PeerDisconnectSuccess     *PeerDisconnectSuccess
	PeerDisconnectFailure     *PeerDisconnectFailure
	PeerRegisterSuccess       *PeerRegisterSuccess
	PeerRegisterFailure       *PeerRegisterFailure
}

type ServiceConnectionAccepted struct {
	ConnectionId    ConnectionId
	ProtocolVersion uint32
}

type ConnectSuccess struct {
	Cid Cid
}

type ConnectionFailure struct {
	Message string
}

type RegisterSuccess struct {
	Cid Cid
}

type RegisterFailure struct {
	Message string
}

type MessageSent struct {
	Cid     Cid
	PeerCid PeerCid
}

type MessageReceived struct {
	Cid     Cid
	PeerCid PeerCid
	Message []byte
}

type MessageSendError struct {
	Cid     Cid
	PeerCid PeerCid
	Message string
}

// DisconnectSuccess is the solicited reply to a DisconnectRequest.
type DisconnectSuccess struct {
	Cid Cid
}

// Disconnected is the unsolicited notification emitted when NetworkBackend
// reports the underlying session or peer link closed out from under the
// router. It is never a reply to a Disconnect/PeerDisconnect request — those
// get DisconnectSuccess and PeerDisconnectSuccess/Failure respectively.
type Disconnected struct {
	Cid     Cid
	PeerCid PeerCid // 0 when the whole session (not just one peer) closed
}

type DisconnectFailure struct {
	Cid     Cid
	Message string
}

type SendFileSuccess struct {
	Cid Cid
}

type SendFileFailure struct {
	Cid     Cid
	Message string
}

// DownloadFileSuccess/Failure were added by this implementation: the
// upstream source left DownloadFile's reply path commented out entirely.
// See the router's dispatch for why every build answers with Failure.
type DownloadFileSuccess struct {
	Cid Cid
}

type DownloadFileFailure struct {
	Cid     Cid
	Message string
}

type GroupCreated struct {
	Cid Cid
}

type GroupCreateFailure struct {
	Cid     Cid
	Message string
}

type PeerConnectSuccess struct {
	Cid     Cid
	PeerCid PeerCid
}

type PeerConnectFailure struct {
	Cid     Cid
	PeerCid PeerCid
	Message string
}

// Ticket correlates a PeerDisconnect request with the underlying network
// layer's acknowledgment of the send that tore the link down. The upstream
// protocol carries this as a 128-bit value; nothing in this implementation's
// transport needs more than 64 bits of ticket space, so it is represented as
// a plain monotonic counter rather than a 128-bit type the standard library
// and this module's dependencies have no native representation for.
type Ticket uint64

type PeerDisconnectSuccess struct {
	Cid     Cid
	PeerCid PeerCid
	Ticket  Ticket
}

type PeerDisconnectFailure struct {
	Cid     Cid
	PeerCid PeerCid
	Message string
}

type PeerRegisterSuccess struct {
	Cid      Cid
	PeerCid  PeerCid
	Username string // the requesting session's own account username, not the peer's
}

type PeerRegisterFailure struct {
	Cid     Cid
	PeerCid PeerCid
	Message string
}
