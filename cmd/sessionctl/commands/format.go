package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/sessiongw/sessiond/internal/wire"
)

const (
	formatJSON  = "json"
	formatTable = "table"
)

// errUnsupportedFormat is returned when the requested output format is not supported.
var errUnsupportedFormat = errors.New("unsupported output format")

// printResponse renders resp in outputFormat and writes it to stdout.
func printResponse(resp *wire.Response) error {
	switch outputFormat {
	case formatJSON:
		return printResponseJSON(resp)
	case formatTable:
		return printResponseTable(resp)
	default:
		return fmt.Errorf("%w: %q", errUnsupportedFormat, outputFormat)
	}
}

// responseView is a flattened, JSON-friendly projection of a Response. Only
// the fields relevant to its Tag are populated.
type responseView struct {
	Tag       string `json:"tag"`
	Cid       uint64 `json:"cid,omitempty"`
	PeerCid   uint64 `json:"peer_cid,omitempty"`
	Username  string `json:"username,omitempty"`
	Ticket    uint64 `json:"ticket,omitempty"`
	Message   string `json:"message,omitempty"`
	ErrorText string `json:"error,omitempty"`
}

func responseToView(resp *wire.Response) responseView {
	v := responseView{Tag: responseTagName(resp.Tag)}

	switch resp.Tag {
	case wire.ResponseTagServiceConnectionAccepted:
		// ConnectionId is a UUID, not a Cid; surfaced via ErrorText-free message field.
		v.Message = resp.ServiceConnectionAccepted.ConnectionId.String()
	case wire.ResponseTagConnectSuccess:
		v.Cid = resp.ConnectSuccess.Cid
	case wire.ResponseTagConnectionFailure:
		v.ErrorText = resp.ConnectionFailure.Message
	case wire.ResponseTagRegisterSuccess:
		v.Cid = resp.RegisterSuccess.Cid
	case wire.ResponseTagRegisterFailure:
		v.ErrorText = resp.RegisterFailure.Message
	case wire.ResponseTagMessageSent:
		v.Cid, v.PeerCid = resp.MessageSent.Cid, resp.MessageSent.PeerCid
	case wire.ResponseTagMessageReceived:
		v.Cid, v.PeerCid = resp.MessageReceived.Cid, resp.MessageReceived.PeerCid
		v.Message = string(resp.MessageReceived.Message)
	case wire.ResponseTagMessageSendError:
		v.Cid, v.PeerCid = resp.MessageSendError.Cid, resp.MessageSendError.PeerCid
		v.ErrorText = resp.MessageSendError.Message
	case wire.ResponseTagDisconnectSuccess:
		v.Cid = resp.DisconnectSuccess.Cid
	case wire.ResponseTagDisconnected:
		v.Cid, v.PeerCid = resp.Disconnected.Cid, resp.Disconnected.PeerCid
	case wire.ResponseTagDisconnectFailure:
		v.Cid, v.ErrorText = resp.DisconnectFailure.Cid, resp.DisconnectFailure.Message
	case wire.ResponseTagSendFileSuccess:
		v.Cid = resp.SendFileSuccess.Cid
	case wire.ResponseTagSendFileFailure:
		v.Cid, v.ErrorText = resp.SendFileFailure.Cid, resp.SendFileFailure.Message
	case wire.ResponseTagDownloadFileSuccess:
		v.Cid = resp.DownloadFileSuccess.Cid
	case wire.ResponseTagDownloadFileFailure:
		v.Cid, v.ErrorText = resp.DownloadFileFailure.Cid, resp.DownloadFileFailure.Message
	case wire.ResponseTagGroupCreated:
		v.Cid = resp.GroupCreated.Cid
	case wire.ResponseTagGroupCreateFailure:
		v.Cid, v.ErrorText = resp.GroupCreateFailure.Cid, resp.GroupCreateFailure.Message
	case wire.ResponseTagPeerConnectSuccess:
		v.Cid, v.PeerCid = resp.PeerConnectSuccess.Cid, resp.PeerConnectSuccess.PeerCid
	case wire.ResponseTagPeerConnectFailure:
		v.Cid, v.PeerCid = resp.PeerConnectFailure.Cid, resp.PeerConnectFailure.PeerCid
		v.ErrorText = resp.PeerConnectFailure.Message
	case wire.ResponseTagPeerDisconnectSuccess:
		v.Cid, v.PeerCid = resp.PeerDisconnectSuccess.Cid, resp.PeerDisconnectSuccess.PeerCid
		v.Ticket = uint64(resp.PeerDisconnectSuccess.Ticket)
	case wire.ResponseTagPeerDisconnectFailure:
		v.Cid, v.PeerCid = resp.PeerDisconnectFailure.Cid, resp.PeerDisconnectFailure.PeerCid
		v.ErrorText = resp.PeerDisconnectFailure.Message
	case wire.ResponseTagPeerRegisterSuccess:
		v.Cid, v.PeerCid = resp.PeerRegisterSuccess.Cid, resp.PeerRegisterSuccess.PeerCid
		v.Username = resp.PeerRegisterSuccess.Username
	case wire.ResponseTagPeerRegisterFailure:
		v.Cid, v.PeerCid = resp.PeerRegisterFailure.Cid, resp.PeerRegisterFailure.PeerCid
		v.ErrorText = resp.PeerRegisterFailure.Message
	}

	return v
}

func printResponseJSON(resp *wire.Response) error {
	data, err := json.MarshalIndent(responseToView(resp), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal response to JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func printResponseTable(resp *wire.Response) error {
	v := responseToView(resp)

	var buf strings.Builder
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "Tag:\t%s\n", v.Tag)
	if v.Cid != 0 {
		fmt.Fprintf(w, "Cid:\t%d\n", v.Cid)
	}
	if v.PeerCid != 0 {
		fmt.Fprintf(w, "PeerCid:\t%d\n", v.PeerCid)
	}
	if v.Username != "" {
		fmt.Fprintf(w, "Username:\t%s\n", v.Username)
	}
	if v.Ticket != 0 {
		fmt.Fprintf(w, "Ticket:\t%d\n", v.Ticket)
	}
	if v.Message != "" {
		fmt.Fprintf(w, "Message:\t%s\n", v.Message)
	}
	if v.ErrorText != "" {
		fmt.Fprintf(w, "Error:\t%s\n", v.ErrorText)
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush tabwriter: %w", err)
	}

	fmt.Print(buf.String())
	return nil
}

// responseTagName maps a ResponseTag to its short display name.
func responseTagName(tag wire.ResponseTag) string {
	switch tag {
	case wire.ResponseTagServiceConnectionAccepted:
		return "ServiceConnectionAccepted"
	case wire.ResponseTagConnectSuccess:
		return "ConnectSuccess"
	case wire.ResponseTagConnectionFailure:
		return "ConnectionFailure"
	case wire.ResponseTagRegisterSuccess:
		return "RegisterSuccess"
	case wire.ResponseTagRegisterFailure:
		return "RegisterFailure"
	case wire.ResponseTagMessageSent:
		return "MessageSent"
	case wire.ResponseTagMessageReceived:
		return "MessageReceived"
	case wire.ResponseTagMessageSendError:
		return "MessageSendError"
	case wire.ResponseTagDisconnectSuccess:
		return "DisconnectSuccess"
	case wire.ResponseTagDisconnected:
		return "Disconnected"
	case wire.ResponseTagDisconnectFailure:
		return "DisconnectFailure"
	case wire.ResponseTagSendFileSuccess:
		return "SendFileSuccess"
	case wire.ResponseTagSendFileFailure:
		return "SendFileFailure"
	case wire.ResponseTagDownloadFileSuccess:
		return "DownloadFileSuccess"
	case wire.ResponseTagDownloadFileFailure:
		return "DownloadFileFailure"
	case wire.ResponseTagGroupCreated:
		return "GroupCreated"
	case wire.ResponseTagGroupCreateFailure:
		return "GroupCreateFailure"
	case wire.ResponseTagPeerConnectSuccess:
		return "PeerConnectSuccess"
	case wire.ResponseTagPeerConnectFailure:
		return "PeerConnectFailure"
	case wire.ResponseTagPeerDisconnectSuccess:
		return "PeerDisconnectSuccess"
	case wire.ResponseTagPeerDisconnectFailure:
		return "PeerDisconnectFailure"
	case wire.ResponseTagPeerRegisterSuccess:
		return "PeerRegisterSuccess"
	case wire.ResponseTagPeerRegisterFailure:
		return "PeerRegisterFailure"
	default:
		return fmt.Sprintf("Unknown(%d)", tag)
	}
}
