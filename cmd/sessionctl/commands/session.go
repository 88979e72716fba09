package commands

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sessiongw/sessiond/internal/sessionclient"
	"github.com/sessiongw/sessiond/internal/wire"
)

// Sentinel errors for CLI argument validation.
var (
	errUsernameRequired   = errors.New("--username flag is required")
	errServerAddrRequired = errors.New("--server flag is required")
	errUnknownSecurity    = errors.New("unknown security level, expected standard, reinforced, or highest")
	errUnknownConnectMode = errors.New("unknown connect mode, expected standard or fetch")
)

func dial() (*sessionclient.Client, error) {
	return sessionclient.Dial(serverNetwork, serverAddr, maxFrameBytes)
}

func parseSecurityLevel(s string) (wire.SecurityLevel, error) {
	switch s {
	case "", "standard":
		return wire.SecurityLevelStandard, nil
	case "reinforced":
		return wire.SecurityLevelReinforced, nil
	case "highest":
		return wire.SecurityLevelHighestSecurity, nil
	default:
		return 0, fmt.Errorf("%w: %q", errUnknownSecurity, s)
	}
}

func parseConnectMode(s string) (wire.ConnectMode, error) {
	switch s {
	case "", "standard":
		return wire.ConnectModeStandard, nil
	case "fetch":
		return wire.ConnectModeFetch, nil
	default:
		return 0, fmt.Errorf("%w: %q", errUnknownConnectMode, s)
	}
}

func parseUdpMode(enabled bool) wire.UdpMode {
	if enabled {
		return wire.UdpModeEnabled
	}
	return wire.UdpModeDisabled
}

func parseCid(s string) (wire.Cid, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse cid %q: %w", s, err)
	}
	return v, nil
}

func parsePeerCid(s string) (wire.PeerCid, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse peer-cid %q: %w", s, err)
	}
	return v, nil
}

// --- connect ---

func connectCmd() *cobra.Command {
	var (
		username  string
		password  string
		udpOn     bool
		security  string
		connMode  string
		rekey     bool
	)

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Authenticate an already-registered account and open a session",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if username == "" {
				return errUsernameRequired
			}

			mode, err := parseConnectMode(connMode)
			if err != nil {
				return err
			}

			level, err := parseSecurityLevel(security)
			if err != nil {
				return err
			}

			c, err := dial()
			if err != nil {
				return fmt.Errorf("dial daemon: %w", err)
			}
			defer c.Close()

			resp, err := c.Call(&wire.Request{
				Tag: wire.RequestTagConnect,
				Connect: &wire.ConnectRequest{
					Username:    username,
					Password:    []byte(password),
					ConnectMode: mode,
					UdpMode:     parseUdpMode(udpOn),
					Security: wire.SessionSecuritySettings{
						SecurityLevel:         level,
						SecureRandomizedRekey: rekey,
					},
				},
			})
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}

			return printResponse(resp)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&username, "username", "", "account username (required)")
	flags.StringVar(&password, "password", "", "account password")
	flags.BoolVar(&udpOn, "udp", false, "enable UDP mode for this session")
	flags.StringVar(&security, "security", "standard", "security level: standard, reinforced, highest")
	flags.StringVar(&connMode, "mode", "standard", "connect mode: standard or fetch")
	flags.BoolVar(&rekey, "rekey", false, "enable secure randomized rekeying")

	return cmd
}

// --- register ---

func registerCmd() *cobra.Command {
	var (
		server   string
		username string
		password string
		security string
		rekey    bool
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new account with a remote server",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if server == "" {
				return errServerAddrRequired
			}
			if username == "" {
				return errUsernameRequired
			}

			level, err := parseSecurityLevel(security)
			if err != nil {
				return err
			}

			c, err := dial()
			if err != nil {
				return fmt.Errorf("dial daemon: %w", err)
			}
			defer c.Close()

			resp, err := c.Call(&wire.Request{
				Tag: wire.RequestTagRegister,
				Register: &wire.RegisterRequest{
					ServerAddr: server,
					Username:   username,
					Password:   []byte(password),
					Security: wire.SessionSecuritySettings{
						SecurityLevel:         level,
						SecureRandomizedRekey: rekey,
					},
				},
			})
			if err != nil {
				return fmt.Errorf("register: %w", err)
			}

			return printResponse(resp)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&server, "server", "", "remote server address (required)")
	flags.StringVar(&username, "username", "", "account username (required)")
	flags.StringVar(&password, "password", "", "account password")
	flags.StringVar(&security, "security", "standard", "security level: standard, reinforced, highest")
	flags.BoolVar(&rekey, "rekey", false, "enable secure randomized rekeying")

	return cmd
}

// --- message ---

func messageCmd() *cobra.Command {
	var (
		cid      string
		peerCid  string
		security string
	)

	cmd := &cobra.Command{
		Use:   "message <text>",
		Short: "Send a message over an open session or peer link",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			c, err := buildMessageRequest(cid, peerCid, security, args[0])
			if err != nil {
				return err
			}

			conn, err := dial()
			if err != nil {
				return fmt.Errorf("dial daemon: %w", err)
			}
			defer conn.Close()

			resp, err := conn.Call(c)
			if err != nil {
				return fmt.Errorf("message: %w", err)
			}

			return printResponse(resp)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cid, "cid", "", "session connection id (required)")
	flags.StringVar(&peerCid, "peer-cid", "0", "peer connection id (0 addresses the session's server)")
	flags.StringVar(&security, "security", "standard", "security level: standard, reinforced, highest")

	return cmd
}

func buildMessageRequest(cidStr, peerCidStr, security, text string) (*wire.Request, error) {
	cid, err := parseCid(cidStr)
	if err != nil {
		return nil, err
	}
	peerCid, err := parsePeerCid(peerCidStr)
	if err != nil {
		return nil, err
	}
	level, err := parseSecurityLevel(security)
	if err != nil {
		return nil, err
	}

	return &wire.Request{
		Tag: wire.RequestTagMessage,
		Message: &wire.MessageRequest{
			Cid:           cid,
			PeerCid:       peerCid,
			Message:       []byte(text),
			SecurityLevel: level,
		},
	}, nil
}

// --- disconnect ---

func disconnectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect <cid>",
		Short: "Close an open session",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			cid, err := parseCid(args[0])
			if err != nil {
				return err
			}

			c, err := dial()
			if err != nil {
				return fmt.Errorf("dial daemon: %w", err)
			}
			defer c.Close()

			resp, err := c.Call(&wire.Request{
				Tag:        wire.RequestTagDisconnect,
				Disconnect: &wire.DisconnectRequest{Cid: cid},
			})
			if err != nil {
				return fmt.Errorf("disconnect: %w", err)
			}

			return printResponse(resp)
		},
	}
}

// --- send-file ---

func sendFileCmd() *cobra.Command {
	var (
		cid          string
		peerCid      string
		chunking     uint32
		remote       bool
	)

	cmd := &cobra.Command{
		Use:   "send-file <source-path>",
		Short: "Send a file over an open session or peer link",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			cidVal, err := parseCid(cid)
			if err != nil {
				return err
			}
			peerCidVal, err := parsePeerCid(peerCid)
			if err != nil {
				return err
			}

			transferType := wire.TransferTypeFileTransfer
			if remote {
				transferType = wire.TransferTypeRemoteEncryptedVirtualFilesystem
			}

			c, err := dial()
			if err != nil {
				return fmt.Errorf("dial daemon: %w", err)
			}
			defer c.Close()

			resp, err := c.Call(&wire.Request{
				Tag: wire.RequestTagSendFileStandard,
				SendFile: &wire.SendFileStandardRequest{
					Cid:          cidVal,
					PeerCid:      peerCidVal,
					SourcePath:   args[0],
					TransferType: transferType,
					ChunkingSize: chunking,
				},
			})
			if err != nil {
				return fmt.Errorf("send-file: %w", err)
			}

			return printResponse(resp)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cid, "cid", "", "session connection id (required)")
	flags.StringVar(&peerCid, "peer-cid", "0", "peer connection id (0 addresses the session's server)")
	flags.Uint32Var(&chunking, "chunk-size", 0, "chunking size in bytes (0 lets the daemon choose)")
	flags.BoolVar(&remote, "rev-fs", false, "use remote encrypted virtual filesystem transfer")

	return cmd
}

// --- download-file ---

func downloadFileCmd() *cobra.Command {
	var (
		cid          string
		peerCid      string
		security     string
		deleteOnPull bool
	)

	cmd := &cobra.Command{
		Use:   "download-file <virtual-path>",
		Short: "Pull a file from a peer's remote encrypted virtual filesystem",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			cidVal, err := parseCid(cid)
			if err != nil {
				return err
			}
			peerCidVal, err := parsePeerCid(peerCid)
			if err != nil {
				return err
			}
			level, err := parseSecurityLevel(security)
			if err != nil {
				return err
			}

			c, err := dial()
			if err != nil {
				return fmt.Errorf("dial daemon: %w", err)
			}
			defer c.Close()

			resp, err := c.Call(&wire.Request{
				Tag: wire.RequestTagDownloadFile,
				DownloadFile: &wire.DownloadFileRequest{
					Cid:                    cidVal,
					PeerCid:                peerCidVal,
					VirtualPath:            args[0],
					TransferSecurityLevel:  level,
					DeleteOnPull:           deleteOnPull,
				},
			})
			if err != nil {
				return fmt.Errorf("download-file: %w", err)
			}

			return printResponse(resp)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cid, "cid", "", "session connection id (required)")
	flags.StringVar(&peerCid, "peer-cid", "0", "peer connection id (0 addresses the session's server)")
	flags.StringVar(&security, "security", "standard", "security level: standard, reinforced, highest")
	flags.BoolVar(&deleteOnPull, "delete-on-pull", false, "delete the remote copy after a successful pull")

	return cmd
}

// --- start-group ---

func startGroupCmd() *cobra.Command {
	var (
		cid      string
		invitees []string
	)

	cmd := &cobra.Command{
		Use:   "start-group",
		Short: "Start a group session with an initial invite list",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cidVal, err := parseCid(cid)
			if err != nil {
				return err
			}

			initial := make([]wire.PeerCid, 0, len(invitees))
			for _, s := range invitees {
				v, err := parsePeerCid(s)
				if err != nil {
					return err
				}
				initial = append(initial, v)
			}

			c, err := dial()
			if err != nil {
				return fmt.Errorf("dial daemon: %w", err)
			}
			defer c.Close()

			resp, err := c.Call(&wire.Request{
				Tag: wire.RequestTagStartGroup,
				StartGroup: &wire.StartGroupRequest{
					Cid:             cidVal,
					InitialInvitees: initial,
				},
			})
			if err != nil {
				return fmt.Errorf("start-group: %w", err)
			}

			return printResponse(resp)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cid, "cid", "", "session connection id (required)")
	flags.StringSliceVar(&invitees, "invite", nil, "peer-cid to invite (repeatable)")

	return cmd
}
