package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sessiongw/sessiond/internal/wire"
)

// errPeerUsernameRequired is returned when peer-register runs without --peer-username.
var errPeerUsernameRequired = errors.New("--peer-username flag is required")

// --- peer-register ---

func peerRegisterCmd() *cobra.Command {
	var (
		cid             string
		peerCid         string
		peerUsername    string
		connectAfter    bool
	)

	cmd := &cobra.Command{
		Use:   "peer-register",
		Short: "Register a peer within an open session",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if peerUsername == "" {
				return errPeerUsernameRequired
			}

			cidVal, err := parseCid(cid)
			if err != nil {
				return err
			}
			peerCidVal, err := parsePeerCid(peerCid)
			if err != nil {
				return err
			}

			c, err := dial()
			if err != nil {
				return fmt.Errorf("dial daemon: %w", err)
			}
			defer c.Close()

			resp, err := c.Call(&wire.Request{
				Tag: wire.RequestTagPeerRegister,
				PeerRegister: &wire.PeerRegisterRequest{
					Cid:                  cidVal,
					PeerCid:              peerCidVal,
					PeerUsername:         peerUsername,
					ConnectAfterRegister: connectAfter,
				},
			})
			if err != nil {
				return fmt.Errorf("peer-register: %w", err)
			}

			return printResponse(resp)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cid, "cid", "", "session connection id (required)")
	flags.StringVar(&peerCid, "peer-cid", "", "peer connection id (required)")
	flags.StringVar(&peerUsername, "peer-username", "", "peer account username (required)")
	flags.BoolVar(&connectAfter, "connect-after", false, "also connect to the peer once registered")

	return cmd
}

// --- peer-connect ---

func peerConnectCmd() *cobra.Command {
	var (
		cid      string
		peerCid  string
		udpOn    bool
		security string
		rekey    bool
	)

	cmd := &cobra.Command{
		Use:   "peer-connect",
		Short: "Open a direct link to an already-registered peer",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
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
				Tag: wire.RequestTagPeerConnect,
				PeerConnect: &wire.PeerConnectRequest{
					Cid:     cidVal,
					PeerCid: peerCidVal,
					UdpMode: parseUdpMode(udpOn),
					Security: wire.SessionSecuritySettings{
						SecurityLevel:         level,
						SecureRandomizedRekey: rekey,
					},
				},
			})
			if err != nil {
				return fmt.Errorf("peer-connect: %w", err)
			}

			return printResponse(resp)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cid, "cid", "", "session connection id (required)")
	flags.StringVar(&peerCid, "peer-cid", "", "peer connection id (required)")
	flags.BoolVar(&udpOn, "udp", false, "enable UDP mode for this peer link")
	flags.StringVar(&security, "security", "standard", "security level: standard, reinforced, highest")
	flags.BoolVar(&rekey, "rekey", false, "enable secure randomized rekeying")

	return cmd
}

// --- peer-disconnect ---

func peerDisconnectCmd() *cobra.Command {
	var (
		cid     string
		peerCid string
	)

	cmd := &cobra.Command{
		Use:   "peer-disconnect",
		Short: "Close a direct link to a peer",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cidVal, err := parseCid(cid)
			if err != nil {
				return err
			}
			peerCidVal, err := parsePeerCid(peerCid)
			if err != nil {
				return err
			}

			c, err := dial()
			if err != nil {
				return fmt.Errorf("dial daemon: %w", err)
			}
			defer c.Close()

			resp, err := c.Call(&wire.Request{
				Tag: wire.RequestTagPeerDisconnect,
				PeerDisconnect: &wire.PeerDisconnectRequest{
					Cid:     cidVal,
					PeerCid: peerCidVal,
				},
			})
			if err != nil {
				return fmt.Errorf("peer-disconnect: %w", err)
			}

			return printResponse(resp)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cid, "cid", "", "session connection id (required)")
	flags.StringVar(&peerCid, "peer-cid", "", "peer connection id (required)")

	return cmd
}
