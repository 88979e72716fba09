package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream unsolicited daemon notifications",
		Long:  "Connects to the sessiond daemon and prints MessageReceived/Disconnected events as they arrive, until interrupted (Ctrl+C).",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c, err := dial()
			if err != nil {
				return fmt.Errorf("dial daemon: %w", err)
			}
			defer c.Close()

			fmt.Printf("watching as connection %s\n", c.Greeting.ConnectionId)

			go func() {
				<-ctx.Done()
				c.Close()
			}()

			for {
				resp, err := c.Recv()
				if err != nil {
					if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
						return nil
					}
					return fmt.Errorf("watch: %w", err)
				}

				if err := printResponse(resp); err != nil {
					return fmt.Errorf("format event: %w", err)
				}
			}
		},
	}

	return cmd
}
