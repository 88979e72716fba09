package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// shellCommands lists the available commands for the interactive shell help output.
var shellCommands = []struct {
	name string
	desc string
}{
	{"connect --username <u>", "Authenticate and open a session"},
	{"register --server <addr> --username <u>", "Register a new account"},
	{"message --cid <c> <text>", "Send a message over a session or peer link"},
	{"disconnect <cid>", "Close an open session"},
	{"peer-register --cid <c> --peer-cid <p>", "Register a peer within a session"},
	{"peer-connect --cid <c> --peer-cid <p>", "Open a direct link to a peer"},
	{"peer-disconnect --cid <c> --peer-cid <p>", "Close a direct link to a peer"},
	{"send-file --cid <c> <path>", "Send a file over a session or peer link"},
	{"download-file --cid <c> <path>", "Pull a file from a peer"},
	{"start-group --cid <c>", "Start a group session"},
	{"watch", "Stream unsolicited daemon notifications"},
	{"version", "Print build information"},
	{"help", "Show this help message"},
	{"exit / quit", "Leave the interactive shell"},
}

func shellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive sessionctl shell",
		Long:  "Launches a simple REPL that accepts sessionctl subcommands. Type 'help', 'exit', or 'quit'.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			printShellBanner()
			scanner := bufio.NewScanner(os.Stdin)
			fmt.Print("sessionctl> ")

			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())

				switch {
				case line == "exit" || line == "quit":
					return nil
				case line == "help" || line == "?":
					printShellHelp()
				case line != "":
					args := strings.Fields(line)
					rootCmd.SetArgs(args)

					if err := rootCmd.Execute(); err != nil {
						fmt.Fprintln(os.Stderr, "Error:", err)
					}
				}

				fmt.Print("sessionctl> ")
			}

			if err := scanner.Err(); err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}

			return nil
		},
	}
}

// printShellBanner prints a welcome message when the shell starts.
func printShellBanner() {
	fmt.Println("sessionctl interactive shell. Type 'help' for available commands, 'exit' to quit.")
	fmt.Println()
}

// printShellHelp prints a formatted list of available shell commands.
func printShellHelp() {
	fmt.Println("Available commands:")
	fmt.Println()

	for _, cmd := range shellCommands {
		fmt.Printf("  %-30s %s\n", cmd.name, cmd.desc)
	}

	fmt.Println()
}
