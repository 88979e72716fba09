// sessionctl is the CLI client for the sessiond daemon.
package main

import "github.com/sessiongw/sessiond/cmd/sessionctl/commands"

func main() {
	commands.Execute()
}
