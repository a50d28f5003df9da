// Command flightcore runs the telemetry ingestion and remote command server.
package main

import (
	"fmt"
	"os"

	"github.com/aeroline/flightcore/cmd/flightcore/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
