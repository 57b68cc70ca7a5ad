// Command pulse runs the Pulse feed service and its maintenance tasks.
package main

import (
	"os"

	"pulse/internal/observability"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		observability.Logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}
