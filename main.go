// main.go
//
// Entry point for the megaverse CLI.

package main

import (
	"os"

	"github.com/rs/zerolog/log"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		log.Error().Err(err).Msg("megaverse exited")
		os.Exit(1)
	}
}
