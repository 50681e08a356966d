package main

import (
	"os"
	_ "time/tzdata"

	"github.com/ryosukesatoh/discord-digest/internal/observability"
)

// Version is overwritten at build time using -ldflags.
var Version = "dev"

func main() {
	if err := newRootCmd(Version).Execute(); err != nil {
		observability.Logger().Error("fatal", "error", err)
		os.Exit(1)
	}
}
