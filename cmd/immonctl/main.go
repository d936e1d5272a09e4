package main

import (
	"os"

	"github.com/jepsonlabs/immich-monitor/cmd/immonctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
