package main

import (
	"os"

	"github.com/evbridge/skoda-mqtt/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
