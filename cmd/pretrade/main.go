package main

import (
	"os"

	"github.com/rustyeddy/pretrade/cmd/pretrade/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
