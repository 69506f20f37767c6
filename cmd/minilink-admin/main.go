package main

import (
	"os"

	"github.com/minilink/backend/cmd/minilink-admin/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
