package main

import (
	"os"

	"github.com/straight-pay/gateway-svc/internal/cli"
)

func main() {
	if !cli.Run(os.Args) {
		os.Exit(1)
	}
}
