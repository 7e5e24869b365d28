// # cmd/crateprune/main.go
package main

import (
	"crateprune/internal/ui/cli"
	"os"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
