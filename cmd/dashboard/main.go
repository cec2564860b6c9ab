// cmd/dashboard/main.go
package main

import (
	"os"

	"respond-dashboard/cmd/dashboard/command"
)

func main() {
	if err := command.RootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
