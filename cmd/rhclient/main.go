package main

import (
	"os"

	"github.com/robinhood-client/robinhood-client-go/cmd"
)

func main() {
	rootCmd := cmd.NewCommand()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
