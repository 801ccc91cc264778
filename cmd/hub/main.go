package main

import (
	"fmt"
	"os"

	"github.com/platinummonkey/hub/pkg/cli"
)

var version = "dev"

func main() {
	cli.Version = version
	rootCmd := cli.NewRootCommand()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
