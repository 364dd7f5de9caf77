// Command chatctl talks to a running realtime server from a terminal.
package main

import (
	"fmt"
	"os"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "chatctl: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	config, err := LoadConfig()
	if err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := newRootCmd(config, os.Stdout).Execute(); err != nil {
		return exitRuntime, err
	}
	return exitOK, nil
}
