package main

import (
	"os"

	"blockvault/logx"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		logx.Error("CMD", "command execution failed: ", err)
		os.Exit(1)
	}
}
