package main

import (
	"brimstone/cmd"
	"brimstone/logger"

	_ "go.uber.org/automaxprocs"
)

func main() {
	defer logger.Sync() // Ensure logs are flushed on exit
	cmd.Execute()
}
