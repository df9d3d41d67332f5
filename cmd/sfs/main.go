package main

import (
	"os"

	"github.com/mit-pdos/go-sfs/logger"
)

func main() {
	err := Execute()
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}
