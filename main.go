package main

import (
	"github.com/sst/chatbody/cmd"
	"github.com/sst/chatbody/internal/logging"
	"github.com/sst/chatbody/internal/status"
)

func main() {
	defer logging.RecoverPanic("main", func() {
		status.Error("Application terminated due to unhandled panic")
	})

	cmd.Execute()
}
