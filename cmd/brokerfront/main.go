package main

import (
	"brokerfront/cmd/brokerfront/cmds"
	"brokerfront/internal/config"
	"context"
	"os"

	log "github.com/sirupsen/logrus"
)

func main() {
	config.LoadEnvFile()
	config.ConfigureLogging()

	if err := cmds.NewRootCmd().ExecuteContext(context.Background()); err != nil {
		log.WithError(err).Error("brokerfront failed")
		os.Exit(1)
	}
}
