//go:build lambda

package main

import (
	"brokerfront/internal/backends"
	"brokerfront/internal/cache"
	"brokerfront/internal/config"
	"brokerfront/internal/fetcher"
	"brokerfront/internal/warmer"
	"context"

	"github.com/aws/aws-lambda-go/lambda"
	log "github.com/sirupsen/logrus"
)

func main() {
	// Load environment variables
	config.LoadEnvFile()
	config.ConfigureLogging()

	ctx := context.Background()
	settings, err := config.FromEnv()
	if err != nil {
		log.Fatalf("Failed to read settings: %v", err)
	}

	durable, err := backends.DurableBackendFromEnv(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize durable cache: %v", err)
	}

	f := fetcher.New(settings.LookupBaseURL,
		fetcher.WithTimeout(settings.FetchTimeout),
		fetcher.WithBreaker(settings.BreakerFailures, settings.BreakerCooldown),
	)
	c := cache.NewTieredCache(cache.NewSyncTier(), durable)
	if err := c.Hydrate(ctx); err != nil {
		log.WithError(err).Warn("Starting without hydrated cache")
	}

	// Start Lambda runtime
	lambda.Start(warmer.New(f, c).HandleSQSEvent)
}
