package warmer

import (
	"brokerfront/internal/cache"
	"brokerfront/internal/ports"
	"brokerfront/internal/types"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	json "github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
)

// Warmer keeps the durable tier in step with deploy events. Deployed tenants are refetched from the lookup
// endpoint and written through the tiered cache; cleared, missing or inactive tenants are removed.
type Warmer struct {
	Source ports.ConfigSource
	Cache  *cache.TieredCache
}

func New(source ports.ConfigSource, c *cache.TieredCache) *Warmer {
	return &Warmer{Source: source, Cache: c}
}

// HandleSQSEvent processes a batch. Failed records are reported individually so the queue redelivers only those.
func (w *Warmer) HandleSQSEvent(ctx context.Context, sqsEvent events.SQSEvent) (events.SQSEventResponse, error) {
	log.Infof("Processing batch of %d messages", len(sqsEvent.Records))

	var batchItemFailures []events.SQSBatchItemFailure
	for _, record := range sqsEvent.Records {
		if err := w.processMessage(ctx, record); err != nil {
			log.WithError(err).Errorf("Failed to process message %s", record.MessageId)
			batchItemFailures = append(batchItemFailures, events.SQSBatchItemFailure{
				ItemIdentifier: record.MessageId,
			})
		}
	}
	return events.SQSEventResponse{
		BatchItemFailures: batchItemFailures,
	}, nil
}

func (w *Warmer) processMessage(ctx context.Context, record events.SQSMessage) error {
	ev, err := ParseEvent(record.Body)
	if err != nil {
		return fmt.Errorf("parse message body: %w", err)
	}
	logger := log.WithFields(log.Fields{
		"tenant":    ev.Tenant,
		"type":      ev.Type,
		"messageID": record.MessageId,
	})

	switch ev.Type {
	case types.EventCleared:
		if err := w.Cache.Clear(ctx, ev.Tenant); err != nil {
			return err
		}
		logger.Info("Tenant cleared")
		return nil

	case types.EventDeployed:
		cfg, err := w.Source.Lookup(ctx, ev.Tenant)
		switch {
		case err == nil:
			if err := w.Cache.Set(ctx, ev.Tenant, *cfg); err != nil {
				return err
			}
			logger.Info("Tenant refreshed")
			return nil
		case errors.Is(err, types.ErrNotFound), errors.Is(err, types.ErrInactive):
			if err := w.Cache.Clear(ctx, ev.Tenant); err != nil {
				return err
			}
			logger.WithError(err).Info("Tenant no longer served, cleared")
			return nil
		default:
			return fmt.Errorf("lookup %s: %w", ev.Tenant, err)
		}

	default:
		logger.Warn("Unknown event type")
		return nil
	}
}

// ParseEvent decodes a deploy event from an SQS body, either raw or wrapped in an SNS notification envelope.
func ParseEvent(body string) (types.DeployEvent, error) {
	var ev types.DeployEvent
	var entity events.SNSEntity
	if err := json.Unmarshal([]byte(body), &entity); err != nil {
		return ev, err
	}
	if entity.Message != "" {
		body = entity.Message
	}
	if err := json.Unmarshal([]byte(body), &ev); err != nil {
		return ev, err
	}
	ev.Tenant = strings.ToLower(strings.TrimSpace(ev.Tenant))
	if ev.Tenant == "" {
		return ev, errors.New("missing tenant")
	}
	return ev, nil
}
