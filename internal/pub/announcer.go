package pub

import (
	"brokerfront/internal/ports"
	"brokerfront/internal/types"
	"context"
	"time"

	json "github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
)

// Announcer publishes deploy events to the deploy topic. Without a publisher or a topic it does nothing.
type Announcer struct {
	pub   ports.Publisher
	topic string
	now   func() time.Time
}

func NewAnnouncer(p ports.Publisher, topic string) *Announcer {
	return &Announcer{pub: p, topic: topic, now: time.Now}
}

func (a *Announcer) Enabled() bool {
	return a != nil && a.pub != nil && a.topic != ""
}

func (a *Announcer) Deployed(ctx context.Context, cfg types.BrokerConfig) error {
	return a.announce(ctx, types.EventDeployed, cfg.Subdomain, cfg.BrokerID)
}

func (a *Announcer) Cleared(ctx context.Context, tenantKey string) error {
	return a.announce(ctx, types.EventCleared, tenantKey, "")
}

func (a *Announcer) announce(ctx context.Context, t types.EventType, tenantKey, brokerID string) error {
	if !a.Enabled() {
		return nil
	}
	ev := types.NewDeployEvent(t, tenantKey, brokerID, a.now())
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := a.pub.PublishRaw(ctx, a.topic, b); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"tenant": ev.Tenant,
			"type":   ev.Type,
		}).Error("Failed to publish deploy event")
		return err
	}
	return nil
}
