package types

import "time"

type EventType string

const (
	EventDeployed EventType = "broker.deployed"
	EventCleared  EventType = "broker.cleared"
)

// DeployEvent announces a change of a tenant's cached config on the deploy topic.
type DeployEvent struct {
	Type     EventType `json:"type"`
	Tenant   string    `json:"tenant"`
	BrokerID string    `json:"brokerId,omitempty"`
	// At is in epoch milliseconds.
	At int64 `json:"at"`
}

func NewDeployEvent(t EventType, tenant, brokerID string, at time.Time) DeployEvent {
	return DeployEvent{Type: t, Tenant: tenant, BrokerID: brokerID, At: at.UnixMilli()}
}
