// Package events publishes state-change events for steps and machine
// assignments over NATS. Dashboards and the realtime fan-out service consume
// them; the core never depends on a subscriber being present.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

type EventType string

const (
	StepStarted      EventType = "step.started"
	StepStopped      EventType = "step.stopped"
	StepReopened     EventType = "step.reopened"
	MachineAssigned  EventType = "machine.assigned"
	MachineProgress  EventType = "machine.progress"
	SnapshotRepaired EventType = "snapshot.repaired"
)

// StateChange describes one transition in the planning core.
type StateChange struct {
	EventID   string    `json:"eventId"`
	Type      EventType `json:"type"`
	JobID     string    `json:"jobId"`
	StepNo    int       `json:"stepNo"`
	StepID    uint      `json:"stepId"`
	MachineID uint      `json:"machineId,omitempty"`
	From      string    `json:"from,omitempty"`
	To        string    `json:"to,omitempty"`
	ActorID   uint      `json:"actorId,omitempty"`
	At        time.Time `json:"at"`
}

// Publisher sends state-change events. Best-effort: if the NATS connection
// cannot be established the publisher degrades to a no-op so a broker outage
// never fails a planning mutation.
type Publisher struct {
	conn     *nats.Conn
	tenantID string
	logger   zerolog.Logger
	noop     bool
}

func NewPublisher(natsURL, tenantID string, logger zerolog.Logger) *Publisher {
	nc, err := nats.Connect(natsURL)
	if err != nil {
		logger.Warn().Err(err).Str("url", natsURL).Msg("NATS unavailable, state-change events disabled")
		return &Publisher{tenantID: tenantID, logger: logger, noop: true}
	}
	return &Publisher{conn: nc, tenantID: tenantID, logger: logger}
}

// NewNoopPublisher returns a publisher that drops everything. Used by tests
// and by tools that run without a broker.
func NewNoopPublisher() *Publisher {
	return &Publisher{noop: true}
}

// Publish fills in the event id and timestamp, then sends the event on
// plant.<tenant>.job.<jobID>.events. Failures are logged, never returned.
func (p *Publisher) Publish(ev StateChange) {
	if p.noop {
		return
	}
	ev.EventID = uuid.NewString()
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	data, err := json.Marshal(ev)
	if err != nil {
		p.logger.Error().Err(err).Str("type", string(ev.Type)).Msg("marshal state-change event")
		return
	}

	subject := fmt.Sprintf("plant.%s.job.%s.events", p.tenantID, ev.JobID)
	if err := p.conn.Publish(subject, data); err != nil {
		p.logger.Warn().Err(err).Str("subject", subject).Msg("publish state-change event")
	}
}

// Close drains the connection.
func (p *Publisher) Close() {
	if p.noop || p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.logger.Warn().Err(err).Msg("drain NATS connection")
	}
}
