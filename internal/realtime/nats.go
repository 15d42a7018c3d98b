package realtime

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/nats-io/nats.go"
)

// NATSBridge subscribes to state-change subjects and pushes events into the
// Hub.
type NATSBridge struct {
	conn     *nats.Conn
	hub      *Hub
	tenantID string
}

func NewNATSBridge(natsURL, tenantID string, hub *Hub) (*NATSBridge, error) {
	nc, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &NATSBridge{conn: nc, hub: hub, tenantID: tenantID}, nil
}

// Subscribe listens for state changes on plant.<tenantID>.job.*.events
func (b *NATSBridge) Subscribe() error {
	subject := fmt.Sprintf("plant.%s.job.*.events", b.tenantID)
	_, err := b.conn.Subscribe(subject, func(msg *nats.Msg) {
		jobID, err := parseJobIDFromSubject(msg.Subject)
		if err != nil {
			log.Printf("nats: bad subject %q: %v", msg.Subject, err)
			return
		}

		// Wrap the raw event payload in the outgoing envelope
		envelope := outgoingMsg{
			Type:    "job.state",
			JobID:   jobID,
			Payload: json.RawMessage(msg.Data),
		}
		data, err := json.Marshal(envelope)
		if err != nil {
			log.Printf("nats: marshal envelope: %v", err)
			return
		}

		b.hub.broadcast <- broadcastMsg{jobID: jobID, payload: data}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe %q: %w", subject, err)
	}

	log.Printf("NATS bridge subscribed to: %s", subject)
	return nil
}

// Close drains the NATS connection.
func (b *NATSBridge) Close() {
	if err := b.conn.Drain(); err != nil {
		log.Printf("nats drain: %v", err)
	}
}

// parseJobIDFromSubject extracts the job id from "plant.<tid>.job.<jobID>.events"
func parseJobIDFromSubject(subject string) (string, error) {
	parts := strings.Split(subject, ".")
	if len(parts) != 5 || parts[2] != "job" || parts[4] != "events" {
		return "", fmt.Errorf("unexpected subject layout")
	}
	if parts[3] == "" {
		return "", fmt.Errorf("empty job id")
	}
	return parts[3], nil
}
