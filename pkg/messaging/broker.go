package messaging

import (
	"context"
	"encoding/json"
)

// Broker defines the interface for message brokers
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// Message is the envelope every published event travels in. Payload stays
// raw so subscribers decode it into their own types.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}
