// Package events publishes dataset lifecycle events to NATS.
package events

import (
	"context"
	"time"
)

// Event topic constants
const (
	TopicAll               = "gridq.>"
	TopicDatasetLoaded     = "gridq.dataset.loaded"
	TopicDatasetLoadFailed = "gridq.dataset.load_failed"
)

// DatasetLoaded is published after a dataset snapshot has been swapped in.
type DatasetLoaded struct {
	Dataset    string        `json:"dataset"`
	SnapshotID string        `json:"snapshot_id"`
	Source     string        `json:"source"`
	Rows       int           `json:"rows"`
	LoadedAt   time.Time     `json:"loaded_at"`
	Took       time.Duration `json:"took_ns"`
}

// DatasetLoadFailed is published when a load fails. The previous snapshot, if
// any, keeps serving.
type DatasetLoadFailed struct {
	Dataset string `json:"dataset"`
	Source  string `json:"source"`
	Error   string `json:"error"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

// Message is a raw event received from the bus.
type Message struct {
	Topic string
	Data  []byte
}

// Subscriber receives events from the event bus.
type Subscriber interface {
	// Subscribe delivers messages on the returned channel until the returned
	// cancel function is called, which also closes the channel.
	Subscribe(topic string) (<-chan Message, func(), error)
	Close() error
}
