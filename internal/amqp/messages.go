package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType says what happened to a source group.
type EventType string

const (
	EventCreated  EventType = "created"
	EventReplaced EventType = "replaced"
	EventDeleted  EventType = "deleted"
	// EventResync asks consumers to rebuild their view from the full ledger.
	EventResync EventType = "resync"
)

// LedgerEvent is a lightweight change notification. Consumers fetch the
// current state of the group from the store; the event carries no amounts.
type LedgerEvent struct {
	Type      EventType `json:"type"`
	SourceID  string    `json:"source_id,omitempty"`
	EntryID   string    `json:"entry_id,omitempty"` // set when a single entry was deleted
	Entries   int       `json:"entries"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerEvent stamps an event with the current time.
func NewLedgerEvent(t EventType, sourceID string, entries int) *LedgerEvent {
	return &LedgerEvent{
		Type:      t,
		SourceID:  sourceID,
		Entries:   entries,
		Timestamp: time.Now().UTC(),
	}
}

// Validate rejects events a consumer cannot act on.
func (e *LedgerEvent) Validate() error {
	switch e.Type {
	case EventCreated, EventReplaced, EventDeleted:
		if e.SourceID == "" {
			return fmt.Errorf("%s event without source id", e.Type)
		}
	case EventResync:
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}
	return nil
}

func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON decodes and validates an event body.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var ev LedgerEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	return &ev, nil
}
