package domain

import "time"

// DomainEvent is a fact raised by a handler during a dispatch.
type DomainEvent struct {
	Type       string         `json:"type"`
	Payload    map[string]any `json:"payload,omitempty"`
	OccurredOn int64          `json:"occurred_on"` // microseconds since epoch
}

// NewDomainEvent stamps an event with the current time.
func NewDomainEvent(eventType string, payload map[string]any) DomainEvent {
	return DomainEvent{
		Type:       eventType,
		Payload:    payload,
		OccurredOn: MicroEpoch(time.Now()),
	}
}

// Event types raised by the handlers.
const (
	EventItemsWereIndexed  = "items_were_indexed"
	EventItemsWereDeleted  = "items_were_deleted"
	EventQueryWasMade      = "query_was_made"
	EventTokenWasPut       = "token_was_put"
	EventTokenWasDeleted   = "token_was_deleted"
	EventTokensWereDeleted = "tokens_were_deleted"
)

// MicroEpoch returns t as microseconds since the unix epoch.
func MicroEpoch(t time.Time) int64 {
	return t.UnixMicro()
}
