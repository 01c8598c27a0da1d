package domain

import (
	"fmt"
	"strings"
)

// ItemUUID identifies an item inside an index.
type ItemUUID struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// Composed returns "id~type".
func (u ItemUUID) Composed() string {
	return u.ID + "~" + u.Type
}

// ParseItemUUID splits a composed "id~type" value.
func ParseItemUUID(composed string) (ItemUUID, error) {
	id, typ, ok := strings.Cut(composed, "~")
	if !ok || id == "" || typ == "" {
		return ItemUUID{}, fmt.Errorf("%w: item uuid %q", ErrMalformedInput, composed)
	}
	return ItemUUID{ID: id, Type: typ}, nil
}

// Validate checks that both parts are present.
func (u ItemUUID) Validate() error {
	if u.ID == "" || u.Type == "" {
		return &MalformedInputError{ItemID: u.ID, ItemType: u.Type, Reason: "id and type are required"}
	}
	return nil
}

// Item is a searchable document.
// IndexedMetadata values are used for filtering and aggregations; hierarchical
// values use the counter key encoding "id##1|name##Shoes|level##1".
type Item struct {
	UUID            ItemUUID       `json:"uuid"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	IndexedMetadata map[string]any `json:"indexed_metadata,omitempty"`
	SearchableText  string         `json:"searchable_text,omitempty"`
	Score           float64        `json:"score,omitempty"`
}
