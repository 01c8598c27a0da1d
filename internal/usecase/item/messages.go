package item

import (
	"github.com/kailas-cloud/searchplane/internal/domain"
	"github.com/kailas-cloud/searchplane/internal/pipeline"
)

// Message names.
const (
	IndexItemsName  = "index_items"
	DeleteItemsName = "delete_items"
)

// IndexItems adds or replaces items in an index.
type IndexItems struct {
	pipeline.Envelope
	pipeline.Write
	pipeline.Loggable
	Items []domain.Item
}

// MessageName implements pipeline.Message.
func (*IndexItems) MessageName() string { return IndexItemsName }

// DeleteItems removes items from an index.
type DeleteItems struct {
	pipeline.Envelope
	pipeline.Write
	pipeline.Loggable
	UUIDs []domain.ItemUUID
}

// MessageName implements pipeline.Message.
func (*DeleteItems) MessageName() string { return DeleteItemsName }
