package searchplane

import (
	"github.com/kailas-cloud/searchplane/internal/domain"
	"github.com/kailas-cloud/searchplane/internal/domain/search/aggregation"
	domquery "github.com/kailas-cloud/searchplane/internal/domain/search/query"
	"github.com/kailas-cloud/searchplane/internal/pipeline"
	queryuc "github.com/kailas-cloud/searchplane/internal/usecase/query"
)

// Policy controls what happens to the events and log entries of a request.
type Policy = pipeline.PolicyMode

// Policy constants.
const (
	PolicyIgnore = pipeline.PolicyIgnore
	PolicyInline = pipeline.PolicyInline
	PolicyQueued = pipeline.PolicyQueued
)

// ApplicationType decides how filter values combine and how counters are shaped.
type ApplicationType = domquery.ApplicationType

// Application types.
const (
	MustAll           = domquery.MustAll
	MustAllWithLevels = domquery.MustAllWithLevels
	AtLeastOne        = domquery.AtLeastOne
	Exclude           = domquery.Exclude
)

// Item and query types shared with the server.
type (
	Item         = domain.Item
	ItemUUID     = domain.ItemUUID
	Token        = domain.Token
	Event        = domain.DomainEvent
	LogEntry     = domain.LogEntry
	Query        = domquery.Query
	Filter       = domquery.Filter
	Aggregation  = domquery.Aggregation
	QueryResult  = queryuc.Response
	Aggregations = aggregation.Result
)
