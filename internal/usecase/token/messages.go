package token

import (
	"github.com/kailas-cloud/searchplane/internal/domain"
	"github.com/kailas-cloud/searchplane/internal/pipeline"
)

// Message names.
const (
	PutTokenName     = "put_token"
	DeleteTokenName  = "delete_token"
	DeleteTokensName = "delete_tokens"
	GetTokensName    = "get_tokens"
)

// PutToken creates or replaces a token of the referenced app.
type PutToken struct {
	pipeline.Envelope
	pipeline.Write
	pipeline.Admin
	pipeline.Loggable
	Token domain.Token
}

// MessageName implements pipeline.Message.
func (*PutToken) MessageName() string { return PutTokenName }

// DeleteToken removes one token.
type DeleteToken struct {
	pipeline.Envelope
	pipeline.Write
	pipeline.Admin
	pipeline.Loggable
	TokenUUID string
}

// MessageName implements pipeline.Message.
func (*DeleteToken) MessageName() string { return DeleteTokenName }

// DeleteTokens removes every token of the referenced app.
type DeleteTokens struct {
	pipeline.Envelope
	pipeline.Write
	pipeline.Admin
	pipeline.Loggable
}

// MessageName implements pipeline.Message.
func (*DeleteTokens) MessageName() string { return DeleteTokensName }

// GetTokens lists the tokens of the referenced app.
type GetTokens struct {
	pipeline.Envelope
	pipeline.Admin
}

// MessageName implements pipeline.Message.
func (*GetTokens) MessageName() string { return GetTokensName }
