package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"go.uber.org/zap"

	"github.com/kailas-cloud/searchplane/internal/domain"
	"github.com/kailas-cloud/searchplane/internal/metrics"
)

// DefaultBackoff is the pause before re-subscribing after a dropped subscription.
const DefaultBackoff = 2 * time.Second

const envelopeSchemaURL = "searchplane://notify/envelope.json"

const envelopeSchema = `{
	"type": "object",
	"required": ["app_id"],
	"properties": {
		"app_id": {"type": "string", "minLength": 1},
		"index_id": {"type": "string"}
	}
}`

// Bridge outcomes recorded in metrics.
const (
	resultDelivered      = "delivered"
	resultInvalid        = "invalid"
	resultMissingPayload = "missing_payload"
)

var errMissingPayload = errors.New("payload key missing")

// Subscriber consumes a pub/sub channel. Subscribe blocks until ctx is
// done or the subscription fails.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string, handler func([]byte)) error
}

// Broadcaster delivers a payload to a bucket.
type Broadcaster interface {
	Broadcast(ref domain.RepositoryReference, payload any) error
}

// BridgeConfig configures one bridge.
type BridgeConfig struct {
	Channel    string
	PayloadKey string
	Backoff    time.Duration
}

// Bridge relays messages of the form {"app_id", "index_id", <payload_key>: ...}
// from one channel to the registry.
type Bridge struct {
	sub    Subscriber
	out    Broadcaster
	cfg    BridgeConfig
	schema *jsonschema.Schema
	logger *zap.Logger
}

// NewBridge creates a bridge.
func NewBridge(sub Subscriber, out Broadcaster, cfg BridgeConfig, logger *zap.Logger) (*Bridge, error) {
	if cfg.Channel == "" || cfg.PayloadKey == "" {
		return nil, errors.New("bridge channel and payload key are required")
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultBackoff
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	schema, err := compileEnvelope()
	if err != nil {
		return nil, err
	}

	return &Bridge{
		sub:    sub,
		out:    out,
		cfg:    cfg,
		schema: schema,
		logger: logger.With(zap.String("channel", cfg.Channel)),
	}, nil
}

func compileEnvelope() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(envelopeSchema))
	if err != nil {
		return nil, fmt.Errorf("parse envelope schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(envelopeSchemaURL, doc); err != nil {
		return nil, fmt.Errorf("add envelope schema: %w", err)
	}
	schema, err := c.Compile(envelopeSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile envelope schema: %w", err)
	}
	return schema, nil
}

// Run consumes the channel until ctx is cancelled, re-subscribing after a
// backoff whenever the subscription drops.
func (b *Bridge) Run(ctx context.Context) {
	b.logger.Info("bridge started", zap.String("payload_key", b.cfg.PayloadKey))
	for {
		err := b.sub.Subscribe(ctx, b.cfg.Channel, b.handle)
		if ctx.Err() != nil {
			b.logger.Info("bridge stopped")
			return
		}
		b.logger.Warn("subscription dropped, retrying",
			zap.Duration("backoff", b.cfg.Backoff),
			zap.Error(err),
		)

		timer := time.NewTimer(b.cfg.Backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			b.logger.Info("bridge stopped")
			return
		case <-timer.C:
		}
	}
}

func (b *Bridge) handle(msg []byte) {
	result := resultDelivered
	if err := b.deliver(msg); err != nil {
		result = resultInvalid
		if errors.Is(err, errMissingPayload) {
			result = resultMissingPayload
		}
		b.logger.Warn("bridge message dropped", zap.String("reason", result), zap.Error(err))
	}
	metrics.BridgeMessagesTotal.WithLabelValues(b.cfg.Channel, result).Inc()
}

func (b *Bridge) deliver(msg []byte) error {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(msg))
	if err != nil {
		return fmt.Errorf("decode message: %w", err)
	}
	if err := b.schema.Validate(inst); err != nil {
		return fmt.Errorf("validate message: %w", err)
	}

	obj := inst.(map[string]any)
	payload, ok := obj[b.cfg.PayloadKey]
	if !ok {
		return fmt.Errorf("%w: %q", errMissingPayload, b.cfg.PayloadKey)
	}

	appID, _ := obj["app_id"].(string)
	indexID, _ := obj["index_id"].(string)
	ref := domain.NewReference(appID, indexID)
	if err := ref.Validate(false); err != nil {
		return err
	}
	if err := b.out.Broadcast(ref, payload); err != nil {
		return fmt.Errorf("broadcast: %w", err)
	}
	return nil
}
