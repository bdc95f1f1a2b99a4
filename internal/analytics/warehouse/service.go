package warehouse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/cartflow/internal/analytics"
	"github.com/angelmondragon/cartflow/pkg/bigquery"
	"github.com/angelmondragon/cartflow/pkg/enums"
	"github.com/angelmondragon/cartflow/pkg/logger"
)

const (
	dedupeScope      = "analytics"
	defaultDedupeTTL = 72 * time.Hour
)

type tableInserter interface {
	InsertRows(ctx context.Context, table string, rows []any) error
}

type dedupeStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// Params wires the warehouse sink.
type Params struct {
	Subscription *gcppubsub.Subscriber
	Inserter     tableInserter
	Table        string
	Dedupe       dedupeStore
	DedupeTTL    time.Duration
	Logger       *logger.Logger
}

// Service copies checkout events from Pub/Sub into the warehouse table, once
// per event id.
type Service struct {
	subscription *gcppubsub.Subscriber
	inserter     tableInserter
	table        string
	dedupe       dedupeStore
	ttl          time.Duration
	logg         *logger.Logger
}

func NewService(p Params) (*Service, error) {
	if p.Inserter == nil {
		return nil, errors.New("warehouse inserter is required")
	}
	if strings.TrimSpace(p.Table) == "" {
		return nil, errors.New("warehouse table is required")
	}
	if p.Dedupe == nil {
		return nil, errors.New("dedupe store is required")
	}
	if p.Logger == nil {
		return nil, errors.New("logger is required")
	}
	ttl := p.DedupeTTL
	if ttl <= 0 {
		ttl = defaultDedupeTTL
	}
	return &Service{
		subscription: p.Subscription,
		inserter:     p.Inserter,
		table:        strings.TrimSpace(p.Table),
		dedupe:       p.Dedupe,
		ttl:          ttl,
		logg:         p.Logger,
	}, nil
}

type processResult struct {
	nack bool
}

// Run consumes events until the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	if s.subscription == nil {
		return errors.New("analytics subscription is required")
	}
	return s.subscription.Receive(ctx, func(innerCtx context.Context, msg *gcppubsub.Message) {
		if s.process(innerCtx, msg).nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

func (s *Service) process(ctx context.Context, msg *gcppubsub.Message) processResult {
	fields := map[string]any{"message_id": msg.ID}
	logCtx := s.logg.WithFields(ctx, fields)

	envelope, err := decodeEnvelope(msg)
	if err != nil {
		fields["error"] = err.Error()
		s.logg.Warn(s.logg.WithFields(ctx, fields), "invalid analytics envelope")
		return processResult{}
	}
	fields["event_id"] = envelope.EventID
	fields["event_type"] = envelope.EventType.String()
	logCtx = s.logg.WithSessionID(s.logg.WithFields(ctx, fields), envelope.SessionID)

	row, err := buildRow(envelope)
	if err != nil {
		s.logg.Warn(logCtx, "dropping malformed analytics payload")
		return processResult{}
	}

	key := s.dedupe.IdempotencyKey(dedupeScope, envelope.EventID)
	claimed, err := s.dedupe.SetNX(logCtx, key, "1", s.ttl)
	if err != nil {
		s.logg.Error(logCtx, "dedupe check failed", err)
		return processResult{nack: true}
	}
	if !claimed {
		s.logg.Info(logCtx, "event already stored")
		return processResult{}
	}

	if err := s.inserter.InsertRows(logCtx, s.table, []any{row}); err != nil {
		if delErr := s.dedupe.Del(context.WithoutCancel(logCtx), key); delErr != nil {
			s.logg.Error(logCtx, "failed to release dedupe key", delErr)
		}
		if !bigquery.IsRetryable(err) {
			s.logg.Error(logCtx, "warehouse rejected row", err)
			return processResult{}
		}
		s.logg.Error(logCtx, "failed to insert analytics row", err)
		return processResult{nack: true}
	}

	s.logg.Info(logCtx, "analytics event stored")
	return processResult{}
}

func decodeEnvelope(msg *gcppubsub.Message) (*analytics.Envelope, error) {
	var envelope analytics.Envelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	eventType := envelope.EventType
	if eventType == "" {
		eventType = enums.AnalyticsEventType(strings.TrimSpace(msg.Attributes["event_type"]))
	}
	parsed, err := enums.ParseAnalyticsEventType(string(eventType))
	if err != nil {
		return nil, fmt.Errorf("event_type: %w", err)
	}
	envelope.EventType = parsed

	envelope.EventID = strings.TrimSpace(envelope.EventID)
	if _, err := uuid.Parse(envelope.EventID); err != nil {
		return nil, fmt.Errorf("event_id: %w", err)
	}
	if envelope.SessionID == "" {
		envelope.SessionID = strings.TrimSpace(msg.Attributes["session_id"])
	}
	if envelope.OccurredAt.IsZero() {
		envelope.OccurredAt = msg.PublishTime
	}
	envelope.OccurredAt = envelope.OccurredAt.UTC()
	return &envelope, nil
}

type eventRow struct {
	EventID      string             `bigquery:"event_id"`
	EventType    string             `bigquery:"event_type"`
	SessionID    string             `bigquery:"session_id"`
	OccurredAt   time.Time          `bigquery:"occurred_at"`
	OrderID      *int64             `bigquery:"order_id"`
	Total        *string            `bigquery:"total"`
	ShippingTier *string            `bigquery:"shipping_tier"`
	Payload      cbigquery.NullJSON `bigquery:"payload"`
}

func buildRow(envelope *analytics.Envelope) (*eventRow, error) {
	row := &eventRow{
		EventID:    envelope.EventID,
		EventType:  envelope.EventType.String(),
		SessionID:  envelope.SessionID,
		OccurredAt: envelope.OccurredAt,
	}
	if len(envelope.Payload) > 0 {
		row.Payload = cbigquery.NullJSON{JSONVal: string(envelope.Payload), Valid: true}
	}

	switch envelope.EventType {
	case enums.AnalyticsEventPurchase:
		var event analytics.PurchaseEvent
		if err := json.Unmarshal(envelope.Payload, &event); err != nil {
			return nil, fmt.Errorf("decode purchase: %w", err)
		}
		if event.OrderID > 0 {
			row.OrderID = &event.OrderID
		}
		row.Total = stringPtr(event.Total)
		row.ShippingTier = stringPtr(event.ShippingTier)
	case enums.AnalyticsEventAddShippingInfo:
		var event analytics.AddShippingInfoEvent
		if err := json.Unmarshal(envelope.Payload, &event); err != nil {
			return nil, fmt.Errorf("decode shipping info: %w", err)
		}
		row.ShippingTier = stringPtr(event.ShippingTier)
	}
	return row, nil
}

func stringPtr(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
