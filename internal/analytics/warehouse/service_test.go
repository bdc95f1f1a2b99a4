package warehouse

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"google.golang.org/api/googleapi"

	"github.com/angelmondragon/cartflow/internal/analytics"
	"github.com/angelmondragon/cartflow/pkg/enums"
	"github.com/angelmondragon/cartflow/pkg/logger"
)

type fakeInserter struct {
	rows []any
	err  error
}

func (f *fakeInserter) InsertRows(_ context.Context, table string, rows []any) error {
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, rows...)
	return nil
}

type fakeDedupe struct {
	keys    map[string]bool
	deleted []string
	err     error
}

func newFakeDedupe() *fakeDedupe {
	return &fakeDedupe{keys: map[string]bool{}}
}

func (f *fakeDedupe) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.keys[key] {
		return false, nil
	}
	f.keys[key] = true
	return true, nil
}

func (f *fakeDedupe) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.keys, key)
		f.deleted = append(f.deleted, key)
	}
	return nil
}

func (f *fakeDedupe) IdempotencyKey(scope, id string) string {
	return scope + ":" + id
}

func mustService(t *testing.T, inserter *fakeInserter, dedupe *fakeDedupe) *Service {
	t.Helper()
	svc, err := NewService(Params{
		Inserter: inserter,
		Table:    "checkout_events",
		Dedupe:   dedupe,
		Logger:   logger.Nop(),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func purchaseMessage(t *testing.T, eventID string) *gcppubsub.Message {
	t.Helper()
	payload, err := json.Marshal(analytics.PurchaseEvent{
		OrderID:      101,
		Number:       "101",
		Total:        "44.98",
		ShippingTier: "Flat Rate",
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	data, err := json.Marshal(analytics.Envelope{
		EventID:    eventID,
		EventType:  enums.AnalyticsEventPurchase,
		SessionID:  "sess-1",
		OccurredAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Payload:    payload,
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return &gcppubsub.Message{ID: "m-1", Data: data, Attributes: map[string]string{"event_type": "purchase"}}
}

func TestProcessStoresPurchaseRow(t *testing.T) {
	inserter := &fakeInserter{}
	svc := mustService(t, inserter, newFakeDedupe())

	eventID := uuid.NewString()
	if res := svc.process(context.Background(), purchaseMessage(t, eventID)); res.nack {
		t.Fatal("expected ack")
	}
	if len(inserter.rows) != 1 {
		t.Fatalf("expected one row, got %d", len(inserter.rows))
	}
	row := inserter.rows[0].(*eventRow)
	if row.EventID != eventID || row.EventType != "purchase" || row.SessionID != "sess-1" {
		t.Fatalf("unexpected row identity %+v", row)
	}
	if row.OrderID == nil || *row.OrderID != 101 {
		t.Fatalf("expected order id 101, got %v", row.OrderID)
	}
	if row.Total == nil || *row.Total != "44.98" {
		t.Fatalf("unexpected total %v", row.Total)
	}
	if !row.Payload.Valid {
		t.Fatal("expected payload json to be kept")
	}
}

func TestProcessSkipsDuplicates(t *testing.T) {
	inserter := &fakeInserter{}
	svc := mustService(t, inserter, newFakeDedupe())

	msg := purchaseMessage(t, uuid.NewString())
	svc.process(context.Background(), msg)
	if res := svc.process(context.Background(), msg); res.nack {
		t.Fatal("duplicate should be acked")
	}
	if len(inserter.rows) != 1 {
		t.Fatalf("expected duplicate to be skipped, got %d rows", len(inserter.rows))
	}
}

func TestProcessDropsInvalidEnvelopes(t *testing.T) {
	inserter := &fakeInserter{}
	svc := mustService(t, inserter, newFakeDedupe())

	cases := map[string][]byte{
		"not json":     []byte("{"),
		"unknown type": []byte(`{"event_id":"` + uuid.NewString() + `","event_type":"page_view"}`),
		"bad event id": []byte(`{"event_id":"abc","event_type":"purchase","payload":{}}`),
		"bad purchase": []byte(`{"event_id":"` + uuid.NewString() + `","event_type":"purchase","payload":"x"}`),
	}
	for name, data := range cases {
		if res := svc.process(context.Background(), &gcppubsub.Message{Data: data}); res.nack {
			t.Fatalf("%s: invalid messages should be acked", name)
		}
	}
	if len(inserter.rows) != 0 {
		t.Fatalf("expected no rows, got %d", len(inserter.rows))
	}
}

func TestProcessReleasesKeyOnRetryableFailure(t *testing.T) {
	inserter := &fakeInserter{err: &googleapi.Error{Code: http.StatusServiceUnavailable}}
	dedupe := newFakeDedupe()
	svc := mustService(t, inserter, dedupe)

	eventID := uuid.NewString()
	if res := svc.process(context.Background(), purchaseMessage(t, eventID)); !res.nack {
		t.Fatal("expected nack on retryable failure")
	}
	if len(dedupe.deleted) != 1 || dedupe.keys["analytics:"+eventID] {
		t.Fatalf("expected dedupe key released, deleted=%v", dedupe.deleted)
	}
}

func TestProcessAcksPermanentRejection(t *testing.T) {
	inserter := &fakeInserter{err: &googleapi.Error{Code: http.StatusBadRequest}}
	svc := mustService(t, inserter, newFakeDedupe())

	if res := svc.process(context.Background(), purchaseMessage(t, uuid.NewString())); res.nack {
		t.Fatal("permanent rejection should not be redelivered")
	}
}

func TestProcessNacksWhenDedupeUnavailable(t *testing.T) {
	dedupe := newFakeDedupe()
	dedupe.err = errors.New("redis down")
	svc := mustService(t, &fakeInserter{}, dedupe)

	if res := svc.process(context.Background(), purchaseMessage(t, uuid.NewString())); !res.nack {
		t.Fatal("expected nack when dedupe store fails")
	}
}

func TestShippingInfoRowUsesAttributes(t *testing.T) {
	payload, _ := json.Marshal(analytics.AddShippingInfoEvent{ShippingTier: "Local Pickup"})
	data, _ := json.Marshal(map[string]any{
		"event_id": uuid.NewString(),
		"payload":  json.RawMessage(payload),
	})
	published := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	msg := &gcppubsub.Message{
		Data:        data,
		PublishTime: published,
		Attributes: map[string]string{
			"event_type": "add_shipping_info",
			"session_id": "sess-9",
		},
	}

	envelope, err := decodeEnvelope(msg)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	row, err := buildRow(envelope)
	if err != nil {
		t.Fatalf("build row: %v", err)
	}
	if row.SessionID != "sess-9" || !row.OccurredAt.Equal(published) {
		t.Fatalf("expected attribute fallbacks, got %+v", row)
	}
	if row.ShippingTier == nil || *row.ShippingTier != "Local Pickup" || row.OrderID != nil {
		t.Fatalf("unexpected shipping row %+v", row)
	}
}

func TestNewServiceValidatesParams(t *testing.T) {
	if _, err := NewService(Params{}); err == nil {
		t.Fatal("expected error without inserter")
	}
	svc, err := NewService(Params{Inserter: &fakeInserter{}, Table: "t", Dedupe: newFakeDedupe(), Logger: logger.Nop()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc.ttl != defaultDedupeTTL {
		t.Fatalf("expected default ttl, got %v", svc.ttl)
	}
	if err := svc.Run(context.Background()); err == nil {
		t.Fatal("expected run to fail without subscription")
	}
}
