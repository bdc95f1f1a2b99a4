package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/cartflow/internal/checkout"
	"github.com/angelmondragon/cartflow/internal/orders"
	"github.com/angelmondragon/cartflow/pkg/enums"
	"github.com/angelmondragon/cartflow/pkg/logger"
	"github.com/angelmondragon/cartflow/pkg/pubsub"
	"github.com/angelmondragon/cartflow/pkg/types"
)

type fakeResult struct {
	id  string
	err error
}

func (r fakeResult) Get(context.Context) (string, error) {
	return r.id, r.err
}

type fakePublisher struct {
	mu      sync.Mutex
	msgs    []*pubsub.Message
	err     error
	release chan struct{}
}

func (p *fakePublisher) Publish(ctx context.Context, msg *pubsub.Message) pubsub.PublishResult {
	if p.release != nil {
		<-p.release
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return fakeResult{id: "msg-1", err: p.err}
}

func (p *fakePublisher) Stop() {}

func (p *fakePublisher) messages() []*pubsub.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*pubsub.Message(nil), p.msgs...)
}

type countingMetrics struct {
	mu       sync.Mutex
	failures map[string]int
}

func (c *countingMetrics) IncAnalyticsFailure(event string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failures == nil {
		c.failures = map[string]int{}
	}
	c.failures[event]++
}

func decodeEnvelope(t *testing.T, msg *pubsub.Message) Envelope {
	t.Helper()
	var env Envelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return env
}

func TestNewTrackerRequiresPublisher(t *testing.T) {
	if _, err := NewTracker(nil, time.Second, nil, nil); err == nil {
		t.Fatal("expected nil publisher to fail")
	}
}

func TestTrackAddShippingInfoPublishesEnvelope(t *testing.T) {
	pub := &fakePublisher{}
	tracker, err := NewTracker(pub, time.Second, nil, logger.Nop())
	if err != nil {
		t.Fatalf("new tracker: %v", err)
	}

	state := checkout.NewState()
	state.Shipping = types.Address{FirstName: "Ada", Phone: "5125550100", City: "Austin", State: "TX", Postcode: "73301"}
	state.ShippingMethodID = "free_shipping"
	state.ShippingCost = decimal.Zero
	state.Coupon = &checkout.Coupon{Code: "SAVE10"}

	tracker.TrackAddShippingInfo(context.Background(), "sess-1", state)
	tracker.Wait()

	msgs := pub.messages()
	if len(msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(msgs))
	}
	if msgs[0].Attributes["event_type"] != "add_shipping_info" || msgs[0].Attributes["session_id"] != "sess-1" {
		t.Fatalf("unexpected attributes %v", msgs[0].Attributes)
	}
	env := decodeEnvelope(t, msgs[0])
	if env.EventType != enums.AnalyticsEventAddShippingInfo || env.EventID == "" {
		t.Fatalf("unexpected envelope %+v", env)
	}
	var event AddShippingInfoEvent
	if err := json.Unmarshal(env.Payload, &event); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if event.ShippingTier != "Free Shipping" || event.ShippingCost != "0.00" || event.Coupon != "SAVE10" {
		t.Fatalf("unexpected event %+v", event)
	}
	if event.Destination.Postcode != "73301" {
		t.Fatalf("unexpected destination %+v", event.Destination)
	}
}

func TestTrackPurchaseSummarizesPayload(t *testing.T) {
	pub := &fakePublisher{}
	tracker, err := NewTracker(pub, time.Second, nil, nil)
	if err != nil {
		t.Fatalf("new tracker: %v", err)
	}
	payload := &orders.OrderPayload{
		PaymentMethod: "stripe",
		LineItems:     []orders.LineItemPayload{{ProductID: 1, VariationID: 2, Quantity: 3}},
		ShippingLines: []orders.ShippingLine{{MethodID: "flat_rate", MethodTitle: "Flat Rate", Total: "5.00"}},
		CouponLines:   []orders.CouponLine{{Code: "SAVE10"}},
	}
	tracker.TrackPurchase(context.Background(), "sess-2", payload, orders.Result{OrderID: 99, Number: "99", Total: "41.00"})
	tracker.Wait()

	env := decodeEnvelope(t, pub.messages()[0])
	var event PurchaseEvent
	if err := json.Unmarshal(env.Payload, &event); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if event.OrderID != 99 || event.ShippingTotal != "5.00" || len(event.Items) != 1 || event.Items[0].Quantity != 3 {
		t.Fatalf("unexpected purchase event %+v", event)
	}
	if len(event.Coupons) != 1 || event.Coupons[0] != "SAVE10" {
		t.Fatalf("unexpected coupons %v", event.Coupons)
	}
}

func TestTrackDoesNotBlockCaller(t *testing.T) {
	pub := &fakePublisher{release: make(chan struct{})}
	tracker, err := NewTracker(pub, time.Second, nil, nil)
	if err != nil {
		t.Fatalf("new tracker: %v", err)
	}

	done := make(chan struct{})
	go func() {
		tracker.TrackAddShippingInfo(context.Background(), "sess", checkout.NewState())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("tracking blocked on the publisher")
	}
	close(pub.release)
	tracker.Wait()
}

func TestTrackSurvivesCancelledRequest(t *testing.T) {
	pub := &fakePublisher{}
	tracker, err := NewTracker(pub, time.Second, nil, nil)
	if err != nil {
		t.Fatalf("new tracker: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tracker.TrackAddShippingInfo(ctx, "sess", checkout.NewState())
	tracker.Wait()
	if len(pub.messages()) != 1 {
		t.Fatal("event should publish after the request context ends")
	}
}

func TestPublishFailureIsCounted(t *testing.T) {
	pub := &fakePublisher{err: errors.New("unavailable")}
	metrics := &countingMetrics{}
	tracker, err := NewTracker(pub, time.Second, metrics, nil)
	if err != nil {
		t.Fatalf("new tracker: %v", err)
	}
	tracker.TrackPurchase(context.Background(), "sess", nil, orders.Result{OrderID: 1})
	tracker.Wait()

	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	if metrics.failures["purchase"] != 1 {
		t.Fatalf("expected purchase failure to be counted, got %v", metrics.failures)
	}
}

func TestNoopSatisfiesTrackers(t *testing.T) {
	var _ checkout.ShippingInfoTracker = Noop{}
	var _ orders.PurchaseTracker = Noop{}
	var _ checkout.ShippingInfoTracker = (*Tracker)(nil)
	var _ orders.PurchaseTracker = (*Tracker)(nil)
}
