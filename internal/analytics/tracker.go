package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/cartflow/internal/checkout"
	"github.com/angelmondragon/cartflow/internal/orders"
	"github.com/angelmondragon/cartflow/pkg/enums"
	"github.com/angelmondragon/cartflow/pkg/logger"
	"github.com/angelmondragon/cartflow/pkg/pubsub"
)

const defaultPublishTimeout = 5 * time.Second

type failureRecorder interface {
	IncAnalyticsFailure(event string)
}

// Tracker publishes storefront events to Pub/Sub. Calls return immediately;
// publishing happens on a background goroutine with its own deadline, and
// failures are only logged and counted.
type Tracker struct {
	pub     pubsub.Publisher
	timeout time.Duration
	metrics failureRecorder
	logg    *logger.Logger
	now     func() time.Time
	wg      sync.WaitGroup
}

// NewTracker builds a Pub/Sub backed tracker. metrics may be nil.
func NewTracker(pub pubsub.Publisher, timeout time.Duration, metrics failureRecorder, logg *logger.Logger) (*Tracker, error) {
	if pub == nil {
		return nil, fmt.Errorf("analytics publisher required")
	}
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Tracker{
		pub:     pub,
		timeout: timeout,
		metrics: metrics,
		logg:    logg,
		now:     time.Now,
	}, nil
}

func (t *Tracker) TrackAddShippingInfo(ctx context.Context, sessionID string, snapshot checkout.State) {
	event := AddShippingInfoEvent{
		ShippingTier: snapshot.ShippingMethodTitle(),
		ShippingCost: snapshot.ShippingCost.StringFixed(2),
		Destination: AddressBrief{
			City:     snapshot.Shipping.City,
			State:    snapshot.Shipping.State,
			Postcode: snapshot.Shipping.Postcode,
			Country:  snapshot.Shipping.Country,
		},
	}
	if snapshot.Coupon != nil {
		event.Coupon = snapshot.Coupon.Code
	}
	t.emit(ctx, enums.AnalyticsEventAddShippingInfo, sessionID, event)
}

func (t *Tracker) TrackPurchase(ctx context.Context, sessionID string, payload *orders.OrderPayload, result orders.Result) {
	event := PurchaseEvent{
		OrderID:  result.OrderID,
		Number:   result.Number,
		Total:    result.Total,
		Replayed: result.Replayed,
		Coupons:  []string{},
		Items:    []PurchaseItem{},
	}
	if payload != nil {
		event.PaymentMethod = payload.PaymentMethod
		if len(payload.ShippingLines) > 0 {
			event.ShippingTier = payload.ShippingLines[0].MethodTitle
			event.ShippingTotal = payload.ShippingLines[0].Total
		}
		for _, c := range payload.CouponLines {
			event.Coupons = append(event.Coupons, c.Code)
		}
		for _, li := range payload.LineItems {
			event.Items = append(event.Items, PurchaseItem{
				ProductID:   li.ProductID,
				VariationID: li.VariationID,
				Quantity:    li.Quantity,
			})
		}
	}
	t.emit(ctx, enums.AnalyticsEventPurchase, sessionID, event)
}

// Wait blocks until in-flight publishes finish.
func (t *Tracker) Wait() {
	t.wg.Wait()
}

func (t *Tracker) emit(ctx context.Context, eventType enums.AnalyticsEventType, sessionID string, payload any) {
	ctx = t.logg.WithFields(ctx, map[string]any{
		"event_type": eventType.String(),
		"session_id": sessionID,
	})
	data, err := t.encode(eventType, sessionID, payload)
	if err != nil {
		t.fail(ctx, eventType, fmt.Errorf("encode analytics event: %w", err))
		return
	}

	detached := context.WithoutCancel(ctx)
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		pubCtx, cancel := context.WithTimeout(detached, t.timeout)
		defer cancel()

		res := t.pub.Publish(pubCtx, &pubsub.Message{
			Data: data,
			Attributes: map[string]string{
				"event_type": eventType.String(),
				"session_id": sessionID,
			},
		})
		if _, err := res.Get(pubCtx); err != nil {
			t.fail(detached, eventType, fmt.Errorf("publish analytics event: %w", err))
			return
		}
		t.logg.Debug(detached, "analytics event published")
	}()
}

func (t *Tracker) encode(eventType enums.AnalyticsEventType, sessionID string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{
		EventID:    uuid.NewString(),
		EventType:  eventType,
		SessionID:  sessionID,
		OccurredAt: t.now().UTC(),
		Payload:    raw,
	})
}

func (t *Tracker) fail(ctx context.Context, eventType enums.AnalyticsEventType, err error) {
	if t.metrics != nil {
		t.metrics.IncAnalyticsFailure(eventType.String())
	}
	t.logg.Warn(ctx, err.Error())
}

// Noop drops every event. It stands in when analytics is disabled.
type Noop struct{}

func (Noop) TrackAddShippingInfo(context.Context, string, checkout.State) {}

func (Noop) TrackPurchase(context.Context, string, *orders.OrderPayload, orders.Result) {}
