package analytics

import (
	"encoding/json"
	"time"

	"github.com/angelmondragon/cartflow/pkg/enums"
)

// Envelope is the Pub/Sub message body for every storefront event.
type Envelope struct {
	EventID    string                   `json:"event_id"`
	EventType  enums.AnalyticsEventType `json:"event_type"`
	SessionID  string                   `json:"session_id"`
	OccurredAt time.Time                `json:"occurred_at"`
	Payload    json.RawMessage          `json:"payload"`
}

// AddShippingInfoEvent is sent when the shopper saves a shipping address.
type AddShippingInfoEvent struct {
	ShippingTier string       `json:"shipping_tier"`
	ShippingCost string       `json:"shipping_cost"`
	Coupon       string       `json:"coupon,omitempty"`
	Destination  AddressBrief `json:"destination"`
}

// AddressBrief is the coarse location kept for analytics; no names or phones.
type AddressBrief struct {
	City     string `json:"city"`
	State    string `json:"state"`
	Postcode string `json:"postcode"`
	Country  string `json:"country,omitempty"`
}

// PurchaseEvent is sent once the order API accepts an order.
type PurchaseEvent struct {
	OrderID       int64          `json:"order_id"`
	Number        string         `json:"number"`
	Total         string         `json:"total"`
	PaymentMethod string         `json:"payment_method"`
	ShippingTier  string         `json:"shipping_tier"`
	ShippingTotal string         `json:"shipping_total"`
	Coupons       []string       `json:"coupons"`
	Items         []PurchaseItem `json:"items"`
	Replayed      bool           `json:"replayed"`
}

type PurchaseItem struct {
	ProductID   int64 `json:"product_id"`
	VariationID int64 `json:"variation_id"`
	Quantity    int   `json:"quantity"`
}
