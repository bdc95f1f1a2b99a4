package orders

import (
	"github.com/angelmondragon/cartflow/pkg/types"
)

// PaymentMethodTitle is the fixed title sent with every order.
const PaymentMethodTitle = "Online Payment"

// Meta data keys that lead every line item's meta_data list.
const (
	MetaKeyVariations = "variations"
	MetaKeyMetadata   = "metadata"
)

// OrderPayload is the order request understood by the WooCommerce REST API.
type OrderPayload struct {
	PaymentMethod      string            `json:"payment_method"`
	PaymentMethodTitle string            `json:"payment_method_title"`
	Billing            types.Address     `json:"billing"`
	Shipping           types.Address     `json:"shipping"`
	CustomerNote       string            `json:"customer_note"`
	LineItems          []LineItemPayload `json:"line_items"`
	ShippingLines      []ShippingLine    `json:"shipping_lines"`
	CouponLines        []CouponLine      `json:"coupon_lines"`
}

type LineItemPayload struct {
	ProductID   int64      `json:"product_id"`
	Quantity    int        `json:"quantity"`
	VariationID int64      `json:"variation_id"`
	MetaData    []MetaData `json:"meta_data"`
}

type MetaData struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

type ShippingLine struct {
	MethodID    string `json:"method_id"`
	MethodTitle string `json:"method_title"`
	Total       string `json:"total"`
}

type CouponLine struct {
	Code   string `json:"code"`
	UsedBy string `json:"used_by"`
}
