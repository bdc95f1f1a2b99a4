package checkout

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/cartflow/pkg/enums"
	"github.com/angelmondragon/cartflow/pkg/types"
)

// Coupon is an applied discount code plus the discount metadata shown to the shopper.
type Coupon struct {
	Code         string          `json:"code"`
	DiscountType string          `json:"discount_type,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	Description  string          `json:"description,omitempty"`
}

// State is the in-progress checkout of one session.
type State struct {
	Shipping              types.Address                  `json:"shipping"`
	Billing               types.Address                  `json:"billing"`
	BillingSameAsShipping bool                           `json:"billing_same_as_shipping"`
	ShippingMethodID      string                         `json:"shipping_method"`
	ShippingCost          decimal.Decimal                `json:"shipping_cost"`
	Coupon                *Coupon                        `json:"coupon,omitempty"`
	PaymentMethod         string                         `json:"payment_method"`
	CustomerNote          string                         `json:"customer_note"`
	Editing               map[enums.CheckoutSection]bool `json:"editing"`
}

// NewState returns an empty checkout. Billing mirrors shipping by default.
func NewState() State {
	return State{
		BillingSameAsShipping: true,
		ShippingCost:          decimal.Zero,
		Editing:               map[enums.CheckoutSection]bool{},
	}
}

// Address returns the stored address of a section.
func (s State) Address(section enums.CheckoutSection) types.Address {
	if section == enums.CheckoutSectionBilling {
		return s.Billing
	}
	return s.Shipping
}

// ShippingMethodTitle resolves the shipping line title from the stored method
// id. Unrecognized ids are titled as flat rate.
func (s State) ShippingMethodTitle() string {
	return enums.ResolveShippingMethod(s.ShippingMethodID).Title()
}

// Clone deep-copies the state.
func (s State) Clone() State {
	out := s
	if s.Coupon != nil {
		c := *s.Coupon
		out.Coupon = &c
	}
	out.Editing = make(map[enums.CheckoutSection]bool, len(s.Editing))
	for k, v := range s.Editing {
		out.Editing[k] = v
	}
	return out
}
