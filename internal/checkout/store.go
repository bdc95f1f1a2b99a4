package checkout

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/cartflow/pkg/enums"
	"github.com/angelmondragon/cartflow/pkg/types"
)

// Store holds the checkout state of one session. Setters replace their slice
// wholesale; merging partial input is the caller's job. Like the cart store it
// relies on the owning session for serialization.
type Store struct {
	state State
}

func NewStore() *Store {
	return &Store{state: NewState()}
}

// RestoreStore wraps a previously persisted state.
func RestoreStore(state State) *Store {
	state = state.Clone()
	if state.Editing == nil {
		state.Editing = map[enums.CheckoutSection]bool{}
	}
	return &Store{state: state}
}

func (s *Store) SetShipping(addr types.Address) {
	s.state.Shipping = addr
}

func (s *Store) SetBilling(addr types.Address) {
	s.state.Billing = addr
}

func (s *Store) SetBillingSameAsShipping(same bool) {
	s.state.BillingSameAsShipping = same
}

// SetShippingMethod stores the method id as chosen; the order API validates it.
func (s *Store) SetShippingMethod(id string) {
	s.state.ShippingMethodID = id
}

func (s *Store) SetShippingCost(cost decimal.Decimal) {
	s.state.ShippingCost = cost
}

// SetCoupon applies a coupon; nil clears it.
func (s *Store) SetCoupon(coupon *Coupon) {
	if coupon == nil {
		s.state.Coupon = nil
		return
	}
	c := *coupon
	s.state.Coupon = &c
}

func (s *Store) SetPaymentMethod(method string) {
	s.state.PaymentMethod = method
}

func (s *Store) SetCustomerNote(note string) {
	s.state.CustomerNote = note
}

// SetSectionEditing records whether a section is currently being edited.
func (s *Store) SetSectionEditing(section enums.CheckoutSection, editing bool) {
	if editing {
		s.state.Editing[section] = true
		return
	}
	delete(s.state.Editing, section)
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	return s.state.Clone()
}

// Reset returns the store to an empty checkout.
func (s *Store) Reset() {
	s.state = NewState()
}
