package enums

import "fmt"

// CheckoutSection names an address capture section of the checkout flow.
type CheckoutSection string

const (
	CheckoutSectionShipping CheckoutSection = "shipping"
	CheckoutSectionBilling  CheckoutSection = "billing"
)

var validCheckoutSections = []CheckoutSection{
	CheckoutSectionShipping,
	CheckoutSectionBilling,
}

// String implements fmt.Stringer.
func (s CheckoutSection) String() string {
	return string(s)
}

// IsValid reports whether the value is a known CheckoutSection.
func (s CheckoutSection) IsValid() bool {
	for _, candidate := range validCheckoutSections {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseCheckoutSection converts raw input into a CheckoutSection.
func ParseCheckoutSection(value string) (CheckoutSection, error) {
	for _, candidate := range validCheckoutSections {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid checkout section %q", value)
}
