package enums

import "fmt"

// ShippingMethod is the closed set of shipping methods the order title is
// resolved from. Method ids outside the set are stored as sent and resolve to
// ShippingMethodUnknown.
type ShippingMethod string

const (
	// ShippingMethodUnknown is the default for unrecognized ids; it is billed as flat rate.
	ShippingMethodUnknown      ShippingMethod = ""
	ShippingMethodFlatRate     ShippingMethod = "flat_rate"
	ShippingMethodFreeShipping ShippingMethod = "free_shipping"
	ShippingMethodLocalPickup  ShippingMethod = "local_pickup"
)

var validShippingMethods = []ShippingMethod{
	ShippingMethodFlatRate,
	ShippingMethodFreeShipping,
	ShippingMethodLocalPickup,
}

var shippingMethodTitles = map[ShippingMethod]string{
	ShippingMethodFlatRate:     "Flat Rate",
	ShippingMethodFreeShipping: "Free Shipping",
	ShippingMethodLocalPickup:  "Local Pickup",
}

// String implements fmt.Stringer.
func (m ShippingMethod) String() string {
	return string(m)
}

// IsValid reports whether the value is a known ShippingMethod.
func (m ShippingMethod) IsValid() bool {
	for _, candidate := range validShippingMethods {
		if candidate == m {
			return true
		}
	}
	return false
}

// Title returns the human-readable label sent as the shipping line title.
func (m ShippingMethod) Title() string {
	if title, ok := shippingMethodTitles[m]; ok {
		return title
	}
	return shippingMethodTitles[ShippingMethodFlatRate]
}

// ResolveShippingMethod maps a raw method id onto the closed set, falling
// back to ShippingMethodUnknown.
func ResolveShippingMethod(id string) ShippingMethod {
	method, err := ParseShippingMethod(id)
	if err != nil {
		return ShippingMethodUnknown
	}
	return method
}

// ParseShippingMethod converts raw input into a ShippingMethod.
func ParseShippingMethod(value string) (ShippingMethod, error) {
	for _, candidate := range validShippingMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return ShippingMethodUnknown, fmt.Errorf("invalid shipping method %q", value)
}
