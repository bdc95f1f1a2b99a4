package enums

import "fmt"

// AnalyticsEventType enumerates the storefront events forwarded to analytics.
type AnalyticsEventType string

const (
	AnalyticsEventAddShippingInfo AnalyticsEventType = "add_shipping_info"
	AnalyticsEventPurchase        AnalyticsEventType = "purchase"
)

var validAnalyticsEventTypes = []AnalyticsEventType{
	AnalyticsEventAddShippingInfo,
	AnalyticsEventPurchase,
}

// String implements fmt.Stringer.
func (e AnalyticsEventType) String() string {
	return string(e)
}

// IsValid reports whether the value is a known AnalyticsEventType.
func (e AnalyticsEventType) IsValid() bool {
	for _, candidate := range validAnalyticsEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseAnalyticsEventType converts raw input into an AnalyticsEventType.
func ParseAnalyticsEventType(value string) (AnalyticsEventType, error) {
	for _, candidate := range validAnalyticsEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid analytics event type %q", value)
}
