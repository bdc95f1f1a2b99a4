package types

import "strings"

// Address mirrors the WooCommerce billing/shipping address object.
type Address struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company,omitempty"`
	Address1  string `json:"address_1"`
	Address2  string `json:"address_2,omitempty"`
	City      string `json:"city"`
	State     string `json:"state"`
	Postcode  string `json:"postcode"`
	Country   string `json:"country,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone"`
}

// IsEmpty reports whether no address has been captured yet. A first name is
// the marker: the capture form never commits without one.
func (a Address) IsEmpty() bool {
	return strings.TrimSpace(a.FirstName) == ""
}
