package types

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestAddressIsEmpty(t *testing.T) {
	if !(Address{}).IsEmpty() {
		t.Fatalf("zero address should be empty")
	}
	if !(Address{FirstName: "  ", City: "Austin"}).IsEmpty() {
		t.Fatalf("blank first name should count as empty")
	}
	if (Address{FirstName: "Ada"}).IsEmpty() {
		t.Fatalf("address with first name should not be empty")
	}
}

func TestAddressJSONUsesWooCommerceKeys(t *testing.T) {
	raw, err := json.Marshal(Address{FirstName: "Ada", Address1: "12 Main St", Postcode: "78701"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, key := range []string{`"first_name":"Ada"`, `"address_1":"12 Main St"`, `"postcode":"78701"`} {
		if !strings.Contains(string(raw), key) {
			t.Fatalf("expected %s in %s", key, raw)
		}
	}
	if strings.Contains(string(raw), "company") {
		t.Fatalf("empty optional fields should be omitted: %s", raw)
	}
}
