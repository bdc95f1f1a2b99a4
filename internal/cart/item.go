package cart

import (
	"github.com/shopspring/decimal"
)

// hiddenVariationValue marks variation attributes the storefront never shows.
const hiddenVariationValue = "Unknown"

// Key identifies a purchasable variant. VariationID is 0 for simple products.
type Key struct {
	ProductID   int64 `json:"product_id"`
	VariationID int64 `json:"variation_id"`
}

type Variation struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug,omitempty"`
}

// CustomField is a free-form name/value pair attached to a line item. Order is
// significant and duplicate names are allowed.
type CustomField struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// LineItem is one row of the cart.
type LineItem struct {
	ProductID    int64           `json:"product_id"`
	VariationID  int64           `json:"variation_id"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	Quantity     int             `json:"quantity"`
	Variations   []Variation     `json:"variations"`
	Categories   []Category      `json:"categories"`
	CustomFields []CustomField   `json:"custom_fields"`
	Metadata     map[string]any  `json:"metadata"`
	Image        string          `json:"image,omitempty"`
	Slug         string          `json:"slug,omitempty"`
}

// Key returns the identity key of the line item.
func (i LineItem) Key() Key {
	return Key{ProductID: i.ProductID, VariationID: i.VariationID}
}

// LineTotal is unit price times quantity.
func (i LineItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// DisplayVariations drops attributes whose value is "Unknown".
func (i LineItem) DisplayVariations() []Variation {
	out := make([]Variation, 0, len(i.Variations))
	for _, v := range i.Variations {
		if v.Value == hiddenVariationValue {
			continue
		}
		out = append(out, v)
	}
	return out
}

func cloneItem(item LineItem) LineItem {
	out := item
	if item.Variations != nil {
		out.Variations = append([]Variation(nil), item.Variations...)
	}
	if item.Categories != nil {
		out.Categories = append([]Category(nil), item.Categories...)
	}
	if item.CustomFields != nil {
		out.CustomFields = append([]CustomField(nil), item.CustomFields...)
	}
	if item.Metadata != nil {
		out.Metadata = make(map[string]any, len(item.Metadata))
		for k, v := range item.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}
