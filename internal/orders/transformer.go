package orders

import (
	"fmt"
	"strings"

	"github.com/angelmondragon/cartflow/internal/cart"
	"github.com/angelmondragon/cartflow/internal/checkout"
	pkgerrors "github.com/angelmondragon/cartflow/pkg/errors"
)

// BuildOrderPayload turns a cart and checkout snapshot into an order request.
// It is pure: the inputs are never mutated and nothing is sent anywhere.
func BuildOrderPayload(items []cart.LineItem, state checkout.State) (*OrderPayload, error) {
	if missing := missingFields(items, state); len(missing) > 0 {
		return nil, &MissingRequiredFieldsError{Fields: missing}
	}

	lineItems := make([]LineItemPayload, 0, len(items))
	for _, item := range items {
		line, err := buildLineItem(item)
		if err != nil {
			return nil, err
		}
		lineItems = append(lineItems, line)
	}

	couponLines := []CouponLine{}
	if state.Coupon != nil {
		couponLines = append(couponLines, CouponLine{
			Code:   state.Coupon.Code,
			UsedBy: state.Billing.Email,
		})
	}

	return &OrderPayload{
		PaymentMethod:      state.PaymentMethod,
		PaymentMethodTitle: PaymentMethodTitle,
		Billing:            state.Billing,
		Shipping:           state.Shipping,
		CustomerNote:       state.CustomerNote,
		LineItems:          lineItems,
		ShippingLines: []ShippingLine{{
			MethodID:    state.ShippingMethodID,
			MethodTitle: state.ShippingMethodTitle(),
			Total:       state.ShippingCost.StringFixed(2),
		}},
		CouponLines: couponLines,
	}, nil
}

func missingFields(items []cart.LineItem, state checkout.State) []RequiredField {
	var missing []RequiredField
	if state.Billing.IsEmpty() {
		missing = append(missing, RequiredBilling)
	}
	if state.Shipping.IsEmpty() {
		missing = append(missing, RequiredShipping)
	}
	if len(items) == 0 {
		missing = append(missing, RequiredLineItems)
	}
	if strings.TrimSpace(state.PaymentMethod) == "" {
		missing = append(missing, RequiredPaymentMethod)
	}
	return missing
}

func buildLineItem(item cart.LineItem) (LineItemPayload, error) {
	variations := item.Variations
	if variations == nil {
		variations = []cart.Variation{}
	}
	metadata := item.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	meta := make([]MetaData, 0, 2+len(item.CustomFields))
	meta = append(meta,
		MetaData{Key: MetaKeyVariations, Value: variations},
		MetaData{Key: MetaKeyMetadata, Value: metadata},
	)
	for idx, field := range item.CustomFields {
		if strings.TrimSpace(field.Name) == "" {
			return LineItemPayload{}, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("custom field %d of product %d has no name", idx, item.ProductID)).
				WithDetails(map[string]any{"product_id": item.ProductID, "custom_field_index": idx})
		}
		meta = append(meta, MetaData{Key: field.Name, Value: field.Value})
	}

	return LineItemPayload{
		ProductID:   item.ProductID,
		Quantity:    item.Quantity,
		VariationID: item.VariationID,
		MetaData:    meta,
	}, nil
}
