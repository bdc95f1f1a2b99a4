package orders

import (
	"errors"
	"strings"

	pkgerrors "github.com/angelmondragon/cartflow/pkg/errors"
)

// MissingFieldsMessage is the message shown when the order cannot be built.
const MissingFieldsMessage = "Missing required order fields"

// RequiredField names an order precondition.
type RequiredField string

const (
	RequiredBilling       RequiredField = "billing"
	RequiredShipping      RequiredField = "shipping"
	RequiredLineItems     RequiredField = "line_items"
	RequiredPaymentMethod RequiredField = "payment_method"
)

// MissingRequiredFieldsError lists every precondition the checkout failed.
type MissingRequiredFieldsError struct {
	Fields []RequiredField
}

func (e *MissingRequiredFieldsError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, string(f))
	}
	return MissingFieldsMessage + ": " + strings.Join(names, ", ")
}

// As lets errors.As surface the failure as a VALIDATION_ERROR.
func (e *MissingRequiredFieldsError) As(target any) bool {
	typed, ok := target.(**pkgerrors.Error)
	if !ok {
		return false
	}
	*typed = e.apiError()
	return true
}

func (e *MissingRequiredFieldsError) apiError() *pkgerrors.Error {
	missing := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		missing = append(missing, string(f))
	}
	return pkgerrors.New(pkgerrors.CodeValidation, MissingFieldsMessage).
		WithDetails(map[string]any{"missing": missing})
}

// IsMissingRequiredFields reports whether err is a precondition failure.
func IsMissingRequiredFields(err error) bool {
	var target *MissingRequiredFieldsError
	return errors.As(err, &target)
}
