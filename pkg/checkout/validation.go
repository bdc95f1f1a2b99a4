package checkout

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/angelmondragon/cartflow/pkg/errors"
	"github.com/angelmondragon/cartflow/pkg/types"
)

var (
	zipRe   = regexp.MustCompile(`^\d{5}$`)
	phoneRe = regexp.MustCompile(`^\d{10,15}$`)

	addressValidate = newAddressValidator()
)

// fieldMessages holds the user-facing message per form field.
var fieldMessages = map[string]string{
	"first_name": "First name is required",
	"last_name":  "Last name is required",
	"address_1":  "Address is required",
	"city":       "City is required",
	"state":      "State is required",
	"postcode":   "Invalid ZIP code",
	"phone":      "Invalid phone number",
	"email":      "Invalid email address",
}

// AddressForm is the set of fields captured by the shipping and billing forms.
// State may arrive as null from the client and is treated as empty.
type AddressForm struct {
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Address1  string  `json:"address_1"`
	City      string  `json:"city"`
	State     *string `json:"state"`
	Postcode  string  `json:"postcode"`
	Phone     string  `json:"phone"`
	Email     string  `json:"email,omitempty"`
}

type addressInput struct {
	FirstName string `json:"first_name" validate:"min=1"`
	LastName  string `json:"last_name" validate:"min=1"`
	Address1  string `json:"address_1" validate:"min=5"`
	City      string `json:"city" validate:"min=2"`
	State     string `json:"state" validate:"min=2"`
	Postcode  string `json:"postcode" validate:"zip5"`
	Phone     string `json:"phone" validate:"phone_digits"`
	Email     string `json:"email" validate:"omitempty,email"`
}

func newAddressValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	_ = v.RegisterValidation("zip5", func(fl validator.FieldLevel) bool {
		return zipRe.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("phone_digits", func(fl validator.FieldLevel) bool {
		return phoneRe.MatchString(fl.Field().String())
	})
	return v
}

// normalized trims every field, so a whitespace-only value fails validation
// and is never stored.
func (f AddressForm) normalized() addressInput {
	state := ""
	if f.State != nil {
		state = *f.State
	}
	return addressInput{
		FirstName: strings.TrimSpace(f.FirstName),
		LastName:  strings.TrimSpace(f.LastName),
		Address1:  strings.TrimSpace(f.Address1),
		City:      strings.TrimSpace(f.City),
		State:     strings.TrimSpace(state),
		Postcode:  strings.TrimSpace(f.Postcode),
		Phone:     strings.TrimSpace(f.Phone),
		Email:     strings.TrimSpace(f.Email),
	}
}

// ValidateAddress checks the form against the address schema. On failure the
// returned VALIDATION_ERROR carries a field -> message map as details.
func ValidateAddress(form AddressForm) error {
	err := addressValidate.Struct(form.normalized())
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "address validation failed")
	}
	details := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		msg, ok := fieldMessages[fe.Field()]
		if !ok {
			msg = "is invalid"
		}
		details[fe.Field()] = msg
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "address is invalid").WithDetails(details)
}

// Merge overlays the form onto a stored address. Fields the form does not
// capture (company, address_2, country) are preserved, as is a stored email
// when the form leaves it blank.
func (f AddressForm) Merge(into types.Address) types.Address {
	in := f.normalized()
	into.FirstName = in.FirstName
	into.LastName = in.LastName
	into.Address1 = in.Address1
	into.City = in.City
	into.State = in.State
	into.Postcode = in.Postcode
	into.Phone = in.Phone
	if in.Email != "" {
		into.Email = in.Email
	}
	return into
}

// FormFromAddress prefills a form with the stored address values.
func FormFromAddress(a types.Address) AddressForm {
	state := a.State
	return AddressForm{
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Address1:  a.Address1,
		City:      a.City,
		State:     &state,
		Postcode:  a.Postcode,
		Phone:     a.Phone,
		Email:     a.Email,
	}
}
