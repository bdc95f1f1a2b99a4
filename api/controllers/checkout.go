package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/cartflow/api/responses"
	"github.com/angelmondragon/cartflow/api/validators"
	"github.com/angelmondragon/cartflow/internal/checkout"
	"github.com/angelmondragon/cartflow/internal/session"
	pkgcheckout "github.com/angelmondragon/cartflow/pkg/checkout"
	"github.com/angelmondragon/cartflow/pkg/enums"
	pkgerrors "github.com/angelmondragon/cartflow/pkg/errors"
	"github.com/angelmondragon/cartflow/pkg/logger"
	"github.com/angelmondragon/cartflow/pkg/types"
)

const (
	sectionParam     = "section"
	maxNoteLength    = 2000
	maxCouponLength  = 64
	maxPaymentLength = 64
	maxMethodLength  = 64
)

type sectionView struct {
	Mode    enums.SectionMode `json:"mode"`
	Address types.Address     `json:"address"`
}

type checkoutResponse struct {
	Shipping              sectionView            `json:"shipping"`
	Billing               sectionView            `json:"billing"`
	BillingSameAsShipping bool                   `json:"billing_same_as_shipping"`
	ShippingMethod        string                 `json:"shipping_method"`
	ShippingMethodTitle   string                 `json:"shipping_method_title,omitempty"`
	ShippingCost          decimal.Decimal        `json:"shipping_cost"`
	Coupon                *checkout.Coupon       `json:"coupon"`
	PaymentMethod         string                 `json:"payment_method"`
	CustomerNote          string                 `json:"customer_note"`
	EditingSection        *enums.CheckoutSection `json:"editing_section"`
	PaymentReady          bool                   `json:"payment_ready"`
	Subtotal              decimal.Decimal        `json:"subtotal"`
}

func renderCheckout(sess *session.Session) (checkoutResponse, error) {
	var (
		out checkoutResponse
		err error
	)
	sess.View(func(tx *session.Tx) {
		state := tx.Checkout().Snapshot()
		out = checkoutResponse{
			BillingSameAsShipping: state.BillingSameAsShipping,
			ShippingMethod:        state.ShippingMethodID,
			ShippingCost:          state.ShippingCost,
			Coupon:                state.Coupon,
			PaymentMethod:         state.PaymentMethod,
			CustomerNote:          state.CustomerNote,
			PaymentReady:          tx.PaymentReady(),
			Subtotal:              tx.Cart().Subtotal(),
		}
		if state.ShippingMethodID != "" {
			out.ShippingMethodTitle = state.ShippingMethodTitle()
		}
		if holder, ok := tx.Coordinator().Holder(); ok {
			out.EditingSection = &holder
		}
		for _, section := range []enums.CheckoutSection{enums.CheckoutSectionShipping, enums.CheckoutSectionBilling} {
			ctrl, ctrlErr := tx.Section(section)
			if ctrlErr != nil {
				err = ctrlErr
				return
			}
			view := sectionView{Mode: ctrl.Mode(), Address: ctrl.Address()}
			if section == enums.CheckoutSectionShipping {
				out.Shipping = view
			} else {
				out.Billing = view
			}
		}
	})
	if err != nil {
		return checkoutResponse{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render checkout")
	}
	return out, nil
}

func writeCheckout(w http.ResponseWriter, r *http.Request, logg *logger.Logger, sess *session.Session) {
	view, err := renderCheckout(sess)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	responses.WriteSuccess(w, view)
}

func sectionFromRequest(r *http.Request) (enums.CheckoutSection, error) {
	section, err := enums.ParseCheckoutSection(strings.TrimSpace(chi.URLParam(r, sectionParam)))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown checkout section").WithDetails(map[string]any{"field": sectionParam})
	}
	return section, nil
}

// checkoutMutation decodes the body into T, applies mutate under the session
// lock and answers with the refreshed checkout view.
func checkoutMutation[T any](mgr SessionUpdater, logg *logger.Logger, mutate func(r *http.Request, tx *session.Tx, payload T) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := requireSession(w, r, logg)
		if !ok {
			return
		}
		var payload T
		if r.ContentLength != 0 && r.Method != http.MethodDelete {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}
		if err := mgr.Update(r.Context(), sess, func(tx *session.Tx) error {
			return mutate(r, tx, payload)
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeCheckout(w, r, logg, sess)
	}
}

// CheckoutView returns both sections with their modes and payment readiness.
func CheckoutView(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := requireSession(w, r, logg)
		if !ok {
			return
		}
		writeCheckout(w, r, logg, sess)
	}
}

type noBody struct{}

// SectionEdit moves a section into editing.
func SectionEdit(mgr SessionUpdater, logg *logger.Logger) http.HandlerFunc {
	return checkoutMutation(mgr, logg, func(r *http.Request, tx *session.Tx, _ noBody) error {
		ctrl, err := sectionController(r, tx)
		if err != nil {
			return err
		}
		return ctrl.Edit()
	})
}

// SectionSubmit validates and commits an address form.
func SectionSubmit(mgr SessionUpdater, logg *logger.Logger) http.HandlerFunc {
	return checkoutMutation(mgr, logg, func(r *http.Request, tx *session.Tx, form pkgcheckout.AddressForm) error {
		ctrl, err := sectionController(r, tx)
		if err != nil {
			return err
		}
		_, err = ctrl.Submit(r.Context(), form)
		return err
	})
}

// SectionCancel abandons an edit and keeps the stored address.
func SectionCancel(mgr SessionUpdater, logg *logger.Logger) http.HandlerFunc {
	return checkoutMutation(mgr, logg, func(r *http.Request, tx *session.Tx, _ noBody) error {
		ctrl, err := sectionController(r, tx)
		if err != nil {
			return err
		}
		return ctrl.Cancel()
	})
}

func sectionController(r *http.Request, tx *session.Tx) (*checkout.SectionController, error) {
	section, err := sectionFromRequest(r)
	if err != nil {
		return nil, err
	}
	return tx.Section(section)
}

type billingSameRequest struct {
	Same *bool `json:"same" validate:"required"`
}

// BillingSameAsShipping toggles billing mirroring.
func BillingSameAsShipping(mgr SessionUpdater, logg *logger.Logger) http.HandlerFunc {
	return checkoutMutation(mgr, logg, func(_ *http.Request, tx *session.Tx, payload billingSameRequest) error {
		if payload.Same == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(map[string]string{"same": "is required"})
		}
		ctrl, err := tx.Section(enums.CheckoutSectionShipping)
		if err != nil {
			return err
		}
		return ctrl.SetBillingSameAsShipping(*payload.Same)
	})
}

type shippingMethodRequest struct {
	Method string          `json:"method" validate:"required"`
	Cost   decimal.Decimal `json:"cost"`
}

// ShippingMethodSet records the chosen method id and its cost. Any id the
// storefront offers is accepted; only the order line title is resolved.
func ShippingMethodSet(mgr SessionUpdater, logg *logger.Logger) http.HandlerFunc {
	return checkoutMutation(mgr, logg, func(_ *http.Request, tx *session.Tx, payload shippingMethodRequest) error {
		method := validators.SanitizeString(payload.Method, maxMethodLength)
		if method == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(map[string]string{"method": "is required"})
		}
		if payload.Cost.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(map[string]string{"cost": "must not be negative"})
		}
		tx.Checkout().SetShippingMethod(method)
		tx.Checkout().SetShippingCost(payload.Cost)
		return nil
	})
}

type couponRequest struct {
	Code         string          `json:"code" validate:"required"`
	DiscountType string          `json:"discount_type"`
	Amount       decimal.Decimal `json:"amount"`
	Description  string          `json:"description"`
}

// CouponApply stores the coupon; the order API decides whether it is valid.
func CouponApply(mgr SessionUpdater, logg *logger.Logger) http.HandlerFunc {
	return checkoutMutation(mgr, logg, func(_ *http.Request, tx *session.Tx, payload couponRequest) error {
		code := validators.SanitizeString(payload.Code, maxCouponLength)
		if code == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(map[string]string{"code": "is required"})
		}
		tx.Checkout().SetCoupon(&checkout.Coupon{
			Code:         code,
			DiscountType: strings.TrimSpace(payload.DiscountType),
			Amount:       payload.Amount,
			Description:  strings.TrimSpace(payload.Description),
		})
		return nil
	})
}

// CouponClear removes the applied coupon.
func CouponClear(mgr SessionUpdater, logg *logger.Logger) http.HandlerFunc {
	return checkoutMutation(mgr, logg, func(_ *http.Request, tx *session.Tx, _ noBody) error {
		tx.Checkout().SetCoupon(nil)
		return nil
	})
}

type paymentMethodRequest struct {
	PaymentMethod string `json:"payment_method" validate:"required"`
}

func PaymentMethodSet(mgr SessionUpdater, logg *logger.Logger) http.HandlerFunc {
	return checkoutMutation(mgr, logg, func(_ *http.Request, tx *session.Tx, payload paymentMethodRequest) error {
		tx.Checkout().SetPaymentMethod(validators.SanitizeString(payload.PaymentMethod, maxPaymentLength))
		return nil
	})
}

type customerNoteRequest struct {
	Note string `json:"note"`
}

func CustomerNoteSet(mgr SessionUpdater, logg *logger.Logger) http.HandlerFunc {
	return checkoutMutation(mgr, logg, func(_ *http.Request, tx *session.Tx, payload customerNoteRequest) error {
		tx.Checkout().SetCustomerNote(validators.SanitizeText(payload.Note, maxNoteLength))
		return nil
	})
}
