package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/cartflow/api/responses"
	"github.com/angelmondragon/cartflow/api/validators"
	"github.com/angelmondragon/cartflow/internal/cart"
	"github.com/angelmondragon/cartflow/internal/session"
	pkgerrors "github.com/angelmondragon/cartflow/pkg/errors"
	"github.com/angelmondragon/cartflow/pkg/logger"
)

type cartItemResponse struct {
	ProductID    int64              `json:"product_id"`
	VariationID  int64              `json:"variation_id"`
	Name         string             `json:"name"`
	Price        decimal.Decimal    `json:"price"`
	Quantity     int                `json:"quantity"`
	LineTotal    decimal.Decimal    `json:"line_total"`
	Variations   []cart.Variation   `json:"variations"`
	Categories   []cart.Category    `json:"categories"`
	CustomFields []cart.CustomField `json:"custom_fields"`
	Metadata     map[string]any     `json:"metadata,omitempty"`
	Image        string             `json:"image,omitempty"`
	Slug         string             `json:"slug,omitempty"`
}

type cartResponse struct {
	Items     []cartItemResponse `json:"items"`
	Subtotal  decimal.Decimal    `json:"subtotal"`
	ItemCount int                `json:"item_count"`
	IsOpen    bool               `json:"is_open"`
}

func newCartResponse(store *cart.Store) cartResponse {
	items := store.Items()
	out := cartResponse{
		Items:     make([]cartItemResponse, 0, len(items)),
		Subtotal:  store.Subtotal(),
		ItemCount: store.ItemCount(),
		IsOpen:    store.IsOpen(),
	}
	for _, item := range items {
		categories := item.Categories
		if categories == nil {
			categories = []cart.Category{}
		}
		fields := item.CustomFields
		if fields == nil {
			fields = []cart.CustomField{}
		}
		out.Items = append(out.Items, cartItemResponse{
			ProductID:    item.ProductID,
			VariationID:  item.VariationID,
			Name:         item.Name,
			Price:        item.Price,
			Quantity:     item.Quantity,
			LineTotal:    item.LineTotal(),
			Variations:   item.DisplayVariations(),
			Categories:   categories,
			CustomFields: fields,
			Metadata:     item.Metadata,
			Image:        item.Image,
			Slug:         item.Slug,
		})
	}
	return out
}

func renderCart(sess *session.Session) cartResponse {
	var out cartResponse
	sess.View(func(tx *session.Tx) {
		out = newCartResponse(tx.Cart())
	})
	return out
}

type addItemRequest struct {
	ProductID    int64              `json:"product_id" validate:"required,gt=0"`
	VariationID  int64              `json:"variation_id" validate:"gte=0"`
	Name         string             `json:"name" validate:"required"`
	Price        decimal.Decimal    `json:"price"`
	Quantity     int                `json:"quantity" validate:"gte=0"`
	Variations   []cart.Variation   `json:"variations"`
	Categories   []cart.Category    `json:"categories"`
	CustomFields []cart.CustomField `json:"custom_fields"`
	Metadata     map[string]any     `json:"metadata"`
	Image        string             `json:"image"`
	Slug         string             `json:"slug"`
}

func (r addItemRequest) toLineItem() (cart.LineItem, error) {
	if r.Price.IsNegative() {
		return cart.LineItem{}, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(map[string]string{"price": "must not be negative"})
	}
	return cart.LineItem{
		ProductID:    r.ProductID,
		VariationID:  r.VariationID,
		Name:         r.Name,
		Price:        r.Price,
		Quantity:     r.Quantity,
		Variations:   r.Variations,
		Categories:   r.Categories,
		CustomFields: r.CustomFields,
		Metadata:     r.Metadata,
		Image:        r.Image,
		Slug:         r.Slug,
	}, nil
}

type itemKeyRequest struct {
	ProductID   int64 `json:"product_id" validate:"required,gt=0"`
	VariationID int64 `json:"variation_id" validate:"gte=0"`
}

func (r itemKeyRequest) key() cart.Key {
	return cart.Key{ProductID: r.ProductID, VariationID: r.VariationID}
}

type cartOpenRequest struct {
	Open *bool `json:"open" validate:"required"`
}

// CartView returns the session cart with a freshly computed subtotal.
func CartView(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := requireSession(w, r, logg)
		if !ok {
			return
		}
		responses.WriteSuccess(w, renderCart(sess))
	}
}

// CartAddItem adds an item or merges its quantity into the existing row.
func CartAddItem(mgr SessionUpdater, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := requireSession(w, r, logg)
		if !ok {
			return
		}
		var payload addItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := payload.toLineItem()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := mgr.Update(r.Context(), sess, func(tx *session.Tx) error {
			tx.Cart().AddItem(item)
			return nil
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, renderCart(sess))
	}
}

// CartIncrease adds one unit to a row. Unknown rows are left alone.
func CartIncrease(mgr SessionUpdater, logg *logger.Logger) http.HandlerFunc {
	return cartKeyMutation(mgr, logg, func(store *cart.Store, key cart.Key) {
		store.IncreaseQuantity(key)
	})
}

// CartDecrease removes one unit; the row disappears when it reaches zero.
func CartDecrease(mgr SessionUpdater, logg *logger.Logger) http.HandlerFunc {
	return cartKeyMutation(mgr, logg, func(store *cart.Store, key cart.Key) {
		store.DecreaseQuantity(key)
	})
}

// CartRemove deletes a row by its identity key.
func CartRemove(mgr SessionUpdater, logg *logger.Logger) http.HandlerFunc {
	return cartKeyMutation(mgr, logg, func(store *cart.Store, key cart.Key) {
		store.RemoveItem(key)
	})
}

func cartKeyMutation(mgr SessionUpdater, logg *logger.Logger, mutate func(*cart.Store, cart.Key)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := requireSession(w, r, logg)
		if !ok {
			return
		}
		var payload itemKeyRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := mgr.Update(r.Context(), sess, func(tx *session.Tx) error {
			mutate(tx.Cart(), payload.key())
			return nil
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, renderCart(sess))
	}
}

// CartSetOpen toggles the cart overlay flag.
func CartSetOpen(mgr SessionUpdater, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := requireSession(w, r, logg)
		if !ok {
			return
		}
		var payload cartOpenRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := mgr.Update(r.Context(), sess, func(tx *session.Tx) error {
			tx.Cart().SetCartOpen(*payload.Open)
			return nil
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, renderCart(sess))
	}
}
