package controllers

import (
	"net/http"
	"time"

	"github.com/angelmondragon/cartflow/api/responses"
	"github.com/angelmondragon/cartflow/api/validators"
	"github.com/angelmondragon/cartflow/internal/orders"
	"github.com/angelmondragon/cartflow/pkg/db/models"
	"github.com/angelmondragon/cartflow/pkg/enums"
	pkgerrors "github.com/angelmondragon/cartflow/pkg/errors"
	"github.com/angelmondragon/cartflow/pkg/logger"
	"github.com/angelmondragon/cartflow/pkg/pagination"
)

// OrderPlace submits the session's cart and checkout to the order API.
// A replayed submission answers 200 instead of 201.
func OrderPlace(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		sess, ok := requireSession(w, r, logg)
		if !ok {
			return
		}
		result, err := svc.PlaceOrder(r.Context(), sess)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status := http.StatusCreated
		if result.Replayed {
			status = http.StatusOK
		}
		responses.WriteSuccessStatus(w, status, result)
	}
}

// OrderSubmissions lists the session's submission attempts, newest first,
// one cursor page at a time.
func OrderSubmissions(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		sess, ok := requireSession(w, r, logg)
		if !ok {
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListSubmissions(r.Context(), sess.ID(), pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]submissionResponse, 0, len(page.Items))
		for _, row := range page.Items {
			out = append(out, newSubmissionResponse(row))
		}
		responses.WriteSuccess(w, submissionsResponse{Submissions: out, NextCursor: page.NextCursor})
	}
}

type submissionsResponse struct {
	Submissions []submissionResponse `json:"submissions"`
	NextCursor  string               `json:"next_cursor,omitempty"`
}

type submissionResponse struct {
	ID              string                 `json:"id"`
	Status          enums.SubmissionStatus `json:"status"`
	PaymentMethod   string                 `json:"payment_method"`
	LineItemCount   int                    `json:"line_item_count"`
	ShippingTotal   string                 `json:"shipping_total"`
	UpstreamOrderID *int64                 `json:"upstream_order_id,omitempty"`
	UpstreamStatus  *int                   `json:"upstream_status,omitempty"`
	ErrorCode       *string                `json:"error_code,omitempty"`
	ErrorMessage    *string                `json:"error_message,omitempty"`
	DurationMS      int64                  `json:"duration_ms"`
	CreatedAt       time.Time              `json:"created_at"`
}

func newSubmissionResponse(m models.OrderSubmission) submissionResponse {
	return submissionResponse{
		ID:              m.ID,
		Status:          m.Status,
		PaymentMethod:   m.PaymentMethod,
		LineItemCount:   m.LineItemCount,
		ShippingTotal:   m.ShippingTotal,
		UpstreamOrderID: m.UpstreamOrderID,
		UpstreamStatus:  m.UpstreamStatus,
		ErrorCode:       m.ErrorCode,
		ErrorMessage:    m.ErrorMessage,
		DurationMS:      m.DurationMS,
		CreatedAt:       m.CreatedAt,
	}
}
