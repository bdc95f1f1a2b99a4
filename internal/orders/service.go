package orders

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/cartflow/internal/cart"
	"github.com/angelmondragon/cartflow/internal/checkout"
	"github.com/angelmondragon/cartflow/internal/session"
	"github.com/angelmondragon/cartflow/pkg/db/models"
	"github.com/angelmondragon/cartflow/pkg/enums"
	pkgerrors "github.com/angelmondragon/cartflow/pkg/errors"
	"github.com/angelmondragon/cartflow/pkg/logger"
	"github.com/angelmondragon/cartflow/pkg/pagination"
	redisclient "github.com/angelmondragon/cartflow/pkg/redis"
	"github.com/angelmondragon/cartflow/pkg/woocommerce"
)

const (
	idempotencyScope   = "order"
	idempotencyPending = "pending"
)

// Gateway creates orders in the external order API.
type Gateway interface {
	CreateOrder(ctx context.Context, payload any) (*woocommerce.CreatedOrder, error)
}

// SessionStore applies and persists the order outcome at the snapshot
// revision. *session.Manager satisfies it.
type SessionStore interface {
	UpdateAt(ctx context.Context, sess *session.Session, revision uint64, fn func(tx *session.Tx)) (bool, error)
}

// PurchaseTracker receives purchase events. Implementations must not block.
type PurchaseTracker interface {
	TrackPurchase(ctx context.Context, sessionID string, payload *OrderPayload, result Result)
}

type submissionRecorder interface {
	ObserveSubmission(outcome string, duration time.Duration)
}

// Service places orders for a session.
type Service interface {
	PlaceOrder(ctx context.Context, sess *session.Session) (*Result, error)
	ListSubmissions(ctx context.Context, sessionID string, params pagination.Params) (*SubmissionPage, error)
}

// SubmissionPage is one page of a session's submission attempts, newest first.
type SubmissionPage struct {
	Items      []models.OrderSubmission
	NextCursor string
}

// Result describes an accepted order.
type Result struct {
	SubmissionID string `json:"submission_id"`
	OrderID      int64  `json:"order_id"`
	Number       string `json:"number"`
	Status       string `json:"status"`
	Total        string `json:"total"`
	// Order is the order document returned by the order API.
	Order json.RawMessage `json:"order,omitempty"`
	// Applied is false when the session changed while the order was in
	// flight and the cart was left as is.
	Applied bool `json:"applied"`
	// Replayed is true when an identical earlier submission was returned
	// without posting again.
	Replayed bool `json:"replayed"`
}

// ServiceParams groups the service dependencies.
type ServiceParams struct {
	Gateway        Gateway
	Repo           Repository
	Sessions       SessionStore
	Idempotency    redisclient.IdempotencyStore
	IdempotencyTTL time.Duration
	Metrics        submissionRecorder
	Tracker        PurchaseTracker
	Logger         *logger.Logger
}

type service struct {
	gateway  Gateway
	repo     Repository
	sessions SessionStore
	idem     redisclient.IdempotencyStore
	idemTTL  time.Duration
	metrics  submissionRecorder
	tracker  PurchaseTracker
	logg     *logger.Logger
	now      func() time.Time
}

// NewService wires the order placement service.
func NewService(p ServiceParams) (Service, error) {
	if p.Gateway == nil {
		return nil, fmt.Errorf("order gateway required")
	}
	if p.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if p.Sessions == nil {
		return nil, fmt.Errorf("session store required")
	}
	if p.Idempotency != nil && p.IdempotencyTTL <= 0 {
		return nil, fmt.Errorf("idempotency ttl must be positive")
	}
	logg := p.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		gateway:  p.Gateway,
		repo:     p.Repo,
		sessions: p.Sessions,
		idem:     p.Idempotency,
		idemTTL:  p.IdempotencyTTL,
		metrics:  p.Metrics,
		tracker:  p.Tracker,
		logg:     logg,
		now:      time.Now,
	}, nil
}

// PlaceOrder snapshots the session, builds and submits the order, and on
// success clears the cart if the session has not changed since the snapshot.
// Failures never touch the session.
func (s *service) PlaceOrder(ctx context.Context, sess *session.Session) (*Result, error) {
	if sess == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session required")
	}
	ctx = s.logg.WithSessionID(ctx, sess.ID())

	var (
		items    []cart.LineItem
		state    checkout.State
		revision uint64
		editing  bool
		holder   enums.CheckoutSection
	)
	sess.View(func(tx *session.Tx) {
		holder, editing = tx.Coordinator().Holder()
		items = tx.Cart().Items()
		state = tx.Checkout().Snapshot()
		revision = tx.Revision()
	})
	if editing {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "finish editing the address before paying").
			WithDetails(map[string]any{"editing": holder})
	}

	payload, err := BuildOrderPayload(items, state)
	if err != nil {
		return nil, err
	}
	hash, err := payloadHash(payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash order payload")
	}

	key, claimed, replay, err := s.claim(ctx, sess.ID(), hash)
	if err != nil {
		return nil, err
	}
	if replay != nil {
		replay.Replayed = true
		replay.Applied = s.apply(ctx, sess, revision)
		if replay.Applied {
			s.retire(ctx, key)
		}
		s.logg.Info(ctx, "order submission replayed")
		return replay, nil
	}

	submissionID := uuid.NewString()
	start := s.now()
	created, submitErr := s.gateway.CreateOrder(ctx, payload)
	duration := s.now().Sub(start)

	status := outcomeFor(submitErr)
	s.record(ctx, submissionID, sess.ID(), hash, status, payload, created, submitErr, duration)
	if s.metrics != nil {
		s.metrics.ObserveSubmission(string(status), duration)
	}

	if submitErr != nil {
		if claimed {
			if err := s.idem.Del(context.WithoutCancel(ctx), key); err != nil {
				s.logg.Warn(ctx, "failed to release order idempotency key")
			}
		}
		s.logg.Error(ctx, "order submission failed", submitErr)
		return nil, submitErr
	}

	result := &Result{
		SubmissionID: submissionID,
		OrderID:      created.ID,
		Number:       created.Number,
		Status:       created.Status,
		Total:        created.Total,
		Order:        created.Raw,
	}
	if claimed {
		s.storeOutcome(ctx, key, *result)
	}
	result.Applied = s.apply(ctx, sess, revision)
	switch {
	case !result.Applied:
		s.logg.Warn(ctx, "session changed during order submission; cart left unchanged")
	case claimed:
		s.retire(ctx, key)
	}
	if s.tracker != nil {
		s.tracker.TrackPurchase(ctx, sess.ID(), payload, *result)
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id":      created.ID,
		"submission_id": submissionID,
	}), "order placed")
	return result, nil
}

func (s *service) ListSubmissions(ctx context.Context, sessionID string, params pagination.Params) (*SubmissionPage, error) {
	after, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.ListSubmissionsBySession(ctx, sessionID, pagination.LimitWithBuffer(limit), after)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list order submissions")
	}
	items, next := pagination.Page(rows, limit, func(m models.OrderSubmission) pagination.Cursor {
		return pagination.Cursor{CreatedAt: m.CreatedAt, ID: m.ID}
	})
	return &SubmissionPage{Items: items, NextCursor: next}, nil
}

// claim reserves the idempotency key for this payload. It returns the stored
// result when an identical submission succeeded but was never applied.
func (s *service) claim(ctx context.Context, sessionID, hash string) (string, bool, *Result, error) {
	if s.idem == nil {
		return "", false, nil, nil
	}
	key := s.idem.IdempotencyKey(idempotencyScope, sessionID+":"+hash)
	ok, err := s.idem.SetNX(ctx, key, idempotencyPending, s.idemTTL)
	if err != nil {
		s.logg.Warn(ctx, "order idempotency unavailable; submitting without guard")
		return key, false, nil, nil
	}
	if ok {
		return key, true, nil, nil
	}

	stored, err := s.idem.Get(ctx, key)
	if err != nil {
		if redisclient.IsNil(err) {
			return "", false, nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order submission already in progress")
		}
		return "", false, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read order idempotency key")
	}
	if stored == idempotencyPending {
		return "", false, nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order submission already in progress")
	}
	var prior Result
	if err := json.Unmarshal([]byte(stored), &prior); err != nil {
		return "", false, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode stored order outcome")
	}
	return key, false, &prior, nil
}

func (s *service) storeOutcome(ctx context.Context, key string, result Result) {
	data, err := json.Marshal(result)
	if err == nil {
		err = s.idem.Set(context.WithoutCancel(ctx), key, string(data), s.idemTTL)
	}
	if err != nil {
		s.logg.Error(ctx, "failed to store order outcome", err)
	}
}

// retire drops the stored outcome once it has been applied, so a later order
// with the same contents is posted again.
func (s *service) retire(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.idem.Del(context.WithoutCancel(ctx), key); err != nil {
		s.logg.Warn(ctx, "failed to retire order idempotency key")
	}
}

// apply clears the cart and checkout when the request is still live and the
// session is at the snapshot revision. A failed persist rolls the session
// back and reports the outcome as unapplied.
func (s *service) apply(ctx context.Context, sess *session.Session, revision uint64) bool {
	if ctx.Err() != nil {
		return false
	}
	applied, err := s.sessions.UpdateAt(ctx, sess, revision, func(tx *session.Tx) {
		tx.Cart().Clear()
		tx.Cart().SetCartOpen(false)
		tx.Checkout().Reset()
	})
	if err != nil {
		s.logg.Error(ctx, "failed to persist session after order", err)
		return false
	}
	return applied
}

func (s *service) record(ctx context.Context, id, sessionID, hash string, status enums.SubmissionStatus, payload *OrderPayload, created *woocommerce.CreatedOrder, submitErr error, duration time.Duration) {
	row := &models.OrderSubmission{
		ID:            id,
		SessionID:     sessionID,
		PayloadHash:   hash,
		Status:        status,
		PaymentMethod: payload.PaymentMethod,
		LineItemCount: len(payload.LineItems),
		ShippingTotal: payload.ShippingLines[0].Total,
		DurationMS:    duration.Milliseconds(),
		CreatedAt:     s.now().UTC(),
	}
	if created != nil {
		orderID := created.ID
		row.UpstreamOrderID = &orderID
	}
	if submitErr != nil {
		var upstream *woocommerce.UpstreamError
		if errors.As(submitErr, &upstream) {
			code := upstream.StatusCode
			row.UpstreamStatus = &code
		}
		if typed := pkgerrors.As(submitErr); typed != nil {
			code := string(typed.Code())
			row.ErrorCode = &code
		}
		msg := submitErr.Error()
		row.ErrorMessage = &msg
	}
	if _, err := s.repo.CreateSubmission(context.WithoutCancel(ctx), row); err != nil {
		s.logg.Error(ctx, "failed to record order submission", err)
	}
}

func outcomeFor(err error) enums.SubmissionStatus {
	switch {
	case err == nil:
		return enums.SubmissionStatusAccepted
	case pkgerrors.IsCode(err, pkgerrors.CodeUpstreamRejected):
		return enums.SubmissionStatusRejected
	default:
		return enums.SubmissionStatusFailed
	}
}

func payloadHash(payload *OrderPayload) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
