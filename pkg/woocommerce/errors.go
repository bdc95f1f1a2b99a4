package woocommerce

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/sony/gobreaker"

	pkgerrors "github.com/angelmondragon/cartflow/pkg/errors"
)

// UpstreamError is a non-2xx answer from the REST API. Body is relayed verbatim.
type UpstreamError struct {
	StatusCode int
	Body       json.RawMessage
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("woocommerce returned status %d", e.StatusCode)
}

// Details returns the upstream body as JSON when possible, else as text.
func (e *UpstreamError) Details() any {
	if len(e.Body) == 0 {
		return nil
	}
	if json.Valid(e.Body) {
		return e.Body
	}
	return string(e.Body)
}

func newUpstreamError(status int, body []byte) *UpstreamError {
	copied := make([]byte, len(body))
	copy(copied, body)
	return &UpstreamError{StatusCode: status, Body: copied}
}

// classify converts transport, breaker and upstream failures into typed errors.
func classify(err error, message string) error {
	if err == nil {
		return nil
	}
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		status := upstream.StatusCode
		if status < http.StatusBadRequest {
			status = http.StatusBadGateway
		}
		return pkgerrors.Wrap(pkgerrors.CodeUpstreamRejected, upstream, message).
			WithHTTPStatus(status).
			WithDetails(upstream.Details())
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "woocommerce temporarily unavailable")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}
