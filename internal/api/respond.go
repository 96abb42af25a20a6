package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"finance_tracker/internal/breaker"
	"finance_tracker/internal/identity"
	"finance_tracker/internal/ledger"
	"finance_tracker/internal/store"
)

const RequestIDHeader = "X-Request-Id"

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	userKey      contextKey = "user"
)

var (
	errRateLimited   = errors.New("too many requests")
	errUnauthorized  = errors.New("authentication required")
	errBadBody       = errors.New("invalid request body")
	errBodyTooLarge  = errors.New("request body too large")
	errNotConfigured = errors.New("not configured")
)

type ErrorBody struct {
	Status    int                 `json:"status"`
	RequestID string              `json:"request_id"`
	Code      string              `json:"code"`
	Message   string              `json:"message"`
	Field     string              `json:"field,omitempty"`
	Fields    []ledger.FieldError `json:"fields,omitempty"`
}

func NewRequestID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return time.Now().UTC().Format("20060102150405.000000000")
	}
	return hex.EncodeToString(buf)
}

func withRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func requestIDFrom(ctx context.Context) string {
	value, _ := ctx.Value(requestIDKey).(string)
	return value
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(RequestIDHeader, requestIDFrom(r.Context()))
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	body := errorBody(err)
	body.RequestID = requestIDFrom(r.Context())
	if rec, ok := w.(*statusRecorder); ok {
		rec.errorCode = body.Code
	}
	if body.Status == http.StatusTooManyRequests || body.Code == "store_unavailable" {
		w.Header().Set("Retry-After", "1")
	}
	writeJSON(w, r, body.Status, body)
}

func errorBody(err error) ErrorBody {
	var verrs ledger.ValidationErrors
	if errors.As(err, &verrs) {
		return ErrorBody{Status: http.StatusBadRequest, Code: "validation_failed", Message: "validation failed", Fields: verrs}
	}
	var identityErr *identity.Error
	if errors.As(err, &identityErr) {
		return ErrorBody{
			Status:  identityStatus(identityErr.Code),
			Code:    identityErr.Code,
			Message: identityErr.Message,
			Field:   identityErr.Field,
		}
	}
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge), errors.Is(err, errBodyTooLarge):
		return ErrorBody{Status: http.StatusRequestEntityTooLarge, Code: "body_too_large", Message: errBodyTooLarge.Error()}
	case errors.Is(err, errBadBody):
		return ErrorBody{Status: http.StatusBadRequest, Code: "bad_request", Message: err.Error()}
	case errors.Is(err, store.ErrNotFound), errors.Is(err, errNotConfigured):
		return ErrorBody{Status: http.StatusNotFound, Code: "not_found", Message: "not found"}
	case errors.Is(err, errUnauthorized):
		return ErrorBody{Status: http.StatusUnauthorized, Code: "unauthorized", Message: err.Error()}
	case errors.Is(err, errRateLimited):
		return ErrorBody{Status: http.StatusTooManyRequests, Code: "rate_limited", Message: err.Error()}
	case errors.Is(err, breaker.ErrOpen):
		return ErrorBody{Status: http.StatusServiceUnavailable, Code: "store_unavailable", Message: "transaction store unavailable"}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrorBody{Status: http.StatusServiceUnavailable, Code: "canceled", Message: "request canceled"}
	default:
		return ErrorBody{Status: http.StatusInternalServerError, Code: "internal", Message: "internal error"}
	}
}

func identityStatus(code string) int {
	switch code {
	case identity.CodeEmailInUse:
		return http.StatusConflict
	case identity.CodeInvalidEmail, identity.CodeWeakPassword, identity.CodeInvalidResetCode:
		return http.StatusBadRequest
	default:
		return http.StatusUnauthorized
	}
}
