package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"finance_tracker/internal/identity"
)

func bearerToken(header string) (string, bool) {
	if header == "" {
		return "", false
	}
	parts := strings.Fields(header)
	if len(parts) != 2 {
		return "", false
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

func userFrom(ctx context.Context) (identity.User, bool) {
	user, ok := ctx.Value(userKey).(identity.User)
	return user, ok
}

type authedHandler func(w http.ResponseWriter, r *http.Request, user identity.User)

func (h *handler) authed(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok || token == "" {
			writeError(w, r, errUnauthorized)
			return
		}
		user, err := h.identity.Authenticate(token)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if rec, ok := w.(*statusRecorder); ok {
			rec.userID = user.ID
		}
		r = r.WithContext(context.WithValue(r.Context(), userKey, user))
		next(w, r, user)
	}
}

func authResult(err error) string {
	if err == nil {
		return "ok"
	}
	var identityErr *identity.Error
	if errors.As(err, &identityErr) {
		return identityErr.Code
	}
	return "error"
}

func metricsGuard(token string, next http.Handler) http.Handler {
	if token == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok || got != token {
			writeError(w, r, errUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
