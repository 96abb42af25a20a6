package api

import (
	"net/http"
	"time"

	"finance_tracker/internal/obs"

	"go.uber.org/zap"
)

type statusRecorder struct {
	http.ResponseWriter
	status    int
	bytes     int64
	userID    string
	errorCode string
}

func (r *statusRecorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(p)
	r.bytes += int64(n)
	return n, err
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (h *handler) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = NewRequestID()
		}
		w.Header().Set(RequestIDHeader, requestID)
		r = r.WithContext(withRequestID(r.Context(), requestID))
		if h.maxBodyBytes > 0 && r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
		}
		if ce := zap.L().Check(zap.DebugLevel, "request headers"); ce != nil {
			fields := make([]zap.Field, 0, len(r.Header))
			for name, values := range r.Header {
				if len(values) > 0 {
					fields = append(fields, zap.String(name, obs.RedactHeaderValue(name, values[0])))
				}
			}
			ce.Write(zap.String("request_id", requestID), zap.Dict("headers", fields...))
		}

		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}

		duration := time.Since(start)
		h.metrics.ObserveRequest(r.Pattern, rec.status, duration)
		obs.LogAccess(obs.RequestContext{
			RequestID:     requestID,
			Method:        r.Method,
			Path:          r.URL.Path,
			Route:         r.Pattern,
			UserID:        rec.userID,
			Status:        rec.status,
			Duration:      duration,
			BytesIn:       max(r.ContentLength, 0),
			BytesOut:      rec.bytes,
			ErrorCategory: rec.errorCode,
			UserAgent:     r.UserAgent(),
			RemoteAddr:    r.RemoteAddr,
		})
	})
}

func (h *handler) limited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.rateLimiter.Allow(r.RemoteAddr) {
			writeError(w, r, errRateLimited)
			return
		}
		next(w, r)
	}
}
