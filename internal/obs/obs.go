package obs

import "time"

type RequestContext struct {
	RequestID     string
	Method        string
	Path          string
	Route         string
	UserID        string
	Status        int
	Duration      time.Duration
	BytesIn       int64
	BytesOut      int64
	ErrorCategory string
	UserAgent     string
	RemoteAddr    string
}
