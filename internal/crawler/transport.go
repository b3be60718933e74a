package crawler

import (
	"net/http"
	"time"

	"github.com/rs/xid"

	"bulliondeals/internal/logger"
)

// RequestIDHeader carries the id assigned to each outgoing fetch.
const RequestIDHeader = "X-Request-Id"

// LoggingTransport tags requests with an xid and logs their outcome.
type LoggingTransport struct {
	next http.RoundTripper
	log  *logger.Logger
}

// NewLoggingTransport wraps next (http.DefaultTransport when nil).
func NewLoggingTransport(next http.RoundTripper, log *logger.Logger) *LoggingTransport {
	if next == nil {
		next = http.DefaultTransport
	}

	if log == nil {
		log = logger.Nop()
	}

	return &LoggingTransport{next: next, log: log}
}

// RoundTrip implements http.RoundTripper.
func (t *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	id := req.Header.Get(RequestIDHeader)
	if id == "" {
		id = xid.New().String()
		req = req.Clone(req.Context())
		req.Header.Set(RequestIDHeader, id)
	}

	log := logger.FromContextOr(req.Context(), t.log)

	start := time.Now()
	resp, err := t.next.RoundTrip(req)

	if err != nil {
		log.Warn("fetch failed",
			"request_id", id,
			"url", req.URL.String(),
			"duration", time.Since(start),
			logger.Err(err),
		)

		return nil, err
	}

	log.Debug("fetched",
		"request_id", id,
		"url", req.URL.String(),
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	return resp, nil
}
