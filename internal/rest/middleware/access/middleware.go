// Package access logs every REST request.
package access

import (
	"net/http"
	"time"

	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
)

// statusRecorder remembers the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Flush keeps streaming responses working through the recorder.
func (r *statusRecorder) Flush() {
	if flusher, ok := r.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Middleware logs the method, route, status and duration of each request.
type Middleware struct {
	logger *zap.Logger
}

// New creates a new access log middleware.
func New(logger *zap.Logger) *Middleware {
	return &Middleware{logger: logger.Named("access")}
}

// AsRESTMiddleware returns a bunrouter middleware handler for access logging.
func (m *Middleware) AsRESTMiddleware(next bunrouter.HandlerFunc) bunrouter.HandlerFunc {
	return func(w http.ResponseWriter, req bunrouter.Request) error {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		err := next(rec, req)

		fields := []zap.Field{
			zap.String("method", req.Method),
			zap.String("route", req.Route()),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		}

		switch {
		case err != nil:
			m.logger.Error("Request failed", append(fields, zap.Error(err))...)
		case rec.status >= http.StatusInternalServerError:
			m.logger.Warn("Request completed with server error", fields...)
		default:
			m.logger.Debug("Request completed", fields...)
		}

		return err
	}
}
