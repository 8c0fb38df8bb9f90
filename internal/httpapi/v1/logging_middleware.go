package v1

import (
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tinoosan/schoolfin/internal/ledger"
)

const ctxKeyAccessLog ctxKey = "accessLog"

// accessLog collects what inner handlers learn about a request for the completion line.
type accessLog struct {
	principal *ledger.Principal
}

// noteCaller records the authenticated caller on the request's access log, if one is open.
func noteCaller(ctx context.Context, p ledger.Principal) {
	if al, ok := ctx.Value(ctxKeyAccessLog).(*accessLog); ok {
		al.principal = &p
	}
}

// requestLogger writes one access line per request, tagged with the caller's tenant and role
// once authenticate has run. Server errors are logged at WARN.
func requestLogger(l *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			reqID := chimw.GetReqID(r.Context())
			l.Debug("request started", "req_id", reqID, "method", r.Method, "path", r.URL.Path)

			al := &accessLog{}
			next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), ctxKeyAccessLog, al)))

			attrs := []any{
				"req_id", reqID,
				"method", r.Method,
				"route", routePattern(r),
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start).String(),
			}
			if al.principal != nil {
				attrs = append(attrs,
					"tenant_id", al.principal.TenantID.String(),
					"user_id", al.principal.UserID.String(),
					"role", string(al.principal.Role),
				)
			}
			level := slog.LevelInfo
			if ww.Status() >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}
			l.Log(r.Context(), level, "request complete", attrs...)
		})
	}
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

// recoverer turns a panic into a 500 and logs it with the stack.
func recoverer(l *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					l.Error("panic", "req_id", chimw.GetReqID(r.Context()), "path", r.URL.Path, "err", rec, "stack", string(debug.Stack()))
					writeErr(w, http.StatusInternalServerError, "internal error", "internal_error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
