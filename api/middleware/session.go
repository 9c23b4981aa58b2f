package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/olekdev/tackleshop-backend/api/responses"
	"github.com/olekdev/tackleshop-backend/pkg/config"
	pkgerrors "github.com/olekdev/tackleshop-backend/pkg/errors"
	"github.com/olekdev/tackleshop-backend/pkg/logger"
	"github.com/olekdev/tackleshop-backend/pkg/session"
)

type contextKey string

const (
	sessionIDKey  contextKey = "session_id"
	clientAddrKey contextKey = "client_addr"
)

// WithSessionID injects a session ID, used by handlers' tests.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// WithClientAddr injects a client address, used by handlers' tests.
func WithClientAddr(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, clientAddrKey, addr)
}

// SessionIDFromContext returns the caller's session ID, empty when the
// session middleware did not run.
func SessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDKey).(string)
	return id
}

// ClientAddrFromContext returns the best-effort client IP.
func ClientAddrFromContext(ctx context.Context) string {
	addr, _ := ctx.Value(clientAddrKey).(string)
	return addr
}

// Session resolves or mints the anonymous session cookie that identifies a
// cart and a promo rate-limit bucket. An unknown or missing cookie gets a
// fresh session rather than an error.
func Session(mgr session.Checker, cfg config.SessionConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			sessionID := ""
			if cookie, err := r.Cookie(cfg.CookieName); err == nil && cookie.Value != "" {
				known, err := mgr.Exists(ctx, cookie.Value)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "session lookup failed"))
					return
				}
				if known {
					sessionID = cookie.Value
					if err := mgr.Touch(ctx, sessionID); err != nil && logg != nil {
						logg.Warn(logg.WithSessionID(ctx, sessionID), "session.touch.failed")
					}
				}
			}

			if sessionID == "" {
				issued, err := mgr.Issue(ctx)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "session issue failed"))
					return
				}
				sessionID = issued
				http.SetCookie(w, &http.Cookie{
					Name:     cfg.CookieName,
					Value:    sessionID,
					Path:     "/",
					MaxAge:   int(cfg.TTL.Seconds()),
					HttpOnly: true,
					Secure:   cfg.CookieSecure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			if logg != nil {
				ctx = logg.WithSessionID(ctx, sessionID)
			}
			ctx = context.WithValue(ctx, sessionIDKey, sessionID)
			ctx = context.WithValue(ctx, clientAddrKey, clientAddr(r))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// clientAddr prefers the forwarding header set by the load balancer.
func clientAddr(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
