package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/romeoscript/crime-report/internal/httpx"
)

type contextKey string

const contextAdminKey contextKey = "admin"

// AdminFromContext returns the username AdminMiddleware authenticated.
func AdminFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(contextAdminKey).(string)
	return name, ok
}

// CORSMiddleware answers preflight requests and sets CORS headers. An allow
// list containing "*" admits any origin without credentials; otherwise the
// origin is echoed back only when listed.
func CORSMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	wildcard := false
	for _, o := range allowedOrigins {
		if o == "*" {
			wildcard = true
		}
		allowed[o] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			h := w.Header()
			if wildcard {
				h.Set("Access-Control-Allow-Origin", "*")
			} else if _, ok := allowed[origin]; ok && origin != "" {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
				h.Set("Access-Control-Allow-Credentials", "true")
			}
			if h.Get("Access-Control-Allow-Origin") != "" {
				h.Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			}
			h.Set("Access-Control-Expose-Headers", "Server-Timing, Retry-After")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AdminMiddleware guards staff routes with HTTP basic auth checked against a
// bcrypt hash. It returns nil when passwordHash is empty, meaning the routes
// stay open.
func AdminMiddleware(username, passwordHash string, log *zap.Logger) func(http.Handler) http.Handler {
	if passwordHash == "" {
		return nil
	}
	hash := []byte(passwordHash)
	rs := httpx.Responder{}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if !ok {
				w.Header().Set("WWW-Authenticate", `Basic realm="crime-report admin", charset="UTF-8"`)
				rs.Fail(w, http.StatusUnauthorized, "Unauthorized: admin credentials required", nil)
				return
			}

			userOK := subtle.ConstantTimeCompare([]byte(user), []byte(username)) == 1
			// bcrypt runs even when the username is wrong.
			passErr := bcrypt.CompareHashAndPassword(hash, []byte(pass))
			if !userOK || passErr != nil {
				log.Warn("admin authentication failed", zap.String("user", user), zap.String("remote", r.RemoteAddr))
				w.Header().Set("WWW-Authenticate", `Basic realm="crime-report admin", charset="UTF-8"`)
				rs.Fail(w, http.StatusUnauthorized, "Unauthorized: invalid admin credentials", nil)
				return
			}

			ctx := context.WithValue(r.Context(), contextAdminKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Recover turns a panic into a 500 envelope and keeps the server running.
func Recover(log *zap.Logger) func(http.Handler) http.Handler {
	rs := httpx.Responder{}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.Error("panic serving request",
					zap.Any("panic", rec),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Stack("stack"))
				rs.Fail(w, http.StatusInternalServerError, "Internal server error", nil)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
