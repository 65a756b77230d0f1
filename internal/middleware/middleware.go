package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"gamemate-server/internal/auth"
	"gamemate-server/internal/config"
	"gamemate-server/internal/user"

	"go.uber.org/zap"
)

var (
	TotalBytesOut int64
	TotalRequests int64
)

type contextKey string

const (
	profileContextKey contextKey = "profile"
	roleContextKey    contextKey = "role"
)

type responseWriter struct {
	http.ResponseWriter
	bytesWritten int64
	statusCode   int
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	atomic.AddInt64(&rw.bytesWritten, int64(n))
	return n, err
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

// TrackRequests counts requests and outbound bytes for the metrics
// snapshots and logs each request.
func TrackRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &responseWriter{ResponseWriter: w, statusCode: 200}

		start := time.Now()
		next.ServeHTTP(rw, r)
		duration := time.Since(start)

		atomic.AddInt64(&TotalBytesOut, atomic.LoadInt64(&rw.bytesWritten))
		atomic.AddInt64(&TotalRequests, 1)

		zap.S().Debugw("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.statusCode,
			"bytes", rw.bytesWritten,
			"duration", duration,
		)
	})
}

func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequireAuth resolves the bearer token into a registered, unsuspended
// profile and loads its role into the request context. Authorization is
// decided before any handler runs, so a denied request has no partial
// effect.
func RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := auth.FromRequest(r, config.Conf.JWTSecret)
		if err != nil {
			http.Error(w, "Authentication required", http.StatusUnauthorized)
			return
		}

		profile, role, err := user.GetProfileBySubject(identity.ID)
		if err != nil {
			if err == user.ErrProfileNotFound {
				http.Error(w, "Profile not registered", http.StatusUnauthorized)
				return
			}
			zap.S().Errorw("loading profile", "subject", identity.ID, "error", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		if _, suspended := user.IsSuspended(identity.ID); suspended {
			http.Error(w, "Account suspended", http.StatusForbidden)
			return
		}

		ctx := auth.WithIdentity(r.Context(), identity)
		ctx = context.WithValue(ctx, profileContextKey, profile)
		ctx = context.WithValue(ctx, roleContextKey, role)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// RequireIdentity only validates the token, without requiring a profile.
// Used by registration, which runs before a profile exists.
func RequireIdentity(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := auth.FromRequest(r, config.Conf.JWTSecret)
		if err != nil {
			http.Error(w, "Authentication required", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), identity)))
	}
}

// RequirePermission gates a route on the caller's role carrying a
// permission. The same evaluator backs the /roles/check display endpoint.
func RequirePermission(permission user.Permission) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return RequireAuth(func(w http.ResponseWriter, r *http.Request) {
			if !user.HasPermission(RoleFromContext(r.Context()), permission) {
				http.Error(w, "Insufficient permissions", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireMinimumRole gates a route on the caller's role tier.
func RequireMinimumRole(required user.RoleName) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return RequireAuth(func(w http.ResponseWriter, r *http.Request) {
			if !user.HasMinimumRole(RoleFromContext(r.Context()), required) {
				http.Error(w, "Insufficient permissions", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireCronToken guards the scheduled-job trigger with a static bearer
// token; cron callers have no user session.
func RequireCronToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		secret := config.Conf.CronSecret
		header := r.Header.Get("Authorization")
		if secret == "" || header != "Bearer "+secret {
			http.Error(w, "Authentication required", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	}
}

// ProfileFromContext returns the authenticated profile, or nil.
func ProfileFromContext(ctx context.Context) *user.Profile {
	profile, _ := ctx.Value(profileContextKey).(*user.Profile)
	return profile
}

// RoleFromContext returns the authenticated caller's role, or nil.
func RoleFromContext(ctx context.Context) *user.Role {
	role, _ := ctx.Value(roleContextKey).(*user.Role)
	return role
}

func CacheControl(maxAge time.Duration, cacheType string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			switch cacheType {
			case "no-cache":
				w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
				w.Header().Set("Pragma", "no-cache")
				w.Header().Set("Expires", "0")
			case "private":
				w.Header().Set("Cache-Control", "private, max-age="+strconv.Itoa(int(maxAge.Seconds())))
			case "public":
				w.Header().Set("Cache-Control", "public, max-age="+strconv.Itoa(int(maxAge.Seconds())))
			}

			next(w, r)
		}
	}
}

// GetClientIP resolves the originating address behind proxies.
func GetClientIP(r *http.Request) string {
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded != "" {
		ips := strings.Split(forwarded, ",")
		return strings.TrimSpace(ips[0])
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	ip := r.RemoteAddr
	if colonPos := strings.LastIndex(ip, ":"); colonPos != -1 {
		ip = ip[:colonPos]
	}
	return ip
}
