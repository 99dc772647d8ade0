package server

import (
	"context"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/julianstephens/keeprun/internal/auth"
	"github.com/julianstephens/keeprun/internal/logger"
	"github.com/julianstephens/keeprun/internal/models"
)

// TokenVerifier resolves a bearer token to an identity.
type TokenVerifier interface {
	Verify(token string) (auth.Identity, error)
}

// UserStore mirrors authenticated identities into local storage.
type UserStore interface {
	EnsureUser(ctx context.Context, id, email string) (models.User, error)
}

// RequestObserver receives per-request timings.
type RequestObserver interface {
	ObserveRequest(method, route string, status int, duration time.Duration)
}

const identityKey = "identity"

func CORS(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 1 && origins[0] == "*" {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

// RequestLogger logs each request and reports its duration to obs when set.
func RequestLogger(obs RequestObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(start)

		fields := []interface{}{
			"method", strings.ToUpper(c.Request.Method),
			"path", c.Request.URL.Path,
			"status", status,
			"duration_ms", elapsed.Milliseconds(),
		}
		if id, ok := auth.FromContext(c.Request.Context()); ok {
			fields = append(fields, "user_id", id.UserID)
		}

		switch {
		case status >= 500:
			logger.Error("HTTP request", fields...)
		case status >= 400:
			logger.Warn("HTTP request", fields...)
		default:
			logger.Info("HTTP request", fields...)
		}

		if obs != nil {
			obs.ObserveRequest(c.Request.Method, route, status, elapsed)
		}
	}
}

// RequireAuth verifies the bearer token and upserts the caller's user row.
func RequireAuth(verifier TokenVerifier, users UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := verifier.Verify(auth.BearerToken(c.GetHeader("Authorization")))
		if err != nil {
			logger.Debug("Rejected token", "error", err)
			RespondError(c, err)
			return
		}
		if _, err := users.EnsureUser(c.Request.Context(), id.UserID, id.Email); err != nil {
			RespondError(c, err)
			return
		}

		c.Set(identityKey, id)
		c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}

// currentUser returns the authenticated user id. RequireAuth guarantees it.
func currentUser(c *gin.Context) string {
	if v, ok := c.Get(identityKey); ok {
		if id, ok := v.(auth.Identity); ok {
			return id.UserID
		}
	}
	return ""
}
