package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dpm2/maintenance-api/pkg/auth"
	"github.com/dpm2/maintenance-api/pkg/database"
	"github.com/dpm2/maintenance-api/pkg/dispatch"
	"github.com/dpm2/maintenance-api/pkg/models"
	"github.com/dpm2/maintenance-api/pkg/notify"
)

const (
	ctxClaims    = "claims"
	ctxAPIKey    = "apiKey"
	ctxRequestID = "requestID"

	headerRequestID = "X-Request-ID"
)

// Handler contains dependencies for the route handlers
type Handler struct {
	Store      *database.Store
	Auth       *auth.Authenticator
	Dispatcher *dispatch.Dispatcher
	Mailer     notify.Mailer
	Log        zerolog.Logger
}

// RequestID tags every request with an id, reusing the caller's when present
func (h *Handler) RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}

// RequestLogger logs one structured line per request
func (h *Handler) RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		ev := h.Log.Info()
		if status >= http.StatusInternalServerError {
			ev = h.Log.Error()
		} else if status >= http.StatusBadRequest {
			ev = h.Log.Warn()
		}
		ev.Str("request_id", c.GetString(ctxRequestID)).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("http request")
	}
}

func bearer(c *gin.Context) string {
	token := c.GetHeader("Authorization")
	// Strip "Bearer " if present
	if len(token) > 7 && strings.EqualFold(token[:7], "Bearer ") {
		token = token[7:]
	}
	return token
}

// AuthMiddleware verifies the JWT session token
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearer(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		claims, err := h.Auth.VerifyToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Set(ctxClaims, claims)
		c.Next()
	}
}

// RequireRole rejects callers whose role is not listed. Must run after AuthMiddleware.
func (h *Handler) RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := claimsOf(c)
		for _, r := range roles {
			if claims != nil && claims.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
	}
}

// APIKeyMiddleware verifies HMAC integration keys
func (h *Handler) APIKeyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := bearer(c)
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "API Key required"})
			return
		}

		name, err := h.Auth.VerifyHMACKey(key)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid API Key signature"})
			return
		}

		apiKey, err := h.Store.TouchAPIKey(c.Request.Context(), key, name)
		if errors.Is(err, database.ErrRevoked) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "API Key revoked"})
			return
		}
		if err != nil {
			h.fail(c, err, "Could not record API key use")
			c.Abort()
			return
		}

		c.Set(ctxAPIKey, apiKey)
		c.Next()
	}
}

func claimsOf(c *gin.Context) *auth.Claims {
	v, ok := c.Get(ctxClaims)
	if !ok {
		return nil
	}
	claims, _ := v.(*auth.Claims)
	return claims
}

func isStaff(claims *auth.Claims) bool {
	return claims != nil && (claims.Role == models.RoleAdmin || claims.Role == models.RoleManager)
}

func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(id), true
}

// fail maps an error to a status code. msg is shown for unexpected failures.
func (h *Handler) fail(c *gin.Context, err error, msg string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, database.ErrNotFound), errors.Is(err, dispatch.ErrRequestNotFound):
		status = http.StatusNotFound
	case errors.Is(err, dispatch.ErrNoCandidates):
		status = http.StatusServiceUnavailable
	case errors.Is(err, dispatch.ErrAlreadyAssigned),
		errors.Is(err, database.ErrDuplicate),
		errors.Is(err, database.ErrInvalidTransition),
		errors.Is(err, database.ErrInUse),
		errors.Is(err, database.ErrScheduleOverlap):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		h.Log.Error().Err(err).Str("request_id", c.GetString(ctxRequestID)).Msg(msg)
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
