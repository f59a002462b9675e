package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"devsecops_api/internal/auth"
	"devsecops_api/internal/ratelimit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	ctxUserID    = "userId"
	ctxRequestID = "requestId"

	requestIDHeader = "X-Request-ID"

	errMissingAuthHeader = "Missing Authorization header"
	errTokenExpired      = "Token has expired"
	errInvalidToken      = "Invalid token"
	errRateLimited       = "Rate limit exceeded"
	errNotFound          = "Not found"
	errInternal          = "Internal server error"
	errBodyTooLarge      = "Request body too large"

	apiCSP     = "default-src 'none'; frame-ancestors 'none'"
	swaggerCSP = "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; frame-ancestors 'none'"
)

// userIdMiddleware authenticates the bearer token and stores the user id in
// the gin context. Missing or expired tokens are 401, anything else that
// fails to verify is 422.
func (h *Handler) userIdMiddleware(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errMissingAuthHeader})
		return
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || scheme != "Bearer" || strings.TrimSpace(token) == "" {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": errInvalidToken})
		return
	}

	userId, err := h.services.ParseToken(strings.TrimSpace(token))
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrTokenExpired):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errTokenExpired})
		return
	default:
		if h.log != nil {
			h.log.Infow("auth_token_rejected", "client_ip", c.ClientIP(), "err", err)
		}
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": errInvalidToken})
		return
	}

	// store in Gin context
	c.Set(ctxUserID, userId)
	c.Next()
}

// currentUserID returns the id stored by userIdMiddleware.
func currentUserID(c *gin.Context) int64 {
	return c.GetInt64(ctxUserID)
}

// requestID tags every request with an id echoed in X-Request-ID. A caller
// supplied id is kept only when it is a well-formed UUID.
func (h *Handler) requestID(c *gin.Context) {
	id := c.GetHeader(requestIDHeader)
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}
	c.Set(ctxRequestID, id)
	c.Header(requestIDHeader, id)
	c.Next()
}

// accessLog logs one line per request at a level chosen by status class.
func (h *Handler) accessLog(c *gin.Context) {
	start := time.Now()
	c.Next()
	if h.log == nil {
		return
	}

	status := c.Writer.Status()
	kv := []interface{}{
		"request_id", c.GetString(ctxRequestID),
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"status", status,
		"duration_ms", float64(time.Since(start).Microseconds()) / 1000,
		"client_ip", c.ClientIP(),
	}
	switch {
	case status >= http.StatusInternalServerError:
		h.log.Errorw("http_request", kv...)
	case status >= http.StatusBadRequest:
		h.log.Warnw("http_request", kv...)
	default:
		h.log.Infow("http_request", kv...)
	}
}

// securityHeaders applies response hardening headers to every response.
func (h *Handler) securityHeaders(c *gin.Context) {
	hdr := c.Writer.Header()
	hdr.Set("X-Content-Type-Options", "nosniff")
	hdr.Set("X-Frame-Options", "DENY")
	hdr.Set("X-XSS-Protection", "0")
	hdr.Set("Referrer-Policy", "strict-origin-when-cross-origin")
	hdr.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=(), usb=()")
	hdr.Set("Cache-Control", "no-store")
	if strings.HasPrefix(c.Request.URL.Path, "/swagger/") {
		hdr.Set("Content-Security-Policy", swaggerCSP)
	} else {
		hdr.Set("Content-Security-Policy", apiCSP)
	}
	hdr.Set("Strict-Transport-Security",
		"max-age="+strconv.FormatInt(int64(h.opts.HSTSMaxAge/time.Second), 10)+"; includeSubDomains")
	c.Next()
}

// maxBodySize rejects declared oversize bodies and caps streamed ones.
func (h *Handler) maxBodySize(c *gin.Context) {
	if c.Request.ContentLength > h.opts.MaxBodyBytes {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": errBodyTooLarge})
		return
	}
	if c.Request.Body != nil {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.opts.MaxBodyBytes)
	}
	c.Next()
}

// rateLimit enforces rule per client address within the named scope.
// Limiter failures let the request through.
func (h *Handler) rateLimit(scope string, rule ratelimit.Rule) gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.opts.Limiter == nil || rule.Limit <= 0 {
			c.Next()
			return
		}

		ip := c.ClientIP()
		res, err := h.opts.Limiter.Allow(c.Request.Context(), scope+":"+ip, rule)
		if err != nil {
			if h.log != nil {
				h.log.Errorw("rate_limit_check_failed", "scope", scope, "err", err)
			}
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

		if !res.Allowed {
			retryAfter := int(res.RetryAfter.Round(time.Second) / time.Second)
			if retryAfter < 1 {
				retryAfter = 1
			}
			if h.log != nil {
				h.log.Warnw("rate_limit_exceeded",
					"scope", scope,
					"client_ip", ip,
					"retry_after_seconds", retryAfter,
					"request_id", c.GetString(ctxRequestID),
				)
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": errRateLimited})
			return
		}
		c.Next()
	}
}

func (h *Handler) recoverPanic(c *gin.Context, recovered any) {
	if h.log != nil {
		h.log.Errorw("panic_recovered",
			"request_id", c.GetString(ctxRequestID),
			"path", c.Request.URL.Path,
			"panic", recovered,
		)
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": errInternal})
}

func (h *Handler) notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": errNotFound})
}
