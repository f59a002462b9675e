package handlers

import (
	"time"

	"devsecops_api/internal/logger"
	"devsecops_api/internal/ratelimit"
	"devsecops_api/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const (
	defaultMaxBodyBytes = 1 << 20 // 1 MB
	defaultHSTSMaxAge   = 365 * 24 * time.Hour
)

// RateLimits holds the per-endpoint budgets.
type RateLimits struct {
	Register      ratelimit.Rule
	Login         ratelimit.Rule
	ProfileUpdate ratelimit.Rule
}

// Options tunes the HTTP layer. A nil Limiter disables rate limiting.
// Forwarding headers are honored only from TrustedProxies (IPs or CIDRs);
// when it is empty the client address is the socket peer.
type Options struct {
	AppName        string
	Version        string
	MaxBodyBytes   int64
	HSTSMaxAge     time.Duration
	TrustedProxies []string
	Swagger        bool
	Limiter        ratelimit.Limiter
	Limits         RateLimits
}

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
	opts     Options
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger, opts Options) *Handler {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	if opts.HSTSMaxAge <= 0 {
		opts.HSTSMaxAge = defaultHSTSMaxAge
	}
	return &Handler{services: services, log: log, opts: opts}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	if err := router.SetTrustedProxies(h.opts.TrustedProxies); err != nil {
		if h.log != nil {
			h.log.Warnw("trusted_proxies_invalid", "proxies", h.opts.TrustedProxies, "err", err)
		}
		_ = router.SetTrustedProxies(nil)
	}
	router.Use(
		h.requestID,
		h.accessLog,
		gin.CustomRecovery(h.recoverPanic),
		h.securityHeaders,
		h.maxBodySize,
	)
	router.NoRoute(h.notFound)

	if h.opts.Swagger {
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	router.GET("/", h.index)
	router.GET("/health", h.health)

	// Auth endpoints
	h.registerAuthRoutes(router)

	// Protected API endpoints
	h.registerAPIRoutes(router)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/register", h.rateLimit("register", h.opts.Limits.Register), h.register)
		auth.POST("/login", h.rateLimit("login", h.opts.Limits.Login), h.login)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api", h.userIdMiddleware)
	{
		api.GET("/profile", h.getProfile)
		api.PUT("/profile", h.rateLimit("profile_update", h.opts.Limits.ProfileUpdate), h.updateProfile)
		api.GET("/users", h.listUsers)
		api.GET("/activity", h.listActivity)
	}
}
