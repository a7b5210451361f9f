package handler

import (
	"zkledger/internal/adapter/http/middleware"
	redisStore "zkledger/internal/adapter/storage/redis"
	"zkledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc        ports.AuthService
	LedgerSvc      ports.LedgerService
	TransferSvc    ports.TransferService
	TokenSvc       ports.TokenService
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Public routes (no auth) ---
	authHandler := NewAuthHandler(deps.AuthSvc)
	auth := v1.Group("/auth")
	{
		auth.POST("/register", rl("auth_register"), authHandler.Register)
		auth.POST("/login", rl("auth_login"), authHandler.Login)
	}

	// --- JWT-authenticated routes ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	balanceHandler := NewBalanceHandler(deps.LedgerSvc)
	transferHandler := NewTransferHandler(deps.TransferSvc)

	balance := v1.Group("/balance", jwtAuth)
	{
		balance.POST("/read", rl("balance"), balanceHandler.Read)
		balance.POST("/sufficiency", rl("balance"), balanceHandler.CheckSufficiency)
	}

	deposits := v1.Group("/deposits", jwtAuth)
	{
		deposits.POST("", rl("deposits"), balanceHandler.Deposit)
	}

	transfers := v1.Group("/transfers", jwtAuth)
	{
		transfers.POST("", rl("transfers"), transferHandler.Create)
		transfers.GET("", rl("history"), transferHandler.List)
	}

	return r
}
