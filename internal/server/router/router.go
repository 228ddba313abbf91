package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/supplychain/internal/requestctx"
)

// Header names carrying the caller identity.
const (
	HeaderTenant = "X-Tenant-ID"
	HeaderUser   = "X-User-ID"
)

// Registrar mounts a group of routes.
type Registrar interface {
	Register(rg *gin.RouterGroup)
}

// New wires the Gin engine with required routes and middlewares.
func New(logger *zap.Logger, registrars ...Registrar) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.Use(identityMiddleware())
	for _, reg := range registrars {
		if reg != nil {
			reg.Register(api)
		}
	}

	if logger != nil {
		logger.Info("router initialized", zap.Int("route_groups", len(registrars)))
	}

	return r
}

// identityMiddleware copies the tenant and acting user headers onto the
// request context. Missing headers fall back to the defaults of requestctx.
func identityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if tenant := c.GetHeader(HeaderTenant); tenant != "" {
			ctx = requestctx.WithTenant(ctx, tenant)
		}
		if user := c.GetHeader(HeaderUser); user != "" {
			ctx = requestctx.WithActor(ctx, user)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("tenant", requestctx.Tenant(c.Request.Context())))
	}
}
