// Package api exposes the record store over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"excusedesk/internal/attachments"
	"excusedesk/internal/audit"
	"excusedesk/internal/auth"
	"excusedesk/internal/config"
	"excusedesk/internal/httpmiddleware"
	"excusedesk/internal/letters"
	"excusedesk/internal/store"
)

// Server holds handler dependencies.
type Server struct {
	store  *letters.Store
	files  attachments.Store
	trail  *audit.Trail // nil when redis is not configured
	redis  *store.Redis
	cfg    config.App
	logger *zap.Logger
}

// New builds a Server.
func New(st *letters.Store, files attachments.Store, trail *audit.Trail, rds *store.Redis, cfg config.App, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{store: st, files: files, trail: trail, redis: rds, cfg: cfg, logger: logger}
}

// Router assembles the gin engine with middleware and all routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:          24 * time.Hour,
	}))
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewSimpleTokenBucket(s.cfg.RateLimitPerMin, s.cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", s.healthz)

	v1 := r.Group("/v1")
	{
		v1.POST("/auth/login", s.login)
		v1.POST("/letters", s.submitLetter)
		v1.POST("/students/status", s.studentStatus)
		v1.GET("/students", s.listStudents)
		v1.GET("/reviewers", s.listReviewers)
	}

	r.GET("/uploads/:id", s.downloadAttachment)

	authed := r.Group("/v1", auth.ReviewerAuth(s.cfg.JWTSigningKey, s.cfg.JWTIssuer))
	{
		authed.POST("/auth/logout", s.logout)
		authed.GET("/auth/session", s.session)
		authed.GET("/letters", s.listLetters)
		authed.PATCH("/letters/:id", s.updateLetter)
		authed.PATCH("/letters/:id/status", s.reviewLetter)
		authed.DELETE("/letters/:id", s.deleteLetter)
		authed.POST("/uploads", s.uploadAttachment)
	}

	admin := r.Group("/v1", auth.ReviewerAuth(s.cfg.JWTSigningKey, s.cfg.JWTIssuer), auth.AdminOnly())
	{
		admin.PATCH("/students/:id", s.updateStudent)
		admin.PATCH("/reviewers/:id", s.updateReviewer)
		admin.GET("/audit", s.auditTrail)
	}

	return r
}

func (s *Server) healthz(c *gin.Context) {
	redisHealthy := s.redis.Healthy(c.Request.Context())
	status := http.StatusOK
	if !redisHealthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy})
}

// Security headers middleware.
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		// Only add HSTS in production
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
