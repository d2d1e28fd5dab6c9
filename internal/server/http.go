package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	auditservice "github.com/lk2023060901/stage-portal-backend/internal/auditlog/service"
	"github.com/lk2023060901/stage-portal-backend/internal/auth"
	"github.com/lk2023060901/stage-portal-backend/internal/auth/middleware"
	blogservice "github.com/lk2023060901/stage-portal-backend/internal/blog/service"
	"github.com/lk2023060901/stage-portal-backend/internal/conf"
	emailservice "github.com/lk2023060901/stage-portal-backend/internal/email/service"
	regservice "github.com/lk2023060901/stage-portal-backend/internal/registration/service"
	settingsservice "github.com/lk2023060901/stage-portal-backend/internal/settings/service"
	uploadservice "github.com/lk2023060901/stage-portal-backend/internal/upload/service"
	userservice "github.com/lk2023060901/stage-portal-backend/internal/user/service"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Services 路由注册需要的全部服务
type Services struct {
	Registration *regservice.RegistrationService
	Email        *emailservice.EmailService
	User         *userservice.UserService
	Settings     *settingsservice.SettingService
	Audit        *auditservice.AuditService
	Blog         *blogservice.BlogService
	Upload       *uploadservice.UploadService
}

type HTTPServer struct {
	server *http.Server
	logger *zap.Logger
}

func NewHTTPServer(
	config *conf.Config,
	logger *zap.Logger,
	jwtManager *auth.JWTManager,
	redisClient *redis.Client,
	svcs Services,
) *HTTPServer {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(LoggerMiddleware(logger))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	api := router.Group("/api/v1")

	// 公开接口：报名提交限流，文章列表不限
	public := api.Group("")
	public.Use(middleware.SubmitRateLimiter(redisClient, logger))
	svcs.Registration.RegisterPublicRoutes(public)
	svcs.Blog.RegisterPublicRoutes(api)

	// 登录接口单独限流
	authGroup := api.Group("/auth")
	authGroup.Use(middleware.LoginRateLimiter(redisClient, logger))
	svcs.User.RegisterAuthRoutes(authGroup)

	// 管理端接口：JWT 认证 + 操作日志
	admin := api.Group("/admin")
	admin.Use(middleware.JWTAuth(jwtManager, logger))
	admin.Use(svcs.Audit.Recorder())
	svcs.Registration.RegisterAdminRoutes(admin)
	svcs.Email.RegisterRoutes(admin)
	svcs.User.RegisterAdminRoutes(admin)
	svcs.Settings.RegisterRoutes(admin)
	svcs.Audit.RegisterRoutes(admin)
	svcs.Blog.RegisterAdminRoutes(admin)
	svcs.Upload.RegisterRoutes(admin)

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)

	return &HTTPServer{
		server: &http.Server{
			Addr:    addr,
			Handler: router,
		},
		logger: logger,
	}
}

func (s *HTTPServer) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

func (s *HTTPServer) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")
	return s.server.Shutdown(ctx)
}

func LoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
		)
	}
}
