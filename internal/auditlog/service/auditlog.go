package service

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/stage-portal-backend/internal/auditlog/biz"
	"github.com/lk2023060901/stage-portal-backend/internal/auth/middleware"
	"github.com/lk2023060901/stage-portal-backend/internal/pkg/response"
	"go.uber.org/zap"
)

// AuditService 操作日志接口
type AuditService struct {
	uc     *biz.AuditUseCase
	logger *zap.Logger
}

func NewAuditService(uc *biz.AuditUseCase, logger *zap.Logger) *AuditService {
	return &AuditService{uc: uc, logger: logger}
}

// RegisterRoutes 日志查询接口
func (s *AuditService) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/audit-logs", s.List)
}

// List 分页查询操作日志
func (s *AuditService) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	entries, total, err := s.uc.List(c.Request.Context(), biz.ListQuery{
		Action:   c.Query("action"),
		Actor:    c.Query("actor"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, gin.H{
		"items":     entries,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// Recorder 记录管理端写操作的中间件。只记录非 GET 请求，
// 在响应完成后异步落库，不阻塞请求。
func (s *AuditService) Recorder() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodOptions {
			return
		}
		// 失败的请求不算操作
		if c.Writer.Status() >= http.StatusBadRequest {
			return
		}

		actorID, _ := middleware.GetUserID(c)
		actor, _ := middleware.GetUsername(c)
		entry := &biz.Entry{
			ActorID: actorID,
			Actor:   actor,
			Action:  fmt.Sprintf("%s %s", c.Request.Method, c.FullPath()),
			Target:  c.Request.URL.Path,
			IP:      c.ClientIP(),
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			s.uc.Record(ctx, entry)
		}()
	}
}
