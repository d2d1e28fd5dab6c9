package service

import (
	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/stage-portal-backend/internal/blog/biz"
	"github.com/lk2023060901/stage-portal-backend/internal/pkg/response"
	"go.uber.org/zap"
)

// BlogService 博客镜像接口
type BlogService struct {
	uc     *biz.SyncUseCase
	logger *zap.Logger
}

func NewBlogService(uc *biz.SyncUseCase, logger *zap.Logger) *BlogService {
	return &BlogService{uc: uc, logger: logger}
}

// RegisterPublicRoutes 公开文章列表
func (s *BlogService) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("/blog/articles", s.Articles)
}

// RegisterAdminRoutes 同步管理接口
func (s *BlogService) RegisterAdminRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/blog")
	{
		g.POST("/sync", s.TriggerSync)
		g.GET("/sync/status", s.SyncStatus)
	}
}

// Articles 文章列表（优先走缓存）
func (s *BlogService) Articles(c *gin.Context) {
	articles, err := s.uc.CachedArticles(c.Request.Context())
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, articles)
}

// TriggerSync 手动触发一次同步
func (s *BlogService) TriggerSync(c *gin.Context) {
	report, err := s.uc.SyncOnce(c.Request.Context())
	if err != nil {
		response.HandleError(c, err)
		return
	}

	s.logger.Info("manual blog sync",
		zap.Int("created", report.Created),
		zap.Int("failed", report.Failed))
	response.Success(c, report)
}

// SyncStatus 同步状态与上次报告
func (s *BlogService) SyncStatus(c *gin.Context) {
	report, err := s.uc.LastReport(c.Request.Context())
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, gin.H{
		"running":     s.uc.Running(),
		"last_report": report,
	})
}
