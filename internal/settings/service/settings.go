package service

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/stage-portal-backend/internal/auth/middleware"
	"github.com/lk2023060901/stage-portal-backend/internal/pkg/response"
	"github.com/lk2023060901/stage-portal-backend/internal/settings/biz"
	"go.uber.org/zap"
)

// SettingService 站点配置接口
type SettingService struct {
	uc     *biz.SettingUseCase
	logger *zap.Logger
}

func NewSettingService(uc *biz.SettingUseCase, logger *zap.Logger) *SettingService {
	return &SettingService{uc: uc, logger: logger}
}

// RegisterRoutes 配置管理接口
func (s *SettingService) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/settings")
	{
		g.GET("", s.List)
		g.GET("/:key", s.Get)
		g.PUT("/:key", s.Upsert)
		g.DELETE("/:key", s.Delete)
	}
}

// List 全部配置项
func (s *SettingService) List(c *gin.Context) {
	settings, err := s.uc.List(c.Request.Context())
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, settings)
}

// Get 单个配置项
func (s *SettingService) Get(c *gin.Context) {
	setting, err := s.uc.Get(c.Request.Context(), c.Param("key"))
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, setting)
}

type upsertRequest struct {
	Value json.RawMessage `json:"value" binding:"required"`
}

// Upsert 写入配置项
func (s *SettingService) Upsert(c *gin.Context) {
	var req upsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	username, _ := middleware.GetUsername(c)
	setting, err := s.uc.Upsert(c.Request.Context(), c.Param("key"), req.Value, username)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, setting)
}

// Delete 删除配置项
func (s *SettingService) Delete(c *gin.Context) {
	if err := s.uc.Delete(c.Request.Context(), c.Param("key")); err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": true})
}
