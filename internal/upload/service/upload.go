package service

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/stage-portal-backend/internal/auth/middleware"
	"github.com/lk2023060901/stage-portal-backend/internal/pkg/response"
	"github.com/lk2023060901/stage-portal-backend/internal/upload/biz"
	"go.uber.org/zap"
)

// UploadService 文件上传接口
type UploadService struct {
	uc     *biz.UploadUseCase
	logger *zap.Logger
}

func NewUploadService(uc *biz.UploadUseCase, logger *zap.Logger) *UploadService {
	return &UploadService{uc: uc, logger: logger}
}

// RegisterRoutes 上传管理接口
func (s *UploadService) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/uploads")
	{
		g.POST("", s.Upload)
		g.GET("", s.List)
		g.GET("/:id/url", s.DownloadURL)
		g.DELETE("/:id", s.Delete)
	}
}

// Upload 上传文件（multipart form，字段名 file）
func (s *UploadService) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file is required")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.BadRequest(c, "cannot read file")
		return
	}
	defer file.Close()

	username, _ := middleware.GetUsername(c)
	upload, err := s.uc.Upload(c.Request.Context(), fileHeader.Filename, fileHeader.Size, file, username)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Created(c, upload)
}

// List 上传记录列表
func (s *UploadService) List(c *gin.Context) {
	uploads, err := s.uc.List(c.Request.Context())
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, uploads)
}

// DownloadURL 生成临时下载链接（1 小时有效）
func (s *UploadService) DownloadURL(c *gin.Context) {
	url, err := s.uc.DownloadURL(c.Request.Context(), c.Param("id"), time.Hour)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, gin.H{"url": url})
}

// Delete 删除文件
func (s *UploadService) Delete(c *gin.Context) {
	if err := s.uc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.HandleError(c, err)
		return
	}

	s.logger.Info("upload removed", zap.String("upload_id", c.Param("id")))
	response.Success(c, gin.H{"deleted": true})
}
