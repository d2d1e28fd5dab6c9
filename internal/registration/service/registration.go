package service

import (
	"strconv"

	"github.com/gin-gonic/gin"
	emailbiz "github.com/lk2023060901/stage-portal-backend/internal/email/biz"
	"github.com/lk2023060901/stage-portal-backend/internal/pkg/response"
	"github.com/lk2023060901/stage-portal-backend/internal/registration/biz"
	"go.uber.org/zap"
)

// RegistrationService 报名相关接口
type RegistrationService struct {
	uc     *biz.RegistrationUseCase
	logger *zap.Logger
}

func NewRegistrationService(uc *biz.RegistrationUseCase, logger *zap.Logger) *RegistrationService {
	return &RegistrationService{uc: uc, logger: logger}
}

// RegisterPublicRoutes 公开报名入口
func (s *RegistrationService) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST("/registrations", s.Create)
}

// RegisterAdminRoutes 管理端审核接口
func (s *RegistrationService) RegisterAdminRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/registrations")
	{
		g.GET("", s.List)
		g.GET("/fields", s.Fields)
		g.GET("/:recordId", s.Get)
		g.PUT("/:recordId/status", s.UpdateStatus)
		g.POST("/:recordId/review/first", s.ReviewFirst)
		g.POST("/:recordId/review/second", s.ReviewSecond)
		g.POST("/:recordId/review/final", s.ReviewFinal)
		g.POST("/bulk-email", s.BulkEmail)
	}
}

type createRequest struct {
	Name        string `json:"name" binding:"required"`
	ProgramName string `json:"program_name" binding:"required"`
	ProgramType string `json:"program_type"`
	Performers  string `json:"performers"`
	Contact     string `json:"contact"`
	Phone       string `json:"phone"`
	Description string `json:"description"`
}

// Create 公开报名。确认邮件异步发送，这里直接返回受理结果。
func (s *RegistrationService) Create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	reg, err := s.uc.Create(c.Request.Context(), biz.CreateInput{
		Name:        req.Name,
		ProgramName: req.ProgramName,
		ProgramType: req.ProgramType,
		Performers:  req.Performers,
		Contact:     req.Contact,
		Phone:       req.Phone,
		Description: req.Description,
	})
	if err != nil {
		response.HandleError(c, err)
		return
	}

	s.logger.Info("registration created",
		zap.String("registration_id", reg.RegistrationID),
		zap.String("program", reg.ProgramName))
	response.Created(c, reg)
}

// List 报名列表
func (s *RegistrationService) List(c *gin.Context) {
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	result, next, err := s.uc.List(c.Request.Context(), pageSize, c.Query("page_token"), c.Query("status"))
	if err != nil {
		response.HandleError(c, err)
		return
	}

	payload := gin.H{
		"items":    result.Items,
		"has_more": result.HasMore,
		"total":    result.Total,
	}
	if next != nil {
		payload["page_token"] = *next
	}
	response.Success(c, payload)
}

// Fields 报名表字段结构
func (s *RegistrationService) Fields(c *gin.Context) {
	fields, err := s.uc.TableFields(c.Request.Context())
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, fields)
}

// Get 报名详情
func (s *RegistrationService) Get(c *gin.Context) {
	reg, err := s.uc.GetByRecordID(c.Request.Context(), c.Param("recordId"))
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, reg)
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
	Note   string `json:"note"`
}

// UpdateStatus 管理员直接改状态（兜底操作，无前置校验）
func (s *RegistrationService) UpdateStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	reg, notify, err := s.uc.UpdateStatus(c.Request.Context(), c.Param("recordId"), req.Status, req.Note)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, gin.H{"registration": reg, "notification": notify})
}

type reviewRequest struct {
	Approve bool   `json:"approve"`
	Note    string `json:"note"`
}

func (s *RegistrationService) review(c *gin.Context, apply func(ctx *gin.Context, req reviewRequest) error) {
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := apply(c, req); err != nil {
		response.HandleError(c, err)
	}
}

// ReviewFirst 一审
func (s *RegistrationService) ReviewFirst(c *gin.Context) {
	s.review(c, func(ctx *gin.Context, req reviewRequest) error {
		reg, notify, err := s.uc.ApproveFirstTier(ctx.Request.Context(), ctx.Param("recordId"), req.Approve, req.Note)
		if err != nil {
			return err
		}
		response.Success(ctx, gin.H{"registration": reg, "notification": notify})
		return nil
	})
}

// ReviewSecond 二审（要求一审通过）
func (s *RegistrationService) ReviewSecond(c *gin.Context) {
	s.review(c, func(ctx *gin.Context, req reviewRequest) error {
		reg, notify, err := s.uc.ApproveSecondTier(ctx.Request.Context(), ctx.Param("recordId"), req.Approve, req.Note)
		if err != nil {
			return err
		}
		response.Success(ctx, gin.H{"registration": reg, "notification": notify})
		return nil
	})
}

// ReviewFinal 终审（要求二审通过）
func (s *RegistrationService) ReviewFinal(c *gin.Context) {
	s.review(c, func(ctx *gin.Context, req reviewRequest) error {
		reg, notify, err := s.uc.ApproveFinalTier(ctx.Request.Context(), ctx.Param("recordId"), req.Approve, req.Note)
		if err != nil {
			return err
		}
		response.Success(ctx, gin.H{"registration": reg, "notification": notify})
		return nil
	})
}

type bulkEmailRequest struct {
	RecordIDs []string `json:"record_ids" binding:"required"`
	Kind      string   `json:"kind" binding:"required"`
	Subject   string   `json:"subject"`
	Body      string   `json:"body"`
	Status    string   `json:"status"`
	Note      string   `json:"note"`
	BCC       string   `json:"bcc"`
}

// BulkEmail 管理员触发的批量通知，同步等待汇总结果
func (s *RegistrationService) BulkEmail(c *gin.Context) {
	var req bulkEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := s.uc.BulkNotify(c.Request.Context(), req.RecordIDs, emailbiz.BulkKind(req.Kind), emailbiz.BulkContent{
		Subject: req.Subject,
		Body:    req.Body,
		Status:  req.Status,
		Note:    req.Note,
	}, req.BCC)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, result)
}
