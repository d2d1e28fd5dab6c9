package service

import (
	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/stage-portal-backend/internal/email/biz"
	"github.com/lk2023060901/stage-portal-backend/internal/pkg/response"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// EmailService 邮件凭证与发送管理接口
type EmailService struct {
	creds      *biz.CredentialUseCase
	dispatcher *biz.Dispatcher
	selector   *biz.Selector
	logger     *zap.Logger
}

func NewEmailService(creds *biz.CredentialUseCase, dispatcher *biz.Dispatcher, selector *biz.Selector, logger *zap.Logger) *EmailService {
	return &EmailService{
		creds:      creds,
		dispatcher: dispatcher,
		selector:   selector,
		logger:     logger,
	}
}

// RegisterRoutes 注册管理端路由
func (s *EmailService) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/email")
	{
		g.GET("/status", s.Status)
		g.GET("/credentials", s.ListCredentials)
		g.POST("/credentials", s.CreateCredential)
		g.PUT("/credentials/:id", s.UpdateCredential)
		g.DELETE("/credentials/:id", s.DeleteCredential)
		g.POST("/credentials/:id/toggle", s.ToggleCredential)
		g.POST("/test", s.TestSend)
	}
}

type credentialRequest struct {
	Name     string `json:"name"`
	Host     string `json:"host" binding:"required"`
	Port     int    `json:"port"`
	Secure   bool   `json:"secure"`
	Username string `json:"username" binding:"required"`
	Secret   string `json:"secret" binding:"required"`
	From     string `json:"from"`
}

type credentialUpdateRequest struct {
	Name     *string `json:"name"`
	Host     *string `json:"host"`
	Port     *int    `json:"port"`
	Secure   *bool   `json:"secure"`
	Username *string `json:"username"`
	Secret   *string `json:"secret"`
	From     *string `json:"from"`
}

type credentialResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Host         string `json:"host"`
	Port         int    `json:"port"`
	Secure       bool   `json:"secure"`
	Username     string `json:"username"`
	Secret       string `json:"secret"`
	From         string `json:"from"`
	Active       bool   `json:"active"`
	ActiveLabel  string `json:"active_label"`
	SuccessCount int64  `json:"success_count"`
	FailureCount int64  `json:"failure_count"`
	LastUsed     string `json:"last_used,omitempty"`
	CreatedAt    string `json:"created_at"`
}

func toCredentialResponse(c *biz.Credential) *credentialResponse {
	label := "停用"
	if c.Active {
		label = "启用"
	}
	resp := &credentialResponse{
		ID:           c.ID,
		Name:         c.Name,
		Host:         c.Host,
		Port:         c.Port,
		Secure:       c.Secure,
		Username:     c.Username,
		Secret:       c.Secret,
		From:         c.From,
		Active:       c.Active,
		ActiveLabel:  label,
		SuccessCount: c.SuccessCount,
		FailureCount: c.FailureCount,
		CreatedAt:    c.CreatedAt.Format("2006-01-02 15:04:05"),
	}
	if c.LastUsed != nil {
		resp.LastUsed = c.LastUsed.Format("2006-01-02 15:04:05")
	}
	return resp
}

// Status 邮件通道可用状态
func (s *EmailService) Status(c *gin.Context) {
	count, err := s.selector.ActiveCount(c.Request.Context())
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, gin.H{
		"configured":   count > 0,
		"active_count": count,
	})
}

// ListCredentials 凭证列表（密码掩码）
func (s *EmailService) ListCredentials(c *gin.Context) {
	creds, err := s.creds.List(c.Request.Context())
	if err != nil {
		response.HandleError(c, err)
		return
	}
	out := make([]*credentialResponse, len(creds))
	for i, cred := range creds {
		out[i] = toCredentialResponse(cred)
	}
	response.Success(c, gin.H{"credentials": out})
}

// CreateCredential 新增凭证
func (s *EmailService) CreateCredential(c *gin.Context) {
	var req credentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	created, err := s.creds.Create(c.Request.Context(), &biz.Credential{
		Name:     req.Name,
		Host:     req.Host,
		Port:     req.Port,
		Secure:   req.Secure,
		Username: req.Username,
		Secret:   req.Secret,
		From:     req.From,
	})
	if err != nil {
		response.HandleError(c, err)
		return
	}

	s.logger.Info("smtp credential created", zap.String("name", created.Name))
	response.Created(c, toCredentialResponse(created))
}

// UpdateCredential 部分更新凭证
func (s *EmailService) UpdateCredential(c *gin.Context) {
	var req credentialUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	updated, err := s.creds.Update(c.Request.Context(), c.Param("id"), &biz.CredentialUpdate{
		Name:     req.Name,
		Host:     req.Host,
		Port:     req.Port,
		Secure:   req.Secure,
		Username: req.Username,
		Secret:   req.Secret,
		From:     req.From,
	})
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, toCredentialResponse(updated))
}

// DeleteCredential 删除凭证
func (s *EmailService) DeleteCredential(c *gin.Context) {
	name, err := s.creds.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.HandleError(c, err)
		return
	}
	s.logger.Info("smtp credential deleted", zap.String("name", name))
	response.Success(c, gin.H{"name": name})
}

// ToggleCredential 切换启用状态
func (s *EmailService) ToggleCredential(c *gin.Context) {
	active, err := s.creds.ToggleActive(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, gin.H{"active": active})
}

type testSendRequest struct {
	To string `json:"to" binding:"required,email"`
}

// TestSend 发送一封测试邮件验证凭证池
func (s *EmailService) TestSend(c *gin.Context) {
	var req testSendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	msg := mail.NewMsg()
	if err := msg.To(req.To); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	msg.Subject("邮件通道测试")
	msg.SetBodyString(mail.TypeTextHTML, "<p>这是一封测试邮件，收到即证明发信通道可用。</p>")
	msg.SetDate()
	msg.SetMessageID()

	res, err := s.dispatcher.SendWithRetry(c.Request.Context(), msg, 3)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, res)
}
