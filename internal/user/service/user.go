package service

import (
	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/stage-portal-backend/internal/auth/middleware"
	"github.com/lk2023060901/stage-portal-backend/internal/pkg/response"
	"github.com/lk2023060901/stage-portal-backend/internal/user/biz"
	"go.uber.org/zap"
)

// UserService 管理员账号接口
type UserService struct {
	uc     *biz.UserUseCase
	logger *zap.Logger
}

func NewUserService(uc *biz.UserUseCase, logger *zap.Logger) *UserService {
	return &UserService{uc: uc, logger: logger}
}

// RegisterAuthRoutes 登录入口（无需认证）
func (s *UserService) RegisterAuthRoutes(rg *gin.RouterGroup) {
	rg.POST("/login", s.Login)
}

// RegisterAdminRoutes 账号管理接口，仅超级管理员可用
func (s *UserService) RegisterAdminRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/users", middleware.RequireRole(biz.RoleSuperAdmin))
	{
		g.GET("", s.List)
		g.POST("", s.Create)
		g.GET("/:id", s.Get)
		g.PUT("/:id", s.Update)
		g.DELETE("/:id", s.Delete)
	}
	rg.GET("/profile", s.Profile)
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 管理员登录
func (s *UserService) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := s.uc.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, result)
}

// Profile 当前登录账号信息
func (s *UserService) Profile(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "missing authentication")
		return
	}

	user, err := s.uc.GetByID(c.Request.Context(), userID)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, user)
}

type createUserRequest struct {
	Username    string   `json:"username" binding:"required"`
	Password    string   `json:"password" binding:"required"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

// Create 创建管理员账号
func (s *UserService) Create(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, err := s.uc.Create(c.Request.Context(), biz.CreateUserInput{
		Username:    req.Username,
		Password:    req.Password,
		Role:        req.Role,
		Permissions: req.Permissions,
	})
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Created(c, user)
}

// List 管理员列表
func (s *UserService) List(c *gin.Context) {
	users, err := s.uc.List(c.Request.Context())
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, users)
}

// Get 管理员详情
func (s *UserService) Get(c *gin.Context) {
	user, err := s.uc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, user)
}

type updateUserRequest struct {
	Password    *string   `json:"password"`
	Role        *string   `json:"role"`
	Permissions *[]string `json:"permissions"`
	Active      *bool     `json:"active"`
}

// Update 更新管理员账号
func (s *UserService) Update(c *gin.Context) {
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, err := s.uc.Update(c.Request.Context(), c.Param("id"), biz.UpdateUserInput{
		Password:    req.Password,
		Role:        req.Role,
		Permissions: req.Permissions,
		Active:      req.Active,
	})
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, user)
}

// Delete 删除管理员账号，不允许删除自己
func (s *UserService) Delete(c *gin.Context) {
	actorID, _ := middleware.GetUserID(c)
	if err := s.uc.Delete(c.Request.Context(), c.Param("id"), actorID); err != nil {
		response.HandleError(c, err)
		return
	}

	s.logger.Info("admin user removed",
		zap.String("user_id", c.Param("id")),
		zap.String("actor_id", actorID))
	response.Success(c, gin.H{"deleted": true})
}
