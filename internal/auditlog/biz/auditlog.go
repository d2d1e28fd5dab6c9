package biz

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Entry 操作日志
type Entry struct {
	ID        string    `json:"id"`
	ActorID   string    `json:"actor_id"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Target    string    `json:"target"`
	Detail    string    `json:"detail"`
	IP        string    `json:"ip"`
	CreatedAt time.Time `json:"created_at"`
}

// ListQuery 日志查询条件
type ListQuery struct {
	Action   string
	Actor    string
	Page     int
	PageSize int
}

// EntryRepo 日志存储接口
type EntryRepo interface {
	Create(ctx context.Context, entry *Entry) error
	List(ctx context.Context, query ListQuery) ([]*Entry, int64, error)
}

// AuditUseCase 操作日志业务逻辑
type AuditUseCase struct {
	repo EntryRepo
	log  *zap.Logger
}

func NewAuditUseCase(repo EntryRepo, log *zap.Logger) *AuditUseCase {
	return &AuditUseCase{repo: repo, log: log}
}

// Record 记录一条操作日志。失败只打日志，不影响主流程。
func (uc *AuditUseCase) Record(ctx context.Context, entry *Entry) {
	if err := uc.repo.Create(ctx, entry); err != nil {
		uc.log.Warn("audit record failed",
			zap.Error(err),
			zap.String("action", entry.Action),
			zap.String("actor", entry.Actor))
	}
}

// List 分页查询日志
func (uc *AuditUseCase) List(ctx context.Context, query ListQuery) ([]*Entry, int64, error) {
	if query.Page <= 0 {
		query.Page = 1
	}
	if query.PageSize <= 0 || query.PageSize > 100 {
		query.PageSize = 20
	}
	return uc.repo.List(ctx, query)
}
