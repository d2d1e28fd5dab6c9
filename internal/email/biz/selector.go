package biz

import (
	"context"
	"sync/atomic"

	apperrors "github.com/lk2023060901/stage-portal-backend/internal/pkg/errors"
)

// Selector 凭证轮询选择器。游标仅存活于进程内，重启归零；
// 多实例部署时各实例独立轮询，不追求跨实例的精确公平。
type Selector struct {
	repo   CredentialRepo
	cursor atomic.Uint64
}

func NewSelector(repo CredentialRepo) *Selector {
	return &Selector{repo: repo}
}

// Next 返回轮询到的下一个启用凭证并推进游标。
// 无启用凭证时返回 ErrEmailNoCredentials。
func (s *Selector) Next(ctx context.Context) (*Credential, error) {
	creds, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternalServer)
	}
	if len(creds) == 0 {
		return nil, apperrors.New(apperrors.ErrEmailNoCredentials)
	}

	idx := s.cursor.Add(1) - 1
	return creds[int(idx%uint64(len(creds)))], nil
}

// ActiveCount 当前启用凭证数量
func (s *Selector) ActiveCount(ctx context.Context) (int, error) {
	creds, err := s.repo.ListActive(ctx)
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrInternalServer)
	}
	return len(creds), nil
}
