package biz

import (
	"context"
	"strings"
	"time"

	apperrors "github.com/lk2023060901/stage-portal-backend/internal/pkg/errors"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// SendResult 单条消息的投递结果
type SendResult struct {
	MessageID      string `json:"message_id"`
	CredentialID   string `json:"credential_id"`
	CredentialName string `json:"credential_name"`
	Attempt        int    `json:"attempt"` // 成功时用掉的第几次尝试（从 1 起）
}

// Dispatcher 跨凭证池的失败转移投递器。
// 同一次调用内的尝试严格串行；本身不做冷却窗口，
// 刚失败的凭证在下一次调用里立即重新可用。
type Dispatcher struct {
	selector     *Selector
	repo         CredentialRepo
	transport    Transport
	log          *zap.Logger
	quotaBackoff time.Duration

	// 测试注入点，默认真实等待
	sleep func(ctx context.Context, d time.Duration) error
}

func NewDispatcher(selector *Selector, repo CredentialRepo, transport Transport, quotaBackoff time.Duration, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		selector:     selector,
		repo:         repo,
		transport:    transport,
		log:          log,
		quotaBackoff: quotaBackoff,
		sleep:        sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// SendWithRetry 在凭证池上投递一条消息，最多轮换 min(maxAttempts, 启用凭证数) 个凭证。
// TLS 类失败对同一凭证做一次兼容模式重试；配额类失败换凭证前等待固定时长并汇总到最终错误。
func (d *Dispatcher) SendWithRetry(ctx context.Context, msg *mail.Msg, maxAttempts int) (*SendResult, error) {
	active, err := d.selector.ActiveCount(ctx)
	if err != nil {
		return nil, err
	}
	if active == 0 {
		return nil, apperrors.New(apperrors.ErrEmailNoCredentials)
	}

	attempts := maxAttempts
	if active < attempts {
		attempts = active
	}

	var lastErr error
	var quotaErrs []string

	for attempt := 1; attempt <= attempts; attempt++ {
		cred, err := d.selector.Next(ctx)
		if err != nil {
			// 发送途中凭证可能被管理员全部停用
			return nil, err
		}

		msgID, sendErr := d.transport.Send(ctx, cred, false, msg)
		if sendErr != nil && Classify(sendErr) == ClassTLS {
			d.log.Warn("tls failure, retrying credential in compatibility mode",
				zap.String("credential", cred.Name),
				zap.Error(sendErr))
			msgID, sendErr = d.transport.Send(ctx, cred, true, msg)
		}

		if sendErr == nil {
			d.recordOutcome(ctx, cred.ID, true)
			d.log.Info("email sent",
				zap.String("credential", cred.Name),
				zap.Int("attempt", attempt))
			return &SendResult{
				MessageID:      msgID,
				CredentialID:   cred.ID,
				CredentialName: cred.Name,
				Attempt:        attempt,
			}, nil
		}

		d.recordOutcome(ctx, cred.ID, false)
		lastErr = sendErr
		class := Classify(sendErr)
		d.log.Warn("send attempt failed",
			zap.String("credential", cred.Name),
			zap.Int("attempt", attempt),
			zap.String("class", class.String()),
			zap.Error(sendErr))

		if class == ClassQuota {
			quotaErrs = append(quotaErrs, cred.Name+": "+sendErr.Error())
			if attempt < attempts {
				if err := d.sleep(ctx, d.quotaBackoff); err != nil {
					return nil, err
				}
			}
		}
	}

	detail := lastErr.Error()
	if len(quotaErrs) > 0 {
		detail += "; quota errors: " + strings.Join(quotaErrs, "; ")
	}
	return nil, apperrors.Wrap(lastErr, apperrors.ErrEmailAllExhausted, detail)
}

// recordOutcome 统计写入失败绝不影响发送结果
func (d *Dispatcher) recordOutcome(ctx context.Context, id string, success bool) {
	if err := d.repo.RecordOutcome(ctx, id, success); err != nil {
		d.log.Warn("failed to record credential outcome",
			zap.String("credential_id", id),
			zap.Bool("success", success),
			zap.Error(err))
	}
}
