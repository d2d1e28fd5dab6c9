package biz

import (
	"bytes"
	"context"
	"html/template"
	"strings"
	"sync"
	"time"

	apperrors "github.com/lk2023060901/stage-portal-backend/internal/pkg/errors"
	"github.com/lk2023060901/stage-portal-backend/internal/registration/types"
	"github.com/wneessen/go-mail"
	"github.com/yuin/goldmark"
	"go.uber.org/zap"
)

// BulkKind 批量发送的通知类型
type BulkKind string

const (
	BulkStatusUpdate BulkKind = "status_update"
	BulkCustom       BulkKind = "custom"
	BulkReminder     BulkKind = "reminder"
	BulkResend       BulkKind = "resend"
)

// NotifyResult 单条通知的软失败结果，永不以 error 形式向上抛
type NotifyResult struct {
	Success   bool   `json:"success"`
	Skipped   bool   `json:"skipped,omitempty"`
	MessageID string `json:"message_id,omitempty"`
	EmailUsed string `json:"email_used,omitempty"`
	Error     string `json:"error,omitempty"`
}

// BulkContent 批量发送的内容载荷
type BulkContent struct {
	Subject string `json:"subject"` // custom/reminder 必填
	Body    string `json:"body"`    // custom 的 markdown 正文 / reminder 的提示文字
	Status  string `json:"status"`  // status_update 的目标状态
	Note    string `json:"note"`
}

// BulkItemResult 批量发送中单条报名的结果
type BulkItemResult struct {
	RegistrationID string `json:"registration_id"`
	Name           string `json:"name"`
	Email          string `json:"email,omitempty"`
	Success        bool   `json:"success"`
	Error          string `json:"error,omitempty"`
}

// BulkResult 批量发送汇总，部分失败是常态而非异常
type BulkResult struct {
	Total     int              `json:"total"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
	Details   []BulkItemResult `json:"details"`
}

// Notifier 面向报名记录的模板化通知器
type Notifier struct {
	dispatcher  *Dispatcher
	creds       *CredentialUseCase
	log         *zap.Logger
	md          goldmark.Markdown
	maxAttempts int
	batchSize   int
	batchDelay  time.Duration
	defaultBCC  string

	sleep func(ctx context.Context, d time.Duration) error
}

func NewNotifier(dispatcher *Dispatcher, creds *CredentialUseCase, maxAttempts, batchSize int, batchDelay time.Duration, defaultBCC string, log *zap.Logger) *Notifier {
	return &Notifier{
		dispatcher:  dispatcher,
		creds:       creds,
		log:         log,
		md:          goldmark.New(),
		maxAttempts: maxAttempts,
		batchSize:   batchSize,
		batchDelay:  batchDelay,
		defaultBCC:  defaultBCC,
		sleep:       sleepCtx,
	}
}

// contactEmail 报名联系方式按约定是 QQ 号，收件地址固定映射为 QQ 邮箱。
// 映射策略集中在这一个函数里，方便日后支持其它联系方式时整体替换。
func contactEmail(contact string) string {
	return strings.TrimSpace(contact) + "@qq.com"
}

// IsConfigured 凭证池中是否存在可用凭证
func (n *Notifier) IsConfigured(ctx context.Context) bool {
	return n.creds.IsConfigured(ctx)
}

// SendRegistrationConfirmation 报名确认邮件。失败只记录不阻断报名流程。
func (n *Notifier) SendRegistrationConfirmation(ctx context.Context, reg *types.Registration, bcc string) *NotifyResult {
	if strings.TrimSpace(reg.Contact) == "" {
		n.log.Info("registration has no contact, skipping confirmation email",
			zap.String("registration_id", reg.RegistrationID))
		return &NotifyResult{Skipped: true}
	}

	body, err := renderBody(confirmationT, newMailData(reg))
	if err != nil {
		return n.softFail(reg, err)
	}
	html, err := renderLayout("报名确认", body)
	if err != nil {
		return n.softFail(reg, err)
	}

	return n.deliver(ctx, reg, "【报名确认】"+reg.ProgramName, html, bcc)
}

// SendStatusUpdate 审核状态变更通知。
// 仅对通知白名单内的状态发送；无联系方式或状态不在名单内时静默跳过（留日志）。
func (n *Notifier) SendStatusUpdate(ctx context.Context, reg *types.Registration, newStatus, note, bcc string) *NotifyResult {
	if !types.IsNotifiable(newStatus) {
		n.log.Info("status not notification-worthy, skipping",
			zap.String("registration_id", reg.RegistrationID),
			zap.String("status", newStatus))
		return &NotifyResult{Skipped: true}
	}
	if strings.TrimSpace(reg.Contact) == "" {
		n.log.Info("registration has no contact, skipping status notification",
			zap.String("registration_id", reg.RegistrationID))
		return &NotifyResult{Skipped: true}
	}

	data := newMailData(reg)
	data.Status = newStatus
	data.Note = note

	body, err := renderBody(statusT, data)
	if err != nil {
		return n.softFail(reg, err)
	}
	html, err := renderLayout("审核状态更新", body)
	if err != nil {
		return n.softFail(reg, err)
	}

	return n.deliver(ctx, reg, "【审核通知】"+reg.ProgramName, html, bcc)
}

// SendBulkEmails 管理员触发的批量通知。
// 按固定批次并发发送、批间延迟，逐条收集结果；只有输入本身无效才返回 error。
func (n *Notifier) SendBulkEmails(ctx context.Context, regs []*types.Registration, kind BulkKind, content BulkContent, bcc string) (*BulkResult, error) {
	switch kind {
	case BulkStatusUpdate, BulkCustom, BulkReminder, BulkResend:
	default:
		return nil, apperrors.New(apperrors.ErrEmailInvalidBulkKind, string(kind))
	}
	if len(regs) == 0 {
		return nil, apperrors.New(apperrors.ErrEmailNoRecipients)
	}

	eligible := 0
	for _, reg := range regs {
		if strings.TrimSpace(reg.Contact) != "" {
			eligible++
		}
	}
	if eligible == 0 {
		return nil, apperrors.New(apperrors.ErrEmailNoRecipients)
	}

	result := &BulkResult{
		Total:   len(regs),
		Details: make([]BulkItemResult, len(regs)),
	}

	for start := 0; start < len(regs); start += n.batchSize {
		end := start + n.batchSize
		if end > len(regs) {
			end = len(regs)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				result.Details[idx] = n.sendBulkItem(ctx, regs[idx], kind, content, bcc)
			}(i)
		}
		wg.Wait()

		if end < len(regs) {
			if err := n.sleep(ctx, n.batchDelay); err != nil {
				// 取消时把未处理的条目按失败记账，保证条数不缺
				for i := end; i < len(regs); i++ {
					result.Details[i] = BulkItemResult{
						RegistrationID: regs[i].RegistrationID,
						Name:           regs[i].Name,
						Error:          "cancelled",
					}
				}
				break
			}
		}
	}

	for _, d := range result.Details {
		if d.Success {
			result.Succeeded++
		} else {
			result.Failed++
		}
	}

	n.log.Info("bulk email finished",
		zap.String("kind", string(kind)),
		zap.Int("total", result.Total),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed))

	return result, nil
}

func (n *Notifier) sendBulkItem(ctx context.Context, reg *types.Registration, kind BulkKind, content BulkContent, bcc string) BulkItemResult {
	item := BulkItemResult{
		RegistrationID: reg.RegistrationID,
		Name:           reg.Name,
	}

	if strings.TrimSpace(reg.Contact) == "" {
		item.Error = "no contact"
		return item
	}
	item.Email = contactEmail(reg.Contact)

	var res *NotifyResult
	switch kind {
	case BulkStatusUpdate:
		res = n.SendStatusUpdate(ctx, reg, content.Status, content.Note, bcc)
	case BulkResend:
		res = n.SendRegistrationConfirmation(ctx, reg, bcc)
	case BulkReminder:
		res = n.sendReminder(ctx, reg, content, bcc)
	case BulkCustom:
		res = n.sendCustom(ctx, reg, content, bcc)
	}

	if res.Skipped {
		item.Error = "skipped"
		return item
	}
	item.Success = res.Success
	item.Error = res.Error
	return item
}

func (n *Notifier) sendReminder(ctx context.Context, reg *types.Registration, content BulkContent, bcc string) *NotifyResult {
	data := newMailData(reg)
	data.Note = content.Body

	body, err := renderBody(reminderT, data)
	if err != nil {
		return n.softFail(reg, err)
	}

	subject := content.Subject
	if subject == "" {
		subject = "【报名提醒】" + reg.ProgramName
	}
	html, err := renderLayout("报名提醒", body)
	if err != nil {
		return n.softFail(reg, err)
	}
	return n.deliver(ctx, reg, subject, html, bcc)
}

// sendCustom 自定义内容走 markdown 渲染
func (n *Notifier) sendCustom(ctx context.Context, reg *types.Registration, content BulkContent, bcc string) *NotifyResult {
	var buf bytes.Buffer
	if err := n.md.Convert([]byte(content.Body), &buf); err != nil {
		return n.softFail(reg, err)
	}

	html, err := renderLayout(content.Subject, template.HTML(buf.String()))
	if err != nil {
		return n.softFail(reg, err)
	}
	return n.deliver(ctx, reg, content.Subject, html, bcc)
}

func (n *Notifier) deliver(ctx context.Context, reg *types.Registration, subject, html, bcc string) *NotifyResult {
	msg := mail.NewMsg()
	to := contactEmail(reg.Contact)
	if err := msg.To(to); err != nil {
		return n.softFail(reg, err)
	}
	if bcc == "" {
		bcc = n.defaultBCC
	}
	if bcc != "" {
		if err := msg.Bcc(bcc); err != nil {
			n.log.Warn("invalid bcc address, sending without bcc",
				zap.String("bcc", bcc), zap.Error(err))
		}
	}

	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, html)
	msg.SetDate()
	msg.SetMessageID()

	sent, err := n.dispatcher.SendWithRetry(ctx, msg, n.maxAttempts)
	if err != nil {
		return n.softFail(reg, err)
	}

	return &NotifyResult{
		Success:   true,
		MessageID: sent.MessageID,
		EmailUsed: sent.CredentialName,
	}
}

func (n *Notifier) softFail(reg *types.Registration, err error) *NotifyResult {
	n.log.Warn("notification failed",
		zap.String("registration_id", reg.RegistrationID),
		zap.Error(err))
	return &NotifyResult{Success: false, Error: err.Error()}
}
