package biz

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	emailbiz "github.com/lk2023060901/stage-portal-backend/internal/email/biz"
	apperrors "github.com/lk2023060901/stage-portal-backend/internal/pkg/errors"
	"github.com/lk2023060901/stage-portal-backend/internal/pkg/feishu"
	"github.com/lk2023060901/stage-portal-backend/internal/registration/types"
	"go.uber.org/zap"
)

// 飞书表格的字段名约定
const (
	fieldRegistrationID = "报名编号"
	fieldName           = "姓名"
	fieldProgramName    = "节目名称"
	fieldProgramType    = "节目类型"
	fieldPerformers     = "演职人员"
	fieldContact        = "联系方式"
	fieldPhone          = "手机号"
	fieldDescription    = "节目简介"
	fieldStatus         = "状态"
	fieldReviewNote     = "审核备注"
)

// Store 报名记录存储（飞书多维表格代理）
type Store interface {
	CreateRecord(ctx context.Context, fields map[string]interface{}) (*feishu.Record, error)
	GetRecord(ctx context.Context, recordID string) (*feishu.Record, error)
	UpdateRecord(ctx context.Context, recordID string, fields map[string]interface{}) (*feishu.Record, error)
	ListRecords(ctx context.Context, opts feishu.ListOptions) (*feishu.ListPage, error)
	ListFields(ctx context.Context) ([]*feishu.Field, error)
}

// Notifier 申请人通知（软失败，永不阻断报名主流程）
type Notifier interface {
	SendRegistrationConfirmation(ctx context.Context, reg *types.Registration, bcc string) *emailbiz.NotifyResult
	SendStatusUpdate(ctx context.Context, reg *types.Registration, newStatus, note, bcc string) *emailbiz.NotifyResult
	SendBulkEmails(ctx context.Context, regs []*types.Registration, kind emailbiz.BulkKind, content emailbiz.BulkContent, bcc string) (*emailbiz.BulkResult, error)
}

// CreateInput 公开报名入参
type CreateInput struct {
	Name        string
	ProgramName string
	ProgramType string
	Performers  string
	Contact     string
	Phone       string
	Description string
}

// RegistrationUseCase 报名业务逻辑
type RegistrationUseCase struct {
	store    Store
	notifier Notifier
	log      *zap.Logger
}

func NewRegistrationUseCase(store Store, notifier Notifier, log *zap.Logger) *RegistrationUseCase {
	return &RegistrationUseCase{store: store, notifier: notifier, log: log}
}

func stringField(fields map[string]interface{}, key string) string {
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}

func fromRecord(rec *feishu.Record) *types.Registration {
	reg := &types.Registration{
		RegistrationID: stringField(rec.Fields, fieldRegistrationID),
		RecordID:       rec.RecordID,
		Name:           stringField(rec.Fields, fieldName),
		ProgramName:    stringField(rec.Fields, fieldProgramName),
		ProgramType:    stringField(rec.Fields, fieldProgramType),
		Performers:     stringField(rec.Fields, fieldPerformers),
		Contact:        stringField(rec.Fields, fieldContact),
		Phone:          stringField(rec.Fields, fieldPhone),
		Description:    stringField(rec.Fields, fieldDescription),
		Status:         stringField(rec.Fields, fieldStatus),
		ReviewNote:     stringField(rec.Fields, fieldReviewNote),
	}
	if rec.CreatedTime > 0 {
		reg.SubmittedAt = time.UnixMilli(rec.CreatedTime)
	}
	return reg
}

// newRegistrationID 生成业务编号，如 ZP250828A1B2C3
func newRegistrationID() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return "ZP" + time.Now().Format("060102") + suffix
}

// Create 受理一条公开报名。确认邮件在响应之后异步发送，
// 失败只记录日志，报名本身始终成功。
func (uc *RegistrationUseCase) Create(ctx context.Context, input CreateInput) (*types.Registration, error) {
	if strings.TrimSpace(input.Name) == "" || strings.TrimSpace(input.ProgramName) == "" {
		return nil, apperrors.New(apperrors.ErrRegInvalidInput, "name and program name are required")
	}

	regID := newRegistrationID()
	fields := map[string]interface{}{
		fieldRegistrationID: regID,
		fieldName:           input.Name,
		fieldProgramName:    input.ProgramName,
		fieldProgramType:    input.ProgramType,
		fieldPerformers:     input.Performers,
		fieldContact:        input.Contact,
		fieldPhone:          input.Phone,
		fieldDescription:    input.Description,
		fieldStatus:         types.StatusPending,
	}

	rec, err := uc.store.CreateRecord(ctx, fields)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrRegFeishuUnavail)
	}

	reg := fromRecord(rec)
	if reg.RegistrationID == "" {
		reg.RegistrationID = regID
	}
	if reg.SubmittedAt.IsZero() {
		reg.SubmittedAt = time.Now()
	}

	// 与请求上下文解耦，HTTP 响应返回后继续投递
	go func(snapshot types.Registration) {
		sendCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		res := uc.notifier.SendRegistrationConfirmation(sendCtx, &snapshot, "")
		if !res.Success && !res.Skipped {
			uc.log.Warn("confirmation email failed",
				zap.String("registration_id", snapshot.RegistrationID),
				zap.String("error", res.Error))
		}
	}(*reg)

	return reg, nil
}

// GetByRecordID 按飞书记录 ID 查询
func (uc *RegistrationUseCase) GetByRecordID(ctx context.Context, recordID string) (*types.Registration, error) {
	rec, err := uc.store.GetRecord(ctx, recordID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrRegNotFound, recordID)
	}
	return fromRecord(rec), nil
}

// List 分页查询报名
func (uc *RegistrationUseCase) List(ctx context.Context, pageSize int, pageToken, statusFilter string) (*types.ListResult, *string, error) {
	opts := feishu.ListOptions{PageSize: pageSize, PageToken: pageToken}
	if statusFilter != "" {
		opts.Filter = `CurrentValue.[` + fieldStatus + `]="` + statusFilter + `"`
	}

	page, err := uc.store.ListRecords(ctx, opts)
	if err != nil {
		return nil, nil, apperrors.Wrap(err, apperrors.ErrRegFeishuUnavail)
	}

	result := &types.ListResult{
		Items:   make([]*types.Registration, 0, len(page.Items)),
		HasMore: page.HasMore,
		Total:   page.Total,
	}
	for _, rec := range page.Items {
		result.Items = append(result.Items, fromRecord(rec))
	}

	var next *string
	if page.HasMore {
		next = &page.PageToken
	}
	return result, next, nil
}

// UpdateStatus 通用状态更新。作为管理端的兜底操作，
// 不校验前置状态，允许直接覆盖到任何合法状态。
func (uc *RegistrationUseCase) UpdateStatus(ctx context.Context, recordID, status, note string) (*types.Registration, *emailbiz.NotifyResult, error) {
	if !types.IsValidStatus(status) {
		return nil, nil, apperrors.New(apperrors.ErrRegInvalidStatus, status)
	}
	return uc.applyStatus(ctx, recordID, status, note)
}

// ApproveFirstTier 一审。报名入口没有前置状态可查，不做守卫。
func (uc *RegistrationUseCase) ApproveFirstTier(ctx context.Context, recordID string, approve bool, note string) (*types.Registration, *emailbiz.NotifyResult, error) {
	status := types.StatusFirstApproved
	if !approve {
		status = types.StatusFirstRejected
	}
	return uc.applyStatus(ctx, recordID, status, note)
}

// ApproveSecondTier 二审，要求当前状态为一审通过
func (uc *RegistrationUseCase) ApproveSecondTier(ctx context.Context, recordID string, approve bool, note string) (*types.Registration, *emailbiz.NotifyResult, error) {
	if err := uc.requireStatus(ctx, recordID, types.StatusFirstApproved); err != nil {
		return nil, nil, err
	}

	status := types.StatusSecondApproved
	if !approve {
		status = types.StatusSecondRejected
	}
	return uc.applyStatus(ctx, recordID, status, note)
}

// ApproveFinalTier 终审，要求当前状态为二审通过
func (uc *RegistrationUseCase) ApproveFinalTier(ctx context.Context, recordID string, approve bool, note string) (*types.Registration, *emailbiz.NotifyResult, error) {
	if err := uc.requireStatus(ctx, recordID, types.StatusSecondApproved); err != nil {
		return nil, nil, err
	}

	status := types.StatusFinalApproved
	if !approve {
		status = types.StatusFinalRejected
	}
	return uc.applyStatus(ctx, recordID, status, note)
}

func (uc *RegistrationUseCase) requireStatus(ctx context.Context, recordID, required string) error {
	current, err := uc.GetByRecordID(ctx, recordID)
	if err != nil {
		return err
	}
	if current.Status != required {
		return apperrors.New(apperrors.ErrRegWrongPredecessor,
			"current="+current.Status+" required="+required)
	}
	return nil
}

func (uc *RegistrationUseCase) applyStatus(ctx context.Context, recordID, status, note string) (*types.Registration, *emailbiz.NotifyResult, error) {
	fields := map[string]interface{}{fieldStatus: status}
	if note != "" {
		fields[fieldReviewNote] = note
	}

	rec, err := uc.store.UpdateRecord(ctx, recordID, fields)
	if err != nil {
		return nil, nil, apperrors.Wrap(err, apperrors.ErrRegFeishuUnavail)
	}

	reg := fromRecord(rec)
	reg.Status = status

	notify := uc.notifier.SendStatusUpdate(ctx, reg, status, note, "")
	return reg, notify, nil
}

// TableFields 报名表的字段定义，供管理端展示表格结构
func (uc *RegistrationUseCase) TableFields(ctx context.Context) ([]*feishu.Field, error) {
	fields, err := uc.store.ListFields(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrRegFeishuUnavail)
	}
	return fields, nil
}

// BulkNotify 管理端批量通知，按记录 ID 逐条拉取后交给通知器
func (uc *RegistrationUseCase) BulkNotify(ctx context.Context, recordIDs []string, kind emailbiz.BulkKind, content emailbiz.BulkContent, bcc string) (*emailbiz.BulkResult, error) {
	if len(recordIDs) == 0 {
		return nil, apperrors.New(apperrors.ErrEmailNoRecipients)
	}

	regs := make([]*types.Registration, 0, len(recordIDs))
	for _, id := range recordIDs {
		reg, err := uc.GetByRecordID(ctx, id)
		if err != nil {
			uc.log.Warn("skipping unknown registration in bulk send", zap.String("record_id", id))
			continue
		}
		regs = append(regs, reg)
	}
	if len(regs) == 0 {
		return nil, apperrors.New(apperrors.ErrEmailNoRecipients)
	}

	return uc.notifier.SendBulkEmails(ctx, regs, kind, content, bcc)
}
