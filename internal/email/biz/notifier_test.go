package biz

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	apperrors "github.com/lk2023060901/stage-portal-backend/internal/pkg/errors"
	"github.com/lk2023060901/stage-portal-backend/internal/registration/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestNotifier(repo *fakeCredentialRepo, transport Transport) *Notifier {
	d := newTestDispatcher(repo, transport)
	uc := NewCredentialUseCase(repo, zap.NewNop())
	n := NewNotifier(d, uc, 3, 5, time.Second, "", zap.NewNop())
	n.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	return n
}

func testReg(id, contact string) *types.Registration {
	return &types.Registration{
		RegistrationID: id,
		RecordID:       "rec-" + id,
		Name:           "张三",
		ProgramName:    "相声《报菜名》",
		Performers:     "张三、李四",
		Contact:        contact,
		Status:         types.StatusPending,
		SubmittedAt:    time.Now(),
	}
}

func TestSendRegistrationConfirmation(t *testing.T) {
	repo := newFakeRepo(testCred("a", "main", 587))
	transport := &fakeTransport{}
	n := newTestNotifier(repo, transport)

	res := n.SendRegistrationConfirmation(context.Background(), testReg("R001", "10001"), "")
	assert.True(t, res.Success)
	assert.Equal(t, "main", res.EmailUsed)
	assert.Equal(t, 1, transport.callCount())
}

func TestSendRegistrationConfirmationSoftFailure(t *testing.T) {
	repo := newFakeRepo(testCred("a", "main", 587))
	transport := &fakeTransport{
		behave: func(*Credential, bool) error { return errors.New("550 rejected") },
	}
	n := newTestNotifier(repo, transport)

	// 投递失败不抛错误，报名流程继续
	res := n.SendRegistrationConfirmation(context.Background(), testReg("R001", "10001"), "")
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
}

func TestSendStatusUpdateSkipsEmptyContact(t *testing.T) {
	repo := newFakeRepo(testCred("a", "main", 587))
	transport := &fakeTransport{}
	n := newTestNotifier(repo, transport)

	res := n.SendStatusUpdate(context.Background(), testReg("R001", ""), types.StatusFirstApproved, "", "")
	assert.True(t, res.Skipped)
	// 从未触达投递层
	assert.Equal(t, 0, transport.callCount())
}

func TestSendStatusUpdateSkipsNonNotifiableStatus(t *testing.T) {
	repo := newFakeRepo(testCred("a", "main", 587))
	transport := &fakeTransport{}
	n := newTestNotifier(repo, transport)

	res := n.SendStatusUpdate(context.Background(), testReg("R001", "10001"), types.StatusPending, "", "")
	assert.True(t, res.Skipped)
	assert.Equal(t, 0, transport.callCount())
}

func TestSendStatusUpdateNotifiable(t *testing.T) {
	repo := newFakeRepo(testCred("a", "main", 587))
	transport := &fakeTransport{}
	n := newTestNotifier(repo, transport)

	res := n.SendStatusUpdate(context.Background(), testReg("R001", "10001"), types.StatusFinalApproved, "祝贺", "")
	assert.True(t, res.Success)
	assert.Equal(t, 1, transport.callCount())
}

func TestSendBulkEmailsCountInvariant(t *testing.T) {
	repo := newFakeRepo(testCred("a", "main", 587))
	transport := &fakeTransport{
		behave: func(*Credential, bool) error { return nil },
	}
	n := newTestNotifier(repo, transport)

	regs := []*types.Registration{
		testReg("R001", "10001"),
		testReg("R002", ""), // 无联系方式，计为失败
		testReg("R003", "10003"),
	}

	res, err := n.SendBulkEmails(context.Background(), regs, BulkResend, BulkContent{}, "")
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)
	assert.Len(t, res.Details, 3)
	assert.Equal(t, res.Total, res.Succeeded+res.Failed)
	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, "no contact", res.Details[1].Error)
}

func TestSendBulkEmailsBatching(t *testing.T) {
	repo := newFakeRepo(testCred("a", "main", 587))
	transport := &fakeTransport{}
	n := newTestNotifier(repo, transport)

	var delays int
	n.sleep = func(ctx context.Context, d time.Duration) error {
		delays++
		assert.Equal(t, time.Second, d)
		return nil
	}

	regs := make([]*types.Registration, 12)
	for i := range regs {
		regs[i] = testReg(fmt.Sprintf("R%03d", i+1), fmt.Sprintf("1%04d", i))
	}

	res, err := n.SendBulkEmails(context.Background(), regs, BulkCustom, BulkContent{
		Subject: "演出安排",
		Body:    "# 注意\n\n请准时到场。",
	}, "")
	require.NoError(t, err)
	assert.Equal(t, 12, res.Total)
	assert.Equal(t, 12, res.Succeeded)
	// 12 条按每批 5 条分为 3 批，批与批之间各等待一次
	assert.Equal(t, 2, delays)
	assert.Equal(t, 12, transport.callCount())
}

func TestSendBulkEmailsInvalidKind(t *testing.T) {
	repo := newFakeRepo(testCred("a", "main", 587))
	n := newTestNotifier(repo, &fakeTransport{})

	_, err := n.SendBulkEmails(context.Background(), []*types.Registration{testReg("R001", "10001")}, BulkKind("nonsense"), BulkContent{}, "")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrEmailInvalidBulkKind))
}

func TestSendBulkEmailsNoEligibleRecipients(t *testing.T) {
	repo := newFakeRepo(testCred("a", "main", 587))
	n := newTestNotifier(repo, &fakeTransport{})

	_, err := n.SendBulkEmails(context.Background(), []*types.Registration{testReg("R001", "")}, BulkResend, BulkContent{}, "")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrEmailNoRecipients))

	_, err = n.SendBulkEmails(context.Background(), nil, BulkResend, BulkContent{}, "")
	require.Error(t, err)
}

func TestContactEmailMapping(t *testing.T) {
	assert.Equal(t, "12345@qq.com", contactEmail("12345"))
	assert.Equal(t, "12345@qq.com", contactEmail("  12345  "))
}

func TestNotifierIsConfigured(t *testing.T) {
	repo := newFakeRepo(testCred("a", "main", 587))
	n := newTestNotifier(repo, &fakeTransport{})
	assert.True(t, n.IsConfigured(context.Background()))

	_, err := repo.ToggleActive(context.Background(), "a")
	require.NoError(t, err)
	assert.False(t, n.IsConfigured(context.Background()))
}
