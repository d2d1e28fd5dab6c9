package biz

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "github.com/lk2023060901/stage-portal-backend/internal/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendWithRetrySingleCredentialSuccess(t *testing.T) {
	repo := newFakeRepo(testCred("a", "main", 587))
	transport := &fakeTransport{}
	d := newTestDispatcher(repo, transport)

	res, err := d.SendWithRetry(context.Background(), testMsg(), 3)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Attempt)
	assert.Equal(t, "main", res.CredentialName)

	cred, _ := repo.GetByID(context.Background(), "a")
	assert.EqualValues(t, 1, cred.SuccessCount)
	assert.EqualValues(t, 0, cred.FailureCount)
	assert.NotNil(t, cred.LastUsed)
}

func TestSendWithRetryExhaustsBoundedAttempts(t *testing.T) {
	repo := newFakeRepo(
		testCred("a", "a", 465),
		testCred("b", "b", 465),
		testCred("c", "c", 465),
		testCred("d", "d", 465),
	)
	transport := &fakeTransport{
		behave: func(*Credential, bool) error { return errors.New("550 mailbox unavailable") },
	}
	d := newTestDispatcher(repo, transport)

	_, err := d.SendWithRetry(context.Background(), testMsg(), 3)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrEmailAllExhausted))
	assert.Contains(t, err.Error(), "mailbox unavailable")

	// 非 TLS 非配额错误：每个凭证只试一次，上限 min(3, 4) = 3
	assert.Equal(t, 3, transport.callCount())
}

func TestSendWithRetryAttemptsBoundedByActiveCount(t *testing.T) {
	repo := newFakeRepo(testCred("a", "a", 465), testCred("b", "b", 465))
	transport := &fakeTransport{
		behave: func(*Credential, bool) error { return errors.New("550 rejected") },
	}
	d := newTestDispatcher(repo, transport)

	_, err := d.SendWithRetry(context.Background(), testMsg(), 5)
	require.Error(t, err)
	assert.Equal(t, 2, transport.callCount())
}

func TestSendWithRetryTLSCompatRetrySameCredential(t *testing.T) {
	repo := newFakeRepo(testCred("a", "a", 465), testCred("b", "b", 465))
	transport := &fakeTransport{
		behave: func(cred *Credential, compat bool) error {
			if cred.ID == "a" && !compat {
				return errors.New("Error: SSL routines: wrong version number")
			}
			if cred.ID == "a" && compat {
				return errors.New("SSL handshake failed again")
			}
			return nil
		},
	}
	d := newTestDispatcher(repo, transport)

	res, err := d.SendWithRetry(context.Background(), testMsg(), 3)
	require.NoError(t, err)
	assert.Equal(t, "b", res.CredentialName)
	assert.Equal(t, 2, res.Attempt)

	// a: 标准模式一次 + 兼容模式恰好一次；b: 标准模式一次
	require.Len(t, transport.calls, 3)
	assert.Equal(t, sendCall{credID: "a", compat: false}, transport.calls[0])
	assert.Equal(t, sendCall{credID: "a", compat: true}, transport.calls[1])
	assert.Equal(t, sendCall{credID: "b", compat: false}, transport.calls[2])

	// 兼容重试也失败只记一次失败
	a, _ := repo.GetByID(context.Background(), "a")
	assert.EqualValues(t, 1, a.FailureCount)
}

func TestSendWithRetryQuotaFailover(t *testing.T) {
	repo := newFakeRepo(testCred("a", "a", 465), testCred("b", "b", 465))
	transport := &fakeTransport{
		behave: func(cred *Credential, _ bool) error {
			if cred.ID == "a" {
				return errors.New("Error: quota exceeded")
			}
			return nil
		},
	}
	d := newTestDispatcher(repo, transport)

	res, err := d.SendWithRetry(context.Background(), testMsg(), 3)
	require.NoError(t, err)
	assert.Equal(t, "b", res.CredentialName)

	a, _ := repo.GetByID(context.Background(), "a")
	assert.EqualValues(t, 1, a.FailureCount)
	b, _ := repo.GetByID(context.Background(), "b")
	assert.EqualValues(t, 1, b.SuccessCount)
}

func TestSendWithRetryQuotaErrorsAggregated(t *testing.T) {
	repo := newFakeRepo(testCred("a", "a", 465), testCred("b", "b", 465))
	transport := &fakeTransport{
		behave: func(*Credential, bool) error { return errors.New("quota exceeded") },
	}
	d := newTestDispatcher(repo, transport)

	var sleeps int
	d.sleep = func(ctx context.Context, _ time.Duration) error { sleeps++; return nil }

	_, err := d.SendWithRetry(context.Background(), testMsg(), 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota errors")
	// 最后一次失败后不再等待
	assert.Equal(t, 1, sleeps)
}

func TestSendWithRetryNoActiveCredentials(t *testing.T) {
	cred := testCred("a", "a", 465)
	repo := newFakeRepo(cred)
	transport := &fakeTransport{}
	d := newTestDispatcher(repo, transport)

	_, err := repo.ToggleActive(context.Background(), "a")
	require.NoError(t, err)

	_, err = d.SendWithRetry(context.Background(), testMsg(), 3)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrEmailNoCredentials))
	assert.Equal(t, 0, transport.callCount())
}
