package biz

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/lk2023060901/stage-portal-backend/internal/pkg/errors"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// fakeCredentialRepo 内存凭证仓储
type fakeCredentialRepo struct {
	mu    sync.Mutex
	creds []*Credential
}

func newFakeRepo(creds ...*Credential) *fakeCredentialRepo {
	return &fakeCredentialRepo{creds: creds}
}

func (f *fakeCredentialRepo) find(id string) *Credential {
	for _, c := range f.creds {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (f *fakeCredentialRepo) Create(ctx context.Context, cred *Credential) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cred.ID == "" {
		cred.ID = "cred-" + cred.Name
	}
	cred.Active = true
	f.creds = append(f.creds, cred)
	return nil
}

func (f *fakeCredentialRepo) GetByID(ctx context.Context, id string) (*Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c := f.find(id); c != nil {
		cp := *c
		return &cp, nil
	}
	return nil, apperrors.New(apperrors.ErrEmailCredNotFound, id)
}

func (f *fakeCredentialRepo) Update(ctx context.Context, id string, update *CredentialUpdate) (*Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.find(id)
	if c == nil {
		return nil, apperrors.New(apperrors.ErrEmailCredNotFound, id)
	}
	if update.Name != nil {
		c.Name = *update.Name
	}
	if update.Host != nil {
		c.Host = *update.Host
	}
	if update.Port != nil {
		c.Port = *update.Port
	}
	if update.Secret != nil {
		c.Secret = *update.Secret
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCredentialRepo) Delete(ctx context.Context, id string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.creds {
		if c.ID == id {
			f.creds = append(f.creds[:i], f.creds[i+1:]...)
			return c.Name, nil
		}
	}
	return "", apperrors.New(apperrors.ErrEmailCredNotFound, id)
}

func (f *fakeCredentialRepo) ToggleActive(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.find(id)
	if c == nil {
		return false, apperrors.New(apperrors.ErrEmailCredNotFound, id)
	}
	c.Active = !c.Active
	return c.Active, nil
}

func (f *fakeCredentialRepo) List(ctx context.Context) ([]*Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*Credential, 0, len(f.creds))
	for _, c := range f.creds {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeCredentialRepo) ListActive(ctx context.Context) ([]*Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*Credential
	for _, c := range f.creds {
		if c.Active {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeCredentialRepo) RecordOutcome(ctx context.Context, id string, success bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.find(id)
	if c == nil {
		// 凭证已被删除，软失败
		return nil
	}
	if success {
		c.SuccessCount++
		now := time.Now()
		c.LastUsed = &now
	} else {
		c.FailureCount++
	}
	return nil
}

// sendCall 记录一次投递尝试
type sendCall struct {
	credID string
	compat bool
}

// fakeTransport 按凭证配置行为的投递桩
type fakeTransport struct {
	mu    sync.Mutex
	calls []sendCall
	// behave 返回该凭证本次的发送错误；nil 即成功
	behave func(cred *Credential, compat bool) error
}

func (f *fakeTransport) Send(ctx context.Context, cred *Credential, compat bool, msg *mail.Msg) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, sendCall{credID: cred.ID, compat: compat})
	f.mu.Unlock()

	if f.behave != nil {
		if err := f.behave(cred, compat); err != nil {
			return "", err
		}
	}
	return "<msg-id@test>", nil
}

func (f *fakeTransport) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func testCred(id, name string, port int) *Credential {
	return &Credential{
		ID:       id,
		Name:     name,
		Host:     "smtp.example.com",
		Port:     port,
		Username: name + "@example.com",
		Secret:   "secret",
		From:     name + "@example.com",
		Active:   true,
	}
}

func newTestDispatcher(repo *fakeCredentialRepo, transport Transport) *Dispatcher {
	d := NewDispatcher(NewSelector(repo), repo, transport, 2*time.Second, zap.NewNop())
	// 测试里不真正等待
	d.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	return d
}

func testMsg() *mail.Msg {
	msg := mail.NewMsg()
	_ = msg.To("12345@qq.com")
	msg.Subject("test")
	msg.SetBodyString(mail.TypeTextHTML, "<p>test</p>")
	return msg
}
