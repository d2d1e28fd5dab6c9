package biz

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Class
	}{
		{"nil", nil, ClassUnknown},
		{"ssl upper", errors.New("Error: SSL routines: wrong version"), ClassTLS},
		{"tls", errors.New("tls: first record does not look like a TLS handshake"), ClassTLS},
		{"wrong version number", errors.New("wrong version number"), ClassTLS},
		{"certificate", errors.New("x509: certificate signed by unknown authority"), ClassTLS},
		{"handshake", errors.New("handshake failure"), ClassTLS},
		{"quota", errors.New("Error: quota exceeded"), ClassQuota},
		{"rate", errors.New("451 rate limited, try later"), ClassQuota},
		{"limit", errors.New("sending limit reached"), ClassQuota},
		{"auth 535", errors.New("535 5.7.8 Error: authentication failed"), ClassAuth},
		{"bad creds", errors.New("invalid credentials"), ClassAuth},
		{"refused", errors.New("dial tcp: connection refused"), ClassNetwork},
		{"timeout", errors.New("i/o timeout"), ClassNetwork},
		{"other", errors.New("550 mailbox unavailable"), ClassUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.err))
		})
	}
}

func TestClassifyTLSWinsOverQuota(t *testing.T) {
	// 同时命中两类关键字时传输安全类优先，保证先做兼容重试
	err := errors.New("TLS handshake rate problem")
	assert.Equal(t, ClassTLS, Classify(err))
}
