package biz

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/wneessen/go-mail"
)

// TransportConfig 传输层全局参数
type TransportConfig struct {
	ConnectTimeout     time.Duration // 标准模式超时
	CompatTimeout      time.Duration // 兼容模式超时
	InsecureSkipVerify bool          // 跳过服务端证书校验，默认关闭，仅对老旧自签服务器开启
}

// 兼容模式放宽到 TLS 1.0 并带上老式 CBC 套件，应付只支持旧协议的国内邮件服务商
var compatCipherSuites = []uint16{
	tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA,
	tls.TLS_ECDHE_RSA_WITH_AES_256_CBC_SHA,
	tls.TLS_RSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_RSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_RSA_WITH_AES_128_CBC_SHA,
	tls.TLS_RSA_WITH_AES_256_CBC_SHA,
}

// BuildOptions 由凭证生成 go-mail 客户端选项。不做任何网络 IO。
// 端口 465 走隐式 TLS，其余端口走 STARTTLS（标准模式强制、兼容模式机会式）。
func BuildOptions(cred *Credential, compat bool, cfg TransportConfig) []mail.Option {
	tlsCfg := &tls.Config{
		ServerName:         cred.Host,
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	}

	timeout := cfg.ConnectTimeout
	if compat {
		tlsCfg.MinVersion = tls.VersionTLS10
		tlsCfg.CipherSuites = compatCipherSuites
		timeout = cfg.CompatTimeout
	}

	opts := []mail.Option{
		mail.WithPort(cred.Port),
		mail.WithTimeout(timeout),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cred.Username),
		mail.WithPassword(cred.Secret),
		mail.WithTLSConfig(tlsCfg),
	}

	if cred.Port == 465 || cred.Secure {
		opts = append(opts, mail.WithSSL())
	} else if compat {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}

	return opts
}

// Transport 单次投递的抽象，便于在测试中替换真实 SMTP 客户端
type Transport interface {
	Send(ctx context.Context, cred *Credential, compat bool, msg *mail.Msg) (messageID string, err error)
}

// goMailTransport 基于 go-mail 的真实实现
type goMailTransport struct {
	cfg TransportConfig
}

func NewGoMailTransport(cfg TransportConfig) Transport {
	return &goMailTransport{cfg: cfg}
}

func (t *goMailTransport) Send(ctx context.Context, cred *Credential, compat bool, msg *mail.Msg) (string, error) {
	// 信封发件人跟随实际使用的凭证
	if from := cred.From; from != "" {
		if err := msg.From(from); err != nil {
			return "", err
		}
	}

	client, err := mail.NewClient(cred.Host, BuildOptions(cred, compat, t.cfg)...)
	if err != nil {
		return "", err
	}
	defer client.Close()

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return "", err
	}

	if ids := msg.GetGenHeader(mail.HeaderMessageID); len(ids) > 0 {
		return ids[0], nil
	}
	return "", nil
}
