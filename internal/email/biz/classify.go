package biz

import "strings"

// Class 投递失败的封闭分类。分类只在此处做，调用方不接触错误原文关键字。
type Class int

const (
	ClassUnknown Class = iota
	ClassTLS           // 传输安全类，值得对同一凭证做兼容模式重试
	ClassQuota         // 配额/频率类，换凭证前需等待
	ClassAuth          // 认证失败
	ClassNetwork       // 连接/超时类
)

func (c Class) String() string {
	switch c {
	case ClassTLS:
		return "tls"
	case ClassQuota:
		return "quota"
	case ClassAuth:
		return "auth"
	case ClassNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// SMTP 服务端返回的是人类可读文本，没有机器可读的错误类别，
// 关键字匹配是唯一可行的归类手段，集中在这一张表里维护。
var (
	tlsKeywords = []string{
		"ssl", "tls", "wrong version number", "certificate", "handshake", "protocol",
	}
	quotaKeywords = []string{
		"quota", "limit", "rate", "exceed",
	}
	authKeywords = []string{
		"authentication failed", "invalid credentials", "username and password not accepted", "535",
	}
	networkKeywords = []string{
		"connection refused", "connection reset", "timeout", "no such host", "broken pipe",
	}
)

// Classify 将投递错误归入封闭分类，大小写不敏感
func Classify(err error) Class {
	if err == nil {
		return ClassUnknown
	}
	msg := strings.ToLower(err.Error())

	for _, kw := range tlsKeywords {
		if strings.Contains(msg, kw) {
			return ClassTLS
		}
	}
	for _, kw := range quotaKeywords {
		if strings.Contains(msg, kw) {
			return ClassQuota
		}
	}
	for _, kw := range authKeywords {
		if strings.Contains(msg, kw) {
			return ClassAuth
		}
	}
	for _, kw := range networkKeywords {
		if strings.Contains(msg, kw) {
			return ClassNetwork
		}
	}
	return ClassUnknown
}
