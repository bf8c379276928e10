package subscribe

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"strings"
)

// NormalizeAddr 规范化源地址：去端口、去IPv6方括号、统一小写。
// 解析不了的原样小写返回，绝不报错。
func NormalizeAddr(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	addr = strings.Trim(addr, "[]")
	if ip := net.ParseIP(addr); ip != nil {
		return ip.String()
	}
	return strings.ToLower(addr)
}

// BuildFingerprint 设备指纹：客户端显式声明优先；
// 否则对一组客户端信号做确定性摘要。
// 同样输入永远得到同样输出；缺失字段按空串参与。
func BuildFingerprint(rc RequestContext) string {
	if fp := strings.TrimSpace(rc.Fingerprint); fp != "" {
		return fp
	}
	h := sha256.New()
	for _, part := range []string{
		rc.UserAgent,
		rc.AcceptLanguage,
		rc.Hints.UA,
		rc.Hints.Platform,
		rc.Hints.Mobile,
		NormalizeAddr(rc.SourceAddr),
		rc.ProtocolHint,
	} {
		h.Write([]byte(part))
		h.Write([]byte{0}) // 字段分隔，避免拼接歧义
	}
	return "fp:" + hex.EncodeToString(h.Sum(nil))[:32]
}
