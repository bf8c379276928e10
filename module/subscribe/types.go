package subscribe

import (
	"time"

	"PPanel/module/account/model"
)

// Candidate 归一化后的候选节点：每个 endpoint 只会留一条。
type Candidate struct {
	EndpointID string              `json:"endpoint_id"`
	Priority   int                 `json:"priority"` // 已归一化到 [1,9999]，越小越靠前
	Security   model.SecurityClass `json:"security"`
	Protocol   string              `json:"protocol"`
	Origin     model.Origin        `json:"origin"`
	CreateTime time.Time           `json:"create_time"` // 缺失/坏值归一化成"无限晚"
	Quality    float64             `json:"quality"`     // 窗口内连接质量分，缺数据为 0
}

// ClientHints Sec-CH-UA 三元组
type ClientHints struct {
	UA       string `json:"ua"`       // Sec-CH-UA
	Platform string `json:"platform"` // Sec-CH-UA-Platform
	Mobile   string `json:"mobile"`   // Sec-CH-UA-Mobile
}

// RequestContext 一次订阅请求携带的客户端信号。
// 缺失字段一律空串，不会让指纹计算出错。
type RequestContext struct {
	SourceAddr     string      `json:"source_addr"` // 原始远端地址，可能带端口
	UserAgent      string      `json:"user_agent"`
	AcceptLanguage string      `json:"accept_language"`
	Hints          ClientHints `json:"hints"`
	Fingerprint    string      `json:"fingerprint"`   // 客户端显式声明的设备指纹（优先）
	ProtocolHint   string      `json:"protocol_hint"` // 客户端偏好协议（参与指纹）
}
