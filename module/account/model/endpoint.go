package model

// SecurityClass 安全等级，数值越小越强：
// 混淆加密 < 传输加密 < 明文。
type SecurityClass int

const (
	SecurityObfuscated SecurityClass = iota // 强混淆
	SecurityTLS                             // 传输加密
	SecurityPlain                           // 明文
)

// Origin 指派来源
type Origin string

const (
	OriginDirect Origin = "direct"
	OriginGroup  Origin = "group"
)

// Assignment 账号到节点的一条原始指派（直连或组继承）。
// priority / create_time 来自历史数据，可能缺失或格式不对，
// 归一化在 resolver 里做，这里保留原始值。
type Assignment struct {
	EndpointID      string        `json:"endpoint_id"`
	EndpointEnabled bool          `json:"endpoint_enabled"` // 节点级开关
	Enabled         bool          `json:"enabled"`          // 指派级开关
	RawPriority     any           `json:"priority"`         // 可能是 nil / 数字 / 字符串
	RawCreateTime   string        `json:"create_time"`      // 文本时间戳，可能为空
	Security        SecurityClass `json:"security"`
	Protocol        string        `json:"protocol"`
	Origin          Origin        `json:"origin"`
}

// Group 节点组；禁用的组在查询层就被排除。
type Group struct {
	GroupID  string `json:"group_id"`
	Disabled bool   `json:"disabled"`
}
