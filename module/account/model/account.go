package model

import "time"

// Status
const (
	StatusActive  = "active"
	StatusExpired = "expired" // 到期
	StatusLimited = "limited" // 流量配额用尽
)

// Account 订阅账号主档。
// 本引擎只读大部分字段，条件性改写 status / expire_time / activated_at。
// 流量计数由采集侧更新，这里只读。
type Account struct {
	// —— 基础标识 ——
	AccountID string `json:"account_id"` // 全局唯一账号ID（主键）
	Token     string `json:"-"`          // 明文订阅令牌（兼容旧链接；新链接走JWT）

	// —— 生命周期 ——
	Status      string     `json:"status"`       // active/expired/limited
	CreateTime  time.Time  `json:"create_time"`  // 创建时间
	ExpireTime  time.Time  `json:"expire_time"`  // 到期时间；零值=永不过期
	OnHold      bool       `json:"on_hold"`      // 延迟计时：首次使用才起表
	ActivatedAt *time.Time `json:"activated_at"` // 首次使用时间（可空）

	// —— 用量与配额 ——
	UploadBytes   int64 `json:"upload_bytes"`
	DownloadBytes int64 `json:"download_bytes"`
	DataQuota     int64 `json:"data_quota"` // 0=不限流量

	// —— 并发上限 ——
	IPLimit     int `json:"ip_limit"`     // 0=不限源IP数
	DeviceLimit int `json:"device_limit"` // 0=不限设备数
}

// UsedBytes 已用流量
func (a *Account) UsedBytes() int64 {
	return a.UploadBytes + a.DownloadBytes
}

// PendingActivation 是否还未起表的延迟账号
func (a *Account) PendingActivation() bool {
	return a.OnHold && a.ActivatedAt == nil
}
