package connlog

import (
	"context"
	"time"
)

// Outcome 连接事件结果标签
type Outcome string

const (
	OutcomeConnect      Outcome = "connect"             // 准入成功
	OutcomeRejectIP     Outcome = "reject_ip_limit"     // 源IP并发超限被拒
	OutcomeRejectDevice Outcome = "reject_device_limit" // 设备并发超限被拒
)

// ConnRecord 一次连接/拒绝事件（追加写，不更新）。
type ConnRecord struct {
	RecordID   string    `bson:"record_id" json:"record_id"` // 雪花ID
	AccountID  string    `bson:"account_id" json:"account_id"`
	EndpointID string    `bson:"endpoint_id" json:"endpoint_id"` // 拒绝事件可为空
	Protocol   string    `bson:"protocol,omitempty" json:"protocol"`
	Addr       string    `bson:"addr" json:"addr"` // 规范化源地址（去端口）
	Device     string    `bson:"device" json:"device"`
	UserAgent  string    `bson:"user_agent,omitempty" json:"user_agent"`
	Outcome    Outcome   `bson:"outcome" json:"outcome"`
	CreateTime time.Time `bson:"create_time" json:"create_time"`
}

// RecentKeys 近窗口内成功连接过的地址/设备集合。
type RecentKeys struct {
	Addresses map[string]struct{}
	Devices   map[string]struct{}
}

func emptyRecentKeys() RecentKeys {
	return RecentKeys{
		Addresses: make(map[string]struct{}),
		Devices:   make(map[string]struct{}),
	}
}

// ConnLog 连接日志协作方。
// QueryRecent 只统计 connect 结果：被拒绝的地址/设备不算"已知"。
type ConnLog interface {
	Append(ctx context.Context, rec *ConnRecord) error
	QueryRecent(ctx context.Context, accountID string, since time.Time) (RecentKeys, error)
	QualityByProtocol(ctx context.Context, accountID string, window time.Duration) (map[string]float64, error)
}
