package store

import (
	"context"
	"time"

	"PPanel/module/account/model"
)

// AccountStore 持久层协作方。
// 账号不存在时 FindAccountByToken / FindAccountByID 返回 (nil, nil)，
// 错误只表示存储故障。
type AccountStore interface {
	FindAccountByToken(ctx context.Context, token string) (*model.Account, error)
	FindAccountByID(ctx context.Context, accountID string) (*model.Account, error)

	// FindDirectAssignments 账号的直连指派（只回启用的指派行，节点开关原样带回）。
	FindDirectAssignments(ctx context.Context, accountID string) ([]model.Assignment, error)
	// FindGroupAssignments 组继承指派；禁用的组不参与。
	FindGroupAssignments(ctx context.Context, accountID string) ([]model.Assignment, error)

	// UpdateLifecycle 单向状态迁移：只允许 active -> expired/limited。
	UpdateLifecycle(ctx context.Context, accountID string, status string) error

	// ActivateIfPending 延迟计时账号的首用起表（条件写）：
	// 仅当 activated_at 仍为空时写入，返回本次调用是否是赢家。
	// 输家应重新读取账号拿到赢家落库的字段。
	ActivateIfPending(ctx context.Context, accountID string, activatedAt, expireTime time.Time) (bool, error)
}
