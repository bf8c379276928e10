package subscribe

import (
	"context"
	"time"

	"PPanel/logger"
	"PPanel/module/account/model"
	"PPanel/module/account/store"
	errs "PPanel/tools/errs"

	"go.uber.org/zap"
)

// Lifecycle 生命周期门卫：任何解析开始前先过这里。
// 这里失败直接短路，不算候选、不做准入。
type Lifecycle struct {
	store store.AccountStore
	now   func() time.Time
}

func NewLifecycle(st store.AccountStore) *Lifecycle {
	return &Lifecycle{store: st, now: time.Now}
}

// Check 校验并按需迁移状态；返回的账号可能带有刚落库的起表字段。
func (g *Lifecycle) Check(ctx context.Context, acct *model.Account) (*model.Account, error) {
	// 入口状态已非 active：直接按对应错误返回，不重推导
	switch acct.Status {
	case model.StatusActive:
	case model.StatusExpired:
		return nil, errs.ErrSubscriptionExpired.WrapMsg("already expired", "account", acct.AccountID)
	case model.StatusLimited:
		return nil, errs.ErrDataLimitExceeded.WrapMsg("already limited", "account", acct.AccountID)
	default:
		return nil, errs.ErrSubscriptionNotFound.WrapMsg("unknown status",
			"account", acct.AccountID, "status", acct.Status)
	}

	// 延迟计时账号首次使用：条件写起表，输家读赢家落库的字段
	if acct.PendingActivation() {
		updated, err := g.activate(ctx, acct)
		if err != nil {
			return nil, err
		}
		acct = updated
	}

	now := g.now()

	if !acct.ExpireTime.IsZero() && now.After(acct.ExpireTime) {
		g.persistTransition(ctx, acct.AccountID, model.StatusExpired)
		return nil, errs.ErrSubscriptionExpired.WrapMsg("expired",
			"account", acct.AccountID, "expire", acct.ExpireTime.Format(time.RFC3339))
	}

	if acct.DataQuota > 0 && acct.UsedBytes() >= acct.DataQuota {
		g.persistTransition(ctx, acct.AccountID, model.StatusLimited)
		return nil, errs.ErrDataLimitExceeded.WrapMsg("quota exhausted",
			"account", acct.AccountID, "used", acct.UsedBytes(), "quota", acct.DataQuota)
	}

	return acct, nil
}

// activate 剩余时长 = 原到期 - 创建；起表后到期 = now + 剩余时长。
// 两个并发首用请求只有一个能写成功，两边最终观察到同一个到期时间。
func (g *Lifecycle) activate(ctx context.Context, acct *model.Account) (*model.Account, error) {
	now := g.now()
	duration := acct.ExpireTime.Sub(acct.CreateTime)

	var newExpire time.Time
	if !acct.ExpireTime.IsZero() && duration > 0 {
		newExpire = now.Add(duration)
	}

	won, err := g.store.ActivateIfPending(ctx, acct.AccountID, now, newExpire)
	if err != nil {
		return nil, err
	}
	if won {
		out := *acct
		out.ActivatedAt = &now
		out.ExpireTime = newExpire
		return &out, nil
	}

	// 输了条件写：重读赢家提交的字段
	fresh, err := g.store.FindAccountByID(ctx, acct.AccountID)
	if err != nil {
		return nil, err
	}
	if fresh == nil {
		return nil, errs.ErrSubscriptionNotFound.WrapMsg("account vanished during activation",
			"account", acct.AccountID)
	}
	return fresh, nil
}

// persistTransition 迁移必须落库；写失败不翻转结论，只告警。
func (g *Lifecycle) persistTransition(ctx context.Context, accountID, status string) {
	if err := g.store.UpdateLifecycle(ctx, accountID, status); err != nil {
		logger.Warn("lifecycle transition persist failed",
			zap.String("account", accountID), zap.String("status", status), zap.Error(err))
	}
}
