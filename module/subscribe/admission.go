package subscribe

import (
	"context"
	"time"

	"PPanel/logger"
	"PPanel/module/account/model"
	"PPanel/service/connlog"
	errs "PPanel/tools/errs"
	"PPanel/tools/ids"

	"go.uber.org/zap"
)

// Admission 并发准入：对排好序的候选列表做 IP / 设备双重上限检查。
//
// "已知集合" = 连接日志近窗口查询 ∪ 进程内 Tracker 活跃集。
// 日志是跨进程的事实来源（重启后 Tracker 为空也不会放水），
// Tracker 是快路径（同进程内刚放行的 key 立刻可见）。
// 已知 key 只续期不占新槽位：窗口内同一来源绝不会被同一上限二次拒绝。
type Admission struct {
	ipTracker    *Tracker
	devTracker   *Tracker
	log          connlog.ConnLog
	recentWindow time.Duration
	now          func() time.Time
}

func NewAdmission(ipTracker, devTracker *Tracker, log connlog.ConnLog, recentWindow time.Duration) *Admission {
	return &Admission{
		ipTracker:    ipTracker,
		devTracker:   devTracker,
		log:          log,
		recentWindow: recentWindow,
		now:          time.Now,
	}
}

// Admit 通过返回 nil；超限返回 IpLimitExceeded / DeviceLimitExceeded。
// 拒绝也要落一条日志（尽力而为，写失败不影响拒绝结论）。
func (a *Admission) Admit(ctx context.Context, acct *model.Account, cands []Candidate, rc RequestContext) error {
	addr := NormalizeAddr(rc.SourceAddr)
	device := BuildFingerprint(rc)
	now := a.now()

	recent := a.queryRecent(ctx, acct.AccountID, now)

	// —— 源IP上限 ——
	// 解析不出源地址的请求没有可记账的 key：既不占槽位也不参与拒绝，
	// 否则同一个"无地址"请求会在窗口内被反复拒绝。
	addrKnown := true
	if addr != "" {
		knownAddrs := union(recent.Addresses, a.ipTracker.ActiveKeys(acct.AccountID))
		_, addrKnown = knownAddrs[addr]
		if acct.IPLimit > 0 && !addrKnown && len(knownAddrs) >= acct.IPLimit {
			a.appendRecord(ctx, acct, cands, rc, addr, device, connlog.OutcomeRejectIP, now)
			return errs.ErrIPLimitExceeded.WrapMsg("ip ceiling reached",
				"account", acct.AccountID, "limit", acct.IPLimit, "addr", addr)
		}
	}

	// —— 设备上限 ——
	knownDevs := union(recent.Devices, a.devTracker.ActiveKeys(acct.AccountID))
	_, devKnown := knownDevs[device]
	if acct.DeviceLimit > 0 && !devKnown && len(knownDevs) >= acct.DeviceLimit {
		a.appendRecord(ctx, acct, cands, rc, addr, device, connlog.OutcomeRejectDevice, now)
		return errs.ErrDeviceLimitExceeded.WrapMsg("device ceiling reached",
			"account", acct.AccountID, "limit", acct.DeviceLimit)
	}

	// —— 放行：两个维度都记录/续期 ——
	a.ipTracker.Track(acct.AccountID, addr)
	a.devTracker.Track(acct.AccountID, device)

	// 地址和设备都已知说明是重复轮询，只续期、不重复落 connect 日志
	if !(addrKnown && devKnown) {
		a.appendRecord(ctx, acct, cands, rc, addr, device, connlog.OutcomeConnect, now)
	}
	return nil
}

// queryRecent 日志查不到就退化成只信 Tracker（软上限，记一条警告）。
func (a *Admission) queryRecent(ctx context.Context, accountID string, now time.Time) connlog.RecentKeys {
	if a.log == nil {
		return connlog.RecentKeys{Addresses: map[string]struct{}{}, Devices: map[string]struct{}{}}
	}
	recent, err := a.log.QueryRecent(ctx, accountID, now.Add(-a.recentWindow))
	if err != nil {
		logger.Warn("recent-window query failed, enforcing with tracker only",
			zap.String("account", accountID), zap.Error(err))
		return connlog.RecentKeys{Addresses: map[string]struct{}{}, Devices: map[string]struct{}{}}
	}
	if recent.Addresses == nil {
		recent.Addresses = map[string]struct{}{}
	}
	if recent.Devices == nil {
		recent.Devices = map[string]struct{}{}
	}
	return recent
}

// appendRecord 日志写失败只告警，准入/拒绝结论不受影响。
func (a *Admission) appendRecord(ctx context.Context, acct *model.Account, cands []Candidate,
	rc RequestContext, addr, device string, outcome connlog.Outcome, now time.Time) {
	if a.log == nil {
		return
	}
	rec := &connlog.ConnRecord{
		RecordID:   ids.GenerateString(),
		AccountID:  acct.AccountID,
		Addr:       addr,
		Device:     device,
		UserAgent:  rc.UserAgent,
		Outcome:    outcome,
		CreateTime: now,
	}
	// connect 记到排名最高的候选上，质量分统计靠它
	if outcome == connlog.OutcomeConnect && len(cands) > 0 {
		rec.EndpointID = cands[0].EndpointID
		rec.Protocol = cands[0].Protocol
	}
	if err := a.log.Append(ctx, rec); err != nil {
		logger.Warn("connection log append failed",
			zap.String("account", acct.AccountID), zap.String("outcome", string(outcome)), zap.Error(err))
	}
}

func union(a, b map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		out[k] = struct{}{}
	}
	for k := range b {
		out[k] = struct{}{}
	}
	return out
}
