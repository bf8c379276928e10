package connlog

import (
	"context"
	"time"

	"PPanel/logger"

	"go.uber.org/zap"
)

// recentStore 快路径抽象（Redis 实现；测试里用假实现）。
type recentStore interface {
	Append(ctx context.Context, rec *ConnRecord) error
	QueryRecent(ctx context.Context, accountID string, since time.Time) (RecentKeys, error)
}

// PanelConnLog 组合日志：归档层是事实来源，快路径只是加速。
// 快路径故障降级到归档查询；两层都写，归档写失败才算失败。
type PanelConnLog struct {
	recent  recentStore
	archive ConnLog
}

func NewPanelConnLog(recent recentStore, archive ConnLog) *PanelConnLog {
	return &PanelConnLog{recent: recent, archive: archive}
}

func (p *PanelConnLog) Append(ctx context.Context, rec *ConnRecord) error {
	if err := p.archive.Append(ctx, rec); err != nil {
		return err
	}
	if p.recent != nil {
		if err := p.recent.Append(ctx, rec); err != nil {
			logger.Warn("recent cache append failed", zap.String("account", rec.AccountID), zap.Error(err))
		}
	}
	return nil
}

func (p *PanelConnLog) QueryRecent(ctx context.Context, accountID string, since time.Time) (RecentKeys, error) {
	if p.recent != nil {
		keys, err := p.recent.QueryRecent(ctx, accountID, since)
		if err == nil {
			return keys, nil
		}
		logger.Warn("recent cache query failed, falling back to archive",
			zap.String("account", accountID), zap.Error(err))
	}
	return p.archive.QueryRecent(ctx, accountID, since)
}

func (p *PanelConnLog) QualityByProtocol(ctx context.Context, accountID string, window time.Duration) (map[string]float64, error) {
	return p.archive.QualityByProtocol(ctx, accountID, window)
}
