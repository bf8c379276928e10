package connlog

import (
	"context"
	"encoding/json"
	"time"

	"PPanel/service/natsx"
)

// eventLog 在 Append 成功后向 NATS 广播事件，供通知侧消费。
// 发布是尽力而为：失败只在 natsx 层记日志，不回传。
type eventLog struct {
	inner   ConnLog
	subject string
}

// WithEvents 给日志实现挂事件广播；subjectPrefix 形如 "panel.connlog"。
func WithEvents(inner ConnLog, subjectPrefix string) ConnLog {
	return &eventLog{inner: inner, subject: subjectPrefix}
}

func (e *eventLog) Append(ctx context.Context, rec *ConnRecord) error {
	if err := e.inner.Append(ctx, rec); err != nil {
		return err
	}
	if natsx.Enabled() {
		if data, err := json.Marshal(rec); err == nil {
			natsx.PublishAsync(e.subject+"."+string(rec.Outcome), data)
		}
	}
	return nil
}

func (e *eventLog) QueryRecent(ctx context.Context, accountID string, since time.Time) (RecentKeys, error) {
	return e.inner.QueryRecent(ctx, accountID, since)
}

func (e *eventLog) QualityByProtocol(ctx context.Context, accountID string, window time.Duration) (map[string]float64, error) {
	return e.inner.QualityByProtocol(ctx, accountID, window)
}
