package subscribe

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"PPanel/logger"
	"PPanel/module/account/model"
	"PPanel/module/account/store"
	"PPanel/service/connlog"
	errs "PPanel/tools/errs"

	"go.uber.org/zap"
)

const (
	priorityDefault = 100
	priorityMin     = 1
	priorityMax     = 9999
)

// farFuture 创建时间缺失/坏值的归一化哨兵："无限晚"，排序永远垫底。
var farFuture = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)

// Resolver 候选节点解析：合并直连与组继承指派，去重、排序。
// 对 Tracker 无副作用；质量分协作方故障静默降级为空表。
type Resolver struct {
	store         store.AccountStore
	log           connlog.ConnLog
	qualityWindow time.Duration
}

func NewResolver(st store.AccountStore, log connlog.ConnLog, qualityWindow time.Duration) *Resolver {
	return &Resolver{store: st, log: log, qualityWindow: qualityWindow}
}

// Resolve 返回有序去重后的候选列表；幸存集为空报 NoActiveEndpoints。
func (r *Resolver) Resolve(ctx context.Context, acct *model.Account) ([]Candidate, error) {
	direct, err := r.store.FindDirectAssignments(ctx, acct.AccountID)
	if err != nil {
		return nil, err
	}
	grouped, err := r.store.FindGroupAssignments(ctx, acct.AccountID)
	if err != nil {
		return nil, err
	}

	// 以 endpoint 为键合并；碰撞时留更优的一条
	merged := make(map[string]Candidate, len(direct)+len(grouped))
	mergeAssignments(merged, direct)
	mergeAssignments(merged, grouped)

	if len(merged) == 0 {
		return nil, errs.ErrNoActiveEndpoints.WrapMsg("no enabled endpoint", "account", acct.AccountID)
	}

	quality := r.qualityScores(ctx, acct.AccountID)

	out := make([]Candidate, 0, len(merged))
	for _, c := range merged {
		c.Quality = quality[c.Protocol]
		out = append(out, c)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		if a.Quality != b.Quality {
			return a.Quality > b.Quality
		}
		if a.Security != b.Security {
			return a.Security < b.Security
		}
		if !a.CreateTime.Equal(b.CreateTime) {
			return a.CreateTime.Before(b.CreateTime)
		}
		return a.EndpointID < b.EndpointID
	})
	return out, nil
}

func mergeAssignments(merged map[string]Candidate, assignments []model.Assignment) {
	for _, a := range assignments {
		// 节点级禁用一票否决，哪怕关系行声称启用
		if !a.EndpointEnabled || !a.Enabled {
			continue
		}
		cand := Candidate{
			EndpointID: a.EndpointID,
			Priority:   NormalizePriority(a.RawPriority),
			Security:   a.Security,
			Protocol:   a.Protocol,
			Origin:     a.Origin,
			CreateTime: normalizeCreateTime(a.RawCreateTime),
		}
		exist, ok := merged[a.EndpointID]
		if !ok {
			merged[a.EndpointID] = cand
			continue
		}
		if preferOver(cand, exist) {
			merged[a.EndpointID] = cand
		}
	}
}

// preferOver 碰撞裁决：优先级小者胜，平手看安全等级，再看创建时间；
// 全平保持既有（稳定）。
func preferOver(n, old Candidate) bool {
	if n.Priority != old.Priority {
		return n.Priority < old.Priority
	}
	if n.Security != old.Security {
		return n.Security < old.Security
	}
	if !n.CreateTime.Equal(old.CreateTime) {
		return n.CreateTime.Before(old.CreateTime)
	}
	return false
}

// qualityScores 协作方故障塌缩为空表：排名永远不被它拖垮。
func (r *Resolver) qualityScores(ctx context.Context, accountID string) map[string]float64 {
	if r.log == nil || r.qualityWindow <= 0 {
		return map[string]float64{}
	}
	scores, err := r.log.QualityByProtocol(ctx, accountID, r.qualityWindow)
	if err != nil {
		logger.Warn("quality scoring unavailable, ranking without it",
			zap.String("account", accountID), zap.Error(err))
		return map[string]float64{}
	}
	if scores == nil {
		return map[string]float64{}
	}
	return scores
}

// NormalizePriority 归一化优先级到 [1,9999]：
// nil / 解析不了 -> 100；能解析但越界 -> 夹到边界。坏数据绝不 panic。
func NormalizePriority(raw any) int {
	var p int
	switch v := raw.(type) {
	case nil:
		return priorityDefault
	case int:
		p = v
	case int32:
		p = int(v)
	case int64:
		p = int(v)
	case float64:
		p = int(v)
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return priorityDefault
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return priorityDefault
		}
		p = n
	default:
		n, err := strconv.Atoi(strings.TrimSpace(fmt.Sprint(v)))
		if err != nil {
			return priorityDefault
		}
		p = n
	}
	if p < priorityMin {
		return priorityMin
	}
	if p > priorityMax {
		return priorityMax
	}
	return p
}

// normalizeCreateTime 文本时间戳，认 RFC3339 与 "2006-01-02 15:04:05"；
// 空/坏值归一化为"无限晚"。
func normalizeCreateTime(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return farFuture
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts
	}
	if ts, err := time.Parse("2006-01-02 15:04:05", raw); err == nil {
		return ts
	}
	return farFuture
}
