package connlog

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RedisRecent 近窗口快路径：每账号两个 ZSET（地址/设备），
// member = 地址或设备指纹，score = 最近一次成功连接的 unix 秒。
// 读取时顺带清掉窗口外的成员（sweep-and-read，无后台任务）。
type RedisRecent struct {
	rdb    *redis.Client
	window time.Duration
}

// ===== Lua 脚本 =====

// 清理过期并返回"窗口内全部成员"
// KEYS[1] = zset key
// ARGV[1] = sinceUnix（<= since 的成员淘汰）
// 返回：窗口内成员数组
const luaSweepAndRead = `
local z     = KEYS[1]
local since = tonumber(ARGV[1])

redis.call("ZREMRANGEBYSCORE", z, "-inf", since)

local actives = redis.call("ZRANGE", z, 0, -1)
if redis.call("ZCARD", z) > 0 then
  redis.call("EXPIRE", z, 3600)
end
return actives
`

var sweepAndRead = redis.NewScript(luaSweepAndRead)

func NewRedisRecent(rdb *redis.Client, window time.Duration) *RedisRecent {
	return &RedisRecent{rdb: rdb, window: window}
}

func (r *RedisRecent) addrKey(accountID string) string {
	return fmt.Sprintf("connlog:recent:{%s}:addr", accountID)
}

func (r *RedisRecent) devKey(accountID string) string {
	return fmt.Sprintf("connlog:recent:{%s}:dev", accountID)
}

// Append 只收录成功连接；拒绝事件不得进入"已知"集合。
func (r *RedisRecent) Append(ctx context.Context, rec *ConnRecord) error {
	if rec.Outcome != OutcomeConnect {
		return nil
	}
	score := float64(rec.CreateTime.Unix())
	ttl := r.window * 2
	if ttl < time.Minute {
		ttl = time.Minute
	}

	pipe := r.rdb.TxPipeline()
	if rec.Addr != "" {
		pipe.ZAdd(ctx, r.addrKey(rec.AccountID), redis.Z{Score: score, Member: rec.Addr})
		pipe.Expire(ctx, r.addrKey(rec.AccountID), ttl)
	}
	if rec.Device != "" {
		pipe.ZAdd(ctx, r.devKey(rec.AccountID), redis.Z{Score: score, Member: rec.Device})
		pipe.Expire(ctx, r.devKey(rec.AccountID), ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "redis recent append")
	}
	return nil
}

// QueryRecent 返回 since 之后成功连接过的地址/设备。
func (r *RedisRecent) QueryRecent(ctx context.Context, accountID string, since time.Time) (RecentKeys, error) {
	out := emptyRecentKeys()

	addrs, err := r.sweep(ctx, r.addrKey(accountID), since)
	if err != nil {
		return out, errors.Wrap(err, "redis recent addrs")
	}
	for _, a := range addrs {
		out.Addresses[a] = struct{}{}
	}

	devs, err := r.sweep(ctx, r.devKey(accountID), since)
	if err != nil {
		return out, errors.Wrap(err, "redis recent devices")
	}
	for _, d := range devs {
		out.Devices[d] = struct{}{}
	}
	return out, nil
}

func (r *RedisRecent) sweep(ctx context.Context, key string, since time.Time) ([]string, error) {
	res, err := sweepAndRead.Run(ctx, r.rdb, []string{key}, since.Unix()).Result()
	if err != nil {
		return nil, err
	}
	raw, ok := res.([]interface{})
	if !ok {
		return nil, errors.Errorf("unexpected script result %T", res)
	}
	members := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			members = append(members, s)
		}
	}
	return members, nil
}
