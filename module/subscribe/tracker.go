package subscribe

import (
	"hash/fnv"
	"sync"
	"time"
)

const trackerShards = 32

// Tracker 进程内 TTL 多重集合：账号 -> {地址或设备指纹 -> 最近出现时间}。
// 按账号分片，互不相关的账号不抢同一把锁；过期靠读时剔除，无后台扫描。
// 不落盘：重启后为空，准入侧会并上连接日志的近窗口查询补齐。
type Tracker struct {
	ttl    time.Duration
	now    func() time.Time
	shards [trackerShards]trackerShard
}

type trackerShard struct {
	mu sync.Mutex
	m  map[string]map[string]time.Time
}

func NewTracker(ttl time.Duration) *Tracker {
	t := &Tracker{ttl: ttl, now: time.Now}
	for i := range t.shards {
		t.shards[i].m = make(map[string]map[string]time.Time)
	}
	return t
}

func (t *Tracker) shard(accountID string) *trackerShard {
	h := fnv.New32a()
	h.Write([]byte(accountID))
	return &t.shards[h.Sum32()%trackerShards]
}

// ActiveKeys 返回账号当前未过期的 key 集合，顺带剔除过期项。
func (t *Tracker) ActiveKeys(accountID string) map[string]struct{} {
	now := t.now()
	s := t.shard(accountID)
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := s.m[accountID]
	out := make(map[string]struct{}, len(keys))
	for k, seen := range keys {
		if now.Sub(seen) > t.ttl {
			delete(keys, k)
			continue
		}
		out[k] = struct{}{}
	}
	if len(keys) == 0 {
		delete(s.m, accountID)
	}
	return out
}

// Track 记录一个 key；已存在则刷新最近出现时间。
// 并发对同一 key 调用不会重复计数（map 语义天然合并）。
func (t *Tracker) Track(accountID, key string) {
	if key == "" {
		return
	}
	s := t.shard(accountID)
	s.mu.Lock()
	defer s.mu.Unlock()

	keys, ok := s.m[accountID]
	if !ok {
		keys = make(map[string]time.Time, 4)
		s.m[accountID] = keys
	}
	keys[key] = t.now()
}

// Refresh 语义同 Track：known key 续期不占新槽位。
func (t *Tracker) Refresh(accountID, key string) {
	t.Track(accountID, key)
}
