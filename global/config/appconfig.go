package config

import "time"

// RedisConf Redis 连接段
type RedisConf struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
}

// MongoConf 连接日志归档库
type MongoConf struct {
	Uri         string `json:"uri"`
	Database    string `json:"database"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	AuthSource  string `json:"auth_source"`
	MaxPoolSize int    `json:"max_pool_size"`
}

// AppConfig 订阅引擎配置。
// TrackerTTL / RecentWindow 是运维输入：唯一硬要求是
// 窗口得足够大，大到能跨过一次进程重启。
type AppConfig struct {
	NodeID int64 `json:"node_id"` // 雪花节点号
	Port   int   `json:"port"`

	SubTokenSecret string `json:"sub_token_secret"` // 订阅JWT签名密钥

	TrackerTTL    time.Duration `json:"tracker_ttl"`    // 进程内活跃集TTL
	RecentWindow  time.Duration `json:"recent_window"`  // 连接日志近窗口
	QualityWindow time.Duration `json:"quality_window"` // 质量分统计窗口

	Redis RedisConf `json:"redis"`
	Mongo MongoConf `json:"mongo"`

	PgUrl string `json:"pg_url"` // 账号/节点主库

	NatsServers []string `json:"nats_servers"` // 为空=不开事件广播
}
