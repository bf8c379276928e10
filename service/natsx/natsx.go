package natsx

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/nats-io/nats.go"
)

// Config 客户端配置
type Config struct {
	Servers       []string
	Name          string
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// Manager 轻量 NATS 客户端：只做尽力而为的事件发布。
type Manager struct {
	mu sync.RWMutex
	nc *nats.Conn
}

var globalMgr Manager

// InitNats 连接 NATS；Servers 为空视为未启用（不报错）。
func InitNats(cfg Config) error {
	if len(cfg.Servers) == 0 {
		return nil
	}
	if cfg.ReconnectWait == 0 {
		cfg.ReconnectWait = 500 * time.Millisecond
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 3 * time.Second
	}
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.ReconnectJitter(100*time.Millisecond, 500*time.Millisecond),
		nats.Timeout(cfg.Timeout),
	}
	nc, err := nats.Connect(strings.Join(cfg.Servers, ","), opts...)
	if err != nil {
		return err
	}
	globalMgr.mu.Lock()
	globalMgr.nc = nc
	globalMgr.mu.Unlock()
	return nil
}

// Enabled 是否已建立连接
func Enabled() bool {
	globalMgr.mu.RLock()
	defer globalMgr.mu.RUnlock()
	return globalMgr.nc != nil
}

// PublishAsync 尽力而为发布：失败只记日志，绝不影响调用方。
func PublishAsync(subject string, data []byte) {
	globalMgr.mu.RLock()
	nc := globalMgr.nc
	globalMgr.mu.RUnlock()
	if nc == nil {
		return
	}
	if err := nc.Publish(subject, data); err != nil {
		glog.Warningf("natsx publish failed: subject=%s err=%v", subject, err)
	}
}

// Close 排空并关闭连接
func Close() error {
	globalMgr.mu.Lock()
	defer globalMgr.mu.Unlock()
	if globalMgr.nc == nil {
		return nil
	}
	if err := globalMgr.nc.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		globalMgr.nc.Close()
		globalMgr.nc = nil
		return err
	}
	globalMgr.nc = nil
	return nil
}
