package server

import (
	"math/rand"
	"time"

	"github.com/remeh/sizedwaitgroup"
	deadlock "github.com/sasha-s/go-deadlock"
)

// closeParallelism 关停时并发关闭连接的上限
const closeParallelism = 16

// ConnManager 管理在线连接集合：连接 <-> 头像 id 绑定、心跳与剔除
type ConnManager struct {
	cfg     Config
	store   *Store
	metrics *Metrics
	rng     *rand.Rand

	mu    deadlock.RWMutex
	conns map[string]Conn
}

func NewConnManager(cfg Config, store *Store, metrics *Metrics, rng *rand.Rand) *ConnManager {
	return &ConnManager{
		cfg:     cfg,
		store:   store,
		metrics: metrics,
		rng:     rng,
		conns:   make(map[string]Conn),
	}
}

// Accept 以连接的远端地址生成 id，创建默认头像，并发送 myConnect（含 id 与全量快照）
func (m *ConnManager) Accept(conn Conn, now time.Time) string {
	id := conn.RemoteAddr()

	m.mu.Lock()
	old, dup := m.conns[id]
	m.conns[id] = conn
	m.mu.Unlock()
	if dup && old != conn {
		// 同一端点的旧连接已失效，直接替换
		_ = old.Close()
	}

	m.store.Upsert(id, NewAvatar(m.cfg, m.rng, now))
	m.metrics.IncConnected()

	b, err := EncodeMyConnect(id, m.store.Snapshot())
	if err != nil {
		Log.Errorw("encode myConnect failed", "id", id, "err", err)
		return id
	}
	if err := conn.Send(b); err != nil {
		Log.Warnw("send myConnect failed", "id", id, "err", err)
	}
	Log.Infow("avatar connected", "id", id, "online", m.Len())
	return id
}

// Close 传输层断开时调用：移除头像与连接；已移除的 id 为空操作
func (m *ConnManager) Close(id string) bool {
	m.mu.Lock()
	conn, ok := m.conns[id]
	delete(m.conns, id)
	m.mu.Unlock()

	removed := m.store.Remove(id)
	if ok {
		_ = conn.Close()
	}
	if ok || removed {
		Log.Infow("avatar disconnected", "id", id)
	}
	return ok || removed
}

// Detach 读协程退出时调用；仅当 conn 仍是该 id 的当前连接时才移除头像
func (m *ConnManager) Detach(id string, conn Conn) bool {
	m.mu.RLock()
	cur, ok := m.conns[id]
	m.mu.RUnlock()
	if ok && cur != conn {
		_ = conn.Close()
		return false
	}
	return m.Close(id)
}

// Heartbeat 向所有连接发送 ping，并剔除 lastActive 超时的头像
func (m *ConnManager) Heartbeat(now time.Time) []string {
	m.Broadcast(pingPayload)

	var stale []string
	for id, a := range m.store.Snapshot() {
		if now.Sub(a.LastActive) > m.cfg.InactivityTimeout {
			stale = append(stale, id)
		}
	}
	for _, id := range stale {
		Log.Infow("evicting inactive avatar", "id", id)
		m.Close(id)
		m.metrics.IncEvicted()
	}
	return stale
}

// Broadcast 发送给所有在线连接；发送失败的连接按断开处理
func (m *ConnManager) Broadcast(b []byte) {
	m.mu.RLock()
	var failed []string
	for id, c := range m.conns {
		if err := c.Send(b); err != nil {
			failed = append(failed, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range failed {
		m.Close(id)
	}
}

// Send 发送给单个连接
func (m *ConnManager) Send(id string, b []byte) error {
	m.mu.RLock()
	c, ok := m.conns[id]
	m.mu.RUnlock()
	if !ok {
		return ErrConnClosed
	}
	return c.Send(b)
}

func (m *ConnManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.conns)
}

// CloseAll 关停时关闭所有连接（关闭帧写出可能阻塞，故限量并发）
func (m *ConnManager) CloseAll() {
	m.mu.Lock()
	conns := m.conns
	m.conns = make(map[string]Conn)
	m.mu.Unlock()

	swg := sizedwaitgroup.New(closeParallelism)
	for id, c := range conns {
		swg.Add()
		go func(id string, c Conn) {
			defer swg.Done()
			m.store.Remove(id)
			_ = c.Close()
		}(id, c)
	}
	swg.Wait()
}
