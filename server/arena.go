package server

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"
)

// joinRequest 由连接协程发出，在竞技场线程中完成接入
type joinRequest struct {
	conn  Conn
	reply chan string
}

// tuneRequest 管理接口发出的配置热更新
type tuneRequest struct {
	fn    func(cfg *Config)
	reply chan Config
}

// leaveRequest 读协程退出时发出
type leaveRequest struct {
	id   string
	conn Conn
}

// Arena 竞技场：权威状态维护在内存，所有修改都在单个循环中串行执行
type Arena struct {
	cfg     Config
	store   *Store
	conns   *ConnManager
	metrics *Metrics
	rng     *rand.Rand
	now     func() time.Time

	inbox     chan Command
	joinChan  chan joinRequest
	leaveChan chan leaveRequest
	tuneChan  chan tuneRequest
	done      chan struct{}
	stopOnce  sync.Once

	cfgView atomic.Value
	tickSeq int64
}

// Option 竞技场可选参数
type Option func(*Arena)

// WithClock 替换时钟（测试用）
func WithClock(now func() time.Time) Option {
	return func(a *Arena) { a.now = now }
}

// WithRand 替换随机源（测试用）
func WithRand(rng *rand.Rand) Option {
	return func(a *Arena) { a.rng = rng }
}

// NewArena 创建竞技场，初始化数据结构
func NewArena(cfg Config, opts ...Option) *Arena {
	a := &Arena{
		cfg:       cfg,
		store:     NewStore(),
		metrics:   &Metrics{},
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		now:       time.Now,
		inbox:     make(chan Command, 1024), // 足够缓冲，避免网络读阻塞影响 Tick
		joinChan:  make(chan joinRequest),
		leaveChan: make(chan leaveRequest, 64),
		tuneChan:  make(chan tuneRequest),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.conns = NewConnManager(cfg, a.store, a.metrics, a.rng)
	a.cfgView.Store(cfg)
	return a
}

// Config 当前配置的只读副本，可在任意协程调用
func (a *Arena) Config() Config { return a.cfgView.Load().(Config) }

func (a *Arena) Store() *Store { return a.store }
func (a *Arena) Metrics() *Metrics { return a.metrics }
func (a *Arena) Conns() *ConnManager { return a.conns }

// TickSeq 已执行的 Tick 数
func (a *Arena) TickSeq() int64 { return atomic.LoadInt64(&a.tickSeq) }

// UpdateTuning 在竞技场线程中热更新玩法参数；时序参数（Tick/心跳周期）需重启生效
func (a *Arena) UpdateTuning(ctx context.Context, fn func(cfg *Config)) (Config, error) {
	req := tuneRequest{fn: fn, reply: make(chan Config, 1)}
	select {
	case a.tuneChan <- req:
	case <-a.done:
		return Config{}, ErrArenaStopped
	case <-ctx.Done():
		return Config{}, ctx.Err()
	}
	select {
	case cfg := <-req.reply:
		return cfg, nil
	case <-a.done:
		return Config{}, ErrArenaStopped
	}
}

func (a *Arena) applyTuning(fn func(cfg *Config)) Config {
	next := a.cfg
	fn(&next)
	next.TickPeriod = a.cfg.TickPeriod
	next.HeartbeatPeriod = a.cfg.HeartbeatPeriod
	next.InactivityTimeout = a.cfg.InactivityTimeout
	if err := next.Validate(); err != nil {
		Log.Warnw("tuning rejected", "err", err)
		return a.cfg
	}
	a.cfg = next
	a.conns.cfg = next
	a.cfgView.Store(next)
	return next
}

// Join 请求在竞技场线程中接入连接，返回绑定的头像 id
func (a *Arena) Join(ctx context.Context, conn Conn) (string, error) {
	req := joinRequest{conn: conn, reply: make(chan string, 1)}
	select {
	case a.joinChan <- req:
	case <-a.done:
		return "", ErrArenaStopped
	case <-ctx.Done():
		return "", ctx.Err()
	}
	select {
	case id := <-req.reply:
		return id, nil
	case <-a.done:
		return "", ErrArenaStopped
	}
}

// Submit 入站命令（非阻塞）：拥塞时丢弃，保证 Tick 准时
func (a *Arena) Submit(cmd Command) {
	select {
	case a.inbox <- cmd:
	default:
		a.metrics.IncChanFullDiscarded()
	}
}

// Touch 任意入站帧都刷新 lastActive（含无法解析的帧），不经过 inbox，避免拥塞时误剔除
// Store 自带锁，可在读协程中直接调用
func (a *Arena) Touch(id string) {
	now := a.now()
	a.store.Update(id, func(av *Avatar) { av.LastActive = now })
}

// RequestLeave 请求在竞技场线程中移除玩家，避免并发改动状态
func (a *Arena) RequestLeave(id string, conn Conn) {
	select {
	case a.leaveChan <- leaveRequest{id: id, conn: conn}:
	case <-a.done:
		// 已停止：CloseAll 会清理
	}
}

// Apply 应用一条已解码的命令；攻击在此同步结算，不推迟到 Tick
// id 不存在（例如与剔除竞争）时为空操作
func (a *Arena) Apply(cmd Command) {
	cfg := a.cfg
	now := a.now()

	var found bool
	switch cmd.Type {
	case MsgAvatarMove:
		found = a.store.Update(cmd.ID, func(av *Avatar) {
			av.LastActive = now
			if !av.Alive() {
				return
			}
			av.X += cmd.Offset.X
			av.Y += cmd.Offset.Y
			av.Clamp(cfg)
		})
	case MsgAvatarAttack:
		ready := false
		found = a.store.Update(cmd.ID, func(av *Avatar) {
			av.LastActive = now
			if !av.Alive() || !av.CanAttack(cfg) {
				return
			}
			av.Angle = cmd.Angle
			av.AttackTimer = 0
			ready = true
		})
		if ready {
			hits := ResolveAttack(cfg, cmd.ID, a.store)
			a.metrics.AddHits(hits)
			for _, h := range hits {
				Log.Debugw("attack hit", "attacker", cmd.ID, "target", h.TargetID, "health", h.Health, "killed", h.Killed)
			}
		}
	case MsgAvatarDodge:
		found = a.store.Update(cmd.ID, func(av *Avatar) {
			av.LastActive = now
			if !av.Alive() || !av.CanDodge(cfg) {
				return
			}
			av.Angle = cmd.Angle
			av.DodgeTimer = 0
		})
	case MsgPong:
		found = a.store.Update(cmd.ID, func(av *Avatar) {
			av.LastActive = now
		})
	}
	if found {
		a.metrics.IncAccepted()
	}
}

// Accept 在竞技场线程中直接接入（测试与 Join 共用）
func (a *Arena) Accept(conn Conn) string {
	return a.conns.Accept(conn, a.now())
}

// Close 断开并移除头像；幂等
func (a *Arena) Close(id string) bool {
	return a.conns.Close(id)
}

// Heartbeat 执行一次心跳：ping 所有连接并剔除超时头像
func (a *Arena) Heartbeat() []string {
	return a.conns.Heartbeat(a.now())
}

// Broadcast 将当前世界状态广播给所有连接（文本 JSON）
func (a *Arena) Broadcast() {
	b, err := EncodeUpdateAvatars(a.store.Snapshot())
	if err != nil {
		Log.Errorw("encode updateAvatars failed", "err", err)
		return
	}
	a.conns.Broadcast(b)
}
