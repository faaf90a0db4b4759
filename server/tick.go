package server

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// ErrArenaStopped 竞技场循环已退出
var ErrArenaStopped = errors.New("arena stopped")

// Tick 推进一帧：先更新所有头像计时器与复活，再序列化广播
// 测试可直接调用以确定性地推进
func (a *Arena) Tick() {
	start := time.Now()
	dt := a.cfg.TickSeconds()
	var respawned []string
	a.store.ForEach(func(id string, av *Avatar) {
		if StepAvatar(a.cfg, av, dt, a.rng).Respawned {
			respawned = append(respawned, id)
		}
	})
	for _, id := range respawned {
		a.metrics.IncRespawns()
		Log.Debugw("avatar respawned", "id", id)
	}
	a.Broadcast()
	atomic.AddInt64(&a.tickSeq, 1)
	a.metrics.AddTick(time.Since(start).Nanoseconds())
}

// Run 启动竞技场循环（单线程推进世界），直到 ctx 取消或 Stop
// 没有连接时依旧按周期 Tick（向空集合广播）
func (a *Arena) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.cfg.TickPeriod)
	defer ticker.Stop()
	heartbeat := time.NewTicker(a.cfg.HeartbeatPeriod)
	defer heartbeat.Stop()
	defer a.conns.CloseAll()

	for {
		select {
		case <-ctx.Done():
			a.stop()
			return ctx.Err()
		case <-a.done:
			return nil
		case req := <-a.joinChan:
			req.reply <- a.Accept(req.conn)
		case req := <-a.tuneChan:
			req.reply <- a.applyTuning(req.fn)
		case req := <-a.leaveChan:
			a.conns.Detach(req.id, req.conn)
		case cmd := <-a.inbox:
			a.Apply(cmd)
		case <-ticker.C:
			a.Tick()
		case <-heartbeat.C:
			a.Heartbeat()
		}
	}
}

// Stop 停止循环；可重复调用
func (a *Arena) Stop() {
	a.stop()
}

func (a *Arena) stop() {
	a.stopOnce.Do(func() { close(a.done) })
}
