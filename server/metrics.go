package server

import (
	"sync/atomic"
)

// Metrics 记录竞技场运行期的关键指标（用于监控与调试）
type Metrics struct {
	TickCount         int64 // 统计的 Tick 次数
	CommandsAccepted  int64 // 被应用的命令数
	CommandsDropped   int64 // 因格式错误、未知类型或 id 不符被丢弃的消息数
	ChanFullDiscarded int64 // 因 inbox 满被丢弃的命令数
	Hits              int64 // 命中次数
	Kills             int64 // 击杀次数
	Respawns          int64 // 复活次数
	Connected         int64 // 累计接入连接数
	Evicted           int64 // 因心跳超时被剔除的数量
	TotalTickNs       int64 // Tick 累计耗时（纳秒）
}

func (m *Metrics) IncAccepted() { atomic.AddInt64(&m.CommandsAccepted, 1) }
func (m *Metrics) IncDropped() { atomic.AddInt64(&m.CommandsDropped, 1) }
func (m *Metrics) IncChanFullDiscarded() { atomic.AddInt64(&m.ChanFullDiscarded, 1) }
func (m *Metrics) IncRespawns() { atomic.AddInt64(&m.Respawns, 1) }
func (m *Metrics) IncConnected() { atomic.AddInt64(&m.Connected, 1) }
func (m *Metrics) IncEvicted() { atomic.AddInt64(&m.Evicted, 1) }
func (m *Metrics) AddHits(hits []Hit) {
	atomic.AddInt64(&m.Hits, int64(len(hits)))
	for _, h := range hits {
		if h.Killed {
			atomic.AddInt64(&m.Kills, 1)
		}
	}
}
func (m *Metrics) AddTick(ns int64) {
	atomic.AddInt64(&m.TickCount, 1)
	atomic.AddInt64(&m.TotalTickNs, ns)
}

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *Metrics) Snapshot() map[string]any {
	tick := atomic.LoadInt64(&m.TickCount)
	total := atomic.LoadInt64(&m.TotalTickNs)
	var avgMs float64
	if tick > 0 {
		avgMs = float64(total) / float64(tick) / 1e6
	}
	return map[string]any{
		"tick_count":          tick,
		"commands_accepted":   atomic.LoadInt64(&m.CommandsAccepted),
		"commands_dropped":    atomic.LoadInt64(&m.CommandsDropped),
		"chan_full_discarded": atomic.LoadInt64(&m.ChanFullDiscarded),
		"hits":                atomic.LoadInt64(&m.Hits),
		"kills":               atomic.LoadInt64(&m.Kills),
		"respawns":            atomic.LoadInt64(&m.Respawns),
		"connected":           atomic.LoadInt64(&m.Connected),
		"evicted":             atomic.LoadInt64(&m.Evicted),
		"avg_tick_ms":         avgMs,
	}
}
