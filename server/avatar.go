package server

import (
	"math"
	"math/rand"
	"time"
)

// Color 头像颜色，创建时随机分配，生命周期内不变
type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
	A float64 `json:"a"`
}

// Avatar 玩家在服务端的权威状态（一个连接对应一个 Avatar）
type Avatar struct {
	Health       float64 `json:"health"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	Angle        float64 `json:"angle"`
	AttackTimer  float64 `json:"attack_timer"`
	DodgeTimer   float64 `json:"dodge_timer"`
	RespawnTimer float64 `json:"respawn_timer"`
	Color        Color   `json:"color"`

	LastActive time.Time `json:"-"` // 任意入站消息都会刷新，驱动心跳剔除
}

// readyTimer 新建头像的计时器初值，高于任何“就绪”阈值，使其可立即行动
const readyTimer = 100.0

// NewAvatar 以默认属性创建头像：原点、满血、计时器就绪
func NewAvatar(cfg Config, rng *rand.Rand, now time.Time) Avatar {
	return Avatar{
		Health:      cfg.AvatarMaxHealth,
		AttackTimer: readyTimer,
		DodgeTimer:  readyTimer,
		Color:       randomColor(rng),
		LastActive:  now,
	}
}

func randomColor(rng *rand.Rand) Color {
	return Color{R: rng.Float64() * 255, G: rng.Float64() * 255, B: rng.Float64() * 255, A: 1.0}
}

// Alive 生命值大于 0
func (a *Avatar) Alive() bool { return a.Health > 0 }

// CanAttack 攻击计时器超过 持续+冷却 才能再次攻击
func (a *Avatar) CanAttack(cfg Config) bool {
	return a.AttackTimer > cfg.AttackDuration+cfg.AttackCooldown
}

// CanDodge 闪避计时器超过 持续+冷却 才能再次闪避
func (a *Avatar) CanDodge(cfg Config) bool {
	return a.DodgeTimer > cfg.DodgeDuration+cfg.DodgeCooldown
}

// Dodging 闪避窗口内无敌
func (a *Avatar) Dodging(cfg Config) bool {
	return a.DodgeTimer < cfg.DodgeDuration
}

// Attacking 攻击动画窗口
func (a *Avatar) Attacking(cfg Config) bool {
	return a.AttackTimer < cfg.AttackDuration
}

// Clamp 将位置裁剪到世界边界内
func (a *Avatar) Clamp(cfg Config) {
	half := cfg.HalfWorld()
	a.X = math.Max(-half, math.Min(half, a.X))
	a.Y = math.Max(-half, math.Min(half, a.Y))
}
