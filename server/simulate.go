package server

import (
	"math"
	"math/rand"
)

// StepResult 单次推进中发生的状态迁移
type StepResult struct {
	Respawned bool
}

// StepAvatar 推进一个头像 dt 秒：冷却计时、闪避位移、死亡后复活
// 纯函数，与网络无关
func StepAvatar(cfg Config, a *Avatar, dt float64, rng *rand.Rand) StepResult {
	var res StepResult

	if !a.CanAttack(cfg) {
		a.AttackTimer += dt
	}
	if !a.CanDodge(cfg) {
		a.DodgeTimer += dt
	}
	// 先累加计时再判定闪避位移，与手动移动叠加
	if a.Alive() && a.Dodging(cfg) {
		a.X += cfg.AvatarDodgeSpeed * math.Cos(a.Angle)
		a.Y += cfg.AvatarDodgeSpeed * math.Sin(a.Angle)
		a.Clamp(cfg)
	}

	if !a.Alive() {
		a.RespawnTimer += dt
		if a.RespawnTimer > cfg.RespawnTime {
			a.Health = cfg.AvatarMaxHealth
			a.RespawnTimer = 0
			half := cfg.HalfWorld()
			a.X = (rng.Float64()*2 - 1) * half
			a.Y = (rng.Float64()*2 - 1) * half
			res.Respawned = true
		}
	}
	return res
}
