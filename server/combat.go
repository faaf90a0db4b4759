package server

import "math"

// Hit 一次命中结果
type Hit struct {
	TargetID string
	Damage   float64
	Health   float64 // 命中后的生命值
	Killed   bool
}

// InAttackRange 判断 target 是否同时位于攻击者的距离阈值与扇形角度内
// 距离比较使用平方值，不开方
func InAttackRange(cfg Config, attacker, target Avatar) bool {
	dx := attacker.X - target.X
	dy := attacker.Y - target.Y
	dist2 := dx*dx + dy*dy

	reach := cfg.AttackMaxRadius + cfg.AvatarSize
	if dist2 >= reach*reach+cfg.AvatarSize*cfg.AvatarSize {
		return false
	}

	bearing := math.Atan2(target.Y-attacker.Y, target.X-attacker.X)
	return math.Abs(angleDiff(bearing, attacker.Angle)) < cfg.AttackAngleWidth/2
}

// angleDiff 返回 a-b 归一化到 [-π, π]，使跨越 ±π 的扇形也能正确命中
func angleDiff(a, b float64) float64 {
	d := math.Mod(a-b, 2*math.Pi)
	if d > math.Pi {
		d -= 2 * math.Pi
	} else if d < -math.Pi {
		d += 2 * math.Pi
	}
	return d
}

// ResolveAttack 以攻击命令到达时的状态对所有其他头像做一次穷举判定（O(n)，人数少，无需空间索引）
// 跳过自己、闪避中的和已死亡的目标
func ResolveAttack(cfg Config, attackerID string, store *Store) []Hit {
	attacker, ok := store.Get(attackerID)
	if !ok {
		return nil
	}

	var hits []Hit
	store.ForEach(func(id string, other *Avatar) {
		if id == attackerID {
			return
		}
		if other.Dodging(cfg) || !other.Alive() {
			return
		}
		if !InAttackRange(cfg, attacker, *other) {
			return
		}
		other.Health = math.Max(other.Health-cfg.AttackDamage, -cfg.AvatarMaxHealth)
		hits = append(hits, Hit{
			TargetID: id,
			Damage:   cfg.AttackDamage,
			Health:   other.Health,
			Killed:   !other.Alive(),
		})
	})
	return hits
}
