package server

import (
	"math/rand"
	"testing"
	"time"
)

func TestStepAvatarAccumulatesTimersUntilReady(t *testing.T) {
	cfg := DefaultConfig()
	rng := rand.New(rand.NewSource(1))
	a := NewAvatar(cfg, rng, time.Time{})
	a.AttackTimer = 0

	dt := cfg.TickSeconds()
	ticks := 0
	for !a.CanAttack(cfg) {
		StepAvatar(cfg, &a, dt, rng)
		ticks++
		if ticks > 1000 {
			t.Fatalf("attack never became ready")
		}
	}
	before := a.AttackTimer
	StepAvatar(cfg, &a, dt, rng)
	if a.AttackTimer != before {
		t.Fatalf("ready timer kept growing: %v -> %v", before, a.AttackTimer)
	}
	if a.DodgeTimer != readyTimer {
		t.Fatalf("ready dodge timer changed: %v", a.DodgeTimer)
	}
}

func TestStepAvatarDodgeDisplacesAlongAngle(t *testing.T) {
	cfg := DefaultConfig()
	rng := rand.New(rand.NewSource(1))
	a := NewAvatar(cfg, rng, time.Time{})
	a.DodgeTimer = 0

	StepAvatar(cfg, &a, cfg.TickSeconds(), rng)
	if a.X != cfg.AvatarDodgeSpeed || a.Y != 0 {
		t.Fatalf("position = (%v, %v), want (%v, 0)", a.X, a.Y, cfg.AvatarDodgeSpeed)
	}

	a.X = cfg.HalfWorld()
	a.DodgeTimer = 0
	StepAvatar(cfg, &a, cfg.TickSeconds(), rng)
	if a.X != cfg.HalfWorld() {
		t.Fatalf("dodge left the world: x = %v", a.X)
	}
}

func TestStepAvatarRespawn(t *testing.T) {
	cfg := DefaultConfig()
	rng := rand.New(rand.NewSource(7))
	a := NewAvatar(cfg, rng, time.Time{})
	a.X, a.Y = 10, 10
	a.Health = -5

	dt := cfg.TickSeconds()
	ticks := 0
	for !a.Alive() {
		res := StepAvatar(cfg, &a, dt, rng)
		ticks++
		if res.Respawned != a.Alive() {
			t.Fatalf("tick %d: respawned=%v alive=%v", ticks, res.Respawned, a.Alive())
		}
		if ticks > 1000 {
			t.Fatalf("avatar never respawned")
		}
	}

	if float64(ticks)*dt <= cfg.RespawnTime {
		t.Fatalf("respawned after %v s, want > %v s", float64(ticks)*dt, cfg.RespawnTime)
	}
	if a.Health != cfg.AvatarMaxHealth {
		t.Fatalf("health = %v, want %v", a.Health, cfg.AvatarMaxHealth)
	}
	if a.RespawnTimer != 0 {
		t.Fatalf("respawn timer = %v, want 0", a.RespawnTimer)
	}
	half := cfg.HalfWorld()
	if a.X < -half || a.X > half || a.Y < -half || a.Y > half {
		t.Fatalf("respawn position (%v, %v) out of bounds", a.X, a.Y)
	}
	if a.X == 10 && a.Y == 10 {
		t.Fatalf("respawn did not move the avatar")
	}
}

func TestStepAvatarDeadDoesNotDodgeMove(t *testing.T) {
	cfg := DefaultConfig()
	rng := rand.New(rand.NewSource(1))
	a := NewAvatar(cfg, rng, time.Time{})
	a.Health = 0
	a.DodgeTimer = 0

	StepAvatar(cfg, &a, cfg.TickSeconds(), rng)
	if a.X != 0 || a.Y != 0 {
		t.Fatalf("dead avatar moved to (%v, %v)", a.X, a.Y)
	}
}

func TestStepAvatarDodgeDisplacementTicks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WorldSize = 1000
	rng := rand.New(rand.NewSource(1))
	a := NewAvatar(cfg, rng, time.Time{})
	a.DodgeTimer = 0

	moves := 0
	for i := 0; i < 100; i++ {
		x := a.X
		StepAvatar(cfg, &a, cfg.TickSeconds(), rng)
		if a.X != x {
			moves++
		}
	}
	// 16ms 下 0.4s 的闪避窗口共位移 24 次（计时先于位移）
	if moves != 24 {
		t.Fatalf("dodge displaced %d ticks, want 24", moves)
	}
}
