package server

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config 游戏规则常量与时序参数（客户端与服务端必须保持一致，否则协议会悄然漂移）
type Config struct {
	AvatarSize       float64 `json:"avatarSize"`
	AvatarMaxHealth  float64 `json:"avatarMaxHealth"`
	AvatarSpeed      float64 `json:"avatarSpeed"`
	AvatarDodgeSpeed float64 `json:"avatarDodgeSpeed"`
	WorldSize        float64 `json:"worldSize"`

	AttackDuration   float64 `json:"attackDuration"` // 秒
	AttackCooldown   float64 `json:"attackCooldown"` // 秒
	AttackMinRadius  float64 `json:"attackMinRadius"`
	AttackMaxRadius  float64 `json:"attackMaxRadius"`
	AttackAngleWidth float64 `json:"attackAngleWidth"` // 弧度
	AttackDamage     float64 `json:"attackDamage"`

	DodgeDuration float64 `json:"dodgeDuration"` // 秒
	DodgeCooldown float64 `json:"dodgeCooldown"` // 秒

	RespawnTime float64 `json:"respawnTime"` // 秒

	TickPeriod        time.Duration `json:"tickPeriod"`
	HeartbeatPeriod   time.Duration `json:"heartbeatPeriod"`
	InactivityTimeout time.Duration `json:"inactivityTimeout"`
}

// DefaultConfig 与 shared.js 中的常量保持一致
func DefaultConfig() Config {
	return Config{
		AvatarSize:       5,
		AvatarMaxHealth:  100,
		AvatarSpeed:      2,
		AvatarDodgeSpeed: 5,
		WorldSize:        150,

		AttackDuration:   0.1,
		AttackCooldown:   0.4,
		AttackMinRadius:  1,
		AttackMaxRadius:  10,
		AttackAngleWidth: 2 * math.Pi / 3,
		AttackDamage:     5,

		DodgeDuration: 0.4,
		DodgeCooldown: 0.2,

		RespawnTime: 5,

		TickPeriod:        16 * time.Millisecond,
		HeartbeatPeriod:   time.Second,
		InactivityTimeout: 5 * time.Second,
	}
}

// TickSeconds 每个 Tick 用于计时器累加的时长，与实际调度周期一致，避免漂移
func (c Config) TickSeconds() float64 {
	return c.TickPeriod.Seconds()
}

// HalfWorld 世界边界 [-WorldSize/2, WorldSize/2]
func (c Config) HalfWorld() float64 {
	return c.WorldSize / 2
}

// Validate 检查配置是否可用于运行
func (c Config) Validate() error {
	switch {
	case c.WorldSize <= 0:
		return fmt.Errorf("world size must be > 0, got %v", c.WorldSize)
	case c.AvatarMaxHealth <= 0:
		return fmt.Errorf("avatar max health must be > 0, got %v", c.AvatarMaxHealth)
	case c.TickPeriod <= 0:
		return fmt.Errorf("tick period must be > 0, got %v", c.TickPeriod)
	case c.HeartbeatPeriod <= 0:
		return fmt.Errorf("heartbeat period must be > 0, got %v", c.HeartbeatPeriod)
	case c.InactivityTimeout < c.HeartbeatPeriod:
		return fmt.Errorf("inactivity timeout %v shorter than heartbeat period %v", c.InactivityTimeout, c.HeartbeatPeriod)
	}
	return nil
}

// LoadConfig 读取可选的 .env 文件，再用 ARENA_* 环境变量覆盖默认值
// envFile 为空或文件不存在时仅使用进程环境变量
func LoadConfig(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	cfg := DefaultConfig()
	floats := map[string]*float64{
		"ARENA_AVATAR_SIZE":        &cfg.AvatarSize,
		"ARENA_AVATAR_MAX_HEALTH":  &cfg.AvatarMaxHealth,
		"ARENA_AVATAR_SPEED":       &cfg.AvatarSpeed,
		"ARENA_AVATAR_DODGE_SPEED": &cfg.AvatarDodgeSpeed,
		"ARENA_WORLD_SIZE":         &cfg.WorldSize,
		"ARENA_ATTACK_DURATION":    &cfg.AttackDuration,
		"ARENA_ATTACK_COOLDOWN":    &cfg.AttackCooldown,
		"ARENA_ATTACK_MIN_RADIUS":  &cfg.AttackMinRadius,
		"ARENA_ATTACK_MAX_RADIUS":  &cfg.AttackMaxRadius,
		"ARENA_ATTACK_ANGLE_WIDTH": &cfg.AttackAngleWidth,
		"ARENA_ATTACK_DAMAGE":      &cfg.AttackDamage,
		"ARENA_DODGE_DURATION":     &cfg.DodgeDuration,
		"ARENA_DODGE_COOLDOWN":     &cfg.DodgeCooldown,
		"ARENA_RESPAWN_TIME":       &cfg.RespawnTime,
	}
	for key, dst := range floats {
		raw, ok := os.LookupEnv(key)
		if !ok || raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Config{}, fmt.Errorf("parse %s=%q: %w", key, raw, err)
		}
		*dst = v
	}

	durations := map[string]*time.Duration{
		"ARENA_TICK_PERIOD":        &cfg.TickPeriod,
		"ARENA_HEARTBEAT_PERIOD":   &cfg.HeartbeatPeriod,
		"ARENA_INACTIVITY_TIMEOUT": &cfg.InactivityTimeout,
	}
	for key, dst := range durations {
		raw, ok := os.LookupEnv(key)
		if !ok || raw == "" {
			continue
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse %s=%q: %w", key, raw, err)
		}
		*dst = d
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
