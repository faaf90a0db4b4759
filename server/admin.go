package server

import (
	"encoding/json"
	"net/http"
)

// HandleAdminConfig 提供玩法参数的读取与更新（热更新基本规则）
// GET /admin/config  返回当前配置
// POST /admin/config 以 JSON 载荷更新部分字段
func (a *Arena) HandleAdminConfig(w http.ResponseWriter, r *http.Request) {
	type tuning struct {
		AvatarSpeed      *float64 `json:"avatarSpeed,omitempty"`
		AvatarDodgeSpeed *float64 `json:"avatarDodgeSpeed,omitempty"`
		AttackDuration   *float64 `json:"attackDuration,omitempty"`
		AttackCooldown   *float64 `json:"attackCooldown,omitempty"`
		AttackMaxRadius  *float64 `json:"attackMaxRadius,omitempty"`
		AttackAngleWidth *float64 `json:"attackAngleWidth,omitempty"`
		AttackDamage     *float64 `json:"attackDamage,omitempty"`
		DodgeDuration    *float64 `json:"dodgeDuration,omitempty"`
		DodgeCooldown    *float64 `json:"dodgeCooldown,omitempty"`
		RespawnTime      *float64 `json:"respawnTime,omitempty"`
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, a.Config())
		return
	case http.MethodPost:
		var body tuning
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		cfg, err := a.UpdateTuning(r.Context(), func(c *Config) {
			set := func(dst *float64, v *float64) {
				if v != nil {
					*dst = *v
				}
			}
			set(&c.AvatarSpeed, body.AvatarSpeed)
			set(&c.AvatarDodgeSpeed, body.AvatarDodgeSpeed)
			set(&c.AttackDuration, body.AttackDuration)
			set(&c.AttackCooldown, body.AttackCooldown)
			set(&c.AttackMaxRadius, body.AttackMaxRadius)
			set(&c.AttackAngleWidth, body.AttackAngleWidth)
			set(&c.AttackDamage, body.AttackDamage)
			set(&c.DodgeDuration, body.DodgeDuration)
			set(&c.DodgeCooldown, body.DodgeCooldown)
			set(&c.RespawnTime, body.RespawnTime)
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		Log.Infow("config updated", "attackCooldown", cfg.AttackCooldown, "dodgeDuration", cfg.DodgeDuration,
			"attackDamage", cfg.AttackDamage, "respawnTime", cfg.RespawnTime)
		writeJSON(w, cfg)
		return
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
}

// HandleAvatars 输出当前全量状态（与 updateAvatars 广播相同的结构）
// GET /admin/avatars
func (a *Arena) HandleAvatars(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, UpdateAvatarsMessage{Type: MsgUpdateAvatars, Avatars: a.store.Snapshot()})
}

// HandleMetrics 输出运行指标
// GET /metrics
func (a *Arena) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"tick":    a.TickSeq(),
		"online":  a.conns.Len(),
		"avatars": a.store.Len(),
		"metrics": a.metrics.Snapshot(),
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
