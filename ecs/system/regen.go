package system

import (
	"tibiame-combat/data"
	"tibiame-combat/ecs/component"
	"tibiame-combat/ecs/entity"

	"github.com/yohamta/donburi"
)

// RegenerationSystem はプレイヤーの体力とマナを一定間隔で回復させます。
type RegenerationSystem struct {
	world   donburi.World
	config  *data.Config
	elapsed float64
}

// NewRegenerationSystem は新しい RegenerationSystem を生成します。
func NewRegenerationSystem(world donburi.World, config *data.Config) *RegenerationSystem {
	return &RegenerationSystem{world: world, config: config}
}

// Update は経過時間を積算し、間隔ごとに回復を適用します。死亡中は回復しません。
func (rs *RegenerationSystem) Update(dt float64) {
	cfg := rs.config.Regen
	if !cfg.Enabled || cfg.Interval <= 0 {
		return
	}
	player, ok := entity.FindPlayer(rs.world)
	if !ok || !entity.IsAlive(player) {
		rs.elapsed = 0
		return
	}

	rs.elapsed += dt
	stats := component.StatsComponent.Get(player)
	for rs.elapsed >= cfg.Interval {
		rs.elapsed -= cfg.Interval
		stats.Heal(cfg.Health)
		stats.RestoreMana(cfg.Mana)
	}
}
