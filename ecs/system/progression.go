package system

import (
	"math"

	"tibiame-combat/data"
	"tibiame-combat/ecs/component"
	"tibiame-combat/ecs/entity"
	"tibiame-combat/event"

	"github.com/yohamta/donburi"
)

// ProgressionSystem は倒した敵の報酬をプレイヤーに加算し、必要経験値に達するとレベルアップさせます。
type ProgressionSystem struct {
	world  donburi.World
	config *data.Config
	bus    *event.Bus
	logger BattleLogger
}

// NewProgressionSystem は新しい ProgressionSystem を生成し、撃破イベントを購読します。
func NewProgressionSystem(world donburi.World, config *data.Config, bus *event.Bus, logger BattleLogger) *ProgressionSystem {
	ps := &ProgressionSystem{world: world, config: config, bus: bus, logger: logger}
	event.SubscribeTo(bus, ps.onTargetKilled)
	return ps
}

func (ps *ProgressionSystem) onTargetKilled(ev event.TargetKilledGameEvent) {
	killer, ok := entity.Lookup(ps.world, ev.Killer)
	if !ok || !killer.HasComponent(component.ProgressComponent) {
		return
	}
	ps.Grant(killer, ev.ExperienceReward, ev.GoldReward)
}

// Grant は経験値と所持金を加算し、上がったレベル数を返します。
// 死亡中はレベルアップの全回復を行わず、経験値だけを持ち越します。
func (ps *ProgressionSystem) Grant(entry *donburi.Entry, experience, gold int) int {
	prog := component.ProgressComponent.Get(entry)
	prog.Experience += max(0, experience)
	prog.Gold += max(0, gold)

	ups := 0
	for entity.IsAlive(entry) && prog.NextLevel > 0 && prog.Experience >= prog.NextLevel {
		prog.Experience -= prog.NextLevel
		prog.Level++
		prog.NextLevel = int(math.Round(float64(prog.NextLevel) * ps.config.Player.ExperienceGrowth))
		component.StatsComponent.Get(entry).LevelUp()
		ups++

		ps.logger.LogLevelUp(component.IdentityComponent.Get(entry).Name, prog.Level, prog.NextLevel)
		ps.bus.Publish(event.LevelUpGameEvent{Player: entry.Entity(), Level: prog.Level})
	}
	return ups
}
