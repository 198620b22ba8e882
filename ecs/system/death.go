package system

import (
	"context"

	"tibiame-combat/core"
	"tibiame-combat/data"
	"tibiame-combat/ecs/component"
	"tibiame-combat/ecs/entity"
	"tibiame-combat/event"

	"github.com/yohamta/donburi"
)

const despawnTimer = "despawn"

// DeathSystem は死亡の確定、通知、遅延除去を担当します。
// 除去は DestroyDelay 後に行うため、死亡に反応する購読者は除去前に ActorDied を受け取れます。
type DeathSystem struct {
	world     donburi.World
	config    *data.Config
	bus       *event.Bus
	scheduler *Scheduler
	spatial   SpatialProvider
	cooldowns *CooldownSystem
	logger    BattleLogger
}

// NewDeathSystem は新しい DeathSystem を生成します。
func NewDeathSystem(world donburi.World, config *data.Config, bus *event.Bus, scheduler *Scheduler, spatial SpatialProvider, cooldowns *CooldownSystem, logger BattleLogger) *DeathSystem {
	return &DeathSystem{
		world:     world,
		config:    config,
		bus:       bus,
		scheduler: scheduler,
		spatial:   spatial,
		cooldowns: cooldowns,
		logger:    logger,
	}
}

// Kill はアクターを死亡させます。既に死亡している場合は何もせず false を返します。
func (ds *DeathSystem) Kill(victim *donburi.Entry, killer donburi.Entity) bool {
	if victim == nil || !victim.Valid() {
		return false
	}
	life := component.LifeComponent.Get(victim)
	if life.Dead {
		return false
	}
	life.Dead = true
	life.Killer = killer
	component.StatsComponent.Get(victim).Kill()

	ds.spatial.Stop(victim)
	ds.spatial.DisableCollision(victim)
	ds.cooldowns.Block(victim)
	ds.scheduler.CancelOwner(victim.Entity())

	if victim.HasComponent(component.AIComponent) {
		ai := component.AIComponent.Get(victim)
		from := ai.State()
		if component.FireAIEvent(context.Background(), ai, component.AIEventDie) {
			ds.logger.LogAIStateChanged(component.IdentityComponent.Get(victim).Name, from, core.AIStateDead)
			ds.bus.Publish(event.AIStateChangedGameEvent{Actor: victim.Entity(), From: from, To: core.AIStateDead})
		}
		ai.Threat = donburi.Null
	}

	id := component.IdentityComponent.Get(victim)
	ds.logger.LogActorDied(id.Name, entity.Name(ds.world, killer))
	ds.bus.Publish(event.ActorDiedGameEvent{
		Actor:  victim.Entity(),
		Role:   id.Role,
		Name:   id.Name,
		Killer: killer,
	})

	// プレイヤーは除去せず、復活を待つ
	if id.Role == core.RoleEnemy {
		life.Removing = true
		e := victim.Entity()
		ds.scheduler.After(e, despawnTimer, ds.config.Lifecycle.DestroyDelay, func() { ds.remove(e) })
	}
	return true
}

func (ds *DeathSystem) remove(e donburi.Entity) {
	entry, ok := entity.Lookup(ds.world, e)
	if !ok {
		return
	}
	ds.spatial.Remove(entry)
	ds.world.Remove(e)
	ds.bus.Publish(event.ActorRemovedGameEvent{Actor: e})
}

// CheckDeath は体力が0になったアクターを死亡させます。
func (ds *DeathSystem) CheckDeath(victim *donburi.Entry, killer donburi.Entity) bool {
	if victim == nil || !victim.Valid() {
		return false
	}
	if !component.StatsComponent.Get(victim).IsDead() {
		return false
	}
	return ds.Kill(victim, killer)
}

// Revive は死亡したプレイヤーを全回復させて復活させます。
func (ds *DeathSystem) Revive(entry *donburi.Entry) core.Outcome {
	if entry == nil || !entry.Valid() {
		return core.Reject(core.ReasonStaleReference)
	}
	life := component.LifeComponent.Get(entry)
	if !life.Dead || life.Removing {
		return core.Reject(core.ReasonInvalidTarget)
	}
	life.Dead = false
	life.Killer = donburi.Null
	component.StatsComponent.Get(entry).Revive()
	ds.spatial.EnableCollision(entry)
	ds.cooldowns.Reset(entry)
	return core.Ok()
}
