package system

import (
	"math"

	"tibiame-combat/ecs/component"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/filter"
	"github.com/yohamta/donburi/query"
)

// CooldownSystem は攻撃クールダウンを毎ティック進めます。AIの状態とは独立して評価されます。
type CooldownSystem struct {
	world donburi.World
	query *query.Query
}

// NewCooldownSystem は新しい CooldownSystem を生成します。
func NewCooldownSystem(world donburi.World) *CooldownSystem {
	return &CooldownSystem{
		world: world,
		query: query.NewQuery(filter.Contains(component.CooldownComponent)),
	}
}

// Update はクールダウン中のアクターの残り時間を dt 秒減らします。
func (cs *CooldownSystem) Update(dt float64) {
	cs.query.Each(cs.world, func(entry *donburi.Entry) {
		cd := component.CooldownComponent.Get(entry)
		if cd.CanAttack {
			return
		}
		cd.Remaining -= dt
		if cd.Remaining <= 0 {
			cd.Remaining = 0
			cd.CanAttack = true
		}
	})
}

// Start はクールダウンを開始します。duration が0以下なら即座に攻撃可能なままです。
func (cs *CooldownSystem) Start(entry *donburi.Entry, duration float64) {
	cd := component.CooldownComponent.Get(entry)
	if duration <= 0 {
		cd.CanAttack = true
		cd.Remaining = 0
		return
	}
	cd.CanAttack = false
	cd.Remaining = duration
	cd.Duration = duration
}

// Reset はクールダウンを解除します。
func (cs *CooldownSystem) Reset(entry *donburi.Entry) {
	cd := component.CooldownComponent.Get(entry)
	cd.CanAttack = true
	cd.Remaining = 0
}

// Block は Reset されるまで攻撃できないようにします。死亡時に使います。
func (cs *CooldownSystem) Block(entry *donburi.Entry) {
	cd := component.CooldownComponent.Get(entry)
	cd.CanAttack = false
	cd.Remaining = math.Inf(1)
}

// Ready は攻撃可能かを返します。
func Ready(entry *donburi.Entry) bool {
	return component.CooldownComponent.Get(entry).CanAttack
}
