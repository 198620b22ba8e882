package system

import (
	"math"
	"testing"

	"tibiame-combat/core"
	"tibiame-combat/data"
	"tibiame-combat/ecs/component"
	"tibiame-combat/ecs/entity"
	"tibiame-combat/event"

	"github.com/jakecoffman/cp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yohamta/donburi"
)

var aggressiveDummy = data.EnemyTemplate{ID: "orc", MaxHealth: 100, Attack: 12, Mode: core.AIModeAggressive}

func stateOf(e *donburi.Entry) core.AIState {
	return component.AIComponent.Get(e).State()
}

func TestAI_AggressiveChasesAndAttacks(t *testing.T) {
	r := newRig(t, nil)
	p := r.spawnPlayer(cp.Vector{})
	e := r.spawnEnemy(aggressiveDummy, cp.Vector{X: 4})

	r.tick(0.1)
	assert.Equal(t, core.AIStateChase, stateOf(e))
	cur, ok := r.targeting.CurrentTarget(e.Entity())
	require.True(t, ok)
	assert.Equal(t, p.Entity(), cur)

	r.run(3, 0.1)
	assert.Equal(t, core.AIStateAttack, stateOf(e))
	assert.LessOrEqual(t, entity.Distance(e, p), 1.5)

	pStats := component.StatsComponent.Get(p)
	assert.Less(t, pStats.CurrentHealth, pStats.MaxHealth)
	// 攻撃されたプレイヤーは攻撃者を自動でターゲットにし、自動攻撃する
	cur, ok = r.targeting.CurrentTarget(p.Entity())
	require.True(t, ok)
	assert.Equal(t, e.Entity(), cur)
	assert.Less(t, component.StatsComponent.Get(e).CurrentHealth, 100)
}

func TestAI_PassiveNeverEngages(t *testing.T) {
	r := newRig(t, func(cfg *data.Config) { cfg.Combat.AutoAttack = false })
	p := r.spawnPlayer(cp.Vector{})
	e := r.spawnEnemy(passiveDummy, cp.Vector{X: 1})

	r.run(1, 0.1)
	assert.Equal(t, core.AIStateIdle, stateOf(e))

	require.True(t, r.targeting.SelectTarget(p.Entity(), e.Entity()).Ok())
	require.True(t, r.engagement.PerformAttack().Outcome.Ok())
	assert.True(t, component.AIComponent.Get(e).Provoked)

	r.run(2, 0.1)
	assert.Equal(t, core.AIStateIdle, stateOf(e))
	pStats := component.StatsComponent.Get(p)
	assert.Equal(t, pStats.MaxHealth, pStats.CurrentHealth)
}

func TestAI_DefensiveWaitsForProvocation(t *testing.T) {
	r := newRig(t, func(cfg *data.Config) { cfg.Combat.AutoAttack = false })
	p := r.spawnPlayer(cp.Vector{})
	tpl := aggressiveDummy
	tpl.Mode = core.AIModeDefensive
	e := r.spawnEnemy(tpl, cp.Vector{X: 1.2})

	r.ai.Update(0.1)
	assert.Equal(t, core.AIStateIdle, stateOf(e), "detection alone does not provoke")

	require.True(t, r.targeting.SelectTarget(p.Entity(), e.Entity()).Ok())
	require.True(t, r.engagement.PerformAttack().Outcome.Ok())
	assert.Equal(t, core.AIStateChase, stateOf(e))

	r.ai.Update(0.1)
	assert.Equal(t, core.AIStateAttack, stateOf(e))
}

func TestAI_PatrolsAroundOrigin(t *testing.T) {
	r := newRig(t, nil)
	// 巡回開始判定、角度(π/2)、半径(0.99×3)、再抽選までの時間(3秒)
	r.rand.set(0.005, 0.25, 0.99, 0)
	e := r.spawnEnemy(aggressiveDummy, cp.Vector{})

	r.tick(0.1)
	require.Equal(t, core.AIStatePatrol, stateOf(e))
	ai := component.AIComponent.Get(e)
	assert.True(t, ai.HasWaypoint)
	assert.InDelta(t, 0, ai.Waypoint.X, 1e-9)
	assert.InDelta(t, 2.97, ai.Waypoint.Y, 1e-9)

	r.run(2, 0.1)
	assert.Greater(t, entity.Position(e).Y, 2.4)

	var transitions []core.AIState
	for _, ev := range eventsOf[event.AIStateChangedGameEvent](r.events()) {
		transitions = append(transitions, ev.To)
	}
	require.GreaterOrEqual(t, len(transitions), 2)
	assert.Equal(t, []core.AIState{core.AIStatePatrol, core.AIStateIdle}, transitions[:2])
}

func TestAI_LosesThreatBeyondStopDistance(t *testing.T) {
	r := newRig(t, nil)
	p := r.spawnPlayer(cp.Vector{})
	e := r.spawnEnemy(aggressiveDummy, cp.Vector{X: 4})
	r.tick(0.1)
	require.Equal(t, core.AIStateChase, stateOf(e))
	r.events()

	r.physics.Teleport(p, cp.Vector{X: 30})
	r.tick(0.1)

	assert.Equal(t, core.AIStateIdle, stateOf(e))
	assert.Equal(t, donburi.Null, component.AIComponent.Get(e).Threat)
	lost := eventsOf[event.TargetLostGameEvent](r.events())
	require.Len(t, lost, 1)
	assert.Equal(t, e.Entity(), lost[0].Source)
	assert.Equal(t, p.Entity(), lost[0].Target)
	assert.False(t, r.targeting.HasTarget(e.Entity()))
}

func TestAI_FleeRetreatsUntilCalm(t *testing.T) {
	r := newRig(t, nil)
	p := r.spawnPlayer(cp.Vector{})
	e := r.spawnEnemy(aggressiveDummy, cp.Vector{X: 4})
	r.tick(0.1)
	r.events()

	require.True(t, r.ai.Flee(e))
	assert.Equal(t, core.AIStateRetreat, stateOf(e))

	r.run(1.5, 0.1)
	assert.Greater(t, entity.Distance(e, p), 5.0)
	assert.Equal(t, core.AIStateIdle, stateOf(e))
}

func TestAI_FleesBelowHealthThreshold(t *testing.T) {
	r := newRig(t, nil)
	p := r.spawnPlayer(cp.Vector{})
	tpl := aggressiveDummy
	tpl.FleeHealthRatio = 0.3
	e := r.spawnEnemy(tpl, cp.Vector{X: 4})

	r.tick(0.1)
	require.Equal(t, core.AIStateChase, stateOf(e))

	component.StatsComponent.Get(e).TakeDamage(60)
	r.tick(0.1)
	assert.Equal(t, core.AIStateChase, stateOf(e), "40% health is above the threshold")

	component.StatsComponent.Get(e).TakeDamage(20)
	r.tick(0.1)
	assert.Equal(t, core.AIStateRetreat, stateOf(e))
	before := entity.Distance(e, p)
	r.run(0.5, 0.1)
	assert.Greater(t, entity.Distance(e, p), before)

	var flee []event.AIStateChangedGameEvent
	for _, ev := range eventsOf[event.AIStateChangedGameEvent](r.events()) {
		if ev.To == core.AIStateRetreat {
			flee = append(flee, ev)
		}
	}
	require.Len(t, flee, 1)
	assert.Equal(t, core.AIStateChase, flee[0].From)
}

func TestAI_DeadEnemiesStayPut(t *testing.T) {
	r := newRig(t, nil)
	p := r.spawnPlayer(cp.Vector{})
	e := r.spawnEnemy(aggressiveDummy, cp.Vector{X: 3})
	r.death.Kill(e, p.Entity())

	assert.Equal(t, core.AIStateDead, stateOf(e))
	assert.False(t, r.ai.Flee(e))
	r.ai.Update(0.1)
	r.physics.Step(0.1)
	assert.InDelta(t, 3, entity.Position(e).X, 1e-9)
	assert.True(t, math.IsInf(component.CooldownComponent.Get(e).Remaining, 1))
}
