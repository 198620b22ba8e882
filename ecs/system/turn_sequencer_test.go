package system

import (
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

func turnBased(cfg *data.Config) {
	cfg.Turn.Enabled = true
}

func TestTurnSequencer_AlternatesEnemyFirst(t *testing.T) {
	r := newRig(t, turnBased)
	p := r.spawnPlayer(cp.Vector{})
	tpl := aggressiveDummy
	tpl.Defense = 10
	e := r.spawnEnemy(tpl, cp.Vector{X: 1})
	require.True(t, r.targeting.SelectTarget(p.Entity(), e.Entity()).Ok())

	r.tick(0.1)
	assert.Equal(t, core.TurnPhaseEnemyTurn, r.turn.Phase())
	assert.Equal(t, 1, r.turn.Round())
	assert.Equal(t, e.Entity(), r.turn.Opponent())
	assert.Equal(t, 90, component.StatsComponent.Get(p).CurrentHealth)
	assert.Equal(t, 100, component.StatsComponent.Get(e).CurrentHealth)

	// 手番中の手動入力は拒否される
	assert.Equal(t, core.ReasonTurnLocked, r.engagement.PerformAttack().Outcome.Reason)

	r.run(1.0, 0.1)
	assert.Equal(t, core.TurnPhaseEnemyTurn, r.turn.Phase(), "settle delay has not elapsed")

	r.run(0.9, 0.1)
	assert.Equal(t, core.TurnPhasePlayerTurn, r.turn.Phase())
	assert.Equal(t, 95, component.StatsComponent.Get(e).CurrentHealth)
	assert.Equal(t, 90, component.StatsComponent.Get(p).CurrentHealth)

	r.run(1.5, 0.1)
	assert.Equal(t, core.TurnPhaseEnemyTurn, r.turn.Phase())
	assert.Equal(t, 2, r.turn.Round())
	assert.Equal(t, 80, component.StatsComponent.Get(p).CurrentHealth)

	evs := r.events()
	started := eventsOf[event.CombatStartedGameEvent](evs)
	require.Len(t, started, 1)
	assert.True(t, started[0].TurnBased)

	var order []donburi.Entity
	for _, ev := range eventsOf[event.TurnChangedGameEvent](evs) {
		order = append(order, ev.Who)
	}
	assert.Equal(t, []donburi.Entity{e.Entity(), p.Entity(), e.Entity()}, order)
}

func TestTurnSequencer_VictoryThenRescan(t *testing.T) {
	r := newRig(t, turnBased)
	p := r.spawnPlayer(cp.Vector{})
	weak := passiveDummy
	weak.MaxHealth = 5
	e := r.spawnEnemy(weak, cp.Vector{X: 1})
	next := r.spawnEnemy(passiveDummy, cp.Vector{X: -1.8})
	require.True(t, r.targeting.SelectTarget(p.Entity(), e.Entity()).Ok())

	r.tick(0.1)
	require.Equal(t, core.TurnPhaseEnemyTurn, r.turn.Phase())

	r.run(1.6, 0.1)
	assert.Equal(t, core.TurnPhaseEnded, r.turn.Phase())
	assert.Equal(t, core.CombatOutcomeVictory, r.turn.LastOutcome())
	assert.False(t, entity.IsAlive(e))
	assert.Equal(t, core.ReasonInputSuspended, r.engagement.PerformAttack().Outcome.Reason)

	ended := eventsOf[event.CombatEndedGameEvent](r.events())
	require.Len(t, ended, 1)
	assert.Equal(t, core.CombatOutcomeVictory, ended[0].Outcome)
	assert.True(t, ended[0].TurnBased)

	r.run(1.0, 0.1)
	cur, ok := r.targeting.CurrentTarget(p.Entity())
	require.True(t, ok, "the nearest remaining enemy is picked up after the session resets")
	assert.Equal(t, next.Entity(), cur)

	// 次の敵は射程外なので、プレイヤーは自動で接近してから交戦する
	r.run(1.0, 0.1)
	assert.True(t, r.turn.Engaged())
	assert.Equal(t, next.Entity(), r.turn.Opponent())
	assert.Less(t, entity.Position(p).X, -0.2)
}

func TestTurnSequencer_BystandersHoldDuringEndDelay(t *testing.T) {
	r := newRig(t, turnBased)
	p := r.spawnPlayer(cp.Vector{})
	weak := passiveDummy
	weak.MaxHealth = 5
	e := r.spawnEnemy(weak, cp.Vector{X: 1})
	r.spawnEnemy(aggressiveDummy, cp.Vector{X: -1})
	require.True(t, r.targeting.SelectTarget(p.Entity(), e.Entity()).Ok())

	r.tick(0.1)
	require.Equal(t, core.TurnPhaseEnemyTurn, r.turn.Phase())
	r.run(1.6, 0.1)
	require.Equal(t, core.TurnPhaseEnded, r.turn.Phase())

	hp := component.StatsComponent.Get(p).CurrentHealth
	r.run(0.8, 0.1)
	assert.Equal(t, core.TurnPhaseEnded, r.turn.Phase())
	assert.Equal(t, hp, component.StatsComponent.Get(p).CurrentHealth)
}

func TestTurnSequencer_Defeat(t *testing.T) {
	r := newRig(t, turnBased)
	p := r.spawnPlayer(cp.Vector{})
	brute := aggressiveDummy
	brute.Attack = 500
	e := r.spawnEnemy(brute, cp.Vector{X: 1})
	require.True(t, r.targeting.SelectTarget(p.Entity(), e.Entity()).Ok())

	r.tick(0.1)
	assert.False(t, entity.IsAlive(p))
	assert.Equal(t, core.TurnPhaseEnded, r.turn.Phase())
	assert.Equal(t, core.CombatOutcomeDefeat, r.turn.LastOutcome())

	r.run(1.5, 0.1)
	assert.Equal(t, core.TurnPhaseNone, r.turn.Phase())
	assert.False(t, r.turn.Active())
}

func TestTurnSequencer_MovesIntoRangeBeforeEngaging(t *testing.T) {
	r := newRig(t, turnBased)
	p := r.spawnPlayer(cp.Vector{})
	e := r.spawnEnemy(passiveDummy, cp.Vector{X: 1.9})
	require.True(t, r.targeting.SelectTarget(p.Entity(), e.Entity()).Ok())

	r.tick(0.1)
	assert.Equal(t, core.TurnPhaseMoving, r.turn.Phase())
	assert.Equal(t, core.ReasonInputSuspended, r.engagement.PerformAttack().Outcome.Reason)

	r.run(0.5, 0.1)
	assert.True(t, r.turn.Engaged())
	assert.Greater(t, entity.Position(p).X, 0.3)
	assert.LessOrEqual(t, entity.Distance(p, e), 1.5+1e-9)
}

func TestTurnSequencer_AbortsWhenTargetChangesWhileMoving(t *testing.T) {
	r := newRig(t, turnBased)
	p := r.spawnPlayer(cp.Vector{})
	e := r.spawnEnemy(passiveDummy, cp.Vector{X: 1.9})
	other := r.spawnEnemy(passiveDummy, cp.Vector{X: -5})
	require.True(t, r.targeting.SelectTarget(p.Entity(), e.Entity()).Ok())

	r.tick(0.1)
	require.Equal(t, core.TurnPhaseMoving, r.turn.Phase())

	require.True(t, r.targeting.SelectTarget(p.Entity(), other.Entity()).Ok())
	r.tick(0.1)
	assert.Equal(t, core.TurnPhaseNone, r.turn.Phase())
	assert.Empty(t, eventsOf[event.CombatEndedGameEvent](r.events()), "aborting before engagement is silent")
}

func TestTurnSequencer_EnemyDeathWhileMovingRescans(t *testing.T) {
	r := newRig(t, turnBased)
	p := r.spawnPlayer(cp.Vector{})
	e := r.spawnEnemy(passiveDummy, cp.Vector{X: 1.9})
	next := r.spawnEnemy(passiveDummy, cp.Vector{X: -3})
	require.True(t, r.targeting.SelectTarget(p.Entity(), e.Entity()).Ok())

	r.tick(0.1)
	require.Equal(t, core.TurnPhaseMoving, r.turn.Phase())
	r.events()

	require.True(t, r.death.Kill(e, donburi.Null))
	assert.Equal(t, core.TurnPhaseNone, r.turn.Phase())
	cur, ok := r.targeting.CurrentTarget(p.Entity())
	require.True(t, ok, "an enemy inside the extended radius is picked up")
	assert.Equal(t, next.Entity(), cur)
	assert.Empty(t, eventsOf[event.CombatEndedGameEvent](r.events()))
}

func TestTurnSequencer_AbortsWhenOpponentRemovedMidSession(t *testing.T) {
	r := newRig(t, turnBased)
	p := r.spawnPlayer(cp.Vector{})
	e := r.spawnEnemy(passiveDummy, cp.Vector{X: 1})
	require.True(t, r.targeting.SelectTarget(p.Entity(), e.Entity()).Ok())

	r.tick(0.1)
	require.True(t, r.turn.Engaged())
	r.events()

	r.physics.Remove(e)
	r.world.Remove(e.Entity())
	r.tick(0.1)

	assert.Equal(t, core.TurnPhaseNone, r.turn.Phase())
	assert.Equal(t, core.CombatOutcomeAborted, r.turn.LastOutcome())
	assert.False(t, r.scheduler.Pending(donburi.Null, turnSettleTimer))
	ended := eventsOf[event.CombatEndedGameEvent](r.events())
	require.Len(t, ended, 1)
	assert.Equal(t, core.CombatOutcomeAborted, ended[0].Outcome)
	assert.True(t, ended[0].TurnBased)
}

func TestTurnSequencer_ForceEnd(t *testing.T) {
	r := newRig(t, turnBased)
	p := r.spawnPlayer(cp.Vector{})
	e := r.spawnEnemy(passiveDummy, cp.Vector{X: 1})
	assert.False(t, r.turn.ForceEnd())

	require.True(t, r.targeting.SelectTarget(p.Entity(), e.Entity()).Ok())
	r.tick(0.1)
	require.True(t, r.turn.Engaged())

	assert.True(t, r.turn.ForceEnd())
	assert.Equal(t, core.TurnPhaseEnded, r.turn.Phase())
	assert.False(t, r.scheduler.Pending(donburi.Null, turnSettleTimer))

	hp := component.StatsComponent.Get(p).CurrentHealth
	r.run(0.9, 0.1)
	assert.Equal(t, core.TurnPhaseEnded, r.turn.Phase())
	assert.Equal(t, hp, component.StatsComponent.Get(p).CurrentHealth)
}

func TestTurnSequencer_DisabledNeverStarts(t *testing.T) {
	r := newRig(t, func(cfg *data.Config) { cfg.Combat.AutoAttack = false })
	p := r.spawnPlayer(cp.Vector{})
	e := r.spawnEnemy(passiveDummy, cp.Vector{X: 1})
	require.True(t, r.targeting.SelectTarget(p.Entity(), e.Entity()).Ok())

	r.run(1, 0.1)
	assert.Equal(t, core.TurnPhaseNone, r.turn.Phase())
	assert.True(t, r.engagement.PerformAttack().Outcome.Ok())
}
