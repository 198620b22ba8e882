package system

import (
	"context"
	"math"

	"tibiame-combat/core"
	"tibiame-combat/data"
	"tibiame-combat/ecs/component"
	"tibiame-combat/ecs/entity"
	"tibiame-combat/event"

	"github.com/jakecoffman/cp"
	"github.com/yohamta/donburi"
)

// AISystem は敵AIのステートマシンを毎ティック進めます。
// 状態遷移は looplab/fsm で管理し、遷移のたびに AIStateChanged を発行します。
type AISystem struct {
	world      donburi.World
	config     *data.Config
	rand       RandomSource
	bus        *event.Bus
	targeting  *TargetingService
	engagement *EngagementCoordinator
	spatial    SpatialProvider
	logger     BattleLogger
	turn       TurnGate
}

// NewAISystem は新しい AISystem を生成し、被ダメージイベントを購読します。
func NewAISystem(
	world donburi.World,
	config *data.Config,
	r RandomSource,
	bus *event.Bus,
	targeting *TargetingService,
	engagement *EngagementCoordinator,
	spatial SpatialProvider,
	logger BattleLogger,
) *AISystem {
	as := &AISystem{
		world:      world,
		config:     config,
		rand:       r,
		bus:        bus,
		targeting:  targeting,
		engagement: engagement,
		spatial:    spatial,
		logger:     logger,
		turn:       noTurnGate{},
	}
	event.SubscribeTo(bus, as.onDamageDealt)
	return as
}

// SetTurnGate はターン制セッションの状態を参照するためのゲートを設定します。
func (as *AISystem) SetTurnGate(g TurnGate) {
	if g == nil {
		g = noTurnGate{}
	}
	as.turn = g
}

// Update はすべての生存している敵のAIを生成順に1ステップ進めます。
func (as *AISystem) Update(dt float64) {
	player, hasPlayer := entity.FindPlayer(as.world)
	for _, enemy := range entity.Enemies(as.world) {
		if !entity.IsAlive(enemy) || component.LifeComponent.Get(enemy).Removing {
			continue
		}
		if as.turn.Engaged() && as.turn.Opponent() == enemy.Entity() {
			// 交戦中の敵はターン進行に従う
			as.spatial.Stop(enemy)
			continue
		}
		var threat *donburi.Entry
		if hasPlayer && entity.IsAlive(player) {
			threat = player
		}
		as.step(enemy, threat, dt)
	}
}

func (as *AISystem) step(enemy, threat *donburi.Entry, dt float64) {
	ai := component.AIComponent.Get(enemy)
	dist := math.Inf(1)
	if threat != nil {
		dist = entity.Distance(enemy, threat)
	}

	if as.shouldFlee(enemy, ai) {
		as.Flee(enemy)
		return
	}

	switch ai.State() {
	case core.AIStateIdle:
		as.spatial.Stop(enemy)
		if as.canDetect(ai, threat, dist) {
			as.startChase(enemy, ai, threat)
			return
		}
		if as.rand.Float64() < as.config.AI.IdleToPatrolChance {
			as.pickWaypoint(ai)
			as.transition(enemy, ai, component.AIEventWander)
		}

	case core.AIStatePatrol:
		if as.canDetect(ai, threat, dist) {
			as.startChase(enemy, ai, threat)
			return
		}
		ai.WaypointTimer -= dt
		if ai.WaypointTimer <= 0 || !ai.HasWaypoint {
			as.pickWaypoint(ai)
		}
		if entity.Position(enemy).Distance(ai.Waypoint) <= as.config.AI.WaypointTolerance {
			as.spatial.Stop(enemy)
			ai.HasWaypoint = false
			as.transition(enemy, ai, component.AIEventArrive)
			return
		}
		as.spatial.MoveToward(enemy, ai.Waypoint, ai.MoveSpeed, dt)

	case core.AIStateChase:
		if threat == nil || dist > ai.StopChaseDistance || ai.Mode == core.AIModePassive {
			as.loseThreat(enemy, ai)
			return
		}
		if dist <= ai.AttackRange {
			as.spatial.Stop(enemy)
			as.transition(enemy, ai, component.AIEventEngage)
			return
		}
		as.spatial.MoveToward(enemy, entity.Position(threat), ai.MoveSpeed, dt)

	case core.AIStateAttack:
		if threat == nil || ai.Mode == core.AIModePassive {
			as.loseThreat(enemy, ai)
			return
		}
		if dist > ai.AttackRange {
			as.transition(enemy, ai, component.AIEventPursue)
			as.spatial.MoveToward(enemy, entity.Position(threat), ai.MoveSpeed, dt)
			return
		}
		as.spatial.Stop(enemy)
		if !as.targeting.HasTarget(enemy.Entity()) {
			as.targeting.SelectTarget(enemy.Entity(), threat.Entity())
		}
		// ターン制セッション中(終了後の待機を含む)は自由攻撃を行わない
		if !as.turn.Active() && Ready(enemy) {
			as.engagement.EnemyAttack(enemy, false)
		}

	case core.AIStateRetreat:
		if threat == nil || dist > ai.DetectionRange {
			as.spatial.Stop(enemy)
			as.transition(enemy, ai, component.AIEventCalm)
			return
		}
		away := entity.Position(enemy).Sub(entity.Position(threat))
		if away.Length() < 1e-9 {
			away = cp.Vector{X: 1}
		}
		as.spatial.MoveToward(enemy, entity.Position(enemy).Add(away.Normalize().Mult(ai.MoveSpeed)), ai.MoveSpeed, dt)

	case core.AIStateDead:
		as.spatial.Stop(enemy)
	}
}

// canDetect は脅威を探知して追跡を始められるかを返します。
func (as *AISystem) canDetect(ai *component.AI, threat *donburi.Entry, dist float64) bool {
	if threat == nil {
		return false
	}
	switch ai.Mode {
	case core.AIModePassive:
		return false
	case core.AIModeDefensive:
		if !ai.Provoked {
			return false
		}
	}
	return dist <= ai.DetectionRange
}

func (as *AISystem) startChase(enemy *donburi.Entry, ai *component.AI, threat *donburi.Entry) {
	ai.Threat = threat.Entity()
	as.transition(enemy, ai, component.AIEventDetect)
	if cur, ok := as.targeting.CurrentTarget(enemy.Entity()); !ok || cur != threat.Entity() {
		as.targeting.SelectTarget(enemy.Entity(), threat.Entity())
	}
}

func (as *AISystem) loseThreat(enemy *donburi.Entry, ai *component.AI) {
	lost := ai.Threat
	ai.Threat = donburi.Null
	as.spatial.Stop(enemy)
	as.transition(enemy, ai, component.AIEventLose)
	as.targeting.DeselectTarget(enemy.Entity())
	as.bus.Publish(event.TargetLostGameEvent{Source: enemy.Entity(), Target: lost})
}

// pickWaypoint は出現地点を中心とした巡回半径内の点を選び、次の再抽選までの時間を設定します。
func (as *AISystem) pickWaypoint(ai *component.AI) {
	cfg := as.config.AI
	angle := as.rand.Float64() * 2 * math.Pi
	radius := as.rand.Float64() * cfg.PatrolRadius
	ai.Waypoint = ai.Origin.Add(cp.ForAngle(angle).Mult(radius))
	ai.HasWaypoint = true
	ai.WaypointTimer = cfg.PatrolIntervalMin + as.rand.Float64()*(cfg.PatrolIntervalMax-cfg.PatrolIntervalMin)
}

// shouldFlee は追跡・攻撃中の敵の体力が退却の閾値を下回ったかを返します。
func (as *AISystem) shouldFlee(enemy *donburi.Entry, ai *component.AI) bool {
	if ai.FleeHealthRatio <= 0 {
		return false
	}
	if st := ai.State(); st != core.AIStateChase && st != core.AIStateAttack {
		return false
	}
	return component.StatsComponent.Get(enemy).HealthRatio() < ai.FleeHealthRatio
}

// Flee は敵を退却状態にします。
func (as *AISystem) Flee(enemy *donburi.Entry) bool {
	if !entity.IsAlive(enemy) || !enemy.HasComponent(component.AIComponent) {
		return false
	}
	return as.transition(enemy, component.AIComponent.Get(enemy), component.AIEventFlee)
}

func (as *AISystem) transition(enemy *donburi.Entry, ai *component.AI, ev string) bool {
	from := ai.State()
	if !component.FireAIEvent(context.Background(), ai, ev) {
		return false
	}
	to := ai.State()
	as.logger.LogAIStateChanged(component.IdentityComponent.Get(enemy).Name, from, to)
	as.bus.Publish(event.AIStateChangedGameEvent{Actor: enemy.Entity(), From: from, To: to})
	return true
}

// onDamageDealt はダメージを受けた敵を挑発状態にし、待機・巡回中なら攻撃者の追跡を始めます。
func (as *AISystem) onDamageDealt(ev event.DamageDealtGameEvent) {
	enemy, ok := entity.Lookup(as.world, ev.Target)
	if !ok || !enemy.HasComponent(component.AIComponent) || !entity.IsAlive(enemy) {
		return
	}
	ai := component.AIComponent.Get(enemy)
	ai.Provoked = true
	if ai.Mode == core.AIModePassive {
		return
	}
	attacker, ok := entity.Lookup(as.world, ev.Attacker)
	if !ok || !entity.IsAlive(attacker) {
		return
	}
	switch ai.State() {
	case core.AIStateIdle, core.AIStatePatrol:
		as.startChase(enemy, ai, attacker)
	}
}
