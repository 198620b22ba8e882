package system

import (
	"io"
	"testing"

	"tibiame-combat/data"
	"tibiame-combat/ecs/entity"
	"tibiame-combat/event"

	"github.com/jakecoffman/cp"
	"github.com/sirupsen/logrus"
	"github.com/yohamta/donburi"
)

// fixedRand は指定した値を順に返す乱数源です。値が尽きたら先頭に戻ります。値がなければ0.5を返します。
type fixedRand struct {
	values []float64
	i      int
}

func (r *fixedRand) Float64() float64 {
	if len(r.values) == 0 {
		return 0.5
	}
	v := r.values[r.i%len(r.values)]
	r.i++
	return v
}

func (r *fixedRand) set(values ...float64) {
	r.values = values
	r.i = 0
}

func quietLogger() *data.BattleLoggerImpl {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return data.NewBattleLogger(l)
}

type rig struct {
	world      donburi.World
	cfg        *data.Config
	rand       *fixedRand
	bus        *event.Bus
	scheduler  *Scheduler
	physics    *PhysicsSystem
	cooldowns  *CooldownSystem
	resolver   *DamageResolver
	targeting  *TargetingService
	death      *DeathSystem
	engagement *EngagementCoordinator
	ai         *AISystem
	turn       *TurnSequencer
	regen      *RegenerationSystem
	progress   *ProgressionSystem
	refresher  *StatRefresher
	equipment  StaticEquipment
}

// newRig は全システムを結線したテスト用の環境を作ります。既定ではターン制と自然回復は無効です。
func newRig(t *testing.T, mutate func(cfg *data.Config)) *rig {
	t.Helper()
	cfg := data.DefaultConfig()
	cfg.Turn.Enabled = false
	cfg.Regen.Enabled = false
	if mutate != nil {
		mutate(&cfg)
	}

	r := &rig{
		world:     donburi.NewWorld(),
		cfg:       &cfg,
		rand:      &fixedRand{},
		bus:       event.NewBus(),
		scheduler: NewScheduler(),
		equipment: StaticEquipment{},
	}
	logger := quietLogger()
	r.bus.Record()
	r.physics = NewPhysicsSystem(r.world, r.cfg)
	r.cooldowns = NewCooldownSystem(r.world)
	r.resolver = NewDamageResolver(r.cfg, r.rand, NewFormulaEngine(), logger)
	r.targeting = NewTargetingService(r.world, r.cfg, r.bus, logger)
	r.death = NewDeathSystem(r.world, r.cfg, r.bus, r.scheduler, r.physics, r.cooldowns, logger)
	r.refresher = NewStatRefresher(r.equipment)
	r.engagement = NewEngagementCoordinator(r.world, r.cfg, r.bus, r.resolver, r.targeting, r.death, r.cooldowns, r.refresher, logger)
	r.ai = NewAISystem(r.world, r.cfg, r.rand, r.bus, r.targeting, r.engagement, r.physics, logger)
	r.turn = NewTurnSequencer(r.world, r.cfg, r.bus, r.scheduler, r.targeting, r.engagement, r.physics, r.refresher, logger)
	r.engagement.SetTurnGate(r.turn)
	r.ai.SetTurnGate(r.turn)
	r.regen = NewRegenerationSystem(r.world, r.cfg)
	r.progress = NewProgressionSystem(r.world, r.cfg, r.bus, logger)
	return r
}

func (r *rig) spawnPlayer(pos cp.Vector) *donburi.Entry {
	e := entity.SpawnPlayer(r.world, *r.cfg, pos)
	r.physics.Sync()
	return e
}

func (r *rig) spawnEnemy(tpl data.EnemyTemplate, pos cp.Vector) *donburi.Entry {
	if tpl.ID == "" {
		tpl.ID = "dummy"
	}
	if tpl.Name == "" {
		tpl.Name = tpl.ID
	}
	if tpl.MaxHealth == 0 {
		tpl.MaxHealth = 100
	}
	e := entity.SpawnEnemy(r.world, tpl, *r.cfg, pos)
	r.physics.Sync()
	return e
}

// tick はシミュレーションと同じ順序でシステムを1ティック進めます。
func (r *rig) tick(dt float64) {
	r.physics.Sync()
	r.targeting.Validate()
	r.cooldowns.Update(dt)
	r.scheduler.Advance(dt)
	r.turn.Update(dt)
	r.ai.Update(dt)
	r.engagement.Update()
	r.regen.Update(dt)
	r.physics.Step(dt)
	r.targeting.Validate()
}

func (r *rig) run(seconds, dt float64) {
	for elapsed := 0.0; elapsed < seconds-1e-9; elapsed += dt {
		r.tick(dt)
	}
}

func (r *rig) events() []event.GameEvent {
	return r.bus.Drain()
}

func eventsOf[T event.GameEvent](evs []event.GameEvent) []T {
	var out []T
	for _, ev := range evs {
		if typed, ok := ev.(T); ok {
			out = append(out, typed)
		}
	}
	return out
}
