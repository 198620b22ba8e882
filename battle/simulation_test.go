package battle

import (
	"errors"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tibiame-combat/core"
	"tibiame-combat/data"
	"tibiame-combat/ecs/component"
	"tibiame-combat/ecs/entity"
	"tibiame-combat/ecs/system"
	"tibiame-combat/event"

	"github.com/jakecoffman/cp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yohamta/donburi"
)

const dt = 1.0 / 60

var dummy = data.EnemyTemplate{ID: "dummy", Name: "Dummy", MaxHealth: 100, Defense: 10, Mode: core.AIModePassive}

func quietLog() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type options func(*Options)

func newSim(t *testing.T, mutate func(cfg *data.Config), opts ...options) *Simulation {
	t.Helper()
	cfg := data.DefaultConfig()
	cfg.Turn.Enabled = false
	cfg.Regen.Enabled = false
	cfg.Combat.AutoAttack = false
	if mutate != nil {
		mutate(&cfg)
	}
	o := Options{
		Config: cfg,
		Rand:   rand.New(rand.NewSource(1)),
		Logger: quietLog(),
	}
	for _, fn := range opts {
		fn(&o)
	}
	s, err := New(o)
	require.NoError(t, err)
	s.Bus().Record()
	return s
}

func entry(s *Simulation, e donburi.Entity) *donburi.Entry {
	return s.World().Entry(e)
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

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := data.DefaultConfig()
	cfg.Combat.CriticalChance = 2
	_, err := New(Options{Config: cfg, Logger: quietLog()})
	assert.ErrorContains(t, err, "critical_chance")

	cfg = data.DefaultConfig()
	skill := cfg.Skills[core.SkillPower]
	skill.Formula = "damage := ("
	cfg.Skills[core.SkillPower] = skill
	_, err = New(Options{Config: cfg, Logger: quietLog()})
	assert.ErrorContains(t, err, "power_attack")
}

func TestNew_WithShippedAssets(t *testing.T) {
	const path = "../assets/configs/combat.yaml"
	cfg, err := data.LoadConfig(path)
	require.NoError(t, err)
	bestiary, err := data.LoadBestiary(data.ResolveAssetPath(path, cfg.Bestiary))
	require.NoError(t, err)

	s, err := New(Options{Config: cfg, Bestiary: bestiary, Logger: quietLog()})
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, "Hero", component.IdentityComponent.Get(entry(s, s.Player())).Name)

	orc, err := s.SpawnEnemy("orc", 3, cp.Vector{X: 8})
	require.NoError(t, err)
	base := bestiary["orc"]
	assert.Greater(t, component.StatsComponent.Get(entry(s, orc)).MaxHealth, base.MaxHealth)

	_, err = s.SpawnEnemy("dragon", 1, cp.Vector{})
	assert.True(t, errors.Is(err, ErrUnknownTemplate))

	for i := 0; i < 30; i++ {
		s.Tick(dt)
	}
	assert.InDelta(t, 0.5, s.Elapsed(), 1e-9)
}

// 攻撃力50、防御力10、体力100、クリティカルなし
func TestScenario_BasicAttackDamageRange(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		s := newSim(t, func(cfg *data.Config) {
			cfg.Player.Attack = 50
			cfg.Combat.CriticalChance = 0
		}, func(o *Options) { o.Rand = rand.New(rand.NewSource(seed)) })
		e := s.SpawnEnemyTemplate(dummy, cp.Vector{X: 1})
		require.True(t, s.RequestTarget(e).Ok())

		res := s.RequestAttack()
		require.True(t, res.Outcome.Ok(), res.Outcome.String())
		assert.False(t, res.Damage.IsCritical)
		assert.GreaterOrEqual(t, res.Damage.Amount, 36)
		assert.LessOrEqual(t, res.Damage.Amount, 54)
		assert.Equal(t, 100-res.Damage.Amount, component.StatsComponent.Get(entry(s, e)).CurrentHealth)
	}
}

func TestScenario_LethalHit(t *testing.T) {
	s := newSim(t, func(cfg *data.Config) { cfg.Player.Attack = 50 })
	tpl := dummy
	tpl.MaxHealth = 10
	e := s.SpawnEnemyTemplate(tpl, cp.Vector{X: 1})
	require.True(t, s.RequestTarget(e).Ok())
	s.SpawnEnemyTemplate(dummy, cp.Vector{X: 3})
	s.Bus().Drain()

	res := s.RequestAttack()
	require.True(t, res.Outcome.Ok())
	assert.True(t, res.Killed)

	died := eventsOf[event.ActorDiedGameEvent](s.Bus().Drain())
	require.Len(t, died, 1)
	assert.Equal(t, e, died[0].Actor)
	assert.Equal(t, core.AIStateDead, component.AIComponent.Get(entry(s, e)).State())

	_, ok := s.CurrentTarget()
	assert.False(t, ok)
	_, ok = s.TargetOf(e)
	assert.False(t, ok)

	assert.Equal(t, core.ReasonNoTarget, s.RequestAttack().Outcome.Reason)
	assert.Equal(t, core.ReasonTargetDead, s.RequestTarget(e).Reason)
	assert.Empty(t, eventsOf[event.ActorDiedGameEvent](s.Bus().Drain()))

	s.Tick(0.2)
	_, ok = entity.Lookup(s.World(), e)
	assert.False(t, ok, "removed after the destroy delay")
}

func TestProgress_KillRewardsLevelUp(t *testing.T) {
	s := newSim(t, func(cfg *data.Config) { cfg.Player.Attack = 50 })
	assert.Equal(t, 1, s.Progress().Level)

	tpl := dummy
	tpl.MaxHealth = 10
	tpl.ExperienceReward = 100
	tpl.GoldReward = 3
	e := s.SpawnEnemyTemplate(tpl, cp.Vector{X: 1})
	require.True(t, s.RequestTarget(e).Ok())
	require.True(t, s.RequestAttack().Killed)

	prog := s.Progress()
	assert.Equal(t, 2, prog.Level)
	assert.Zero(t, prog.Experience)
	assert.Equal(t, 3, prog.Gold)
	assert.Len(t, eventsOf[event.LevelUpGameEvent](s.Bus().Drain()), 1)
}

func TestScenario_QuickAttackWithoutMana(t *testing.T) {
	s := newSim(t, nil)
	e := s.SpawnEnemyTemplate(dummy, cp.Vector{X: 1})
	require.True(t, s.RequestTarget(e).Ok())
	player := entry(s, s.Player())
	component.StatsComponent.Get(player).CurrentMana = 5
	s.Bus().Drain()

	res := s.RequestSkill(core.SkillQuick)
	assert.Equal(t, core.ReasonInsufficientMana, res.Outcome.Reason)
	assert.Equal(t, 5, component.StatsComponent.Get(player).CurrentMana)
	assert.True(t, system.Ready(player))
	assert.Equal(t, 100, component.StatsComponent.Get(entry(s, e)).CurrentHealth)
	assert.Empty(t, eventsOf[event.DamageDealtGameEvent](s.Bus().Drain()))
}

func TestScenario_EnemyActsFirstInTurnMode(t *testing.T) {
	s := newSim(t, func(cfg *data.Config) { cfg.Turn.Enabled = true })
	e := s.SpawnEnemyTemplate(dummy, cp.Vector{X: 1})
	require.True(t, s.RequestTarget(e).Ok())
	s.Bus().Drain()

	s.Tick(dt)
	assert.Equal(t, core.TurnPhaseEnemyTurn, s.Phase())
	turns := eventsOf[event.TurnChangedGameEvent](s.Bus().Drain())
	require.NotEmpty(t, turns)
	assert.Equal(t, e, turns[0].Who)

	assert.Equal(t, core.ReasonTurnLocked, s.RequestAttack().Outcome.Reason)
	assert.Equal(t, core.ReasonInputSuspended, s.MovePlayer(cp.Vector{X: 1}).Reason)
	assert.Equal(t, core.ReasonInputSuspended, s.ClearTarget().Reason)
	assert.Equal(t, core.ReasonInputSuspended, s.CycleTarget().Reason)
}

func TestScenario_RetargetOrder(t *testing.T) {
	s := newSim(t, nil)
	a := s.SpawnEnemyTemplate(dummy, cp.Vector{X: 2})
	b := s.SpawnEnemyTemplate(dummy, cp.Vector{X: -2})
	require.True(t, s.RequestTarget(a).Ok())
	s.Bus().Drain()

	require.True(t, s.RequestTarget(b).Ok())
	evs := s.Bus().Drain()
	require.Len(t, evs, 2)
	assert.Equal(t, event.TargetDeselectedGameEvent{Source: s.Player(), Target: a}, evs[0])
	assert.Equal(t, event.TargetSelectedGameEvent{Source: s.Player(), Target: b}, evs[1])
	assert.Equal(t, []donburi.Entity{s.Player()}, s.Targeters(b))
}

func TestMovePlayer(t *testing.T) {
	s := newSim(t, nil)
	require.True(t, s.MovePlayer(cp.Vector{X: 10}).Ok())
	s.Tick(0.5)
	pos := entity.Position(entry(s, s.Player()))
	assert.InDelta(t, 1.5, pos.X, 1e-6, "normalized direction times move speed")

	s.Tick(0.5)
	assert.InDelta(t, 1.5, entity.Position(entry(s, s.Player())).X, 1e-6, "movement lasts one tick")
}

func TestRevivePlayer(t *testing.T) {
	s := newSim(t, nil)
	assert.False(t, s.RevivePlayer().Ok())

	brute := dummy
	brute.Mode = core.AIModeAggressive
	brute.Attack = 1000
	s.SpawnEnemyTemplate(brute, cp.Vector{X: 1})
	for i := 0; i < 10; i++ {
		s.Tick(dt)
	}
	player := entry(s, s.Player())
	require.False(t, entity.IsAlive(player))
	assert.Equal(t, core.ReasonAttackerDead, s.MovePlayer(cp.Vector{X: 1}).Reason)

	require.True(t, s.RevivePlayer().Ok())
	assert.True(t, entity.IsAlive(player))
}

func TestNotifyEquipmentChanged(t *testing.T) {
	equipment := system.StaticEquipment{}
	s := newSim(t, nil, func(o *Options) { o.Equipment = equipment })
	player := entry(s, s.Player())
	base := component.StatsComponent.Get(player).TotalDefense

	equipment.Set(s.Player(), core.EquipmentBonus{Defense: 7})
	assert.Equal(t, base, component.StatsComponent.Get(player).TotalDefense, "pull-based: nothing changes until notified")
	s.NotifyEquipmentChanged(s.Player())
	assert.Equal(t, base+7, component.StatsComponent.Get(player).TotalDefense)
}

func TestApplyConfig(t *testing.T) {
	s := newSim(t, nil)
	player := entry(s, s.Player())

	bad := s.Config()
	bad.Combat.AttackRange = -1
	assert.Error(t, s.ApplyConfig(bad))
	assert.Equal(t, 1.5, s.Config().Combat.AttackRange)

	good := s.Config()
	good.Combat.AttackRange = 2.5
	good.Turn.CombatStartRange = 3
	require.NoError(t, s.ApplyConfig(good))
	assert.Equal(t, 2.5, s.Config().Combat.AttackRange)
	assert.Equal(t, 2.5, component.CombatComponent.Get(player).AttackRange)

	mismatched := s.Config()
	mismatched.Combat.AttackRange = 4
	assert.ErrorContains(t, s.ApplyConfig(mismatched), "combat_start_range")
	assert.Equal(t, 2.5, s.Config().Combat.AttackRange)
}

func TestWatchConfig_AppliesBetweenTicks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "combat.yaml")
	require.NoError(t, os.WriteFile(path, []byte("combat:\n  attack_range: 1.5\n"), 0o644))

	s := newSim(t, nil)
	require.NoError(t, s.WatchConfig(path))
	defer s.Close()
	assert.Error(t, s.WatchConfig(path))

	require.NoError(t, os.WriteFile(path, []byte("combat:\n  attack_range: 1.9\nregen:\n  enabled: false\n"), 0o644))

	deadline := time.Now().Add(5 * time.Second)
	for s.Config().Combat.AttackRange != 1.9 && time.Now().Before(deadline) {
		s.Tick(dt)
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, 1.9, s.Config().Combat.AttackRange)
}

// 任意の操作の後でも、ティック終了時のターゲットは生存していて最大距離以内にいる
func TestTick_TargetInvariantHolds(t *testing.T) {
	const path = "../assets/configs/bestiary.yaml"
	bestiary, err := data.LoadBestiary(path)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(42))
	s := newSim(t, func(cfg *data.Config) {
		cfg.Combat.AutoAttack = true
		cfg.Regen.Enabled = true
	}, func(o *Options) {
		o.Bestiary = bestiary
		o.Rand = rand.New(rand.NewSource(7))
	})
	for i, id := range bestiary.IDs() {
		for j := 0; j < 2; j++ {
			pos := cp.Vector{X: float64(i*3 - 4), Y: float64(j*6 - 3)}
			_, err := s.SpawnEnemy(id, 1+j, pos)
			require.NoError(t, err)
		}
	}

	maxDist := s.Config().Targeting.MaxTargetDistance
	for tick := 0; tick < 1200; tick++ {
		switch rng.Intn(10) {
		case 0:
			s.CycleTarget()
		case 1:
			s.RequestAttack()
		case 2:
			s.RequestSkill(core.SkillQuick)
		case 3:
			s.ClearTarget()
		case 4:
			s.RevivePlayer()
		default:
			s.MovePlayer(cp.Vector{X: rng.Float64()*2 - 1, Y: rng.Float64()*2 - 1})
		}
		s.Tick(dt)

		for _, actor := range entity.Actors(s.World()) {
			target, ok := s.TargetOf(actor.Entity())
			if !ok {
				continue
			}
			tgt, valid := entity.Lookup(s.World(), target)
			require.True(t, valid, "tick %d: link to a removed actor", tick)
			require.True(t, entity.IsAlive(tgt), "tick %d: link to a dead actor", tick)
			require.True(t, entity.IsAlive(actor), "tick %d: dead actor keeps a link", tick)
			require.LessOrEqual(t, entity.Distance(actor, tgt), maxDist, "tick %d", tick)
		}
	}
}
