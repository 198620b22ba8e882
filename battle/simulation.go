package battle

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"tibiame-combat/core"
	"tibiame-combat/data"
	"tibiame-combat/ecs/component"
	"tibiame-combat/ecs/entity"
	"tibiame-combat/ecs/system"
	"tibiame-combat/event"

	"github.com/jakecoffman/cp"
	"github.com/sirupsen/logrus"
	"github.com/yohamta/donburi"
)

// ErrUnknownTemplate は図鑑に存在しない敵テンプレートが指定された場合のエラーです。
var ErrUnknownTemplate = errors.New("unknown enemy template")

// Options は Simulation の生成パラメータです。ゼロ値のフィールドには既定値が使われます。
type Options struct {
	Config         data.Config
	Bestiary       data.Bestiary
	Rand           system.RandomSource
	Logger         *logrus.Logger
	Equipment      system.EquipmentProvider
	PlayerPosition cp.Vector
}

// Simulation は戦闘コアの全システムを結線し、決まった順序で1ティックずつ進めます。
// UI からの操作はこの型のメソッドだけを経由します。ティックループ専用で、ゴルーチン間で共有しません。
type Simulation struct {
	world    donburi.World
	config   *data.Config
	bestiary data.Bestiary
	bus      *event.Bus
	log      *logrus.Logger
	logger   *data.BattleLoggerImpl

	scheduler  *system.Scheduler
	physics    *system.PhysicsSystem
	cooldowns  *system.CooldownSystem
	formulas   *system.FormulaEngine
	resolver   *system.DamageResolver
	targeting  *system.TargetingService
	death      *system.DeathSystem
	refresher  *system.StatRefresher
	engagement *system.EngagementCoordinator
	ai         *system.AISystem
	turn       *system.TurnSequencer
	regen      *system.RegenerationSystem
	progress   *system.ProgressionSystem

	player  donburi.Entity
	watcher *data.ConfigWatcher
}

// New は設定を検証し、ワールドとプレイヤーを生成して Simulation を返します。
func New(opts Options) (*Simulation, error) {
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	formulas := system.NewFormulaEngine()
	if err := compileFormulas(formulas, cfg); err != nil {
		return nil, err
	}

	r := opts.Rand
	if r == nil {
		r = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	log := opts.Logger
	if log == nil {
		log = data.Log
	}
	bestiary := opts.Bestiary
	if bestiary == nil {
		bestiary = data.Bestiary{}
	}

	s := &Simulation{
		world:     donburi.NewWorld(),
		config:    &cfg,
		bestiary:  bestiary,
		bus:       event.NewBus(),
		log:       log,
		logger:    data.NewBattleLogger(log),
		scheduler: system.NewScheduler(),
		formulas:  formulas,
	}
	entity.EnsureWorldState(s.world)

	s.physics = system.NewPhysicsSystem(s.world, s.config)
	s.cooldowns = system.NewCooldownSystem(s.world)
	s.resolver = system.NewDamageResolver(s.config, r, s.formulas, s.logger)
	s.targeting = system.NewTargetingService(s.world, s.config, s.bus, s.logger)
	s.death = system.NewDeathSystem(s.world, s.config, s.bus, s.scheduler, s.physics, s.cooldowns, s.logger)
	s.refresher = system.NewStatRefresher(opts.Equipment)
	s.engagement = system.NewEngagementCoordinator(s.world, s.config, s.bus, s.resolver, s.targeting, s.death, s.cooldowns, s.refresher, s.logger)
	s.ai = system.NewAISystem(s.world, s.config, r, s.bus, s.targeting, s.engagement, s.physics, s.logger)
	s.turn = system.NewTurnSequencer(s.world, s.config, s.bus, s.scheduler, s.targeting, s.engagement, s.physics, s.refresher, s.logger)
	s.regen = system.NewRegenerationSystem(s.world, s.config)
	s.progress = system.NewProgressionSystem(s.world, s.config, s.bus, s.logger)
	s.engagement.SetTurnGate(s.turn)
	s.ai.SetTurnGate(s.turn)

	player := entity.SpawnPlayer(s.world, cfg, opts.PlayerPosition)
	s.player = player.Entity()
	s.refresher.Refresh(player)
	s.physics.Sync()
	return s, nil
}

func compileFormulas(fe *system.FormulaEngine, cfg data.Config) error {
	var errs []error
	for id, skill := range cfg.Skills {
		if skill.Formula == "" {
			continue
		}
		if _, err := fe.Compile(skill.Formula); err != nil {
			errs = append(errs, fmt.Errorf("skills.%s.formula: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// Tick は dt 秒分シミュレーションを進めます。
func (s *Simulation) Tick(dt float64) {
	s.drainReloads()

	s.physics.Sync()
	s.targeting.Validate()
	s.cooldowns.Update(dt)
	s.scheduler.Advance(dt)
	s.turn.Update(dt)
	s.ai.Update(dt)
	s.engagement.Update()
	s.regen.Update(dt)
	s.physics.Step(dt)
	s.targeting.Validate()

	entity.GetWorldState(s.world).Elapsed += dt
}

// --- UI からの操作 ---

// RequestAttack はプレイヤーの通常攻撃を要求します。
func (s *Simulation) RequestAttack() component.ActionResult {
	return s.engagement.PerformAttack()
}

// RequestSkill はプレイヤーのスキル使用を要求します。
func (s *Simulation) RequestSkill(id core.SkillID) component.ActionResult {
	return s.engagement.UseSkill(id)
}

// RequestTarget はプレイヤーのターゲットを candidate に変更します。
func (s *Simulation) RequestTarget(candidate donburi.Entity) core.Outcome {
	if s.turn.Active() {
		return core.Reject(core.ReasonInputSuspended)
	}
	return s.targeting.SelectTarget(s.player, candidate)
}

// CycleTarget は次の敵をターゲットにします。
func (s *Simulation) CycleTarget() core.Outcome {
	if s.turn.Active() {
		return core.Reject(core.ReasonInputSuspended)
	}
	return s.targeting.CycleNextTarget(s.player)
}

// ClearTarget はプレイヤーのターゲットを解除します。
func (s *Simulation) ClearTarget() core.Outcome {
	if s.turn.Active() {
		return core.Reject(core.ReasonInputSuspended)
	}
	return s.targeting.DeselectTarget(s.player)
}

// MovePlayer は次の物理ステップでのプレイヤーの移動方向を設定します。dir は正規化されます。
// ターン制セッション中は移動を受け付けません。
func (s *Simulation) MovePlayer(dir cp.Vector) core.Outcome {
	player, ok := entity.Lookup(s.world, s.player)
	if !ok {
		return core.Reject(core.ReasonStaleReference)
	}
	if !entity.IsAlive(player) {
		return core.Reject(core.ReasonAttackerDead)
	}
	if s.turn.Active() {
		return core.Reject(core.ReasonInputSuspended)
	}
	if dir.Length() < 1e-9 {
		s.physics.Stop(player)
		return core.Ok()
	}
	s.physics.SetVelocity(player, dir.Normalize().Mult(s.config.Player.MoveSpeed))
	return core.Ok()
}

// NotifyEquipmentChanged は装備の変更を通知し、アクターのステータスを再計算させます。
func (s *Simulation) NotifyEquipmentChanged(actor donburi.Entity) {
	if e, ok := entity.Lookup(s.world, actor); ok {
		s.refresher.Refresh(e)
	}
}

// SpawnEnemy は図鑑のテンプレートからレベルを指定して敵を生成します。
func (s *Simulation) SpawnEnemy(templateID string, level int, pos cp.Vector) (donburi.Entity, error) {
	tpl, ok := s.bestiary[templateID]
	if !ok {
		return donburi.Null, fmt.Errorf("%w: %q", ErrUnknownTemplate, templateID)
	}
	if level > 0 {
		tpl = tpl.ScaleToLevel(level)
	}
	return s.SpawnEnemyTemplate(tpl, pos), nil
}

// SpawnEnemyTemplate はテンプレートをそのまま使って敵を生成します。
func (s *Simulation) SpawnEnemyTemplate(tpl data.EnemyTemplate, pos cp.Vector) donburi.Entity {
	e := entity.SpawnEnemy(s.world, tpl, *s.config, pos)
	s.refresher.Refresh(e)
	s.physics.Sync()
	return e.Entity()
}

// RevivePlayer は死亡したプレイヤーを全回復させて復活させます。
func (s *Simulation) RevivePlayer() core.Outcome {
	player, ok := entity.Lookup(s.world, s.player)
	if !ok {
		return core.Reject(core.ReasonStaleReference)
	}
	return s.death.Revive(player)
}

// ApplyConfig は検証済みの設定に置き換えます。プレイヤーの戦闘パラメータも更新します。
// 生成済みの敵はテンプレートの値を保持します。
func (s *Simulation) ApplyConfig(cfg data.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := compileFormulas(s.formulas, cfg); err != nil {
		return err
	}
	*s.config = cfg
	if player, ok := entity.Lookup(s.world, s.player); ok {
		c := component.CombatComponent.Get(player)
		c.AttackRange = cfg.Combat.AttackRange
		c.AttackCooldown = cfg.Combat.AttackCooldown
		c.CriticalChance = cfg.Combat.CriticalChance
		c.CriticalMultiplier = cfg.Combat.CriticalMultiplier
	}
	s.log.Info("設定を適用しました")
	return nil
}

// WatchConfig は設定ファイルの監視を開始します。変更はティックの先頭で適用されます。
func (s *Simulation) WatchConfig(path string) error {
	if s.watcher != nil {
		return errors.New("config is already watched")
	}
	w, err := data.WatchConfig(path)
	if err != nil {
		return err
	}
	s.watcher = w
	return nil
}

func (s *Simulation) drainReloads() {
	if s.watcher == nil {
		return
	}
	for {
		select {
		case cfg := <-s.watcher.Updates():
			if err := s.ApplyConfig(cfg); err != nil {
				s.logger.LogWarning("再読み込みした設定を適用できませんでした", map[string]any{"error": err.Error()})
			}
		default:
			return
		}
	}
}

// Close は設定の監視を停止します。
func (s *Simulation) Close() error {
	if s.watcher == nil {
		return nil
	}
	err := s.watcher.Close()
	s.watcher = nil
	return err
}

// --- 参照用 ---

// World は donburi のワールドを返します。描画側は読み取りにだけ使います。
func (s *Simulation) World() donburi.World {
	return s.world
}

// Bus はイベントバスを返します。
func (s *Simulation) Bus() *event.Bus {
	return s.bus
}

// Player はプレイヤーのエンティティを返します。
func (s *Simulation) Player() donburi.Entity {
	return s.player
}

// Config は現在の設定を返します。
func (s *Simulation) Config() data.Config {
	return *s.config
}

// Phase はターン制セッションの段階を返します。
func (s *Simulation) Phase() core.TurnPhase {
	return s.turn.Phase()
}

// Round はターン制セッションのラウンド数を返します。
func (s *Simulation) Round() int {
	return s.turn.Round()
}

// CurrentTarget はプレイヤーの現在のターゲットを返します。
func (s *Simulation) CurrentTarget() (donburi.Entity, bool) {
	return s.targeting.CurrentTarget(s.player)
}

// TargetOf は任意のアクターの現在のターゲットを返します。
func (s *Simulation) TargetOf(source donburi.Entity) (donburi.Entity, bool) {
	return s.targeting.CurrentTarget(source)
}

// Targeters は actor をターゲットにしているアクターを返します。
func (s *Simulation) Targeters(actor donburi.Entity) []donburi.Entity {
	return s.targeting.Targeters(actor)
}

// Elapsed はシミュレーションの経過時間(秒)を返します。
func (s *Simulation) Elapsed() float64 {
	return entity.GetWorldState(s.world).Elapsed
}

// Progress はプレイヤーのレベルと経験値を返します。
func (s *Simulation) Progress() component.Progress {
	if e, ok := entity.Lookup(s.world, s.player); ok {
		return *component.ProgressComponent.Get(e)
	}
	return component.Progress{}
}
