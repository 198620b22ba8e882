package system

import (
	"tibiame-combat/core"
	"tibiame-combat/data"
	"tibiame-combat/ecs/component"
	"tibiame-combat/ecs/entity"
	"tibiame-combat/event"

	"github.com/yohamta/donburi"
)

// attackOptions は攻撃1回分の解決方法を指定します。
type attackOptions struct {
	skill          core.SkillID
	ignoreCooldown bool
	ignoreRange    bool
}

// EngagementCoordinator はプレイヤーの自由戦闘(手動攻撃、スキル、自動攻撃、反撃時の自動ターゲット)と
// 敵の攻撃の解決を担当します。
type EngagementCoordinator struct {
	world     donburi.World
	config    *data.Config
	bus       *event.Bus
	resolver  *DamageResolver
	targeting *TargetingService
	death     *DeathSystem
	cooldowns *CooldownSystem
	refresher *StatRefresher
	logger    BattleLogger
	turn      TurnGate
	policy    AttackerPolicy

	inCombat   bool
	lastTarget donburi.Entity
}

// NewEngagementCoordinator は新しい EngagementCoordinator を生成します。
func NewEngagementCoordinator(
	world donburi.World,
	config *data.Config,
	bus *event.Bus,
	resolver *DamageResolver,
	targeting *TargetingService,
	death *DeathSystem,
	cooldowns *CooldownSystem,
	refresher *StatRefresher,
	logger BattleLogger,
) *EngagementCoordinator {
	return &EngagementCoordinator{
		world:      world,
		config:     config,
		bus:        bus,
		resolver:   resolver,
		targeting:  targeting,
		death:      death,
		cooldowns:  cooldowns,
		refresher:  refresher,
		logger:     logger,
		turn:       noTurnGate{},
		lastTarget: donburi.Null,
	}
}

// SetTurnGate はターン制セッションの状態を参照するためのゲートを設定します。
func (ec *EngagementCoordinator) SetTurnGate(g TurnGate) {
	if g == nil {
		g = noTurnGate{}
	}
	ec.turn = g
}

// SetAttackerPolicy は自動ターゲットの戦略を上書きします。nil の場合は設定値に従います。
func (ec *EngagementCoordinator) SetAttackerPolicy(p AttackerPolicy) {
	ec.policy = p
}

func (ec *EngagementCoordinator) attackerPolicy() AttackerPolicy {
	if ec.policy != nil {
		return ec.policy
	}
	return NewAttackerPolicy(ec.config.Combat.AutoTargetPolicy)
}

// InCombat は自由戦闘で交戦中かを返します。
func (ec *EngagementCoordinator) InCombat() bool {
	return ec.inCombat
}

// PerformAttack はプレイヤーの通常攻撃を行います。
func (ec *EngagementCoordinator) PerformAttack() component.ActionResult {
	return ec.playerAction(core.SkillBasic)
}

// QuickAttack はマナを消費する素早い攻撃を行います。クールダウンは通常の7割です。
func (ec *EngagementCoordinator) QuickAttack() component.ActionResult {
	return ec.playerAction(core.SkillQuick)
}

// PowerAttack はマナを消費する強力な攻撃を行います。専用のクールダウンを使います。
func (ec *EngagementCoordinator) PowerAttack() component.ActionResult {
	return ec.playerAction(core.SkillPower)
}

// UseSkill は ID で指定したスキルを使用します。
func (ec *EngagementCoordinator) UseSkill(id core.SkillID) component.ActionResult {
	return ec.playerAction(id)
}

func (ec *EngagementCoordinator) playerAction(skill core.SkillID) component.ActionResult {
	player, ok := entity.FindPlayer(ec.world)
	if !ok {
		return component.Rejected(donburi.Null, skill, core.ReasonStaleReference)
	}
	if ec.turn.Active() {
		reason := core.ReasonInputSuspended
		if ec.turn.Engaged() {
			reason = core.ReasonTurnLocked
		}
		ec.logger.LogActionRejected(component.IdentityComponent.Get(player).Name, string(skill), reason)
		return component.Rejected(player.Entity(), skill, reason)
	}
	return ec.attackCurrentTarget(player, attackOptions{skill: skill})
}

// TurnAttack はターン制セッションでのプレイヤーの行動です。クールダウンと射程を無視します。
func (ec *EngagementCoordinator) TurnAttack(player *donburi.Entry) component.ActionResult {
	return ec.attackCurrentTarget(player, attackOptions{skill: core.SkillBasic, ignoreCooldown: true, ignoreRange: true})
}

// EnemyAttack は敵がプレイヤーを攻撃します。ignoreCooldown はターン制セッションから呼ばれる場合に使います。
func (ec *EngagementCoordinator) EnemyAttack(enemy *donburi.Entry, ignoreCooldown bool) component.ActionResult {
	player, ok := entity.FindPlayer(ec.world)
	if !ok {
		return component.Rejected(enemy.Entity(), core.SkillBasic, core.ReasonNoTarget)
	}
	return ec.resolve(enemy, player.Entity(), attackOptions{
		skill:          core.SkillBasic,
		ignoreCooldown: ignoreCooldown,
		ignoreRange:    ignoreCooldown,
	})
}

func (ec *EngagementCoordinator) attackCurrentTarget(attacker *donburi.Entry, opts attackOptions) component.ActionResult {
	target, ok := ec.targeting.CurrentTarget(attacker.Entity())
	if !ok {
		if !entity.IsAlive(attacker) {
			return ec.reject(attacker, opts.skill, core.ReasonAttackerDead)
		}
		return ec.reject(attacker, opts.skill, core.ReasonNoTarget)
	}
	return ec.resolve(attacker, target, opts)
}

// resolve は攻撃1回分を解決します。
// ターゲットの参照は開始時に確定し、副作用を伴う各段階の後で有効性を再確認します。
// 順序: ダメージ計算 → 体力への適用 → DamageDealt → 死亡判定(ActorDied, TargetKilled) → クールダウン開始
func (ec *EngagementCoordinator) resolve(attackerEntry *donburi.Entry, target donburi.Entity, opts attackOptions) component.ActionResult {
	attacker := attackerEntry.Entity()
	if !attackerEntry.Valid() {
		return component.Rejected(attacker, opts.skill, core.ReasonStaleReference)
	}
	if !entity.IsAlive(attackerEntry) {
		return ec.reject(attackerEntry, opts.skill, core.ReasonAttackerDead)
	}
	targetEntry, ok := entity.Lookup(ec.world, target)
	if !ok {
		return ec.reject(attackerEntry, opts.skill, core.ReasonInvalidTarget)
	}
	if !entity.IsAlive(targetEntry) {
		return ec.reject(attackerEntry, opts.skill, core.ReasonTargetDead)
	}
	if !opts.ignoreCooldown && !Ready(attackerEntry) {
		return ec.reject(attackerEntry, opts.skill, core.ReasonOnCooldown)
	}
	combat := *component.CombatComponent.Get(attackerEntry)
	var def data.SkillDefinition
	attackRange := combat.AttackRange
	if opts.skill != core.SkillBasic {
		if def, ok = ec.config.Skill(opts.skill); !ok {
			return ec.reject(attackerEntry, opts.skill, core.ReasonUnknownSkill)
		}
		if def.Range > 0 {
			attackRange = def.Range
		}
	}
	distance := entity.Distance(attackerEntry, targetEntry)
	if !opts.ignoreRange && distance > attackRange {
		return ec.reject(attackerEntry, opts.skill, core.ReasonOutOfRange)
	}

	var skill *data.SkillDefinition
	cooldown := combat.AttackCooldown
	if opts.skill != core.SkillBasic {
		if !component.StatsComponent.Get(attackerEntry).TrySpend(def.ManaCost) {
			return ec.reject(attackerEntry, opts.skill, core.ReasonInsufficientMana)
		}
		skill = &def
		cooldown = def.CooldownFor(combat.AttackCooldown)
	}

	attackerName := component.IdentityComponent.Get(attackerEntry).Name
	attackerStats := component.StatsComponent.Get(attackerEntry)
	targetStats := component.StatsComponent.Get(targetEntry)
	dmg := ec.resolver.ResolveAttack(attackerStats, targetStats, combat, skill, distance, attackerName)

	result := component.ActionResult{
		Outcome:  core.Ok(),
		Attacker: attacker,
		Target:   target,
		Skill:    opts.skill,
		Damage:   dmg,
	}

	if !dmg.IsMiss {
		result.Damage.Amount = targetStats.TakeDamage(dmg.Amount)
	}
	ec.logger.LogDamageDealt(attackerName, component.IdentityComponent.Get(targetEntry).Name, result.Damage.Amount, dmg.IsCritical, targetStats.CurrentHealth)
	ec.bus.Publish(event.DamageDealtGameEvent{
		Attacker:   attacker,
		Target:     target,
		Skill:      opts.skill,
		Amount:     result.Damage.Amount,
		IsCritical: dmg.IsCritical,
		IsMiss:     dmg.IsMiss,
		Position:   entity.Position(targetEntry),
		Remaining:  targetStats.CurrentHealth,
	})

	// 購読者の反応でターゲットが除去されている可能性がある
	targetEntry, ok = entity.Lookup(ec.world, target)
	if !ok {
		result.Outcome = core.Reject(core.ReasonStaleReference)
		return result
	}
	if ec.death.CheckDeath(targetEntry, attacker) {
		result.Killed = true
		rewards := component.Rewards{}
		if targetEntry.HasComponent(component.RewardsComponent) {
			rewards = *component.RewardsComponent.Get(targetEntry)
		}
		ec.bus.Publish(event.TargetKilledGameEvent{
			Killer:           attacker,
			Target:           target,
			ExperienceReward: rewards.Experience,
			GoldReward:       rewards.Gold,
		})
	}

	attackerEntry, ok = entity.Lookup(ec.world, attacker)
	if !ok {
		result.Outcome = core.Reject(core.ReasonStaleReference)
		return result
	}
	if !opts.ignoreCooldown {
		ec.cooldowns.Start(attackerEntry, cooldown)
	}

	// 反撃: ターゲットを持たないプレイヤーは攻撃してきた敵を自動でターゲットにする
	if entity.RoleOf(attackerEntry) == core.RoleEnemy && !result.Killed && entity.IsAlive(attackerEntry) {
		if player, ok := entity.Lookup(ec.world, target); ok && entity.IsAlive(player) && !ec.targeting.HasTarget(target) {
			ec.targeting.SelectTarget(target, attacker)
		}
	}
	return result
}

// Update は反撃時の自動ターゲット、自動攻撃、自由戦闘の開始/終了の追跡を行います。
// ターン制セッション中は何もしません。
func (ec *EngagementCoordinator) Update() {
	if ec.turn.Active() {
		return
	}
	player, ok := entity.FindPlayer(ec.world)
	if !ok {
		return
	}

	if entity.IsAlive(player) && !ec.targeting.HasTarget(player.Entity()) {
		ec.autoTarget(player)
	}

	if ec.config.Combat.AutoAttack && entity.IsAlive(player) && Ready(player) {
		if tgt, ok := ec.targeting.CurrentTargetEntry(player.Entity()); ok && entity.IsAlive(tgt) &&
			entity.Distance(player, tgt) <= component.CombatComponent.Get(player).AttackRange {
			ec.attackCurrentTarget(player, attackOptions{skill: core.SkillBasic})
		}
	}

	if !ec.config.Turn.Enabled {
		ec.trackCombat(player)
	}
}

// autoTarget は自分をターゲットにして攻撃圏内にいる敵の中から戦略に従って1体を選びます。
func (ec *EngagementCoordinator) autoTarget(player *donburi.Entry) {
	var candidates []*donburi.Entry
	for _, src := range ec.targeting.Targeters(player.Entity()) {
		e, ok := entity.Lookup(ec.world, src)
		if !ok || !entity.IsAlive(e) || entity.RoleOf(e) != core.RoleEnemy {
			continue
		}
		if entity.Distance(e, player) <= component.CombatComponent.Get(e).AttackRange {
			candidates = append(candidates, e)
		}
	}
	if chosen := ec.attackerPolicy().Choose(player, candidates); chosen != nil {
		ec.targeting.SelectTarget(player.Entity(), chosen.Entity())
	}
}

// trackCombat は「プレイヤーが生存し、生存しているターゲットを持つ」状態の変化を戦闘の開始/終了として通知します。
func (ec *EngagementCoordinator) trackCombat(player *donburi.Entry) {
	tgt, hasTarget := ec.targeting.CurrentTargetEntry(player.Entity())
	now := entity.IsAlive(player) && hasTarget && entity.IsAlive(tgt)

	switch {
	case now && !ec.inCombat:
		ec.inCombat = true
		ec.lastTarget = tgt.Entity()
		ec.refresher.Refresh(player)
		ec.bus.Publish(event.CombatStartedGameEvent{Player: player.Entity(), Target: tgt.Entity()})
	case now:
		ec.lastTarget = tgt.Entity()
	case ec.inCombat:
		ec.inCombat = false
		outcome := core.CombatOutcomeDisengaged
		if !entity.IsAlive(player) {
			outcome = core.CombatOutcomeDefeat
		} else if last, ok := entity.Lookup(ec.world, ec.lastTarget); !ok || !entity.IsAlive(last) {
			outcome = core.CombatOutcomeVictory
		}
		ec.lastTarget = donburi.Null
		ec.logger.LogCombatEnded(outcome)
		ec.bus.Publish(event.CombatEndedGameEvent{Player: player.Entity(), Outcome: outcome})
	}
}

func (ec *EngagementCoordinator) reject(actor *donburi.Entry, skill core.SkillID, reason core.RejectReason) component.ActionResult {
	ec.logger.LogActionRejected(component.IdentityComponent.Get(actor).Name, string(skill), reason)
	return component.Rejected(actor.Entity(), skill, reason)
}
