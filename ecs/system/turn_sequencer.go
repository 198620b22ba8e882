package system

import (
	"context"
	"math"

	"tibiame-combat/core"
	"tibiame-combat/data"
	"tibiame-combat/ecs/component"
	"tibiame-combat/ecs/entity"
	"tibiame-combat/event"

	"github.com/looplab/fsm"
	"github.com/yohamta/donburi"
)

const (
	turnSettleTimer = "turn_settle"
	turnResetTimer  = "turn_reset"
)

// ターン進行 FSM のイベント名
const (
	turnEventMove     = "move"
	turnEventEngage   = "engage"
	turnEventToPlayer = "to_player"
	turnEventToEnemy  = "to_enemy"
	turnEventFinish   = "finish"
	turnEventReset    = "reset"
	turnEventAbort    = "abort"
)

// TurnSequencer はプレイヤーと敵1体の厳密な交互行動を調停します。
// 段階: none → moving → enemy_turn ⇄ player_turn → ended → none
// 敵が必ず先に行動し、各手番は攻撃1回、TurnChanged の発行、SettleDelay の待機で構成されます。
// 待機後の継続処理はセッションIDを持ち、セッションが変わっていれば何もしません。
type TurnSequencer struct {
	world      donburi.World
	config     *data.Config
	bus        *event.Bus
	scheduler  *Scheduler
	targeting  *TargetingService
	engagement *EngagementCoordinator
	spatial    SpatialProvider
	refresher  *StatRefresher
	logger     BattleLogger

	fsm     *fsm.FSM
	session int
	player  donburi.Entity
	enemy   donburi.Entity
	round   int
	outcome core.CombatOutcome
}

// NewTurnSequencer は新しい TurnSequencer を生成し、死亡イベントを購読します。
func NewTurnSequencer(
	world donburi.World,
	config *data.Config,
	bus *event.Bus,
	scheduler *Scheduler,
	targeting *TargetingService,
	engagement *EngagementCoordinator,
	spatial SpatialProvider,
	refresher *StatRefresher,
	logger BattleLogger,
) *TurnSequencer {
	none := string(core.TurnPhaseNone)
	moving := string(core.TurnPhaseMoving)
	enemyTurn := string(core.TurnPhaseEnemyTurn)
	playerTurn := string(core.TurnPhasePlayerTurn)
	ended := string(core.TurnPhaseEnded)

	ts := &TurnSequencer{
		world:      world,
		config:     config,
		bus:        bus,
		scheduler:  scheduler,
		targeting:  targeting,
		engagement: engagement,
		spatial:    spatial,
		refresher:  refresher,
		logger:     logger,
		player:     donburi.Null,
		enemy:      donburi.Null,
		fsm: fsm.NewFSM(
			none,
			fsm.Events{
				{Name: turnEventMove, Src: []string{none}, Dst: moving},
				{Name: turnEventEngage, Src: []string{none, moving}, Dst: enemyTurn},
				{Name: turnEventToPlayer, Src: []string{enemyTurn}, Dst: playerTurn},
				{Name: turnEventToEnemy, Src: []string{playerTurn}, Dst: enemyTurn},
				{Name: turnEventFinish, Src: []string{enemyTurn, playerTurn}, Dst: ended},
				{Name: turnEventReset, Src: []string{ended}, Dst: none},
				{Name: turnEventAbort, Src: []string{moving, enemyTurn, playerTurn, ended}, Dst: none},
			},
			fsm.Callbacks{},
		),
	}
	event.SubscribeTo(bus, ts.onActorDied)
	return ts
}

// Phase は現在の段階を返します。
func (ts *TurnSequencer) Phase() core.TurnPhase {
	return core.TurnPhase(ts.fsm.Current())
}

// Active はセッションが none 以外の段階にあるかを返します。この間プレイヤーの入力は停止します。
func (ts *TurnSequencer) Active() bool {
	return ts.Phase() != core.TurnPhaseNone
}

// Engaged は交戦中(敵ターンまたはプレイヤーターン)かを返します。
func (ts *TurnSequencer) Engaged() bool {
	return ts.Phase().Engaged()
}

// Opponent は交戦中の敵を返します。
func (ts *TurnSequencer) Opponent() donburi.Entity {
	if !ts.Active() {
		return donburi.Null
	}
	return ts.enemy
}

// Round は現在のラウンド数を返します。敵とプレイヤーが1回ずつ行動すると1ラウンドです。
func (ts *TurnSequencer) Round() int {
	return ts.round
}

// LastOutcome は直近に終了したセッションの結果を返します。
func (ts *TurnSequencer) LastOutcome() core.CombatOutcome {
	return ts.outcome
}

func (ts *TurnSequencer) fire(name string) bool {
	if !ts.fsm.Can(name) {
		return false
	}
	return ts.fsm.Event(context.Background(), name) == nil
}

// Update はセッションの開始判定と、戦闘開始距離までの自動移動を行います。
// 交戦中の進行はスケジューラの継続処理が担います。
func (ts *TurnSequencer) Update(dt float64) {
	switch ts.Phase() {
	case core.TurnPhaseNone:
		if ts.config.Turn.Enabled {
			ts.tryStart()
		}
	case core.TurnPhaseMoving:
		ts.approach(dt)
	case core.TurnPhaseEnemyTurn, core.TurnPhasePlayerTurn:
		if _, _, ok := ts.participants(); !ok {
			ts.abort("参加者の参照が失われました")
		}
	}
}

// participants はセッションのプレイヤーと敵がともに有効かを確認します。
func (ts *TurnSequencer) participants() (*donburi.Entry, *donburi.Entry, bool) {
	player, ok := entity.Lookup(ts.world, ts.player)
	if !ok {
		return nil, nil, false
	}
	enemy, ok := entity.Lookup(ts.world, ts.enemy)
	if !ok {
		return nil, nil, false
	}
	return player, enemy, true
}

func (ts *TurnSequencer) tryStart() {
	player, ok := entity.FindPlayer(ts.world)
	if !ok || !entity.IsAlive(player) {
		return
	}
	target, ok := ts.targeting.CurrentTargetEntry(player.Entity())
	if !ok || !entity.IsAlive(target) {
		return
	}

	dist := entity.Distance(player, target)
	attackRange := component.CombatComponent.Get(player).AttackRange
	switch {
	case dist <= attackRange:
		ts.player, ts.enemy = player.Entity(), target.Entity()
		ts.engage(player, target)
	case dist <= ts.config.Turn.CombatStartRange:
		ts.player, ts.enemy = player.Entity(), target.Entity()
		ts.session++
		ts.fire(turnEventMove)
	}
}

// approach はプレイヤーを攻撃射程まで敵へ近づけます。移動中のプレイヤー入力は停止しています。
func (ts *TurnSequencer) approach(dt float64) {
	player, enemy, ok := ts.participants()
	if !ok || !entity.IsAlive(player) || !entity.IsAlive(enemy) {
		ts.abort("移動中に参加者が失われました")
		return
	}
	if cur, ok := ts.targeting.CurrentTarget(ts.player); !ok || cur != ts.enemy {
		ts.abort("移動中にターゲットが変わりました")
		return
	}
	dist := entity.Distance(player, enemy)
	if dist <= component.CombatComponent.Get(player).AttackRange {
		ts.spatial.Stop(player)
		ts.engage(player, enemy)
		return
	}
	if dist > ts.config.Turn.CombatStartRange*ts.config.Turn.RescanFactor {
		ts.abort("敵が戦闘開始距離から離れました")
		return
	}
	ts.spatial.MoveToward(player, entity.Position(enemy), ts.config.Turn.MoveSpeed, dt)
}

func (ts *TurnSequencer) engage(player, enemy *donburi.Entry) {
	if !ts.fire(turnEventEngage) {
		return
	}
	ts.session++
	ts.round = 1
	ts.spatial.Stop(player)
	ts.spatial.Stop(enemy)
	ts.refresher.Refresh(player)
	ts.refresher.Refresh(enemy)
	ts.bus.Publish(event.CombatStartedGameEvent{Player: ts.player, Target: ts.enemy, TurnBased: true})
	ts.runSubTurn()
}

// runSubTurn は現在の手番の攻撃を1回行い、SettleDelay 後に次の手番へ進む継続処理を登録します。
func (ts *TurnSequencer) runSubTurn() {
	player, enemy, ok := ts.participants()
	if !ok {
		ts.abort("手番開始時に参加者が失われました")
		return
	}
	session := ts.session
	phase := ts.Phase()

	who := ts.enemy
	if phase == core.TurnPhasePlayerTurn {
		who = ts.player
	}
	ts.logger.LogTurnChanged(entity.Name(ts.world, who), ts.round)
	ts.bus.Publish(event.TurnChangedGameEvent{Who: who, Phase: phase, Round: ts.round})
	if session != ts.session {
		return
	}

	if phase == core.TurnPhaseEnemyTurn {
		ts.engagement.EnemyAttack(enemy, true)
	} else {
		if cur, ok := ts.targeting.CurrentTarget(ts.player); !ok || cur != ts.enemy {
			ts.targeting.SelectTarget(ts.player, ts.enemy)
		}
		ts.engagement.TurnAttack(player)
	}
	// 攻撃による死亡で既にセッションが終了している場合
	if session != ts.session {
		return
	}

	ts.scheduler.After(donburi.Null, turnSettleTimer, ts.config.Turn.SettleDelay, func() {
		ts.settle(session)
	})
}

func (ts *TurnSequencer) settle(session int) {
	if session != ts.session || !ts.Engaged() {
		return
	}
	player, ok := entity.Lookup(ts.world, ts.player)
	if !ok {
		ts.abort("待機後にプレイヤーが失われました")
		return
	}
	enemy, ok := entity.Lookup(ts.world, ts.enemy)
	switch {
	case !ok || !entity.IsAlive(enemy):
		ts.end(core.CombatOutcomeVictory)
		return
	case !entity.IsAlive(player):
		ts.end(core.CombatOutcomeDefeat)
		return
	}

	if ts.Phase() == core.TurnPhaseEnemyTurn {
		ts.fire(turnEventToPlayer)
	} else {
		ts.fire(turnEventToEnemy)
		ts.round++
	}
	ts.runSubTurn()
}

// end は交戦を終了し、EndDelay 後に none へ戻して次の敵を探します。
func (ts *TurnSequencer) end(outcome core.CombatOutcome) {
	if !ts.fire(turnEventFinish) {
		return
	}
	ts.session++
	ts.outcome = outcome
	ts.scheduler.Cancel(donburi.Null, turnSettleTimer)
	ts.logger.LogCombatEnded(outcome)
	ts.bus.Publish(event.CombatEndedGameEvent{Player: ts.player, Outcome: outcome, TurnBased: true})

	session := ts.session
	ts.scheduler.After(donburi.Null, turnResetTimer, ts.config.Turn.EndDelay, func() {
		if session != ts.session {
			return
		}
		ts.fire(turnEventReset)
		ts.enemy = donburi.Null
		ts.rescan()
	})
}

// rescan はプレイヤーの周囲で最も近い生存している敵を探してターゲットにします。見つからなければターゲットを解除します。
func (ts *TurnSequencer) rescan() {
	player, ok := entity.Lookup(ts.world, ts.player)
	if !ok || !entity.IsAlive(player) {
		return
	}
	radius := ts.config.Turn.CombatStartRange * ts.config.Turn.RescanFactor
	var nearest *donburi.Entry
	best := math.Inf(1)
	for _, e := range entity.Enemies(ts.world) {
		if !entity.IsAlive(e) {
			continue
		}
		if d := entity.Distance(player, e); d <= radius && d < best {
			nearest, best = e, d
		}
	}
	if nearest == nil {
		ts.targeting.DeselectTarget(ts.player)
		return
	}
	ts.targeting.SelectTarget(ts.player, nearest.Entity())
}

// abort はセッションを none に戻します。交戦中だった場合は CombatEnded(aborted) を発行します。
func (ts *TurnSequencer) abort(reason string) {
	if !ts.Active() {
		return
	}
	wasEngaged := ts.Engaged()
	ts.fire(turnEventAbort)
	ts.session++
	ts.scheduler.Cancel(donburi.Null, turnSettleTimer)
	ts.scheduler.Cancel(donburi.Null, turnResetTimer)
	if player, ok := entity.Lookup(ts.world, ts.player); ok {
		ts.spatial.Stop(player)
	}
	ts.logger.LogWarning("ターン制セッションを中断しました", map[string]any{"reason": reason})
	if wasEngaged {
		ts.outcome = core.CombatOutcomeAborted
		ts.bus.Publish(event.CombatEndedGameEvent{Player: ts.player, Outcome: core.CombatOutcomeAborted, TurnBased: true})
	}
	ts.enemy = donburi.Null
}

// ForceEnd は交戦中のセッションを敗北として終了させます。
func (ts *TurnSequencer) ForceEnd() bool {
	if !ts.Engaged() {
		return false
	}
	ts.end(core.CombatOutcomeDefeat)
	return true
}

// onActorDied は交戦中の参加者の死亡を検出して即座にセッションを終了します。
// 移動中に敵が倒れた場合は中断し、拡大した半径で次の敵を探します。
func (ts *TurnSequencer) onActorDied(ev event.ActorDiedGameEvent) {
	switch {
	case ts.Engaged() && ev.Actor == ts.enemy:
		ts.end(core.CombatOutcomeVictory)
	case ts.Engaged() && ev.Actor == ts.player:
		ts.end(core.CombatOutcomeDefeat)
	case ts.Phase() == core.TurnPhaseMoving && ev.Actor == ts.enemy:
		ts.abort("移動中に敵が倒れました")
		ts.rescan()
	case ts.Phase() == core.TurnPhaseMoving && ev.Actor == ts.player:
		ts.abort("移動中にプレイヤーが倒れました")
	}
}
