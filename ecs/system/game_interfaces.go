package system

import (
	"tibiame-combat/core"

	"github.com/jakecoffman/cp"
	"github.com/yohamta/donburi"
)

// RandomSource は乱数源です。*rand.Rand はそのまま満たします。
// テストでは固定値を返す実装を注入して結果を決定的にします。
type RandomSource interface {
	Float64() float64
}

// BattleLogger は戦闘中の計算過程や状態遷移をデバッグ目的で出力するためのインターフェースです。
// 実装は data.BattleLoggerImpl が提供します。
type BattleLogger interface {
	LogDamageCalculation(attack, defense int, variance float64, damage int)
	LogCriticalHit(attackerName string, chance float64, damage int)
	LogActionRejected(actorName, action string, reason core.RejectReason)
	LogDamageDealt(attackerName, targetName string, damage int, critical bool, remaining int)
	LogActorDied(name, killerName string)
	LogTargetChanged(sourceName, oldName, newName string)
	LogAIStateChanged(name string, from, to core.AIState)
	LogTurnChanged(actorName string, round int)
	LogCombatEnded(outcome core.CombatOutcome)
	LogLevelUp(name string, level, nextLevel int)
	LogWarning(msg string, fields map[string]any)
}

// SpatialProvider はアクターの位置と移動を扱う空間サービスです。距離はユークリッド距離です。
type SpatialProvider interface {
	Position(entry *donburi.Entry) cp.Vector
	Teleport(entry *donburi.Entry, pos cp.Vector)
	// MoveToward は dt 秒で dest を通り過ぎない範囲で speed の速度を設定します。
	MoveToward(entry *donburi.Entry, dest cp.Vector, speed, dt float64)
	SetVelocity(entry *donburi.Entry, v cp.Vector)
	Stop(entry *donburi.Entry)
	DisableCollision(entry *donburi.Entry)
	EnableCollision(entry *donburi.Entry)
	Remove(entry *donburi.Entry)
}

// EquipmentProvider は装備品によるステータス補正を供給する外部サービスです。
type EquipmentProvider interface {
	GetEquipmentBonus(entry *donburi.Entry) core.EquipmentBonus
}

// TurnGate はターン制セッションの状態を他のシステムへ公開します。
type TurnGate interface {
	// Active はセッションが none 以外の段階にあるかを返します。この間プレイヤーの手動入力と敵の自由攻撃は停止します。
	Active() bool
	// Engaged はセッションが交戦中かを返します。交戦相手の敵はターン進行に従います。
	Engaged() bool
	// Opponent は交戦中の敵を返します。
	Opponent() donburi.Entity
}

type noTurnGate struct{}

func (noTurnGate) Active() bool             { return false }
func (noTurnGate) Engaged() bool            { return false }
func (noTurnGate) Opponent() donburi.Entity { return donburi.Null }
