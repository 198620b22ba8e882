package data

import (
	"tibiame-combat/core"

	"github.com/sirupsen/logrus"
)

// BattleLoggerImpl は戦闘中の計算過程や状態遷移を logrus の構造化ログとして出力します。
// UIに表示されるメッセージの生成はプレゼンテーション層が担当します。
type BattleLoggerImpl struct {
	log *logrus.Logger
}

// NewBattleLogger は新しい BattleLoggerImpl のインスタンスを生成します。
// l が nil の場合は共有ロガー Log を使用します。
func NewBattleLogger(l *logrus.Logger) *BattleLoggerImpl {
	if l == nil {
		l = Log
	}
	return &BattleLoggerImpl{log: l}
}

// LogDamageCalculation はダメージ計算の入力と結果を出力します。
func (l *BattleLoggerImpl) LogDamageCalculation(attack, defense int, variance float64, damage int) {
	l.log.WithFields(logrus.Fields{
		"attack":   attack,
		"defense":  defense,
		"variance": variance,
		"damage":   damage,
	}).Debug("ダメージ計算")
}

// LogCriticalHit はクリティカルヒットの発生と確率を出力します。
func (l *BattleLoggerImpl) LogCriticalHit(attackerName string, chance float64, damage int) {
	l.log.WithFields(logrus.Fields{
		"attacker": attackerName,
		"chance":   chance,
		"damage":   damage,
	}).Debug("クリティカルヒット")
}

// LogActionRejected は拒否された行動とその理由を出力します。
func (l *BattleLoggerImpl) LogActionRejected(actorName, action string, reason core.RejectReason) {
	l.log.WithFields(logrus.Fields{
		"actor":  actorName,
		"action": action,
		"reason": reason,
	}).Debug("行動が拒否されました")
}

// LogDamageDealt は与えたダメージと残り体力を出力します。
func (l *BattleLoggerImpl) LogDamageDealt(attackerName, targetName string, damage int, critical bool, remaining int) {
	l.log.WithFields(logrus.Fields{
		"attacker":  attackerName,
		"target":    targetName,
		"damage":    damage,
		"critical":  critical,
		"remaining": remaining,
	}).Info("ダメージ")
}

// LogActorDied はアクターの死亡を出力します。
func (l *BattleLoggerImpl) LogActorDied(name, killerName string) {
	l.log.WithFields(logrus.Fields{
		"actor":  name,
		"killer": killerName,
	}).Info("アクターが倒れました")
}

// LogTargetChanged はターゲットの切り替えを出力します。
func (l *BattleLoggerImpl) LogTargetChanged(sourceName, oldName, newName string) {
	l.log.WithFields(logrus.Fields{
		"source": sourceName,
		"old":    oldName,
		"new":    newName,
	}).Debug("ターゲット変更")
}

// LogAIStateChanged は敵AIの状態遷移を出力します。
func (l *BattleLoggerImpl) LogAIStateChanged(name string, from, to core.AIState) {
	l.log.WithFields(logrus.Fields{
		"actor": name,
		"from":  from,
		"to":    to,
	}).Debug("AI状態遷移")
}

// LogTurnChanged はターンの切り替えを出力します。
func (l *BattleLoggerImpl) LogTurnChanged(actorName string, round int) {
	l.log.WithFields(logrus.Fields{
		"actor": actorName,
		"round": round,
	}).Info("ターン開始")
}

// LogCombatEnded は戦闘終了を出力します。
func (l *BattleLoggerImpl) LogCombatEnded(outcome core.CombatOutcome) {
	l.log.WithField("outcome", outcome).Info("戦闘終了")
}

// LogLevelUp はレベルアップを出力します。
func (l *BattleLoggerImpl) LogLevelUp(name string, level, nextLevel int) {
	l.log.WithFields(logrus.Fields{
		"actor":      name,
		"level":      level,
		"next_level": nextLevel,
	}).Info("レベルアップ")
}

// LogWarning は異常だが継続可能な状況を出力します。
func (l *BattleLoggerImpl) LogWarning(msg string, fields map[string]any) {
	l.log.WithFields(logrus.Fields(fields)).Warn(msg)
}
