package core

// Role はアクターの陣営を表します。
type Role string

const (
	RolePlayer Role = "player"
	RoleEnemy  Role = "enemy"
)

// Opposes は r と other が敵対関係にあるかを返します。
func (r Role) Opposes(other Role) bool {
	return r != other
}

// AIState は敵AIのステートマシンの状態です。looplab/fsm の状態名としてそのまま使用します。
type AIState string

const (
	AIStateIdle    AIState = "idle"
	AIStatePatrol  AIState = "patrol"
	AIStateChase   AIState = "chase"
	AIStateAttack  AIState = "attack"
	AIStateRetreat AIState = "retreat"
	AIStateDead    AIState = "dead"
)

// AIMode は敵の交戦方針です。
type AIMode string

const (
	// AIModeAggressive は探知範囲に入った脅威を即座に追跡します。
	AIModeAggressive AIMode = "aggressive"
	// AIModeDefensive はダメージを受けるまで追跡しません。
	AIModeDefensive AIMode = "defensive"
	// AIModePassive は追跡も攻撃もしません。
	AIModePassive AIMode = "passive"
)

// TurnPhase はターン制セッションの段階です。
type TurnPhase string

const (
	TurnPhaseNone       TurnPhase = "none"
	TurnPhaseMoving     TurnPhase = "moving"
	TurnPhaseEnemyTurn  TurnPhase = "enemy_turn"
	TurnPhasePlayerTurn TurnPhase = "player_turn"
	TurnPhaseEnded      TurnPhase = "ended"
)

// Engaged はセッションが交戦中(敵ターンまたはプレイヤーターン)かを返します。
func (p TurnPhase) Engaged() bool {
	return p == TurnPhaseEnemyTurn || p == TurnPhasePlayerTurn
}

// CombatOutcome は戦闘終了の理由です。
type CombatOutcome string

const (
	CombatOutcomeVictory    CombatOutcome = "victory"
	CombatOutcomeDefeat     CombatOutcome = "defeat"
	CombatOutcomeDisengaged CombatOutcome = "disengaged"
	CombatOutcomeAborted    CombatOutcome = "aborted"
)

// SkillID はプレイヤースキルの識別子です。
type SkillID string

const (
	SkillBasic SkillID = "basic"
	SkillQuick SkillID = "quick_attack"
	SkillPower SkillID = "power_attack"
	SkillBolt  SkillID = "energy_bolt"
	SkillShot  SkillID = "long_shot"
)

// DamageResult は1回の攻撃解決の結果です。攻撃ごとに新しく生成されます。
type DamageResult struct {
	Amount     int
	IsCritical bool
	IsMiss     bool
}

// EquipmentBonus は装備品から供給されるステータス補正値です。
type EquipmentBonus struct {
	Attack  int
	Defense int
	Speed   int
	// Armor は被ダメージを割合で軽減する防具値です。
	Armor int
}
