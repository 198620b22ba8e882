package component

import (
	"context"

	"tibiame-combat/core"

	"github.com/jakecoffman/cp"
	"github.com/looplab/fsm"
	"github.com/yohamta/donburi"
)

// --- Component Data Structs ---

// Identity はアクターの名前・陣営・生成順を保持します。Serial は生成順に単調増加します。
type Identity struct {
	Name       string
	Role       core.Role
	Serial     int
	TemplateID string
}

// Transform はアクターの現在位置です。物理ボディの位置から毎ティック同期されます。
type Transform struct {
	Position cp.Vector
}

// Body は chipmunk の剛体と形状への参照です。
type Body struct {
	Body  *cp.Body
	Shape *cp.Shape
}

// Combat はアクターごとの攻撃パラメータです。
type Combat struct {
	AttackRange        float64
	AttackCooldown     float64
	CriticalChance     float64
	CriticalMultiplier float64
}

// Cooldown は攻撃クールダウンの状態です。FSM とは独立に毎ティック更新されます。
type Cooldown struct {
	CanAttack bool
	Remaining float64
	Duration  float64
}

// Life は死亡フラグと除去待ちの状態を保持します。
type Life struct {
	Dead     bool
	Killer   donburi.Entity
	Removing bool
}

// AI は敵AIの状態と行動パラメータを保持します。
type AI struct {
	FSM               *fsm.FSM
	Mode              core.AIMode
	DetectionRange    float64
	AttackRange       float64
	MoveSpeed         float64
	StopChaseDistance float64
	FleeHealthRatio   float64

	Origin        cp.Vector
	Waypoint      cp.Vector
	HasWaypoint   bool
	WaypointTimer float64

	// Provoked はダメージを受けたことで防御型AIが交戦可能になったことを示します。
	Provoked bool
	Threat   donburi.Entity
}

// State は現在のAI状態を返します。
func (a *AI) State() core.AIState {
	if a.FSM == nil {
		return core.AIStateIdle
	}
	return core.AIState(a.FSM.Current())
}

// Rewards は敵を倒したときの報酬です。
type Rewards struct {
	Experience int
	Gold       int
}

// Progress はプレイヤーの経験値と所持金です。
type Progress struct {
	Level      int
	Experience int
	// NextLevel は次のレベルまでに必要な経験値です。
	NextLevel int
	Gold      int
}

// WorldState はワールド全体で1つだけ存在する状態です。
type WorldState struct {
	NextSerial int
	Elapsed    float64
}

// ActionResult は攻撃1回分の結果を保持します。
type ActionResult struct {
	Outcome  core.Outcome
	Attacker donburi.Entity
	Target   donburi.Entity
	Skill    core.SkillID
	Damage   core.DamageResult
	Killed   bool
}

// Rejected は拒否された ActionResult を生成します。
func Rejected(attacker donburi.Entity, skill core.SkillID, reason core.RejectReason) ActionResult {
	return ActionResult{Outcome: core.Reject(reason), Attacker: attacker, Skill: skill}
}

// AI FSM イベント名
const (
	AIEventDetect = "detect"
	AIEventWander = "wander"
	AIEventArrive = "arrive"
	AIEventEngage = "engage"
	AIEventLose   = "lose"
	AIEventPursue = "pursue"
	AIEventFlee   = "flee"
	AIEventCalm   = "calm"
	AIEventDie    = "die"
)

// NewEnemyFSM は敵AIのステートマシンを生成します。dead は終端状態です。
func NewEnemyFSM() *fsm.FSM {
	idle := string(core.AIStateIdle)
	patrol := string(core.AIStatePatrol)
	chase := string(core.AIStateChase)
	attack := string(core.AIStateAttack)
	retreat := string(core.AIStateRetreat)
	dead := string(core.AIStateDead)

	return fsm.NewFSM(
		idle,
		fsm.Events{
			{Name: AIEventDetect, Src: []string{idle, patrol}, Dst: chase},
			{Name: AIEventWander, Src: []string{idle}, Dst: patrol},
			{Name: AIEventArrive, Src: []string{patrol}, Dst: idle},
			{Name: AIEventEngage, Src: []string{chase}, Dst: attack},
			{Name: AIEventLose, Src: []string{chase, attack}, Dst: idle},
			{Name: AIEventPursue, Src: []string{attack}, Dst: chase},
			{Name: AIEventFlee, Src: []string{idle, patrol, chase, attack}, Dst: retreat},
			{Name: AIEventCalm, Src: []string{retreat}, Dst: idle},
			{Name: AIEventDie, Src: []string{idle, patrol, chase, attack, retreat}, Dst: dead},
		},
		fsm.Callbacks{},
	)
}

// FireAIEvent は遷移可能な場合に限りイベントを発火し、遷移したかを返します。
func FireAIEvent(ctx context.Context, a *AI, name string) bool {
	if a.FSM == nil || !a.FSM.Can(name) {
		return false
	}
	return a.FSM.Event(ctx, name) == nil
}
