package event

import (
	"tibiame-combat/core"

	"github.com/jakecoffman/cp"
	"github.com/yohamta/donburi"
)

// GameEvent は、戦闘ロジックから発行されるすべてのイベントを示すマーカーインターフェースです。
type GameEvent interface {
	isGameEvent()
}

// TargetSelectedGameEvent は、Source が Target を新たにターゲットにしたことを示すイベントです。
type TargetSelectedGameEvent struct {
	Source donburi.Entity
	Target donburi.Entity
}

func (e TargetSelectedGameEvent) isGameEvent() {}

// TargetDeselectedGameEvent は、Source のターゲットが解除されたことを示すイベントです。
type TargetDeselectedGameEvent struct {
	Source donburi.Entity
	Target donburi.Entity
}

func (e TargetDeselectedGameEvent) isGameEvent() {}

// DamageDealtGameEvent は、ダメージが適用されたことを示すイベントです。
// Position はダメージ表示などのために被弾位置を保持します。
type DamageDealtGameEvent struct {
	Attacker   donburi.Entity
	Target     donburi.Entity
	Skill      core.SkillID
	Amount     int
	IsCritical bool
	IsMiss     bool
	Position   cp.Vector
	Remaining  int
}

func (e DamageDealtGameEvent) isGameEvent() {}

// ActorDiedGameEvent は、アクターの体力が0になったことを示すイベントです。
// 購読者への配信が終わるまで、アクターはワールドから除去されません。
type ActorDiedGameEvent struct {
	Actor  donburi.Entity
	Role   core.Role
	Name   string
	Killer donburi.Entity
}

func (e ActorDiedGameEvent) isGameEvent() {}

// TargetKilledGameEvent は、攻撃者が自分のターゲットを倒したことを示すイベントです。
type TargetKilledGameEvent struct {
	Killer           donburi.Entity
	Target           donburi.Entity
	ExperienceReward int
	GoldReward       int
}

func (e TargetKilledGameEvent) isGameEvent() {}

// LevelUpGameEvent は、プレイヤーが経験値によってレベルアップしたことを示すイベントです。
type LevelUpGameEvent struct {
	Player donburi.Entity
	Level  int
}

func (e LevelUpGameEvent) isGameEvent() {}

// TargetLostGameEvent は、追跡中の脅威を見失ったことを示すイベントです。
type TargetLostGameEvent struct {
	Source donburi.Entity
	Target donburi.Entity
}

func (e TargetLostGameEvent) isGameEvent() {}

// CombatStartedGameEvent は、プレイヤーが戦闘状態に入ったことを示すイベントです。
type CombatStartedGameEvent struct {
	Player    donburi.Entity
	Target    donburi.Entity
	TurnBased bool
}

func (e CombatStartedGameEvent) isGameEvent() {}

// CombatEndedGameEvent は、戦闘状態が終了したことを示すイベントです。
type CombatEndedGameEvent struct {
	Player    donburi.Entity
	Outcome   core.CombatOutcome
	TurnBased bool
}

func (e CombatEndedGameEvent) isGameEvent() {}

// TurnChangedGameEvent は、ターン制戦闘で手番が移ったことを示すイベントです。
type TurnChangedGameEvent struct {
	Who   donburi.Entity
	Phase core.TurnPhase
	Round int
}

func (e TurnChangedGameEvent) isGameEvent() {}

// AIStateChangedGameEvent は、敵AIの状態が遷移したことを示すイベントです。
type AIStateChangedGameEvent struct {
	Actor donburi.Entity
	From  core.AIState
	To    core.AIState
}

func (e AIStateChangedGameEvent) isGameEvent() {}

// ActorRemovedGameEvent は、死亡したアクターがワールドから除去されたことを示すイベントです。
type ActorRemovedGameEvent struct {
	Actor donburi.Entity
}

func (e ActorRemovedGameEvent) isGameEvent() {}
