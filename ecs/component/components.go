package component

// ECSのCに相当するコンポーネント型を集約します。
// アクターは生成時にすべてのコンポーネントを揃え、以降アーキタイプを変更しません。

import (
	"tibiame-combat/core"

	"github.com/yohamta/donburi"
)

var (
	IdentityComponent  = donburi.NewComponentType[Identity]()
	StatsComponent     = donburi.NewComponentType[core.StatBlock]()
	TransformComponent = donburi.NewComponentType[Transform]()
	BodyComponent      = donburi.NewComponentType[Body]()
	CombatComponent    = donburi.NewComponentType[Combat]()
	CooldownComponent  = donburi.NewComponentType[Cooldown]()
	LifeComponent      = donburi.NewComponentType[Life]()

	// --- Player Components ---
	ProgressComponent = donburi.NewComponentType[Progress]()

	// --- Enemy Components ---
	AIComponent      = donburi.NewComponentType[AI]()
	RewardsComponent = donburi.NewComponentType[Rewards]()

	// --- Tags ---
	PlayerTag = donburi.NewTag()
	EnemyTag  = donburi.NewTag()

	// --- World State ---
	WorldStateTag       = donburi.NewTag()
	WorldStateComponent = donburi.NewComponentType[WorldState]()
)
