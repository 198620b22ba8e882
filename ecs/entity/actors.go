package entity

import (
	"math"
	"sort"

	"tibiame-combat/core"
	"tibiame-combat/data"
	"tibiame-combat/ecs/component"

	"github.com/jakecoffman/cp"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/filter"
	"github.com/yohamta/donburi/query"
)

var (
	playerQuery = query.NewQuery(filter.Contains(component.PlayerTag, component.IdentityComponent))
	enemyQuery  = query.NewQuery(filter.Contains(component.EnemyTag, component.IdentityComponent))
	actorQuery  = query.NewQuery(filter.Contains(component.IdentityComponent, component.StatsComponent))
)

// SpawnPlayer はプレイヤーのエンティティを生成します。物理ボディは次回の物理同期で付与されます。
func SpawnPlayer(world donburi.World, cfg data.Config, pos cp.Vector) *donburi.Entry {
	entry := world.Entry(world.Create(
		component.PlayerTag,
		component.IdentityComponent,
		component.StatsComponent,
		component.TransformComponent,
		component.BodyComponent,
		component.CombatComponent,
		component.CooldownComponent,
		component.LifeComponent,
		component.ProgressComponent,
	))
	p := cfg.Player
	component.IdentityComponent.SetValue(entry, component.Identity{
		Name:   p.Name,
		Role:   core.RolePlayer,
		Serial: nextSerial(world),
	})
	component.StatsComponent.SetValue(entry, core.NewStatBlock(p.MaxHealth, p.MaxMana, p.Attack, p.Defense, p.Speed))
	component.TransformComponent.SetValue(entry, component.Transform{Position: pos})
	component.CombatComponent.SetValue(entry, component.Combat{
		AttackRange:        cfg.Combat.AttackRange,
		AttackCooldown:     cfg.Combat.AttackCooldown,
		CriticalChance:     cfg.Combat.CriticalChance,
		CriticalMultiplier: cfg.Combat.CriticalMultiplier,
	})
	component.CooldownComponent.SetValue(entry, component.Cooldown{CanAttack: true})
	component.ProgressComponent.SetValue(entry, component.Progress{Level: 1, NextLevel: p.ExperienceToLevel})
	return entry
}

// SpawnEnemy はテンプレートから敵のエンティティを生成します。
func SpawnEnemy(world donburi.World, tpl data.EnemyTemplate, cfg data.Config, pos cp.Vector) *donburi.Entry {
	tpl = tpl.WithDefaults(cfg.AI)
	entry := world.Entry(world.Create(
		component.EnemyTag,
		component.IdentityComponent,
		component.StatsComponent,
		component.TransformComponent,
		component.BodyComponent,
		component.CombatComponent,
		component.CooldownComponent,
		component.LifeComponent,
		component.AIComponent,
		component.RewardsComponent,
	))
	component.IdentityComponent.SetValue(entry, component.Identity{
		Name:       tpl.Name,
		Role:       core.RoleEnemy,
		Serial:     nextSerial(world),
		TemplateID: tpl.ID,
	})
	component.StatsComponent.SetValue(entry, core.NewStatBlock(tpl.MaxHealth, tpl.MaxMana, tpl.Attack, tpl.Defense, tpl.Speed))
	component.TransformComponent.SetValue(entry, component.Transform{Position: pos})
	component.CombatComponent.SetValue(entry, component.Combat{
		AttackRange:        tpl.AttackRange,
		AttackCooldown:     tpl.AttackCooldown,
		CriticalChance:     tpl.CriticalChance,
		CriticalMultiplier: cfg.AI.CriticalMultiplier,
	})
	component.CooldownComponent.SetValue(entry, component.Cooldown{CanAttack: true})
	component.AIComponent.SetValue(entry, component.AI{
		FSM:               component.NewEnemyFSM(),
		Mode:              tpl.Mode,
		DetectionRange:    tpl.DetectionRange,
		AttackRange:       tpl.AttackRange,
		MoveSpeed:         tpl.MoveSpeed,
		StopChaseDistance: tpl.StopChaseDistance,
		FleeHealthRatio:   tpl.FleeHealthRatio,
		Origin:            pos,
		Threat:            donburi.Null,
	})
	component.RewardsComponent.SetValue(entry, component.Rewards{
		Experience: tpl.ExperienceReward,
		Gold:       tpl.GoldReward,
	})
	return entry
}

// Lookup はエンティティが有効な場合に限りエントリを返します。除去済みの参照は世代番号で検出されます。
func Lookup(world donburi.World, e donburi.Entity) (*donburi.Entry, bool) {
	if e == donburi.Null || !world.Valid(e) {
		return nil, false
	}
	return world.Entry(e), true
}

// IsAlive はエントリが有効で、死亡していないかを返します。
func IsAlive(entry *donburi.Entry) bool {
	if entry == nil || !entry.Valid() {
		return false
	}
	if component.LifeComponent.Get(entry).Dead {
		return false
	}
	return !component.StatsComponent.Get(entry).IsDead()
}

// FindPlayer はプレイヤーのエントリを返します。
func FindPlayer(world donburi.World) (*donburi.Entry, bool) {
	return playerQuery.First(world)
}

// Enemies は生成順に並べた敵のエントリを返します。死亡済みも含みます。
func Enemies(world donburi.World) []*donburi.Entry {
	var out []*donburi.Entry
	enemyQuery.Each(world, func(entry *donburi.Entry) {
		out = append(out, entry)
	})
	SortBySerial(out)
	return out
}

// Actors は生成順に並べた全アクターのエントリを返します。
func Actors(world donburi.World) []*donburi.Entry {
	var out []*donburi.Entry
	actorQuery.Each(world, func(entry *donburi.Entry) {
		out = append(out, entry)
	})
	SortBySerial(out)
	return out
}

// SortBySerial はエントリを生成順に並べ替えます。
func SortBySerial(entries []*donburi.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return component.IdentityComponent.Get(entries[i]).Serial < component.IdentityComponent.Get(entries[j]).Serial
	})
}

// Name はエンティティの表示名を返します。無効な参照には空文字を返します。
func Name(world donburi.World, e donburi.Entity) string {
	entry, ok := Lookup(world, e)
	if !ok {
		return ""
	}
	return component.IdentityComponent.Get(entry).Name
}

// RoleOf はエントリの陣営を返します。
func RoleOf(entry *donburi.Entry) core.Role {
	return component.IdentityComponent.Get(entry).Role
}

// Position はエントリの現在位置を返します。
func Position(entry *donburi.Entry) cp.Vector {
	return component.TransformComponent.Get(entry).Position
}

// Distance は2つのエントリ間のユークリッド距離を返します。どちらかが無効なら +Inf です。
func Distance(a, b *donburi.Entry) float64 {
	if a == nil || b == nil || !a.Valid() || !b.Valid() {
		return math.Inf(1)
	}
	return Position(a).Distance(Position(b))
}
