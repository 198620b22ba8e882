package entity

import (
	"tibiame-combat/ecs/component"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/filter"
	"github.com/yohamta/donburi/query"
)

var worldStateQuery = query.NewQuery(filter.Contains(component.WorldStateTag, component.WorldStateComponent))

// EnsureWorldState は WorldStateComponent を持つエンティティが存在することを保証します。
// 存在しない場合は作成します。これは通常、セットアップ時に一度だけ呼び出されます。
func EnsureWorldState(world donburi.World) *donburi.Entry {
	if entry, ok := worldStateQuery.First(world); ok {
		return entry
	}
	entry := world.Entry(world.Create(component.WorldStateTag, component.WorldStateComponent))
	component.WorldStateComponent.SetValue(entry, component.WorldState{})
	return entry
}

// GetWorldState はワールド状態を取得します。未作成の場合は作成します。
func GetWorldState(world donburi.World) *component.WorldState {
	return component.WorldStateComponent.Get(EnsureWorldState(world))
}

// nextSerial は新しいアクターに割り当てる生成順の番号を返します。
func nextSerial(world donburi.World) int {
	ws := GetWorldState(world)
	ws.NextSerial++
	return ws.NextSerial
}
