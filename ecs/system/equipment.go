package system

import (
	"tibiame-combat/core"
	"tibiame-combat/ecs/component"

	"github.com/yohamta/donburi"
)

// StatRefresher は装備品の補正を取得して Total* を再計算します。
// 装備変更の通知を受けたときと、戦闘開始時に呼ばれます。
type StatRefresher struct {
	provider EquipmentProvider
}

// NewStatRefresher は新しい StatRefresher を生成します。provider が nil の場合は補正なしとして扱います。
func NewStatRefresher(provider EquipmentProvider) *StatRefresher {
	return &StatRefresher{provider: provider}
}

// Refresh はアクターのステータスを再計算します。
func (sr *StatRefresher) Refresh(entry *donburi.Entry) {
	if entry == nil || !entry.Valid() {
		return
	}
	var bonus core.EquipmentBonus
	if sr.provider != nil {
		bonus = sr.provider.GetEquipmentBonus(entry)
	}
	component.StatsComponent.Get(entry).Recompute(bonus)
}

// StaticEquipment はエンティティごとの補正値を保持する単純な EquipmentProvider です。
type StaticEquipment map[donburi.Entity]core.EquipmentBonus

// GetEquipmentBonus は登録された補正値を返します。
func (se StaticEquipment) GetEquipmentBonus(entry *donburi.Entry) core.EquipmentBonus {
	return se[entry.Entity()]
}

// Set は補正値を登録します。
func (se StaticEquipment) Set(e donburi.Entity, bonus core.EquipmentBonus) {
	se[e] = bonus
}
