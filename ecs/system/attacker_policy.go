package system

import (
	"sort"

	"tibiame-combat/ecs/entity"

	"github.com/yohamta/donburi"
)

// AttackerPolicy は、ターゲットを持たないプレイヤーを攻撃圏内に捉えている敵が複数いる場合に
// どれを自動ターゲットにするかを決める戦略です。candidates は生成順に並んでいます。
type AttackerPolicy interface {
	Choose(player *donburi.Entry, candidates []*donburi.Entry) *donburi.Entry
}

// AttackerSortFunc は候補リストを優先順に並べ替える関数の型です。
// 各戦略は並べ替えのロジックだけを提供すればよくなります。
type AttackerSortFunc func(player *donburi.Entry, candidates []*donburi.Entry)

// sortedPolicy は並べ替え後の先頭を選ぶ共通の実装です。
type sortedPolicy struct {
	sort AttackerSortFunc
}

func (p sortedPolicy) Choose(player *donburi.Entry, candidates []*donburi.Entry) *donburi.Entry {
	if len(candidates) == 0 {
		return nil
	}
	sorted := append([]*donburi.Entry(nil), candidates...)
	if p.sort != nil {
		p.sort(player, sorted)
	}
	return sorted[0]
}

// --- 戦略の実装 ---

// FirstFoundPolicy は生成順で最初に見つかった敵を選びます。
func FirstFoundPolicy() AttackerPolicy {
	return sortedPolicy{}
}

// NearestPolicy はプレイヤーに最も近い敵を選びます。距離が同じ場合は生成順です。
func NearestPolicy() AttackerPolicy {
	return sortedPolicy{sort: func(player *donburi.Entry, candidates []*donburi.Entry) {
		sort.SliceStable(candidates, func(i, j int) bool {
			return entity.Distance(player, candidates[i]) < entity.Distance(player, candidates[j])
		})
	}}
}

// NewAttackerPolicy は設定名から戦略を返します。不明な名前は FirstFoundPolicy として扱います。
func NewAttackerPolicy(name string) AttackerPolicy {
	switch name {
	case "nearest":
		return NearestPolicy()
	default:
		return FirstFoundPolicy()
	}
}
