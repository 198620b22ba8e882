package system

import (
	"math"
	"sort"

	"tibiame-combat/core"
	"tibiame-combat/data"
	"tibiame-combat/ecs/component"
	"tibiame-combat/ecs/entity"
	"tibiame-combat/event"

	"github.com/yohamta/donburi"
)

// TargetingService は「A が B をターゲットにしている」というリンクをすべて所有します。
// リンクは発信元ごとに高々1つで、ターゲットの死亡・無効化・距離超過で切断されます。
// リンクの変更はこのサービスを経由する場合に限ります。
type TargetingService struct {
	world  donburi.World
	config *data.Config
	bus    *event.Bus
	logger BattleLogger

	links map[donburi.Entity]donburi.Entity
	// targeters はハイライト表示用に、ターゲットごとの発信元を保持します。
	targeters map[donburi.Entity]map[donburi.Entity]struct{}
}

// NewTargetingService は新しい TargetingService を生成し、死亡・除去イベントを購読します。
func NewTargetingService(world donburi.World, config *data.Config, bus *event.Bus, logger BattleLogger) *TargetingService {
	ts := &TargetingService{
		world:     world,
		config:    config,
		bus:       bus,
		logger:    logger,
		links:     make(map[donburi.Entity]donburi.Entity),
		targeters: make(map[donburi.Entity]map[donburi.Entity]struct{}),
	}
	event.SubscribeTo(bus, func(ev event.ActorDiedGameEvent) { ts.forget(ev.Actor) })
	event.SubscribeTo(bus, func(ev event.ActorRemovedGameEvent) { ts.forget(ev.Actor) })
	return ts
}

// SelectTarget は source のターゲットを candidate に設定します。
// 既に同じターゲットなら何もせず、別のターゲットがあれば解除イベントを選択イベントより先に発行します。
func (ts *TargetingService) SelectTarget(source, candidate donburi.Entity) core.Outcome {
	src, ok := entity.Lookup(ts.world, source)
	if !ok {
		return core.Reject(core.ReasonStaleReference)
	}
	if !entity.IsAlive(src) {
		return ts.reject(src, core.ReasonAttackerDead)
	}
	if cur, ok := ts.links[source]; ok && cur == candidate {
		return core.Reject(core.ReasonSameTarget)
	}

	tgt, ok := entity.Lookup(ts.world, candidate)
	if !ok || candidate == source || !entity.RoleOf(src).Opposes(entity.RoleOf(tgt)) {
		return ts.reject(src, core.ReasonInvalidTarget)
	}
	if !entity.IsAlive(tgt) {
		return ts.reject(src, core.ReasonTargetDead)
	}
	if entity.Distance(src, tgt) > ts.config.Targeting.MaxTargetDistance {
		return ts.reject(src, core.ReasonOutOfRange)
	}

	old, hadOld := ts.links[source]
	if hadOld {
		ts.unlink(source, old)
		ts.bus.Publish(event.TargetDeselectedGameEvent{Source: source, Target: old})
	}
	ts.link(source, candidate)
	ts.logger.LogTargetChanged(entity.Name(ts.world, source), entity.Name(ts.world, old), entity.Name(ts.world, candidate))
	ts.bus.Publish(event.TargetSelectedGameEvent{Source: source, Target: candidate})
	return core.Ok()
}

// DeselectTarget は source のターゲットを解除します。ターゲットがなければ何もしません。
func (ts *TargetingService) DeselectTarget(source donburi.Entity) core.Outcome {
	old, ok := ts.links[source]
	if !ok {
		return core.Reject(core.ReasonNoTarget)
	}
	ts.unlink(source, old)
	ts.bus.Publish(event.TargetDeselectedGameEvent{Source: source, Target: old})
	return core.Ok()
}

// CurrentTarget は source の現在のターゲットを返します。
func (ts *TargetingService) CurrentTarget(source donburi.Entity) (donburi.Entity, bool) {
	t, ok := ts.links[source]
	return t, ok
}

// CurrentTargetEntry は source の現在のターゲットが有効な場合にそのエントリを返します。
func (ts *TargetingService) CurrentTargetEntry(source donburi.Entity) (*donburi.Entry, bool) {
	t, ok := ts.links[source]
	if !ok {
		return nil, false
	}
	return entity.Lookup(ts.world, t)
}

// HasTarget は source がターゲットを持つかを返します。
func (ts *TargetingService) HasTarget(source donburi.Entity) bool {
	_, ok := ts.links[source]
	return ok
}

// DistanceToTarget は source とターゲットの距離を返します。ターゲットがない場合は +Inf です。
func (ts *TargetingService) DistanceToTarget(source donburi.Entity) float64 {
	src, ok := entity.Lookup(ts.world, source)
	if !ok {
		return math.Inf(1)
	}
	tgt, ok := ts.CurrentTargetEntry(source)
	if !ok {
		return math.Inf(1)
	}
	return entity.Distance(src, tgt)
}

// IsTargetInRange はターゲットが距離 r 以内にいるかを返します。
func (ts *TargetingService) IsTargetInRange(source donburi.Entity, r float64) bool {
	return ts.DistanceToTarget(source) <= r
}

// CycleNextTarget は最大距離内で生存している敵対アクターを生成順に巡回して次のターゲットを選択します。
func (ts *TargetingService) CycleNextTarget(source donburi.Entity) core.Outcome {
	src, ok := entity.Lookup(ts.world, source)
	if !ok {
		return core.Reject(core.ReasonStaleReference)
	}
	if !entity.IsAlive(src) {
		return ts.reject(src, core.ReasonAttackerDead)
	}

	var candidates []*donburi.Entry
	for _, e := range entity.Actors(ts.world) {
		if e.Entity() == source || !entity.IsAlive(e) || !entity.RoleOf(src).Opposes(entity.RoleOf(e)) {
			continue
		}
		if entity.Distance(src, e) > ts.config.Targeting.MaxTargetDistance {
			continue
		}
		candidates = append(candidates, e)
	}
	if len(candidates) == 0 {
		return core.Reject(core.ReasonNoTarget)
	}

	next := candidates[0]
	if cur, ok := ts.links[source]; ok {
		for i, c := range candidates {
			if c.Entity() == cur {
				next = candidates[(i+1)%len(candidates)]
				break
			}
		}
		if next.Entity() == cur {
			return core.Reject(core.ReasonSameTarget)
		}
	}
	return ts.SelectTarget(source, next.Entity())
}

// Validate はターゲットの死亡・無効化・距離超過を検出してリンクを切断します。
// 攻撃の解決より前に毎ティック呼ばれます。
func (ts *TargetingService) Validate() {
	for _, source := range ts.sources() {
		target := ts.links[source]
		src, srcOK := entity.Lookup(ts.world, source)
		tgt, tgtOK := entity.Lookup(ts.world, target)
		switch {
		case !srcOK || !tgtOK || !entity.IsAlive(src) || !entity.IsAlive(tgt):
		case entity.Distance(src, tgt) > ts.config.Targeting.MaxTargetDistance:
		default:
			continue
		}
		ts.unlink(source, target)
		ts.bus.Publish(event.TargetDeselectedGameEvent{Source: source, Target: target})
	}
}

// Targeters は actor をターゲットにしている発信元を生成順に返します。
func (ts *TargetingService) Targeters(actor donburi.Entity) []donburi.Entity {
	set := ts.targeters[actor]
	out := make([]*donburi.Entry, 0, len(set))
	for src := range set {
		if e, ok := entity.Lookup(ts.world, src); ok {
			out = append(out, e)
		}
	}
	entity.SortBySerial(out)
	ids := make([]donburi.Entity, len(out))
	for i, e := range out {
		ids[i] = e.Entity()
	}
	return ids
}

// forget は actor に関するリンクを発信元・ターゲットの両方向から取り除きます。
func (ts *TargetingService) forget(actor donburi.Entity) {
	for _, source := range ts.sources() {
		target := ts.links[source]
		if source != actor && target != actor {
			continue
		}
		ts.unlink(source, target)
		ts.bus.Publish(event.TargetDeselectedGameEvent{Source: source, Target: target})
	}
	delete(ts.targeters, actor)
}

// sources はリンクを持つ発信元を決定的な順序で返します。除去済みの発信元も含みます。
func (ts *TargetingService) sources() []donburi.Entity {
	out := make([]donburi.Entity, 0, len(ts.links))
	for s := range ts.links {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (ts *TargetingService) link(source, target donburi.Entity) {
	ts.links[source] = target
	set, ok := ts.targeters[target]
	if !ok {
		set = make(map[donburi.Entity]struct{})
		ts.targeters[target] = set
	}
	set[source] = struct{}{}
}

func (ts *TargetingService) unlink(source, target donburi.Entity) {
	delete(ts.links, source)
	if set, ok := ts.targeters[target]; ok {
		delete(set, source)
		if len(set) == 0 {
			delete(ts.targeters, target)
		}
	}
}

func (ts *TargetingService) reject(src *donburi.Entry, reason core.RejectReason) core.Outcome {
	ts.logger.LogActionRejected(component.IdentityComponent.Get(src).Name, "select_target", reason)
	return core.Reject(reason)
}
