package system

import (
	"sort"

	"github.com/yohamta/donburi"
)

// TimerKey はタイマーの所有者と名前の組です。所有者を持たないタイマーには donburi.Null を使います。
type TimerKey struct {
	Owner donburi.Entity
	Name  string
}

type timer struct {
	key TimerKey
	due float64
	seq int
	fn  func()
}

// Scheduler はティックループ上で時間待ちを協調的に実行します。
// 待機は他のアクターの処理をブロックせず、Advance で期限を迎えた継続処理が登録順に呼ばれます。
type Scheduler struct {
	now    float64
	seq    int
	timers map[TimerKey]*timer
}

// NewScheduler は新しい Scheduler を生成します。
func NewScheduler() *Scheduler {
	return &Scheduler{timers: make(map[TimerKey]*timer)}
}

// Now はスケジューラの経過時間(秒)を返します。
func (s *Scheduler) Now() float64 {
	return s.now
}

// After は delay 秒後に fn を呼ぶタイマーを登録します。同じキーのタイマーは置き換えられます。
func (s *Scheduler) After(owner donburi.Entity, name string, delay float64, fn func()) {
	s.seq++
	key := TimerKey{Owner: owner, Name: name}
	s.timers[key] = &timer{key: key, due: s.now + max(0, delay), seq: s.seq, fn: fn}
}

// Cancel はタイマーを取り消し、取り消したかを返します。
func (s *Scheduler) Cancel(owner donburi.Entity, name string) bool {
	key := TimerKey{Owner: owner, Name: name}
	if _, ok := s.timers[key]; !ok {
		return false
	}
	delete(s.timers, key)
	return true
}

// CancelOwner は owner が所有するすべてのタイマーを取り消します。
func (s *Scheduler) CancelOwner(owner donburi.Entity) {
	for key := range s.timers {
		if key.Owner == owner {
			delete(s.timers, key)
		}
	}
}

// Pending はタイマーが待機中かを返します。
func (s *Scheduler) Pending(owner donburi.Entity, name string) bool {
	_, ok := s.timers[TimerKey{Owner: owner, Name: name}]
	return ok
}

// Remaining はタイマーの残り時間を返します。
func (s *Scheduler) Remaining(owner donburi.Entity, name string) (float64, bool) {
	t, ok := s.timers[TimerKey{Owner: owner, Name: name}]
	if !ok {
		return 0, false
	}
	return max(0, t.due-s.now), true
}

// Len は待機中のタイマー数を返します。
func (s *Scheduler) Len() int {
	return len(s.timers)
}

// Advance は時間を dt 秒進め、期限を迎えたタイマーを期限順(同時刻は登録順)に実行します。
// 継続処理の中で登録された期限切れのタイマーも同じ Advance の中で実行されます。
func (s *Scheduler) Advance(dt float64) {
	s.now += dt
	const epsilon = 1e-9
	for {
		var due []*timer
		for _, t := range s.timers {
			if t.due <= s.now+epsilon {
				due = append(due, t)
			}
		}
		if len(due) == 0 {
			return
		}
		sort.Slice(due, func(i, j int) bool {
			if due[i].due != due[j].due {
				return due[i].due < due[j].due
			}
			return due[i].seq < due[j].seq
		})
		for _, t := range due {
			// 先に実行された継続処理が取り消しや置き換えを行った場合は実行しない
			if cur, ok := s.timers[t.key]; !ok || cur != t {
				continue
			}
			delete(s.timers, t.key)
			t.fn()
		}
	}
}
