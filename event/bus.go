package event

// Handler はイベント購読者のコールバックです。
type Handler func(GameEvent)

// SubscriptionID は Unsubscribe に渡す購読の識別子です。
type SubscriptionID int

type subscription struct {
	id      SubscriptionID
	handler Handler
}

// Bus は戦闘イベントを購読者へ順番に配信します。
// 配信中に発行されたイベントは再帰的に配信せずキューの末尾に積み、
// 現在のイベントが全購読者に届いた後で配信します。
// そのため全購読者は同じ順序でイベントを受け取り、各イベントは購読者ごとに高々1回だけ届きます。
// ティックループ専用で、ゴルーチン間で共有しません。
type Bus struct {
	subs        []subscription
	nextID      SubscriptionID
	queue       []GameEvent
	dispatching bool
	history     []GameEvent
	recording   bool
}

// NewBus は新しい Bus を生成します。
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe は購読者を登録します。登録順に配信されます。
func (b *Bus) Subscribe(h Handler) SubscriptionID {
	b.nextID++
	b.subs = append(b.subs, subscription{id: b.nextID, handler: h})
	return b.nextID
}

// Unsubscribe は購読を解除します。配信中に解除された購読者には以降のイベントは届きません。
func (b *Bus) Unsubscribe(id SubscriptionID) {
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish はイベントを発行します。配信中であればキューに積むだけで即座に戻ります。
func (b *Bus) Publish(ev GameEvent) {
	b.queue = append(b.queue, ev)
	if b.dispatching {
		return
	}

	b.dispatching = true
	defer func() { b.dispatching = false }()

	for len(b.queue) > 0 {
		next := b.queue[0]
		b.queue[0] = nil
		b.queue = b.queue[1:]
		if b.recording {
			b.history = append(b.history, next)
		}
		// 配信中の Subscribe/Unsubscribe の影響を受けないようスナップショットを取る
		subs := append([]subscription(nil), b.subs...)
		for _, s := range subs {
			if !b.subscribed(s.id) {
				continue
			}
			s.handler(next)
		}
	}
}

func (b *Bus) subscribed(id SubscriptionID) bool {
	for _, s := range b.subs {
		if s.id == id {
			return true
		}
	}
	return false
}

// Record は配信済みイベントの履歴記録を開始します。
func (b *Bus) Record() {
	b.recording = true
}

// Drain は記録した履歴を返して消去します。
func (b *Bus) Drain() []GameEvent {
	h := b.history
	b.history = nil
	return h
}

// SubscribeTo は型 T のイベントだけを受け取る購読者を登録します。
func SubscribeTo[T GameEvent](b *Bus, h func(T)) SubscriptionID {
	return b.Subscribe(func(ev GameEvent) {
		if typed, ok := ev.(T); ok {
			h(typed)
		}
	})
}
