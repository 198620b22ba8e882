package core

// RejectReason は行動が拒否された理由です。
type RejectReason string

const (
	ReasonNoTarget         RejectReason = "no_target"
	ReasonInvalidTarget    RejectReason = "invalid_target"
	ReasonTargetDead       RejectReason = "target_dead"
	ReasonOutOfRange       RejectReason = "out_of_range"
	ReasonOnCooldown       RejectReason = "on_cooldown"
	ReasonAttackerDead     RejectReason = "attacker_dead"
	ReasonInsufficientMana RejectReason = "insufficient_mana"
	ReasonStaleReference   RejectReason = "stale_reference"
	ReasonTurnLocked       RejectReason = "turn_locked"
	ReasonUnknownSkill     RejectReason = "unknown_skill"
	ReasonSameTarget       RejectReason = "same_target"
	ReasonInputSuspended   RejectReason = "input_suspended"
)

// Outcome は行動APIの結果です。Reason が空なら成功を意味します。
// null チェックによる暗黙の中断の代わりに、呼び出し側へ理由を明示的に返します。
type Outcome struct {
	Reason RejectReason
}

// Ok は成功を表す Outcome を返します。
func Ok() Outcome {
	return Outcome{}
}

// Reject は指定した理由で拒否された Outcome を返します。
func Reject(reason RejectReason) Outcome {
	return Outcome{Reason: reason}
}

// Ok は行動が受理されたかを返します。
func (o Outcome) Ok() bool {
	return o.Reason == ""
}

func (o Outcome) String() string {
	if o.Ok() {
		return "ok"
	}
	return "rejected(" + string(o.Reason) + ")"
}
