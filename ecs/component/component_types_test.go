package component

import (
	"context"
	"testing"

	"tibiame-combat/core"

	"github.com/stretchr/testify/assert"
)

func TestEnemyFSM_Transitions(t *testing.T) {
	ctx := context.Background()
	ai := &AI{FSM: NewEnemyFSM()}
	assert.Equal(t, core.AIStateIdle, ai.State())

	assert.False(t, FireAIEvent(ctx, ai, AIEventEngage), "idle cannot engage directly")
	assert.True(t, FireAIEvent(ctx, ai, AIEventWander))
	assert.Equal(t, core.AIStatePatrol, ai.State())
	assert.True(t, FireAIEvent(ctx, ai, AIEventDetect))
	assert.True(t, FireAIEvent(ctx, ai, AIEventEngage))
	assert.Equal(t, core.AIStateAttack, ai.State())
	assert.True(t, FireAIEvent(ctx, ai, AIEventPursue))
	assert.Equal(t, core.AIStateChase, ai.State())
	assert.True(t, FireAIEvent(ctx, ai, AIEventFlee))
	assert.True(t, FireAIEvent(ctx, ai, AIEventCalm))
	assert.Equal(t, core.AIStateIdle, ai.State())
}

func TestEnemyFSM_DeadIsTerminal(t *testing.T) {
	ctx := context.Background()
	ai := &AI{FSM: NewEnemyFSM()}

	assert.True(t, FireAIEvent(ctx, ai, AIEventDie))
	assert.Equal(t, core.AIStateDead, ai.State())

	for _, ev := range []string{AIEventDetect, AIEventWander, AIEventLose, AIEventCalm, AIEventDie} {
		assert.False(t, FireAIEvent(ctx, ai, ev), ev)
	}
	assert.Equal(t, core.AIStateDead, ai.State())
}

func TestAI_StateWithoutFSM(t *testing.T) {
	assert.Equal(t, core.AIStateIdle, (&AI{}).State())
}
