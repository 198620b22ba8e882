package entity

import (
	"math"
	"testing"

	"tibiame-combat/core"
	"tibiame-combat/data"
	"tibiame-combat/ecs/component"

	"github.com/jakecoffman/cp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yohamta/donburi"
)

func TestSpawn_AssignsSerialsAndComponents(t *testing.T) {
	world := donburi.NewWorld()
	cfg := data.DefaultConfig()

	player := SpawnPlayer(world, cfg, cp.Vector{})
	orc := SpawnEnemy(world, data.EnemyTemplate{ID: "orc", Name: "Orc", MaxHealth: 80, Attack: 12}, cfg, cp.Vector{X: 3})
	rat := SpawnEnemy(world, data.EnemyTemplate{ID: "rat", Name: "Rat", MaxHealth: 30}, cfg, cp.Vector{X: 1})

	assert.Equal(t, 1, component.IdentityComponent.Get(player).Serial)
	assert.Equal(t, 2, component.IdentityComponent.Get(orc).Serial)
	assert.Equal(t, 3, component.IdentityComponent.Get(rat).Serial)
	assert.Equal(t, core.RoleEnemy, RoleOf(orc))
	assert.Equal(t, component.Progress{Level: 1, NextLevel: 100}, *component.ProgressComponent.Get(player))
	assert.False(t, orc.HasComponent(component.ProgressComponent))

	ai := component.AIComponent.Get(orc)
	assert.Equal(t, core.AIStateIdle, ai.State())
	assert.Equal(t, core.AIModeAggressive, ai.Mode)
	assert.Equal(t, cfg.AI.DetectionRange, ai.DetectionRange)
	assert.Equal(t, cp.Vector{X: 3}, ai.Origin)
	assert.True(t, component.CooldownComponent.Get(orc).CanAttack)

	found, ok := FindPlayer(world)
	require.True(t, ok)
	assert.Equal(t, player.Entity(), found.Entity())

	enemies := Enemies(world)
	require.Len(t, enemies, 2)
	assert.Equal(t, orc.Entity(), enemies[0].Entity())
	assert.Len(t, Actors(world), 3)
}

func TestLookup_DetectsRemovedEntity(t *testing.T) {
	world := donburi.NewWorld()
	cfg := data.DefaultConfig()
	e := SpawnEnemy(world, data.EnemyTemplate{ID: "rat", Name: "Rat", MaxHealth: 30}, cfg, cp.Vector{}).Entity()

	_, ok := Lookup(world, e)
	require.True(t, ok)
	assert.Equal(t, "Rat", Name(world, e))

	world.Remove(e)

	_, ok = Lookup(world, e)
	assert.False(t, ok)
	assert.Empty(t, Name(world, e))
	_, ok = Lookup(world, donburi.Null)
	assert.False(t, ok)
}

func TestIsAliveAndDistance(t *testing.T) {
	world := donburi.NewWorld()
	cfg := data.DefaultConfig()
	player := SpawnPlayer(world, cfg, cp.Vector{})
	rat := SpawnEnemy(world, data.EnemyTemplate{ID: "rat", MaxHealth: 30}, cfg, cp.Vector{X: 3, Y: 4})

	assert.True(t, IsAlive(rat))
	assert.InDelta(t, 5.0, Distance(player, rat), 1e-9)

	component.StatsComponent.Get(rat).Kill()
	assert.False(t, IsAlive(rat))
	assert.False(t, IsAlive(nil))
	assert.True(t, math.IsInf(Distance(player, nil), 1))
}
