package system

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormulaEngine_Evaluate(t *testing.T) {
	fe := NewFormulaEngine()

	v, err := fe.Evaluate("damage := attack - defense + base", 20, 4, 3)
	require.NoError(t, err)
	assert.Equal(t, 19.0, v)

	v, err = fe.Evaluate("math := import(\"math\")\ndamage := math.max(base, attack - defense / 3)", 30, 9, 40)
	require.NoError(t, err)
	assert.Equal(t, 40.0, v)
}

func TestFormulaEngine_CachesCompiledScripts(t *testing.T) {
	fe := NewFormulaEngine()
	src := "damage := base * 2"
	c1, err := fe.Compile(src)
	require.NoError(t, err)
	c2, err := fe.Compile(src)
	require.NoError(t, err)
	assert.Same(t, c1, c2)

	// 評価ごとに複製するため、前回の入力が残らない
	v, err := fe.Evaluate(src, 0, 0, 5)
	require.NoError(t, err)
	assert.Equal(t, 10.0, v)
	v, err = fe.Evaluate(src, 0, 0, 7)
	require.NoError(t, err)
	assert.Equal(t, 14.0, v)
}

func TestFormulaEngine_Errors(t *testing.T) {
	fe := NewFormulaEngine()

	_, err := fe.Evaluate("damage := ", 1, 1, 1)
	assert.Error(t, err)

	_, err = fe.Evaluate("x := attack", 1, 1, 1)
	assert.ErrorContains(t, err, "damage")
}
