package system

import (
	"errors"
	"fmt"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
)

// FormulaEngine はスキルのダメージ計算式(tengo スクリプト)をコンパイルして評価します。
// スクリプトには attack, defense, base が与えられ、damage を定義する必要があります。
type FormulaEngine struct {
	compiled map[string]*tengo.Compiled
}

// NewFormulaEngine は新しい FormulaEngine を生成します。
func NewFormulaEngine() *FormulaEngine {
	return &FormulaEngine{compiled: make(map[string]*tengo.Compiled)}
}

// Compile はスクリプトをコンパイルしてキャッシュします。設定読み込み時の検証にも使います。
func (fe *FormulaEngine) Compile(src string) (*tengo.Compiled, error) {
	if c, ok := fe.compiled[src]; ok {
		return c, nil
	}
	script := tengo.NewScript([]byte(src))
	script.SetImports(stdlib.GetModuleMap("math"))
	for _, name := range []string{"attack", "defense", "base"} {
		if err := script.Add(name, 0); err != nil {
			return nil, fmt.Errorf("add %s: %w", name, err)
		}
	}
	c, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("compile formula: %w", err)
	}
	fe.compiled[src] = c
	return c, nil
}

// Evaluate は計算式を評価し、damage の値を返します。
func (fe *FormulaEngine) Evaluate(src string, attack, defense, base int) (float64, error) {
	c, err := fe.Compile(src)
	if err != nil {
		return 0, err
	}
	c = c.Clone()
	for name, v := range map[string]int{"attack": attack, "defense": defense, "base": base} {
		if err := c.Set(name, v); err != nil {
			return 0, fmt.Errorf("set %s: %w", name, err)
		}
	}
	if err := c.Run(); err != nil {
		return 0, fmt.Errorf("run formula: %w", err)
	}
	if !c.IsDefined("damage") {
		return 0, errors.New("formula does not define damage")
	}
	return c.Get("damage").Float(), nil
}
