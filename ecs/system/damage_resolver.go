package system

import (
	"math"

	"tibiame-combat/core"
	"tibiame-combat/data"
	"tibiame-combat/ecs/component"
)

// DamageResolver はダメージ計算に関連するロジックを担当します。
// 乱数以外の状態を持たず、乱数は RandomSource から1回の判定につき1回だけ引きます。
type DamageResolver struct {
	config   *data.Config
	rand     RandomSource
	formulas *FormulaEngine
	logger   BattleLogger
}

// NewDamageResolver は新しい DamageResolver のインスタンスを生成します。
func NewDamageResolver(config *data.Config, r RandomSource, formulas *FormulaEngine, logger BattleLogger) *DamageResolver {
	return &DamageResolver{config: config, rand: r, formulas: formulas, logger: logger}
}

func (dr *DamageResolver) uniform(lo, hi float64) float64 {
	return lo + dr.rand.Float64()*(hi-lo)
}

// ResolveBasicDamage は物理攻撃の基本ダメージを計算します。結果は常に1以上です。
// 防御力は整数で半分にしてから差し引き、±20%の乱数幅を掛けて四捨五入します。
func (dr *DamageResolver) ResolveBasicDamage(attack, defense int) int {
	base := max(1, attack-defense/2)
	variance := dr.uniform(dr.config.Damage.VarianceMin, dr.config.Damage.VarianceMax)
	damage := max(1, int(math.Round(float64(base)*variance)))
	dr.logger.LogDamageCalculation(attack, defense, variance, damage)
	return damage
}

// ResolveMagicDamage は魔法ダメージを計算します。魔法防御は3分の1だけ差し引きます。
func (dr *DamageResolver) ResolveMagicDamage(power, magicDefense int) int {
	base := max(1, power-magicDefense/3)
	v := dr.config.Damage.MagicVariance
	variance := dr.uniform(1-v, 1+v)
	damage := max(1, int(math.Round(float64(base)*variance)))
	dr.logger.LogDamageCalculation(power, magicDefense, variance, damage)
	return damage
}

// ResolveCritical はクリティカル判定を1回行います。chance が0なら発生せず、1なら必ず発生します。
func (dr *DamageResolver) ResolveCritical(base int, chance, multiplier float64) core.DamageResult {
	chance = math.Max(0, math.Min(1, chance))
	if dr.rand.Float64() < chance {
		return core.DamageResult{Amount: int(math.Round(float64(base) * multiplier)), IsCritical: true}
	}
	return core.DamageResult{Amount: base}
}

// IsAttackMissed は攻撃が外れたかを返します。現行の仕様では攻撃は外れません。
// 旧来の命中モデルは LegacyMissEnabled を有効にした場合に限り RollLegacyMiss で評価されます。
func (dr *DamageResolver) IsAttackMissed() bool {
	return false
}

// RollLegacyMiss は旧来の命中/回避モデルで攻撃が外れたかを判定します。
// 命中率は基本命中率に素早さの差を1ポイントあたり1%加味し、[0.05, 1] に収めます。
func (dr *DamageResolver) RollLegacyMiss(attackerSpeed, targetSpeed int) bool {
	hit := dr.config.Damage.LegacyBaseAccuracy + float64(attackerSpeed-targetSpeed)*0.01
	hit = math.Max(0.05, math.Min(1, hit))
	return dr.rand.Float64() >= hit
}

// DistanceFalloff は遠距離攻撃の距離減衰係数を返します。最適距離以内は1.0です。
func DistanceFalloff(distance, optimal, perUnit, maxPenalty float64) float64 {
	if distance <= optimal {
		return 1.0
	}
	return 1.0 - math.Min(maxPenalty, (distance-optimal)*perUnit)
}

// ResolveRangedDamage は距離減衰を適用した遠距離攻撃のダメージを計算します。
func (dr *DamageResolver) ResolveRangedDamage(attack, defense int, distance float64) int {
	d := dr.config.Damage
	base := dr.ResolveBasicDamage(attack, defense)
	falloff := DistanceFalloff(distance, d.RangedOptimalDistance, d.FalloffPerUnit, d.MaxFalloffPenalty)
	return max(1, int(math.Round(float64(base)*falloff)))
}

// ApplyArmorReduction は防具による軽減を適用します。1ポイントあたり1%、上限80%です。
func (dr *DamageResolver) ApplyArmorReduction(damage, armor int) int {
	d := dr.config.Damage
	reduction := math.Min(d.MaxArmorReduction, float64(armor)*d.ArmorReductionPerPoint)
	return max(1, int(math.Round(float64(damage)*(1-reduction))))
}

// ResolveSkillDamage はスキルの種類に応じた基本ダメージに計算式とダメージ倍率を適用します。
// distance は遠距離スキルの距離減衰にだけ使います。
// 計算式の評価に失敗した場合は警告を出して種類ごとの基本ダメージを使います。
func (dr *DamageResolver) ResolveSkillDamage(skill data.SkillDefinition, attack, defense int, distance float64) int {
	var base int
	switch skill.Kind {
	case data.SkillKindMagic:
		base = dr.ResolveMagicDamage(attack, defense)
	case data.SkillKindRanged:
		base = dr.ResolveRangedDamage(attack, defense, distance)
	default:
		base = dr.ResolveBasicDamage(attack, defense)
	}
	amount := float64(base)
	if skill.Formula != "" && dr.formulas != nil {
		v, err := dr.formulas.Evaluate(skill.Formula, attack, defense, base)
		if err != nil {
			dr.logger.LogWarning("スキル計算式の評価に失敗しました", map[string]any{"skill": skill.Name, "error": err.Error()})
		} else {
			amount = v
		}
	}
	if skill.DamageMultiplier > 0 {
		amount *= skill.DamageMultiplier
	}
	return max(1, int(math.Round(amount)))
}

// ResolveAttack は命中判定、基本ダメージ、クリティカル判定、防具による軽減を順に行い、1回分の結果を返します。
// skill が nil の場合は通常攻撃です。distance は攻撃側と対象の距離です。
func (dr *DamageResolver) ResolveAttack(attacker, target *core.StatBlock, combat component.Combat, skill *data.SkillDefinition, distance float64, attackerName string) core.DamageResult {
	missed := dr.IsAttackMissed()
	if !missed && dr.config.Damage.LegacyMissEnabled {
		missed = dr.RollLegacyMiss(attacker.TotalSpeed, target.TotalSpeed)
	}
	if missed {
		return core.DamageResult{IsMiss: true}
	}

	chance := combat.CriticalChance
	var base int
	if skill != nil {
		base = dr.ResolveSkillDamage(*skill, attacker.TotalAttack, target.TotalDefense, distance)
		if skill.CritChanceMultiplier > 0 {
			chance *= skill.CritChanceMultiplier
		}
	} else {
		base = dr.ResolveBasicDamage(attacker.TotalAttack, target.TotalDefense)
	}

	result := dr.ResolveCritical(base, chance, combat.CriticalMultiplier)
	if result.IsCritical {
		dr.logger.LogCriticalHit(attackerName, math.Min(1, chance), result.Amount)
	}
	if target.Armor > 0 {
		result.Amount = dr.ApplyArmorReduction(result.Amount, target.Armor)
	}
	return result
}
