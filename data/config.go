package data

import (
	"errors"
	"fmt"

	"tibiame-combat/core"
)

// Config は戦闘シミュレーション全体の調整値を保持します。
// YAML と TOML のどちらからでも読み込めるよう、両方のタグを付与しています。
// 時間に関する値はすべて秒単位です。
type Config struct {
	Combat    CombatConfig                     `yaml:"combat" toml:"combat"`
	Damage    DamageConfig                     `yaml:"damage" toml:"damage"`
	Skills    map[core.SkillID]SkillDefinition `yaml:"skills" toml:"skills"`
	Turn      TurnConfig                       `yaml:"turn" toml:"turn"`
	AI        AIConfig                         `yaml:"ai" toml:"ai"`
	Targeting TargetingConfig                  `yaml:"targeting" toml:"targeting"`
	Regen     RegenConfig                      `yaml:"regen" toml:"regen"`
	Physics   PhysicsConfig                    `yaml:"physics" toml:"physics"`
	Lifecycle LifecycleConfig                  `yaml:"lifecycle" toml:"lifecycle"`
	Player    PlayerConfig                     `yaml:"player" toml:"player"`
	Bestiary  string                           `yaml:"bestiary" toml:"bestiary"`
}

// CombatConfig はプレイヤーの通常攻撃に関する設定です。
type CombatConfig struct {
	AttackRange        float64 `yaml:"attack_range" toml:"attack_range"`
	AttackCooldown     float64 `yaml:"attack_cooldown" toml:"attack_cooldown"`
	CriticalChance     float64 `yaml:"critical_chance" toml:"critical_chance"`
	CriticalMultiplier float64 `yaml:"critical_multiplier" toml:"critical_multiplier"`
	AutoAttack         bool    `yaml:"auto_attack" toml:"auto_attack"`
	// AutoTargetPolicy は反撃時の自動ターゲット選択方針です ("first_found" または "nearest")。
	AutoTargetPolicy string `yaml:"auto_target_policy" toml:"auto_target_policy"`
}

// DamageConfig はダメージ計算式の定数です。
type DamageConfig struct {
	VarianceMin            float64 `yaml:"variance_min" toml:"variance_min"`
	VarianceMax            float64 `yaml:"variance_max" toml:"variance_max"`
	MagicVariance          float64 `yaml:"magic_variance" toml:"magic_variance"`
	RangedOptimalDistance  float64 `yaml:"ranged_optimal_distance" toml:"ranged_optimal_distance"`
	FalloffPerUnit         float64 `yaml:"falloff_per_unit" toml:"falloff_per_unit"`
	MaxFalloffPenalty      float64 `yaml:"max_falloff_penalty" toml:"max_falloff_penalty"`
	ArmorReductionPerPoint float64 `yaml:"armor_reduction_per_point" toml:"armor_reduction_per_point"`
	MaxArmorReduction      float64 `yaml:"max_armor_reduction" toml:"max_armor_reduction"`
	// LegacyMissEnabled は旧来の命中/回避モデルを有効にします。通常は無効で、攻撃は外れません。
	LegacyMissEnabled  bool    `yaml:"legacy_miss_enabled" toml:"legacy_miss_enabled"`
	LegacyBaseAccuracy float64 `yaml:"legacy_base_accuracy" toml:"legacy_base_accuracy"`
}

// SkillKind はスキルのダメージ計算の種類です。空文字は物理として扱います。
type SkillKind string

const (
	SkillKindPhysical SkillKind = "physical"
	SkillKindMagic    SkillKind = "magic"
	SkillKindRanged   SkillKind = "ranged"
)

// SkillDefinition はマナを消費する攻撃スキルの定義です。
type SkillDefinition struct {
	Name                 string    `yaml:"name" toml:"name"`
	Kind                 SkillKind `yaml:"kind" toml:"kind"`
	ManaCost             int       `yaml:"mana_cost" toml:"mana_cost"`
	DamageMultiplier     float64   `yaml:"damage_multiplier" toml:"damage_multiplier"`
	CritChanceMultiplier float64   `yaml:"crit_chance_multiplier" toml:"crit_chance_multiplier"`
	// Range が正の場合は攻撃射程の代わりに使います。
	Range float64 `yaml:"range" toml:"range"`
	// Cooldown が正の場合はその秒数を、0 の場合は AttackCooldown * CooldownMultiplier を使用します。
	Cooldown           float64 `yaml:"cooldown" toml:"cooldown"`
	CooldownMultiplier float64 `yaml:"cooldown_multiplier" toml:"cooldown_multiplier"`
	// Formula は任意の tengo スクリプトです。attack, defense, base を受け取り damage を設定します。
	Formula string `yaml:"formula" toml:"formula"`
}

// CooldownFor はスキル使用後のクールダウン秒数を返します。
func (s SkillDefinition) CooldownFor(attackCooldown float64) float64 {
	if s.Cooldown > 0 {
		return s.Cooldown
	}
	if s.CooldownMultiplier > 0 {
		return attackCooldown * s.CooldownMultiplier
	}
	return attackCooldown
}

// TurnConfig はターン制戦闘の設定です。
type TurnConfig struct {
	Enabled          bool    `yaml:"enabled" toml:"enabled"`
	CombatStartRange float64 `yaml:"combat_start_range" toml:"combat_start_range"`
	MoveSpeed        float64 `yaml:"move_speed" toml:"move_speed"`
	SettleDelay      float64 `yaml:"settle_delay" toml:"settle_delay"`
	EndDelay         float64 `yaml:"end_delay" toml:"end_delay"`
	RescanFactor     float64 `yaml:"rescan_factor" toml:"rescan_factor"`
}

// AIConfig は敵AIの既定値です。個々の敵テンプレートで上書きできます。
type AIConfig struct {
	DetectionRange     float64 `yaml:"detection_range" toml:"detection_range"`
	AttackRange        float64 `yaml:"attack_range" toml:"attack_range"`
	MoveSpeed          float64 `yaml:"move_speed" toml:"move_speed"`
	StopChaseDistance  float64 `yaml:"stop_chase_distance" toml:"stop_chase_distance"`
	AttackCooldown     float64 `yaml:"attack_cooldown" toml:"attack_cooldown"`
	CriticalChance     float64 `yaml:"critical_chance" toml:"critical_chance"`
	CriticalMultiplier float64 `yaml:"critical_multiplier" toml:"critical_multiplier"`
	IdleToPatrolChance float64 `yaml:"idle_to_patrol_chance" toml:"idle_to_patrol_chance"`
	PatrolRadius       float64 `yaml:"patrol_radius" toml:"patrol_radius"`
	PatrolIntervalMin  float64 `yaml:"patrol_interval_min" toml:"patrol_interval_min"`
	PatrolIntervalMax  float64 `yaml:"patrol_interval_max" toml:"patrol_interval_max"`
	WaypointTolerance  float64 `yaml:"waypoint_tolerance" toml:"waypoint_tolerance"`
}

// TargetingConfig はターゲット選択の設定です。
type TargetingConfig struct {
	MaxTargetDistance float64 `yaml:"max_target_distance" toml:"max_target_distance"`
}

// RegenConfig はプレイヤーの自然回復の設定です。
type RegenConfig struct {
	Enabled  bool    `yaml:"enabled" toml:"enabled"`
	Interval float64 `yaml:"interval" toml:"interval"`
	Health   int     `yaml:"health" toml:"health"`
	Mana     int     `yaml:"mana" toml:"mana"`
}

// PhysicsConfig は空間プロバイダ(chipmunk)の設定です。
type PhysicsConfig struct {
	ActorRadius float64 `yaml:"actor_radius" toml:"actor_radius"`
	ActorMass   float64 `yaml:"actor_mass" toml:"actor_mass"`
}

// LifecycleConfig はアクターの生成・破棄に関する設定です。
type LifecycleConfig struct {
	DestroyDelay float64 `yaml:"destroy_delay" toml:"destroy_delay"`
}

// PlayerConfig はプレイヤーの初期ステータスです。
type PlayerConfig struct {
	Name      string  `yaml:"name" toml:"name"`
	MaxHealth int     `yaml:"max_health" toml:"max_health"`
	MaxMana   int     `yaml:"max_mana" toml:"max_mana"`
	Attack    int     `yaml:"attack" toml:"attack"`
	Defense   int     `yaml:"defense" toml:"defense"`
	Speed     int     `yaml:"speed" toml:"speed"`
	MoveSpeed float64 `yaml:"move_speed" toml:"move_speed"`
	// ExperienceToLevel はレベル2に必要な経験値です。以降はレベルごとに ExperienceGrowth 倍になります。
	ExperienceToLevel int     `yaml:"experience_to_level" toml:"experience_to_level"`
	ExperienceGrowth  float64 `yaml:"experience_growth" toml:"experience_growth"`
}

// DefaultConfig は既定の調整値を持つ Config を返します。
func DefaultConfig() Config {
	return Config{
		Combat: CombatConfig{
			AttackRange:        1.5,
			AttackCooldown:     1.0,
			CriticalChance:     0.1,
			CriticalMultiplier: 2.0,
			AutoAttack:         true,
			AutoTargetPolicy:   "first_found",
		},
		Damage: DamageConfig{
			VarianceMin:            0.8,
			VarianceMax:            1.2,
			MagicVariance:          0.3,
			RangedOptimalDistance:  5,
			FalloffPerUnit:         0.1,
			MaxFalloffPenalty:      0.5,
			ArmorReductionPerPoint: 0.01,
			MaxArmorReduction:      0.8,
			LegacyMissEnabled:      false,
			LegacyBaseAccuracy:     0.95,
		},
		Skills: map[core.SkillID]SkillDefinition{
			core.SkillQuick: {
				Name:                 "Quick Attack",
				ManaCost:             10,
				DamageMultiplier:     0.8,
				CritChanceMultiplier: 1.5,
				CooldownMultiplier:   0.7,
			},
			core.SkillPower: {
				Name:                 "Power Attack",
				ManaCost:             15,
				DamageMultiplier:     1.5,
				CritChanceMultiplier: 2.0,
				Cooldown:             2.0,
			},
			core.SkillBolt: {
				Name:             "Energy Bolt",
				Kind:             SkillKindMagic,
				ManaCost:         20,
				DamageMultiplier: 1.0,
				Range:            4,
				Cooldown:         2.5,
			},
			core.SkillShot: {
				Name:             "Long Shot",
				Kind:             SkillKindRanged,
				ManaCost:         8,
				DamageMultiplier: 1.0,
				Range:            8,
				Cooldown:         1.5,
			},
		},
		Turn: TurnConfig{
			Enabled:          true,
			CombatStartRange: 2,
			MoveSpeed:        3,
			SettleDelay:      1.5,
			EndDelay:         1.0,
			RescanFactor:     2,
		},
		AI: AIConfig{
			DetectionRange:     5,
			AttackRange:        1.5,
			MoveSpeed:          2,
			StopChaseDistance:  10,
			AttackCooldown:     2,
			CriticalChance:     0.05,
			CriticalMultiplier: 2.0,
			IdleToPatrolChance: 0.01,
			PatrolRadius:       3,
			PatrolIntervalMin:  3,
			PatrolIntervalMax:  8,
			WaypointTolerance:  0.5,
		},
		Targeting: TargetingConfig{MaxTargetDistance: 10},
		Regen: RegenConfig{
			Enabled:  true,
			Interval: 1,
			Health:   1,
			Mana:     2,
		},
		Physics: PhysicsConfig{
			ActorRadius: 0.4,
			ActorMass:   1,
		},
		Lifecycle: LifecycleConfig{DestroyDelay: 0.1},
		Player: PlayerConfig{
			Name:      "Player",
			MaxHealth: 100,
			MaxMana:   50,
			Attack:    10,
			Defense:   5,
			Speed:     5,
			MoveSpeed: 3,

			ExperienceToLevel: 100,
			ExperienceGrowth:  1.5,
		},
	}
}

// Skill は ID に対応するスキル定義を返します。
func (c *Config) Skill(id core.SkillID) (SkillDefinition, bool) {
	s, ok := c.Skills[id]
	return s, ok
}

// Validate は設定値の整合性を検証し、見つかった問題をすべてまとめて返します。
func (c *Config) Validate() error {
	var errs []error
	positive := func(name string, v float64) {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %v", name, v))
		}
	}
	probability := func(name string, v float64) {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("%s must be within [0,1], got %v", name, v))
		}
	}

	positive("combat.attack_range", c.Combat.AttackRange)
	positive("combat.attack_cooldown", c.Combat.AttackCooldown)
	probability("combat.critical_chance", c.Combat.CriticalChance)
	if c.Combat.CriticalMultiplier < 1 {
		errs = append(errs, fmt.Errorf("combat.critical_multiplier must be >= 1, got %v", c.Combat.CriticalMultiplier))
	}
	switch c.Combat.AutoTargetPolicy {
	case "", "first_found", "nearest":
	default:
		errs = append(errs, fmt.Errorf("combat.auto_target_policy: unknown policy %q", c.Combat.AutoTargetPolicy))
	}

	if c.Damage.VarianceMin <= 0 || c.Damage.VarianceMin > c.Damage.VarianceMax {
		errs = append(errs, fmt.Errorf("damage variance range [%v,%v] is invalid", c.Damage.VarianceMin, c.Damage.VarianceMax))
	}
	probability("damage.max_falloff_penalty", c.Damage.MaxFalloffPenalty)
	probability("damage.max_armor_reduction", c.Damage.MaxArmorReduction)
	probability("damage.legacy_base_accuracy", c.Damage.LegacyBaseAccuracy)

	for id, s := range c.Skills {
		if s.ManaCost < 0 {
			errs = append(errs, fmt.Errorf("skills.%s.mana_cost must not be negative", id))
		}
		if s.DamageMultiplier <= 0 {
			errs = append(errs, fmt.Errorf("skills.%s.damage_multiplier must be positive", id))
		}
		switch s.Kind {
		case "", SkillKindPhysical, SkillKindMagic, SkillKindRanged:
		default:
			errs = append(errs, fmt.Errorf("skills.%s.kind %q is unknown", id, s.Kind))
		}
		if s.Range < 0 {
			errs = append(errs, fmt.Errorf("skills.%s.range must not be negative", id))
		}
	}

	if c.Turn.CombatStartRange < c.Combat.AttackRange {
		errs = append(errs, fmt.Errorf("turn.combat_start_range (%v) must be >= combat.attack_range (%v)", c.Turn.CombatStartRange, c.Combat.AttackRange))
	}
	positive("turn.move_speed", c.Turn.MoveSpeed)
	if c.Turn.SettleDelay < 0 || c.Turn.EndDelay < 0 {
		errs = append(errs, errors.New("turn delays must not be negative"))
	}
	positive("turn.rescan_factor", c.Turn.RescanFactor)

	positive("ai.detection_range", c.AI.DetectionRange)
	positive("ai.attack_range", c.AI.AttackRange)
	positive("ai.attack_cooldown", c.AI.AttackCooldown)
	probability("ai.critical_chance", c.AI.CriticalChance)
	probability("ai.idle_to_patrol_chance", c.AI.IdleToPatrolChance)
	if c.AI.PatrolIntervalMin > c.AI.PatrolIntervalMax {
		errs = append(errs, fmt.Errorf("ai patrol interval range [%v,%v] is invalid", c.AI.PatrolIntervalMin, c.AI.PatrolIntervalMax))
	}

	positive("targeting.max_target_distance", c.Targeting.MaxTargetDistance)
	if c.Regen.Enabled {
		positive("regen.interval", c.Regen.Interval)
	}
	positive("physics.actor_radius", c.Physics.ActorRadius)
	positive("physics.actor_mass", c.Physics.ActorMass)
	if c.Lifecycle.DestroyDelay < 0 {
		errs = append(errs, errors.New("lifecycle.destroy_delay must not be negative"))
	}
	if c.Player.ExperienceToLevel <= 0 {
		errs = append(errs, errors.New("player.experience_to_level must be positive"))
	}
	if c.Player.ExperienceGrowth < 1 {
		errs = append(errs, errors.New("player.experience_growth must be >= 1"))
	}
	if c.Player.MaxHealth <= 0 {
		errs = append(errs, errors.New("player.max_health must be positive"))
	}

	return errors.Join(errs...)
}
