package data

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"sort"

	"tibiame-combat/core"

	"gopkg.in/yaml.v3"
)

// EnemyTemplate は敵の種類ごとの定義です。0 のフィールドは AIConfig の既定値で補われます。
type EnemyTemplate struct {
	ID                string      `yaml:"id"`
	Name              string      `yaml:"name"`
	Type              string      `yaml:"type"`
	Level             int         `yaml:"level"`
	MaxHealth         int         `yaml:"max_health"`
	MaxMana           int         `yaml:"max_mana"`
	Attack            int         `yaml:"attack"`
	Defense           int         `yaml:"defense"`
	Speed             int         `yaml:"speed"`
	Mode              core.AIMode `yaml:"mode"`
	DetectionRange    float64     `yaml:"detection_range"`
	AttackRange       float64     `yaml:"attack_range"`
	MoveSpeed         float64     `yaml:"move_speed"`
	StopChaseDistance float64     `yaml:"stop_chase_distance"`
	AttackCooldown    float64     `yaml:"attack_cooldown"`
	CriticalChance    float64     `yaml:"critical_chance"`
	// FleeHealthRatio が正の場合、体力の割合がこれを下回ると退却します。
	FleeHealthRatio  float64 `yaml:"flee_health_ratio"`
	ExperienceReward int     `yaml:"experience_reward"`
	GoldReward       int     `yaml:"gold_reward"`
}

// ScaleToLevel はレベル1を基準に1レベルごと20%ずつ能力値と報酬を伸ばしたコピーを返します。
func (t EnemyTemplate) ScaleToLevel(level int) EnemyTemplate {
	if level <= 0 {
		return t
	}
	m := 1 + float64(level-1)*0.2
	scale := func(v int) int { return int(math.Round(float64(v) * m)) }

	scaled := t
	scaled.MaxHealth = scale(t.MaxHealth)
	scaled.Attack = scale(t.Attack)
	scaled.Defense = scale(t.Defense)
	scaled.Speed = scale(t.Speed)
	scaled.ExperienceReward = scale(t.ExperienceReward)
	scaled.GoldReward = scale(t.GoldReward)
	scaled.Level = level
	return scaled
}

// WithDefaults は未指定の項目を AIConfig の既定値で埋めたコピーを返します。
func (t EnemyTemplate) WithDefaults(ai AIConfig) EnemyTemplate {
	if t.Mode == "" {
		t.Mode = core.AIModeAggressive
	}
	if t.Level <= 0 {
		t.Level = 1
	}
	if t.DetectionRange <= 0 {
		t.DetectionRange = ai.DetectionRange
	}
	if t.AttackRange <= 0 {
		t.AttackRange = ai.AttackRange
	}
	if t.MoveSpeed <= 0 {
		t.MoveSpeed = ai.MoveSpeed
	}
	if t.StopChaseDistance <= 0 {
		t.StopChaseDistance = ai.StopChaseDistance
	}
	if t.AttackCooldown <= 0 {
		t.AttackCooldown = ai.AttackCooldown
	}
	if t.CriticalChance <= 0 {
		t.CriticalChance = ai.CriticalChance
	}
	return t
}

// Bestiary は ID をキーにした敵テンプレートの集合です。
type Bestiary map[string]EnemyTemplate

// IDs は登録済みテンプレートの ID を昇順で返します。
func (b Bestiary) IDs() []string {
	ids := make([]string, 0, len(b))
	for id := range b {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

type bestiaryFile struct {
	Enemies []EnemyTemplate `yaml:"enemies"`
}

// LoadBestiary は YAML 形式の敵テンプレート定義を読み込みます。
func LoadBestiary(path string) (Bestiary, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bestiary %s: %w", path, err)
	}
	b, err := ParseBestiary(raw)
	if err != nil {
		return nil, fmt.Errorf("load bestiary %s: %w", path, err)
	}
	return b, nil
}

// ParseBestiary は YAML のバイト列から Bestiary を構築します。
func ParseBestiary(raw []byte) (Bestiary, error) {
	var f bestiaryFile
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	b := make(Bestiary, len(f.Enemies))
	for i, t := range f.Enemies {
		if t.ID == "" {
			return nil, fmt.Errorf("enemy #%d has no id", i)
		}
		if _, dup := b[t.ID]; dup {
			return nil, fmt.Errorf("duplicate enemy id %q", t.ID)
		}
		if t.MaxHealth <= 0 {
			return nil, fmt.Errorf("enemy %q: max_health must be positive", t.ID)
		}
		switch t.Mode {
		case "", core.AIModeAggressive, core.AIModeDefensive, core.AIModePassive:
		default:
			return nil, fmt.Errorf("enemy %q: unknown mode %q", t.ID, t.Mode)
		}
		if t.FleeHealthRatio < 0 || t.FleeHealthRatio >= 1 {
			return nil, fmt.Errorf("enemy %q: flee_health_ratio must be in [0, 1)", t.ID)
		}
		if t.Name == "" {
			t.Name = t.ID
		}
		b[t.ID] = t
	}
	return b, nil
}
