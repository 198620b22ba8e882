package core

// StatBlock はアクターごとの数値パラメータを保持します。
// CurrentHealth は常に [0, MaxHealth] に収まり、0 のときに限り死亡とみなします。
type StatBlock struct {
	MaxHealth     int
	CurrentHealth int
	MaxMana       int
	CurrentMana   int

	BaseAttack  int
	BaseDefense int
	BaseSpeed   int

	// Total* は Base* に装備補正を加えた値です。Recompute で更新されます。
	TotalAttack  int
	TotalDefense int
	TotalSpeed   int
	// Armor は装備からのみ供給されます。
	Armor int
}

// NewStatBlock は体力・マナを最大値で初期化した StatBlock を生成します。
func NewStatBlock(maxHealth, maxMana, attack, defense, speed int) StatBlock {
	s := StatBlock{
		MaxHealth:     maxHealth,
		CurrentHealth: maxHealth,
		MaxMana:       maxMana,
		CurrentMana:   maxMana,
		BaseAttack:    attack,
		BaseDefense:   defense,
		BaseSpeed:     speed,
	}
	s.Recompute(EquipmentBonus{})
	return s
}

// IsDead は体力が0かを返します。
func (s *StatBlock) IsDead() bool {
	return s.CurrentHealth <= 0
}

// TakeDamage は体力を減らし、実際に減少した量を返します。負の値は0として扱います。
func (s *StatBlock) TakeDamage(amount int) int {
	if amount <= 0 || s.IsDead() {
		return 0
	}
	if amount > s.CurrentHealth {
		amount = s.CurrentHealth
	}
	s.CurrentHealth -= amount
	return amount
}

// Heal は体力を回復し、実際に回復した量を返します。死亡中は回復しません。
func (s *StatBlock) Heal(amount int) int {
	if amount <= 0 || s.IsDead() {
		return 0
	}
	before := s.CurrentHealth
	s.CurrentHealth = min(s.MaxHealth, s.CurrentHealth+amount)
	return s.CurrentHealth - before
}

// TrySpend はマナが足りる場合に限り cost を消費します。部分的な消費は行いません。
func (s *StatBlock) TrySpend(cost int) bool {
	if cost < 0 {
		return false
	}
	if s.CurrentMana < cost {
		return false
	}
	s.CurrentMana -= cost
	return true
}

// RestoreMana はマナを回復し、実際に回復した量を返します。
func (s *StatBlock) RestoreMana(amount int) int {
	if amount <= 0 {
		return 0
	}
	before := s.CurrentMana
	s.CurrentMana = min(s.MaxMana, s.CurrentMana+amount)
	return s.CurrentMana - before
}

// Recompute は基本値と装備補正から Total* を再計算します。
func (s *StatBlock) Recompute(bonus EquipmentBonus) {
	s.TotalAttack = s.BaseAttack + bonus.Attack
	s.TotalDefense = s.BaseDefense + bonus.Defense
	s.TotalSpeed = s.BaseSpeed + bonus.Speed
	s.Armor = max(0, bonus.Armor)
}

// HealthRatio は最大体力に対する現在体力の割合を返します。
func (s *StatBlock) HealthRatio() float64 {
	if s.MaxHealth <= 0 {
		return 0
	}
	return float64(s.CurrentHealth) / float64(s.MaxHealth)
}

// Kill は体力を0にします。
func (s *StatBlock) Kill() {
	s.CurrentHealth = 0
}

// Revive は体力とマナを最大値に戻します。
func (s *StatBlock) Revive() {
	s.CurrentHealth = s.MaxHealth
	s.CurrentMana = s.MaxMana
}

// LevelUp はレベルアップ時の成長を適用し、全回復します。
func (s *StatBlock) LevelUp() {
	// 装備補正は維持したまま基本値だけを伸ばす
	bonus := EquipmentBonus{
		Attack:  s.TotalAttack - s.BaseAttack,
		Defense: s.TotalDefense - s.BaseDefense,
		Speed:   s.TotalSpeed - s.BaseSpeed,
		Armor:   s.Armor,
	}
	s.MaxHealth += 20
	s.BaseAttack += 3
	s.BaseDefense += 2
	s.BaseSpeed++
	s.Recompute(bonus)
	s.CurrentHealth = s.MaxHealth
}
