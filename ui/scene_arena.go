package ui

import (
	"fmt"
	"math"
	"strings"

	"tibiame-combat/battle"
	"tibiame-combat/core"
	"tibiame-combat/data"
	"tibiame-combat/ecs/component"
	"tibiame-combat/ecs/entity"
	"tibiame-combat/event"

	"github.com/ebitenui/ebitenui"
	"github.com/ebitenui/ebitenui/widget"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/jakecoffman/cp"
	"github.com/yohamta/donburi"
)

const (
	messageLines     = 6
	floatingTextLife = 0.8
	defeatDelay      = 1.5
)

type floatingText struct {
	pos  cp.Vector
	text string
	ttl  float64
}

// ArenaScene は戦闘シミュレーションを描画し、キー入力を操作要求に変換するシーンです
type ArenaScene struct {
	resources *SharedResources
	manager   *SceneManager
	sim       *battle.Simulation
	ui        *ebitenui.UI
	status    *widget.Text

	messages []string
	floating []floatingText
	summary  BattleSummary
	defeatIn float64
	done     bool
}

// NewArenaScene はシミュレーションを生成し、図鑑の敵を周囲に配置します
func NewArenaScene(res *SharedResources, manager *SceneManager) (*ArenaScene, error) {
	sim, err := battle.New(battle.Options{
		Config:   res.Config,
		Bestiary: res.Bestiary,
		Logger:   data.Log,
	})
	if err != nil {
		return nil, err
	}
	if res.ConfigPath != "" {
		if err := sim.WatchConfig(res.ConfigPath); err != nil {
			data.Log.WithError(err).Warn("設定ファイルを監視できません")
		}
	}

	a := &ArenaScene{
		resources: res,
		manager:   manager,
		sim:       sim,
		defeatIn:  -1,
	}
	a.spawnEnemies()
	a.subscribe()
	a.buildUI()
	return a, nil
}

func (a *ArenaScene) spawnEnemies() {
	ids := a.resources.Bestiary.IDs()
	for i, id := range ids {
		angle := 2 * math.Pi * float64(i) / float64(len(ids))
		pos := cp.Vector{X: math.Cos(angle) * 6, Y: math.Sin(angle) * 6}
		if _, err := a.sim.SpawnEnemy(id, 1+i%3, pos); err != nil {
			data.Log.WithError(err).Warn("敵を配置できません")
		}
	}
}

func (a *ArenaScene) subscribe() {
	bus := a.sim.Bus()
	world := a.sim.World()
	event.SubscribeTo(bus, func(ev event.DamageDealtGameEvent) {
		label := fmt.Sprint(ev.Amount)
		if ev.IsCritical {
			label += "!"
		}
		a.floating = append(a.floating, floatingText{pos: ev.Position, text: label, ttl: floatingTextLife})
	})
	event.SubscribeTo(bus, func(ev event.ActorDiedGameEvent) {
		a.pushMessage(a.msg("actor_died", map[string]any{"Name": ev.Name}))
		if ev.Actor == a.sim.Player() {
			a.defeatIn = defeatDelay
		}
	})
	event.SubscribeTo(bus, func(ev event.TargetKilledGameEvent) {
		if ev.Killer != a.sim.Player() {
			return
		}
		a.summary.Kills++
		a.summary.Experience += ev.ExperienceReward
		a.summary.Gold += ev.GoldReward
	})
	event.SubscribeTo(bus, func(ev event.TurnChangedGameEvent) {
		a.pushMessage(a.msg("turn_changed", map[string]any{"Round": ev.Round, "Name": entity.Name(world, ev.Who)}))
	})
	event.SubscribeTo(bus, func(ev event.CombatEndedGameEvent) {
		a.pushMessage(a.msg("combat_ended", map[string]any{"Outcome": ev.Outcome}))
	})
	event.SubscribeTo(bus, func(ev event.TargetLostGameEvent) {
		a.pushMessage(a.msg("target_lost", map[string]any{"Name": entity.Name(world, ev.Source)}))
	})
	event.SubscribeTo(bus, func(ev event.LevelUpGameEvent) {
		a.pushMessage(a.msg("level_up", map[string]any{"Name": entity.Name(world, ev.Player), "Level": ev.Level}))
	})
}

func (a *ArenaScene) buildUI() {
	root := widget.NewContainer(
		widget.ContainerOpts.Layout(widget.NewAnchorLayout(
			widget.AnchorLayoutOpts.Padding(widget.NewInsetsSimple(8)),
		)),
	)
	a.status = widget.NewText(
		widget.TextOpts.Text("", a.resources.Font, Palette.White),
		widget.TextOpts.WidgetOpts(widget.WidgetOpts.LayoutData(widget.AnchorLayoutData{
			HorizontalPosition: widget.AnchorLayoutPositionStart,
			VerticalPosition:   widget.AnchorLayoutPositionEnd,
		})),
	)
	root.AddChild(a.status)
	a.ui = &ebitenui.UI{Container: root}
}

func (a *ArenaScene) msg(id string, params map[string]any) string {
	return a.resources.Messages.FormatMessage(id, params)
}

func (a *ArenaScene) pushMessage(msg string) {
	a.messages = append(a.messages, msg)
	if len(a.messages) > messageLines {
		a.messages = a.messages[len(a.messages)-messageLines:]
	}
}

func (a *ArenaScene) report(action string, o core.Outcome) {
	if !o.Ok() {
		a.pushMessage(a.msg("action_rejected", map[string]any{"Action": action, "Reason": o.Reason}))
	}
}

func (a *ArenaScene) Update() error {
	if a.done {
		return nil
	}
	dt := 1.0 / float64(ebiten.TPS())
	a.handleInput()
	a.sim.Tick(dt)

	alive := a.floating[:0]
	for _, f := range a.floating {
		f.ttl -= dt
		if f.ttl > 0 {
			alive = append(alive, f)
		}
	}
	a.floating = alive

	a.status.Label = a.statusLine()
	a.ui.Update()
	return a.checkEnd(dt)
}

func (a *ArenaScene) handleInput() {
	dir := cp.Vector{}
	if ebiten.IsKeyPressed(ebiten.KeyArrowLeft) {
		dir.X--
	}
	if ebiten.IsKeyPressed(ebiten.KeyArrowRight) {
		dir.X++
	}
	if ebiten.IsKeyPressed(ebiten.KeyArrowUp) {
		dir.Y--
	}
	if ebiten.IsKeyPressed(ebiten.KeyArrowDown) {
		dir.Y++
	}
	if dir.Length() > 0 {
		a.report("移動", a.sim.MovePlayer(dir))
	}

	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyTab):
		a.report("ターゲット切替", a.sim.CycleTarget())
	case inpututil.IsKeyJustPressed(ebiten.KeyEscape):
		a.report("ターゲット解除", a.sim.ClearTarget())
	case inpututil.IsKeyJustPressed(ebiten.KeySpace):
		a.report("攻撃", a.sim.RequestAttack().Outcome)
	case inpututil.IsKeyJustPressed(ebiten.KeyQ):
		a.report("クイックアタック", a.sim.RequestSkill(core.SkillQuick).Outcome)
	case inpututil.IsKeyJustPressed(ebiten.KeyW):
		a.report("パワーアタック", a.sim.RequestSkill(core.SkillPower).Outcome)
	case inpututil.IsKeyJustPressed(ebiten.KeyE):
		a.report("エナジーボルト", a.sim.RequestSkill(core.SkillBolt).Outcome)
	case inpututil.IsKeyJustPressed(ebiten.KeyD):
		a.report("ロングショット", a.sim.RequestSkill(core.SkillShot).Outcome)
	case inpututil.IsKeyJustPressed(ebiten.KeyR):
		if a.sim.RevivePlayer().Ok() {
			a.defeatIn = -1
		}
	case inpututil.IsKeyJustPressed(ebiten.KeyT):
		a.toggleTurnMode()
	case inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft):
		if target, ok := a.pick(ebiten.CursorPosition()); ok {
			a.report("ターゲット", a.sim.RequestTarget(target))
		}
	}
}

func (a *ArenaScene) toggleTurnMode() {
	if a.sim.Phase() != core.TurnPhaseNone {
		a.pushMessage(a.msg("turn_mode_locked", nil))
		return
	}
	cfg := a.sim.Config()
	cfg.Turn.Enabled = !cfg.Turn.Enabled
	if err := a.sim.ApplyConfig(cfg); err != nil {
		data.Log.WithError(err).Warn("ターン制の切り替えに失敗しました")
		return
	}
	a.pushMessage(a.msg("turn_mode", map[string]any{"Enabled": cfg.Turn.Enabled}))
}

// pick はカーソル位置に最も近い敵を返します。
func (a *ArenaScene) pick(x, y int) (donburi.Entity, bool) {
	world := a.toWorld(x, y)
	best, bestDist := donburi.Null, math.Inf(1)
	for _, e := range entity.Enemies(a.sim.World()) {
		d := entity.Position(e).Distance(world)
		if d < bestDist {
			best, bestDist = e.Entity(), d
		}
	}
	return best, bestDist <= 1
}

func (a *ArenaScene) checkEnd(dt float64) error {
	if a.defeatIn >= 0 {
		a.defeatIn -= dt
		if a.defeatIn < 0 {
			a.finish("DEFEAT")
		}
		return nil
	}
	if len(entity.Enemies(a.sim.World())) == 0 {
		a.finish("VICTORY")
	}
	return nil
}

func (a *ArenaScene) finish(outcome string) {
	a.done = true
	a.summary.Outcome = outcome
	a.summary.Elapsed = a.sim.Elapsed()
	if err := a.sim.Close(); err != nil {
		data.Log.WithError(err).Warn("設定ファイルの監視を停止できません")
	}
	a.manager.GoToResultScene(a.summary)
}

func (a *ArenaScene) statusLine() string {
	player, ok := entity.Lookup(a.sim.World(), a.sim.Player())
	if !ok {
		return ""
	}
	stats := component.StatsComponent.Get(player)
	target := "-"
	if t, ok := a.sim.CurrentTarget(); ok {
		target = entity.Name(a.sim.World(), t)
	}
	mode := "free"
	if a.sim.Config().Turn.Enabled {
		mode = fmt.Sprintf("turn (%s, round %d)", a.sim.Phase(), a.sim.Round())
	}
	prog := a.sim.Progress()
	return fmt.Sprintf("Lv %d (%d/%d)  HP %d/%d  MP %d/%d  Target %s  Mode %s\n"+
		"Arrows: move  Tab: cycle  Click: select  Esc: clear  Space: attack  Q/W/E/D: skills  T: turn mode  R: revive",
		prog.Level, prog.Experience, prog.NextLevel,
		stats.CurrentHealth, stats.MaxHealth, stats.CurrentMana, stats.MaxMana, target, mode)
}

// --- 描画 ---

func (a *ArenaScene) camera() cp.Vector {
	if player, ok := entity.Lookup(a.sim.World(), a.sim.Player()); ok {
		return entity.Position(player)
	}
	return cp.Vector{}
}

func (a *ArenaScene) toScreen(p cp.Vector) (float32, float32) {
	c := a.camera()
	return float32((p.X-c.X)*PixelsPerUnit + ScreenWidth/2), float32((p.Y-c.Y)*PixelsPerUnit + ScreenHeight/2)
}

func (a *ArenaScene) toWorld(x, y int) cp.Vector {
	c := a.camera()
	return cp.Vector{
		X: (float64(x)-ScreenWidth/2)/PixelsPerUnit + c.X,
		Y: (float64(y)-ScreenHeight/2)/PixelsPerUnit + c.Y,
	}
}

func (a *ArenaScene) Draw(screen *ebiten.Image) {
	screen.Fill(Palette.Background)
	a.drawGrid(screen)

	world := a.sim.World()
	cfg := a.sim.Config()
	radius := float32(cfg.Physics.ActorRadius * PixelsPerUnit)
	target, hasTarget := a.sim.CurrentTarget()

	for _, e := range entity.Actors(world) {
		x, y := a.toScreen(entity.Position(e))
		clr := Palette.Enemy
		switch {
		case !entity.IsAlive(e):
			clr = Palette.Dead
		case e.HasComponent(component.PlayerTag):
			clr = Palette.Player
			vector.StrokeCircle(screen, x, y, float32(cfg.Combat.AttackRange*PixelsPerUnit), 1, Palette.Range, true)
		case e.HasComponent(component.AIComponent):
			if s := component.AIComponent.Get(e).State(); s == core.AIStateChase || s == core.AIStateAttack {
				clr = Palette.Engaged
			}
		}
		vector.DrawFilledCircle(screen, x, y, radius, clr, true)
		if hasTarget && e.Entity() == target {
			vector.StrokeCircle(screen, x, y, radius+4, 2, Palette.Target, true)
		}
		a.drawBar(screen, e, x, y-radius-8)
		ebitenutil.DebugPrintAt(screen, component.IdentityComponent.Get(e).Name, int(x-radius), int(y+radius+2))
	}

	for _, f := range a.floating {
		x, y := a.toScreen(f.pos)
		rise := float32((floatingTextLife - f.ttl) * 30)
		ebitenutil.DebugPrintAt(screen, f.text, int(x), int(y-radius-24-rise))
	}

	ebitenutil.DebugPrintAt(screen, strings.Join(a.messages, "\n"), 8, 8)
	a.ui.Draw(screen)
}

func (a *ArenaScene) drawGrid(screen *ebiten.Image) {
	c := a.camera()
	offX := float32(math.Mod(-c.X*PixelsPerUnit+ScreenWidth/2, PixelsPerUnit))
	offY := float32(math.Mod(-c.Y*PixelsPerUnit+ScreenHeight/2, PixelsPerUnit))
	for x := offX; x < ScreenWidth; x += PixelsPerUnit {
		vector.StrokeLine(screen, x, 0, x, ScreenHeight, 1, Palette.Grid, false)
	}
	for y := offY; y < ScreenHeight; y += PixelsPerUnit {
		vector.StrokeLine(screen, 0, y, ScreenWidth, y, 1, Palette.Grid, false)
	}
}

func (a *ArenaScene) drawBar(screen *ebiten.Image, e *donburi.Entry, x, y float32) {
	const w, h = 30, 4
	stats := component.StatsComponent.Get(e)
	vector.DrawFilledRect(screen, x-w/2, y, w, h, Palette.HPBack, false)
	vector.DrawFilledRect(screen, x-w/2, y, float32(w*stats.HealthRatio()), h, Palette.HP, false)
	if e.HasComponent(component.PlayerTag) && stats.MaxMana > 0 {
		ratio := float32(stats.CurrentMana) / float32(stats.MaxMana)
		vector.DrawFilledRect(screen, x-w/2, y+h+1, w*ratio, 2, Palette.Mana, false)
	}
}

func (a *ArenaScene) Layout(outsideWidth, outsideHeight int) (int, int) {
	return ScreenWidth, ScreenHeight
}
