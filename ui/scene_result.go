package ui

import (
	"fmt"

	"github.com/ebitenui/ebitenui"
	"github.com/ebitenui/ebitenui/widget"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// ResultScene は戦闘結果を表示し、アリーナへ戻るためのシーンです
type ResultScene struct {
	resources *SharedResources
	manager   *SceneManager
	ui        *ebitenui.UI
	retry     bool
}

// NewResultScene は新しい結果シーンを作成します
func NewResultScene(res *SharedResources, manager *SceneManager, summary BattleSummary) *ResultScene {
	r := &ResultScene{
		resources: res,
		manager:   manager,
	}

	rootContainer := widget.NewContainer(
		widget.ContainerOpts.Layout(widget.NewAnchorLayout()),
	)

	panel := widget.NewContainer(
		widget.ContainerOpts.Layout(widget.NewRowLayout(
			widget.RowLayoutOpts.Direction(widget.DirectionVertical),
			widget.RowLayoutOpts.Spacing(16),
		)),
		widget.ContainerOpts.WidgetOpts(widget.WidgetOpts.LayoutData(widget.AnchorLayoutData{
			HorizontalPosition: widget.AnchorLayoutPositionCenter,
			VerticalPosition:   widget.AnchorLayoutPositionCenter,
		})),
	)
	rootContainer.AddChild(panel)

	lines := []string{
		summary.Outcome,
		fmt.Sprintf("Kills: %d", summary.Kills),
		fmt.Sprintf("Experience: %d  Gold: %d", summary.Experience, summary.Gold),
		fmt.Sprintf("Time: %.1fs", summary.Elapsed),
	}
	for _, line := range lines {
		panel.AddChild(widget.NewText(
			widget.TextOpts.Text(line, res.Font, Palette.White),
		))
	}

	panel.AddChild(widget.NewButton(
		widget.ButtonOpts.Image(res.ButtonImage),
		widget.ButtonOpts.Text("Retry", res.Font, &widget.ButtonTextColor{Idle: Palette.White}),
		widget.ButtonOpts.TextPadding(widget.NewInsetsSimple(5)),
		widget.ButtonOpts.ClickedHandler(func(args *widget.ButtonClickedEventArgs) {
			r.retry = true
		}),
	))
	panel.AddChild(widget.NewText(
		widget.TextOpts.Text("Enterキーでもアリーナに戻ります", res.Font, Palette.Gray),
	))

	r.ui = &ebitenui.UI{Container: rootContainer}
	return r
}

func (r *ResultScene) Update() error {
	r.ui.Update()
	if r.retry || inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
		r.manager.GoToArenaScene()
	}
	return nil
}

func (r *ResultScene) Draw(screen *ebiten.Image) {
	screen.Fill(Palette.Background)
	r.ui.Draw(screen)
}

func (r *ResultScene) Layout(outsideWidth, outsideHeight int) (int, int) {
	return ScreenWidth, ScreenHeight
}
