package ui

import (
	"image/color"

	"tibiame-combat/data"

	"github.com/ebitenui/ebitenui/image"
	"github.com/ebitenui/ebitenui/widget"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"golang.org/x/image/font/basicfont"
)

const (
	ScreenWidth  = 960
	ScreenHeight = 640

	// PixelsPerUnit はワールド座標1単位あたりの描画ピクセル数です。
	PixelsPerUnit = 40
)

// Palette は描画に使う色の一覧です。
var Palette = struct {
	Background color.Color
	Grid       color.Color
	Player     color.Color
	Enemy      color.Color
	Engaged    color.Color
	Dead       color.Color
	Target     color.Color
	Range      color.Color
	HPBack     color.Color
	HP         color.Color
	Mana       color.Color
	White      color.Color
	Gray       color.Color
}{
	Background: color.RGBA{0x14, 0x18, 0x1c, 0xff},
	Grid:       color.RGBA{0x22, 0x28, 0x2e, 0xff},
	Player:     color.RGBA{0x4a, 0x9e, 0xff, 0xff},
	Enemy:      color.RGBA{0xd0, 0x5a, 0x4a, 0xff},
	Engaged:    color.RGBA{0xff, 0x8c, 0x2a, 0xff},
	Dead:       color.RGBA{0x55, 0x55, 0x55, 0xff},
	Target:     color.RGBA{0xff, 0xe0, 0x40, 0xff},
	Range:      color.RGBA{0x4a, 0x9e, 0xff, 0x50},
	HPBack:     color.RGBA{0x40, 0x10, 0x10, 0xff},
	HP:         color.RGBA{0x40, 0xd0, 0x60, 0xff},
	Mana:       color.RGBA{0x40, 0x80, 0xff, 0xff},
	White:      color.White,
	Gray:       color.RGBA{0x90, 0x90, 0x90, 0xff},
}

// SharedResources はシーン間で共有されるリソースを保持します。
type SharedResources struct {
	Config      data.Config
	ConfigPath  string
	Bestiary    data.Bestiary
	Messages    *data.MessageManager
	Font        text.Face
	ButtonImage *widget.ButtonImage
}

// NewSharedResources は SharedResources を初期化して返します。
func NewSharedResources(cfg data.Config, configPath string, bestiary data.Bestiary, messages *data.MessageManager) *SharedResources {
	idle := image.NewNineSliceColor(color.RGBA{R: 0x40, G: 0x40, B: 0x40, A: 0xff})
	hover := image.NewNineSliceColor(color.RGBA{R: 0x58, G: 0x58, B: 0x58, A: 0xff})
	return &SharedResources{
		Config:     cfg,
		ConfigPath: configPath,
		Bestiary:   bestiary,
		Messages:   messages,
		Font:       text.NewGoXFace(basicfont.Face7x13),
		ButtonImage: &widget.ButtonImage{
			Idle:    idle,
			Hover:   hover,
			Pressed: idle,
		},
	}
}
