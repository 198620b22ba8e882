package main

import (
	"flag"
	"os"

	"tibiame-combat/data"
	"tibiame-combat/ui"

	"github.com/hajimehoshi/ebiten/v2"
)

func main() {
	configPath := flag.String("config", "assets/configs/combat.yaml", "戦闘設定ファイル (YAML または TOML)")
	watch := flag.Bool("watch", true, "設定ファイルの変更を監視して再読み込みする")
	flag.Parse()

	data.InitLogger()

	wd, err := os.Getwd()
	if err != nil {
		data.Log.WithError(err).Warn("カレントワーキングディレクトリの取得に失敗しました")
	} else {
		data.Log.WithField("dir", wd).Debug("カレントワーキングディレクトリ")
	}

	cfg, err := data.LoadConfig(*configPath)
	if err != nil {
		data.Log.WithError(err).Fatal("設定ファイルの読み込みに失敗しました")
	}
	bestiary, err := data.LoadBestiary(data.ResolveAssetPath(*configPath, cfg.Bestiary))
	if err != nil {
		data.Log.WithError(err).Fatal("敵図鑑の読み込みに失敗しました")
	}

	messages, err := data.LoadMessages(data.ResolveAssetPath(*configPath, "messages.yaml"))
	if err != nil {
		data.Log.WithError(err).Fatal("メッセージの読み込みに失敗しました")
	}

	watched := *configPath
	if !*watch {
		watched = ""
	}
	res := ui.NewSharedResources(cfg, watched, bestiary, messages)

	manager, err := ui.NewSceneManager(res)
	if err != nil {
		data.Log.WithError(err).Fatal("初期シーンの作成に失敗しました")
	}

	// Ebitenのゲームを実行します。渡すのはbamennのシーケンスです。
	ebiten.SetWindowSize(ui.ScreenWidth, ui.ScreenHeight)
	ebiten.SetWindowTitle("TibiaME Combat Arena")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	if err := ebiten.RunGame(manager.Sequence); err != nil {
		data.Log.WithError(err).Fatal("ゲームの実行中にエラーが発生しました")
	}
}
