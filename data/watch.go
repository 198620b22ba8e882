package data

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const configReloadDebounce = 100 * time.Millisecond

// ConfigWatcher は設定ファイルの変更を監視し、再読み込みした Config をチャネルで届けます。
// 監視ゴルーチンはワールドに触れません。適用はティックループ側で行います。
type ConfigWatcher struct {
	path    string
	watcher *fsnotify.Watcher
	updates chan Config
	done    chan struct{}
}

// WatchConfig は path の監視を開始します。エディタの置換保存に対応するため親ディレクトリを監視します。
func WatchConfig(path string) (*ConfigWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	cw := &ConfigWatcher{
		path:    abs,
		watcher: w,
		updates: make(chan Config, 1),
		done:    make(chan struct{}),
	}
	go cw.loop()
	return cw, nil
}

// Updates は再読み込みに成功した設定を受け取るチャネルを返します。
func (cw *ConfigWatcher) Updates() <-chan Config {
	return cw.updates
}

// Close は監視を停止します。
func (cw *ConfigWatcher) Close() error {
	close(cw.done)
	return cw.watcher.Close()
}

func (cw *ConfigWatcher) loop() {
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-cw.done:
			if timer != nil {
				timer.Stop()
			}
			return
		case ev, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != cw.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(configReloadDebounce)
			} else {
				timer.Reset(configReloadDebounce)
			}
			fire = timer.C
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			Log.WithError(err).Warn("設定ファイルの監視でエラーが発生しました")
		case <-fire:
			fire = nil
			cfg, err := LoadConfig(cw.path)
			if err != nil {
				Log.WithError(err).Warn("設定の再読み込みに失敗しました。以前の設定を維持します")
				continue
			}
			// 未適用の古い設定は捨て、最新のものだけを残す
			select {
			case <-cw.updates:
			default:
			}
			cw.updates <- cfg
			Log.WithField("path", cw.path).Info("設定を再読み込みしました")
		}
	}
}
