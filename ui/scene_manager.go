package ui

import (
	"tibiame-combat/data"

	"github.com/noppikinatta/bamenn"
)

// SceneManagerはbamennのシーケンスと共有リソースを管理します
type SceneManager struct {
	Sequence  *bamenn.Sequence
	resources *SharedResources
}

// NewSceneManagerは新しいシーンマネージャを作成し、アリーナシーンから開始します
func NewSceneManager(res *SharedResources) (*SceneManager, error) {
	m := &SceneManager{
		resources: res,
	}

	initialScene, err := m.newArenaScene()
	if err != nil {
		return nil, err
	}
	m.Sequence = bamenn.NewSequence(initialScene)
	return m, nil
}

// 各シーンを生成するファクトリ関数です
// 各シーンはマネージャ経由で他のシーンに遷移するため、シーン同士は互いを参照しません

func (m *SceneManager) newArenaScene() (Scene, error) {
	return NewArenaScene(m.resources, m)
}

func (m *SceneManager) newResultScene(summary BattleSummary) (Scene, error) {
	return NewResultScene(m.resources, m, summary), nil
}

// GoTo... メソッド群は、各シーンから呼び出され、指定されたシーンに遷移させます

func (m *SceneManager) GoToArenaScene() {
	scene, err := m.newArenaScene()
	if err != nil {
		data.Log.WithError(err).Error("アリーナシーンへの切り替えに失敗しました")
		return
	}
	m.Sequence.Switch(scene)
}

func (m *SceneManager) GoToResultScene(summary BattleSummary) {
	scene, err := m.newResultScene(summary)
	if err != nil {
		data.Log.WithError(err).Error("結果シーンへの切り替えに失敗しました")
		return
	}
	m.Sequence.Switch(scene)
}
