package data

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var placeholderRegex = regexp.MustCompile(`{(\w+)}`)

// MessageManager は戦闘ログなどに表示するメッセージテンプレートを保持します。
type MessageManager struct {
	messages map[string]string
}

// NewMessageManager は YAML のメッセージ定義 (ID からテンプレートへのマップ) を読み込みます。
// ファイルパスではなくバイトデータを受け取るため、ファイルI/Oから独立しています。
func NewMessageManager(raw []byte) (*MessageManager, error) {
	if raw == nil {
		return nil, fmt.Errorf("メッセージデータがnilです")
	}

	messages := make(map[string]string)
	if err := yaml.Unmarshal(raw, &messages); err != nil {
		return nil, fmt.Errorf("メッセージデータのパースに失敗しました: %w", err)
	}

	Log.WithField("count", len(messages)).Debug("メッセージをロードしました")
	return &MessageManager{messages: messages}, nil
}

// LoadMessages はファイルからメッセージ定義を読み込みます。
func LoadMessages(path string) (*MessageManager, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return NewMessageManager(raw)
}

// GetRawMessage はプレースホルダーを置換する前のテンプレートを返します。
func (mm *MessageManager) GetRawMessage(id string) (string, bool) {
	msg, found := mm.messages[id]
	return msg, found
}

// FormatMessage はテンプレートの {key} を params[key] で置き換えます。
// 未定義のIDはそのIDを、足りないキーはプレースホルダーのまま返すので、表示上で欠落に気付けます。
func (mm *MessageManager) FormatMessage(id string, params map[string]any) string {
	template, ok := mm.messages[id]
	if !ok {
		Log.WithField("id", id).Warn("メッセージが見つかりません")
		return id
	}

	return placeholderRegex.ReplaceAllStringFunc(template, func(match string) string {
		key := strings.Trim(match, "{}")
		if val, pOk := params[key]; pOk {
			return fmt.Sprintf("%v", val)
		}
		Log.WithField("id", id).WithField("placeholder", match).Warn("プレースホルダーに対応する値がありません")
		return match
	})
}
