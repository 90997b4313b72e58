package models

// メッセージ種別（境界でバリデーションするタグ付きバリアント）
const (
	MessageKindText  = "text"
	MessageKindAudio = "audio"
	MessageKindFile  = "file"
)

// ValidMessageKind は受信ペイロードのtypeフィールドを検証します
func ValidMessageKind(kind string) bool {
	switch kind {
	case "", MessageKindText, MessageKindAudio, MessageKindFile:
		return true
	}
	return false
}

type Message struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Kind      string `json:"type,omitempty"`
	FileName  string `json:"fileName,omitempty"`
	IsBot     bool   `json:"isBot"`
	IsAgent   bool   `json:"isAgent,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Preview は会話一覧に表示するプレビュー文字列を返します。
// 音声とファイルは固定ラベル、それ以外は本文をそのまま使う。
func (m Message) Preview() string {
	switch m.Kind {
	case MessageKindAudio:
		return "🎤 Áudio"
	case MessageKindFile:
		if m.FileName != "" {
			return "📎 " + m.FileName
		}
		return "📎 Arquivo"
	}
	return m.Text
}
