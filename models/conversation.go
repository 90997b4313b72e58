package models

// Conversation はエンドユーザーごとの会話集約
type Conversation struct {
	UserID        string    `json:"userId"`
	UserName      string    `json:"userName"`
	Messages      []Message `json:"messages"`
	LastMessage   string    `json:"lastMessage"`
	LastTimestamp string    `json:"lastTimestamp"`
	Unread        int       `json:"unread"`
	LabelID       *string   `json:"labelId"`
	OnHold        bool      `json:"onHold"`
}

// Clone はメッセージ列まで含めたコピーを返します。
// レジストリの外に出す集約は必ずコピーで渡す。
func (c *Conversation) Clone() *Conversation {
	cp := *c
	cp.Messages = append([]Message(nil), c.Messages...)
	if c.LabelID != nil {
		id := *c.LabelID
		cp.LabelID = &id
	}
	return &cp
}
