package models

import (
	"time"
)

// QuickMessage は定型文（ショートカット付き）
type QuickMessage struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Emoji     string    `json:"emoji"`
	Category  string    `json:"category"`
	Shortcut  string    `json:"shortcut"`
	Order     int       `json:"order"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
