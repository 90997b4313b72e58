package models

import (
	"time"

	"github.com/lib/pq"
)

// ConversationDigest は会話ダイジェストのPostgreSQL上のレコード
type ConversationDigest struct {
	ID           string          `json:"id"`
	UserID       string          `json:"userId"`
	Digest       string          `json:"digest"`
	Vector       pq.Float64Array `json:"vector,omitempty"`
	MessageCount int             `json:"messageCount"`
	PeriodStart  time.Time       `json:"periodStart"`
	PeriodEnd    time.Time       `json:"periodEnd"`
	CreatedAt    time.Time       `json:"createdAt"`
}
