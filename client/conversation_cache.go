package client

import (
	"sync"
	"time"

	"dashboard/models"
)

// DefaultConversationMaxAge は会話キャッシュの既定の有効期間
const DefaultConversationMaxAge = 5 * time.Minute

type conversationEntry struct {
	data      *models.Conversation
	timestamp time.Time
}

// ConversationCache は読み込み済みの会話を保持し、
// 同じ会話を何度も取得しないようにします。
type ConversationCache struct {
	mu      sync.Mutex
	entries map[string]conversationEntry
	loading map[string]bool
}

func NewConversationCache() *ConversationCache {
	return &ConversationCache{
		entries: make(map[string]conversationEntry),
		loading: make(map[string]bool),
	}
}

func (c *ConversationCache) Has(userID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[userID]
	return ok
}

func (c *ConversationCache) Get(userID string) (*models.Conversation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[userID]
	if !ok {
		return nil, false
	}
	return entry.data.Clone(), true
}

func (c *ConversationCache) Set(userID string, conv *models.Conversation) {
	c.mu.Lock()
	c.entries[userID] = conversationEntry{data: conv.Clone(), timestamp: time.Now()}
	c.mu.Unlock()
}

func (c *ConversationCache) Remove(userID string) {
	c.mu.Lock()
	delete(c.entries, userID)
	c.mu.Unlock()
}

func (c *ConversationCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]conversationEntry)
	c.loading = make(map[string]bool)
	c.mu.Unlock()
}

func (c *ConversationCache) IsLoading(userID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading[userID]
}

func (c *ConversationCache) MarkLoading(userID string) {
	c.mu.Lock()
	c.loading[userID] = true
	c.mu.Unlock()
}

func (c *ConversationCache) ClearLoading(userID string) {
	c.mu.Lock()
	delete(c.loading, userID)
	c.mu.Unlock()
}

// UpdateMessages はキャッシュ済み会話のメッセージ列だけ差し替えます。
// プッシュイベントで届いた最新状態をマージするのに使う。
func (c *ConversationCache) UpdateMessages(userID string, messages []models.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[userID]
	if !ok {
		return
	}
	entry.data.Messages = append([]models.Message(nil), messages...)
	c.entries[userID] = entry
}

// IsStale は取得からmaxAge以上経っているか（未取得含む）を返します
func (c *ConversationCache) IsStale(userID string, maxAge time.Duration) bool {
	if maxAge == 0 {
		maxAge = DefaultConversationMaxAge
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[userID]
	if !ok {
		return true
	}
	return time.Since(entry.timestamp) > maxAge
}
