package services

import (
	"log"
	"time"

	"github.com/go-resty/resty/v2"
)

// AgentMessagePayload は自動化プラットフォームへ転送する担当者返信
type AgentMessagePayload struct {
	UserID    string `json:"userId"`
	UserName  string `json:"userName"`
	Message   string `json:"message"`
	IsAgent   bool   `json:"isAgent"`
	MessageID string `json:"messageId"`
	Timestamp string `json:"timestamp"`
	Source    string `json:"source"`
}

// Forwarder はn8nのWebhookへ担当者返信をbest-effortで転送します。
// ローカルの書き込みが正であり、転送失敗はログに残すだけで呼び出し元には影響しない。
type Forwarder struct {
	client     *resty.Client
	webhookURL string
}

func NewForwarder(webhookURL string) *Forwarder {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(1 * time.Second)
	return &Forwarder{client: client, webhookURL: webhookURL}
}

// ForwardAgentMessage は転送を実行します。非同期で呼ぶこと。
func (f *Forwarder) ForwardAgentMessage(payload AgentMessagePayload) {
	if f.webhookURL == "" {
		return
	}

	payload.IsAgent = true
	payload.Source = "dashboard"

	resp, err := f.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(f.webhookURL)
	if err != nil {
		log.Printf("Failed to forward agent message to n8n: %v", err)
		return
	}
	if !resp.IsSuccess() {
		log.Printf("n8n webhook returned status %d", resp.StatusCode())
		return
	}
	log.Printf("Agent message %s forwarded to n8n", payload.MessageID)
}
