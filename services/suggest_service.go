package services

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"dashboard/models"
)

// SuggestService は会話履歴から担当者向けの返信候補を生成します
type SuggestService struct {
	client *openai.Client
}

// NewSuggestService はAPIキーが未設定ならnilを返します（機能無効）
func NewSuggestService(apiKey string) *SuggestService {
	if apiKey == "" {
		return nil
	}
	return &SuggestService{client: openai.NewClient(apiKey)}
}

const suggestHistoryLimit = 10

// SuggestReply は直近の履歴をもとに返信候補を1件生成します
func (s *SuggestService) SuggestReply(ctx context.Context, conv *models.Conversation) (string, error) {
	messages := []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: "あなたはカスタマーサポートの担当者です。以下の会話を踏まえて、次に送る返信の候補を1つ、本文のみで提案してください。",
		},
	}

	history := conv.Messages
	if len(history) > suggestHistoryLimit {
		history = history[len(history)-suggestHistoryLimit:]
	}
	for _, m := range history {
		role := openai.ChatMessageRoleAssistant
		if !m.IsBot && !m.IsAgent {
			role = openai.ChatMessageRoleUser
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: m.Preview(),
		})
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    "gpt-4o-mini",
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %v", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no content in response")
	}
	return resp.Choices[0].Message.Content, nil
}
