package config

import (
	"os"
)

func GetPort() string {
	port := os.Getenv("PORT")
	if port == "" {
		port = "3001"
	}
	return port
}

// GetN8NWebhookURL は担当者返信の転送先。未設定なら転送しない。
func GetN8NWebhookURL() string {
	return os.Getenv("N8N_WEBHOOK_URL")
}

func GetOpenAIKey() string {
	return os.Getenv("OPENAI_API_KEY")
}

// GetPostgresURI はクイックメッセージ等の保存先。未設定ならその機能は無効。
func GetPostgresURI() string {
	return os.Getenv("DATABASE_URL")
}

// GetDynamoEndpoint は会話リポジトリのエンドポイント。未設定ならメモリのみで動作。
func GetDynamoEndpoint() string {
	return os.Getenv("DYNAMODB_ENDPOINT")
}
