package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"
	"github.com/sashabaranov/go-openai"

	"dashboard/models"
)

// DigestProcessor は一定期間に動きのあった会話を要約し、
// 検索用の埋め込みベクトルと一緒にPostgreSQLへ保存します。
type DigestProcessor struct {
	postgresDB *sql.DB
	store      ConversationStore
	openai     *openai.Client
}

func NewDigestProcessor(postgresURI string, store ConversationStore, apiKey string) (*DigestProcessor, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	db, err := NewPostgresDB(postgresURI)
	if err != nil {
		return nil, err
	}

	if err := ensureDigestTable(db); err != nil {
		db.Close()
		return nil, err
	}

	return &DigestProcessor{
		postgresDB: db,
		store:      store,
		openai:     openai.NewClient(apiKey),
	}, nil
}

func ensureDigestTable(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS conversation_digests (
		id SERIAL PRIMARY KEY,
		user_id TEXT NOT NULL,
		digest TEXT NOT NULL,
		vector FLOAT8[],
		message_count INTEGER NOT NULL DEFAULT 0,
		period_start TIMESTAMPTZ NOT NULL,
		period_end TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (user_id, period_start, period_end)
	)`)
	if err != nil {
		return fmt.Errorf("failed to create conversation_digests table: %v", err)
	}
	return nil
}

// ProcessDigests はsince以降に動きのあった会話を処理するメインロジック
func (dp *DigestProcessor) ProcessDigests(ctx context.Context, since time.Time) error {
	now := time.Now()

	conversations, err := dp.store.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load conversations: %v", err)
	}

	for _, conv := range conversations {
		if len(conv.Messages) == 0 {
			continue
		}
		last, err := time.Parse(time.RFC3339, conv.LastTimestamp)
		if err != nil || last.Before(since) {
			continue
		}

		digest, err := dp.summarize(ctx, conv)
		if err != nil {
			log.Printf("Error summarizing conversation %s: %v", conv.UserID, err)
			continue
		}

		vector, err := dp.vectorize(ctx, digest)
		if err != nil {
			log.Printf("Error vectorizing digest for %s: %v", conv.UserID, err)
			continue
		}

		if err := dp.saveDigest(ctx, conv, digest, vector, since, now); err != nil {
			log.Printf("Error saving digest for %s: %v", conv.UserID, err)
			continue
		}

		log.Printf("Successfully processed digest for %s", conv.UserID)
	}

	return nil
}

// summarize は会話の全メッセージをOpenAIに渡して要約を作る
func (dp *DigestProcessor) summarize(ctx context.Context, conv *models.Conversation) (string, error) {
	messages := []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: "以下の顧客対応の会話を、問い合わせ内容と対応状況がわかるように要約してください。",
		},
	}

	for _, msg := range conv.Messages {
		role := openai.ChatMessageRoleAssistant
		if !msg.IsBot && !msg.IsAgent {
			role = openai.ChatMessageRoleUser
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: msg.Preview(),
		})
	}

	resp, err := dp.openai.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    "gpt-4o-mini",
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %v", err)
	}

	return resp.Choices[0].Message.Content, nil
}

func (dp *DigestProcessor) vectorize(ctx context.Context, text string) ([]float64, error) {
	resp, err := dp.openai.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.AdaEmbeddingV2,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding creation failed: %v", err)
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embeddings received")
	}

	embeddings := make([]float64, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		embeddings[i] = float64(v)
	}
	return embeddings, nil
}

func (dp *DigestProcessor) saveDigest(ctx context.Context, conv *models.Conversation, digest string, vector []float64, start, end time.Time) error {
	query := `
        INSERT INTO conversation_digests
        (user_id, digest, vector, message_count, period_start, period_end)
        VALUES ($1, $2, $3::float8[], $4, $5, $6)
        ON CONFLICT (user_id, period_start, period_end)
        DO UPDATE SET
            digest = EXCLUDED.digest,
            vector = EXCLUDED.vector,
            message_count = EXCLUDED.message_count
    `

	_, err := dp.postgresDB.ExecContext(ctx, query, conv.UserID, digest, pq.Float64Array(vector), len(conv.Messages), start, end)
	if err != nil {
		return fmt.Errorf("failed to save to postgres: %v", err)
	}
	return nil
}

// Close は接続を閉じます
func (dp *DigestProcessor) Close() error {
	return dp.postgresDB.Close()
}
