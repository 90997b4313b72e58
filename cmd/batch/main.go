// cmd/batch/main.go
package main

import (
	"context"
	"log"
	"time"

	"dashboard/config"
	"dashboard/services"
)

func main() {
	postgresURI := config.GetPostgresURI()
	if postgresURI == "" {
		log.Fatal("DATABASE_URL is required for the digest batch")
	}

	ctx := context.Background()
	store, err := services.NewDynamoConversationStore(ctx, config.GetDynamoEndpoint())
	if err != nil {
		log.Fatalf("Failed to connect to DynamoDB: %v", err)
	}

	// 起動直後はDBが立ち上がり切っていないことがあるので数回リトライする
	var processor *services.DigestProcessor
	for i := 0; i < 3; i++ {
		processor, err = services.NewDigestProcessor(postgresURI, store, config.GetOpenAIKey())
		if err == nil {
			break
		}
		log.Printf("Attempt %d: Failed to create digest processor: %v", i+1, err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		log.Fatalf("Failed to create digest processor after retries: %v", err)
	}
	defer processor.Close()

	log.Println("Starting digest processing service...")

	run := func() {
		if err := processor.ProcessDigests(ctx, time.Now().Add(-3*time.Hour)); err != nil {
			log.Printf("Error processing digests: %v", err)
		}
	}

	// 初回実行
	run()

	// 定期実行の設定
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		log.Println("Starting scheduled digest processing...")
		run()
		log.Println("Digest processing completed")
	}
}
