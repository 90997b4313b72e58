package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"

	"dashboard/config"
	"dashboard/controllers"
	"dashboard/routes"
	"dashboard/services"
)

func main() {
	gin.SetMode(gin.ReleaseMode)

	registry := services.NewRegistry()
	hub := services.NewHub(registry)
	registry.SetHub(hub)

	// 会話リポジトリ（未設定ならメモリのみで動作）
	if endpoint := config.GetDynamoEndpoint(); endpoint != "" {
		store, err := services.NewDynamoConversationStore(context.Background(), endpoint)
		if err != nil {
			log.Fatalf("Failed to connect to DynamoDB: %v", err)
		}
		registry.SetStore(store)
		if err := registry.LoadFromStore(context.Background()); err != nil {
			log.Printf("Error loading conversations from store: %v", err)
		}
	} else {
		log.Printf("DYNAMODB_ENDPOINT is not set, using in-memory storage only")
	}

	forwarder := services.NewForwarder(config.GetN8NWebhookURL())
	ctl := controllers.New(registry, hub, forwarder)
	ctl.Suggest = services.NewSuggestService(config.GetOpenAIKey())

	// 定型文・ラベル・サービスオーダー（未設定ならその機能は503）
	if uri := config.GetPostgresURI(); uri != "" {
		db, err := services.NewPostgresDB(uri)
		if err != nil {
			log.Fatalf("Failed to connect to postgres: %v", err)
		}
		ctl.QuickMessages = services.NewQuickMessageStore(db)
		ctl.Labels = services.NewLabelStore(db)
		ctl.ServiceOrders = services.NewServiceOrderStore(db)
	} else {
		log.Printf("DATABASE_URL is not set, quick messages and service orders are disabled")
	}

	router := routes.SetupRouter(ctl)

	port := ":" + config.GetPort()
	log.Printf("Server starting on port %s", port)
	log.Printf("Webhook endpoint: http://localhost%s/api/webhook/message", port)
	if err := router.Run(port); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
