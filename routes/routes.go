package routes

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"dashboard/controllers"
	"dashboard/middlewares"
)

func SetupRouter(ctl *controllers.Controllers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithWriter(os.Stdout))
	r.Use(middlewares.Logger())

	// CORSの設定
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// n8nからの受信Webhook
	r.POST("/api/webhook/message", ctl.HandleWebhookMessage)

	// 会話
	r.GET("/api/conversations", ctl.GetConversations)
	r.GET("/api/conversations/:userId", ctl.GetConversation)
	r.POST("/api/conversations/:userId/read", ctl.MarkConversationRead)
	r.POST("/api/conversations/:userId/send", ctl.SendMessage)
	r.PUT("/api/conversations/:userId/hold", ctl.SetConversationOnHold)
	r.PUT("/api/conversations/:userId/label", ctl.SetConversationLabel)
	r.GET("/api/conversations/:userId/suggest", ctl.SuggestReply)
	r.GET("/api/conversations/:userId/service-orders", ctl.GetServiceOrdersByUser)

	// 定型文
	r.GET("/api/quick-messages", ctl.GetQuickMessages)
	r.POST("/api/quick-messages", ctl.CreateQuickMessage)
	r.PUT("/api/quick-messages/:id", ctl.UpdateQuickMessage)
	r.DELETE("/api/quick-messages/:id", ctl.DeleteQuickMessage)

	// ラベル
	r.GET("/api/labels", ctl.GetLabels)
	r.POST("/api/labels", ctl.CreateLabel)
	r.DELETE("/api/labels/:id", ctl.DeleteLabel)

	// サービスオーダー
	r.GET("/api/service-orders", ctl.GetServiceOrders)
	r.POST("/api/service-orders", ctl.CreateServiceOrder)
	r.PUT("/api/service-orders/:id/status", ctl.UpdateServiceOrderStatus)

	// プッシュチャネル
	r.GET("/ws", ctl.Hub.ServeWS)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return r
}
