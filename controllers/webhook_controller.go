package controllers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"dashboard/models"
	"dashboard/services"
)

// HandleWebhookMessage はn8nからの受信Webhook。バリデーションに通れば
// レジストリへ追記し、配信まで済ませてからメッセージIDを返します。
func (ctl *Controllers) HandleWebhookMessage(c *gin.Context) {
	var request struct {
		UserID    string `json:"userId" binding:"required"`
		UserName  string `json:"userName"`
		Message   string `json:"message" binding:"required"`
		Type      string `json:"type"`
		FileName  string `json:"fileName"`
		IsBot     *bool  `json:"isBot"`
		Timestamp string `json:"timestamp"`
	}

	if err := c.ShouldBindJSON(&request); err != nil {
		log.Printf("Error binding webhook payload: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId and message are required"})
		return
	}

	if !models.ValidMessageKind(request.Type) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type must be text, audio or file"})
		return
	}

	// isBot未指定はtrue扱い（自動化プラットフォーム発のメッセージが既定）
	isBot := true
	if request.IsBot != nil {
		isBot = *request.IsBot
	}

	_, msg := ctl.Registry.UpsertMessage(request.UserID, request.UserName, services.IncomingMessage{
		Text:      request.Message,
		Kind:      request.Type,
		FileName:  request.FileName,
		IsBot:     isBot,
		Timestamp: request.Timestamp,
	})

	c.JSON(http.StatusOK, gin.H{"success": true, "messageId": msg.ID})
}
