package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dashboard/services"
)

// GetConversations は全会話を最終更新の新しい順で返します
func (ctl *Controllers) GetConversations(c *gin.Context) {
	c.JSON(http.StatusOK, ctl.Registry.List())
}

// GetConversation は1会話を返します。元の設計どおり閲覧と同時に既読化する
// （互換のため維持。既読化だけ行いたい場合はMarkConversationReadを使う）。
func (ctl *Controllers) GetConversation(c *gin.Context) {
	userID := c.Param("userId")

	conversation, ok := ctl.Registry.Open(userID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		return
	}

	c.JSON(http.StatusOK, conversation)
}

// MarkConversationRead は未読数を0にします。対象がなくても404のみでエラーにしない。
func (ctl *Controllers) MarkConversationRead(c *gin.Context) {
	userID := c.Param("userId")

	if !ctl.Registry.MarkRead(userID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// SendMessage は担当者の手動返信。ローカルへの追記と配信を済ませてから、
// n8nへの転送を非同期のbest-effortで行います。
func (ctl *Controllers) SendMessage(c *gin.Context) {
	userID := c.Param("userId")

	var request struct {
		Message string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	conversation, ok := ctl.Registry.Get(userID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		return
	}

	_, msg := ctl.Registry.UpsertMessage(userID, conversation.UserName, services.IncomingMessage{
		Text:    request.Message,
		IsBot:   false,
		IsAgent: true,
	})

	if ctl.Forwarder != nil {
		go ctl.Forwarder.ForwardAgentMessage(services.AgentMessagePayload{
			UserID:    userID,
			UserName:  conversation.UserName,
			Message:   request.Message,
			MessageID: msg.ID,
			Timestamp: msg.Timestamp,
		})
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "messageId": msg.ID})
}

// SetConversationOnHold は保留フラグを切り替えます
func (ctl *Controllers) SetConversationOnHold(c *gin.Context) {
	userID := c.Param("userId")

	var request struct {
		OnHold *bool `json:"onHold" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "onHold is required"})
		return
	}

	conversation, ok := ctl.Registry.SetOnHold(userID, *request.OnHold)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		return
	}

	c.JSON(http.StatusOK, conversation)
}

// SetConversationLabel はラベルを設定します（labelId: nullで解除）
func (ctl *Controllers) SetConversationLabel(c *gin.Context) {
	userID := c.Param("userId")

	var request struct {
		LabelID *string `json:"labelId"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conversation, ok := ctl.Registry.SetLabel(userID, request.LabelID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		return
	}

	c.JSON(http.StatusOK, conversation)
}

// SuggestReply は会話履歴から返信候補を生成します
func (ctl *Controllers) SuggestReply(c *gin.Context) {
	if ctl.Suggest == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "suggestion service is not configured"})
		return
	}

	userID := c.Param("userId")
	conversation, ok := ctl.Registry.Get(userID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		return
	}

	reply, err := ctl.Suggest.SuggestReply(c.Request.Context(), conversation)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate suggestion"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"suggestion": reply})
}
