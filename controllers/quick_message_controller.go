package controllers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"dashboard/models"
)

// GetQuickMessages は有効な定型文を表示順で返します
func (ctl *Controllers) GetQuickMessages(c *gin.Context) {
	if ctl.QuickMessages == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database is not configured"})
		return
	}

	messages, err := ctl.QuickMessages.FindAll(c.Request.Context())
	if err != nil {
		log.Printf("Error fetching quick messages: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch quick messages"})
		return
	}
	c.JSON(http.StatusOK, messages)
}

func (ctl *Controllers) CreateQuickMessage(c *gin.Context) {
	if ctl.QuickMessages == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database is not configured"})
		return
	}

	var request struct {
		Text     string `json:"text" binding:"required"`
		Emoji    string `json:"emoji"`
		Category string `json:"category"`
		Shortcut string `json:"shortcut"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}

	created, err := ctl.QuickMessages.Create(c.Request.Context(), models.QuickMessage{
		Text:     request.Text,
		Emoji:    request.Emoji,
		Category: request.Category,
		Shortcut: request.Shortcut,
	})
	if err != nil {
		log.Printf("Error creating quick message: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create quick message"})
		return
	}
	c.JSON(http.StatusOK, created)
}

func (ctl *Controllers) UpdateQuickMessage(c *gin.Context) {
	if ctl.QuickMessages == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database is not configured"})
		return
	}

	var request models.QuickMessage
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ok, err := ctl.QuickMessages.Update(c.Request.Context(), c.Param("id"), request)
	if err != nil {
		log.Printf("Error updating quick message: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update quick message"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Quick message not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (ctl *Controllers) DeleteQuickMessage(c *gin.Context) {
	if ctl.QuickMessages == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database is not configured"})
		return
	}

	ok, err := ctl.QuickMessages.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		log.Printf("Error deleting quick message: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete quick message"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Quick message not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
