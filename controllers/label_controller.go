package controllers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"dashboard/models"
)

func (ctl *Controllers) GetLabels(c *gin.Context) {
	if ctl.Labels == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database is not configured"})
		return
	}

	labels, err := ctl.Labels.FindAll(c.Request.Context())
	if err != nil {
		log.Printf("Error fetching labels: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch labels"})
		return
	}
	c.JSON(http.StatusOK, labels)
}

func (ctl *Controllers) CreateLabel(c *gin.Context) {
	if ctl.Labels == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database is not configured"})
		return
	}

	var request struct {
		Name  string `json:"name" binding:"required"`
		Color string `json:"color"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	created, err := ctl.Labels.Create(c.Request.Context(), models.Label{
		Name:  request.Name,
		Color: request.Color,
	})
	if err != nil {
		log.Printf("Error creating label: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create label"})
		return
	}
	c.JSON(http.StatusOK, created)
}

func (ctl *Controllers) DeleteLabel(c *gin.Context) {
	if ctl.Labels == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database is not configured"})
		return
	}

	ok, err := ctl.Labels.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		log.Printf("Error deleting label: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete label"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Label not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
