package controllers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"dashboard/models"
)

func (ctl *Controllers) GetServiceOrders(c *gin.Context) {
	if ctl.ServiceOrders == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database is not configured"})
		return
	}

	orders, err := ctl.ServiceOrders.FindAll(c.Request.Context())
	if err != nil {
		log.Printf("Error fetching service orders: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch service orders"})
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (ctl *Controllers) GetServiceOrdersByUser(c *gin.Context) {
	if ctl.ServiceOrders == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database is not configured"})
		return
	}

	orders, err := ctl.ServiceOrders.FindByUserID(c.Request.Context(), c.Param("userId"))
	if err != nil {
		log.Printf("Error fetching service orders: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch service orders"})
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (ctl *Controllers) CreateServiceOrder(c *gin.Context) {
	if ctl.ServiceOrders == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database is not configured"})
		return
	}

	var request struct {
		UserID       string  `json:"userId" binding:"required"`
		Description  string  `json:"descricao"`
		Status       string  `json:"status"`
		ServiceValue float64 `json:"valorServico"`
		PartsValue   float64 `json:"valorPecas"`
		Discount     float64 `json:"desconto"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
		return
	}

	created, err := ctl.ServiceOrders.Create(c.Request.Context(), models.ServiceOrder{
		UserID:       request.UserID,
		Description:  request.Description,
		Status:       request.Status,
		ServiceValue: request.ServiceValue,
		PartsValue:   request.PartsValue,
		Discount:     request.Discount,
	})
	if err != nil {
		log.Printf("Error creating service order: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create service order"})
		return
	}
	c.JSON(http.StatusOK, created)
}

func (ctl *Controllers) UpdateServiceOrderStatus(c *gin.Context) {
	if ctl.ServiceOrders == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database is not configured"})
		return
	}

	var request struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
		return
	}

	ok, err := ctl.ServiceOrders.UpdateStatus(c.Request.Context(), c.Param("id"), request.Status)
	if err != nil {
		log.Printf("Error updating service order: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update service order"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Service order not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
