package config

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

type pinger interface {
	PingContext(ctx context.Context) error
}

type closer interface {
	IsClosed() bool
}

type connector interface {
	IsConnected() bool
}

type viewCounter interface {
	Len() int
}

type HealthChecker struct {
	db       pinger
	amqpConn closer
	mqtt     connector
	views    viewCounter
}

func NewHealthChecker(db pinger, amqpConn closer, mqttClient connector, views viewCounter) *HealthChecker {
	return &HealthChecker{db: db, amqpConn: amqpConn, mqtt: mqttClient, views: views}
}

func (h *HealthChecker) Register(r *gin.Engine) {
	r.GET("/healthz", h.Handle)
}

func (h *HealthChecker) Handle(c *gin.Context) {
	status := http.StatusOK
	deps := gin.H{}

	if err := h.db.PingContext(c.Request.Context()); err != nil {
		deps["postgres"] = gin.H{"status": "down", "error": err.Error()}
		status = http.StatusServiceUnavailable
	} else {
		deps["postgres"] = gin.H{"status": "up"}
	}

	if h.amqpConn.IsClosed() {
		deps["rabbitmq"] = gin.H{"status": "down", "error": "connection closed"}
		status = http.StatusServiceUnavailable
	} else {
		deps["rabbitmq"] = gin.H{"status": "up"}
	}

	if !h.mqtt.IsConnected() {
		deps["mqtt"] = gin.H{"status": "down", "error": "not connected"}
		status = http.StatusServiceUnavailable
	} else {
		deps["mqtt"] = gin.H{"status": "up"}
	}

	overall := "healthy"
	if status != http.StatusOK {
		overall = "unhealthy"
	}

	body := gin.H{
		"status":       overall,
		"dependencies": deps,
	}
	if h.views != nil {
		body["open_views"] = h.views.Len()
	}
	c.JSON(status, body)
}
