package controllers

import (
	"net/http"

	"github.com/Nishaa1304/GlucoSage/services"

	"github.com/gin-gonic/gin"
)

type HealthController struct {
	KB      *services.KnowledgeBase
	Demo    *services.DemoMapper
	Glucose *services.GlucoseService
}

func NewHealthController(kb *services.KnowledgeBase, demo *services.DemoMapper, glucose *services.GlucoseService) *HealthController {
	return &HealthController{KB: kb, Demo: demo, Glucose: glucose}
}

// GET /health
func (hc *HealthController) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":            "ok",
		"foods_in_database": hc.KB.FoodCount(),
		"demo_mappings":     hc.Demo.Count(),
		"glucose_model":     hc.Glucose.Configured(),
	})
}
