package controllers

import (
	"net/http"

	"github.com/Nishaa1304/GlucoSage/services"

	"github.com/gin-gonic/gin"
)

type GlucoseController struct {
	Glucose *services.GlucoseService
}

func NewGlucoseController(glucose *services.GlucoseService) *GlucoseController {
	return &GlucoseController{Glucose: glucose}
}

// POST /api/v1/glucose/predict
// Predicts the post-meal glucose curve for an already-analyzed meal.
func (gc *GlucoseController) Predict(c *gin.Context) {
	var meal services.MealData
	if err := c.ShouldBindJSON(&meal); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
		return
	}

	prediction, err := gc.Glucose.Predict(c.Request.Context(), meal)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, prediction)
}

// POST /api/v1/glucose/features
// Returns the encoded feature vector for a meal without calling the
// regressor. Useful to debug what the model would see.
func (gc *GlucoseController) Features(c *gin.Context) {
	var meal services.MealData
	if err := c.ShouldBindJSON(&meal); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"feature_names": services.FeatureNames,
		"features":      services.EncodeFeatures(meal),
	})
}
