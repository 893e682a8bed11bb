package controllers

import (
	"net/http"

	"github.com/Nishaa1304/GlucoSage/models"
	"github.com/Nishaa1304/GlucoSage/services"

	"github.com/gin-gonic/gin"
)

type FeedbackController struct {
	Feedback *services.FeedbackService
}

func NewFeedbackController(feedback *services.FeedbackService) *FeedbackController {
	return &FeedbackController{Feedback: feedback}
}

// POST /api/v1/feedback
// One endpoint, discriminated by feedback_type. Only the fields for the
// chosen type are read.
func (fc *FeedbackController) Submit(c *gin.Context) {
	var req struct {
		FeedbackType string `json:"feedback_type" binding:"required"`
		UserID       string `json:"user_id"`

		ImagePath      string   `json:"image_path"`
		DetectedFoods  []string `json:"detected_foods"`
		CorrectedFoods []string `json:"corrected_foods"`

		FoodName         string `json:"food_name"`
		DetectedPortion  string `json:"detected_portion"`
		CorrectedPortion string `json:"corrected_portion"`

		ScanID             string   `json:"scan_id"`
		PredictedGlucose1h float64  `json:"predicted_glucose_1h"`
		PredictedGlucose2h float64  `json:"predicted_glucose_2h"`
		ActualGlucose1h    *float64 `json:"actual_glucose_1h"`
		ActualGlucose2h    *float64 `json:"actual_glucose_2h"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
		return
	}

	ctx := c.Request.Context()
	var entry any
	var err error
	switch req.FeedbackType {
	case models.FeedbackFoodCorrection:
		entry, err = fc.Feedback.RecordFoodCorrection(ctx, req.UserID, req.ImagePath, req.DetectedFoods, req.CorrectedFoods)
	case models.FeedbackPortionCorrection:
		entry, err = fc.Feedback.RecordPortionCorrection(ctx, req.UserID, req.FoodName, req.DetectedPortion, req.CorrectedPortion)
	case models.FeedbackGlucoseActual:
		entry, err = fc.Feedback.RecordGlucoseActual(ctx, req.UserID, req.ScanID, req.PredictedGlucose1h, req.PredictedGlucose2h, req.ActualGlucose1h, req.ActualGlucose2h)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown feedback_type: " + req.FeedbackType})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"feedback": entry})
}

// GET /api/v1/feedback/summary?days=30
func (fc *FeedbackController) Summary(c *gin.Context) {
	days := 30
	if v := c.Query("days"); v != "" {
		if n, err := atoiPositive(v); err == nil {
			days = n
		}
	}
	summary, err := fc.Feedback.Summary(c.Request.Context(), days)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
