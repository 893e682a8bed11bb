package models

import (
	"gorm.io/gorm"
)

// Feedback entry types.
const (
	FeedbackFoodCorrection    = "food_correction"
	FeedbackPortionCorrection = "portion_correction"
	FeedbackGlucoseActual     = "glucose_actual"
)

// FeedbackEntry records one user correction or actual glucose measurement
// for the model-improvement loop. Which columns are populated depends on
// Type.
type FeedbackEntry struct {
	gorm.Model
	PublicID string `gorm:"type:varchar(36);uniqueIndex;not null"`
	Type     string `gorm:"index;not null"`
	UserID   string

	// food_correction
	ImagePath      string
	DetectedFoods  string // comma-separated
	CorrectedFoods string

	// portion_correction
	FoodName         string
	DetectedPortion  string
	CorrectedPortion string

	// glucose_actual
	ScanID             string
	PredictedGlucose1h float64
	PredictedGlucose2h float64
	ActualGlucose1h    *float64
	ActualGlucose2h    *float64
	Error1h            *float64
	Error2h            *float64
}
