package models

import (
	"gorm.io/gorm"
)

// ScanRecord is the persisted snapshot of one completed meal-photo analysis,
// kept for history views and regressor retraining.
type ScanRecord struct {
	gorm.Model
	PublicID string `gorm:"type:varchar(36);uniqueIndex;not null"`

	TimeOfDay     string
	FoodsDetected string // comma-separated knowledge-base keys
	Method        string // model|fallback_color|external_api|demo_exact

	TotalCarbs    float64
	TotalProtein  float64
	TotalFat      float64
	TotalFiber    float64
	TotalCalories float64
	GlycemicLoad  float64

	RiskLevel          string
	PredictedGlucose1h *float64
	PredictedGlucose2h *float64
}
