package services

import (
	"math"

	"github.com/Nishaa1304/GlucoSage/utils"
)

// RiskLevel classifies the expected post-meal glucose impact.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
)

// Advice is the risk classification plus the pre-authored guidance bundle.
type Advice struct {
	RiskLevel      RiskLevel `json:"risk_level"`
	Icon           string    `json:"icon"`
	Message        string    `json:"message"`
	Suggestions    []string  `json:"suggestions"`
	PredictedSpike float64   `json:"predicted_spike"`
	TimeAdvice     string    `json:"time_advice"`
	IdealFoods     []string  `json:"ideal_foods"`
	FoodsToAvoid   []string  `json:"foods_to_avoid"`
}

// AdviceService classifies aggregate risk and emits guidance. All message
// content is a pure knowledge-base lookup; only the tier choice is computed.
type AdviceService struct {
	kb *KnowledgeBase
}

func NewAdviceService(kb *KnowledgeBase) *AdviceService {
	return &AdviceService{kb: kb}
}

// Evaluate classifies a nutrition summary, using the regressor's 2-hour
// prediction when available and the GL-based estimate 100 + GL*3 otherwise.
//
// A tier requires all three of its thresholds to hold strictly: carbs<40,
// GL<20 and spike<140 for low; carbs<60, GL<30 and spike<180 for moderate;
// anything else is high.
func (s *AdviceService) Evaluate(summary *NutritionSummary, prediction *GlucosePrediction) (*Advice, error) {
	spike := 100 + summary.GlycemicLoad*3
	if prediction != nil {
		spike = prediction.PredictedGlucose2h
	}

	var risk RiskLevel
	var tierName string
	switch {
	case summary.TotalCarbs < 40 && summary.GlycemicLoad < 20 && spike < 140:
		risk, tierName = RiskLow, "lowRisk"
	case summary.TotalCarbs < 60 && summary.GlycemicLoad < 30 && spike < 180:
		risk, tierName = RiskModerate, "moderateRisk"
	default:
		risk, tierName = RiskHigh, "highRisk"
	}

	tier, ok := s.kb.AdviceTier(tierName)
	if !ok {
		return nil, utils.NewDataIntegrityError("adviceEngine", "missing %s tier", tierName)
	}
	timeRec, ok := s.kb.TimeRecommendation(summary.TimeOfDay)
	if !ok {
		return nil, utils.NewDataIntegrityError("timeBasedRecommendations", "missing %s entry", summary.TimeOfDay)
	}

	return &Advice{
		RiskLevel:      risk,
		Icon:           tier.Icon,
		Message:        tier.Message,
		Suggestions:    tier.Suggestions,
		PredictedSpike: math.Round(spike),
		TimeAdvice:     timeRec.Note,
		IdealFoods:     timeRec.IdealFoods,
		FoodsToAvoid:   timeRec.Avoid,
	}, nil
}
