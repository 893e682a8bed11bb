package services

import (
	"log"
	"math"

	"github.com/Nishaa1304/GlucoSage/utils"
)

// TimeOfDay tags a meal with one of the four recognized day segments.
const (
	TimeMorning   = "morning"
	TimeAfternoon = "afternoon"
	TimeEvening   = "evening"
	TimeNight     = "night"
)

// UserProfile carries the optional per-user glycemic adjustments. Empty
// fields are neutral (multiplier 1.0).
type UserProfile struct {
	ActivityLevel string `json:"activityLevel"`
	DiabetesType  string `json:"diabetesType"`
	Medication    string `json:"medication"`
}

// FoodDetail is the per-item breakdown inside a NutritionSummary.
type FoodDetail struct {
	Name    string  `json:"name"`
	Portion string  `json:"portion"`
	Carbs   float64 `json:"carbs"`
	GL      float64 `json:"gl"`
	Weight  float64 `json:"weight"`
}

// NutritionSummary is the aggregate of a meal's detections. Derived per
// request, never persisted as-is.
type NutritionSummary struct {
	TotalCarbs        float64      `json:"total_carbs"`
	TotalProtein      float64      `json:"total_protein"`
	TotalFat          float64      `json:"total_fat"`
	TotalFiber        float64      `json:"total_fiber"`
	TotalCalories     float64      `json:"total_calories"`
	GlycemicLoad      float64      `json:"glycemic_load"`
	TimeOfDay         string       `json:"time_of_day"`
	FoodDetails       []FoodDetail `json:"food_details"`
	CombinationEffect float64      `json:"combination_effect"`
	SkippedItems      []string     `json:"skipped_items,omitempty"`
}

// Combined combination + profile multipliers are clamped here so stacked
// rules cannot drive the glycemic load arbitrarily low.
const glMultiplierFloor = 0.5

// NutritionService sums per-item nutrition and applies the glycemic-load
// adjustment rules.
type NutritionService struct {
	kb *KnowledgeBase
}

func NewNutritionService(kb *KnowledgeBase) *NutritionService {
	return &NutritionService{kb: kb}
}

// NormalizeTimeOfDay validates the tag, defaulting an empty one to afternoon.
func NormalizeTimeOfDay(timeOfDay string) (string, error) {
	switch timeOfDay {
	case "":
		return TimeAfternoon, nil
	case TimeMorning, TimeAfternoon, TimeEvening, TimeNight:
		return timeOfDay, nil
	default:
		return "", utils.NewInputError("unknown time_of_day %q", timeOfDay)
	}
}

// Aggregate builds a NutritionSummary from canonical detections. Unknown food
// keys are skipped (flagged, not fatal); a structurally broken record aborts.
func (s *NutritionService) Aggregate(detections []Detection, timeOfDay string, profile *UserProfile) (*NutritionSummary, error) {
	timeOfDay, err := NormalizeTimeOfDay(timeOfDay)
	if err != nil {
		return nil, err
	}

	var totalCarbs, totalProtein, totalFat, totalFiber, totalCalories, weightedGL float64
	details := make([]FoodDetail, 0, len(detections))
	var skipped []string
	detectedItems := make([]string, 0, len(detections))

	for _, det := range detections {
		detectedItems = append(detectedItems, det.Item)

		food, ok := s.kb.Food(det.Item)
		if !ok {
			log.Printf("warning: %s not in nutrition database, skipping", det.Item)
			skipped = append(skipped, det.Item)
			continue
		}
		portion, ok := food.Portion(string(det.PortionSize))
		if !ok {
			log.Printf("warning: %s has no %s portion entry, skipping", det.Item, det.PortionSize)
			skipped = append(skipped, det.Item)
			continue
		}

		refGrams := food.ReferenceServingGrams()
		if refGrams <= 0 {
			return nil, utils.NewDataIntegrityError(det.Item+".servingSize", "reference serving grams not resolved")
		}
		scale := portion.Weight / refGrams

		adjustedGL := portion.GL * food.TimeMultiplier(timeOfDay)

		totalCarbs += portion.Carbs
		weightedGL += adjustedGL
		totalProtein += food.Protein * scale
		totalFat += food.Fat * scale
		totalFiber += food.Fiber * scale
		totalCalories += food.Calories * scale

		details = append(details, FoodDetail{
			Name:    det.Item,
			Portion: string(det.PortionSize),
			Carbs:   round1(portion.Carbs),
			GL:      round1(adjustedGL),
			Weight:  portion.Weight,
		})
	}

	combination := s.combinationEffect(detectedItems)
	multiplier := combination * s.profileMultiplier(profile)
	if multiplier < glMultiplierFloor {
		log.Printf("warning: stacked GL multipliers reached %.3f, clamping to %.1f", multiplier, glMultiplierFloor)
		multiplier = glMultiplierFloor
	}
	glycemicLoad := weightedGL * multiplier

	summary := &NutritionSummary{
		TotalCarbs:        round1(totalCarbs),
		TotalProtein:      round1(totalProtein),
		TotalFat:          round1(totalFat),
		TotalFiber:        round1(totalFiber),
		TotalCalories:     math.Round(totalCalories),
		GlycemicLoad:      round1(glycemicLoad),
		TimeOfDay:         timeOfDay,
		FoodDetails:       details,
		CombinationEffect: combination,
		SkippedItems:      skipped,
	}
	if err := summary.checkSane(); err != nil {
		return nil, err
	}
	return summary, nil
}

// combinationEffect multiplies the giReduction of every rule whose full
// combination is present. Several rules may apply; there is no precedence
// beyond plain multiplication.
func (s *NutritionService) combinationEffect(detectedItems []string) float64 {
	present := make(map[string]bool, len(detectedItems))
	for _, item := range detectedItems {
		present[item] = true
	}

	modifier := 1.0
	for _, rule := range s.kb.CombinationRules() {
		all := true
		for _, item := range rule.Combination {
			if !present[item] {
				all = false
				break
			}
		}
		if all {
			modifier *= rule.GIReduction
		}
	}
	return modifier
}

// profileMultiplier folds the activity, diabetes and medication multipliers
// together; absent fields stay neutral.
func (s *NutritionService) profileMultiplier(profile *UserProfile) float64 {
	if profile == nil {
		return 1.0
	}
	adj := s.kb.ProfileAdjustments()
	m := 1.0
	if profile.ActivityLevel != "" {
		if a, ok := adj.ActivityLevel[profile.ActivityLevel]; ok {
			m *= a.Multiplier
		}
	}
	if profile.DiabetesType != "" {
		if a, ok := adj.DiabetesType[profile.DiabetesType]; ok {
			m *= a.Multiplier
		}
	}
	if profile.Medication != "" {
		if a, ok := adj.MedicationEffect[profile.Medication]; ok {
			m *= a.GLReduction
		}
	}
	return m
}

// checkSane rejects corrupted outputs instead of clamping them: NaN or
// negative totals can only come from a broken knowledge-base entry.
func (n *NutritionSummary) checkSane() error {
	for _, v := range []struct {
		name  string
		value float64
	}{
		{"total_carbs", n.TotalCarbs},
		{"total_protein", n.TotalProtein},
		{"total_fat", n.TotalFat},
		{"total_fiber", n.TotalFiber},
		{"total_calories", n.TotalCalories},
		{"glycemic_load", n.GlycemicLoad},
	} {
		if math.IsNaN(v.value) || v.value < 0 {
			return utils.NewDataIntegrityError(v.name, "computed %v from knowledge-base data", v.value)
		}
	}
	return nil
}
