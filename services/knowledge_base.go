package services

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strconv"

	"github.com/Nishaa1304/GlucoSage/utils"

	"github.com/go-playground/validator/v10"
)

// PortionNutrition is one row of a food's portion-size table. Carbs and GL
// come straight from this table; the other nutrients are scaled off the
// reference serving.
type PortionNutrition struct {
	Weight float64 `json:"weight" validate:"gt=0"`
	Carbs  float64 `json:"carbs" validate:"gte=0"`
	GL     float64 `json:"gl" validate:"gte=0"`
}

// FoodRecord is a single entry of the nutrition knowledge base. Immutable
// after load.
type FoodRecord struct {
	DisplayName   string             `json:"displayName" validate:"required"`
	ServingSize   string             `json:"servingSize" validate:"required"`
	Protein       float64            `json:"protein" validate:"gte=0"`
	Fat           float64            `json:"fat" validate:"gte=0"`
	Fiber         float64            `json:"fiber" validate:"gte=0"`
	Calories      float64            `json:"calories" validate:"gte=0"`
	GlycemicIndex float64            `json:"glycemicIndex" validate:"gte=0"`
	PortionSizes  map[string]PortionNutrition `json:"portionSizes" validate:"required,dive"`
	TimeImpact    map[string]float64 `json:"timeImpact"`

	refServingGrams float64
}

// ReferenceServingGrams is the denominator for linear nutrient scaling,
// parsed once at load from the servingSize text.
func (f *FoodRecord) ReferenceServingGrams() float64 { return f.refServingGrams }

// TimeMultiplier returns the glycemic multiplier for a time-of-day tag,
// defaulting to neutral when the food has no entry.
func (f *FoodRecord) TimeMultiplier(timeOfDay string) float64 {
	if m, ok := f.TimeImpact[timeOfDay]; ok {
		return m
	}
	return 1.0
}

// Portion returns the portion-size row for small/medium/large.
func (f *FoodRecord) Portion(size string) (PortionNutrition, bool) {
	p, ok := f.PortionSizes[size]
	return p, ok
}

// CombinationRule applies a glycemic-load discount when every food in the
// combination is present in a meal.
type CombinationRule struct {
	Combination []string `json:"combination" validate:"required,min=2"`
	GIReduction float64  `json:"giReduction" validate:"gt=0,lte=1"`
	Reason      string   `json:"reason"`
}

// AdviceTier is the pre-authored message bundle for one risk level.
type AdviceTier struct {
	Icon        string   `json:"icon" validate:"required"`
	Message     string   `json:"message" validate:"required"`
	Suggestions []string `json:"suggestions"`
}

// ProfileAdjustment is a single multiplicative glycemic-load adjustment.
type ProfileAdjustment struct {
	Multiplier float64 `json:"multiplier" validate:"gt=0"`
}

// MedicationAdjustment mirrors the original data shape, which names the
// medication multiplier glReduction.
type MedicationAdjustment struct {
	GLReduction float64 `json:"glReduction" validate:"gt=0"`
}

// UserProfileAdjustments holds the per-profile-field multiplier tables.
type UserProfileAdjustments struct {
	ActivityLevel    map[string]ProfileAdjustment    `json:"activityLevel" validate:"required"`
	DiabetesType     map[string]ProfileAdjustment    `json:"diabetesType" validate:"required"`
	MedicationEffect map[string]MedicationAdjustment `json:"medicationEffect" validate:"required"`
}

// TimeRecommendation is the time-of-day guidance bundle.
type TimeRecommendation struct {
	Note       string   `json:"note" validate:"required"`
	IdealFoods []string `json:"idealFoods"`
	Avoid      []string `json:"avoid"`
}

// PortionEstimation carries the default weights used when a detected food has
// no knowledge-base entry. The area thresholds themselves are fixed policy,
// not data.
type PortionEstimation struct {
	DefaultWeights map[string]float64 `json:"defaultWeights" validate:"required"`
}

type mealCombinationRules struct {
	ThaliEffect struct {
		Rules []CombinationRule `json:"rules" validate:"dive"`
	} `json:"thaliEffect"`
}

type knowledgeBaseFile struct {
	NutritionDatabase        map[string]*FoodRecord        `json:"nutritionDatabase" validate:"required,min=1"`
	PortionEstimation        PortionEstimation             `json:"portionEstimation"`
	MealCombinationRules     mealCombinationRules          `json:"mealCombinationRules"`
	AdviceEngine             map[string]AdviceTier         `json:"adviceEngine" validate:"required"`
	UserProfileAdjustments   UserProfileAdjustments        `json:"userProfileAdjustments"`
	TimeBasedRecommendations map[string]TimeRecommendation `json:"timeBasedRecommendations" validate:"required"`
}

// KnowledgeBase is the static nutrition reference data. Loaded once at
// startup, read-only afterwards, safe to share across concurrent readers.
type KnowledgeBase struct {
	foods            map[string]*FoodRecord
	portion          PortionEstimation
	combinationRules []CombinationRule
	advice           map[string]AdviceTier
	profile          UserProfileAdjustments
	timeRecs         map[string]TimeRecommendation
}

var servingSizeRe = regexp.MustCompile(`\((\d+(?:\.\d+)?)\s*g\)`)

// LoadKnowledgeBase reads, schema-validates and indexes the nutrition
// knowledge base. A structurally broken entry aborts the load; a food merely
// missing at request time is a soft-skip handled downstream.
func LoadKnowledgeBase(path string) (*KnowledgeBase, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read knowledge base: %w", err)
	}

	var file knowledgeBaseFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, utils.NewDataIntegrityError("document", "invalid JSON: %v", err)
	}

	v := validator.New()
	if err := v.Struct(&file); err != nil {
		return nil, utils.NewDataIntegrityError("document", "schema validation failed: %v", err)
	}

	for key, food := range file.NutritionDatabase {
		grams, err := parseReferenceServing(food.ServingSize)
		if err != nil {
			return nil, utils.NewDataIntegrityError(key+".servingSize", "%v", err)
		}
		food.refServingGrams = grams

		for size := range food.PortionSizes {
			switch size {
			case "small", "medium", "large":
			default:
				return nil, utils.NewDataIntegrityError(key+".portionSizes", "unknown portion size %q", size)
			}
		}
		for tod, m := range food.TimeImpact {
			if m <= 0 || m != m { // NaN compares unequal to itself
				return nil, utils.NewDataIntegrityError(key+".timeImpact."+tod, "multiplier must be a positive number, got %v", m)
			}
		}
	}

	kb := &KnowledgeBase{
		foods:            file.NutritionDatabase,
		portion:          file.PortionEstimation,
		combinationRules: file.MealCombinationRules.ThaliEffect.Rules,
		advice:           file.AdviceEngine,
		profile:          file.UserProfileAdjustments,
		timeRecs:         file.TimeBasedRecommendations,
	}
	for _, tier := range []string{"lowRisk", "moderateRisk", "highRisk"} {
		if _, ok := kb.advice[tier]; !ok {
			return nil, utils.NewDataIntegrityError("adviceEngine", "missing %s tier", tier)
		}
	}
	return kb, nil
}

// parseReferenceServing extracts the gram count from text of the documented
// form "<description> (<N>g)". Failing loudly here is deliberate: a silent
// wrong denominator would corrupt every scaled nutrient total.
func parseReferenceServing(servingSize string) (float64, error) {
	m := servingSizeRe.FindStringSubmatch(servingSize)
	if m == nil {
		return 0, fmt.Errorf("serving size %q does not match \"<description> (<N>g)\"", servingSize)
	}
	grams, err := strconv.ParseFloat(m[1], 64)
	if err != nil || grams <= 0 {
		return 0, fmt.Errorf("serving size %q has non-positive gram count", servingSize)
	}
	return grams, nil
}

// Food looks up a record by knowledge-base key.
func (kb *KnowledgeBase) Food(key string) (*FoodRecord, bool) {
	f, ok := kb.foods[key]
	return f, ok
}

// DefaultPortionWeight is the fallback weight for foods absent from the base.
func (kb *KnowledgeBase) DefaultPortionWeight(size string) (float64, bool) {
	w, ok := kb.portion.DefaultWeights[size]
	return w, ok
}

// CombinationRules returns the static thali-effect rule set.
func (kb *KnowledgeBase) CombinationRules() []CombinationRule { return kb.combinationRules }

// FoodCount reports the number of foods loaded.
func (kb *KnowledgeBase) FoodCount() int { return len(kb.foods) }

// AdviceTier returns the message bundle for lowRisk/moderateRisk/highRisk.
func (kb *KnowledgeBase) AdviceTier(name string) (AdviceTier, bool) {
	t, ok := kb.advice[name]
	return t, ok
}

// ProfileAdjustments returns the user-profile multiplier tables.
func (kb *KnowledgeBase) ProfileAdjustments() UserProfileAdjustments { return kb.profile }

// TimeRecommendation returns the guidance bundle for a time-of-day tag.
func (kb *KnowledgeBase) TimeRecommendation(timeOfDay string) (TimeRecommendation, bool) {
	r, ok := kb.timeRecs[timeOfDay]
	return r, ok
}
