package services

import (
	"math"
	"testing"

	"github.com/Nishaa1304/GlucoSage/utils"
)

func mediumDetection(item string) Detection {
	return Detection{
		Item:        item,
		Confidence:  0.9,
		PortionSize: PortionMedium,
		Method:      MethodModel,
	}
}

func TestNormalizeTimeOfDay(t *testing.T) {
	if got, err := NormalizeTimeOfDay(""); err != nil || got != TimeAfternoon {
		t.Errorf("empty = %q,%v, want afternoon,nil", got, err)
	}
	if got, err := NormalizeTimeOfDay("night"); err != nil || got != TimeNight {
		t.Errorf("night = %q,%v", got, err)
	}
	if _, err := NormalizeTimeOfDay("brunch"); !utils.IsInputError(err) {
		t.Errorf("brunch: error = %v, want InputError", err)
	}
}

func TestAggregateIdliSambar(t *testing.T) {
	svc := NewNutritionService(loadTestKB(t))

	summary, err := svc.Aggregate(
		[]Detection{mediumDetection("idli"), mediumDetection("sambar")},
		"afternoon", nil)
	if err != nil {
		t.Fatal(err)
	}

	// Both medium portions equal the reference serving, so nutrients add
	// without scaling: idli 28g carbs GL 19, sambar 14g carbs GL 5.
	if summary.TotalCarbs != 42 {
		t.Errorf("carbs = %v, want 42", summary.TotalCarbs)
	}
	if summary.TotalProtein != 10 {
		t.Errorf("protein = %v, want 10", summary.TotalProtein)
	}
	if summary.TotalCalories != 240 {
		t.Errorf("calories = %v, want 240", summary.TotalCalories)
	}
	// idli+sambar combination rule discounts the GL: (19+5) * 0.88
	if summary.GlycemicLoad != 21.1 {
		t.Errorf("GL = %v, want 21.1", summary.GlycemicLoad)
	}
	if summary.CombinationEffect != 0.88 {
		t.Errorf("combination effect = %v, want 0.88", summary.CombinationEffect)
	}
	if len(summary.FoodDetails) != 2 {
		t.Errorf("food details = %d, want 2", len(summary.FoodDetails))
	}
}

func TestAggregateTimeOfDayMultiplier(t *testing.T) {
	svc := NewNutritionService(loadTestKB(t))

	night, err := svc.Aggregate([]Detection{mediumDetection("idli")}, "night", nil)
	if err != nil {
		t.Fatal(err)
	}
	// idli night multiplier 1.2: 19 * 1.2
	if night.GlycemicLoad != 22.8 {
		t.Errorf("night GL = %v, want 22.8", night.GlycemicLoad)
	}

	// dal has no night entry, stays neutral
	dal, err := svc.Aggregate([]Detection{mediumDetection("dal")}, "night", nil)
	if err != nil {
		t.Fatal(err)
	}
	if dal.GlycemicLoad != 6 {
		t.Errorf("dal night GL = %v, want 6", dal.GlycemicLoad)
	}
}

func TestAggregateProfileAdjustments(t *testing.T) {
	svc := NewNutritionService(loadTestKB(t))
	profile := &UserProfile{ActivityLevel: "sedentary", DiabetesType: "type2", Medication: "metformin"}

	summary, err := svc.Aggregate(
		[]Detection{mediumDetection("idli"), mediumDetection("sambar")},
		"afternoon", profile)
	if err != nil {
		t.Fatal(err)
	}
	// 24 * 0.88 (combination) * 1.1 * 1.15 * 0.85 (profile)
	want := round1(24 * 0.88 * 1.1 * 1.15 * 0.85)
	if summary.GlycemicLoad != want {
		t.Errorf("GL = %v, want %v", summary.GlycemicLoad, want)
	}

	// unknown profile values stay neutral
	odd := &UserProfile{ActivityLevel: "astronaut"}
	same, err := svc.Aggregate([]Detection{mediumDetection("idli")}, "afternoon", odd)
	if err != nil {
		t.Fatal(err)
	}
	if same.GlycemicLoad != 19 {
		t.Errorf("GL with unknown profile = %v, want 19", same.GlycemicLoad)
	}
}

func TestAggregateMultiplierFloor(t *testing.T) {
	svc := NewNutritionService(loadTestKB(t))
	// both combination rules fire and the most favorable profile stacks on
	// top, pushing the raw multiplier under the floor
	profile := &UserProfile{ActivityLevel: "active", DiabetesType: "none", Medication: "insulin"}

	summary, err := svc.Aggregate(
		[]Detection{
			mediumDetection("idli"), mediumDetection("sambar"),
			mediumDetection("rice"), mediumDetection("dal"),
		},
		"afternoon", profile)
	if err != nil {
		t.Fatal(err)
	}
	// raw: 0.88 * 0.85 * (0.9 * 1.0 * 0.7) = 0.471, clamped to 0.5
	if summary.GlycemicLoad != 30 { // (19+5+30+6) * 0.5
		t.Errorf("GL = %v, want 30 (floored multiplier)", summary.GlycemicLoad)
	}
}

func TestAggregateRuleOrderIndependence(t *testing.T) {
	svc := NewNutritionService(loadTestKB(t))

	a, err := svc.Aggregate([]Detection{mediumDetection("rice"), mediumDetection("dal")}, "afternoon", nil)
	if err != nil {
		t.Fatal(err)
	}
	b, err := svc.Aggregate([]Detection{mediumDetection("dal"), mediumDetection("rice")}, "afternoon", nil)
	if err != nil {
		t.Fatal(err)
	}
	if a.GlycemicLoad != b.GlycemicLoad || a.TotalCarbs != b.TotalCarbs {
		t.Errorf("order changed the totals: %v/%v vs %v/%v",
			a.GlycemicLoad, a.TotalCarbs, b.GlycemicLoad, b.TotalCarbs)
	}
	if math.Abs(a.GlycemicLoad-round1(36*0.85)) > 1e-9 {
		t.Errorf("GL = %v, want %v", a.GlycemicLoad, round1(36*0.85))
	}
}

func TestAggregateSkipsUnknownFoods(t *testing.T) {
	svc := NewNutritionService(loadTestKB(t))

	summary, err := svc.Aggregate(
		[]Detection{mediumDetection("idli"), mediumDetection("pizza")},
		"afternoon", nil)
	if err != nil {
		t.Fatal(err)
	}
	if summary.TotalCarbs != 28 {
		t.Errorf("carbs = %v, want idli only (28)", summary.TotalCarbs)
	}
	if len(summary.SkippedItems) != 1 || summary.SkippedItems[0] != "pizza" {
		t.Errorf("skipped = %v, want [pizza]", summary.SkippedItems)
	}
}

func TestAggregateScalesOffReferenceServing(t *testing.T) {
	svc := NewNutritionService(loadTestKB(t))

	// large idli portion: weight 120 against the 80g reference serving
	large := mediumDetection("idli")
	large.PortionSize = PortionLarge
	summary, err := svc.Aggregate([]Detection{large}, "afternoon", nil)
	if err != nil {
		t.Fatal(err)
	}
	if summary.TotalProtein != 6 { // 4 * 120/80
		t.Errorf("protein = %v, want 6", summary.TotalProtein)
	}
	if summary.TotalCalories != 180 { // 120 * 1.5
		t.Errorf("calories = %v, want 180", summary.TotalCalories)
	}
	// carbs come straight from the portion table, not scaling
	if summary.TotalCarbs != 42 {
		t.Errorf("carbs = %v, want 42", summary.TotalCarbs)
	}
}
