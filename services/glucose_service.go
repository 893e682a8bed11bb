package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/Nishaa1304/GlucoSage/utils"
)

// MealData is the merged meal+user record encoded for the regressor. Any
// missing field falls back to a documented neutral default; the statistical
// model tolerates defaults, so absence is never an error.
type MealData struct {
	TotalCarbs    float64 `json:"total_carbs"`
	TotalProtein  float64 `json:"total_protein"`
	TotalFat      float64 `json:"total_fat"`
	TotalFiber    float64 `json:"total_fiber"`
	GlycemicLoad  float64 `json:"glycemic_load"`
	TotalCalories float64 `json:"total_calories"`

	TimeOfDay          string  `json:"time_of_day"`
	LastGlucoseReading float64 `json:"last_glucose_reading"`
	HoursSinceLastMeal float64 `json:"hours_since_last_meal"`
	ActivityLevel      string  `json:"activity_level"`
	SleepHours         float64 `json:"sleep_hours_last_night"`

	DiabetesType string `json:"diabetes_type"`
	Medication   string `json:"medication"`

	StressLevel    float64 `json:"stress_level"`
	ExercisedToday bool    `json:"exercised_today"`
	FeelingSick    bool    `json:"feeling_sick"`

	AvgGlucoseLastWeek float64 `json:"avg_glucose_last_week"`
	GlucoseStdLastWeek float64 `json:"glucose_std_last_week"`

	FoodsDetected []string `json:"foods_detected"`
}

// Neutral defaults applied by the encoder for absent fields.
const (
	defaultBaselineGlucose    = 100
	defaultHoursSinceLastMeal = 4
	defaultSleepHours         = 7
	defaultStressLevel        = 3
	defaultAvgGlucoseWeek     = 120
	defaultGlucoseVariability = 15
)

// FeatureNames is the exact order the external regressor was trained with.
// Reordering it silently corrupts every prediction, so encode and transport
// both names and values.
var FeatureNames = []string{
	"total_carbs",
	"total_protein",
	"total_fat",
	"total_fiber",
	"glycemic_load",
	"total_calories",
	"carb_protein_ratio",
	"fiber_density",
	"hour",
	"is_morning",
	"is_night",
	"baseline_glucose",
	"hours_since_last_meal",
	"activity_level",
	"sleep_hours",
	"diabetes_severity",
	"on_medication",
	"medication_effect",
	"stress_level",
	"exercise_before_meal",
	"sick_today",
	"avg_glucose_last_week",
	"glucose_variability",
	"num_food_items",
	"has_rice",
	"has_dal",
	"has_vegetables",
}

// EncodeFeatures maps a meal+user record into the fixed-order numeric vector.
func EncodeFeatures(meal MealData) []float64 {
	baseline := meal.LastGlucoseReading
	if baseline <= 0 {
		baseline = defaultBaselineGlucose
	}
	hoursSince := meal.HoursSinceLastMeal
	if hoursSince <= 0 {
		hoursSince = defaultHoursSinceLastMeal
	}
	sleep := meal.SleepHours
	if sleep <= 0 {
		sleep = defaultSleepHours
	}
	stress := meal.StressLevel
	if stress <= 0 {
		stress = defaultStressLevel
	}
	avgWeek := meal.AvgGlucoseLastWeek
	if avgWeek <= 0 {
		avgWeek = defaultAvgGlucoseWeek
	}
	variability := meal.GlucoseStdLastWeek
	if variability <= 0 {
		variability = defaultGlucoseVariability
	}

	return []float64{
		meal.TotalCarbs,
		meal.TotalProtein,
		meal.TotalFat,
		meal.TotalFiber,
		meal.GlycemicLoad,
		meal.TotalCalories,
		meal.TotalCarbs / math.Max(meal.TotalProtein, 1),
		(meal.TotalFiber / math.Max(meal.TotalCalories, 1)) * 100,
		encodeHour(meal.TimeOfDay),
		boolFeature(meal.TimeOfDay == TimeMorning),
		boolFeature(meal.TimeOfDay == TimeNight),
		baseline,
		hoursSince,
		encodeActivity(meal.ActivityLevel),
		sleep,
		encodeDiabetes(meal.DiabetesType),
		boolFeature(meal.Medication != ""),
		encodeMedication(meal.Medication),
		stress,
		boolFeature(meal.ExercisedToday),
		boolFeature(meal.FeelingSick),
		avgWeek,
		variability,
		float64(len(meal.FoodsDetected)),
		boolFeature(hasAnyFood(meal.FoodsDetected, "rice", "biryani", "pulao")),
		boolFeature(hasFood(meal.FoodsDetected, "dal")),
		boolFeature(hasAnyFood(meal.FoodsDetected, "sabzi", "vegetables")),
	}
}

func encodeHour(timeOfDay string) float64 {
	switch timeOfDay {
	case TimeMorning:
		return 8
	case TimeAfternoon:
		return 13
	case TimeEvening:
		return 18
	case TimeNight:
		return 21
	default:
		return 13
	}
}

func encodeActivity(level string) float64 {
	switch level {
	case "sedentary":
		return 1
	case "light":
		return 2
	case "moderate":
		return 3
	case "active":
		return 4
	case "veryActive":
		return 5
	default:
		return 3
	}
}

func encodeDiabetes(diabetesType string) float64 {
	switch diabetesType {
	case "prediabetic":
		return 1
	case "type2":
		return 2
	case "type1":
		return 3
	default:
		return 0
	}
}

func encodeMedication(medication string) float64 {
	switch medication {
	case "metformin":
		return 0.85
	case "insulin":
		return 0.70
	case "sglt2":
		return 0.80
	case "glp1":
		return 0.75
	default:
		return 0
	}
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func hasFood(foods []string, key string) bool {
	for _, f := range foods {
		if f == key {
			return true
		}
	}
	return false
}

func hasAnyFood(foods []string, substrings ...string) bool {
	for _, f := range foods {
		for _, sub := range substrings {
			if strings.Contains(f, sub) {
				return true
			}
		}
	}
	return false
}

// GlucosePrediction is the post-meal trajectory produced from the external
// regressor's two scalars.
type GlucosePrediction struct {
	BaselineGlucose    float64   `json:"baseline_glucose"`
	PredictedGlucose1h float64   `json:"predicted_glucose_1h"`
	PredictedGlucose2h float64   `json:"predicted_glucose_2h"`
	GlucoseSpike1h     float64   `json:"glucose_spike_1h"`
	GlucoseSpike2h     float64   `json:"glucose_spike_2h"`
	PeakTime           string    `json:"peak_time"`
	RiskLevel          RiskLevel `json:"risk_level"`
	Timestamp          time.Time `json:"timestamp"`
}

// GlucoseRegressor is the external gradient-boosted model, a black box that
// turns the feature vector into 1h/2h glucose in mg/dL.
type GlucoseRegressor interface {
	Predict(ctx context.Context, names []string, values []float64) (glucose1h, glucose2h float64, err error)
}

// Predicted values outside this band are suspicious but not rejected; the
// regressor is trusted, the anomaly is only logged.
const (
	plausibleGlucoseMin = 50
	plausibleGlucoseMax = 400
)

// GlucoseService encodes meals and drives the external regressor.
type GlucoseService struct {
	regressor GlucoseRegressor
}

func NewGlucoseService(regressor GlucoseRegressor) *GlucoseService {
	return &GlucoseService{regressor: regressor}
}

// Configured reports whether a regressor backend is wired in.
func (s *GlucoseService) Configured() bool { return s != nil && s.regressor != nil }

// Predict builds the feature vector, calls the regressor and derives spikes,
// peak time and risk. A regressor failure surfaces as an UpstreamError so the
// caller can degrade to a prediction-free response.
func (s *GlucoseService) Predict(ctx context.Context, meal MealData) (*GlucosePrediction, error) {
	if s.regressor == nil {
		return nil, utils.NewUpstreamError("glucose regressor", fmt.Errorf("not configured"))
	}

	values := EncodeFeatures(meal)
	g1h, g2h, err := s.regressor.Predict(ctx, FeatureNames, values)
	if err != nil {
		return nil, utils.NewUpstreamError("glucose regressor", err)
	}

	for _, g := range []float64{g1h, g2h} {
		if g < plausibleGlucoseMin || g > plausibleGlucoseMax {
			log.Printf("warning: regressor returned implausible glucose %.0f mg/dL", g)
		}
	}

	baseline := meal.LastGlucoseReading
	if baseline <= 0 {
		baseline = defaultBaselineGlucose
	}

	peak := "2 hours"
	if g1h > g2h {
		peak = "1 hour"
	}

	risk := RiskHigh
	switch {
	case g2h < 140:
		risk = RiskLow
	case g2h < 180:
		risk = RiskModerate
	}

	return &GlucosePrediction{
		BaselineGlucose:    math.Round(baseline),
		PredictedGlucose1h: math.Round(g1h),
		PredictedGlucose2h: math.Round(g2h),
		GlucoseSpike1h:     math.Round(g1h - baseline),
		GlucoseSpike2h:     math.Round(g2h - baseline),
		PeakTime:           peak,
		RiskLevel:          risk,
		Timestamp:          time.Now(),
	}, nil
}

// HTTPRegressor calls the model-serving endpoint that hosts the trained
// gradient-boosted models. One bounded retry on transport errors and 5xx.
type HTTPRegressor struct {
	client  *http.Client
	baseURL string
}

func NewHTTPRegressor(baseURL string) *HTTPRegressor {
	return &HTTPRegressor{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

type regressorRequest struct {
	FeatureNames []string  `json:"feature_names"`
	Features     []float64 `json:"features"`
}

type regressorResponse struct {
	Glucose1h float64 `json:"glucose_1h"`
	Glucose2h float64 `json:"glucose_2h"`
	Error     string  `json:"error"`
}

func (r *HTTPRegressor) Predict(ctx context.Context, names []string, values []float64) (float64, float64, error) {
	body, _ := json.Marshal(regressorRequest{FeatureNames: names, Features: values})

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/predict", bytes.NewReader(body))
		if err != nil {
			return 0, 0, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := r.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		respBytes, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("regressor error (%d): %s", resp.StatusCode, strings.TrimSpace(string(respBytes)))
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return 0, 0, fmt.Errorf("regressor error (%d): %s", resp.StatusCode, strings.TrimSpace(string(respBytes)))
		}

		var out regressorResponse
		if err := json.Unmarshal(respBytes, &out); err != nil {
			return 0, 0, fmt.Errorf("decode regressor response: %w", err)
		}
		if out.Error != "" {
			return 0, 0, fmt.Errorf("regressor: %s", out.Error)
		}
		return out.Glucose1h, out.Glucose2h, nil
	}
	return 0, 0, lastErr
}
