package services

import (
	"bytes"
	"context"
	"image"
	"log"
	"strings"
	"time"

	"github.com/Nishaa1304/GlucoSage/models"
	"github.com/Nishaa1304/GlucoSage/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ScanRequest is one meal-photo analysis call: the raw detector output to
// normalize, the (optional) image bytes for the color fallback, and the meal
// and user context.
type ScanRequest struct {
	ImageBytes  []byte
	ImageWidth  int
	ImageHeight int

	RawDetections []RawDetection

	TimeOfDay          string
	UserProfile        *UserProfile
	LastGlucoseReading float64
	HoursSinceLastMeal float64

	PredictGlucose bool
}

// ScanResult is the unified response of the full pipeline.
type ScanResult struct {
	ScanID        string             `json:"scan_id"`
	Timestamp     time.Time          `json:"timestamp"`
	FoodsDetected []string           `json:"foods_detected"`
	Detections    []Detection        `json:"detections"`
	Nutrition     *NutritionSummary  `json:"nutrition"`
	Advice        *Advice            `json:"advice"`
	Glucose       *GlucosePrediction `json:"glucose_prediction,omitempty"`
}

// ScanService wires the pipeline together: normalize, fallback-merge,
// aggregate, predict, advise. Stateless per request apart from the optional
// scan history writes.
type ScanService struct {
	db        *gorm.DB // nil disables history persistence
	detector  *DetectionService
	fallback  *FallbackDetector
	nutrition *NutritionService
	advice    *AdviceService
	glucose   *GlucoseService // nil disables predictions
	hub       *RealtimeHub    // nil disables the live feed
}

func NewScanService(
	db *gorm.DB,
	detector *DetectionService,
	fallback *FallbackDetector,
	nutrition *NutritionService,
	advice *AdviceService,
	glucose *GlucoseService,
	hub *RealtimeHub,
) *ScanService {
	return &ScanService{
		db:        db,
		detector:  detector,
		fallback:  fallback,
		nutrition: nutrition,
		advice:    advice,
		glucose:   glucose,
		hub:       hub,
	}
}

// Detect normalizes the raw detections and, when the primary pass found
// fewer than three items, supplements them with the color fallback.
func (s *ScanService) Detect(req ScanRequest) ([]Detection, error) {
	width, height, img, err := s.resolveImage(req)
	if err != nil {
		return nil, err
	}

	detections, err := s.detector.NormalizeAll(req.RawDetections, width, height)
	if err != nil {
		return nil, err
	}

	if len(detections) < FallbackTriggerCount && img != nil {
		fallback := s.fallback.DetectByColor(img)
		if len(fallback) > 0 {
			log.Printf("fallback detector found %d additional items", len(fallback))
			detections = MergeDetections(detections, fallback)
		}
	}
	return detections, nil
}

// Analyze runs the full pipeline and returns the unified result. A regressor
// failure degrades the response (prediction omitted) instead of failing the
// scan.
func (s *ScanService) Analyze(ctx context.Context, req ScanRequest) (*ScanResult, error) {
	detections, err := s.Detect(req)
	if err != nil {
		return nil, err
	}
	if len(detections) == 0 {
		return nil, utils.NewInputError("no food items detected, please try again with a clearer image")
	}

	summary, err := s.nutrition.Aggregate(detections, req.TimeOfDay, req.UserProfile)
	if err != nil {
		return nil, err
	}

	foods := make([]string, 0, len(detections))
	for _, d := range detections {
		foods = append(foods, d.Item)
	}

	var prediction *GlucosePrediction
	if req.PredictGlucose && s.glucose.Configured() {
		meal := MealData{
			TotalCarbs:         summary.TotalCarbs,
			TotalProtein:       summary.TotalProtein,
			TotalFat:           summary.TotalFat,
			TotalFiber:         summary.TotalFiber,
			GlycemicLoad:       summary.GlycemicLoad,
			TotalCalories:      summary.TotalCalories,
			TimeOfDay:          summary.TimeOfDay,
			LastGlucoseReading: req.LastGlucoseReading,
			HoursSinceLastMeal: req.HoursSinceLastMeal,
			FoodsDetected:      foods,
		}
		if req.UserProfile != nil {
			meal.ActivityLevel = req.UserProfile.ActivityLevel
			meal.DiabetesType = req.UserProfile.DiabetesType
			meal.Medication = req.UserProfile.Medication
		}
		prediction, err = s.glucose.Predict(ctx, meal)
		if err != nil {
			// Glucose prediction is optional: detection still succeeds.
			log.Printf("warning: glucose prediction unavailable: %v", err)
			prediction = nil
		}
	}

	advice, err := s.advice.Evaluate(summary, prediction)
	if err != nil {
		return nil, err
	}

	result := &ScanResult{
		ScanID:        uuid.NewString(),
		Timestamp:     time.Now(),
		FoodsDetected: foods,
		Detections:    detections,
		Nutrition:     summary,
		Advice:        advice,
		Glucose:       prediction,
	}

	s.persist(ctx, result, detections)
	if s.hub != nil {
		s.hub.BroadcastScan(result)
	}
	return result, nil
}

func (s *ScanService) persist(ctx context.Context, result *ScanResult, detections []Detection) {
	if s.db == nil {
		return
	}
	record := &models.ScanRecord{
		PublicID:      result.ScanID,
		TimeOfDay:     result.Nutrition.TimeOfDay,
		FoodsDetected: strings.Join(result.FoodsDetected, ","),
		Method:        string(primaryMethod(detections)),
		TotalCarbs:    result.Nutrition.TotalCarbs,
		TotalProtein:  result.Nutrition.TotalProtein,
		TotalFat:      result.Nutrition.TotalFat,
		TotalFiber:    result.Nutrition.TotalFiber,
		TotalCalories: result.Nutrition.TotalCalories,
		GlycemicLoad:  result.Nutrition.GlycemicLoad,
		RiskLevel:     string(result.Advice.RiskLevel),
	}
	if result.Glucose != nil {
		g1h, g2h := result.Glucose.PredictedGlucose1h, result.Glucose.PredictedGlucose2h
		record.PredictedGlucose1h = &g1h
		record.PredictedGlucose2h = &g2h
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		log.Printf("warning: could not persist scan record: %v", err)
	}
}

// RecentScans returns the latest persisted scans, newest first.
func (s *ScanService) RecentScans(ctx context.Context, limit int) ([]models.ScanRecord, error) {
	if s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}
	var scans []models.ScanRecord
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&scans).Error
	return scans, err
}

func (s *ScanService) resolveImage(req ScanRequest) (int, int, image.Image, error) {
	var img image.Image
	width, height := req.ImageWidth, req.ImageHeight

	if len(req.ImageBytes) > 0 {
		decoded, _, err := image.Decode(bytes.NewReader(req.ImageBytes))
		if err != nil {
			return 0, 0, nil, utils.NewInputError("cannot decode image: %v", err)
		}
		img = decoded
		if width <= 0 || height <= 0 {
			width = decoded.Bounds().Dx()
			height = decoded.Bounds().Dy()
		}
	}
	if width <= 0 || height <= 0 {
		return 0, 0, nil, utils.NewInputError("image or image_width/image_height required")
	}
	return width, height, img, nil
}

// primaryMethod reports the dominant detection method for the history row:
// any model hit wins, then external API, then the color fallback.
func primaryMethod(detections []Detection) DetectionMethod {
	best := MethodFallbackColor
	for _, d := range detections {
		switch d.Method {
		case MethodModel:
			return MethodModel
		case MethodDemoExact:
			return MethodDemoExact
		case MethodExternalAPI:
			best = MethodExternalAPI
		}
	}
	return best
}
