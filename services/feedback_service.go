package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/Nishaa1304/GlucoSage/models"
	"github.com/Nishaa1304/GlucoSage/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FeedbackService records user corrections and actual glucose readings for
// the retraining loop.
type FeedbackService struct{ db *gorm.DB }

func NewFeedbackService(db *gorm.DB) *FeedbackService { return &FeedbackService{db: db} }

func (s *FeedbackService) ready() error {
	if s.db == nil {
		return utils.NewUpstreamError("feedback storage", fmt.Errorf("database not configured"))
	}
	return nil
}

// RecordFoodCorrection stores what was detected versus what the user says.
func (s *FeedbackService) RecordFoodCorrection(ctx context.Context, userID, imagePath string, detected, corrected []string) (*models.FeedbackEntry, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if len(corrected) == 0 {
		return nil, utils.NewInputError("corrected_foods is required")
	}
	entry := &models.FeedbackEntry{
		PublicID:       uuid.NewString(),
		Type:           models.FeedbackFoodCorrection,
		UserID:         userID,
		ImagePath:      imagePath,
		DetectedFoods:  strings.Join(detected, ","),
		CorrectedFoods: strings.Join(corrected, ","),
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

// RecordPortionCorrection stores a portion-size correction.
func (s *FeedbackService) RecordPortionCorrection(ctx context.Context, userID, foodName, detected, corrected string) (*models.FeedbackEntry, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if foodName == "" || corrected == "" {
		return nil, utils.NewInputError("food_name and corrected_portion are required")
	}
	entry := &models.FeedbackEntry{
		PublicID:         uuid.NewString(),
		Type:             models.FeedbackPortionCorrection,
		UserID:           userID,
		FoodName:         foodName,
		DetectedPortion:  detected,
		CorrectedPortion: corrected,
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

// RecordGlucoseActual stores measured glucose against a prediction and the
// absolute errors where measurements exist.
func (s *FeedbackService) RecordGlucoseActual(ctx context.Context, userID, scanID string, predicted1h, predicted2h float64, actual1h, actual2h *float64) (*models.FeedbackEntry, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if actual1h == nil && actual2h == nil {
		return nil, utils.NewInputError("at least one of actual_glucose_1h, actual_glucose_2h is required")
	}
	entry := &models.FeedbackEntry{
		PublicID:           uuid.NewString(),
		Type:               models.FeedbackGlucoseActual,
		UserID:             userID,
		ScanID:             scanID,
		PredictedGlucose1h: predicted1h,
		PredictedGlucose2h: predicted2h,
		ActualGlucose1h:    actual1h,
		ActualGlucose2h:    actual2h,
	}
	if actual1h != nil {
		e := math.Abs(predicted1h - *actual1h)
		entry.Error1h = &e
	}
	if actual2h != nil {
		e := math.Abs(predicted2h - *actual2h)
		entry.Error2h = &e
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

// ConfusedFood is a food name with how often it appeared in corrections.
type ConfusedFood struct {
	Food  string `json:"food"`
	Count int    `json:"count"`
}

// FeedbackSummary is the rolling view of recent feedback quality.
type FeedbackSummary struct {
	TotalFeedback int            `json:"total_feedback"`
	FeedbackTypes map[string]int `json:"feedback_types"`
	RecentDays    int            `json:"recent_days"`

	FoodCorrections *struct {
		Count             int            `json:"count"`
		MostConfusedFoods []ConfusedFood `json:"most_confused_foods"`
	} `json:"food_corrections,omitempty"`

	GlucoseAccuracy *struct {
		Count      int      `json:"count"`
		AvgError1h *float64 `json:"avg_error_1h"`
		AvgError2h *float64 `json:"avg_error_2h"`
	} `json:"glucose_accuracy,omitempty"`
}

// Summary aggregates feedback over the trailing window.
func (s *FeedbackService) Summary(ctx context.Context, days int) (*FeedbackSummary, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if days <= 0 {
		days = 7
	}
	since := time.Now().AddDate(0, 0, -days)

	var entries []models.FeedbackEntry
	if err := s.db.WithContext(ctx).
		Where("created_at >= ?", since).
		Find(&entries).Error; err != nil {
		return nil, err
	}

	summary := &FeedbackSummary{
		TotalFeedback: len(entries),
		FeedbackTypes: make(map[string]int),
		RecentDays:    days,
	}

	confusion := make(map[string]int)
	foodCorrections := 0
	glucoseCount := 0
	var sum1h, sum2h float64
	var n1h, n2h int

	for _, e := range entries {
		summary.FeedbackTypes[e.Type]++

		switch e.Type {
		case models.FeedbackFoodCorrection:
			foodCorrections++
			for _, f := range symmetricDiff(splitList(e.DetectedFoods), splitList(e.CorrectedFoods)) {
				confusion[f]++
			}
		case models.FeedbackGlucoseActual:
			glucoseCount++
			if e.Error1h != nil {
				sum1h += *e.Error1h
				n1h++
			}
			if e.Error2h != nil {
				sum2h += *e.Error2h
				n2h++
			}
		}
	}

	if foodCorrections > 0 {
		confused := make([]ConfusedFood, 0, len(confusion))
		for f, c := range confusion {
			confused = append(confused, ConfusedFood{Food: f, Count: c})
		}
		sort.Slice(confused, func(i, j int) bool {
			if confused[i].Count != confused[j].Count {
				return confused[i].Count > confused[j].Count
			}
			return confused[i].Food < confused[j].Food
		})
		if len(confused) > 5 {
			confused = confused[:5]
		}
		summary.FoodCorrections = &struct {
			Count             int            `json:"count"`
			MostConfusedFoods []ConfusedFood `json:"most_confused_foods"`
		}{Count: foodCorrections, MostConfusedFoods: confused}
	}

	if glucoseCount > 0 {
		acc := &struct {
			Count      int      `json:"count"`
			AvgError1h *float64 `json:"avg_error_1h"`
			AvgError2h *float64 `json:"avg_error_2h"`
		}{Count: glucoseCount}
		if n1h > 0 {
			avg := round2(sum1h / float64(n1h))
			acc.AvgError1h = &avg
		}
		if n2h > 0 {
			avg := round2(sum2h / float64(n2h))
			acc.AvgError2h = &avg
		}
		summary.GlucoseAccuracy = acc
	}

	return summary, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// symmetricDiff returns items present in exactly one of the two lists.
func symmetricDiff(a, b []string) []string {
	inA := make(map[string]bool, len(a))
	inB := make(map[string]bool, len(b))
	for _, v := range a {
		inA[v] = true
	}
	for _, v := range b {
		inB[v] = true
	}
	var out []string
	for v := range inA {
		if !inB[v] {
			out = append(out, v)
		}
	}
	for v := range inB {
		if !inA[v] {
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
