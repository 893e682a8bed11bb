package services

import "testing"

func TestEvaluateRiskTiers(t *testing.T) {
	svc := NewAdviceService(loadTestKB(t))

	cases := []struct {
		name  string
		carbs float64
		gl    float64
		want  RiskLevel
	}{
		// spike derives from GL: 100 + GL*3
		{"clearly low", 20, 5, RiskLow},
		{"just under every low bound", 39.9, 12.9, RiskLow}, // spike 138.7
		{"carbs at low bound", 40, 5, RiskModerate},
		{"gl at low bound", 20, 20, RiskModerate},
		{"spike at low bound", 30, 13.4, RiskModerate}, // spike 140.2
		{"clearly moderate", 50, 25, RiskModerate},
		{"carbs at moderate bound", 60, 25, RiskHigh},
		{"gl at moderate bound", 50, 30, RiskHigh},
		{"everything high", 90, 45, RiskHigh},
	}
	for _, tc := range cases {
		summary := &NutritionSummary{TotalCarbs: tc.carbs, GlycemicLoad: tc.gl, TimeOfDay: "afternoon"}
		advice, err := svc.Evaluate(summary, nil)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if advice.RiskLevel != tc.want {
			t.Errorf("%s: risk = %s, want %s", tc.name, advice.RiskLevel, tc.want)
		}
	}
}

func TestEvaluateEstimatedSpike(t *testing.T) {
	svc := NewAdviceService(loadTestKB(t))

	summary := &NutritionSummary{TotalCarbs: 30, GlycemicLoad: 10, TimeOfDay: "afternoon"}
	advice, err := svc.Evaluate(summary, nil)
	if err != nil {
		t.Fatal(err)
	}
	if advice.PredictedSpike != 130 { // 100 + 10*3
		t.Errorf("spike = %v, want 130", advice.PredictedSpike)
	}
}

func TestEvaluatePrefersRegressorPrediction(t *testing.T) {
	svc := NewAdviceService(loadTestKB(t))

	// low by carbs and GL, but the model predicts a high 2h reading
	summary := &NutritionSummary{TotalCarbs: 20, GlycemicLoad: 5, TimeOfDay: "afternoon"}
	prediction := &GlucosePrediction{PredictedGlucose2h: 195}

	advice, err := svc.Evaluate(summary, prediction)
	if err != nil {
		t.Fatal(err)
	}
	if advice.RiskLevel != RiskHigh {
		t.Errorf("risk = %s, want high when the model predicts 195", advice.RiskLevel)
	}
	if advice.PredictedSpike != 195 {
		t.Errorf("spike = %v, want 195", advice.PredictedSpike)
	}
}

func TestEvaluateCarriesTimeGuidance(t *testing.T) {
	svc := NewAdviceService(loadTestKB(t))

	summary := &NutritionSummary{TotalCarbs: 20, GlycemicLoad: 5, TimeOfDay: "evening"}
	advice, err := svc.Evaluate(summary, nil)
	if err != nil {
		t.Fatal(err)
	}
	if advice.TimeAdvice == "" {
		t.Error("expected an evening note")
	}
	if len(advice.FoodsToAvoid) != 1 || advice.FoodsToAvoid[0] != "rice" {
		t.Errorf("foods to avoid = %v, want [rice]", advice.FoodsToAvoid)
	}
	if advice.Icon == "" || advice.Message == "" {
		t.Error("tier content missing")
	}
}
