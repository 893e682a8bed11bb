package controllers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/Nishaa1304/GlucoSage/services"
)

type stubProvider struct {
	raws []services.RawDetection
	err  error
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Detect(_ context.Context, _ []byte) ([]services.RawDetection, error) {
	return s.raws, s.err
}

func newTestFoodController(t *testing.T, provider services.RecognitionProvider) *FoodController {
	t.Helper()
	kb, err := services.LoadKnowledgeBase(filepath.Join("..", "data", "nutrition_database.json"))
	if err != nil {
		t.Fatalf("LoadKnowledgeBase: %v", err)
	}
	scan := services.NewScanService(
		nil,
		services.NewDetectionService(kb),
		services.NewFallbackDetector(kb),
		services.NewNutritionService(kb),
		services.NewAdviceService(kb),
		services.NewGlucoseService(nil),
		nil,
	)
	demo, err := services.NewDemoMapper(filepath.Join(t.TempDir(), "mapping.json"))
	if err != nil {
		t.Fatalf("NewDemoMapper: %v", err)
	}
	return NewFoodController(scan, demo, services.NewProviderRegistry(provider))
}

func encodeDalImage(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 400, 400))
	for y := 0; y < 400; y++ {
		for x := 0; x < 400; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 230, G: 180, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestDetectWithProviderKeepsFallbackProvenance(t *testing.T) {
	gin.SetMode(gin.TestMode)

	provider := &stubProvider{raws: []services.RawDetection{
		{Label: "idli", Confidence: 0.9, Box: [4]float64{250, 250, 350, 350}},
	}}
	fc := newTestFoodController(t, provider)

	r := gin.New()
	r.POST("/api/v1/food/detect/:provider", fc.DetectWithProvider)

	body, _ := json.Marshal(map[string]any{"image_base64": encodeDalImage(t)})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/food/detect/stub", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		Provider   string               `json:"provider"`
		Detections []services.Detection `json:"detections"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Provider != "stub" {
		t.Errorf("provider = %q", resp.Provider)
	}

	methods := make(map[string]services.DetectionMethod)
	for _, d := range resp.Detections {
		methods[d.Item] = d.Method
	}
	if methods["idli"] != services.MethodExternalAPI {
		t.Errorf("idli method = %q, want %q", methods["idli"], services.MethodExternalAPI)
	}
	// the uniform dal image triggers a color supplement, which must not be
	// relabeled as provider output
	if methods["dal"] != services.MethodFallbackColor {
		t.Errorf("dal method = %q, want %q", methods["dal"], services.MethodFallbackColor)
	}
}

func TestDetectWithProviderUnknownProvider(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fc := newTestFoodController(t, &stubProvider{})

	r := gin.New()
	r.POST("/api/v1/food/detect/:provider", fc.DetectWithProvider)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/food/detect/clarifai", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}
