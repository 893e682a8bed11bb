package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/Nishaa1304/GlucoSage/utils"
)

// RecognitionProvider hides the per-vendor wire formats behind one shape so
// the aggregation core never branches on the provider.
type RecognitionProvider interface {
	Name() string
	Detect(ctx context.Context, imageBytes []byte) ([]RawDetection, error)
}

// ProviderRegistry holds the configured providers by name.
type ProviderRegistry struct {
	providers map[string]RecognitionProvider
}

func NewProviderRegistry(providers ...RecognitionProvider) *ProviderRegistry {
	r := &ProviderRegistry{providers: make(map[string]RecognitionProvider)}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

func (r *ProviderRegistry) Get(name string) (RecognitionProvider, bool) {
	p, ok := r.providers[name]
	return p, ok
}

func (r *ProviderRegistry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for n := range r.providers {
		names = append(names, n)
	}
	return names
}

// decodeImageDims reads just the image header for width/height. Providers
// that return relative or absent boxes need the dimensions to synthesize
// pixel coordinates.
func decodeImageDims(imageBytes []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(imageBytes))
	if err != nil {
		return 0, 0, utils.NewInputError("cannot decode image: %v", err)
	}
	return cfg.Width, cfg.Height, nil
}

// fullImageBox covers the whole frame, for classification-style providers
// that report labels without localization.
func fullImageBox(width, height int) [4]float64 {
	return [4]float64{0, 0, float64(width), float64(height)}
}

// SpoonacularProvider classifies images via the Spoonacular image-analysis
// endpoint (multipart upload, API key in the query string).
type SpoonacularProvider struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

func NewSpoonacularProvider(apiKey string) *SpoonacularProvider {
	return &SpoonacularProvider{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: "https://api.spoonacular.com",
		apiKey:  apiKey,
	}
}

func (p *SpoonacularProvider) Name() string { return "spoonacular" }

type spoonacularResponse struct {
	Category struct {
		Name        string  `json:"name"`
		Probability float64 `json:"probability"`
	} `json:"category"`
	Status string `json:"status"`
}

func (p *SpoonacularProvider) Detect(ctx context.Context, imageBytes []byte) ([]RawDetection, error) {
	width, height, err := decodeImageDims(imageBytes)
	if err != nil {
		return nil, err
	}

	respBytes, err := postImageMultipart(ctx, p.client,
		fmt.Sprintf("%s/food/images/analyze?apiKey=%s", p.baseURL, p.apiKey),
		"file", imageBytes, nil)
	if err != nil {
		return nil, utils.NewUpstreamError("spoonacular", err)
	}

	var out spoonacularResponse
	if err := json.Unmarshal(respBytes, &out); err != nil {
		return nil, utils.NewUpstreamError("spoonacular", fmt.Errorf("decode response: %w", err))
	}
	if out.Category.Name == "" {
		return nil, nil
	}
	return []RawDetection{{
		Label:      out.Category.Name,
		Confidence: clamp01(out.Category.Probability),
		Box:        fullImageBox(width, height),
	}}, nil
}

// LogMealProvider detects dishes via the LogMeal segmentation endpoint
// (multipart upload, bearer token).
type LogMealProvider struct {
	client  *http.Client
	baseURL string
	token   string
}

func NewLogMealProvider(token string) *LogMealProvider {
	return &LogMealProvider{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: "https://api.logmeal.es/v2",
		token:   token,
	}
}

func (p *LogMealProvider) Name() string { return "logmeal" }

type logMealResponse struct {
	SegmentationResults []struct {
		RecognitionResults []struct {
			Name string  `json:"name"`
			Prob float64 `json:"prob"`
		} `json:"recognition_results"`
		Polygon [][2]float64 `json:"polygon"`
	} `json:"segmentation_results"`
}

func (p *LogMealProvider) Detect(ctx context.Context, imageBytes []byte) ([]RawDetection, error) {
	width, height, err := decodeImageDims(imageBytes)
	if err != nil {
		return nil, err
	}

	respBytes, err := postImageMultipart(ctx, p.client,
		p.baseURL+"/image/segmentation/complete",
		"image", imageBytes, map[string]string{"Authorization": "Bearer " + p.token})
	if err != nil {
		return nil, utils.NewUpstreamError("logmeal", err)
	}

	var out logMealResponse
	if err := json.Unmarshal(respBytes, &out); err != nil {
		return nil, utils.NewUpstreamError("logmeal", fmt.Errorf("decode response: %w", err))
	}

	var raws []RawDetection
	for _, seg := range out.SegmentationResults {
		if len(seg.RecognitionResults) == 0 {
			continue
		}
		top := seg.RecognitionResults[0]
		box := polygonBounds(seg.Polygon, width, height)
		raws = append(raws, RawDetection{
			Label:      top.Name,
			Confidence: clamp01(top.Prob),
			Box:        box,
		})
	}
	return raws, nil
}

// CalorieMamaProvider classifies images via the Calorie Mama food
// recognition endpoint on RapidAPI (multipart upload, key in headers).
type CalorieMamaProvider struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

func NewCalorieMamaProvider(apiKey string) *CalorieMamaProvider {
	return &CalorieMamaProvider{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: "https://calorie-mama-food-nutrition-analysis.p.rapidapi.com",
		apiKey:  apiKey,
	}
}

func (p *CalorieMamaProvider) Name() string { return "calorie_mama" }

// Calorie Mama does not always report a confidence; entries without one get
// this default.
const calorieMamaDefaultConfidence = 0.85

type calorieMamaResponse struct {
	Items []struct {
		Name       string   `json:"name"`
		Confidence *float64 `json:"confidence"`
	} `json:"items"`
}

func (p *CalorieMamaProvider) Detect(ctx context.Context, imageBytes []byte) ([]RawDetection, error) {
	width, height, err := decodeImageDims(imageBytes)
	if err != nil {
		return nil, err
	}

	respBytes, err := postImageMultipart(ctx, p.client,
		p.baseURL+"/api/v1/foodrecognition",
		"image", imageBytes, map[string]string{
			"X-RapidAPI-Key":  p.apiKey,
			"X-RapidAPI-Host": "calorie-mama-food-nutrition-analysis.p.rapidapi.com",
		})
	if err != nil {
		return nil, utils.NewUpstreamError("calorie mama", err)
	}

	var out calorieMamaResponse
	if err := json.Unmarshal(respBytes, &out); err != nil {
		return nil, utils.NewUpstreamError("calorie mama", fmt.Errorf("decode response: %w", err))
	}

	var raws []RawDetection
	for _, item := range out.Items {
		if item.Name == "" {
			continue
		}
		confidence := calorieMamaDefaultConfidence
		if item.Confidence != nil {
			confidence = clamp01(*item.Confidence)
		}
		raws = append(raws, RawDetection{
			Label:      item.Name,
			Confidence: confidence,
			Box:        fullImageBox(width, height),
		})
	}
	return raws, nil
}

func polygonBounds(polygon [][2]float64, width, height int) [4]float64 {
	if len(polygon) == 0 {
		return fullImageBox(width, height)
	}
	x1, y1 := polygon[0][0], polygon[0][1]
	x2, y2 := x1, y1
	for _, pt := range polygon[1:] {
		if pt[0] < x1 {
			x1 = pt[0]
		}
		if pt[0] > x2 {
			x2 = pt[0]
		}
		if pt[1] < y1 {
			y1 = pt[1]
		}
		if pt[1] > y2 {
			y2 = pt[1]
		}
	}
	if x2 <= x1 || y2 <= y1 {
		return fullImageBox(width, height)
	}
	return [4]float64{x1, y1, x2, y2}
}

func postImageMultipart(ctx context.Context, client *http.Client, url, field string, imageBytes []byte, headers map[string]string) ([]byte, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(field, "image.jpg")
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(imageBytes); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		preview := strings.TrimSpace(string(respBytes))
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		return nil, fmt.Errorf("api error (%d): %s", resp.StatusCode, preview)
	}
	return respBytes, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
