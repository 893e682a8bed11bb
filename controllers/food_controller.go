package controllers

import (
	"net/http"

	"github.com/Nishaa1304/GlucoSage/services"

	"github.com/gin-gonic/gin"
)

type FoodController struct {
	Scan      *services.ScanService
	Demo      *services.DemoMapper
	Providers *services.ProviderRegistry
}

func NewFoodController(scan *services.ScanService, demo *services.DemoMapper, providers *services.ProviderRegistry) *FoodController {
	return &FoodController{Scan: scan, Demo: demo, Providers: providers}
}

// scanPayload is the common request body for detect, analyze and
// scan-and-predict. Either an image or precomputed detections (with the
// image dimensions) must be supplied.
type scanPayload struct {
	ImageBase64 string                  `json:"image_base64"`
	Detections  []services.RawDetection `json:"detections"`
	ImageWidth  int                     `json:"image_width"`
	ImageHeight int                     `json:"image_height"`

	TimeOfDay          string                `json:"time_of_day"`
	UserProfile        *services.UserProfile `json:"user_profile"`
	LastGlucoseReading float64               `json:"last_glucose_reading"`
	HoursSinceLastMeal float64               `json:"hours_since_last_meal"`
}

func (p *scanPayload) toRequest() (services.ScanRequest, error) {
	imageBytes, err := decodeBase64Image(p.ImageBase64)
	if err != nil {
		return services.ScanRequest{}, err
	}
	return services.ScanRequest{
		ImageBytes:         imageBytes,
		ImageWidth:         p.ImageWidth,
		ImageHeight:        p.ImageHeight,
		RawDetections:      p.Detections,
		TimeOfDay:          p.TimeOfDay,
		UserProfile:        p.UserProfile,
		LastGlucoseReading: p.LastGlucoseReading,
		HoursSinceLastMeal: p.HoursSinceLastMeal,
	}, nil
}

// POST /api/v1/food/detect
// Normalizes detector output (with the color fallback when the pass came up
// short). A registered demo image short-circuits with its stored detection.
func (fc *FoodController) Detect(c *gin.Context) {
	var payload scanPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
		return
	}
	req, err := payload.toRequest()
	if err != nil {
		respondError(c, err)
		return
	}

	if fc.Demo != nil && len(req.ImageBytes) > 0 {
		match, ok, err := fc.Demo.Lookup(req.ImageBytes)
		if err != nil {
			respondError(c, err)
			return
		}
		if ok {
			c.JSON(http.StatusOK, gin.H{
				"detections": []services.Detection{match.Detection},
				"method":     services.MethodDemoExact,
				"demo":       match.Record,
			})
			return
		}
	}

	detections, err := fc.Scan.Detect(req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detections": detections})
}

// POST /api/v1/food/analyze
// Runs detection and nutrition aggregation without a glucose prediction.
func (fc *FoodController) Analyze(c *gin.Context) {
	fc.analyze(c, false)
}

// POST /api/v1/food/scan-and-predict
// Full pipeline: detection, nutrition, glucose prediction and advice.
func (fc *FoodController) ScanAndPredict(c *gin.Context) {
	fc.analyze(c, true)
}

func (fc *FoodController) analyze(c *gin.Context, predict bool) {
	var payload scanPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
		return
	}
	req, err := payload.toRequest()
	if err != nil {
		respondError(c, err)
		return
	}
	req.PredictGlucose = predict

	result, err := fc.Scan.Analyze(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// POST /api/v1/food/detect/:provider
// Detects with a named recognition provider, then normalizes its output.
func (fc *FoodController) DetectWithProvider(c *gin.Context) {
	name := c.Param("provider")
	provider, ok := fc.Providers.Get(name)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error":     "unknown provider: " + name,
			"available": fc.Providers.Names(),
		})
		return
	}

	var payload scanPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
		return
	}
	req, err := payload.toRequest()
	if err != nil {
		respondError(c, err)
		return
	}
	if len(req.ImageBytes) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image_base64 is required"})
		return
	}

	raws, err := provider.Detect(c.Request.Context(), req.ImageBytes)
	if err != nil {
		respondError(c, err)
		return
	}
	req.RawDetections = raws

	detections, err := fc.Scan.Detect(req)
	if err != nil {
		respondError(c, err)
		return
	}
	for i := range detections {
		// fallback supplements keep their own provenance
		if detections[i].Method == services.MethodFallbackColor {
			continue
		}
		detections[i].Method = services.MethodExternalAPI
	}
	c.JSON(http.StatusOK, gin.H{"provider": provider.Name(), "detections": detections})
}

// GET /api/v1/food/scans?limit=10
func (fc *FoodController) RecentScans(c *gin.Context) {
	limit := 10
	if v := c.Query("limit"); v != "" {
		if n, err := atoiPositive(v); err == nil {
			limit = n
		}
	}
	scans, err := fc.Scan.RecentScans(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"scans": scans, "count": len(scans)})
}
