package services

import (
	"log"
	"math"
	"strings"

	"github.com/Nishaa1304/GlucoSage/utils"
)

// PortionSize is the coarse serving estimate derived from box area.
type PortionSize string

const (
	PortionSmall  PortionSize = "small"
	PortionMedium PortionSize = "medium"
	PortionLarge  PortionSize = "large"
)

// DetectionMethod records which detector produced a detection.
type DetectionMethod string

const (
	MethodModel         DetectionMethod = "model"
	MethodFallbackColor DetectionMethod = "fallback_color"
	MethodExternalAPI   DetectionMethod = "external_api"
	MethodDemoExact     DetectionMethod = "demo_exact"
)

// BoundingBox is a pixel-coordinate box with x1<x2, y1<y2.
type BoundingBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

func (b BoundingBox) Area() float64 {
	return math.Max(0, b.X2-b.X1) * math.Max(0, b.Y2-b.Y1)
}

// IoU computes Intersection-over-Union between two boxes.
func (b BoundingBox) IoU(o BoundingBox) float64 {
	xi1 := math.Max(b.X1, o.X1)
	yi1 := math.Max(b.Y1, o.Y1)
	xi2 := math.Min(b.X2, o.X2)
	yi2 := math.Min(b.Y2, o.Y2)

	inter := math.Max(0, xi2-xi1) * math.Max(0, yi2-yi1)
	union := b.Area() + o.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// RawDetection is what an external detector hands the core: a class label, a
// confidence and a pixel box. The core never calls the detector itself.
type RawDetection struct {
	Label      string     `json:"label" binding:"required"`
	Confidence float64    `json:"confidence"`
	Box        [4]float64 `json:"box"`
}

// Detection is the canonical, normalized record flowing through the
// aggregation pipeline. Created per request, never persisted as-is.
type Detection struct {
	Item            string          `json:"item"`
	Confidence      float64         `json:"confidence"`
	Box             BoundingBox     `json:"bounding_box"`
	BoxArea         float64         `json:"box_area"`
	PortionSize     PortionSize     `json:"portion_size"`
	EstimatedWeight float64         `json:"estimated_weight"`
	Method          DetectionMethod `json:"detection_method"`
}

// Fixed portion policy: relative box area under 8% of the image is small,
// under 20% medium, else large. Boundaries are inclusive toward the larger
// tier.
const (
	smallAreaLimit  = 0.08
	mediumAreaLimit = 0.20
)

// Default weights when the food key has no knowledge-base entry and the base
// carries no override table.
var builtinDefaultWeights = map[PortionSize]float64{
	PortionSmall:  80,
	PortionMedium: 120,
	PortionLarge:  180,
}

// classLabelMapping maps detector class names to knowledge-base keys.
// Unmapped labels fall back to the lowercased, underscore-joined label.
var classLabelMapping = map[string]string{
	"Idly":             "idli",
	"bisibele bath":    "bisibele_bath",
	"chapathi":         "chapati",
	"chicken biriyani": "biryani",
	"dosa":             "dosa",
	"kesari bath":      "kesari_bath",
	"khara pongal":     "pongal",
	"lemon rice":       "lemon_rice",
	"non veg meals":    "mixed_meal",
	"poori":            "puri",
	"puliyogare":       "tamarind_rice",
	"rave idli":        "idli",
	"shavige payasa":   "payasam",
	"upma":             "upma",
	"vangi bath":       "vangi_bath",
	"veg meals":        "mixed_meal",
	"veg palav":        "pulao",
}

// DetectionService normalizes raw detector output into canonical Detections.
// Pure function of its inputs and the read-only knowledge base.
type DetectionService struct {
	kb *KnowledgeBase
}

func NewDetectionService(kb *KnowledgeBase) *DetectionService {
	return &DetectionService{kb: kb}
}

// MapLabel resolves a detector class label to a knowledge-base key.
func MapLabel(label string) string {
	if key, ok := classLabelMapping[label]; ok {
		return key
	}
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(label)), " ", "_")
}

// Normalize converts one raw detection into a canonical Detection.
func (s *DetectionService) Normalize(raw RawDetection, imageWidth, imageHeight int) (Detection, error) {
	if imageWidth <= 0 || imageHeight <= 0 {
		return Detection{}, utils.NewInputError("image dimensions must be positive, got %dx%d", imageWidth, imageHeight)
	}
	if raw.Confidence < 0 || raw.Confidence > 1 {
		return Detection{}, utils.NewInputError("confidence %.3f outside [0,1]", raw.Confidence)
	}
	box := BoundingBox{X1: raw.Box[0], Y1: raw.Box[1], X2: raw.Box[2], Y2: raw.Box[3]}
	if box.X1 >= box.X2 || box.Y1 >= box.Y2 {
		return Detection{}, utils.NewInputError("degenerate bounding box [%v %v %v %v]", box.X1, box.Y1, box.X2, box.Y2)
	}

	item := MapLabel(raw.Label)
	boxArea := box.Area()
	relativeArea := boxArea / (float64(imageWidth) * float64(imageHeight))

	size := PortionLarge
	switch {
	case relativeArea < smallAreaLimit:
		size = PortionSmall
	case relativeArea < mediumAreaLimit:
		size = PortionMedium
	}

	weight := s.estimateWeight(item, size, raw.Confidence)

	return Detection{
		Item:            item,
		Confidence:      round3(raw.Confidence),
		Box:             box,
		BoxArea:         boxArea,
		PortionSize:     size,
		EstimatedWeight: round1(weight),
		Method:          MethodModel,
	}, nil
}

// NormalizeAll normalizes a batch, keeping input order.
func (s *DetectionService) NormalizeAll(raws []RawDetection, imageWidth, imageHeight int) ([]Detection, error) {
	out := make([]Detection, 0, len(raws))
	for _, raw := range raws {
		d, err := s.Normalize(raw, imageWidth, imageHeight)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// estimateWeight looks up the portion weight for the food and size, widened
// by an uncertainty factor for low-confidence detections. A food absent from
// the base gets the default weight table; that is an expected condition for
// fallback/external detections, so it only warns.
func (s *DetectionService) estimateWeight(item string, size PortionSize, confidence float64) float64 {
	factor := 1.0
	switch {
	case confidence < 0.65:
		factor = 1.2
	case confidence < 0.85:
		factor = 1.1
	}

	if food, ok := s.kb.Food(item); ok {
		if portion, ok := food.Portion(string(size)); ok {
			return portion.Weight * factor
		}
	}

	log.Printf("warning: %s not in nutrition database, using default %s weight", item, size)
	if w, ok := s.kb.DefaultPortionWeight(string(size)); ok {
		return w * factor
	}
	return builtinDefaultWeights[size] * factor
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
