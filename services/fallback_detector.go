package services

import (
	"image"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// hsvRange is a hue/saturation/value window. Hue in degrees [0,360),
// saturation and value in [0,1].
type hsvRange struct {
	HueMin, HueMax float64
	SatMin, SatMax float64
	ValMin, ValMax float64
}

func (r hsvRange) contains(h, s, v float64) bool {
	return h >= r.HueMin && h <= r.HueMax &&
		s >= r.SatMin && s <= r.SatMax &&
		v >= r.ValMin && v <= r.ValMax
}

// colorPattern ties a food key to its palette window and base confidence.
type colorPattern struct {
	Key            string
	Range          hsvRange
	BaseConfidence float64
}

// The fixed palette for under-detected plates. Order matters: the first
// matching pattern claims a grid cell, mirroring how the heuristic was tuned.
var fallbackPalette = []colorPattern{
	{Key: "dal", Range: hsvRange{HueMin: 30, HueMax: 60, SatMin: 0.39, SatMax: 1, ValMin: 0.39, ValMax: 1}, BaseConfidence: 0.6},
	{Key: "raita", Range: hsvRange{HueMin: 0, HueMax: 360, SatMin: 0, SatMax: 0.12, ValMin: 0.78, ValMax: 1}, BaseConfidence: 0.5},
	{Key: "paneer_curry", Range: hsvRange{HueMin: 20, HueMax: 50, SatMin: 0.2, SatMax: 0.78, ValMin: 0.39, ValMax: 1}, BaseConfidence: 0.55},
	{Key: "sabzi", Range: hsvRange{HueMin: 70, HueMax: 170, SatMin: 0.16, SatMax: 1, ValMin: 0.16, ValMax: 1}, BaseConfidence: 0.5},
	{Key: "chole", Range: hsvRange{HueMin: 10, HueMax: 40, SatMin: 0.31, SatMax: 1, ValMin: 0.31, ValMax: 0.78}, BaseConfidence: 0.5},
	{Key: "gulab_jamun", Range: hsvRange{HueMin: 0, HueMax: 20, SatMin: 0.39, SatMax: 1, ValMin: 0.2, ValMax: 0.59}, BaseConfidence: 0.5},
}

const (
	fallbackGridSize      = 4
	fallbackMatchRatio    = 0.15
	fallbackMaxConfidence = 0.85
	mergeIoUThreshold     = 0.30
	// The fallback pass only runs when the primary detector found fewer
	// detections than this.
	FallbackTriggerCount = 3
)

// FallbackDetector is a low-precision color heuristic for foods the trained
// model misses. It may add false positives; it never removes detections.
type FallbackDetector struct {
	kb *KnowledgeBase
}

func NewFallbackDetector(kb *KnowledgeBase) *FallbackDetector {
	return &FallbackDetector{kb: kb}
}

// DetectByColor splits the image into a 4x4 grid and matches each cell
// against the palette. A cell whose matching-pixel ratio exceeds 15% yields
// one medium-portion candidate; each food key is claimed at most once.
func (d *FallbackDetector) DetectByColor(img image.Image) []Detection {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width < fallbackGridSize || height < fallbackGridSize {
		return nil
	}

	cellW := width / fallbackGridSize
	cellH := height / fallbackGridSize

	var detections []Detection
	claimed := make(map[string]bool)

	for i := 0; i < fallbackGridSize; i++ {
		for j := 0; j < fallbackGridSize; j++ {
			x1 := bounds.Min.X + j*cellW
			y1 := bounds.Min.Y + i*cellH
			x2 := x1 + cellW
			y2 := y1 + cellH

			for _, pattern := range fallbackPalette {
				if claimed[pattern.Key] {
					continue
				}
				ratio := matchRatio(img, x1, y1, x2, y2, pattern.Range)
				if ratio <= fallbackMatchRatio {
					continue
				}
				claimed[pattern.Key] = true

				confidence := math.Min(pattern.BaseConfidence+ratio*0.2, fallbackMaxConfidence)
				weight := d.mediumWeight(pattern.Key)
				detections = append(detections, Detection{
					Item:            pattern.Key,
					Confidence:      round3(confidence),
					Box:             BoundingBox{X1: float64(x1), Y1: float64(y1), X2: float64(x2), Y2: float64(y2)},
					BoxArea:         float64((x2 - x1) * (y2 - y1)),
					PortionSize:     PortionMedium,
					EstimatedWeight: weight,
					Method:          MethodFallbackColor,
				})
				break
			}
		}
	}

	return detections
}

func (d *FallbackDetector) mediumWeight(key string) float64 {
	if food, ok := d.kb.Food(key); ok {
		if p, ok := food.Portion(string(PortionMedium)); ok {
			return p.Weight
		}
	}
	if w, ok := d.kb.DefaultPortionWeight(string(PortionMedium)); ok {
		return w
	}
	return builtinDefaultWeights[PortionMedium]
}

func matchRatio(img image.Image, x1, y1, x2, y2 int, window hsvRange) float64 {
	total := 0
	matched := 0
	for y := y1; y < y2; y++ {
		for x := x1; x < x2; x++ {
			c, ok := colorful.MakeColor(img.At(x, y))
			if !ok {
				continue
			}
			h, s, v := c.Hsv()
			total++
			if window.contains(h, s, v) {
				matched++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(matched) / float64(total)
}

// MergeDetections supplements primary detections with fallback candidates.
// A candidate overlapping any primary detection at IoU >= 0.30 is discarded;
// primaries are always kept untouched.
func MergeDetections(primary, fallback []Detection) []Detection {
	merged := make([]Detection, len(primary))
	copy(merged, primary)

	for _, fb := range fallback {
		overlaps := false
		for _, p := range primary {
			if fb.Box.IoU(p.Box) >= mergeIoUThreshold {
				overlaps = true
				break
			}
		}
		if !overlaps {
			merged = append(merged, fb)
		}
	}
	return merged
}
