package services

import (
	"image"
	"image/color"
	"math"
	"testing"
)

func uniformImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestDetectByColorUniformDal(t *testing.T) {
	det := NewFallbackDetector(loadTestKB(t))

	// warm yellow, squarely inside the dal window
	img := uniformImage(80, 80, color.RGBA{R: 230, G: 180, B: 40, A: 255})
	got := det.DetectByColor(img)

	// a uniform plate matches in every cell but each food is claimed once
	if len(got) != 1 {
		t.Fatalf("detections = %d, want 1", len(got))
	}
	d := got[0]
	if d.Item != "dal" {
		t.Errorf("item = %q, want dal", d.Item)
	}
	if d.Method != MethodFallbackColor {
		t.Errorf("method = %q, want %q", d.Method, MethodFallbackColor)
	}
	if d.PortionSize != PortionMedium {
		t.Errorf("portion = %q, want medium", d.PortionSize)
	}
	if d.EstimatedWeight != 150 { // dal medium weight from the database
		t.Errorf("weight = %v, want 150", d.EstimatedWeight)
	}
	// full-cell match: confidence = base 0.6 + 1.0*0.2
	if math.Abs(d.Confidence-0.8) > 1e-9 {
		t.Errorf("confidence = %v, want 0.8", d.Confidence)
	}
}

func TestDetectByColorGreenMatchesSabzi(t *testing.T) {
	det := NewFallbackDetector(loadTestKB(t))

	img := uniformImage(80, 80, color.RGBA{R: 40, G: 160, B: 60, A: 255})
	got := det.DetectByColor(img)
	if len(got) != 1 || got[0].Item != "sabzi" {
		t.Fatalf("detections = %+v, want single sabzi", got)
	}
	// sabzi is not in the fixture database, so the default medium weight is used
	if got[0].EstimatedWeight != 120 {
		t.Errorf("weight = %v, want 120", got[0].EstimatedWeight)
	}
}

func TestDetectByColorWhiteMatchesRaita(t *testing.T) {
	det := NewFallbackDetector(loadTestKB(t))

	img := uniformImage(64, 64, color.RGBA{R: 250, G: 250, B: 250, A: 255})
	got := det.DetectByColor(img)
	if len(got) != 1 || got[0].Item != "raita" {
		t.Fatalf("detections = %+v, want single raita", got)
	}
}

func TestDetectByColorNoMatch(t *testing.T) {
	det := NewFallbackDetector(loadTestKB(t))

	// mid gray: too dark for raita, too desaturated for everything else
	img := uniformImage(64, 64, color.RGBA{R: 100, G: 100, B: 100, A: 255})
	if got := det.DetectByColor(img); len(got) != 0 {
		t.Fatalf("detections = %+v, want none", got)
	}
}

func TestDetectByColorTinyImage(t *testing.T) {
	det := NewFallbackDetector(loadTestKB(t))
	img := uniformImage(2, 2, color.RGBA{R: 230, G: 180, B: 40, A: 255})
	if got := det.DetectByColor(img); got != nil {
		t.Fatalf("detections = %+v, want nil for sub-grid image", got)
	}
}

func TestMergeDetections(t *testing.T) {
	primary := []Detection{
		{Item: "idli", Box: BoundingBox{X1: 0, Y1: 0, X2: 100, Y2: 100}, Method: MethodModel},
	}
	fallback := []Detection{
		// heavy overlap with the primary, must be dropped
		{Item: "dal", Box: BoundingBox{X1: 10, Y1: 10, X2: 110, Y2: 110}, Method: MethodFallbackColor},
		// disjoint, must survive
		{Item: "raita", Box: BoundingBox{X1: 300, Y1: 300, X2: 400, Y2: 400}, Method: MethodFallbackColor},
	}

	merged := MergeDetections(primary, fallback)
	if len(merged) != 2 {
		t.Fatalf("merged = %d detections, want 2", len(merged))
	}
	if merged[0].Item != "idli" || merged[1].Item != "raita" {
		t.Errorf("merged = %q,%q, want idli,raita", merged[0].Item, merged[1].Item)
	}
}

func TestMergeDetectionsNeverRemovesPrimaries(t *testing.T) {
	primary := []Detection{
		{Item: "idli", Box: BoundingBox{X1: 0, Y1: 0, X2: 100, Y2: 100}},
		{Item: "rice", Box: BoundingBox{X1: 0, Y1: 0, X2: 100, Y2: 100}}, // duplicates allowed
	}
	merged := MergeDetections(primary, nil)
	if len(merged) != 2 {
		t.Fatalf("merged = %d, want both primaries kept", len(merged))
	}
}
