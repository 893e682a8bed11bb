package services

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func providerTestImage(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 200, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 200; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 200, G: 120, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestCalorieMamaDetect(t *testing.T) {
	var gotKey, gotHost string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-RapidAPI-Key")
		gotHost = r.Header.Get("X-RapidAPI-Host")
		if r.URL.Path != "/api/v1/foodrecognition" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			t.Errorf("multipart: %v", err)
		}
		if _, _, err := r.FormFile("image"); err != nil {
			t.Errorf("image field: %v", err)
		}
		w.Write([]byte(`{"items":[{"name":"biryani","confidence":0.91},{"name":"raita"}]}`))
	}))
	defer srv.Close()

	p := &CalorieMamaProvider{
		client:  &http.Client{Timeout: 5 * time.Second},
		baseURL: srv.URL,
		apiKey:  "test-key",
	}

	raws, err := p.Detect(context.Background(), providerTestImage(t))
	if err != nil {
		t.Fatal(err)
	}
	if gotKey != "test-key" || gotHost == "" {
		t.Errorf("rapidapi headers = %q/%q", gotKey, gotHost)
	}
	if len(raws) != 2 {
		t.Fatalf("raws = %d, want 2", len(raws))
	}
	if raws[0].Label != "biryani" || raws[0].Confidence != 0.91 {
		t.Errorf("first = %+v", raws[0])
	}
	// entries without a confidence get the documented default
	if raws[1].Label != "raita" || raws[1].Confidence != calorieMamaDefaultConfidence {
		t.Errorf("second = %+v", raws[1])
	}
	// no localization in the response, boxes cover the frame
	if raws[0].Box != [4]float64{0, 0, 200, 100} {
		t.Errorf("box = %v", raws[0].Box)
	}
}

func TestCalorieMamaDetectUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := &CalorieMamaProvider{
		client:  &http.Client{Timeout: 5 * time.Second},
		baseURL: srv.URL,
		apiKey:  "test-key",
	}
	if _, err := p.Detect(context.Background(), providerTestImage(t)); err == nil {
		t.Fatal("expected error")
	}
}

func TestProviderRegistry(t *testing.T) {
	reg := NewProviderRegistry(
		NewSpoonacularProvider("k"),
		NewLogMealProvider("t"),
		NewCalorieMamaProvider("k"),
	)
	for _, name := range []string{"spoonacular", "logmeal", "calorie_mama"} {
		if _, ok := reg.Get(name); !ok {
			t.Errorf("provider %q not registered", name)
		}
	}
	if _, ok := reg.Get("clarifai"); ok {
		t.Error("unexpected provider")
	}
	if len(reg.Names()) != 3 {
		t.Errorf("names = %v", reg.Names())
	}
}
