package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/Nishaa1304/GlucoSage/utils"
)

// DemoNutrition is the pre-authored nutrition payload of a demo mapping.
type DemoNutrition struct {
	Calories      float64 `json:"calories" validate:"gte=0"`
	Carbohydrates float64 `json:"carbohydrates" validate:"gte=0"`
	Protein       float64 `json:"protein" validate:"gte=0"`
	Fat           float64 `json:"fat" validate:"gte=0"`
	Fiber         float64 `json:"fiber" validate:"gte=0"`
	Sugar         float64 `json:"sugar" validate:"gte=0"`
	Sodium        float64 `json:"sodium" validate:"gte=0"`
}

// DemoGlucoseCurve is the canned glucose response stored with a demo food.
type DemoGlucoseCurve struct {
	PeakTimeMinutes  float64 `json:"peak_time_minutes"`
	PeakIncreaseMgDl float64 `json:"peak_increase_mg_dl"`
	DurationHours    float64 `json:"duration_hours"`
	Advice           string  `json:"advice,omitempty"`
}

// DemoRecord is one pre-authored demo food entry keyed by image hash.
type DemoRecord struct {
	Name              string            `json:"name" binding:"required"`
	PortionSize       string            `json:"portion_size" binding:"required"`
	WeightGrams       float64           `json:"weight_grams" binding:"required,gt=0"`
	Nutrition         DemoNutrition     `json:"nutrition"`
	GlycemicIndex     float64           `json:"glycemic_index"`
	GlycemicLoad      float64           `json:"glycemic_load"`
	GlucosePrediction *DemoGlucoseCurve `json:"glucose_prediction,omitempty"`
}

// DemoMatch is a demo lookup hit: a synthesized high-confidence detection
// plus the stored record.
type DemoMatch struct {
	Hash      string     `json:"hash"`
	Item      string     `json:"item"`
	Detection Detection  `json:"detection"`
	Record    DemoRecord `json:"record"`
}

// DemoFoodSummary is the catalog view of configured demo foods.
type DemoFoodSummary struct {
	Name     string  `json:"name"`
	Portion  string  `json:"portion"`
	Calories float64 `json:"calories"`
}

// Confidence of an exact-match hit. The lookup is deterministic; anything
// below certainty would misrepresent it.
const demoMatchConfidence = 0.99

// DemoMapper maps canonical image hashes to pre-authored nutrition/glucose
// payloads. The mapping file is rewritten in full on every mutation; admin
// writes are serialized by a single-writer lock, regular lookups never
// mutate.
type DemoMapper struct {
	path string

	mu       sync.RWMutex
	mappings map[string]DemoRecord
}

// NewDemoMapper loads the flat JSON mapping table at path. A missing file is
// an empty table, not an error.
func NewDemoMapper(path string) (*DemoMapper, error) {
	m := &DemoMapper{path: path, mappings: make(map[string]DemoRecord)}

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read demo mapping: %w", err)
	}
	if err := json.Unmarshal(raw, &m.mappings); err != nil {
		return nil, utils.NewDataIntegrityError("demoMapping", "invalid JSON: %v", err)
	}
	return m, nil
}

// Lookup hashes the image and returns the mapped record. The boolean reports
// a miss; only decode/IO problems produce an error. A miss never falls
// through to the probabilistic detectors: exactness is the point.
func (m *DemoMapper) Lookup(imageBytes []byte) (*DemoMatch, bool, error) {
	hash, err := utils.CanonicalImageHash(imageBytes)
	if err != nil {
		return nil, false, err
	}

	m.mu.RLock()
	record, ok := m.mappings[hash]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}

	item := slugify(record.Name)
	match := &DemoMatch{
		Hash: hash,
		Item: item,
		Detection: Detection{
			Item:            item,
			Confidence:      demoMatchConfidence,
			PortionSize:     PortionSize(record.PortionSize),
			EstimatedWeight: record.WeightGrams,
			Method:          MethodDemoExact,
		},
		Record: record,
	}
	return match, true, nil
}

// Register inserts or overwrites the mapping for an image and persists the
// whole table. Returns the canonical hash used as the key.
func (m *DemoMapper) Register(imageBytes []byte, record DemoRecord) (string, error) {
	hash, err := utils.CanonicalImageHash(imageBytes)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	prev, existed := m.mappings[hash]
	m.mappings[hash] = record
	if err := m.saveLocked(); err != nil {
		// roll back without dropping an earlier mapping for the same hash
		if existed {
			m.mappings[hash] = prev
		} else {
			delete(m.mappings, hash)
		}
		return "", err
	}
	return hash, nil
}

// ListFoods returns the configured demo foods sorted by name.
func (m *DemoMapper) ListFoods() []DemoFoodSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	foods := make([]DemoFoodSummary, 0, len(m.mappings))
	for _, rec := range m.mappings {
		foods = append(foods, DemoFoodSummary{
			Name:     rec.Name,
			Portion:  rec.PortionSize,
			Calories: rec.Nutrition.Calories,
		})
	}
	sort.Slice(foods, func(i, j int) bool { return foods[i].Name < foods[j].Name })
	return foods
}

// Count reports how many mappings are loaded.
func (m *DemoMapper) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.mappings)
}

func slugify(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

func (m *DemoMapper) saveLocked() error {
	data, err := json.MarshalIndent(m.mappings, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(m.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(m.path, data, 0o644)
}
