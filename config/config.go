package config

import (
	"fmt"
	"log"
	"os"

	"github.com/Nishaa1304/GlucoSage/models"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

// Load reads the .env file if present. Missing file is fine in production
// where the environment is set by the deployment.
func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using process environment")
	}
}

// Getenv returns the variable or a default when unset or empty.
func Getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// KnowledgeBasePath is the nutrition database JSON file.
func KnowledgeBasePath() string {
	return Getenv("NUTRITION_DB_PATH", "data/nutrition_database.json")
}

// DemoMappingPath is the exact-match demo hash table JSON file.
func DemoMappingPath() string {
	return Getenv("DEMO_MAPPING_PATH", "data/demo_mapping.json")
}

// RegressorURL is the external glucose regressor endpoint. Empty disables
// glucose predictions.
func RegressorURL() string {
	return os.Getenv("GLUCOSE_REGRESSOR_URL")
}

func SpoonacularAPIKey() string { return os.Getenv("SPOONACULAR_API_KEY") }
func LogMealToken() string      { return os.Getenv("LOGMEAL_API_TOKEN") }
func CalorieMamaAPIKey() string { return os.Getenv("CALORIE_MAMA_API_KEY") }
func S3Bucket() string          { return os.Getenv("S3_BUCKET_NAME") }

func Port() string {
	return Getenv("PORT", "8080")
}

// InitDB connects to Postgres and migrates the scan history and feedback
// tables. Scan history is optional: when DB_HOST is unset the service runs
// stateless and callers get a nil handle.
func InitDB() (*gorm.DB, error) {
	if os.Getenv("DB_HOST") == "" {
		return nil, nil
	}

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		Getenv("DB_PORT", "5432"),
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	err = db.AutoMigrate(
		&models.ScanRecord{},
		&models.FeedbackEntry{},
	)
	if err != nil {
		return nil, fmt.Errorf("automigrate failed: %w", err)
	}

	DB = db
	return db, nil
}
