package main

import (
	"context"
	"log"

	"github.com/Nishaa1304/GlucoSage/config"
	"github.com/Nishaa1304/GlucoSage/controllers"
	"github.com/Nishaa1304/GlucoSage/routes"
	"github.com/Nishaa1304/GlucoSage/services"
	"github.com/Nishaa1304/GlucoSage/utils"
)

func main() {
	config.Load()
	ctx := context.Background()

	kb, err := services.LoadKnowledgeBase(config.KnowledgeBasePath())
	if err != nil {
		log.Fatalf("knowledge base: %v", err)
	}
	log.Printf("loaded %d foods from %s", kb.FoodCount(), config.KnowledgeBasePath())

	demo, err := services.NewDemoMapper(config.DemoMappingPath())
	if err != nil {
		log.Fatalf("demo mapping: %v", err)
	}

	db, err := config.InitDB()
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if db == nil {
		log.Println("DB_HOST not set, scan history and feedback storage disabled")
	}

	if err := utils.InitS3(ctx); err != nil {
		log.Printf("S3 disabled: %v", err)
	}

	var regressor services.GlucoseRegressor
	if url := config.RegressorURL(); url != "" {
		regressor = services.NewHTTPRegressor(url)
	} else {
		log.Println("GLUCOSE_REGRESSOR_URL not set, glucose predictions disabled")
	}
	glucose := services.NewGlucoseService(regressor)

	var providerList []services.RecognitionProvider
	if rek, err := services.NewRekognitionProvider(ctx); err == nil {
		providerList = append(providerList, rek)
	} else {
		log.Printf("rekognition provider disabled: %v", err)
	}
	if key := config.SpoonacularAPIKey(); key != "" {
		providerList = append(providerList, services.NewSpoonacularProvider(key))
	}
	if token := config.LogMealToken(); token != "" {
		providerList = append(providerList, services.NewLogMealProvider(token))
	}
	if key := config.CalorieMamaAPIKey(); key != "" {
		providerList = append(providerList, services.NewCalorieMamaProvider(key))
	}
	providers := services.NewProviderRegistry(providerList...)

	detector := services.NewDetectionService(kb)
	fallback := services.NewFallbackDetector(kb)
	nutrition := services.NewNutritionService(kb)
	advice := services.NewAdviceService(kb)
	hub := services.NewRealtimeHub()

	scan := services.NewScanService(db, detector, fallback, nutrition, advice, glucose, hub)
	feedback := services.NewFeedbackService(db)

	r := routes.SetupRouter(routes.Controllers{
		Health:   controllers.NewHealthController(kb, demo, glucose),
		Food:     controllers.NewFoodController(scan, demo, providers),
		Glucose:  controllers.NewGlucoseController(glucose),
		Demo:     controllers.NewDemoController(demo),
		Feedback: controllers.NewFeedbackController(feedback),
		Realtime: controllers.NewRealtimeController(hub),
	})

	addr := ":" + config.Port()
	log.Printf("listening on %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
