package routes

import (
	"time"

	"github.com/Nishaa1304/GlucoSage/controllers"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Controllers bundles everything the router mounts.
type Controllers struct {
	Health   *controllers.HealthController
	Food     *controllers.FoodController
	Glucose  *controllers.GlucoseController
	Demo     *controllers.DemoController
	Feedback *controllers.FeedbackController
	Realtime *controllers.RealtimeController
}

func SetupRouter(ctl Controllers) *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", ctl.Health.Health)

	v1 := r.Group("/api/v1")
	{
		food := v1.Group("/food")
		{
			food.POST("/detect", ctl.Food.Detect)
			food.POST("/detect/demo", ctl.Demo.Detect)
			food.POST("/detect/:provider", ctl.Food.DetectWithProvider)
			food.POST("/analyze", ctl.Food.Analyze)
			food.POST("/scan-and-predict", ctl.Food.ScanAndPredict)
			food.GET("/scans", ctl.Food.RecentScans)
		}

		glucose := v1.Group("/glucose")
		{
			glucose.POST("/predict", ctl.Glucose.Predict)
			glucose.POST("/features", ctl.Glucose.Features)
		}

		demo := v1.Group("/demo")
		{
			demo.POST("/detect", ctl.Demo.Detect)
			demo.POST("/register", ctl.Demo.Register)
			demo.GET("/foods", ctl.Demo.ListFoods)
		}

		feedback := v1.Group("/feedback")
		{
			feedback.POST("", ctl.Feedback.Submit)
			feedback.GET("/summary", ctl.Feedback.Summary)
		}
	}

	r.GET("/ws/scans", ctl.Realtime.ScansWS)

	return r
}
