package server

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	httpHandler "crosspost/interfaces/http"
	"crosspost/interfaces/middleware"
)

func InitiateRouter(
	publishHandler httpHandler.IPublishHandler,
	oauthHandler httpHandler.IOAuthHandler,
	uploadHandler httpHandler.IUploadHandler,
	metricsHandler httpHandler.IMetricsHandler,
	secretKey string,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:4200", "https://localhost:4200", "http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api := router.Group("api")
	api.Use(middleware.Auth(secretKey))

	// Provider callbacks arrive unauthenticated; the state parameter is the
	// only credential they carry.
	router.GET("/auth/:platform/callback", oauthHandler.Callback)

	api.GET("/auth/:platform/url", oauthHandler.GenerateAuthURL)
	api.GET("/auth/info/:taskId", oauthHandler.GetAuthInfo)
	api.POST("/auth/finalize", oauthHandler.FinalizeAccount)

	api.POST("/publish/tasks", publishHandler.CreateTask)
	api.GET("/publish/tasks/:id", publishHandler.GetTask)
	api.DELETE("/publish/tasks/:id", publishHandler.DeleteTask)
	api.POST("/publish/tasks/:id/now", publishHandler.PublishNow)
	api.PATCH("/publish/tasks/:id/time", publishHandler.UpdatePublishTime)
	api.GET("/publish/records", publishHandler.ListRecords)

	api.POST("/upload/init", uploadHandler.Init)
	api.POST("/upload/part", uploadHandler.Part)
	api.POST("/upload/complete", uploadHandler.Complete)

	api.GET("/metrics/:accountId/:workId", metricsHandler.GetWorkMetrics)

	return router
}
