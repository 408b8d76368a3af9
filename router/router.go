// router/router.go

package router

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/conformd/conformd/controller"
	"github.com/conformd/conformd/middleware"
)

func SetupRouter(
	controllers *controller.Controllers,
	rateLimitRequests int,
	rateLimitDuration time.Duration,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.Actor())
	router.Use(middleware.RateLimiter(rateLimitRequests, rateLimitDuration))

	api := router.Group("/api/v1")

	controllers.Standard.RegisterRoutes(api)
	controllers.Rule.RegisterRoutes(api)
	controllers.Evaluation.RegisterRoutes(api)

	return router
}
