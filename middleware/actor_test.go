package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/conformd/conformd/middleware"
	"github.com/conformd/conformd/util"
)

func actorRouter(captured *string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.Actor())
	router.GET("/ping", func(c *gin.Context) {
		actorID, _ := util.GetActorIDFromContext(c)
		*captured = actorID
		c.Status(http.StatusOK)
	})
	return router
}

func TestActor(t *testing.T) {
	var actorID string
	router := actorRouter(&actorID)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(middleware.ActorHeader, "auditor-7")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "auditor-7", actorID)
}

func TestActor_MissingHeader(t *testing.T) {
	var actorID string
	router := actorRouter(&actorID)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, actorID)
}
