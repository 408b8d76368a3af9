// controller/standard_controller_test.go
package controller_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	testify_mock "github.com/stretchr/testify/mock"

	"github.com/conformd/conformd/controller"
	conformd_errors "github.com/conformd/conformd/errors"
	logger "github.com/conformd/conformd/logging"
	"github.com/conformd/conformd/model"
	"github.com/conformd/conformd/test/mock"
)

func TestStandardController(t *testing.T) {
	// Initialize logger
	logger.InitLogger(t.TempDir())
	defer logger.Sync()

	mockStandardService := new(mock.MockStandardService)
	standardController := controller.NewStandardController(mockStandardService)
	router := setupRouter()
	api := router.Group("/")
	standardController.RegisterRoutes(api)

	t.Run("CreateStandard_Success", func(t *testing.T) {
		mockStandardService.On("CreateStandard", testify_mock.Anything, testify_mock.Anything, testify_mock.Anything).
			Return(&model.Standard{ID: "CIS-AWS", Name: "CIS AWS Foundations"}, nil).Once()

		body := strings.NewReader(`{"id":"CIS-AWS","name":"CIS AWS Foundations","version":"1.4"}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/standards", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("CreateStandard_Failure_Conflict", func(t *testing.T) {
		mockStandardService.On("CreateStandard", testify_mock.Anything, testify_mock.Anything, testify_mock.Anything).
			Return(nil, conformd_errors.ErrStandardConflict).Once()

		body := strings.NewReader(`{"id":"CIS-AWS","name":"CIS AWS Foundations","version":"1.4"}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/standards", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("UpdateStandard_Success", func(t *testing.T) {
		mockStandardService.On("UpdateStandard", testify_mock.Anything, testify_mock.Anything, testify_mock.Anything).
			Return(&model.Standard{ID: "CIS-AWS", Name: "Updated"}, nil).Once()

		body := strings.NewReader(`{"name":"Updated","version":"1.5"}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("PUT", "/standards/CIS-AWS", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("UpdateStandard_Failure_NotFound", func(t *testing.T) {
		mockStandardService.On("UpdateStandard", testify_mock.Anything, testify_mock.Anything, testify_mock.Anything).
			Return(nil, conformd_errors.ErrStandardNotFound).Once()

		body := strings.NewReader(`{"name":"Updated","version":"1.5"}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("PUT", "/standards/MISSING", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("DeleteStandard_Success", func(t *testing.T) {
		mockStandardService.On("DeleteStandard", testify_mock.Anything, "CIS-AWS", testify_mock.Anything).
			Return(nil).Once()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("DELETE", "/standards/CIS-AWS", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("GetStandard_Success", func(t *testing.T) {
		mockStandardService.On("GetStandard", testify_mock.Anything, "CIS-AWS").
			Return(&model.Standard{ID: "CIS-AWS", Name: "CIS AWS Foundations"}, nil).Once()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/standards/CIS-AWS", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("GetStandard_Failure_NotFound", func(t *testing.T) {
		mockStandardService.On("GetStandard", testify_mock.Anything, "MISSING").
			Return(nil, conformd_errors.ErrStandardNotFound).Once()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/standards/MISSING", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("ListStandards_Success", func(t *testing.T) {
		mockStandardService.On("ListStandards", testify_mock.Anything, 10, 0).
			Return([]*model.Standard{{ID: "CIS-AWS"}}, nil).Once()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/standards?limit=10&offset=0", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	mockStandardService.AssertExpectations(t)
}
