// controller/standard_controller.go
package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	conformd_errors "github.com/conformd/conformd/errors"
	"github.com/conformd/conformd/model"
	"github.com/conformd/conformd/service"
	"github.com/conformd/conformd/util"
	helper_util "github.com/conformd/conformd/util/helper"
)

type StandardController struct {
	standardService service.IStandardService
}

func NewStandardController(standardService service.IStandardService) *StandardController {
	return &StandardController{
		standardService: standardService,
	}
}

// RegisterRoutes registers the API routes
func (sc *StandardController) RegisterRoutes(r *gin.RouterGroup) {
	standards := r.Group("/standards")
	{
		standards.POST("", sc.CreateStandard)
		standards.PUT("/:id", sc.UpdateStandard)
		standards.DELETE("/:id", sc.DeleteStandard)
		standards.GET("/:id", sc.GetStandard)
		standards.GET("", sc.ListStandards)
		standards.POST("/search", sc.SearchStandards)
	}
}

// CreateStandard endpoint
func (sc *StandardController) CreateStandard(c *gin.Context) {
	var standard model.Standard
	if err := c.ShouldBindJSON(&standard); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid standard data", conformd_errors.ErrInvalidStandardData)
		return
	}
	actorID, err := util.GetActorIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	createdStandard, err := sc.standardService.CreateStandard(c, standard, actorID)
	if err != nil {
		switch {
		case errors.Is(err, conformd_errors.ErrStandardConflict):
			util.RespondWithError(c, http.StatusConflict, "Standard already exists", err)
		case errors.Is(err, conformd_errors.ErrInvalidStandardData):
			util.RespondWithError(c, http.StatusBadRequest, "Invalid standard data", err)
		case errors.Is(err, conformd_errors.ErrDatabaseOperation):
			util.RespondWithError(c, http.StatusInternalServerError, "Database operation failed", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to create standard", conformd_errors.ErrInternalServer)
		}
		return
	}

	c.JSON(http.StatusCreated, createdStandard)
}

// UpdateStandard endpoint
func (sc *StandardController) UpdateStandard(c *gin.Context) {
	standardID := c.Param("id")
	var standard model.Standard
	if err := c.ShouldBindJSON(&standard); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid standard data", err)
		return
	}
	standard.ID = standardID
	actorID, err := util.GetActorIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	updatedStandard, err := sc.standardService.UpdateStandard(c, standard, actorID)
	if err != nil {
		switch {
		case errors.Is(err, conformd_errors.ErrStandardNotFound):
			util.RespondWithError(c, http.StatusNotFound, "Standard not found", err)
		case errors.Is(err, conformd_errors.ErrInvalidStandardData):
			util.RespondWithError(c, http.StatusBadRequest, "Invalid standard data", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to update standard", err)
		}
		return
	}

	c.JSON(http.StatusOK, updatedStandard)
}

// DeleteStandard endpoint
func (sc *StandardController) DeleteStandard(c *gin.Context) {
	standardID := c.Param("id")
	actorID, err := util.GetActorIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	if err := sc.standardService.DeleteStandard(c, standardID, actorID); err != nil {
		if errors.Is(err, conformd_errors.ErrStandardNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Standard not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to delete standard", err)
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// GetStandard endpoint
func (sc *StandardController) GetStandard(c *gin.Context) {
	standardID := c.Param("id")

	standard, err := sc.standardService.GetStandard(c, standardID)
	if err != nil {
		if errors.Is(err, conformd_errors.ErrStandardNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Standard not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve standard", err)
		}
		return
	}

	c.JSON(http.StatusOK, standard)
}

// ListStandards endpoint
func (sc *StandardController) ListStandards(c *gin.Context) {
	limit, offset, err := helper_util.GetPaginationParams(c)
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid pagination parameters", conformd_errors.ErrInvalidPagination)
		return
	}

	standards, err := sc.standardService.ListStandards(c, limit, offset)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to list standards", err)
		return
	}

	c.JSON(http.StatusOK, standards)
}

// SearchStandards endpoint
func (sc *StandardController) SearchStandards(c *gin.Context) {
	var criteria model.StandardSearchCriteria
	if err := c.ShouldBindJSON(&criteria); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid search criteria", err)
		return
	}

	standards, err := sc.standardService.SearchStandards(c, criteria)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to search standards", err)
		return
	}

	c.JSON(http.StatusOK, standards)
}
