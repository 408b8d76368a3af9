// controller/evaluation_controller.go
package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	conformd_errors "github.com/conformd/conformd/errors"
	"github.com/conformd/conformd/model"
	"github.com/conformd/conformd/service"
	"github.com/conformd/conformd/util"
)

type EvaluationController struct {
	evaluationService service.IEvaluationService
}

func NewEvaluationController(evaluationService service.IEvaluationService) *EvaluationController {
	return &EvaluationController{
		evaluationService: evaluationService,
	}
}

// RegisterRoutes registers the API routes
func (ec *EvaluationController) RegisterRoutes(r *gin.RouterGroup) {
	evaluations := r.Group("/evaluations")
	{
		evaluations.POST("", ec.Evaluate)
		evaluations.GET("/reports/:id", ec.GetReport)
		evaluations.GET("/gaps/:standardId", ec.AnalyzeGap)
	}
}

// Evaluate endpoint runs the requested controls against a snapshot
// of the environment and returns a compliance report.
func (ec *EvaluationController) Evaluate(c *gin.Context) {
	var request model.EvaluationRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid evaluation request", conformd_errors.ErrInvalidEvaluationRequest)
		return
	}
	actorID, err := util.GetActorIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	report, err := ec.evaluationService.Evaluate(c, request, actorID)
	if err != nil {
		switch {
		case errors.Is(err, conformd_errors.ErrInvalidEvaluationRequest):
			util.RespondWithError(c, http.StatusBadRequest, "Invalid evaluation request", err)
		case errors.Is(err, conformd_errors.ErrSnapshotUnavailable):
			util.RespondWithError(c, http.StatusServiceUnavailable, "Environment snapshot unavailable", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Evaluation failed", conformd_errors.ErrInternalServer)
		}
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetReport endpoint
func (ec *EvaluationController) GetReport(c *gin.Context) {
	reportID := c.Param("id")

	report, err := ec.evaluationService.GetReport(c, reportID)
	if err != nil {
		if errors.Is(err, conformd_errors.ErrReportNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Report not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve report", err)
		}
		return
	}

	c.JSON(http.StatusOK, report)
}

// AnalyzeGap endpoint reports which of a standard's controls have
// no active rules mapped to them.
func (ec *EvaluationController) AnalyzeGap(c *gin.Context) {
	standardID := c.Param("standardId")
	required := c.QueryArray("control")

	gap, err := ec.evaluationService.AnalyzeGap(c, standardID, required)
	if err != nil {
		if errors.Is(err, conformd_errors.ErrUnknownIdentifier) {
			util.RespondWithError(c, http.StatusNotFound, "Unknown standard identifier", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to analyze gap", err)
		}
		return
	}

	c.JSON(http.StatusOK, gap)
}
