// controller/rule_controller.go
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

type RuleController struct {
	ruleService service.IRuleService
}

func NewRuleController(ruleService service.IRuleService) *RuleController {
	return &RuleController{
		ruleService: ruleService,
	}
}

// RegisterRoutes registers the API routes
func (rc *RuleController) RegisterRoutes(r *gin.RouterGroup) {
	rules := r.Group("/rules")
	{
		rules.POST("", rc.CreateRule)
		rules.PUT("/:id", rc.UpdateRule)
		rules.DELETE("/:id", rc.DeleteRule)
		rules.GET("/:id", rc.GetRule)
		rules.GET("", rc.ListRules)
		rules.GET("/control/:controlId", rc.GetRulesForControl)
	}
}

// CreateRule endpoint
func (rc *RuleController) CreateRule(c *gin.Context) {
	var rule model.PolicyRule
	if err := c.ShouldBindJSON(&rule); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid rule data", conformd_errors.ErrInvalidRuleData)
		return
	}
	actorID, err := util.GetActorIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	createdRule, err := rc.ruleService.CreateRule(c, rule, actorID)
	if err != nil {
		switch {
		case errors.Is(err, conformd_errors.ErrRuleConflict):
			util.RespondWithError(c, http.StatusConflict, "Rule already exists", err)
		case errors.Is(err, conformd_errors.ErrUnknownIdentifier):
			util.RespondWithError(c, http.StatusBadRequest, "Rule references an unknown control", err)
		case errors.Is(err, conformd_errors.ErrInvalidRuleData):
			util.RespondWithError(c, http.StatusBadRequest, "Invalid rule data", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to create rule", conformd_errors.ErrInternalServer)
		}
		return
	}

	c.JSON(http.StatusCreated, createdRule)
}

// UpdateRule endpoint
func (rc *RuleController) UpdateRule(c *gin.Context) {
	ruleID := c.Param("id")
	var rule model.PolicyRule
	if err := c.ShouldBindJSON(&rule); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid rule data", err)
		return
	}
	rule.ID = ruleID
	actorID, err := util.GetActorIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	updatedRule, err := rc.ruleService.UpdateRule(c, rule, actorID)
	if err != nil {
		switch {
		case errors.Is(err, conformd_errors.ErrRuleNotFound):
			util.RespondWithError(c, http.StatusNotFound, "Rule not found", err)
		case errors.Is(err, conformd_errors.ErrUnknownIdentifier):
			util.RespondWithError(c, http.StatusBadRequest, "Rule references an unknown control", err)
		case errors.Is(err, conformd_errors.ErrInvalidRuleData):
			util.RespondWithError(c, http.StatusBadRequest, "Invalid rule data", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to update rule", err)
		}
		return
	}

	c.JSON(http.StatusOK, updatedRule)
}

// DeleteRule endpoint
func (rc *RuleController) DeleteRule(c *gin.Context) {
	ruleID := c.Param("id")
	actorID, err := util.GetActorIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	if err := rc.ruleService.DeleteRule(c, ruleID, actorID); err != nil {
		if errors.Is(err, conformd_errors.ErrRuleNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Rule not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to delete rule", err)
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// GetRule endpoint
func (rc *RuleController) GetRule(c *gin.Context) {
	ruleID := c.Param("id")

	rule, err := rc.ruleService.GetRule(c, ruleID)
	if err != nil {
		if errors.Is(err, conformd_errors.ErrRuleNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Rule not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve rule", err)
		}
		return
	}

	c.JSON(http.StatusOK, rule)
}

// ListRules endpoint
func (rc *RuleController) ListRules(c *gin.Context) {
	limit, offset, err := helper_util.GetPaginationParams(c)
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid pagination parameters", conformd_errors.ErrInvalidPagination)
		return
	}

	rules, err := rc.ruleService.ListRules(c, limit, offset)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to list rules", err)
		return
	}

	c.JSON(http.StatusOK, rules)
}

// GetRulesForControl endpoint
func (rc *RuleController) GetRulesForControl(c *gin.Context) {
	controlID := c.Param("controlId")

	rules, err := rc.ruleService.GetRulesForControl(c, controlID)
	if err != nil {
		if errors.Is(err, conformd_errors.ErrUnknownIdentifier) {
			util.RespondWithError(c, http.StatusNotFound, "Unknown control identifier", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve rules for control", err)
		}
		return
	}

	c.JSON(http.StatusOK, rules)
}
