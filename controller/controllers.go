// controller/controllers.go
package controller

import "github.com/conformd/conformd/service"

type Controllers struct {
	Standard   *StandardController
	Rule       *RuleController
	Evaluation *EvaluationController
}

func InitializeControllers(services *service.Services) *Controllers {
	return &Controllers{
		Standard:   NewStandardController(services.Standard),
		Rule:       NewRuleController(services.Rule),
		Evaluation: NewEvaluationController(services.Evaluation),
	}
}
