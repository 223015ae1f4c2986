package usecase

import (
	"errors"

	"Moatline/internal/domain/models"
	"Moatline/internal/services/decision"
	"Moatline/internal/services/pipeline"
	"Moatline/internal/services/rules"
)

// RulesUseCase exposes the rule grammar and the verdict table to clients.
type RulesUseCase struct {
	evaluator *rules.Evaluator
	pipeline  *pipeline.Pipeline
}

func NewRulesUseCase(e *rules.Evaluator, p *pipeline.Pipeline) *RulesUseCase {
	return &RulesUseCase{evaluator: e, pipeline: p}
}

// ValidateRule parses expr and reports its canonical form or the parse error.
func (uc *RulesUseCase) ValidateRule(expr string) models.RuleValidationResponse {
	cond, err := uc.evaluator.Parse(expr)
	if err != nil {
		resp := models.RuleValidationResponse{Error: err.Error()}
		var pe *models.RuleParseError
		if errors.As(err, &pe) {
			off := pe.Offset
			resp.Error = pe.Reason
			resp.Offset = &off
		}
		return resp
	}
	return models.RuleValidationResponse{
		Valid:     true,
		Canonical: cond.String(),
		Metrics:   cond.Metrics(),
	}
}

// VetoRules returns the configured veto rules in evaluation order.
func (uc *RulesUseCase) VetoRules() []models.VetoRule {
	return uc.pipeline.Rules()
}

// DecisionTable returns the verdict transitions in evaluation order.
func (uc *RulesUseCase) DecisionTable() []decision.Transition {
	return uc.pipeline.Transitions()
}
