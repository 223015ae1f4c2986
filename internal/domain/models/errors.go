package models

import "fmt"

// InputError reports a required snapshot field that is missing or unusable.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("input %s: %s", e.Field, e.Reason)
}

// ConfigurationError reports malformed assumptions, constraints or rule sets.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration %s: %s", e.Field, e.Reason)
}

// RuleParseError reports an expression outside the rule grammar. Offset is
// the byte position of the offending token.
type RuleParseError struct {
	Rule       string
	Expression string
	Offset     int
	Reason     string
}

func (e *RuleParseError) Error() string {
	if e.Rule != "" {
		return fmt.Sprintf("rule %q: %s at offset %d in %q", e.Rule, e.Reason, e.Offset, e.Expression)
	}
	return fmt.Sprintf("rule: %s at offset %d in %q", e.Reason, e.Offset, e.Expression)
}

// ValuationError reports a scenario that cannot be valued.
type ValuationError struct {
	Scenario Scenario
	Reason   string
}

func (e *ValuationError) Error() string {
	return fmt.Sprintf("valuation %s: %s", e.Scenario, e.Reason)
}

// Pipeline stage names used in StageError.
const (
	StageValuation   = "valuation"
	StageVeto        = "veto"
	StageStress      = "stress"
	StageAdversarial = "adversarial"
	StageDecision    = "decision"
	StageSizing      = "sizing"
)

// StageError wraps a fatal error with the stage and ticker it came from.
type StageError struct {
	Stage  string
	Ticker string
	Err    error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage (%s): %v", e.Stage, e.Ticker, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
