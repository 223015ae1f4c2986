package rules

import (
	"strconv"
	"strings"

	"Moatline/internal/domain/models"
)

// Op is a comparison operator.
type Op string

const (
	OpLT Op = "<"
	OpLE Op = "<="
	OpGT Op = ">"
	OpGE Op = ">="
	OpEQ Op = "=="
	OpNE Op = "!="
)

func (o Op) apply(a, b float64) bool {
	switch o {
	case OpLT:
		return a < b
	case OpLE:
		return a <= b
	case OpGT:
		return a > b
	case OpGE:
		return a >= b
	case OpEQ:
		return a == b
	case OpNE:
		return a != b
	default:
		return false
	}
}

// Combinator joins the comparisons of a condition.
type Combinator int

const (
	CombinatorNone Combinator = iota // single comparison
	CombinatorAnd
	CombinatorOr
)

func (c Combinator) String() string {
	switch c {
	case CombinatorAnd:
		return "AND"
	case CombinatorOr:
		return "OR"
	default:
		return ""
	}
}

// Comparison is METRIC OP NUMBER.
type Comparison struct {
	Metric string
	Op     Op
	Value  float64
}

func (c Comparison) String() string {
	return c.Metric + " " + string(c.Op) + " " + strconv.FormatFloat(c.Value, 'g', -1, 64)
}

// Condition is a flat list of comparisons joined by a single combinator.
type Condition struct {
	Clauses    []Comparison
	Combinator Combinator
}

// String renders the canonical form of the condition.
func (c Condition) String() string {
	parts := make([]string, len(c.Clauses))
	for i, cl := range c.Clauses {
		parts[i] = cl.String()
	}
	sep := " " + c.Combinator.String() + " "
	return strings.Join(parts, sep)
}

// Metrics returns referenced metric names in order of first reference.
func (c Condition) Metrics() []string {
	seen := make(map[string]struct{}, len(c.Clauses))
	out := make([]string, 0, len(c.Clauses))
	for _, cl := range c.Clauses {
		if _, ok := seen[cl.Metric]; ok {
			continue
		}
		seen[cl.Metric] = struct{}{}
		out = append(out, cl.Metric)
	}
	return out
}

// Outcome is the tri-state result of evaluating a condition.
type Outcome int

const (
	OutcomeFalse Outcome = iota
	OutcomeTrue
	OutcomeIndeterminate
)

func (o Outcome) String() string {
	switch o {
	case OutcomeTrue:
		return "true"
	case OutcomeFalse:
		return "false"
	default:
		return "indeterminate"
	}
}

// Result carries the outcome and, when indeterminate, the missing metrics.
type Result struct {
	Outcome Outcome
	Missing []string
	// Values holds the referenced metric values in order of first reference.
	Values []models.Evidence
}

// Evaluate checks the condition against s. If any referenced metric is
// absent the outcome is indeterminate, even when the present clauses alone
// would decide it.
func (c Condition) Evaluate(s models.Snapshot) Result {
	var res Result
	values := make(map[string]float64, len(c.Clauses))
	for _, m := range c.Metrics() {
		v, ok := s.Get(m)
		if !ok {
			res.Missing = append(res.Missing, m)
			continue
		}
		values[m] = v
		res.Values = append(res.Values, models.Evidence{Metric: m, Value: FormatValue(v)})
	}
	if len(res.Missing) > 0 {
		res.Outcome = OutcomeIndeterminate
		return res
	}

	matched := c.Combinator == CombinatorAnd || c.Combinator == CombinatorNone
	for _, cl := range c.Clauses {
		ok := cl.Op.apply(values[cl.Metric], cl.Value)
		switch c.Combinator {
		case CombinatorOr:
			matched = matched || ok
		default:
			matched = matched && ok
		}
	}
	if matched {
		res.Outcome = OutcomeTrue
	}
	return res
}
