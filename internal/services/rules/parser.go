// Package rules compiles and evaluates threshold expressions of the form
// "metric OP number [AND|OR metric OP number ...]". Expressions are parsed
// into a fixed tree and never executed as code.
package rules

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"Moatline/internal/domain/models"
)

const (
	DefaultMaxLength  = 256
	DefaultMaxClauses = 8
)

// Evaluator parses and evaluates rule expressions against a closed metric
// vocabulary. It is immutable once built.
type Evaluator struct {
	known      map[string]struct{}
	maxLength  int
	maxClauses int
}

type Option func(*Evaluator)

// WithKnownMetrics replaces the accepted metric vocabulary.
func WithKnownMetrics(names ...string) Option {
	return func(e *Evaluator) {
		e.known = make(map[string]struct{}, len(names))
		for _, n := range names {
			e.known[n] = struct{}{}
		}
	}
}

// WithLimits bounds expression length in bytes and number of comparisons.
func WithLimits(maxLength, maxClauses int) Option {
	return func(e *Evaluator) {
		if maxLength > 0 {
			e.maxLength = maxLength
		}
		if maxClauses > 0 {
			e.maxClauses = maxClauses
		}
	}
}

func NewEvaluator(opts ...Option) *Evaluator {
	e := &Evaluator{
		maxLength:  DefaultMaxLength,
		maxClauses: DefaultMaxClauses,
	}
	WithKnownMetrics(models.KnownMetrics()...)(e)
	for _, o := range opts {
		o(e)
	}
	return e
}

// Parse compiles expr. Errors are *models.RuleParseError without a rule name.
func (e *Evaluator) Parse(expr string) (Condition, error) {
	fail := func(offset int, format string, args ...interface{}) error {
		return &models.RuleParseError{Expression: expr, Offset: offset, Reason: fmt.Sprintf(format, args...)}
	}

	if len(expr) > e.maxLength {
		return Condition{}, fail(e.maxLength, "expression longer than %d bytes", e.maxLength)
	}
	tokens, err := Tokenize(expr)
	if err != nil {
		var le *lexError
		if errors.As(err, &le) {
			return Condition{}, fail(le.offset, "%s", le.reason)
		}
		return Condition{}, fail(0, "%v", err)
	}

	p := &parser{tokens: tokens}
	var cond Condition
	for {
		cmp, err := e.comparison(p, fail)
		if err != nil {
			return Condition{}, err
		}
		cond.Clauses = append(cond.Clauses, cmp)
		if len(cond.Clauses) > e.maxClauses {
			return Condition{}, fail(p.peek().Offset, "more than %d comparisons", e.maxClauses)
		}

		tok := p.next()
		switch tok.Type {
		case TokenEOF:
			return cond, nil
		case TokenAnd, TokenOr:
			c := CombinatorAnd
			if tok.Type == TokenOr {
				c = CombinatorOr
			}
			if cond.Combinator != CombinatorNone && cond.Combinator != c {
				return Condition{}, fail(tok.Offset, "cannot mix AND and OR without grouping")
			}
			cond.Combinator = c
		default:
			return Condition{}, fail(tok.Offset, "expected AND, OR or end of expression, got %s %q", tok.Type, tok.Value)
		}
	}
}

func (e *Evaluator) comparison(p *parser, fail func(int, string, ...interface{}) error) (Comparison, error) {
	tok := p.next()
	if tok.Type != TokenMetric {
		return Comparison{}, fail(tok.Offset, "expected metric, got %s %q", tok.Type, tok.Value)
	}
	if _, ok := e.known[tok.Value]; !ok {
		return Comparison{}, fail(tok.Offset, "unknown metric %q", tok.Value)
	}
	cmp := Comparison{Metric: tok.Value}

	tok = p.next()
	if tok.Type != TokenOperator {
		return Comparison{}, fail(tok.Offset, "expected comparison operator, got %s %q", tok.Type, tok.Value)
	}
	cmp.Op = Op(tok.Value)

	tok = p.next()
	if tok.Type != TokenNumber {
		return Comparison{}, fail(tok.Offset, "expected number, got %s %q", tok.Type, tok.Value)
	}
	v, err := strconv.ParseFloat(tok.Value, 64)
	if err != nil || math.IsInf(v, 0) {
		return Comparison{}, fail(tok.Offset, "number %q out of range", tok.Value)
	}
	cmp.Value = v
	return cmp, nil
}

// Evaluate checks a compiled rule against s.
func (e *Evaluator) Evaluate(r CompiledRule, s models.Snapshot) Result {
	return r.Condition.Evaluate(s)
}

type parser struct {
	tokens []Token
	pos    int
}

func (p *parser) peek() Token {
	return p.tokens[p.pos]
}

func (p *parser) next() Token {
	t := p.tokens[p.pos]
	if t.Type != TokenEOF {
		p.pos++
	}
	return t
}
