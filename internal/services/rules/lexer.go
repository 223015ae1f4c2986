package rules

import (
	"fmt"
	"strings"
)

// TokenType classifies a lexed token.
type TokenType int

const (
	TokenMetric TokenType = iota
	TokenOperator
	TokenNumber
	TokenAnd
	TokenOr
	TokenEOF
)

func (t TokenType) String() string {
	switch t {
	case TokenMetric:
		return "metric"
	case TokenOperator:
		return "operator"
	case TokenNumber:
		return "number"
	case TokenAnd:
		return "AND"
	case TokenOr:
		return "OR"
	case TokenEOF:
		return "end of expression"
	default:
		return fmt.Sprintf("TokenType(%d)", int(t))
	}
}

// Token is one lexeme with its byte offset in the source expression.
type Token struct {
	Type   TokenType
	Value  string
	Offset int
}

// lexError is converted to a RuleParseError by the parser.
type lexError struct {
	offset int
	reason string
}

func (e *lexError) Error() string {
	return fmt.Sprintf("%s at offset %d", e.reason, e.offset)
}

// Tokenize splits expr into tokens. Only identifiers, the six comparison
// operators, decimal numbers and the AND/OR keywords are accepted; any other
// character is an error at its offset.
func Tokenize(expr string) ([]Token, error) {
	var tokens []Token
	i := 0
	for i < len(expr) {
		ch := expr[i]
		switch {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			i++
		case isIdentStart(ch):
			start := i
			for i < len(expr) && isIdentPart(expr[i]) {
				i++
			}
			word := expr[start:i]
			switch strings.ToUpper(word) {
			case "AND":
				tokens = append(tokens, Token{Type: TokenAnd, Value: "AND", Offset: start})
			case "OR":
				tokens = append(tokens, Token{Type: TokenOr, Value: "OR", Offset: start})
			default:
				tokens = append(tokens, Token{Type: TokenMetric, Value: word, Offset: start})
			}
		case isDigit(ch) || ch == '.' || ((ch == '-' || ch == '+') && i+1 < len(expr) && (isDigit(expr[i+1]) || expr[i+1] == '.')):
			start := i
			end, err := scanNumber(expr, i)
			if err != nil {
				return nil, err
			}
			i = end
			tokens = append(tokens, Token{Type: TokenNumber, Value: expr[start:i], Offset: start})
		case ch == '<' || ch == '>':
			start := i
			i++
			if i < len(expr) && expr[i] == '=' {
				i++
			}
			tokens = append(tokens, Token{Type: TokenOperator, Value: expr[start:i], Offset: start})
		case ch == '=' || ch == '!':
			if i+1 >= len(expr) || expr[i+1] != '=' {
				return nil, &lexError{offset: i, reason: fmt.Sprintf("unsupported operator %q", string(ch))}
			}
			tokens = append(tokens, Token{Type: TokenOperator, Value: expr[i : i+2], Offset: i})
			i += 2
		default:
			return nil, &lexError{offset: i, reason: fmt.Sprintf("unexpected character %q", string(ch))}
		}
	}
	tokens = append(tokens, Token{Type: TokenEOF, Offset: len(expr)})
	return tokens, nil
}

// scanNumber accepts [sign] digits [. digits] [e [sign] digits].
func scanNumber(expr string, i int) (int, error) {
	start := i
	if expr[i] == '-' || expr[i] == '+' {
		i++
	}
	digits := 0
	for i < len(expr) && isDigit(expr[i]) {
		i++
		digits++
	}
	if i < len(expr) && expr[i] == '.' {
		i++
		for i < len(expr) && isDigit(expr[i]) {
			i++
			digits++
		}
	}
	if digits == 0 {
		return 0, &lexError{offset: start, reason: "malformed number"}
	}
	if i < len(expr) && (expr[i] == 'e' || expr[i] == 'E') {
		j := i + 1
		if j < len(expr) && (expr[j] == '-' || expr[j] == '+') {
			j++
		}
		if j >= len(expr) || !isDigit(expr[j]) {
			return 0, &lexError{offset: start, reason: "malformed number"}
		}
		for j < len(expr) && isDigit(expr[j]) {
			j++
		}
		i = j
	}
	if i < len(expr) && (isIdentPart(expr[i]) || expr[i] == '.') {
		return 0, &lexError{offset: start, reason: "malformed number"}
	}
	return i, nil
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}
