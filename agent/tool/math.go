package tool

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	contractx "github.com/tanpawarit/orbita/agent/contract"
)

const maxExpressionLen = 512

func executeMathTool(tool string, args map[string]any) (contractx.ToolResult, error) {
	expression := argString(args, "expression")
	if expression == "" {
		return errResult(tool, "'expression' is required"), nil
	}
	if len(expression) > maxExpressionLen {
		return errResult(tool, "expression is too long"), nil
	}

	value, err := evalExpression(expression)
	if err != nil {
		return errResult(tool, "%v", err), nil
	}
	return contractx.ToolResult{
		Tool: tool,
		Result: map[string]any{
			"expression": expression,
			"result":     value,
		},
	}, nil
}

// evalExpression evaluates a plain arithmetic expression with + - * / % ^,
// unary signs, and parentheses. Anything else is rejected up front.
func evalExpression(input string) (float64, error) {
	for _, ch := range input {
		if !strings.ContainsRune("0123456789. \t+-*/%^()", ch) {
			return 0, fmt.Errorf("unsupported character %q in expression", ch)
		}
	}

	s := &exprScanner{src: input}
	value, err := s.sum()
	if err != nil {
		return 0, err
	}
	if s.next() != 0 {
		return 0, fmt.Errorf("unexpected %q at offset %d", s.next(), s.off)
	}
	return value, nil
}

// exprScanner is a small recursive-descent evaluator. Precedence from loose
// to tight: sum, product, exponent, atom. Exponent is right-associative.
type exprScanner struct {
	src string
	off int
}

// next returns the first non-space byte without consuming it, 0 at the end.
func (s *exprScanner) next() byte {
	for s.off < len(s.src) && (s.src[s.off] == ' ' || s.src[s.off] == '\t') {
		s.off++
	}
	if s.off >= len(s.src) {
		return 0
	}
	return s.src[s.off]
}

func (s *exprScanner) accept(op byte) bool {
	if s.next() == op {
		s.off++
		return true
	}
	return false
}

func (s *exprScanner) sum() (float64, error) {
	acc, err := s.product()
	if err != nil {
		return 0, err
	}
	for {
		switch {
		case s.accept('+'):
			v, err := s.product()
			if err != nil {
				return 0, err
			}
			acc += v
		case s.accept('-'):
			v, err := s.product()
			if err != nil {
				return 0, err
			}
			acc -= v
		default:
			return acc, nil
		}
	}
}

func (s *exprScanner) product() (float64, error) {
	acc, err := s.exponent()
	if err != nil {
		return 0, err
	}
	for {
		switch {
		case s.accept('*'):
			v, err := s.exponent()
			if err != nil {
				return 0, err
			}
			acc *= v
		case s.accept('/'):
			v, err := s.exponent()
			if err != nil {
				return 0, err
			}
			if v == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			acc /= v
		case s.accept('%'):
			v, err := s.exponent()
			if err != nil {
				return 0, err
			}
			if v == 0 {
				return 0, fmt.Errorf("modulo by zero")
			}
			acc = math.Mod(acc, v)
		default:
			return acc, nil
		}
	}
}

func (s *exprScanner) exponent() (float64, error) {
	base, err := s.atom()
	if err != nil {
		return 0, err
	}
	if s.accept('^') {
		exp, err := s.exponent()
		if err != nil {
			return 0, err
		}
		return math.Pow(base, exp), nil
	}
	return base, nil
}

func (s *exprScanner) atom() (float64, error) {
	switch {
	case s.accept('+'):
		return s.atom()
	case s.accept('-'):
		v, err := s.atom()
		if err != nil {
			return 0, err
		}
		return -v, nil
	case s.accept('('):
		v, err := s.sum()
		if err != nil {
			return 0, err
		}
		if !s.accept(')') {
			return 0, fmt.Errorf("missing ')' at offset %d", s.off)
		}
		return v, nil
	}
	return s.number()
}

func (s *exprScanner) number() (float64, error) {
	s.next() // skip leading space
	start := s.off
	dots := 0
	for s.off < len(s.src) {
		ch := s.src[s.off]
		if ch == '.' {
			dots++
			if dots > 1 {
				return 0, fmt.Errorf("malformed number at offset %d", start)
			}
		} else if ch < '0' || ch > '9' {
			break
		}
		s.off++
	}
	if s.off == start || (s.off-start == 1 && dots == 1) {
		return 0, fmt.Errorf("expected a number at offset %d", start)
	}
	v, err := strconv.ParseFloat(s.src[start:s.off], 64)
	if err != nil {
		return 0, fmt.Errorf("malformed number %q", s.src[start:s.off])
	}
	return v, nil
}
