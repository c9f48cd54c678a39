package colorize

import (
	"fmt"
	"strconv"
	"strings"
)

// Value is one typed cell value: numeric when the cell text parses as a
// number, otherwise the raw string.
type Value struct {
	num   float64
	str   string
	isNum bool
}

func parseValue(text string) Value {
	s := strings.TrimSpace(text)
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return Value{num: n, isNum: true}
	}
	return Value{str: s}
}

func (v Value) kind() string {
	if v.isNum {
		return "number"
	}
	return "string"
}

// placeholder stands for "the current row's value at the target column"
// after property substitution.
const placeholder = "$_"

// substituteProperty replaces every case-insensitive occurrence of property
// in filter with the placeholder variable, producing the reusable predicate
// template.
func substituteProperty(filter, property string) string {
	lower := strings.ToLower(filter)
	prop := strings.ToLower(property)
	var b strings.Builder
	for i := 0; i < len(filter); {
		j := strings.Index(lower[i:], prop)
		if j < 0 {
			b.WriteString(filter[i:])
			break
		}
		j += i
		b.WriteString(filter[i:j])
		b.WriteString(placeholder)
		i = j + len(prop)
	}
	return b.String()
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokPlaceholder
	tokNumber
	tokString
	tokOp
	tokAnd
	tokOr
	tokNot
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
	num  float64
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '.'
}

func isDelim(c byte) bool {
	return c == ' ' || c == '\t' || c == '(' || c == ')' || c == '\'' || c == '"'
}

func lexFilter(src string) ([]token, error) {
	var toks []token
	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '(':
			toks = append(toks, token{kind: tokLParen})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen})
			i++
		case c == '\'' || c == '"':
			j := i + 1
			for j < len(src) && src[j] != c {
				j++
			}
			if j >= len(src) {
				return nil, fmt.Errorf("%w: unterminated string literal in filter", ErrConfiguration)
			}
			toks = append(toks, token{kind: tokString, text: src[i+1 : j]})
			i = j + 1
		case c == '-':
			j := i + 1
			for j < len(src) && isWordChar(src[j]) {
				j++
			}
			word := strings.ToLower(src[i+1 : j])
			switch word {
			case "and":
				toks = append(toks, token{kind: tokAnd})
			case "or":
				toks = append(toks, token{kind: tokOr})
			case "not":
				toks = append(toks, token{kind: tokNot})
			case "eq", "ne", "lt", "le", "gt", "ge", "like", "notlike":
				toks = append(toks, token{kind: tokOp, text: word})
			default:
				n, err := strconv.ParseFloat(src[i:j], 64)
				if err != nil {
					return nil, fmt.Errorf("%w: unknown operator -%s", ErrConfiguration, word)
				}
				toks = append(toks, token{kind: tokNumber, num: n})
			}
			i = j
		default:
			j := i
			for j < len(src) && !isDelim(src[j]) {
				j++
			}
			word := src[i:j]
			if word == placeholder {
				toks = append(toks, token{kind: tokPlaceholder})
			} else if n, err := strconv.ParseFloat(word, 64); err == nil {
				toks = append(toks, token{kind: tokNumber, num: n})
			} else {
				toks = append(toks, token{kind: tokString, text: word})
			}
			i = j
		}
	}
	return append(toks, token{kind: tokEOF}), nil
}

// predicate is a compiled filter: an immutable expression tree over one free
// variable, evaluated once per data row.
type predicate interface {
	eval(v Value) (bool, error)
}

type binaryExpr struct {
	and         bool
	left, right predicate
}

func (b *binaryExpr) eval(v Value) (bool, error) {
	l, err := b.left.eval(v)
	if err != nil {
		return false, err
	}
	// No short-circuit: a kind mismatch on either side is a configuration
	// fault and must surface regardless of the other side's outcome.
	r, err := b.right.eval(v)
	if err != nil {
		return false, err
	}
	if b.and {
		return l && r, nil
	}
	return l || r, nil
}

type notExpr struct {
	inner predicate
}

func (n *notExpr) eval(v Value) (bool, error) {
	ok, err := n.inner.eval(v)
	return !ok, err
}

type operand struct {
	variable bool
	val      Value
}

func (o operand) resolve(v Value) Value {
	if o.variable {
		return v
	}
	return o.val
}

type comparison struct {
	op          string
	left, right operand
}

func (c *comparison) eval(v Value) (bool, error) {
	l := c.left.resolve(v)
	r := c.right.resolve(v)

	if c.op == "like" || c.op == "notlike" {
		if l.isNum || r.isNum {
			return false, kindMismatch(c.op, l, r)
		}
		ok := wildcardMatch(r.str, l.str)
		if c.op == "notlike" {
			ok = !ok
		}
		return ok, nil
	}

	if l.isNum != r.isNum {
		return false, kindMismatch(c.op, l, r)
	}
	if l.isNum {
		switch c.op {
		case "eq":
			return l.num == r.num, nil
		case "ne":
			return l.num != r.num, nil
		case "lt":
			return l.num < r.num, nil
		case "le":
			return l.num <= r.num, nil
		case "gt":
			return l.num > r.num, nil
		case "ge":
			return l.num >= r.num, nil
		}
	}
	ls, rs := strings.ToLower(l.str), strings.ToLower(r.str)
	switch c.op {
	case "eq":
		return ls == rs, nil
	case "ne":
		return ls != rs, nil
	case "lt":
		return ls < rs, nil
	case "le":
		return ls <= rs, nil
	case "gt":
		return ls > rs, nil
	case "ge":
		return ls >= rs, nil
	}
	return false, fmt.Errorf("%w: unsupported operator -%s", ErrConfiguration, c.op)
}

func kindMismatch(op string, l, r Value) error {
	return fmt.Errorf("%w: -%s cannot compare %s with %s", ErrConfiguration, op, l.kind(), r.kind())
}

// wildcardMatch reports whether s matches the * / ? pattern,
// case-insensitively.
func wildcardMatch(pattern, s string) bool {
	return matchHere(strings.ToLower(pattern), strings.ToLower(s))
}

func matchHere(p, s string) bool {
	if p == "" {
		return s == ""
	}
	if p[0] == '*' {
		for i := 0; i <= len(s); i++ {
			if matchHere(p[1:], s[i:]) {
				return true
			}
		}
		return false
	}
	if s == "" {
		return false
	}
	if p[0] == '?' || p[0] == s[0] {
		return matchHere(p[1:], s[1:])
	}
	return false
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }
func (p *parser) next() token { t := p.toks[p.pos]; p.pos++; return t }

// compileFilter substitutes the property with the placeholder variable and
// parses the result into a predicate. Grammar, loosest binding first:
//
//	expr       := andExpr { '-or' andExpr }
//	andExpr    := unary { '-and' unary }
//	unary      := '-not' unary | '(' expr ')' | comparison
//	comparison := operand op operand
//	op         := -eq | -ne | -lt | -le | -gt | -ge | -like | -notlike
//	operand    := placeholder | number | string
func compileFilter(filter, property string) (predicate, error) {
	toks, err := lexFilter(substituteProperty(filter, property))
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, fmt.Errorf("%w: unexpected trailing input in filter %q", ErrConfiguration, filter)
	}
	return expr, nil
}

func (p *parser) parseOr() (predicate, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOr {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &binaryExpr{left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (predicate, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokAnd {
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &binaryExpr{and: true, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (predicate, error) {
	switch p.peek().kind {
	case tokNot:
		p.next()
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &notExpr{inner: inner}, nil
	case tokLParen:
		p.next()
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.peek().kind != tokRParen {
			return nil, fmt.Errorf("%w: missing closing parenthesis in filter", ErrConfiguration)
		}
		p.next()
		return expr, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (predicate, error) {
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	op := p.next()
	if op.kind != tokOp {
		return nil, fmt.Errorf("%w: expected comparison operator in filter", ErrConfiguration)
	}
	right, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	return &comparison{op: op.text, left: left, right: right}, nil
}

func (p *parser) parseOperand() (operand, error) {
	switch t := p.next(); t.kind {
	case tokPlaceholder:
		return operand{variable: true}, nil
	case tokNumber:
		return operand{val: Value{num: t.num, isNum: true}}, nil
	case tokString:
		return operand{val: Value{str: t.text}}, nil
	default:
		return operand{}, fmt.Errorf("%w: expected value or column reference in filter", ErrConfiguration)
	}
}
