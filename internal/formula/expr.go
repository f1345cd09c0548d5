package formula

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Expression language for administrator-authored formulas.
//
// Grammar (precedence climbing):
//
//	expr    := term (("+" | "-") term)*
//	term    := unary (("*" | "/") unary)*
//	unary   := "-" unary | primary
//	primary := NUMBER | IDENT | IDENT "(" args ")" | "(" expr ")"
//	args    := expr ("," expr)*
//
// Identifiers are restricted to the canonical numeric fields and function
// names to a fixed allowlist. Parsing against a typed AST removes the
// injection surface of textual substitution and pins error positions.

// builtins is the complete function allowlist.
var builtins = map[string]struct{}{
	"abs":   {},
	"round": {},
	"min":   {},
	"max":   {},
	"sum":   {},
}

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokIdent
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokLParen
	tokRParen
	tokComma
	tokEOF
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

type node interface {
	eval(vars map[string]decimal.Decimal) (decimal.Decimal, error)
	collectIdents(into map[string]struct{})
}

type numberNode struct{ value decimal.Decimal }

func (n numberNode) eval(map[string]decimal.Decimal) (decimal.Decimal, error) { return n.value, nil }
func (n numberNode) collectIdents(map[string]struct{})                        {}

type identNode struct {
	name string
	pos  int
}

func (n identNode) eval(vars map[string]decimal.Decimal) (decimal.Decimal, error) {
	v, ok := vars[n.name]
	if !ok {
		return decimal.Zero, fmt.Errorf("identifier %q has no value (position %d)", n.name, n.pos)
	}
	return v, nil
}

func (n identNode) collectIdents(into map[string]struct{}) { into[n.name] = struct{}{} }

type unaryNode struct{ operand node }

func (n unaryNode) eval(vars map[string]decimal.Decimal) (decimal.Decimal, error) {
	v, err := n.operand.eval(vars)
	if err != nil {
		return decimal.Zero, err
	}
	return v.Neg(), nil
}

func (n unaryNode) collectIdents(into map[string]struct{}) { n.operand.collectIdents(into) }

type binaryNode struct {
	op          tokenKind
	pos         int
	left, right node
}

func (n binaryNode) eval(vars map[string]decimal.Decimal) (decimal.Decimal, error) {
	l, err := n.left.eval(vars)
	if err != nil {
		return decimal.Zero, err
	}
	r, err := n.right.eval(vars)
	if err != nil {
		return decimal.Zero, err
	}
	switch n.op {
	case tokPlus:
		return l.Add(r), nil
	case tokMinus:
		return l.Sub(r), nil
	case tokStar:
		return l.Mul(r), nil
	case tokSlash:
		if r.IsZero() {
			return decimal.Zero, fmt.Errorf("division by zero (position %d)", n.pos)
		}
		// 16 fractional digits covers the decimal(20,6) storage precision
		return l.DivRound(r, 16), nil
	}
	return decimal.Zero, fmt.Errorf("unknown operator")
}

func (n binaryNode) collectIdents(into map[string]struct{}) {
	n.left.collectIdents(into)
	n.right.collectIdents(into)
}

type callNode struct {
	name string
	pos  int
	args []node
}

func (n callNode) eval(vars map[string]decimal.Decimal) (decimal.Decimal, error) {
	values := make([]decimal.Decimal, len(n.args))
	for i, arg := range n.args {
		v, err := arg.eval(vars)
		if err != nil {
			return decimal.Zero, err
		}
		values[i] = v
	}

	switch n.name {
	case "abs":
		if len(values) != 1 {
			return decimal.Zero, fmt.Errorf("abs expects 1 argument, got %d (position %d)", len(values), n.pos)
		}
		return values[0].Abs(), nil
	case "round":
		switch len(values) {
		case 1:
			return values[0].Round(0), nil
		case 2:
			if !values[1].Equal(values[1].Truncate(0)) {
				return decimal.Zero, fmt.Errorf("round places must be an integer (position %d)", n.pos)
			}
			return values[0].Round(int32(values[1].IntPart())), nil
		default:
			return decimal.Zero, fmt.Errorf("round expects 1 or 2 arguments, got %d (position %d)", len(values), n.pos)
		}
	case "min":
		if len(values) == 0 {
			return decimal.Zero, fmt.Errorf("min expects at least 1 argument (position %d)", n.pos)
		}
		out := values[0]
		for _, v := range values[1:] {
			if v.LessThan(out) {
				out = v
			}
		}
		return out, nil
	case "max":
		if len(values) == 0 {
			return decimal.Zero, fmt.Errorf("max expects at least 1 argument (position %d)", n.pos)
		}
		out := values[0]
		for _, v := range values[1:] {
			if v.GreaterThan(out) {
				out = v
			}
		}
		return out, nil
	case "sum":
		out := decimal.Zero
		for _, v := range values {
			out = out.Add(v)
		}
		return out, nil
	}
	return decimal.Zero, fmt.Errorf("unknown function %q (position %d)", n.name, n.pos)
}

func (n callNode) collectIdents(into map[string]struct{}) {
	for _, arg := range n.args {
		arg.collectIdents(into)
	}
}

// Expr is a parsed, validated formula expression.
type Expr struct {
	root   node
	idents []string
}

// Identifiers returns the variable names the expression references, sorted.
func (e *Expr) Identifiers() []string {
	return e.idents
}

// Eval evaluates the expression against the supplied variable values.
// Every referenced identifier must be present.
func (e *Expr) Eval(vars map[string]decimal.Decimal) (decimal.Decimal, error) {
	return e.root.eval(vars)
}

// Parse tokenizes and parses src. allowedIdents bounds the variable
// namespace; any identifier outside it (and outside the function
// allowlist) is a parse error.
func Parse(src string, allowedIdents []string) (*Expr, error) {
	tokens, err := tokenize(src)
	if err != nil {
		return nil, err
	}

	allowed := make(map[string]struct{}, len(allowedIdents))
	for _, name := range allowedIdents {
		allowed[name] = struct{}{}
	}

	p := &parser{tokens: tokens, allowed: allowed}
	root, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, fmt.Errorf("unexpected %q at position %d", tok.text, tok.pos)
	}

	set := make(map[string]struct{})
	root.collectIdents(set)
	idents := make([]string, 0, len(set))
	for name := range set {
		idents = append(idents, name)
	}
	sort.Strings(idents)

	return &Expr{root: root, idents: idents}, nil
}

func tokenize(src string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c >= '0' && c <= '9' || c == '.':
			start := i
			seenDot := false
			for i < len(src) && (src[i] >= '0' && src[i] <= '9' || src[i] == '.') {
				if src[i] == '.' {
					if seenDot {
						return nil, fmt.Errorf("malformed number at position %d", start)
					}
					seenDot = true
				}
				i++
			}
			tokens = append(tokens, token{tokNumber, src[start:i], start})
		case c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_':
			start := i
			for i < len(src) && (src[i] >= 'a' && src[i] <= 'z' || src[i] >= 'A' && src[i] <= 'Z' ||
				src[i] >= '0' && src[i] <= '9' || src[i] == '_') {
				i++
			}
			tokens = append(tokens, token{tokIdent, strings.ToLower(src[start:i]), start})
		case c == '+':
			tokens = append(tokens, token{tokPlus, "+", i})
			i++
		case c == '-':
			tokens = append(tokens, token{tokMinus, "-", i})
			i++
		case c == '*':
			tokens = append(tokens, token{tokStar, "*", i})
			i++
		case c == '/':
			tokens = append(tokens, token{tokSlash, "/", i})
			i++
		case c == '(':
			tokens = append(tokens, token{tokLParen, "(", i})
			i++
		case c == ')':
			tokens = append(tokens, token{tokRParen, ")", i})
			i++
		case c == ',':
			tokens = append(tokens, token{tokComma, ",", i})
			i++
		default:
			return nil, fmt.Errorf("unexpected character %q at position %d", string(c), i)
		}
	}
	tokens = append(tokens, token{tokEOF, "", len(src)})
	return tokens, nil
}

type parser struct {
	tokens  []token
	pos     int
	allowed map[string]struct{}
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) parseExpr() (node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if tok.kind != tokPlus && tok.kind != tokMinus {
			return left, nil
		}
		p.next()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: tok.kind, pos: tok.pos, left: left, right: right}
	}
}

func (p *parser) parseTerm() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if tok.kind != tokStar && tok.kind != tokSlash {
			return left, nil
		}
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: tok.kind, pos: tok.pos, left: left, right: right}
	}
}

func (p *parser) parseUnary() (node, error) {
	if p.peek().kind == tokMinus {
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return unaryNode{operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (node, error) {
	tok := p.next()
	switch tok.kind {
	case tokNumber:
		value, err := decimal.NewFromString(tok.text)
		if err != nil {
			return nil, fmt.Errorf("malformed number %q at position %d", tok.text, tok.pos)
		}
		return numberNode{value: value}, nil

	case tokIdent:
		if p.peek().kind == tokLParen {
			if _, ok := builtins[tok.text]; !ok {
				return nil, fmt.Errorf("unknown function %q at position %d", tok.text, tok.pos)
			}
			p.next() // consume "("
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			return callNode{name: tok.text, pos: tok.pos, args: args}, nil
		}
		if _, ok := p.allowed[tok.text]; !ok {
			return nil, fmt.Errorf("unknown identifier %q at position %d", tok.text, tok.pos)
		}
		return identNode{name: tok.text, pos: tok.pos}, nil

	case tokLParen:
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return nil, fmt.Errorf("expected \")\" at position %d", closing.pos)
		}
		return inner, nil
	}
	return nil, fmt.Errorf("unexpected %q at position %d", tok.text, tok.pos)
}

func (p *parser) parseArgs() ([]node, error) {
	var args []node
	if p.peek().kind == tokRParen {
		p.next()
		return args, nil
	}
	for {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		tok := p.next()
		if tok.kind == tokRParen {
			return args, nil
		}
		if tok.kind != tokComma {
			return nil, fmt.Errorf("expected \",\" or \")\" at position %d", tok.pos)
		}
	}
}
