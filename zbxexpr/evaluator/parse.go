package evaluator

import (
	"github.com/zabbix/zabbix-sub156/zbxexpr"
)

// ---------------- AST ----------------

type nodeKind int

const (
	nodeOr nodeKind = iota
	nodeAnd
	nodeNot
	nodeCompare
	nodeArith
	nodeNeg
	nodeLiteral
	nodePlaceholder
)

type node struct {
	kind nodeKind
	pos  int

	// nodeCompare, nodeArith
	op string

	// nodeOr, nodeAnd, nodeCompare, nodeArith
	left, right *node

	// nodeNot, nodeNeg
	operand *node

	// nodeLiteral
	lit Literal

	// nodePlaceholder
	name string
}

func (n *node) boolean() bool {
	switch n.kind {
	case nodeOr, nodeAnd, nodeNot, nodeCompare:
		return true
	}
	return false
}

// ---------------- Parser ----------------

type parser struct {
	tokens []Token
	pos    int
	depth  int
	limits zbxexpr.Limits
	// end of the source, reported when tokens run out
	eof int
}

func (p *parser) current() *Token {
	if p.pos < len(p.tokens) {
		return &p.tokens[p.pos]
	}
	return nil
}

func (p *parser) advance() *Token {
	tok := p.current()
	if tok != nil {
		p.pos++
	}
	return tok
}

func (p *parser) at() int {
	if t := p.current(); t != nil {
		return t.Pos
	}
	return p.eof
}

func (p *parser) unexpected(msg string) error {
	err := zbxexpr.Errorf(zbxexpr.KindParseFailure, p.at(), "%s", msg)
	if t := p.current(); t != nil {
		return err.WithToken(t.Text)
	}
	return err
}

func (p *parser) enter() error {
	p.depth++
	return p.limits.CheckDepth(p.depth, p.at())
}

func (p *parser) leave() { p.depth-- }

func requireBool(n *node) error {
	if !n.boolean() {
		return zbxexpr.Errorf(zbxexpr.KindParseFailure, n.pos, "expected a comparison")
	}
	return nil
}

func requireValue(n *node) error {
	if n.boolean() {
		return zbxexpr.Errorf(zbxexpr.KindParseFailure, n.pos, "expected a value, got a condition")
	}
	return nil
}

// OR (lowest)
func (p *parser) parseOr() (*node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		t := p.current()
		if t == nil || t.Kind != TokOr {
			return left, nil
		}
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		if err := requireBool(left); err != nil {
			return nil, err
		}
		if err := requireBool(right); err != nil {
			return nil, err
		}
		left = &node{kind: nodeOr, pos: t.Pos, left: left, right: right}
	}
}

func (p *parser) parseAnd() (*node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for {
		t := p.current()
		if t == nil || t.Kind != TokAnd {
			return left, nil
		}
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		if err := requireBool(left); err != nil {
			return nil, err
		}
		if err := requireBool(right); err != nil {
			return nil, err
		}
		left = &node{kind: nodeAnd, pos: t.Pos, left: left, right: right}
	}
}

// "not" binds to the single clause that follows it.
func (p *parser) parseNot() (*node, error) {
	t := p.current()
	if t == nil || t.Kind != TokNot {
		return p.parseCompare()
	}
	p.advance()
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	operand, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	if err := requireBool(operand); err != nil {
		return nil, err
	}
	return &node{kind: nodeNot, pos: t.Pos, operand: operand}, nil
}

func (p *parser) parseCompare() (*node, error) {
	left, err := p.parseSum()
	if err != nil {
		return nil, err
	}
	t := p.current()
	if t == nil || t.Kind != TokCompare {
		return left, nil
	}
	p.advance()
	right, err := p.parseSum()
	if err != nil {
		return nil, err
	}
	if err := requireValue(left); err != nil {
		return nil, err
	}
	if err := requireValue(right); err != nil {
		return nil, err
	}
	op := t.Text
	if op == "#" {
		op = "<>"
	}
	return &node{kind: nodeCompare, pos: t.Pos, op: op, left: left, right: right}, nil
}

func (p *parser) parseSum() (*node, error) {
	left, err := p.parseProduct()
	if err != nil {
		return nil, err
	}
	for {
		t := p.current()
		if t == nil || (t.Kind != TokPlus && t.Kind != TokMinus) {
			return left, nil
		}
		p.advance()
		right, err := p.parseProduct()
		if err != nil {
			return nil, err
		}
		if err := requireValue(left); err != nil {
			return nil, err
		}
		if err := requireValue(right); err != nil {
			return nil, err
		}
		left = &node{kind: nodeArith, pos: t.Pos, op: t.Text, left: left, right: right}
	}
}

func (p *parser) parseProduct() (*node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.current()
		if t == nil || (t.Kind != TokMul && t.Kind != TokDiv) {
			return left, nil
		}
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if err := requireValue(left); err != nil {
			return nil, err
		}
		if err := requireValue(right); err != nil {
			return nil, err
		}
		left = &node{kind: nodeArith, pos: t.Pos, op: t.Text, left: left, right: right}
	}
}

func (p *parser) parseUnary() (*node, error) {
	t := p.current()
	if t == nil || t.Kind != TokMinus {
		return p.parsePrimary()
	}
	p.advance()
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	operand, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	if err := requireValue(operand); err != nil {
		return nil, err
	}
	// Fold "-<number>" so negative literals keep their source text.
	if operand.kind == nodeLiteral && operand.lit.IsNumeric() {
		v, _ := operand.lit.Float()
		lit := Number(-v)
		lit.raw = "-" + operand.lit.raw
		return &node{kind: nodeLiteral, pos: t.Pos, lit: lit}, nil
	}
	return &node{kind: nodeNeg, pos: t.Pos, operand: operand}, nil
}

func (p *parser) parsePrimary() (*node, error) {
	t := p.current()
	if t == nil {
		return nil, p.unexpected("unexpected end of expression")
	}

	switch t.Kind {
	case TokLeftParen:
		p.advance()
		if err := p.enter(); err != nil {
			return nil, err
		}
		defer p.leave()

		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if r := p.current(); r == nil || r.Kind != TokRightParen {
			return nil, p.unexpected("expected closing parenthesis")
		}
		p.advance()
		return expr, nil

	case TokPlaceholder:
		p.advance()
		return &node{kind: nodePlaceholder, pos: t.Pos, name: t.Text}, nil

	case TokNumber, TokString:
		p.advance()
		return &node{kind: nodeLiteral, pos: t.Pos, lit: t.Value}, nil

	default:
		return nil, p.unexpected("unexpected token")
	}
}

// parse builds the AST of a whole expression.
func parse(tokens []Token, eof int, limits zbxexpr.Limits) (*node, error) {
	if len(tokens) == 0 {
		return nil, zbxexpr.Errorf(zbxexpr.KindParseFailure, 0, "empty expression")
	}
	p := &parser{tokens: tokens, limits: limits, eof: eof}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.current() != nil {
		return nil, p.unexpected("unexpected token after expression")
	}
	if err := requireBool(root); err != nil {
		return nil, err
	}
	return root, nil
}
