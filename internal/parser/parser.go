// Package parser implements a precedence-climbing recursive-descent
// expression parser, building an internal/ast tree. Organized the same
// way as OpenActa's hand-rolled recursive-descent parser (see
// internal/lexer's doc comment) but with its own grammar.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/midbel/remind/internal/ast"
	"github.com/midbel/remind/internal/builtin"
	"github.com/midbel/remind/internal/lexer"
	"github.com/midbel/remind/internal/value"
)

// MaxDepth caps recursion depth; beyond it parsing fails with
// ErrStackOverflow rather than risking host stack exhaustion.
const MaxDepth = 2000

// ShortNameCap is the inline small-string-optimisation threshold: names
// at or under this length use the Short* tag variants. This is a pure
// space distinction — the evaluator treats both identically.
const ShortNameCap = 15

var ErrStackOverflow = fmt.Errorf("expression too deeply nested (OpStackOverflow)")

// ParseError carries the unparsed tail and a caret position, per
// the diagnostics requirement.
type ParseError struct {
	Source string
	Pos    int
	Msg    string
}

func (e *ParseError) Error() string {
	tail := e.Source
	if e.Pos >= 0 && e.Pos <= len(e.Source) {
		tail = e.Source[e.Pos:]
	}
	return fmt.Sprintf("%s\n%s\n%s^", e.Msg, e.Source, strings.Repeat(" ", e.Pos)) + " (unparsed: " + tail + ")"
}

// Parser holds transient parse state for one expression.
type Parser struct {
	src      string
	toks     []lexer.Token
	pos      int
	arena    *ast.Arena
	builtins *builtin.Table
	locals   []string // in-scope local parameter names, ordered
	depth    int
}

// New creates a parser that allocates nodes in arena; builtins is
// consulted for arity checking on function calls. The source text and
// the ordered in-scope parameter list (nil/empty at top level) are
// passed to Parse.
func New(arena *ast.Arena, builtins *builtin.Table) *Parser {
	return &Parser{arena: arena, builtins: builtins}
}

// Parse parses a full expression, requiring the token stream to be
// fully consumed (trailing garbage is an error).
func (p *Parser) Parse(src string, locals []string) (ast.Ref, error) {
	toks, err := lexer.Lex(src)
	if err != nil {
		return ast.Nil, err
	}
	p.src, p.toks, p.pos, p.locals, p.depth = src, toks, 0, locals, 0
	root, err := p.expr()
	if err != nil {
		return ast.Nil, err
	}
	if p.cur().Kind != lexer.EOF {
		return ast.Nil, &ParseError{Source: src, Pos: p.cur().Pos, Msg: "trailing garbage after expression"}
	}
	return root, nil
}

func (p *Parser) cur() lexer.Token  { return p.toks[p.pos] }
func (p *Parser) advance() lexer.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) enter() error {
	p.depth++
	if p.depth > MaxDepth {
		return ErrStackOverflow
	}
	return nil
}
func (p *Parser) leave() { p.depth-- }

func (p *Parser) errf(pos int, format string, args ...interface{}) error {
	return &ParseError{Source: p.src, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// EXPR := OR ('||' OR)*
func (p *Parser) expr() (ast.Ref, error) {
	if err := p.enter(); err != nil {
		return ast.Nil, err
	}
	defer p.leave()
	left, err := p.or()
	if err != nil {
		return ast.Nil, err
	}
	for p.cur().Kind == lexer.Op && p.cur().Text == "||" {
		p.advance()
		right, err := p.or()
		if err != nil {
			return ast.Nil, err
		}
		left = p.mkOperator(ast.OpOr, left, right)
	}
	return left, nil
}

// OR := AND ('&&' AND)*
func (p *Parser) or() (ast.Ref, error) {
	left, err := p.and()
	if err != nil {
		return ast.Nil, err
	}
	for p.cur().Kind == lexer.Op && p.cur().Text == "&&" {
		p.advance()
		right, err := p.and()
		if err != nil {
			return ast.Nil, err
		}
		left = p.mkOperator(ast.OpAnd, left, right)
	}
	return left, nil
}

// AND := EQ (('=='|'!=') EQ)*
func (p *Parser) and() (ast.Ref, error) {
	left, err := p.eq()
	if err != nil {
		return ast.Nil, err
	}
	for p.cur().Kind == lexer.Op && (p.cur().Text == "==" || p.cur().Text == "!=") {
		op := p.advance().Text
		right, err := p.eq()
		if err != nil {
			return ast.Nil, err
		}
		code := ast.OpEQ
		if op == "!=" {
			code = ast.OpNE
		}
		left = p.mkOperator(code, left, right)
	}
	return left, nil
}

// EQ := CMP (('<='|'>='|'<'|'>') CMP)*
func (p *Parser) eq() (ast.Ref, error) {
	left, err := p.cmp()
	if err != nil {
		return ast.Nil, err
	}
	for p.cur().Kind == lexer.Op && isCmpOp(p.cur().Text) {
		op := p.advance().Text
		right, err := p.cmp()
		if err != nil {
			return ast.Nil, err
		}
		left = p.mkOperator(cmpOpCode(op), left, right)
	}
	return left, nil
}

func isCmpOp(s string) bool { return s == "<=" || s == ">=" || s == "<" || s == ">" }
func cmpOpCode(s string) ast.Op {
	switch s {
	case "<=":
		return ast.OpLE
	case ">=":
		return ast.OpGE
	case "<":
		return ast.OpLT
	default:
		return ast.OpGT
	}
}

// CMP := TERM (('+'|'-') TERM)*
func (p *Parser) cmp() (ast.Ref, error) {
	left, err := p.term()
	if err != nil {
		return ast.Nil, err
	}
	for p.cur().Kind == lexer.Op && (p.cur().Text == "+" || p.cur().Text == "-") {
		op := p.advance().Text
		right, err := p.term()
		if err != nil {
			return ast.Nil, err
		}
		code := ast.OpAdd
		if op == "-" {
			code = ast.OpSub
		}
		left = p.mkOperator(code, left, right)
	}
	return left, nil
}

// TERM := FACT (('*'|'/'|'%') FACT)*
func (p *Parser) term() (ast.Ref, error) {
	left, err := p.fact()
	if err != nil {
		return ast.Nil, err
	}
	for p.cur().Kind == lexer.Op && (p.cur().Text == "*" || p.cur().Text == "/" || p.cur().Text == "%") {
		op := p.advance().Text
		right, err := p.fact()
		if err != nil {
			return ast.Nil, err
		}
		var code ast.Op
		switch op {
		case "*":
			code = ast.OpMul
		case "/":
			code = ast.OpDiv
		default:
			code = ast.OpMod
		}
		left = p.mkOperator(code, left, right)
	}
	return left, nil
}

// FACT := ('-'|'!'|'+') FACT | ATOM
func (p *Parser) fact() (ast.Ref, error) {
	if err := p.enter(); err != nil {
		return ast.Nil, err
	}
	defer p.leave()

	if p.cur().Kind == lexer.Op && (p.cur().Text == "-" || p.cur().Text == "!" || p.cur().Text == "+") {
		op := p.advance().Text
		operand, err := p.fact()
		if err != nil {
			return ast.Nil, err
		}
		if op == "+" {
			return operand, nil // unary + is absorbed
		}
		// constant folding for unary - / ! on an integer constant
		if n := p.arena.Node(operand); n.Tag == ast.Constant && n.Value.Kind() == value.Int {
			if op == "-" {
				folded, err := foldNeg(n.Value.Int())
				if err != nil {
					return ast.Nil, err
				}
				return p.mkConstant(value.NewInt(folded)), nil
			}
			return p.mkConstant(value.NewInt(boolInt(n.Value.Int() == 0))), nil
		}
		code := ast.OpNeg
		if op == "!" {
			code = ast.OpNot
		}
		r := p.arena.Alloc()
		nd := p.arena.Node(r)
		nd.Tag = ast.Operator
		nd.Op = code
		p.arena.SetChildren(r, []ast.Ref{operand})
		return r, nil
	}
	return p.atom()
}

func boolInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

func foldNeg(v int32) (int32, error) {
	if v == value.MinInt32 {
		return 0, fmt.Errorf("2High")
	}
	return -v, nil
}

// ATOM := '(' EXPR ')' | LITERAL | IDENT | '$' IDENT | IDENT '(' ARGS ')'
func (p *Parser) atom() (ast.Ref, error) {
	t := p.cur()
	switch t.Kind {
	case lexer.LParen:
		p.advance()
		inner, err := p.expr()
		if err != nil {
			return ast.Nil, err
		}
		if p.cur().Kind != lexer.RParen {
			return ast.Nil, p.errf(p.cur().Pos, "expected ')'")
		}
		p.advance()
		return inner, nil
	case lexer.Int:
		p.advance()
		n, err := strconv.ParseInt(t.Text, 10, 32)
		if err != nil {
			return ast.Nil, p.errf(t.Pos, "integer literal out of range")
		}
		return p.mkConstant(value.NewInt(int32(n))), nil
	case lexer.Time:
		p.advance()
		v, err := parseTimeLiteral(t.Text)
		if err != nil {
			return ast.Nil, p.errf(t.Pos, "%s", err)
		}
		return p.mkConstant(v), nil
	case lexer.DateLit:
		p.advance()
		v, err := parseDateLiteral(t.Text)
		if err != nil {
			return ast.Nil, p.errf(t.Pos, "%s", err)
		}
		return p.mkConstant(v), nil
	case lexer.DateTimeLit:
		p.advance()
		v, err := parseDateTimeLiteral(t.Text)
		if err != nil {
			return ast.Nil, p.errf(t.Pos, "%s", err)
		}
		return p.mkConstant(v), nil
	case lexer.TimeLit:
		p.advance()
		v, err := parseTimeLiteral(t.Text)
		if err != nil {
			return ast.Nil, p.errf(t.Pos, "%s", err)
		}
		return p.mkConstant(v), nil
	case lexer.String:
		p.advance()
		return p.mkStringLit(t.Text), nil
	case lexer.Dollar:
		p.advance()
		name := p.cur()
		if name.Kind != lexer.Ident {
			return ast.Nil, p.errf(name.Pos, "expected identifier after '$'")
		}
		p.advance()
		return p.mkSysVar(name.Text), nil
	case lexer.Ident:
		p.advance()
		if p.cur().Kind == lexer.LParen {
			return p.call(t.Text)
		}
		return p.mkVarRef(t.Text), nil
	default:
		return ast.Nil, p.errf(t.Pos, "unexpected token %q", t.Text)
	}
}

func (p *Parser) call(name string) (ast.Ref, error) {
	p.advance() // consume '('
	var args []ast.Ref
	if p.cur().Kind != lexer.RParen {
		for {
			if p.cur().Kind == lexer.RParen {
				return ast.Nil, p.errf(p.cur().Pos, "trailing comma before ')'")
			}
			a, err := p.expr()
			if err != nil {
				return ast.Nil, err
			}
			args = append(args, a)
			if p.cur().Kind == lexer.Comma {
				p.advance()
				continue
			}
			break
		}
	}
	if p.cur().Kind != lexer.RParen {
		return ast.Nil, p.errf(p.cur().Pos, "expected ')' to close call to %s", name)
	}
	closeParen := p.cur().Pos
	p.advance()

	if b, ok := p.builtins.Lookup(name); ok {
		if len(args) < b.MinArgs || (b.MaxArgs >= 0 && len(args) > b.MaxArgs) {
			return ast.Nil, p.errf(closeParen, "wrong number of arguments to %s", name)
		}
		r := p.arena.Alloc()
		nd := p.arena.Node(r)
		nd.Tag = ast.BuiltinFunc
		nd.Builtin = b
		nd.Name = name
		p.arena.SetChildren(r, args)
		return r, nil
	}

	r := p.arena.Alloc()
	nd := p.arena.Node(r)
	if len(name) <= ShortNameCap {
		nd.Tag = ast.ShortUserFunc
	} else {
		nd.Tag = ast.UserFunc
	}
	nd.Name = name
	p.arena.SetChildren(r, args)
	return r, nil
}

func (p *Parser) mkConstant(v value.Value) ast.Ref {
	r := p.arena.Alloc()
	nd := p.arena.Node(r)
	nd.Tag = ast.Constant
	nd.Value = v
	return r
}

func (p *Parser) mkStringLit(s string) ast.Ref {
	r := p.arena.Alloc()
	nd := p.arena.Node(r)
	if len(s) <= ShortNameCap {
		nd.Tag = ast.ShortStr
	} else {
		nd.Tag = ast.Constant
	}
	nd.Value = value.NewStr(s)
	return r
}

func (p *Parser) mkSysVar(name string) ast.Ref {
	r := p.arena.Alloc()
	nd := p.arena.Node(r)
	if len(name) <= ShortNameCap {
		nd.Tag = ast.ShortSysVar
	} else {
		nd.Tag = ast.SysVar
	}
	nd.Name = name
	return r
}

func (p *Parser) mkVarRef(name string) ast.Ref {
	for i, ln := range p.locals {
		if strings.EqualFold(ln, name) {
			r := p.arena.Alloc()
			nd := p.arena.Node(r)
			nd.Tag = ast.LocalVar
			nd.LocalIdx = i
			nd.Name = name
			return r
		}
	}
	r := p.arena.Alloc()
	nd := p.arena.Node(r)
	if len(name) <= ShortNameCap {
		nd.Tag = ast.ShortVar
	} else {
		nd.Tag = ast.Variable
	}
	nd.Name = name
	return r
}

func (p *Parser) mkOperator(op ast.Op, left, right ast.Ref) ast.Ref {
	r := p.arena.Alloc()
	nd := p.arena.Node(r)
	nd.Tag = ast.Operator
	nd.Op = op
	p.arena.SetChildren(r, []ast.Ref{left, right})
	return r
}
