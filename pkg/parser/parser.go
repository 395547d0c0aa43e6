// Package parser implements a recursive-descent, precedence-climbing
// parser that turns a lexer.Token stream into the pkg/ast node set
// pkg/compiler consumes.
package parser

import (
	"fmt"
	"strconv"

	"github.com/roselang/rose/pkg/ast"
	"github.com/roselang/rose/pkg/lexer"
)

// Parser holds the token lookahead state for one parse.
type Parser struct {
	lex     *lexer.Lexer
	cur     lexer.Token
	prev    lexer.Token
	errs    []string
}

// New returns a Parser reading tokens from l.
func New(l *lexer.Lexer) *Parser {
	p := &Parser{lex: l}
	p.advance()
	return p
}

// Parse consumes the entire token stream and returns the top-level
// statement list, or the first parse error encountered.
func Parse(source string) ([]ast.Stmt, error) {
	p := New(lexer.New(source))
	var stmts []ast.Stmt
	for !p.check(lexer.TokenEOF) {
		stmts = append(stmts, p.declaration())
		if len(p.errs) > 0 {
			return nil, fmt.Errorf("%s", p.errs[0])
		}
	}
	return stmts, nil
}

func (p *Parser) advance() {
	p.prev = p.cur
	for {
		p.cur = p.lex.Next()
		if p.cur.Type != lexer.TokenIllegal {
			break
		}
		p.errorAt(p.cur, p.cur.Literal)
	}
}

func (p *Parser) check(t lexer.TokenType) bool { return p.cur.Type == t }

func (p *Parser) matchTok(t lexer.TokenType) bool {
	if !p.check(t) {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) consume(t lexer.TokenType, msg string) lexer.Token {
	if p.check(t) {
		tok := p.cur
		p.advance()
		return tok
	}
	p.errorAt(p.cur, msg)
	return p.cur
}

func (p *Parser) errorAt(tok lexer.Token, msg string) {
	p.errs = append(p.errs, fmt.Sprintf("[line %d] Error: %s", tok.Line, msg))
}

// ---- statements ----

func (p *Parser) declaration() ast.Stmt {
	switch {
	case p.matchTok(lexer.TokenVar):
		return p.varDecl()
	case p.matchTok(lexer.TokenFun):
		return p.funDecl()
	case p.matchTok(lexer.TokenClass):
		return p.classDecl()
	default:
		return p.statement()
	}
}

func (p *Parser) varDecl() ast.Stmt {
	line := p.prev.Line
	name := p.consume(lexer.TokenIdentifier, "expect variable name.").Literal
	var init ast.Expr
	if p.matchTok(lexer.TokenEqual) {
		init = p.expression()
	}
	p.consume(lexer.TokenSemicolon, "expect ';' after variable declaration.")
	return ast.NewVarStmt(line, name, init)
}

func (p *Parser) funDecl() ast.Stmt {
	return p.function()
}

func (p *Parser) function() *ast.FunStmt {
	line := p.cur.Line
	name := p.consume(lexer.TokenIdentifier, "expect function name.").Literal
	p.consume(lexer.TokenLeftParen, "expect '(' after function name.")
	var params []string
	if !p.check(lexer.TokenRightParen) {
		for {
			params = append(params, p.consume(lexer.TokenIdentifier, "expect parameter name.").Literal)
			if !p.matchTok(lexer.TokenComma) {
				break
			}
		}
	}
	p.consume(lexer.TokenRightParen, "expect ')' after parameters.")
	p.consume(lexer.TokenLeftBrace, "expect '{' before function body.")
	body := p.block()
	return ast.NewFunStmt(line, name, params, body)
}

func (p *Parser) classDecl() ast.Stmt {
	line := p.prev.Line
	name := p.consume(lexer.TokenIdentifier, "expect class name.").Literal
	var super *ast.VariableExpr
	if p.matchTok(lexer.TokenLess) {
		superName := p.consume(lexer.TokenIdentifier, "expect superclass name.").Literal
		super = ast.NewVariable(p.prev.Line, superName)
	}
	p.consume(lexer.TokenLeftBrace, "expect '{' before class body.")
	var methods []*ast.FunStmt
	for !p.check(lexer.TokenRightBrace) && !p.check(lexer.TokenEOF) {
		methods = append(methods, p.function())
	}
	p.consume(lexer.TokenRightBrace, "expect '}' after class body.")
	return ast.NewClassStmt(line, name, super, methods)
}

func (p *Parser) statement() ast.Stmt {
	switch {
	case p.matchTok(lexer.TokenPrint):
		return p.printStmt()
	case p.matchTok(lexer.TokenLeftBrace):
		line := p.prev.Line
		return ast.NewBlockStmt(line, p.block())
	case p.matchTok(lexer.TokenIf):
		return p.ifStmt()
	case p.matchTok(lexer.TokenWhile):
		return p.whileStmt()
	case p.matchTok(lexer.TokenFor):
		return p.forStmt()
	case p.matchTok(lexer.TokenReturn):
		return p.returnStmt()
	case p.matchTok(lexer.TokenInclude):
		return p.includeStmt()
	case p.matchTok(lexer.TokenImport):
		return p.importStmt()
	default:
		return p.exprStmt()
	}
}

func (p *Parser) printStmt() ast.Stmt {
	line := p.prev.Line
	e := p.expression()
	p.consume(lexer.TokenSemicolon, "expect ';' after value.")
	return ast.NewPrintStmt(line, e)
}

func (p *Parser) exprStmt() ast.Stmt {
	line := p.cur.Line
	e := p.expression()
	p.consume(lexer.TokenSemicolon, "expect ';' after expression.")
	return ast.NewExprStmt(line, e)
}

func (p *Parser) block() []ast.Stmt {
	var stmts []ast.Stmt
	for !p.check(lexer.TokenRightBrace) && !p.check(lexer.TokenEOF) {
		stmts = append(stmts, p.declaration())
	}
	p.consume(lexer.TokenRightBrace, "expect '}' after block.")
	return stmts
}

func (p *Parser) ifStmt() ast.Stmt {
	line := p.prev.Line
	p.consume(lexer.TokenLeftParen, "expect '(' after 'if'.")
	cond := p.expression()
	p.consume(lexer.TokenRightParen, "expect ')' after condition.")
	then := p.statement()
	var els ast.Stmt
	if p.matchTok(lexer.TokenElse) {
		els = p.statement()
	}
	return ast.NewIfStmt(line, cond, then, els)
}

func (p *Parser) whileStmt() ast.Stmt {
	line := p.prev.Line
	p.consume(lexer.TokenLeftParen, "expect '(' after 'while'.")
	cond := p.expression()
	p.consume(lexer.TokenRightParen, "expect ')' after condition.")
	body := p.statement()
	return ast.NewWhileStmt(line, cond, body)
}

// forStmt desugars `for (init; cond; post) body` into a while loop
// wrapped in a block, the standard single-pass-compiler technique —
// no new bytecode or AST node needed for loops.
func (p *Parser) forStmt() ast.Stmt {
	line := p.prev.Line
	p.consume(lexer.TokenLeftParen, "expect '(' after 'for'.")

	var init ast.Stmt
	switch {
	case p.matchTok(lexer.TokenSemicolon):
		// no initializer
	case p.matchTok(lexer.TokenVar):
		init = p.varDecl()
	default:
		init = p.exprStmt()
	}

	var cond ast.Expr
	if !p.check(lexer.TokenSemicolon) {
		cond = p.expression()
	}
	p.consume(lexer.TokenSemicolon, "expect ';' after loop condition.")

	var post ast.Expr
	if !p.check(lexer.TokenRightParen) {
		post = p.expression()
	}
	p.consume(lexer.TokenRightParen, "expect ')' after for clauses.")

	body := p.statement()
	if post != nil {
		body = ast.NewBlockStmt(line, []ast.Stmt{body, ast.NewExprStmt(line, post)})
	}
	if cond == nil {
		cond = ast.NewBool(line, true)
	}
	loop := ast.NewWhileStmt(line, cond, body)
	if init != nil {
		return ast.NewBlockStmt(line, []ast.Stmt{init, loop})
	}
	return loop
}

func (p *Parser) returnStmt() ast.Stmt {
	line := p.prev.Line
	var val ast.Expr
	if !p.check(lexer.TokenSemicolon) {
		val = p.expression()
	}
	p.consume(lexer.TokenSemicolon, "expect ';' after return value.")
	return ast.NewReturnStmt(line, val)
}

func (p *Parser) includeStmt() ast.Stmt {
	line := p.prev.Line
	path := p.expression()
	p.consume(lexer.TokenSemicolon, "expect ';' after include path.")
	return ast.NewIncludeStmt(line, path)
}

func (p *Parser) importStmt() ast.Stmt {
	line := p.prev.Line
	name := p.expression()
	p.consume(lexer.TokenSemicolon, "expect ';' after import name.")
	return ast.NewImportStmt(line, name)
}

// ---- expressions (precedence-climbing) ----

func (p *Parser) expression() ast.Expr { return p.assignment() }

func (p *Parser) assignment() ast.Expr {
	expr := p.or()
	if p.matchTok(lexer.TokenEqual) {
		line := p.prev.Line
		value := p.assignment()
		switch target := expr.(type) {
		case *ast.VariableExpr:
			return ast.NewAssign(line, target.Name, value)
		case *ast.GetExpr:
			return ast.NewSet(line, target.Object, target.Name, value)
		default:
			p.errorAt(p.prev, "invalid assignment target.")
			return expr
		}
	}
	return expr
}

func (p *Parser) or() ast.Expr {
	expr := p.and()
	for p.matchTok(lexer.TokenOr) {
		line := p.prev.Line
		right := p.and()
		expr = ast.NewLogical(line, "or", expr, right)
	}
	return expr
}

func (p *Parser) and() ast.Expr {
	expr := p.equality()
	for p.matchTok(lexer.TokenAnd) {
		line := p.prev.Line
		right := p.equality()
		expr = ast.NewLogical(line, "and", expr, right)
	}
	return expr
}

func (p *Parser) equality() ast.Expr {
	expr := p.comparison()
	for p.check(lexer.TokenEqualEqual) || p.check(lexer.TokenBangEqual) {
		op := p.cur
		p.advance()
		right := p.comparison()
		expr = ast.NewBinary(op.Line, op.Literal, expr, right)
	}
	return expr
}

func (p *Parser) comparison() ast.Expr {
	expr := p.term()
	for p.check(lexer.TokenLess) || p.check(lexer.TokenLessEqual) ||
		p.check(lexer.TokenGreater) || p.check(lexer.TokenGreaterEqual) {
		op := p.cur
		p.advance()
		right := p.term()
		expr = ast.NewBinary(op.Line, op.Literal, expr, right)
	}
	return expr
}

func (p *Parser) term() ast.Expr {
	expr := p.factor()
	for p.check(lexer.TokenPlus) || p.check(lexer.TokenMinus) {
		op := p.cur
		p.advance()
		right := p.factor()
		expr = ast.NewBinary(op.Line, op.Literal, expr, right)
	}
	return expr
}

func (p *Parser) factor() ast.Expr {
	expr := p.unary()
	for p.check(lexer.TokenStar) || p.check(lexer.TokenSlash) {
		op := p.cur
		p.advance()
		right := p.unary()
		expr = ast.NewBinary(op.Line, op.Literal, expr, right)
	}
	return expr
}

func (p *Parser) unary() ast.Expr {
	if p.check(lexer.TokenBang) || p.check(lexer.TokenMinus) {
		op := p.cur
		p.advance()
		operand := p.unary()
		return ast.NewUnary(op.Line, op.Literal, operand)
	}
	return p.call()
}

func (p *Parser) call() ast.Expr {
	expr := p.primary()
	for {
		switch {
		case p.matchTok(lexer.TokenLeftParen):
			expr = p.finishCall(expr)
		case p.matchTok(lexer.TokenDot):
			line := p.prev.Line
			name := p.consume(lexer.TokenIdentifier, "expect property name after '.'.").Literal
			if p.matchTok(lexer.TokenLeftParen) {
				args := p.arguments()
				expr = ast.NewInvoke(line, expr, name, args)
			} else {
				expr = ast.NewGet(line, expr, name)
			}
		default:
			return expr
		}
	}
}

func (p *Parser) finishCall(callee ast.Expr) ast.Expr {
	line := p.prev.Line
	args := p.arguments()
	return ast.NewCall(line, callee, args)
}

func (p *Parser) arguments() []ast.Expr {
	var args []ast.Expr
	if !p.check(lexer.TokenRightParen) {
		for {
			args = append(args, p.expression())
			if !p.matchTok(lexer.TokenComma) {
				break
			}
		}
	}
	p.consume(lexer.TokenRightParen, "expect ')' after arguments.")
	return args
}

func (p *Parser) primary() ast.Expr {
	switch {
	case p.matchTok(lexer.TokenFalse):
		return ast.NewBool(p.prev.Line, false)
	case p.matchTok(lexer.TokenTrue):
		return ast.NewBool(p.prev.Line, true)
	case p.matchTok(lexer.TokenNil):
		return ast.NewNil(p.prev.Line)
	case p.matchTok(lexer.TokenNumber):
		n, _ := strconv.ParseFloat(p.prev.Literal, 64)
		return ast.NewNumber(p.prev.Line, n)
	case p.matchTok(lexer.TokenString):
		return ast.NewString(p.prev.Line, p.prev.Literal)
	case p.matchTok(lexer.TokenThis):
		return ast.NewThis(p.prev.Line)
	case p.matchTok(lexer.TokenSuper):
		line := p.prev.Line
		p.consume(lexer.TokenDot, "expect '.' after 'super'.")
		method := p.consume(lexer.TokenIdentifier, "expect superclass method name.").Literal
		if p.matchTok(lexer.TokenLeftParen) {
			args := p.arguments()
			return ast.NewSuperInvoke(line, method, args)
		}
		return ast.NewSuper(line, method)
	case p.matchTok(lexer.TokenIdentifier):
		return ast.NewVariable(p.prev.Line, p.prev.Literal)
	case p.matchTok(lexer.TokenLeftParen):
		expr := p.expression()
		p.consume(lexer.TokenRightParen, "expect ')' after expression.")
		return expr
	case p.matchTok(lexer.TokenLeftBracket):
		line := p.prev.Line
		var elts []ast.Expr
		if !p.check(lexer.TokenRightBracket) {
			for {
				elts = append(elts, p.expression())
				if !p.matchTok(lexer.TokenComma) {
					break
				}
			}
		}
		p.consume(lexer.TokenRightBracket, "expect ']' after array elements.")
		return ast.NewArray(line, elts)
	default:
		p.errorAt(p.cur, "expect expression.")
		p.advance()
		return ast.NewNil(p.cur.Line)
	}
}
