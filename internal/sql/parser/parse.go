package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tidesql/tidesql/internal/sql/sqlerr"
	"github.com/tidesql/tidesql/internal/sql/types"
)

// aggregates names the supported aggregate functions.
var aggregates = map[string]bool{
	"count": true,
	"min":   true,
	"max":   true,
	"sum":   true,
	"avg":   true,
}

// Parse parses a single SQL statement into an AST. A trailing ';' is
// allowed; anything after it is an error.
func Parse(sql string) (Statement, error) {
	p := newParser(sql)
	stmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	if p.cur.Type == TokenSemicolon {
		p.next()
	}
	if p.cur.Type != TokenEOF {
		return nil, syntaxErr(p.cur, fmt.Sprintf("unexpected %s after statement", describe(p.cur)))
	}
	return stmt, nil
}

type parser struct {
	lex  *lexer
	cur  Token
	peek Token
}

func newParser(sql string) *parser {
	p := &parser{lex: newLexer(sql)}
	p.next()
	p.next()
	return p
}

func (p *parser) next() {
	p.cur = p.peek
	p.peek = p.lex.NextToken()
}

func syntaxErr(tok Token, msg string) error {
	return sqlerr.Syntaxf("%s at line %d, column %d", msg, tok.Line, tok.Column)
}

func describe(tok Token) string {
	if tok.Type == TokenEOF {
		return "end of input"
	}
	return fmt.Sprintf("%q", tok.Literal)
}

func (p *parser) expect(t TokenType, what string) (Token, error) {
	if p.cur.Type == TokenError {
		return Token{}, syntaxErr(p.cur, p.cur.Literal)
	}
	if p.cur.Type != t {
		return Token{}, syntaxErr(p.cur, fmt.Sprintf("expected %s, found %s", what, describe(p.cur)))
	}
	tok := p.cur
	p.next()
	return tok, nil
}

// parseIdent consumes an identifier and lower-cases it; identifiers are
// case-insensitive everywhere.
func (p *parser) parseIdent(what string) (string, error) {
	tok, err := p.expect(TokenIdent, what)
	if err != nil {
		return "", err
	}
	return strings.ToLower(tok.Literal), nil
}

func (p *parser) parseStatement() (Statement, error) {
	switch p.cur.Type {
	case TokenCreate:
		return p.parseCreateTable()
	case TokenDrop:
		return p.parseDropTable()
	case TokenShow:
		return p.parseShow()
	case TokenInsert:
		return p.parseInsert()
	case TokenSelect:
		return p.parseSelect()
	case TokenUpdate:
		return p.parseUpdate()
	case TokenDelete:
		return p.parseDelete()
	case TokenBegin:
		p.next()
		return &BeginStmt{}, nil
	case TokenCommit:
		p.next()
		return &CommitStmt{}, nil
	case TokenRollback:
		p.next()
		return &RollbackStmt{}, nil
	case TokenExplain:
		p.next()
		inner, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		return &ExplainStmt{Stmt: inner}, nil
	case TokenError:
		return nil, syntaxErr(p.cur, p.cur.Literal)
	case TokenEOF:
		return nil, syntaxErr(p.cur, "empty statement")
	default:
		return nil, syntaxErr(p.cur, fmt.Sprintf("unexpected %s", describe(p.cur)))
	}
}

func (p *parser) parseCreateTable() (Statement, error) {
	p.next() // CREATE
	if p.cur.Type == TokenIndex {
		return nil, sqlerr.Unsupportedf("CREATE INDEX")
	}
	if _, err := p.expect(TokenTable, "TABLE"); err != nil {
		return nil, err
	}
	name, err := p.parseIdent("table name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenLeftParen, "'('"); err != nil {
		return nil, err
	}

	var cols []ColumnDef
	for {
		col, err := p.parseColumnDef()
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
		if p.cur.Type == TokenComma {
			p.next()
			continue
		}
		break
	}
	if _, err := p.expect(TokenRightParen, "')'"); err != nil {
		return nil, err
	}
	return &CreateTableStmt{TableName: name, Columns: cols}, nil
}

func (p *parser) parseColumnDef() (ColumnDef, error) {
	var col ColumnDef

	name, err := p.parseIdent("column name")
	if err != nil {
		return col, err
	}
	col.Name = name

	typeTok, err := p.expect(TokenIdent, "column type")
	if err != nil {
		return col, err
	}
	dt, ok := types.ParseDataType(typeTok.Literal)
	if !ok {
		return col, syntaxErr(typeTok, fmt.Sprintf("unknown type %q", typeTok.Literal))
	}
	col.Type = dt

	for {
		switch p.cur.Type {
		case TokenNot:
			p.next()
			if _, err := p.expect(TokenNull, "NULL"); err != nil {
				return col, err
			}
			col.NotNull = true
		case TokenNull:
			p.next()
			col.NotNull = false
		case TokenDefault:
			p.next()
			expr, err := p.parseScalarExpr()
			if err != nil {
				return col, err
			}
			if _, ok := expr.(*LiteralExpr); !ok {
				return col, sqlerr.Syntaxf("DEFAULT for column %s must be a constant", col.Name)
			}
			col.Default = expr
		case TokenIndex:
			p.next()
			col.Indexed = true
		case TokenPrimary:
			return col, sqlerr.Unsupportedf("PRIMARY KEY constraints")
		default:
			return col, nil
		}
	}
}

func (p *parser) parseDropTable() (Statement, error) {
	p.next() // DROP
	if p.cur.Type == TokenIndex {
		return nil, sqlerr.Unsupportedf("DROP INDEX")
	}
	if _, err := p.expect(TokenTable, "TABLE"); err != nil {
		return nil, err
	}
	name, err := p.parseIdent("table name")
	if err != nil {
		return nil, err
	}
	return &DropTableStmt{TableName: name}, nil
}

func (p *parser) parseShow() (Statement, error) {
	p.next() // SHOW
	switch p.cur.Type {
	case TokenTables:
		p.next()
		return &ShowTablesStmt{}, nil
	case TokenTable:
		p.next()
		name, err := p.parseIdent("table name")
		if err != nil {
			return nil, err
		}
		return &ShowTableStmt{TableName: name}, nil
	default:
		return nil, syntaxErr(p.cur, fmt.Sprintf("expected TABLES or TABLE, found %s", describe(p.cur)))
	}
}

func (p *parser) parseInsert() (Statement, error) {
	p.next() // INSERT
	if _, err := p.expect(TokenInto, "INTO"); err != nil {
		return nil, err
	}
	name, err := p.parseIdent("table name")
	if err != nil {
		return nil, err
	}

	var columns []string
	if p.cur.Type == TokenLeftParen {
		p.next()
		for {
			col, err := p.parseIdent("column name")
			if err != nil {
				return nil, err
			}
			columns = append(columns, col)
			if p.cur.Type == TokenComma {
				p.next()
				continue
			}
			break
		}
		if _, err := p.expect(TokenRightParen, "')'"); err != nil {
			return nil, err
		}
	}

	if _, err := p.expect(TokenValues, "VALUES"); err != nil {
		return nil, err
	}

	var rows [][]Expr
	for {
		row, err := p.parseValueList()
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
		if p.cur.Type == TokenComma {
			p.next()
			continue
		}
		break
	}
	return &InsertStmt{TableName: name, Columns: columns, Rows: rows}, nil
}

func (p *parser) parseValueList() ([]Expr, error) {
	if _, err := p.expect(TokenLeftParen, "'('"); err != nil {
		return nil, err
	}
	var row []Expr
	for {
		expr, err := p.parseScalarExpr()
		if err != nil {
			return nil, err
		}
		if _, ok := expr.(*LiteralExpr); !ok {
			return nil, sqlerr.Syntaxf("VALUES must be constant expressions")
		}
		row = append(row, expr)
		if p.cur.Type == TokenComma {
			p.next()
			continue
		}
		break
	}
	if _, err := p.expect(TokenRightParen, "')'"); err != nil {
		return nil, err
	}
	return row, nil
}

func (p *parser) parseUpdate() (Statement, error) {
	p.next() // UPDATE
	name, err := p.parseIdent("table name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenSet, "SET"); err != nil {
		return nil, err
	}

	var set []Assignment
	for {
		col, err := p.parseIdent("column name")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenEquals, "'='"); err != nil {
			return nil, err
		}
		expr, err := p.parseScalarExpr()
		if err != nil {
			return nil, err
		}
		set = append(set, Assignment{Column: col, Value: expr})
		if p.cur.Type == TokenComma {
			p.next()
			continue
		}
		break
	}

	where, err := p.parseOptionalWhereEq("UPDATE")
	if err != nil {
		return nil, err
	}
	return &UpdateStmt{TableName: name, Set: set, Where: where}, nil
}

func (p *parser) parseDelete() (Statement, error) {
	p.next() // DELETE
	if _, err := p.expect(TokenFrom, "FROM"); err != nil {
		return nil, err
	}
	name, err := p.parseIdent("table name")
	if err != nil {
		return nil, err
	}
	where, err := p.parseOptionalWhereEq("DELETE")
	if err != nil {
		return nil, err
	}
	return &DeleteStmt{TableName: name, Where: where}, nil
}

// parseOptionalWhereEq parses the restricted WHERE of UPDATE/DELETE:
// a single `column = expr` predicate.
func (p *parser) parseOptionalWhereEq(stmtName string) (*CompareExpr, error) {
	if p.cur.Type != TokenWhere {
		return nil, nil
	}
	p.next()
	cmp, err := p.parseCompare()
	if err != nil {
		return nil, err
	}
	if cmp.Op != CompareEq {
		return nil, sqlerr.Unsupportedf("%s WHERE supports only equality", stmtName)
	}
	if _, ok := cmp.Left.(*ColumnExpr); !ok {
		return nil, sqlerr.Syntaxf("%s WHERE must compare a column", stmtName)
	}
	return cmp, nil
}

func (p *parser) parseSelect() (Statement, error) {
	p.next() // SELECT

	var stmt SelectStmt
	for {
		item, err := p.parseSelectItem()
		if err != nil {
			return nil, err
		}
		stmt.Items = append(stmt.Items, item)
		if p.cur.Type == TokenComma {
			p.next()
			continue
		}
		break
	}

	if _, err := p.expect(TokenFrom, "FROM"); err != nil {
		return nil, err
	}
	from, err := p.parseFrom()
	if err != nil {
		return nil, err
	}
	stmt.From = from

	if p.cur.Type == TokenWhere {
		p.next()
		cmp, err := p.parseCompare()
		if err != nil {
			return nil, err
		}
		stmt.Where = cmp
	}

	if p.cur.Type == TokenGroup {
		p.next()
		if _, err := p.expect(TokenBy, "BY"); err != nil {
			return nil, err
		}
		col, err := p.parseIdent("grouping column")
		if err != nil {
			return nil, err
		}
		if p.cur.Type == TokenComma {
			return nil, sqlerr.Unsupportedf("GROUP BY over multiple columns")
		}
		stmt.GroupBy = col
	}

	if p.cur.Type == TokenHaving {
		p.next()
		cmp, err := p.parseCompare()
		if err != nil {
			return nil, err
		}
		stmt.Having = cmp
	}

	if p.cur.Type == TokenOrder {
		p.next()
		if _, err := p.expect(TokenBy, "BY"); err != nil {
			return nil, err
		}
		for {
			col, err := p.parseColumnRef()
			if err != nil {
				return nil, err
			}
			item := OrderItem{Column: col}
			switch p.cur.Type {
			case TokenAsc:
				p.next()
			case TokenDesc:
				p.next()
				item.Desc = true
			}
			stmt.OrderBy = append(stmt.OrderBy, item)
			if p.cur.Type == TokenComma {
				p.next()
				continue
			}
			break
		}
	}

	if p.cur.Type == TokenLimit {
		p.next()
		expr, err := p.parseConstExpr("LIMIT")
		if err != nil {
			return nil, err
		}
		stmt.Limit = expr
	}

	if p.cur.Type == TokenOffset {
		p.next()
		expr, err := p.parseConstExpr("OFFSET")
		if err != nil {
			return nil, err
		}
		stmt.Offset = expr
	}

	return &stmt, nil
}

func (p *parser) parseSelectItem() (SelectItem, error) {
	if p.cur.Type == TokenAsterisk {
		p.next()
		return SelectItem{Star: true}, nil
	}
	expr, err := p.parseScalarExpr()
	if err != nil {
		return SelectItem{}, err
	}
	item := SelectItem{Expr: expr}
	if p.cur.Type == TokenAs {
		p.next()
		alias, err := p.parseIdent("alias")
		if err != nil {
			return SelectItem{}, err
		}
		item.Alias = alias
	}
	return item, nil
}

func (p *parser) parseFrom() (From, error) {
	var from From

	table, err := p.parseIdent("table name")
	if err != nil {
		return from, err
	}
	from.Table = table

	switch p.cur.Type {
	case TokenCross:
		p.next()
		if _, err := p.expect(TokenJoin, "JOIN"); err != nil {
			return from, err
		}
		from.Join = JoinCross
	case TokenInner:
		p.next()
		if _, err := p.expect(TokenJoin, "JOIN"); err != nil {
			return from, err
		}
		from.Join = JoinInner
	case TokenLeft:
		p.next()
		if p.cur.Type == TokenOuter {
			p.next()
		}
		if _, err := p.expect(TokenJoin, "JOIN"); err != nil {
			return from, err
		}
		from.Join = JoinLeft
	case TokenRight:
		p.next()
		if p.cur.Type == TokenOuter {
			p.next()
		}
		if _, err := p.expect(TokenJoin, "JOIN"); err != nil {
			return from, err
		}
		from.Join = JoinRight
	case TokenJoin:
		p.next()
		from.Join = JoinInner
	default:
		return from, nil
	}

	joinTable, err := p.parseIdent("table name")
	if err != nil {
		return from, err
	}
	from.JoinTable = joinTable

	if from.Join != JoinCross {
		if _, err := p.expect(TokenOn, "ON"); err != nil {
			return from, err
		}
		cmp, err := p.parseCompare()
		if err != nil {
			return from, err
		}
		if cmp.Op != CompareEq {
			return from, sqlerr.Unsupportedf("only equality ON predicates")
		}
		if _, ok := cmp.Left.(*ColumnExpr); !ok {
			return from, sqlerr.Syntaxf("ON must compare two columns")
		}
		if _, ok := cmp.Right.(*ColumnExpr); !ok {
			return from, sqlerr.Syntaxf("ON must compare two columns")
		}
		from.On = cmp
	}

	if p.cur.Type == TokenJoin || p.cur.Type == TokenLeft || p.cur.Type == TokenRight ||
		p.cur.Type == TokenCross || p.cur.Type == TokenInner {
		return from, sqlerr.Unsupportedf("more than one join")
	}
	return from, nil
}

// parseConstExpr parses an expression that must fold to a literal,
// used for LIMIT and OFFSET.
func (p *parser) parseConstExpr(what string) (Expr, error) {
	expr, err := p.parseScalarExpr()
	if err != nil {
		return nil, err
	}
	if _, ok := expr.(*LiteralExpr); !ok {
		return nil, sqlerr.Syntaxf("%s must be a constant", what)
	}
	return expr, nil
}

func (p *parser) parseCompare() (*CompareExpr, error) {
	left, err := p.parseScalarExpr()
	if err != nil {
		return nil, err
	}
	var op CompareOp
	switch p.cur.Type {
	case TokenEquals:
		op = CompareEq
	case TokenLessThan:
		op = CompareLt
	case TokenGreaterThan:
		op = CompareGt
	case TokenNotEquals, TokenLessOrEqual, TokenGreaterOrEqual:
		return nil, sqlerr.Unsupportedf("comparison operator %s", p.cur.Literal)
	default:
		return nil, syntaxErr(p.cur, fmt.Sprintf("expected comparison operator, found %s", describe(p.cur)))
	}
	p.next()
	right, err := p.parseScalarExpr()
	if err != nil {
		return nil, err
	}
	if p.cur.Type == TokenAnd || p.cur.Type == TokenOr {
		return nil, sqlerr.Unsupportedf("compound predicates with %s", strings.ToUpper(p.cur.Literal))
	}
	return &CompareExpr{Op: op, Left: left, Right: right}, nil
}

// parseScalarExpr parses one scalar expression. Constant arithmetic is
// folded here, so downstream layers only ever see literals, column
// references and aggregate calls.
func (p *parser) parseScalarExpr() (Expr, error) {
	return p.parseAdditive()
}

func (p *parser) parseAdditive() (Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == TokenPlus || p.cur.Type == TokenMinus {
		opTok := p.cur
		p.next()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left, err = foldBinary(opTok, left, right)
		if err != nil {
			return nil, err
		}
	}
	return left, nil
}

func (p *parser) parseMultiplicative() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == TokenAsterisk || p.cur.Type == TokenSlash {
		opTok := p.cur
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left, err = foldBinary(opTok, left, right)
		if err != nil {
			return nil, err
		}
	}
	return left, nil
}

func (p *parser) parseUnary() (Expr, error) {
	if p.cur.Type != TokenMinus {
		return p.parsePrimary()
	}
	tok := p.cur
	p.next()
	inner, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	lit, ok := inner.(*LiteralExpr)
	if !ok {
		return nil, sqlerr.Unsupportedf("arithmetic over columns")
	}
	switch lit.Value.Kind {
	case types.KindInteger:
		return &LiteralExpr{Value: types.IntValue(-lit.Value.Int)}, nil
	case types.KindFloat:
		return &LiteralExpr{Value: types.FloatValue(-lit.Value.Float)}, nil
	default:
		return nil, syntaxErr(tok, fmt.Sprintf("cannot negate %s", lit.Value.Kind))
	}
}

func (p *parser) parsePrimary() (Expr, error) {
	switch p.cur.Type {
	case TokenNumber:
		tok := p.cur
		p.next()
		if i, err := strconv.ParseInt(tok.Literal, 10, 64); err == nil {
			return &LiteralExpr{Value: types.IntValue(i)}, nil
		}
		f, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			return nil, syntaxErr(tok, fmt.Sprintf("bad number %q", tok.Literal))
		}
		return &LiteralExpr{Value: types.FloatValue(f)}, nil

	case TokenString:
		tok := p.cur
		p.next()
		return &LiteralExpr{Value: types.StringValue(tok.Literal)}, nil

	case TokenBoolean:
		tok := p.cur
		p.next()
		return &LiteralExpr{Value: types.BoolValue(strings.EqualFold(tok.Literal, "TRUE"))}, nil

	case TokenNull:
		p.next()
		return &LiteralExpr{Value: types.NullValue()}, nil

	case TokenLeftParen:
		p.next()
		expr, err := p.parseScalarExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRightParen, "')'"); err != nil {
			return nil, err
		}
		return expr, nil

	case TokenIdent:
		if p.peek.Type == TokenLeftParen {
			return p.parseAggregate()
		}
		return p.parseColumnRef()

	case TokenError:
		return nil, syntaxErr(p.cur, p.cur.Literal)

	default:
		return nil, syntaxErr(p.cur, fmt.Sprintf("expected expression, found %s", describe(p.cur)))
	}
}

func (p *parser) parseAggregate() (Expr, error) {
	nameTok := p.cur
	fn := strings.ToLower(nameTok.Literal)
	if !aggregates[fn] {
		return nil, sqlerr.Unsupportedf("function %s", fn)
	}
	p.next() // name
	p.next() // '('

	agg := &AggregateExpr{Func: fn}
	if p.cur.Type == TokenAsterisk {
		if fn != "count" {
			return nil, sqlerr.Unsupportedf("%s(*)", fn)
		}
		p.next()
		agg.Star = true
	} else {
		col, err := p.parseColumnRef()
		if err != nil {
			return nil, err
		}
		agg.Column = col
	}
	if _, err := p.expect(TokenRightParen, "')'"); err != nil {
		return nil, err
	}
	return agg, nil
}

func (p *parser) parseColumnRef() (*ColumnExpr, error) {
	first, err := p.parseIdent("column name")
	if err != nil {
		return nil, err
	}
	if p.cur.Type != TokenDot {
		return &ColumnExpr{Name: first}, nil
	}
	p.next()
	second, err := p.parseIdent("column name")
	if err != nil {
		return nil, err
	}
	return &ColumnExpr{Table: first, Name: second}, nil
}

// foldBinary evaluates constant arithmetic at parse time. The result
// is always a Float; an unknown at either side is an error since
// runtime expression evaluation has no arithmetic.
func foldBinary(opTok Token, left, right Expr) (Expr, error) {
	ll, lok := left.(*LiteralExpr)
	rl, rok := right.(*LiteralExpr)
	if !lok || !rok {
		return nil, sqlerr.Unsupportedf("arithmetic over columns")
	}
	lf, err := numericOf(ll.Value, opTok)
	if err != nil {
		return nil, err
	}
	rf, err := numericOf(rl.Value, opTok)
	if err != nil {
		return nil, err
	}
	var v float64
	switch opTok.Type {
	case TokenPlus:
		v = lf + rf
	case TokenMinus:
		v = lf - rf
	case TokenAsterisk:
		v = lf * rf
	case TokenSlash:
		if rf == 0 {
			return nil, sqlerr.Divisionf("division by zero")
		}
		v = lf / rf
	default:
		return nil, syntaxErr(opTok, fmt.Sprintf("bad operator %q", opTok.Literal))
	}
	return &LiteralExpr{Value: types.FloatValue(v)}, nil
}

func numericOf(v types.Value, opTok Token) (float64, error) {
	switch v.Kind {
	case types.KindInteger:
		return float64(v.Int), nil
	case types.KindFloat:
		return v.Float, nil
	default:
		return 0, sqlerr.TypeMismatchf("cannot apply %s to %s", opTok.Literal, v.Kind)
	}
}
