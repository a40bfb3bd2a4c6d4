package parser

import "fmt"

// TokenType classifies a lexical token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenError

	// literals
	TokenIdent
	TokenNumber
	TokenString
	TokenBoolean

	// keywords
	TokenSelect
	TokenInsert
	TokenUpdate
	TokenDelete
	TokenCreate
	TokenDrop
	TokenInto
	TokenValues
	TokenFrom
	TokenWhere
	TokenSet
	TokenTable
	TokenTables
	TokenShow
	TokenAs
	TokenOn
	TokenJoin
	TokenLeft
	TokenRight
	TokenCross
	TokenInner
	TokenOuter
	TokenGroup
	TokenBy
	TokenHaving
	TokenOrder
	TokenAsc
	TokenDesc
	TokenLimit
	TokenOffset
	TokenExplain
	TokenBegin
	TokenCommit
	TokenRollback
	TokenNull
	TokenNot
	TokenDefault
	TokenIndex
	TokenPrimary
	TokenAnd
	TokenOr

	// operators
	TokenEquals
	TokenNotEquals
	TokenLessThan
	TokenGreaterThan
	TokenLessOrEqual
	TokenGreaterOrEqual
	TokenPlus
	TokenMinus
	TokenAsterisk
	TokenSlash

	// punctuation
	TokenComma
	TokenSemicolon
	TokenLeftParen
	TokenRightParen
	TokenDot
)

// Token is one lexical token with its source position.
type Token struct {
	Type    TokenType
	Literal string
	Line    int
	Column  int
}

func (t Token) String() string {
	return fmt.Sprintf("Token{%s, %q, line:%d, col:%d}", tokenTypeName(t.Type), t.Literal, t.Line, t.Column)
}

var tokenNames = map[TokenType]string{
	TokenEOF:            "EOF",
	TokenError:          "ERROR",
	TokenIdent:          "IDENT",
	TokenNumber:         "NUMBER",
	TokenString:         "STRING",
	TokenBoolean:        "BOOLEAN",
	TokenSelect:         "SELECT",
	TokenInsert:         "INSERT",
	TokenUpdate:         "UPDATE",
	TokenDelete:         "DELETE",
	TokenCreate:         "CREATE",
	TokenDrop:           "DROP",
	TokenInto:           "INTO",
	TokenValues:         "VALUES",
	TokenFrom:           "FROM",
	TokenWhere:          "WHERE",
	TokenSet:            "SET",
	TokenTable:          "TABLE",
	TokenTables:         "TABLES",
	TokenShow:           "SHOW",
	TokenAs:             "AS",
	TokenOn:             "ON",
	TokenJoin:           "JOIN",
	TokenLeft:           "LEFT",
	TokenRight:          "RIGHT",
	TokenCross:          "CROSS",
	TokenInner:          "INNER",
	TokenOuter:          "OUTER",
	TokenGroup:          "GROUP",
	TokenBy:             "BY",
	TokenHaving:         "HAVING",
	TokenOrder:          "ORDER",
	TokenAsc:            "ASC",
	TokenDesc:           "DESC",
	TokenLimit:          "LIMIT",
	TokenOffset:         "OFFSET",
	TokenExplain:        "EXPLAIN",
	TokenBegin:          "BEGIN",
	TokenCommit:         "COMMIT",
	TokenRollback:       "ROLLBACK",
	TokenNull:           "NULL",
	TokenNot:            "NOT",
	TokenDefault:        "DEFAULT",
	TokenIndex:          "INDEX",
	TokenPrimary:        "PRIMARY",
	TokenAnd:            "AND",
	TokenOr:             "OR",
	TokenEquals:         "EQUALS",
	TokenNotEquals:      "NOT_EQUALS",
	TokenLessThan:       "LESS_THAN",
	TokenGreaterThan:    "GREATER_THAN",
	TokenLessOrEqual:    "LESS_OR_EQUAL",
	TokenGreaterOrEqual: "GREATER_OR_EQUAL",
	TokenPlus:           "PLUS",
	TokenMinus:          "MINUS",
	TokenAsterisk:       "ASTERISK",
	TokenSlash:          "SLASH",
	TokenComma:          "COMMA",
	TokenSemicolon:      "SEMICOLON",
	TokenLeftParen:      "LEFT_PAREN",
	TokenRightParen:     "RIGHT_PAREN",
	TokenDot:            "DOT",
}

func tokenTypeName(t TokenType) string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// keywords maps upper-cased identifiers to keyword tokens. Type names
// (INT, TEXT, ...) stay ordinary identifiers; the parser resolves them
// through types.ParseDataType.
var keywords = map[string]TokenType{
	"SELECT":   TokenSelect,
	"INSERT":   TokenInsert,
	"UPDATE":   TokenUpdate,
	"DELETE":   TokenDelete,
	"CREATE":   TokenCreate,
	"DROP":     TokenDrop,
	"INTO":     TokenInto,
	"VALUES":   TokenValues,
	"FROM":     TokenFrom,
	"WHERE":    TokenWhere,
	"SET":      TokenSet,
	"TABLE":    TokenTable,
	"TABLES":   TokenTables,
	"SHOW":     TokenShow,
	"AS":       TokenAs,
	"ON":       TokenOn,
	"JOIN":     TokenJoin,
	"LEFT":     TokenLeft,
	"RIGHT":    TokenRight,
	"CROSS":    TokenCross,
	"INNER":    TokenInner,
	"OUTER":    TokenOuter,
	"GROUP":    TokenGroup,
	"BY":       TokenBy,
	"HAVING":   TokenHaving,
	"ORDER":    TokenOrder,
	"ASC":      TokenAsc,
	"DESC":     TokenDesc,
	"LIMIT":    TokenLimit,
	"OFFSET":   TokenOffset,
	"EXPLAIN":  TokenExplain,
	"BEGIN":    TokenBegin,
	"COMMIT":   TokenCommit,
	"ROLLBACK": TokenRollback,
	"NULL":     TokenNull,
	"NOT":      TokenNot,
	"DEFAULT":  TokenDefault,
	"INDEX":    TokenIndex,
	"PRIMARY":  TokenPrimary,
	"AND":      TokenAnd,
	"OR":       TokenOr,
	"TRUE":     TokenBoolean,
	"FALSE":    TokenBoolean,
}
