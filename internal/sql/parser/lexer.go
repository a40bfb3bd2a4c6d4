package parser

import (
	"fmt"
	"strings"
)

// lexer walks the input byte by byte and hands out tokens. Positions
// are 1-based lines with columns counted from the line start.
type lexer struct {
	input   string
	pos     int
	readPos int
	ch      byte
	line    int
	column  int
}

func newLexer(input string) *lexer {
	l := &lexer{input: input, line: 1}
	l.readChar()
	return l
}

func (l *lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
	l.column++

	if l.ch == '\n' {
		l.line++
		l.column = 0
	}
}

func (l *lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *lexer) NextToken() Token {
	l.skipWhitespace()

	switch l.ch {
	case '=':
		return l.single(TokenEquals)
	case '+':
		return l.single(TokenPlus)
	case '-':
		if l.peekChar() == '-' {
			l.skipLineComment()
			return l.NextToken()
		}
		return l.single(TokenMinus)
	case '*':
		return l.single(TokenAsterisk)
	case '/':
		return l.single(TokenSlash)
	case '<':
		switch l.peekChar() {
		case '=':
			return l.double(TokenLessOrEqual)
		case '>':
			return l.double(TokenNotEquals)
		}
		return l.single(TokenLessThan)
	case '>':
		if l.peekChar() == '=' {
			return l.double(TokenGreaterOrEqual)
		}
		return l.single(TokenGreaterThan)
	case '!':
		if l.peekChar() == '=' {
			return l.double(TokenNotEquals)
		}
		return l.errorToken("unexpected character '!'")
	case ',':
		return l.single(TokenComma)
	case ';':
		return l.single(TokenSemicolon)
	case '(':
		return l.single(TokenLeftParen)
	case ')':
		return l.single(TokenRightParen)
	case '.':
		return l.single(TokenDot)
	case '\'':
		return l.readString()
	case 0:
		return Token{Type: TokenEOF, Line: l.line, Column: l.column}
	default:
		if isLetter(l.ch) {
			return l.readIdentifier()
		}
		if isDigit(l.ch) {
			return l.readNumber()
		}
		return l.errorToken(fmt.Sprintf("unexpected character %q", string(l.ch)))
	}
}

func (l *lexer) single(t TokenType) Token {
	tok := Token{Type: t, Literal: string(l.ch), Line: l.line, Column: l.column}
	l.readChar()
	return tok
}

func (l *lexer) double(t TokenType) Token {
	tok := Token{Type: t, Literal: string(l.ch) + string(l.peekChar()), Line: l.line, Column: l.column}
	l.readChar()
	l.readChar()
	return tok
}

func (l *lexer) errorToken(msg string) Token {
	tok := Token{Type: TokenError, Literal: msg, Line: l.line, Column: l.column}
	l.readChar()
	return tok
}

func (l *lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

func (l *lexer) skipLineComment() {
	for l.ch != '\n' && l.ch != 0 {
		l.readChar()
	}
}

func (l *lexer) readIdentifier() Token {
	line, column, start := l.line, l.column, l.pos
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	literal := l.input[start:l.pos]
	typ, isKeyword := keywords[strings.ToUpper(literal)]
	if !isKeyword {
		typ = TokenIdent
	}
	return Token{Type: typ, Literal: literal, Line: line, Column: column}
}

func (l *lexer) readNumber() Token {
	line, column, start := l.line, l.column, l.pos
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	return Token{Type: TokenNumber, Literal: l.input[start:l.pos], Line: line, Column: column}
}

// readString reads a single-quoted literal. A doubled quote inside the
// string stands for one quote character.
func (l *lexer) readString() Token {
	line, column := l.line, l.column
	var sb strings.Builder
	l.readChar()

	for {
		switch {
		case l.ch == '\'' && l.peekChar() == '\'':
			sb.WriteByte('\'')
			l.readChar()
			l.readChar()
		case l.ch == '\'':
			l.readChar()
			return Token{Type: TokenString, Literal: sb.String(), Line: line, Column: column}
		case l.ch == 0:
			return Token{Type: TokenError, Literal: "unterminated string", Line: line, Column: column}
		default:
			sb.WriteByte(l.ch)
			l.readChar()
		}
	}
}

func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
