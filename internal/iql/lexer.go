package iql

import (
	"strings"
)

// Tokenize turns query text into a token sequence ending with an EOF
// token. Keywords match case-insensitively; string literals accept single
// or double quotes with backslash escapes; whitespace is insignificant
// outside literals.
func Tokenize(input string) ([]Token, error) {
	l := &lexer{input: input}
	var tokens []Token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			return tokens, nil
		}
	}
}

type lexer struct {
	input string
	pos   int
}

func (l *lexer) next() (Token, error) {
	l.skipWhitespace()
	start := l.pos

	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Offset: start}, nil
	}

	c := l.input[l.pos]
	switch {
	case isLetter(c):
		return l.scanWord(start), nil
	case isDigit(c):
		return l.scanNumber(start), nil
	case c == '-' && l.pos+1 < len(l.input) && isDigit(l.input[l.pos+1]):
		l.pos++
		tok := l.scanNumber(start)
		tok.Literal = "-" + tok.Literal
		return tok, nil
	case c == '\'' || c == '"':
		return l.scanString(start, c)
	}

	punct := func(t TokenType, width int) Token {
		lit := l.input[start : start+width]
		l.pos += width
		return Token{Type: t, Literal: lit, Offset: start}
	}

	switch c {
	case '*':
		return punct(TokenStar, 1), nil
	case ',':
		return punct(TokenComma, 1), nil
	case '.':
		return punct(TokenDot, 1), nil
	case '#':
		return punct(TokenHash, 1), nil
	case '(':
		return punct(TokenLParen, 1), nil
	case ')':
		return punct(TokenRParen, 1), nil
	case '[':
		return punct(TokenLBracket, 1), nil
	case ']':
		return punct(TokenRBracket, 1), nil
	case '=':
		return punct(TokenEq, 1), nil
	case '!':
		if l.pos+1 < len(l.input) && l.input[l.pos+1] == '=' {
			return punct(TokenNeq, 2), nil
		}
	case '>':
		if l.pos+1 < len(l.input) && l.input[l.pos+1] == '=' {
			return punct(TokenGte, 2), nil
		}
		return punct(TokenGt, 1), nil
	case '<':
		if l.pos+1 < len(l.input) && l.input[l.pos+1] == '=' {
			return punct(TokenLte, 2), nil
		}
		return punct(TokenLt, 1), nil
	}

	return Token{}, &LexError{Offset: start, Msg: "illegal character " + string(l.input[start])}
}

func (l *lexer) skipWhitespace() {
	for l.pos < len(l.input) {
		switch l.input[l.pos] {
		case ' ', '\t', '\n', '\r', '\f':
			l.pos++
		default:
			return
		}
	}
}

// scanWord scans an identifier or keyword: [a-zA-Z_][a-zA-Z0-9_-]*.
// Hyphens are legal inside identifiers (my-project).
func (l *lexer) scanWord(start int) Token {
	for l.pos < len(l.input) && isWordChar(l.input[l.pos]) {
		l.pos++
	}
	word := l.input[start:l.pos]
	if t, ok := keywords[strings.ToLower(word)]; ok {
		return Token{Type: t, Literal: word, Offset: start}
	}
	return Token{Type: TokenIdent, Literal: word, Offset: start}
}

func (l *lexer) scanNumber(start int) Token {
	digitsFrom := l.pos
	for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
		l.pos++
	}
	if l.pos+1 < len(l.input) && l.input[l.pos] == '.' && isDigit(l.input[l.pos+1]) {
		l.pos++
		for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
			l.pos++
		}
		return Token{Type: TokenFloat, Literal: l.input[digitsFrom:l.pos], Offset: start}
	}
	return Token{Type: TokenNumber, Literal: l.input[digitsFrom:l.pos], Offset: start}
}

// scanString scans a quoted literal, resolving escape sequences. The
// returned literal holds the unescaped content without delimiters.
func (l *lexer) scanString(start int, quote byte) (Token, error) {
	l.pos++ // consume opening quote
	var sb strings.Builder
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		switch c {
		case quote:
			l.pos++
			return Token{Type: TokenString, Literal: sb.String(), Offset: start}, nil
		case '\\':
			l.pos++
			if l.pos >= len(l.input) {
				return Token{}, &LexError{Offset: start, Msg: "unterminated string literal"}
			}
			sb.WriteByte(unescape(l.input[l.pos]))
			l.pos++
		default:
			sb.WriteByte(c)
			l.pos++
		}
	}
	return Token{}, &LexError{Offset: start, Msg: "unterminated string literal"}
}

func unescape(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	case '0':
		return 0
	}
	// \\ \' \" and unknown escapes resolve to the escaped byte itself
	return c
}

func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isWordChar(c byte) bool {
	return isLetter(c) || isDigit(c) || c == '-'
}
