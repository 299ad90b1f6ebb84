package nanos

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// TokenType represents the type of a lexer token.
type TokenType uint8

const (
	TokenEOF TokenType = iota

	// Literals
	TokenInt    // 12, -3, 0x1f, 0b101, 0o17
	TokenFloat  // 1.5, -2e10, NaN, Infinity
	TokenBigInt // 123n, 0xffn
	TokenString // 'quoted' or "quoted"
	TokenWord   // anything else

	// Structural
	TokenLBracket // [
	TokenRBracket // ]
	TokenEq       // =
)

// String returns the token type name.
func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "EOF"
	case TokenInt:
		return "INT"
	case TokenFloat:
		return "FLOAT"
	case TokenBigInt:
		return "BIGINT"
	case TokenString:
		return "STRING"
	case TokenWord:
		return "WORD"
	case TokenLBracket:
		return "["
	case TokenRBracket:
		return "]"
	case TokenEq:
		return "="
	default:
		return "UNKNOWN"
	}
}

// Token represents a lexer token. For strings Value is the decoded text;
// for everything else it is the source text.
type Token struct {
	Type  TokenType
	Value string
	Pos   Position
}

// String returns a debug representation of the token.
func (t Token) String() string {
	if t.Value == "" {
		return t.Type.String()
	}
	return fmt.Sprintf("%s(%q)", t.Type, t.Value)
}

var (
	bigIntRe   = regexp.MustCompile(`^[+-]?(?:0[bB][01]+|0[oO][0-7]+|0[xX][0-9a-fA-F]+|[0-9]+)n$`)
	radixIntRe = regexp.MustCompile(`^[+-]?(?:0[bB][01]+|0[oO][0-7]+|0[xX][0-9a-fA-F]+)$`)
	decIntRe   = regexp.MustCompile(`^[+-]?[0-9]+$`)
	floatRe    = regexp.MustCompile(`^[+-]?(?:(?:[0-9]+\.?[0-9]*|\.[0-9]+)(?:[eE][+-]?[0-9]+)?|NaN|Infinity)$`)
)

// numberType classifies s as a numeric literal.
func numberType(s string) (TokenType, bool) {
	switch {
	case decIntRe.MatchString(s), radixIntRe.MatchString(s):
		return TokenInt, true
	case bigIntRe.MatchString(s):
		return TokenBigInt, true
	case floatRe.MatchString(s):
		return TokenFloat, true
	}
	return TokenWord, false
}

// Lexer tokenizes the body of a SLID document (the text between [( and )]).
type Lexer struct {
	input  string
	pos    int // Current position in input
	line   int // Current line number (1-based)
	col    int // Current column number (1-based)
	tokens []Token
	err    error
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{
		input: input,
		pos:   0,
		line:  1,
		col:   1,
	}
}

// Tokenize returns all tokens from the input, ending with TokenEOF.
func (l *Lexer) Tokenize() ([]Token, error) {
	for {
		tok := l.nextToken()
		if l.err != nil {
			return l.tokens, l.err
		}
		l.tokens = append(l.tokens, tok)
		if tok.Type == TokenEOF {
			return l.tokens, nil
		}
	}
}

// nextToken returns the next token.
func (l *Lexer) nextToken() Token {
	l.skipWhitespaceAndComments()
	if l.err != nil {
		return Token{}
	}

	startPos := l.currentPos()
	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Pos: startPos}
	}

	switch ch := l.peek(); ch {
	case '[':
		l.advance()
		return Token{Type: TokenLBracket, Value: "[", Pos: startPos}
	case ']':
		l.advance()
		return Token{Type: TokenRBracket, Value: "]", Pos: startPos}
	case '=':
		l.advance()
		return Token{Type: TokenEq, Value: "=", Pos: startPos}
	case '\'', '"':
		return l.scanString(ch)
	}

	return l.scanWord()
}

// scanWord scans a run of non-terminator characters and classifies it as a
// number or a word literal.
func (l *Lexer) scanWord() Token {
	startPos := l.currentPos()
	start := l.pos
	for l.pos < len(l.input) && !l.atTerminator() {
		l.advance()
	}
	value := l.input[start:l.pos]
	if typ, ok := numberType(value); ok {
		return Token{Type: typ, Value: value, Pos: startPos}
	}
	return Token{Type: TokenWord, Value: value, Pos: startPos}
}

// atTerminator reports whether a word ends at the current position.
func (l *Lexer) atTerminator() bool {
	switch ch := l.peek(); ch {
	case ' ', '\t', '\r', '\n', '\f', '\v', '[', ']', '=', '\'', '"':
		return true
	case '/':
		return l.pos+1 < len(l.input) && l.input[l.pos+1] == '*'
	}
	return false
}

// scanString scans a quoted string.
func (l *Lexer) scanString(quote byte) Token {
	startPos := l.currentPos()
	l.advance() // consume opening quote

	var sb strings.Builder
	for {
		if l.pos >= len(l.input) {
			l.err = &ParseError{Kind: ErrUnterminatedString, Pos: startPos}
			return Token{}
		}

		ch := l.peek()
		if ch == quote {
			l.advance() // consume closing quote
			break
		}
		if ch != '\\' {
			r, size := utf8.DecodeRuneInString(l.input[l.pos:])
			sb.WriteRune(r)
			for range size {
				l.advance()
			}
			continue
		}

		l.advance()
		if l.pos >= len(l.input) {
			l.err = &ParseError{Kind: ErrUnterminatedString, Pos: startPos}
			return Token{}
		}
		escPos := l.currentPos()
		escaped := l.peek()
		if strings.IndexByte("bfnrtv0xu", escaped) < 0 {
			// Quotes, backslash and anything else stand for themselves.
			r, size := utf8.DecodeRuneInString(l.input[l.pos:])
			sb.WriteRune(r)
			for range size {
				l.advance()
			}
			continue
		}
		l.advance()
		switch escaped {
		case 'b':
			sb.WriteByte('\b')
		case 'f':
			sb.WriteByte('\f')
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case 'v':
			sb.WriteByte('\v')
		case '0':
			sb.WriteByte(0)
		case 'x':
			r, ok := l.scanHex(2)
			if !ok {
				l.err = &ParseError{Kind: ErrMalformed, Message: `bad \x escape`, Pos: escPos}
				return Token{}
			}
			// \xHH is a single byte, so invalid UTF-8 survives a round trip.
			sb.WriteByte(byte(r))
		case 'u':
			r, ok := l.scanUnicode()
			if !ok {
				l.err = &ParseError{Kind: ErrMalformed, Message: `bad \u escape`, Pos: escPos}
				return Token{}
			}
			sb.WriteRune(r)
		}
	}

	return Token{Type: TokenString, Value: sb.String(), Pos: startPos}
}

// scanHex reads exactly n hex digits.
func (l *Lexer) scanHex(n int) (rune, bool) {
	if l.pos+n > len(l.input) {
		return 0, false
	}
	v, err := strconv.ParseUint(l.input[l.pos:l.pos+n], 16, 32)
	if err != nil {
		return 0, false
	}
	for range n {
		l.advance()
	}
	return rune(v), true
}

// scanUnicode reads the rest of a \u escape: HHHH (joining surrogate pairs)
// or {H...}.
func (l *Lexer) scanUnicode() (rune, bool) {
	if l.peek() == '{' {
		end := strings.IndexByte(l.input[l.pos:], '}')
		if end < 2 || end > 7 {
			return 0, false
		}
		v, err := strconv.ParseUint(l.input[l.pos+1:l.pos+end], 16, 32)
		if err != nil || v > utf8.MaxRune {
			return 0, false
		}
		for range end + 1 {
			l.advance()
		}
		return rune(v), true
	}
	r, ok := l.scanHex(4)
	if !ok {
		return 0, false
	}
	if utf16.IsSurrogate(r) && strings.HasPrefix(l.input[l.pos:], `\u`) {
		save, saveCol := l.pos, l.col
		l.advance()
		l.advance()
		if r2, ok := l.scanHex(4); ok {
			if dec := utf16.DecodeRune(r, r2); dec != utf8.RuneError {
				return dec, true
			}
		}
		l.pos, l.col = save, saveCol
	}
	return r, true
}

// skipWhitespaceAndComments skips whitespace and /* */ comments.
func (l *Lexer) skipWhitespaceAndComments() {
	for l.pos < len(l.input) {
		ch := l.peek()

		if ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n' || ch == '\f' || ch == '\v' {
			l.advance()
			continue
		}

		if ch == '/' && l.pos+1 < len(l.input) && l.input[l.pos+1] == '*' {
			startPos := l.currentPos()
			end := strings.Index(l.input[l.pos+2:], "*/")
			if end < 0 {
				l.err = &ParseError{Kind: ErrMalformed, Message: "unterminated comment", Pos: startPos}
				return
			}
			for range end + 4 {
				l.advance()
			}
			continue
		}

		break
	}
}

// Helper methods

func (l *Lexer) peek() byte {
	if l.pos >= len(l.input) {
		return 0
	}
	return l.input[l.pos]
}

func (l *Lexer) advance() {
	if l.pos < len(l.input) {
		if l.input[l.pos] == '\n' {
			l.line++
			l.col = 1
		} else {
			l.col++
		}
		l.pos++
	}
}

func (l *Lexer) currentPos() Position {
	return Position{Line: l.line, Column: l.col, Offset: l.pos}
}

// TokenStream provides a stream interface over tokens.
type TokenStream struct {
	tokens []Token
	pos    int
}

// NewTokenStream creates a token stream from tokens.
func NewTokenStream(tokens []Token) *TokenStream {
	return &TokenStream{tokens: tokens, pos: 0}
}

// Peek returns the current token without advancing.
func (ts *TokenStream) Peek() Token {
	if ts.pos >= len(ts.tokens) {
		return Token{Type: TokenEOF}
	}
	return ts.tokens[ts.pos]
}

// PeekN returns the token N positions ahead.
func (ts *TokenStream) PeekN(n int) Token {
	idx := ts.pos + n
	if idx >= len(ts.tokens) {
		return Token{Type: TokenEOF}
	}
	return ts.tokens[idx]
}

// Advance moves to the next token and returns the current one.
func (ts *TokenStream) Advance() Token {
	tok := ts.Peek()
	if ts.pos < len(ts.tokens) {
		ts.pos++
	}
	return tok
}

// AtEnd returns true if at end of stream.
func (ts *TokenStream) AtEnd() bool {
	return ts.Peek().Type == TokenEOF
}
