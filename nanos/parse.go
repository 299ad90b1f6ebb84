package nanos

import (
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"
)

// ParseOptions configures the parser behavior.
type ParseOptions struct {
	// QJSON recognizes bare true/false/null and disables @ specials.
	QJSON bool
	// Options are given to every parsed container.
	Options Options
	// RIO is attached to the top-level container. Nested containers get
	// RIO.Create() when Options.AutoReactive is set.
	RIO RIO
}

// Parser parses SLID text into containers.
type Parser struct {
	stream *TokenStream
	qjson  bool
}

// boundaryEscape matches ")" + backslashes + "]" inside the outer boundary.
var (
	boundaryEscape   = regexp.MustCompile(`\)(\\*)\]`)
	boundaryUnescape = regexp.MustCompile(`\)\\(\\*)\]`)
)

// escapeBoundary makes s safe to place between [( and )].
func escapeBoundary(s string) string {
	return boundaryEscape.ReplaceAllString(s, `)\${1}]`)
}

func unescapeBoundary(s string) string {
	return boundaryUnescape.ReplaceAllString(s, `)${1}]`)
}

// Parse parses a SLID document.
func Parse(input string) (*Container, error) {
	return ParseWithOptions(input, ParseOptions{})
}

// ParseQJSON parses a QJSON document.
func ParseQJSON(input string) (*Container, error) {
	return ParseWithOptions(QJSONToSLID(input), ParseOptions{QJSON: true})
}

// ParseWithOptions parses a SLID document with full options. On error no
// container is returned.
func ParseWithOptions(input string, opts ParseOptions) (*Container, error) {
	trimmed := strings.TrimSpace(input)
	if len(trimmed) < 4 || !strings.HasPrefix(trimmed, "[(") || !strings.HasSuffix(trimmed, ")]") {
		return nil, &ParseError{Kind: ErrBoundary, Pos: Position{Line: 1, Column: 1}}
	}
	body := unescapeBoundary(trimmed[2 : len(trimmed)-2])

	lexer := NewLexer(body)
	lexer.col = 3
	tokens, err := lexer.Tokenize()
	if err != nil {
		return nil, err
	}

	p := &Parser{
		stream: NewTokenStream(tokens),
		qjson:  opts.QJSON,
	}

	root := NewWithOptions(opts.Options)
	if opts.RIO != nil {
		root.rio = opts.RIO
	}
	if err := p.parseItems(root, false); err != nil {
		return nil, err
	}
	if tok := p.stream.Peek(); tok.Type != TokenEOF {
		return nil, p.errorf(ErrMalformed, tok.Pos, "unexpected %s after end of list", tok)
	}
	return root, nil
}

// QJSONToSLID rewrites QJSON text as a SLID document: outside quotes {
// and } become brackets, commas become spaces and colons become =.
func QJSONToSLID(input string) string {
	var sb strings.Builder
	sb.Grow(len(input))
	var quote byte
	for i := 0; i < len(input); i++ {
		ch := input[i]
		if quote != 0 {
			sb.WriteByte(ch)
			if ch == '\\' && i+1 < len(input) {
				i++
				sb.WriteByte(input[i])
			} else if ch == quote {
				quote = 0
			}
			continue
		}
		switch ch {
		case '\'', '"':
			quote = ch
			sb.WriteByte(ch)
		case '{':
			sb.WriteByte('[')
		case '}':
			sb.WriteByte(']')
		case ',':
			sb.WriteByte(' ')
		case ':':
			sb.WriteByte('=')
		default:
			sb.WriteByte(ch)
		}
	}
	return "[(" + escapeBoundary(sb.String()) + ")]"
}

func (p *Parser) errorf(kind error, pos Position, format string, args ...any) *ParseError {
	return &ParseError{Kind: kind, Message: fmt.Sprintf(format, args...), Pos: pos}
}

// parseItems parses items into c until ] or EOF. nested lists must end
// with ], which is left for the caller.
func (p *Parser) parseItems(c *Container, nested bool) error {
	for {
		tok := p.stream.Peek()
		switch tok.Type {
		case TokenEOF:
			if nested {
				return p.errorf(ErrMalformed, tok.Pos, "unclosed [")
			}
			return nil
		case TokenRBracket:
			return nil
		case TokenEq:
			return p.errorf(ErrMalformed, tok.Pos, "= without a key")
		}

		key, keyed := "", false
		if isKeyToken(tok) && p.stream.PeekN(1).Type == TokenEq {
			p.stream.Advance()
			p.stream.Advance()
			key, keyed = p.keyOf(tok), true
		}

		value, err := p.parseValue(c)
		if err != nil {
			return err
		}
		if !keyed {
			key = indexKey(c.seq.next)
		}
		c.set(key, value, false)
	}
}

func isKeyToken(tok Token) bool {
	switch tok.Type {
	case TokenInt, TokenFloat, TokenBigInt, TokenWord, TokenString:
		return true
	}
	return false
}

// keyOf returns the key named by a key token. Integer tokens with a
// non-negative value become index keys.
func (p *Parser) keyOf(tok Token) string {
	if tok.Type == TokenInt {
		if v, ok := p.number(tok).(int64); ok && v >= 0 {
			return strconv.FormatInt(v, 10)
		}
	}
	return tok.Value
}

// parseValue parses a single value. A hole is returned as Empty.
func (p *Parser) parseValue(c *Container) (any, error) {
	tok := p.stream.Advance()

	switch tok.Type {
	case TokenInt, TokenFloat, TokenBigInt:
		return p.number(tok), nil

	case TokenString:
		return tok.Value, nil

	case TokenWord:
		return p.word(tok.Value), nil

	case TokenLBracket:
		child := c.newChild()
		if err := p.parseItems(child, true); err != nil {
			return nil, err
		}
		p.stream.Advance() // consume ]
		return child, nil

	default:
		return nil, p.errorf(ErrMalformed, tok.Pos, "expected value, got %s", tok.Type)
	}
}

// word interprets a word literal.
func (p *Parser) word(s string) any {
	if p.qjson {
		switch s {
		case "true":
			return true
		case "false":
			return false
		case "null":
			return nil
		}
		return s
	}
	switch s {
	case "@e":
		return Empty
	case "@f":
		return false
	case "@n":
		return nil
	case "@t":
		return true
	case "@u":
		return Undefined
	}
	return s
}

// number converts a numeric token. Integers that do not fit int64 become
// float64.
func (p *Parser) number(tok Token) any {
	s := tok.Value
	switch tok.Type {
	case TokenBigInt:
		digits := strings.TrimSuffix(s, "n")
		base := 10
		if radixIntRe.MatchString(digits) {
			base = 0
		}
		if n, ok := new(big.Int).SetString(digits, base); ok {
			return n
		}
	case TokenInt:
		if decIntRe.MatchString(s) {
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				return n
			}
			f, _ := strconv.ParseFloat(s, 64)
			return f
		}
		if n, err := strconv.ParseInt(s, 0, 64); err == nil {
			return n
		}
		if n, ok := new(big.Int).SetString(s, 0); ok {
			f, _ := new(big.Float).SetInt(n).Float64()
			return f
		}
	case TokenFloat:
		// Out-of-range literals come back as ±Inf or 0 with ErrRange.
		if f, err := strconv.ParseFloat(s, 64); err == nil || errors.Is(err, strconv.ErrRange) {
			return f
		}
	}
	return s
}
