package tagparse

import "strings"

// TokenType identifies the kind of a lexical token.
type TokenType string

const (
	// TokenText is a run of plain text between tag constructs.
	TokenText TokenType = "text"

	// TokenTagOpen is the "{{<" marker beginning an opening tag.
	TokenTagOpen TokenType = "tag_open"

	// TokenTagEndOpen is the "{{</" marker beginning a closing tag.
	TokenTagEndOpen TokenType = "tag_end_open"

	// TokenIdent is a tag identifier.
	TokenIdent TokenType = "ident"

	// TokenAttr is a key="value" attribute. Key and Value carry the
	// decoded attribute; Text carries the raw source.
	TokenAttr TokenType = "attr"

	// TokenTagClose is the ">}}" marker completing a tag.
	TokenTagClose TokenType = "tag_close"

	// TokenTagSelfClose is the "/>}}" marker completing a self-closing tag.
	TokenTagSelfClose TokenType = "tag_self_close"

	// TokenInvalid covers a malformed tag construct. The parser reports a
	// diagnostic and the covered source passes through as literal text.
	TokenInvalid TokenType = "invalid"
)

// Position is a location in the source text.
type Position struct {
	Offset int `json:"offset"`
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Token is one lexical token with its source position.
type Token struct {
	Type  TokenType
	Text  string
	Key   string
	Value string
	Pos   Position
}

// End returns the offset one past the last byte of the token.
func (t Token) End() int {
	return t.Pos.Offset + len(t.Text)
}

const (
	markTagEndOpen   = "{{</"
	markTagOpen      = "{{<"
	markTagClose     = ">}}"
	markTagSelfClose = "/>}}"
)

// Tokenize converts the input into a token stream in a single
// left-to-right scan. It never fails: malformed tag constructs become
// TokenInvalid tokens and scanning continues after them.
func Tokenize(input string) []Token {
	s := &scanner{input: input, line: 1, col: 1}
	var tokens []Token

	textStart := s.position()
	flushText := func(end int) {
		if end > textStart.Offset {
			tokens = append(tokens, Token{
				Type: TokenText,
				Text: input[textStart.Offset:end],
				Pos:  textStart,
			})
		}
	}

	for s.off < len(input) {
		if strings.HasPrefix(input[s.off:], markTagOpen) {
			start := s.position()
			tagTokens, ok := s.lexTag()
			flushText(start.Offset)
			if ok {
				tokens = append(tokens, tagTokens...)
			} else {
				tokens = append(tokens, Token{
					Type: TokenInvalid,
					Text: input[start.Offset:s.off],
					Pos:  start,
				})
			}
			textStart = s.position()
			continue
		}
		s.next()
	}
	flushText(len(input))
	return tokens
}

type scanner struct {
	input string
	off   int
	line  int
	col   int
}

func (s *scanner) position() Position {
	return Position{Offset: s.off, Line: s.line, Column: s.col}
}

// next advances one byte, tracking line and column.
func (s *scanner) next() {
	if s.input[s.off] == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	s.off++
}

func (s *scanner) advance(n int) {
	for i := 0; i < n && s.off < len(s.input); i++ {
		s.next()
	}
}

func (s *scanner) hasPrefix(prefix string) bool {
	return strings.HasPrefix(s.input[s.off:], prefix)
}

// lexTag lexes one complete tag construct starting at "{{<" or "{{</".
// On success it returns the construct's tokens with the scanner positioned
// after the construct. On failure it returns false with the scanner
// positioned at the point it gave up; at least the opening marker has been
// consumed, so forward progress is guaranteed.
func (s *scanner) lexTag() ([]Token, bool) {
	var tokens []Token

	emit := func(typ TokenType, text string, pos Position) {
		tokens = append(tokens, Token{Type: typ, Text: text, Pos: pos})
	}

	closing := s.hasPrefix(markTagEndOpen)
	openPos := s.position()
	if closing {
		s.advance(len(markTagEndOpen))
		emit(TokenTagEndOpen, markTagEndOpen, openPos)
	} else {
		s.advance(len(markTagOpen))
		emit(TokenTagOpen, markTagOpen, openPos)
	}

	identPos := s.position()
	ident := s.lexIdent()
	if ident == "" {
		return nil, false
	}
	emit(TokenIdent, ident, identPos)

	if closing {
		if !s.hasPrefix(markTagClose) {
			return nil, false
		}
		closePos := s.position()
		s.advance(len(markTagClose))
		emit(TokenTagClose, markTagClose, closePos)
		return tokens, true
	}

	for {
		s.skipSpaces()
		if s.off >= len(s.input) {
			return nil, false
		}
		if s.hasPrefix(markTagSelfClose) {
			pos := s.position()
			s.advance(len(markTagSelfClose))
			emit(TokenTagSelfClose, markTagSelfClose, pos)
			return tokens, true
		}
		if s.hasPrefix(markTagClose) {
			pos := s.position()
			s.advance(len(markTagClose))
			emit(TokenTagClose, markTagClose, pos)
			return tokens, true
		}
		attr, ok := s.lexAttr()
		if !ok {
			return nil, false
		}
		tokens = append(tokens, attr)
	}
}

func (s *scanner) skipSpaces() {
	for s.off < len(s.input) {
		switch s.input[s.off] {
		case ' ', '\t', '\r', '\n':
			s.next()
		default:
			return
		}
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func (s *scanner) lexIdent() string {
	start := s.off
	if s.off >= len(s.input) || !isIdentStart(s.input[s.off]) {
		return ""
	}
	for s.off < len(s.input) && isIdentPart(s.input[s.off]) {
		s.next()
	}
	return s.input[start:s.off]
}

// lexAttr lexes one key="value" attribute with backslash escaping inside
// the quoted value.
func (s *scanner) lexAttr() (Token, bool) {
	pos := s.position()
	key := s.lexIdent()
	if key == "" {
		return Token{}, false
	}
	if s.off >= len(s.input) || s.input[s.off] != '=' {
		return Token{}, false
	}
	s.next()
	if s.off >= len(s.input) || s.input[s.off] != '"' {
		return Token{}, false
	}
	s.next()

	var value strings.Builder
	for {
		if s.off >= len(s.input) {
			return Token{}, false
		}
		c := s.input[s.off]
		if c == '"' {
			s.next()
			break
		}
		if c == '\\' && s.off+1 < len(s.input) {
			s.next()
			esc := s.input[s.off]
			switch esc {
			case 'n':
				value.WriteByte('\n')
			case 't':
				value.WriteByte('\t')
			default:
				// \" and \\ and any other escaped byte pass through
				value.WriteByte(esc)
			}
			s.next()
			continue
		}
		value.WriteByte(c)
		s.next()
	}
	return Token{
		Type:  TokenAttr,
		Text:  s.input[pos.Offset:s.off],
		Key:   key,
		Value: value.String(),
		Pos:   pos,
	}, true
}
