package definition

import (
	"strings"
	"unicode/utf8"
)

type tokenType int

const (
	typeLiteral tokenType = iota
	typeMidiNote
	typeVelocity
	typeNoteName
	typeWildcard
	typeEOF
)

const eof = -1

// placeholders maps the %keywords of a pattern to their token type.
var placeholders = []struct {
	text string
	typ  tokenType
}{
	{"%midinote", typeMidiNote},
	{"%velocity", typeVelocity},
	{"%notename", typeNoteName},
}

type token struct {
	typ  tokenType
	pos  int
	text string
}

func lex(input string) []token {
	l := &lexer{input: input}
	return l.lex()
}

// lexer splits a file name pattern into literal runs, placeholders and
// wildcards. Every input lexes: unknown %words are literal text.
type lexer struct {
	input string

	width int
	start int
	pos   int

	tokens []token
}

func (l *lexer) lex() []token {
	for {
		switch r := l.next(); {
		case r == eof:
			l.flushLiteral()
			l.yieldToken(typeEOF)
			return l.tokens
		case r == '*':
			l.backup()
			l.flushLiteral()
			l.next()
			l.yieldToken(typeWildcard)
		case r == '%':
			l.backup()
			if typ, n := l.placeholder(); n > 0 {
				l.flushLiteral()
				l.pos += n
				l.yieldToken(typ)
			} else {
				l.next()
			}
		}
	}
}

func (l *lexer) next() rune {
	if len(l.input) == l.pos {
		l.width = 0
		return eof
	}
	r, w := utf8.DecodeRuneInString(l.input[l.pos:])
	l.width = w
	l.pos += l.width
	return r
}

func (l *lexer) backup() {
	l.pos -= l.width
}

// placeholder reports the placeholder starting at the current position.
func (l *lexer) placeholder() (tokenType, int) {
	rest := l.input[l.pos:]
	for _, p := range placeholders {
		if strings.HasPrefix(rest, p.text) {
			return p.typ, len(p.text)
		}
	}
	return typeLiteral, 0
}

func (l *lexer) flushLiteral() {
	if l.pos > l.start {
		l.yieldToken(typeLiteral)
	}
}

func (l *lexer) yieldToken(t tokenType) {
	s := l.input[l.start:l.pos]
	l.tokens = append(l.tokens, token{t, l.start, s})
	l.start = l.pos
	l.width = 0
}
