package dub

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenType int

const (
	typeUnknown tokenType = iota
	typeInt
	typeFloat
	typeIdentifier
	typeString
	typeEOF
)

type token struct {
	typ  tokenType
	pos  int
	text string
}

// lex splits a console line into words separated by spaces or tabs. A double
// quoted string is one word and may contain spaces.
func lex(input string) ([]token, error) {
	var tokens []token
	pos := 0
	for {
		for pos < len(input) && isSpace(input[pos]) {
			pos++
		}
		if pos == len(input) {
			return append(tokens, token{typeEOF, pos, ""}), nil
		}
		start := pos
		if input[pos] == '"' {
			end := strings.IndexByte(input[pos+1:], '"')
			if end < 0 {
				return tokens, fmt.Errorf("unterminated string at position %d", start)
			}
			pos += end + 2
		} else {
			for pos < len(input) && !isSpace(input[pos]) && input[pos] != '"' {
				pos++
			}
		}
		word := input[start:pos]
		typ, err := classify(word)
		if err != nil {
			return tokens, fmt.Errorf("%v at position %d", err, start)
		}
		tokens = append(tokens, token{typ, start, word})
	}
}

// classify reports the type of a word. Identifiers start with a letter and may
// contain dots, dashes and sharps so property keys (velocity.min) and note
// names (c#4) are single words.
func classify(word string) (tokenType, error) {
	if word[0] == '"' {
		return typeString, nil
	}
	if r, _ := utf8.DecodeRuneInString(word); !unicode.IsLetter(r) {
		return number(word)
	}
	for _, r := range word {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !strings.ContainsRune("_.-#", r) {
			return typeUnknown, fmt.Errorf("unexpected character: %#U", r)
		}
	}
	return typeIdentifier, nil
}

// number accepts an optional leading minus and at least one digit, with at
// most one decimal point.
func number(word string) (tokenType, error) {
	var digits, dots int
	for i, r := range word {
		switch {
		case r == '-' && i == 0:
		case r == '.':
			dots++
		case r >= '0' && r <= '9':
			digits++
		default:
			return typeUnknown, fmt.Errorf("unexpected character: %#U", r)
		}
	}
	switch {
	case digits == 0 || dots > 1:
		return typeUnknown, fmt.Errorf("malformed number %q", word)
	case dots == 1:
		return typeFloat, nil
	}
	return typeInt, nil
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t'
}
