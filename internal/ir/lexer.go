package ir

import (
	"fmt"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokWord tokenKind = iota
	tokQuoted
	tokString
	tokPunct
)

// token is one lexical unit of a DDL fragment. For quoted identifiers and
// string literals text holds the unescaped content.
type token struct {
	kind tokenKind
	text string
}

func (t token) is(word string) bool {
	return t.kind == tokWord && strings.EqualFold(t.text, word)
}

func (t token) isPunct(p string) bool {
	return t.kind == tokPunct && t.text == p
}

func (t token) isIdentifier() bool {
	return t.kind == tokWord || t.kind == tokQuoted
}

// identifier resolves an identifier token, folding unquoted words the way the
// dialect does.
func (t token) identifier(d Dialect) string {
	if t.kind == tokQuoted {
		return t.text
	}
	return d.Fold(t.text)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '$' || r == '#' || r == '@'
}

// tokenize splits DDL text into words, quoted identifiers ("x" and [x]),
// string literals and single character punctuation.
func tokenize(input string) ([]token, error) {
	var tokens []token
	runes := []rune(input)

	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '"' || r == '[' || r == '\'':
			closing := r
			kind := tokQuoted
			if r == '[' {
				closing = ']'
			}
			if r == '\'' {
				kind = tokString
			}
			var sb strings.Builder
			j := i + 1
			closed := false
			for j < len(runes) {
				if runes[j] == closing {
					// doubled closing character is an escaped literal
					if j+1 < len(runes) && runes[j+1] == closing {
						sb.WriteRune(closing)
						j += 2
						continue
					}
					closed = true
					break
				}
				sb.WriteRune(runes[j])
				j++
			}
			if !closed {
				return nil, fmt.Errorf("unterminated %c at offset %d", r, i)
			}
			tokens = append(tokens, token{kind: kind, text: sb.String()})
			i = j + 1
		case isWordRune(r):
			j := i
			for j < len(runes) && isWordRune(runes[j]) {
				j++
			}
			tokens = append(tokens, token{kind: tokWord, text: string(runes[i:j])})
			i = j
		default:
			tokens = append(tokens, token{kind: tokPunct, text: string(r)})
			i++
		}
	}

	return tokens, nil
}
