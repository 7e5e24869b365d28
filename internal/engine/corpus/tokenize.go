package corpus

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Mode selects how file content is split into tokens.
type Mode string

const (
	// ModeLexical splits raw text into identifier runs, comments and strings included.
	ModeLexical Mode = "lexical"
	// ModeSyntax parses Rust source and ignores comments and string literals.
	ModeSyntax Mode = "syntax"
)

func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ModeLexical:
		return ModeLexical, nil
	case ModeSyntax:
		return ModeSyntax, nil
	}
	return "", fmt.Errorf("unknown scan mode %q (want lexical or syntax)", raw)
}

// Tokenizer extracts the distinct tokens of one file.
type Tokenizer interface {
	Tokenize(path string, content []byte) []string
}

// LexicalTokenizer returns maximal runs of letters, digits and underscores.
type LexicalTokenizer struct{}

func (LexicalTokenizer) Tokenize(_ string, content []byte) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	appendTokens(content, seen, &out)
	return out
}

func isIdentRune(r rune) bool {
	if r < utf8.RuneSelf {
		return r == '_' ||
			('a' <= r && r <= 'z') ||
			('A' <= r && r <= 'Z') ||
			('0' <= r && r <= '9')
	}
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// appendTokens adds every identifier run of text not already in seen.
func appendTokens(text []byte, seen map[string]struct{}, out *[]string) {
	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		token := string(text[start:end])
		start = -1
		if _, ok := seen[token]; ok {
			return
		}
		seen[token] = struct{}{}
		*out = append(*out, token)
	}

	for i := 0; i < len(text); {
		r, size := rune(text[i]), 1
		if r >= utf8.RuneSelf {
			r, size = utf8.DecodeRune(text[i:])
		}
		if isIdentRune(r) {
			if start < 0 {
				start = i
			}
		} else {
			flush(i)
		}
		i += size
	}
	flush(len(text))
}
