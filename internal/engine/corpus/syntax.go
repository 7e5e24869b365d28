package corpus

import (
	"log/slog"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
)

// skippedKinds are subtrees whose text never names a crate.
var skippedKinds = map[string]bool{
	"line_comment":       true,
	"block_comment":      true,
	"doc_comment":        true,
	"string_literal":     true,
	"raw_string_literal": true,
	"char_literal":       true,
}

// SyntaxTokenizer parses Rust source with tree-sitter and tokenizes only the
// leaves outside comments and literals. Files that fail to parse fall back to
// lexical tokenization.
type SyntaxTokenizer struct {
	pool     *ParserPool
	fallback LexicalTokenizer
}

func NewSyntaxTokenizer() *SyntaxTokenizer {
	lang := sitter.NewLanguage(tree_sitter_rust.Language())
	return &SyntaxTokenizer{pool: NewParserPool(lang)}
}

func (s *SyntaxTokenizer) Tokenize(path string, content []byte) []string {
	sp := s.pool.Get()
	defer s.pool.Put(sp)

	tree := sp.Parse(content, nil)
	if tree == nil {
		slog.Debug("syntax parse failed, using lexical tokens", "path", path)
		return s.fallback.Tokenize(path, content)
	}
	defer tree.Close()

	seen := make(map[string]struct{})
	out := make([]string, 0)
	collectLeaves(tree.RootNode(), content, seen, &out)
	return out
}

func collectLeaves(node *sitter.Node, source []byte, seen map[string]struct{}, out *[]string) {
	if node == nil || skippedKinds[node.Kind()] {
		return
	}
	count := node.ChildCount()
	if count == 0 {
		start, end := node.StartByte(), node.EndByte()
		if start < end && end <= uint(len(source)) {
			appendTokens(source[start:end], seen, out)
		}
		return
	}
	for i := uint(0); i < count; i++ {
		collectLeaves(node.Child(i), source, seen, out)
	}
}

func newTokenizer(mode Mode) Tokenizer {
	if mode == ModeSyntax {
		return NewSyntaxTokenizer()
	}
	return LexicalTokenizer{}
}
