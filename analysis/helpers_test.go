package analysis

import (
	"context"
	"strings"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/stretchr/testify/require"
)

func parseSource(t *testing.T, src string) (*sitter.Tree, []byte) {
	t.Helper()
	parser := sitter.NewParser()
	parser.SetLanguage(golang.GetLanguage())
	tree, err := parser.ParseCtx(context.Background(), nil, []byte(src))
	require.NoError(t, err)
	require.NotNil(t, tree)
	return tree, []byte(src)
}

// posOf returns the zero-based position of the nth occurrence of token.
// Fixtures use names that are not substrings of other tokens.
func posOf(t *testing.T, src, token string, nth int) Position {
	t.Helper()
	seen := 0
	for lineNo, line := range strings.Split(src, "\n") {
		col := 0
		for {
			idx := strings.Index(line[col:], token)
			if idx < 0 {
				break
			}
			seen++
			if seen == nth {
				return Position{Line: uint32(lineNo), Column: uint32(col + idx)}
			}
			col += idx + len(token)
		}
	}
	t.Fatalf("occurrence %d of %q not found in source", nth, token)
	return Position{}
}

// rangeOf is posOf extended to the token's single-line span.
func rangeOf(t *testing.T, src, token string, nth int) Range {
	t.Helper()
	start := posOf(t, src, token, nth)
	return Range{
		Start: start,
		End:   Position{Line: start.Line, Column: start.Column + uint32(len(token))},
	}
}
