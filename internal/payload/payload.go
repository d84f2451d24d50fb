// Package payload reads declaration templates from a markdown "payload book".
//
// A template is a fenced code block whose preceding paragraph names it in
// backticks:
//
//	The IdGenerator stub used by entity tests: `mockIdGenerator`
//
//	```ts
//	const mockIdGenerator: IdGenerator = {
//	  generate: jest.fn(() => 'mock-id-123'),
//	};
//	```
package payload

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// CodeBlock represents a parsed code block from markdown content.
type CodeBlock struct {
	// Hint is the content of the paragraph immediately preceding the code block.
	Hint string
	// Lang is the language identifier of the code block (e.g., "ts").
	Lang string
	// Content is the raw text inside the code block.
	Content string
}

var nameInHintRegex = regexp.MustCompile("`([^`\n]+)`")

// ExtractCodeBlocks uses a markdown AST to find all fenced code blocks
// and their preceding paragraph, which is treated as a hint.
func ExtractCodeBlocks(source []byte) ([]CodeBlock, error) {
	var blocks []CodeBlock
	parser := goldmark.DefaultParser()
	root := parser.Parse(text.NewReader(source))

	walker := func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		fencedCodeBlock, ok := node.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}

		var block CodeBlock
		if fencedCodeBlock.Info != nil {
			block.Lang = string(fencedCodeBlock.Info.Text(source))
		}

		var content bytes.Buffer
		lines := fencedCodeBlock.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			content.Write(line.Value(source))
		}
		block.Content = content.String()

		if prev := fencedCodeBlock.PreviousSibling(); prev != nil {
			if p, ok := prev.(*ast.Paragraph); ok {
				// Raw lines keep the backticks that Text would strip.
				var hint bytes.Buffer
				pl := p.Lines()
				for i := 0; i < pl.Len(); i++ {
					seg := pl.At(i)
					hint.Write(seg.Value(source))
				}
				block.Hint = strings.TrimSpace(hint.String())
			}
		}

		blocks = append(blocks, block)
		return ast.WalkSkipChildren, nil
	}

	if err := ast.Walk(root, walker); err != nil {
		return nil, err
	}

	return blocks, nil
}

// Templates maps template names to their lines.
type Templates map[string][]string

// Parse extracts named templates from markdown source. Blocks without a
// backticked name in their hint are ignored; a later block with the same
// name replaces an earlier one.
func Parse(source []byte) (Templates, error) {
	blocks, err := ExtractCodeBlocks(source)
	if err != nil {
		return nil, fmt.Errorf("parse payload markdown: %w", err)
	}

	templates := make(Templates)
	for _, block := range blocks {
		name := nameFromHint(block.Hint)
		if name == "" {
			continue
		}
		body := strings.TrimRight(block.Content, "\n")
		if body == "" {
			continue
		}
		templates[name] = strings.Split(body, "\n")
	}
	return templates, nil
}

// Load reads and parses the payload book at path.
func Load(path string) (Templates, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read payload book: %w", err)
	}
	return Parse(data)
}

// nameFromHint returns the last backticked word of the hint. Spaces are not
// allowed so inline code such as `jest.fn(() => 1)` is not taken as a name.
func nameFromHint(hint string) string {
	matches := nameInHintRegex.FindAllStringSubmatch(strings.TrimSpace(hint), -1)
	for i := len(matches) - 1; i >= 0; i-- {
		name := strings.TrimSpace(matches[i][1])
		if name != "" && !strings.Contains(name, " ") {
			return name
		}
	}
	return ""
}
