package knowledge

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ErrCorpusLoad means the knowledge file is missing, unreadable or has no
// usable lines.
var ErrCorpusLoad = errors.New("load knowledge corpus")

// Load reads the corpus at path. Plain text files yield one entry per
// non-blank trimmed line. Markdown files (.md, .markdown) yield one entry per
// heading, paragraph or list item, with inline markup stripped.
func Load(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorpusLoad, err)
	}
	var lines []string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		lines = ParseMarkdown(raw)
	default:
		lines, err = ParseText(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrCorpusLoad, path, err)
		}
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: %s has no content", ErrCorpusLoad, path)
	}
	return lines, nil
}

// ParseText splits raw into trimmed non-blank lines. A line longer than the
// scanner limit is an error rather than a silent truncation.
func ParseText(raw []byte) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func ParseMarkdown(raw []byte) []string {
	doc := goldmark.New().Parser().Parse(text.NewReader(raw))
	var lines []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindFencedCodeBlock, ast.KindCodeBlock, ast.KindHTMLBlock:
			return ast.WalkSkipChildren, nil
		case ast.KindParagraph, ast.KindHeading, ast.KindTextBlock:
			var sb strings.Builder
			collectText(n, raw, &sb)
			if line := strings.Join(strings.Fields(sb.String()), " "); line != "" {
				lines = append(lines, line)
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return lines
}

func collectText(n ast.Node, src []byte, sb *strings.Builder) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *ast.Text:
			sb.Write(node.Segment.Value(src))
			if node.SoftLineBreak() || node.HardLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(node.Value)
		default:
			collectText(c, src, sb)
		}
	}
}
