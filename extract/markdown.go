package extract

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"
)

// FromMarkdown flattens markdown into speakable plain text: inline
// formatting is dropped, block structure becomes blank lines, code
// blocks keep their literal content. Never fails; malformed markdown
// is just text.
func (s *Service) FromMarkdown(src string) ContentSource {
	source := []byte(src)
	doc := goldmark.DefaultParser().Parse(gmtext.NewReader(source))

	var b strings.Builder
	var title string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Text:
			if entering {
				b.Write(node.Segment.Value(source))
				if node.SoftLineBreak() || node.HardLineBreak() {
					b.WriteByte('\n')
				}
			}
		case *ast.Heading:
			if !entering {
				if title == "" {
					lines := strings.Split(strings.TrimSpace(b.String()), "\n")
					title = lines[len(lines)-1]
				}
				b.WriteString("\n\n")
			}
		case *ast.Paragraph, *ast.ListItem, *ast.Blockquote:
			if !entering {
				b.WriteString("\n\n")
			}
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			if entering {
				lines := n.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					b.Write(seg.Value(source))
				}
				b.WriteString("\n")
			}
		case *ast.AutoLink:
			if entering {
				b.Write(node.URL(source))
			}
		}
		return ast.WalkContinue, nil
	})

	content := collapseBlankLines(b.String())
	if title == "" {
		title = textTitle(content)
	}
	return ContentSource{
		Type:    TypeText,
		Title:   title,
		Content: normalize(content),
	}
}
