package render

import (
	"bytes"
	"html"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/slyfox1186/qwen3-8b-chatbot/pkg/logger"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
)

// CodeStyle is the chroma style used for fenced code.
const CodeStyle = "monokai"

var defaultMarkdown = NewMarkdown(CodeStyle)

// Markdown converts bubble text to HTML. Line breaks are kept, raw HTML is
// dropped and fenced code is highlighted.
func Markdown(text string) (string, error) {
	return defaultMarkdown.Render(text)
}

// MarkdownRenderer renders chat markdown to HTML.
type MarkdownRenderer struct {
	md goldmark.Markdown
}

func NewMarkdown(codeStyle string) *MarkdownRenderer {
	style := styles.Get(codeStyle)
	if style == nil {
		style = styles.Fallback
	}

	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Typographer,
		),
		goldmark.WithRendererOptions(
			goldmarkhtml.WithHardWraps(),
			renderer.WithNodeRenderers(
				util.Prioritized(&codeBlockRenderer{
					style:     style,
					formatter: chromahtml.New(chromahtml.WithClasses(false)),
				}, 200),
			),
		),
	)
	return &MarkdownRenderer{md: md}
}

func (m *MarkdownRenderer) Render(text string) (string, error) {
	var buf bytes.Buffer
	if err := m.md.Convert([]byte(text), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// codeBlockRenderer highlights fenced code blocks with chroma.
type codeBlockRenderer struct {
	style     *chroma.Style
	formatter *chromahtml.Formatter
}

func (r *codeBlockRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindFencedCodeBlock, r.renderFencedCodeBlock)
}

func (r *codeBlockRenderer) renderFencedCodeBlock(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}

	n := node.(*ast.FencedCodeBlock)
	language := string(n.Language(source))

	var code strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		code.Write(seg.Value(source))
	}

	if err := r.highlight(w, code.String(), language); err != nil {
		logger.WithComponent("markdown").Debug("Failed to highlight code, using plain text",
			"language", language, "error", err)
		_, _ = w.WriteString("<pre><code>")
		_, _ = w.WriteString(html.EscapeString(code.String()))
		_, _ = w.WriteString("</code></pre>\n")
	}
	return ast.WalkSkipChildren, nil
}

func (r *codeBlockRenderer) highlight(w util.BufWriter, code, language string) error {
	var lexer chroma.Lexer
	if language != "" {
		lexer = lexers.Get(language)
	}
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := r.formatter.Format(&buf, r.style, iterator); err != nil {
		return err
	}
	_, err = w.Write(buf.Bytes())
	return err
}
