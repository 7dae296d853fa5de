package web

import (
	"bytes"
	"embed"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/parser"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
)

//go:embed templates/*.html
var templateFS embed.FS

// mdRenderer escapes raw HTML in names; WithUnsafe is not set. The only
// block parser is the paragraph one, so a name such as "1. Cloud" or
// "# Kubernetes" stays literal text inside its table cell.
var mdRenderer = goldmark.New(
	goldmark.WithParser(parser.NewParser(
		parser.WithBlockParsers(util.Prioritized(parser.NewParagraphParser(), 1000)),
		parser.WithInlineParsers(parser.DefaultInlineParsers()...),
		parser.WithParagraphTransformers(parser.DefaultParagraphTransformers()...),
	)),
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// renderMarkdownInline converts a single markdown cell and drops the
// paragraph wrapper.
func renderMarkdownInline(md string) template.HTML {
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	out := strings.TrimSpace(buf.String())
	out = strings.TrimPrefix(out, "<p>")
	out = strings.TrimSuffix(out, "</p>")
	return template.HTML(out)
}

func parseTemplates() *template.Template {
	funcs := template.FuncMap{
		"renderMarkdown": renderMarkdownInline,
	}
	return template.Must(template.New("dashboard.html").Funcs(funcs).ParseFS(templateFS, "templates/dashboard.html"))
}
