package services

import (
	"bytes"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// Renderer turns post bodies into sanitized HTML and strips markup from
// reader comments.
type Renderer struct {
	md     goldmark.Markdown
	ugc    *bluemonday.Policy
	strict *bluemonday.Policy
}

func NewRenderer() *Renderer {
	ugc := bluemonday.UGCPolicy()
	ugc.AllowImages()
	ugc.AddTargetBlankToFullyQualifiedLinks(true)
	ugc.RequireNoReferrerOnLinks(true)

	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			goldmark.WithRendererOptions(gmhtml.WithHardWraps(), gmhtml.WithXHTML()),
		),
		ugc:    ugc,
		strict: bluemonday.StrictPolicy(),
	}
}

// RenderContent converts markdown to HTML safe to embed in a page.
func (r *Renderer) RenderContent(source string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return string(r.ugc.SanitizeBytes(buf.Bytes())), nil
}

// StripHTML removes every tag and returns plain text.
func (r *Renderer) StripHTML(s string) string {
	return strings.TrimSpace(html.UnescapeString(r.strict.Sanitize(s)))
}
