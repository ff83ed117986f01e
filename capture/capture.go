// Package capture renders what a read step currently sees: the located
// element's HTML, sanitized and converted to markdown, so the user can
// judge whether the configured selector still captures the right content.
package capture

import (
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/microcosm-cc/bluemonday"
)

// Previewer converts captured element HTML into a markdown preview.
// The zero value is not usable; call NewPreviewer.
type Previewer struct {
	policy    *bluemonday.Policy
	converter *converter.Converter
}

// NewPreviewer builds a Previewer with a UGC sanitization policy and a
// commonmark converter.
func NewPreviewer() *Previewer {
	return &Previewer{
		policy: bluemonday.UGCPolicy(),
		converter: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
			),
		),
	}
}

// Preview sanitizes the HTML and converts it to markdown. If conversion
// fails or produces nothing, it falls back to the sanitized text with
// collapsed whitespace. Empty input previews as empty.
func (p *Previewer) Preview(rawHTML string) string {
	if strings.TrimSpace(rawHTML) == "" {
		return ""
	}

	clean := p.policy.Sanitize(rawHTML)

	md, err := p.converter.ConvertString(clean)
	if err == nil && strings.TrimSpace(md) != "" {
		return strings.TrimSpace(md)
	}

	return collapseText(clean)
}

// collapseText strips any remaining tags and squeezes whitespace runs.
func collapseText(s string) string {
	stripped := bluemonday.StrictPolicy().Sanitize(s)
	return strings.Join(strings.Fields(stripped), " ")
}
