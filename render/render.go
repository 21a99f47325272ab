// Package render turns author input into the stored display forms: sanitized HTML
// bodies and URL slugs.
package render

import (
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday/v2"
)

const maxSlugLength = 80

var policy = bluemonday.UGCPolicy()

// Markdown renders t and strips anything unsafe from the result.
func Markdown(t string) string {
	extensions := blackfriday.NoIntraEmphasis |
		blackfriday.Tables |
		blackfriday.FencedCode |
		blackfriday.Autolink |
		blackfriday.Strikethrough |
		blackfriday.SpaceHeadings |
		blackfriday.HardLineBreak

	htmlFlags := blackfriday.UseXHTML |
		blackfriday.Smartypants |
		blackfriday.SmartypantsFractions |
		blackfriday.SmartypantsLatexDashes

	renderer := blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{Flags: htmlFlags})
	unsafe := blackfriday.Run([]byte(t), blackfriday.WithExtensions(extensions), blackfriday.WithRenderer(renderer))
	return string(policy.SanitizeBytes(unsafe))
}

// Slug builds the URL slug of a title created at t.
func Slug(title string, t time.Time) string {
	s := slug.Make(title)
	if len(s) > maxSlugLength {
		s = strings.TrimRight(s[:maxSlugLength], "-")
	}
	if s == "" {
		s = "item"
	}
	return s + "-" + t.Format("01021504")
}
