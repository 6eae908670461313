// Package mailtext turns decoded message bodies into display text.
package mailtext

import (
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Mode selects how a body is presented.
type Mode string

const (
	ModeClean    Mode = "clean"
	ModeRaw      Mode = "raw"
	ModeMarkdown Mode = "markdown"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeClean:
		return ModeClean, nil
	case ModeRaw:
		return ModeRaw, nil
	case ModeMarkdown:
		return ModeMarkdown, nil
	default:
		return "", fmt.Errorf("unknown content mode %q (want clean, raw or markdown)", s)
	}
}

// Render applies mode to text. Markdown conversion falls back to Clean when
// the converter rejects the input.
func Render(mode Mode, text string) string {
	switch mode {
	case ModeRaw:
		return text
	case ModeMarkdown:
		out, err := Markdown(text)
		if err != nil {
			return Clean(text)
		}
		return out
	default:
		return Clean(text)
	}
}

// Clean strips markup from text. Script and style contents are dropped, every
// remaining text node is trimmed, and non-empty nodes are joined with
// newlines so block boundaries survive as line breaks.
//
// Entities are decoded, so Clean is idempotent on plain text but not on text
// that still carries escaped markup: "&amp;lt;b&amp;gt;" cleans to "&lt;b&gt;"
// and then to "<b>".
func Clean(text string) string {
	z := html.NewTokenizer(strings.NewReader(text))
	var (
		lines []string
		skip  int
	)
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(lines, "\n")
		case html.StartTagToken:
			if skippedTag(z) {
				skip++
			}
		case html.EndTagToken:
			if skippedTag(z) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip > 0 {
				continue
			}
			if t := strings.TrimSpace(string(z.Text())); t != "" {
				lines = append(lines, t)
			}
		}
	}
}

// skippedTag reports script and style. The tokenizer reads both as raw text
// up to their end tag, so every start is matched by an end or EOF.
func skippedTag(z *html.Tokenizer) bool {
	name, _ := z.TagName()
	switch atom.Lookup(name) {
	case atom.Script, atom.Style:
		return true
	}
	return false
}

var converter = md.NewConverter(
	md.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(
			commonmark.WithStrongDelimiter("**"),
			commonmark.WithEmDelimiter("_"),
			commonmark.WithCodeBlockFence("```"),
		),
	),
	md.WithEscapeMode(md.EscapeModeDisabled),
)

// Markdown converts an HTML body to markdown.
func Markdown(text string) (string, error) {
	out, err := converter.ConvertString(text)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
