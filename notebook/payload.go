package notebook

import (
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"golang.org/x/net/html"
)

var excessiveLinesRe = regexp.MustCompile(`\n{3,}`)

var converter = newConverter()

func newConverter() *md.Converter {
	c := md.NewConverter("", true, nil)
	c.Use(plugin.GitHubFlavored())
	return c
}

// RichErrorText extracts the best available diagnostic from an error
// output. It prefers the plain diagnostic under StderrKey; when that is
// absent it falls back to the HTML payload converted to markdown, then to
// the plain-text payload. Returns "" when the output carries nothing
// usable.
func RichErrorText(out Output) string {
	if text := ErrorText(out); text != "" {
		return text
	}
	if out.Data == nil {
		return ""
	}
	if h := out.Data[HTMLKey]; h != "" {
		return HTMLToMarkdown(h)
	}
	return out.Data[PlainTextKey]
}

// HTMLToMarkdown converts an HTML payload to markdown suitable for
// embedding in a prompt. Falls back to flattened text when conversion
// fails.
func HTMLToMarkdown(content string) string {
	out, err := converter.ConvertString(content)
	if err != nil {
		return flattenHTML(content)
	}
	out = excessiveLinesRe.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}

// flattenHTML collects the text nodes of an HTML fragment.
func flattenHTML(content string) string {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return content
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return strings.TrimSpace(b.String())
}
