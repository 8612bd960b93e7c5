// Package extract turns fetched response bodies into readable text.
// HTML is reduced to its visible text, PDF manuals are run through a text
// extractor, anything else is passed through as-is.
package extract

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html"
)

// Text extracts readable text from body according to contentType (the raw
// Content-Type header value; parameters like charset are ignored).
func Text(contentType string, body []byte) (string, error) {
	mediaType := contentType
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = mediaType[:i]
	}
	mediaType = strings.TrimSpace(strings.ToLower(mediaType))

	switch {
	case mediaType == "application/pdf":
		return pdfText(body)
	case mediaType == "text/html" || mediaType == "application/xhtml+xml":
		return htmlText(body)
	default:
		return string(body), nil
	}
}

// htmlText walks the parsed document collecting text nodes, skipping
// script/style/noscript subtrees, and collapses runs of whitespace.
func htmlText(body []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parsing html: %w", err)
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "template":
				return
			}
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return strings.Join(strings.Fields(b.String()), " "), nil
}

func pdfText(body []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return "", fmt.Errorf("parsing pdf: %w", err)
	}
	text, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting pdf text: %w", err)
	}
	data, err := io.ReadAll(text)
	if err != nil {
		return "", fmt.Errorf("reading pdf text: %w", err)
	}
	return strings.Join(strings.Fields(string(data)), " "), nil
}

// Truncate cuts text to at most maxChars runes without splitting one.
func Truncate(text string, maxChars int) string {
	if maxChars <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	return string(runes[:maxChars])
}
