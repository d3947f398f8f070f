// Package ingest extracts plain text from documents farmers attach to
// advisory requests: PDF lab reports and HTML market bulletins. Extraction is
// best-effort and size-bounded; the text ends up inside a prompt, not a store.
package ingest

import (
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html"
)

// MaxTextBytes caps extracted text so a large report cannot blow the prompt.
const MaxTextBytes = 64 << 10 // 64KB

// PDFText extracts the plain text of a PDF file.
func PDFText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}
	defer f.Close()

	content, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting pdf text: %w", err)
	}
	data, err := io.ReadAll(io.LimitReader(content, MaxTextBytes))
	if err != nil {
		return "", fmt.Errorf("reading pdf text: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// HTMLText extracts the visible text of an HTML document, dropping script and
// style contents and collapsing whitespace runs.
func HTMLText(r io.Reader) (string, error) {
	doc, err := html.Parse(io.LimitReader(r, MaxTextBytes*4))
	if err != nil {
		return "", fmt.Errorf("parsing html: %w", err)
	}

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	out := sb.String()
	if len(out) > MaxTextBytes {
		out = out[:MaxTextBytes]
	}
	return out, nil
}
