package ingest

import (
	"strings"
	"testing"
)

func TestHTMLTextStripsMarkupAndScripts(t *testing.T) {
	doc := `<html><head><style>body{color:red}</style></head>
	<body><h1>Maize bulletin</h1><script>alert(1)</script>
	<p>Wholesale price   up <b>4%</b> this week.</p></body></html>`

	out, err := HTMLText(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("HTMLText: %v", err)
	}
	if !strings.Contains(out, "Maize bulletin") || !strings.Contains(out, "up 4% this week.") {
		t.Errorf("visible text missing: %q", out)
	}
	if strings.Contains(out, "alert") || strings.Contains(out, "color:red") {
		t.Errorf("script/style leaked into text: %q", out)
	}
}

func TestHTMLTextEmptyDocument(t *testing.T) {
	out, err := HTMLText(strings.NewReader(""))
	if err != nil {
		t.Fatalf("HTMLText: %v", err)
	}
	if out != "" {
		t.Errorf("expected empty text, got %q", out)
	}
}

func TestPDFTextMissingFile(t *testing.T) {
	if _, err := PDFText("does/not/exist.pdf"); err == nil {
		t.Error("expected error for missing file")
	}
}
