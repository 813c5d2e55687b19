package fetch

import (
	"strings"
	"testing"
)

func TestVisibleText_StripsScriptsAndStyles(t *testing.T) {
	doc := `<html><head><title>ignored</title><style>body{color:red}</style></head>
<body><script>var x = "secret";</script><p>Visible paragraph.</p>
<noscript>fallback</noscript></body></html>`

	got, err := VisibleText(doc)
	if err != nil {
		t.Fatalf("VisibleText: %v", err)
	}
	if !strings.Contains(got, "Visible paragraph.") {
		t.Errorf("visible text lost:\n%s", got)
	}
	for _, hidden := range []string{"secret", "color:red", "fallback", "ignored"} {
		if strings.Contains(got, hidden) {
			t.Errorf("non-visible content %q leaked:\n%s", hidden, got)
		}
	}
}

func TestVisibleText_BlockBoundaries(t *testing.T) {
	doc := `<h1>Pricing</h1><p>Now from $9</p><ul><li>Basic</li><li>Pro</li></ul>`

	got, err := VisibleText(doc)
	if err != nil {
		t.Fatalf("VisibleText: %v", err)
	}
	if strings.Contains(got, "PricingNow") {
		t.Errorf("block boundary collapsed:\n%s", got)
	}
	lines := strings.Split(got, "\n")
	if len(lines) < 3 {
		t.Errorf("expected block elements on separate lines, got %q", got)
	}
}

func TestVisibleText_CollapsesWhitespace(t *testing.T) {
	doc := "<p>  lots \t of\n\n   space  </p>"

	got, err := VisibleText(doc)
	if err != nil {
		t.Fatalf("VisibleText: %v", err)
	}
	if got != "lots of space" {
		t.Errorf("VisibleText = %q, want %q", got, "lots of space")
	}

	// Newlines inside text nodes are plain whitespace; only block
	// boundaries may produce line breaks.
	doc = "<p>multi\nline <b>text</b>\nrun</p>"
	got, err = VisibleText(doc)
	if err != nil {
		t.Fatalf("VisibleText: %v", err)
	}
	if got != "multi line text run" {
		t.Errorf("VisibleText = %q, want %q", got, "multi line text run")
	}
}

func TestVisibleText_Deterministic(t *testing.T) {
	doc := `<div><h2>About</h2><p>We build things.</p></div>`

	first, err := VisibleText(doc)
	if err != nil {
		t.Fatal(err)
	}
	second, err := VisibleText(doc)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("VisibleText is not deterministic:\n%q\n%q", first, second)
	}
}

func TestVisibleText_EmptyDocument(t *testing.T) {
	got, err := VisibleText("")
	if err != nil {
		t.Fatalf("VisibleText(\"\"): %v", err)
	}
	if got != "" {
		t.Errorf("expected empty result, got %q", got)
	}
}
