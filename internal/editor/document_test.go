package editor

import (
	"strings"
	"testing"
)

func TestParseRoundTrip(t *testing.T) {
	in := `<p>Resumo do capítulo</p><p><strong>negrito</strong></p>`
	d, err := Parse(in)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := d.HTML(); got != in {
		t.Fatalf("round trip mismatch: %q", got)
	}
}

func TestEmptyAndMediaFree(t *testing.T) {
	cases := []struct {
		name string
		html string
		want bool
	}{
		{"blank", "", true},
		{"whitespace markup", "<p>  </p><p><br/></p>", true},
		{"text", "<p>conteúdo</p>", false},
		{"bare image", `<p><img src="/x.png"/></p>`, false},
		{"canvas", `<canvas width="10"></canvas>`, false},
		{"background image", `<div style="background-image:url(/x.png)"></div>`, false},
	}
	for _, tc := range cases {
		d, err := Parse(tc.html)
		if err != nil {
			t.Fatalf("%s: parse: %v", tc.name, err)
		}
		if got := d.EmptyAndMediaFree(); got != tc.want {
			t.Fatalf("%s: EmptyAndMediaFree = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestPlaceholderOrderAndRemoval(t *testing.T) {
	d, err := Parse("<p>antes</p>")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	for _, name := range []string{"img_001.png", "img_003.png", "img_001.png"} {
		d.AppendChild(newPlaceholder(name, PDFImageSrc(name, 1)))
	}
	if got := d.Placeholders(); len(got) != 3 || got[0] != "img_001.png" || got[1] != "img_003.png" || got[2] != "img_001.png" {
		t.Fatalf("placeholders = %v", got)
	}

	if !d.RemoveFirstPlaceholder("img_001.png") {
		t.Fatal("expected removal of first duplicate")
	}
	got := d.Placeholders()
	if len(got) != 2 || got[0] != "img_003.png" || got[1] != "img_001.png" {
		t.Fatalf("after removal: %v", got)
	}
	if d.RemoveFirstPlaceholder("img_999.png") {
		t.Fatal("removed a placeholder that does not exist")
	}
	if n := d.RemoveAllPlaceholders(); n != 2 {
		t.Fatalf("RemoveAllPlaceholders = %d, want 2", n)
	}
	if strings.Contains(d.HTML(), placeholderClass) {
		t.Fatalf("placeholder markup survived: %q", d.HTML())
	}
}

func TestInsertedImageCountSkipsPlaceholderInternals(t *testing.T) {
	d, err := Parse("<p>texto</p>")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	d.AppendChild(newPlaceholder("img_002.png", PDFImageSrc("img_002.png", 1)))
	d.AppendChild(newInlineImage("https://exemplo.com/captura.png", "Captura"))

	// The placeholder's internal <img> must not be double counted.
	if got := d.InsertedImageCount(); got != 2 {
		t.Fatalf("InsertedImageCount = %d, want 2", got)
	}
}

func TestPDFImageSrc(t *testing.T) {
	got := PDFImageSrc("img_007.png", 42)
	want := "/temp_uploads/imagens_extraidas/img_007.png?v=42"
	if got != want {
		t.Fatalf("PDFImageSrc = %q, want %q", got, want)
	}
}
