package markup

import (
	"strings"
	"testing"

	"golang.org/x/net/html"
)

const page = `<!DOCTYPE html>
<html><head><title>Old</title><style>body { color: red; }</style></head>
<body><img id="hero" src="x"><div id="hero">dup</div><p id="about">Hi</p></body></html>`

func TestFindByIDFirstMatchWins(t *testing.T) {
	tree, err := Parse(page)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	n := tree.FindByID("hero")
	if n == nil || n.Data != "img" {
		t.Fatalf("expected the img element first, got %v", n)
	}
	if tree.FindByID("missing") != nil {
		t.Error("expected nil for missing id")
	}
	if tree.FindByID("") != nil {
		t.Error("expected nil for empty id")
	}
}

func TestExtractStyle(t *testing.T) {
	out, css, err := ExtractStyle(page)
	if err != nil {
		t.Fatalf("ExtractStyle: %v", err)
	}
	if css != "body { color: red; }" {
		t.Errorf("css = %q", css)
	}
	if strings.Contains(out, "<style") {
		t.Error("style block should be removed from markup")
	}
	if !strings.Contains(out, `id="about"`) {
		t.Error("body content lost")
	}
}

func TestExtractStyleNoBlock(t *testing.T) {
	_, css, err := ExtractStyle("<p>plain</p>")
	if err != nil {
		t.Fatalf("ExtractStyle: %v", err)
	}
	if css != "" {
		t.Errorf("css = %q, want empty", css)
	}
}

func TestAppendAndAttrs(t *testing.T) {
	tree, err := Parse("<p>x</p>")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	link := NewElement("link", "rel", "icon", "href", "a.png")
	tree.AppendToHead(link)
	SetAttr(link, "href", "b.png")

	if v, _ := GetAttr(link, "href"); v != "b.png" {
		t.Errorf("href = %q", v)
	}
	out, err := tree.Render()
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(out, `<link rel="icon" href="b.png"/>`) {
		t.Errorf("rendered markup missing link: %s", out)
	}
}

func TestRemoveAndText(t *testing.T) {
	tree, _ := Parse(page)
	title := tree.FirstElement("title")
	if Text(title) != "Old" {
		t.Errorf("title text = %q", Text(title))
	}
	SetText(title, "New")
	if Text(title) != "New" {
		t.Errorf("title text after set = %q", Text(title))
	}
	Remove(tree.FindByID("about"))
	if tree.FindByID("about") != nil {
		t.Error("element should be removed")
	}
	Remove(NewElement("div")) // detached, no panic
}

func TestEmbedStyle(t *testing.T) {
	tree, _ := Parse("<p>x</p>")
	tree.EmbedStyle("p { margin: 0 }")
	tree.EmbedStyle("   ")
	if n := len(tree.FindAll(func(n *html.Node) bool { return n.Data == "style" })); n != 1 {
		t.Errorf("expected one style element, got %d", n)
	}
}
