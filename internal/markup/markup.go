// Package markup is a thin tree API over golang.org/x/net/html: parse a
// page, find elements by id, insert or remove nodes, and serialize.
package markup

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Tree is a parsed HTML document.
type Tree struct {
	root *html.Node
}

// Parse parses markup into a full document tree. Fragments are wrapped in
// html/head/body by the parser.
func Parse(markup string) (*Tree, error) {
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parsing markup: %w", err)
	}
	return &Tree{root: root}, nil
}

// Root returns the document node.
func (t *Tree) Root() *html.Node { return t.root }

// FindByID returns the first element in document order whose id attribute
// equals id, or nil.
func (t *Tree) FindByID(id string) *html.Node {
	if id == "" {
		return nil
	}
	return t.FindElement(func(n *html.Node) bool {
		v, ok := GetAttr(n, "id")
		return ok && v == id
	})
}

// FirstElement returns the first element with the given tag name.
func (t *Tree) FirstElement(tag string) *html.Node {
	tag = strings.ToLower(tag)
	return t.FindElement(func(n *html.Node) bool { return n.Data == tag })
}

// FindElement walks the tree depth-first and returns the first element node
// matching pred.
func (t *Tree) FindElement(pred func(*html.Node) bool) *html.Node {
	var found *html.Node
	walk(t.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && pred(n) {
			found = n
			return false
		}
		return true
	})
	return found
}

// FindAll returns every element matching pred in document order.
func (t *Tree) FindAll(pred func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	walk(t.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && pred(n) {
			out = append(out, n)
		}
		return true
	})
	return out
}

// Head returns the head element. The parser always creates one.
func (t *Tree) Head() *html.Node { return t.FirstElement("head") }

// Body returns the body element.
func (t *Tree) Body() *html.Node { return t.FirstElement("body") }

// AppendToHead appends n as the last child of head.
func (t *Tree) AppendToHead(n *html.Node) {
	head := t.Head()
	if head == nil {
		return
	}
	head.AppendChild(n)
}

// Render serializes the whole document, including a doctype when present.
func (t *Tree) Render() (string, error) {
	var b strings.Builder
	if err := html.Render(&b, t.root); err != nil {
		return "", fmt.Errorf("rendering markup: %w", err)
	}
	return b.String(), nil
}

// Remove detaches n from its parent. It is a no-op for detached nodes.
func Remove(n *html.Node) {
	if n != nil && n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// NewElement builds a detached element. attrs are key/value pairs.
func NewElement(tag string, attrs ...string) *html.Node {
	n := &html.Node{
		Type:     html.ElementNode,
		Data:     strings.ToLower(tag),
		DataAtom: atom.Lookup([]byte(strings.ToLower(tag))),
	}
	for i := 0; i+1 < len(attrs); i += 2 {
		SetAttr(n, attrs[i], attrs[i+1])
	}
	return n
}

// SetAttr sets or replaces an attribute.
func SetAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Namespace == "" && strings.EqualFold(n.Attr[i].Key, key) {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// GetAttr returns the attribute value and whether it is present.
func GetAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}

// SetText replaces all children of n with a single text node.
func SetText(n *html.Node, text string) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

// Text returns the concatenated text content of n.
func Text(n *html.Node) string {
	var b strings.Builder
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
		return true
	})
	return b.String()
}

// ExtractStyle removes the first <style> element from markup and returns
// the remaining document and the style text. Markup without a style block
// yields an empty css string.
func ExtractStyle(markup string) (string, string, error) {
	t, err := Parse(markup)
	if err != nil {
		return "", "", err
	}
	css := t.ExtractStyle()
	out, err := t.Render()
	if err != nil {
		return "", "", err
	}
	return out, css, nil
}

// ExtractStyle removes the first style element from the tree and returns its
// text.
func (t *Tree) ExtractStyle() string {
	style := t.FirstElement("style")
	if style == nil {
		return ""
	}
	css := strings.TrimSpace(Text(style))
	Remove(style)
	return css
}

// EmbedStyle appends a style element holding css to head. Empty css is a
// no-op.
func (t *Tree) EmbedStyle(css string) {
	if strings.TrimSpace(css) == "" {
		return
	}
	style := NewElement("style")
	style.AppendChild(&html.Node{Type: html.TextNode, Data: css})
	t.AppendToHead(style)
}

// walk visits nodes depth-first in document order until fn returns false.
func walk(n *html.Node, fn func(*html.Node) bool) bool {
	if !fn(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, fn) {
			return false
		}
	}
	return true
}
